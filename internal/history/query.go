package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/dshills/scribe/internal/check"
)

const selectColumns = `
SELECT id, timestamp, content, content_type, file_name,
	guidance_profile_id, guidance_profile_name, language,
	score, status, check_id, duration,
	goals_json, issues_json, metrics_json
FROM check_history`

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

// History returns records newest first. A limit of zero or less means 50;
// larger limits are capped at the store's limit.
func (s *Store) History(ctx context.Context, limit, offset int) ([]check.Record, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	limit = min(limit, s.limit)
	offset = max(offset, 0)

	rows, err := s.db.QueryContext(ctx, selectColumns+` ORDER BY timestamp DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	records := []check.Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	return records, nil
}

// Get returns the record with id, or ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (*check.Record, error) {
	return get(ctx, s.db, id)
}

func get(ctx context.Context, q querier, id string) (*check.Record, error) {
	rec, err := scanRecord(q.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return rec, err
}

// Delete removes the record with id. Deleting a missing record is not an
// error.
func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM check_history WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting record %s: %w", id, err)
	}
	return nil
}

// Prune deletes all but the newest keep records and reports how many were
// removed.
func (s *Store) Prune(ctx context.Context, keep int) (int, error) {
	res, err := s.db.ExecContext(ctx, `
DELETE FROM check_history WHERE id NOT IN (
	SELECT id FROM check_history ORDER BY timestamp DESC LIMIT ?
)`, max(keep, 0))
	if err != nil {
		return 0, fmt.Errorf("pruning history: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("pruning history: %w", err)
	}
	return int(n), nil
}

// ProfileCount is the number of checks run against one guidance profile.
type ProfileCount struct {
	Profile string `json:"profile"`
	Count   int    `json:"count"`
}

// Stats summarizes the stored checks.
type Stats struct {
	TotalChecks  int            `json:"totalChecks"`
	AverageScore int            `json:"averageScore"`
	ByProfile    []ProfileCount `json:"checksByProfile"`
}

// Stats returns the total number of checks, the average score of scored
// checks rounded to an integer, and check counts per profile name, most
// used first.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var (
		stats Stats
		avg   sql.NullFloat64
	)
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM check_history`).Scan(&stats.TotalChecks); err != nil {
		return stats, fmt.Errorf("counting checks: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT AVG(score) FROM check_history WHERE score IS NOT NULL`).Scan(&avg); err != nil {
		return stats, fmt.Errorf("averaging scores: %w", err)
	}
	if avg.Valid {
		stats.AverageScore = int(math.Round(avg.Float64))
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT guidance_profile_name, COUNT(*) AS count
FROM check_history
GROUP BY guidance_profile_name
ORDER BY count DESC, guidance_profile_name`)
	if err != nil {
		return stats, fmt.Errorf("counting checks by profile: %w", err)
	}
	defer rows.Close()

	stats.ByProfile = []ProfileCount{}
	for rows.Next() {
		var pc ProfileCount
		if err := rows.Scan(&pc.Profile, &pc.Count); err != nil {
			return stats, fmt.Errorf("counting checks by profile: %w", err)
		}
		stats.ByProfile = append(stats.ByProfile, pc)
	}
	return stats, rows.Err()
}

func scanRecord(row scanner) (*check.Record, error) {
	var (
		rec                    check.Record
		ts, contentType        string
		status                 string
		fileName, checkID      sql.NullString
		score, duration        sql.NullInt64
		goals, issues, metrics string
	)
	err := row.Scan(
		&rec.ID, &ts, &rec.Content, &contentType, &fileName,
		&rec.ProfileID, &rec.ProfileName, &rec.Language,
		&score, &status, &checkID, &duration,
		&goals, &issues, &metrics,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("reading record: %w", err)
	}

	rec.Timestamp, err = time.Parse(timeLayout, ts)
	if err != nil {
		return nil, fmt.Errorf("reading record %s timestamp: %w", rec.ID, err)
	}
	rec.ContentType = check.ContentType(contentType)
	rec.Status = check.Status(status)
	rec.FileName = fileName.String
	rec.CheckID = checkID.String
	if score.Valid {
		v := int(score.Int64)
		rec.Score = &v
	}
	if duration.Valid {
		rec.DurationMs = &duration.Int64
	}
	if err := unmarshalList(goals, &rec.Goals); err != nil {
		return nil, err
	}
	if err := unmarshalList(issues, &rec.Issues); err != nil {
		return nil, err
	}
	if err := unmarshalList(metrics, &rec.Metrics); err != nil {
		return nil, err
	}
	return &rec, nil
}

func unmarshalList[T any](data string, dst *[]T) error {
	if data == "" {
		data = "[]"
	}
	if err := json.Unmarshal([]byte(data), dst); err != nil {
		return fmt.Errorf("decoding record: %w", err)
	}
	return nil
}
