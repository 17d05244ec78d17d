package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/dshills/scribe/internal/check"
)

// ErrNotFound is returned when no record has the requested id.
var ErrNotFound = errors.New("history: record not found")

const defaultPageSize = 50

// timeLayout sorts lexically in time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const schema = `
CREATE TABLE IF NOT EXISTS check_history (
	id TEXT PRIMARY KEY,
	timestamp TEXT NOT NULL,
	content TEXT NOT NULL DEFAULT '',
	content_type TEXT NOT NULL DEFAULT 'text',
	file_name TEXT,
	guidance_profile_id TEXT NOT NULL DEFAULT '',
	guidance_profile_name TEXT NOT NULL DEFAULT '',
	language TEXT NOT NULL DEFAULT 'en',
	score INTEGER,
	status TEXT NOT NULL DEFAULT 'pending',
	check_id TEXT,
	duration INTEGER,
	issue_count INTEGER NOT NULL DEFAULT 0,
	goals_json TEXT NOT NULL DEFAULT '[]',
	issues_json TEXT NOT NULL DEFAULT '[]',
	metrics_json TEXT NOT NULL DEFAULT '[]'
);
CREATE INDEX IF NOT EXISTS idx_check_history_timestamp ON check_history(timestamp DESC);
`

// Store is the check history database.
type Store struct {
	db    *sql.DB
	limit int
	now   func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithLimit caps how many records one History call returns.
func WithLimit(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.limit = n
		}
	}
}

// Open opens or creates the database at path. Every connection runs in WAL
// mode with a busy timeout. The path ":memory:" opens a private in-memory
// database.
func Open(path string, opts ...Option) (*Store, error) {
	memory := path == ":memory:"
	if !memory {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating history directory: %w", err)
		}
	}

	dsn := path + "?_pragma=busy_timeout(10000)&_pragma=synchronous(NORMAL)"
	if !memory {
		dsn += "&_pragma=journal_mode(WAL)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}
	if memory {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating history schema: %w", err)
	}

	s := &Store{db: db, limit: check.HistoryLimit, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save inserts rec, or merges it into the stored record with the same id.
func (s *Store) Save(ctx context.Context, rec check.Record) error {
	if rec.ID == "" {
		return errors.New("history: record id is required")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	existing, err := get(ctx, tx, rec.ID)
	switch {
	case errors.Is(err, ErrNotFound):
		rec = withDefaults(rec, s.now())
	case err != nil:
		return err
	default:
		rec = merge(*existing, rec)
	}

	if err := upsert(ctx, tx, rec); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing record: %w", err)
	}
	return nil
}

func withDefaults(rec check.Record, now time.Time) check.Record {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = now
	}
	if rec.ContentType == "" {
		rec.ContentType = check.ContentText
	}
	if rec.Language == "" {
		rec.Language = "en"
	}
	if rec.Status == "" {
		rec.Status = check.StatusPending
	}
	return rec
}

// merge applies the non-empty fields of update to stored. The id and
// timestamp never change.
func merge(stored, update check.Record) check.Record {
	out := stored
	setString := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	setString(&out.Content, update.Content)
	setString(&out.FileName, update.FileName)
	setString(&out.ProfileID, update.ProfileID)
	setString(&out.ProfileName, update.ProfileName)
	setString(&out.Language, update.Language)
	setString(&out.CheckID, update.CheckID)
	if update.ContentType != "" {
		out.ContentType = update.ContentType
	}
	if update.Status != "" {
		out.Status = update.Status
	}
	if update.Score != nil {
		out.Score = update.Score
	}
	if update.DurationMs != nil {
		out.DurationMs = update.DurationMs
	}
	if update.Issues != nil {
		out.Issues = update.Issues
	}
	if update.Goals != nil {
		out.Goals = update.Goals
	}
	if update.Metrics != nil {
		out.Metrics = update.Metrics
	}
	return out
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func upsert(ctx context.Context, db execer, rec check.Record) error {
	goals, err := marshalList(rec.Goals)
	if err != nil {
		return err
	}
	issues, err := marshalList(rec.Issues)
	if err != nil {
		return err
	}
	metrics, err := marshalList(rec.Metrics)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
INSERT INTO check_history (
	id, timestamp, content, content_type, file_name,
	guidance_profile_id, guidance_profile_name, language,
	score, status, check_id, duration, issue_count,
	goals_json, issues_json, metrics_json
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	content = excluded.content,
	content_type = excluded.content_type,
	file_name = excluded.file_name,
	guidance_profile_id = excluded.guidance_profile_id,
	guidance_profile_name = excluded.guidance_profile_name,
	language = excluded.language,
	score = excluded.score,
	status = excluded.status,
	check_id = excluded.check_id,
	duration = excluded.duration,
	issue_count = excluded.issue_count,
	goals_json = excluded.goals_json,
	issues_json = excluded.issues_json,
	metrics_json = excluded.metrics_json`,
		rec.ID, rec.Timestamp.UTC().Format(timeLayout), rec.Content, string(rec.ContentType), nullString(rec.FileName),
		rec.ProfileID, rec.ProfileName, rec.Language,
		rec.Score, string(rec.Status), nullString(rec.CheckID), rec.DurationMs, len(rec.Issues),
		goals, issues, metrics,
	)
	if err != nil {
		return fmt.Errorf("saving record %s: %w", rec.ID, err)
	}
	return nil
}

func marshalList[T any](items []T) (string, error) {
	if items == nil {
		return "[]", nil
	}
	data, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("encoding record: %w", err)
	}
	return string(data), nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
