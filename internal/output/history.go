package output

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/dshills/scribe/internal/check"
	"github.com/dshills/scribe/internal/history"
)

// WriteHistory prints stored checks as a table, or as JSON when format is
// "json".
func WriteHistory(w io.Writer, records []check.Record, format string) error {
	if format == "json" {
		return writeJSON(w, records)
	}
	ew := &errWriter{w: w}
	if len(records) == 0 {
		ew.println("No checks recorded.")
		return ew.err
	}
	ew.printf("%-36s  %-16s  %-9s  %5s  %-20s  %s\n", "ID", "TIME", "STATUS", "SCORE", "PROFILE", "DOCUMENT")
	for _, r := range records {
		score := "-"
		if r.Score != nil {
			score = fmt.Sprintf("%d", *r.Score)
		}
		ew.printf("%-36s  %-16s  %-9s  %5s  %-20s  %s\n",
			r.ID,
			r.Timestamp.Local().Format("2006-01-02 15:04"),
			r.Status,
			score,
			truncate(r.ProfileName, 20),
			truncate(documentName(r), 40),
		)
	}
	return ew.err
}

// WriteRecord prints one stored check with its issues.
func WriteRecord(w io.Writer, r *check.Record, format string) error {
	if format == "json" {
		return writeJSON(w, r)
	}
	report := &Report{
		Source:  documentName(*r),
		Content: r.Content,
		Profile: r.ProfileName,
		Result: &check.Result{
			ID:      r.CheckID,
			Status:  string(r.Status),
			Goals:   r.Goals,
			Issues:  r.Issues,
			Metrics: r.Metrics,
		},
	}
	if r.Score != nil {
		report.Result.Score = *r.Score
	}
	ew := &errWriter{w: w}
	ew.printf("Record %s, checked %s\n\n", r.ID, r.Timestamp.Local().Format("2006-01-02 15:04:05"))
	if ew.err != nil {
		return ew.err
	}
	return (&TextWriter{}).Write(w, report)
}

// WriteStats prints aggregate history statistics.
func WriteStats(w io.Writer, stats history.Stats, format string) error {
	if format == "json" {
		return writeJSON(w, stats)
	}
	ew := &errWriter{w: w}
	ew.printf("Total checks:  %d\n", stats.TotalChecks)
	ew.printf("Average score: %d\n", stats.AverageScore)
	if len(stats.ByProfile) > 0 {
		ew.println("\nChecks by profile:")
		for _, p := range stats.ByProfile {
			name := p.Profile
			if name == "" {
				name = "Unknown"
			}
			ew.printf("  %-30s %d\n", name, p.Count)
		}
	}
	return ew.err
}

func documentName(r check.Record) string {
	if r.FileName != "" {
		return r.FileName
	}
	return strings.Join(strings.Fields(r.Content), " ")
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n-3]) + "..."
}
