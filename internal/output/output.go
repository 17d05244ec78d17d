package output

import (
	"fmt"
	"html"
	"io"
	"os"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/dshills/scribe/internal/check"
)

// Report is a finished check plus what was checked and how.
type Report struct {
	Result *check.Result
	// Source names the checked document: a file path, or "stdin".
	Source string
	// Content is the checked text. Issue offsets index into it as runes.
	Content  string
	Provider string
	Model    string
	Profile  string
	Version  string
	Duration time.Duration
}

// Writer writes a report in a specific format.
type Writer interface {
	Write(w io.Writer, report *Report) error
}

// Formats lists the supported output formats.
var Formats = []string{"text", "json", "markdown", "sarif"}

// GetWriter returns a writer for the specified format.
func GetWriter(format string) (Writer, error) {
	switch format {
	case "text", "":
		return &TextWriter{}, nil
	case "json":
		return &JSONWriter{}, nil
	case "markdown", "md":
		return &MarkdownWriter{}, nil
	case "sarif":
		return &SARIFWriter{}, nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

// WriteReport writes the report to the specified output (file path or stdout).
func WriteReport(report *Report, format, outPath string) error {
	writer, err := GetWriter(format)
	if err != nil {
		return err
	}

	var w io.Writer
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		w = f
	} else {
		w = os.Stdout
	}

	return writer.Write(w, report)
}

// errWriter wraps an io.Writer and captures the first error.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

func (ew *errWriter) println(s string) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintln(ew.w, s)
}

var plainPolicy = bluemonday.StrictPolicy()

// plainText strips markup from the HTML fields of an issue.
func plainText(s string) string {
	return strings.TrimSpace(html.UnescapeString(plainPolicy.Sanitize(s)))
}

// issueMessage is the human-readable description of an issue.
func issueMessage(is check.Issue) string {
	if msg := plainText(is.DisplayNameHTML); msg != "" {
		return msg
	}
	return plainText(is.GuidanceHTML)
}

func suggestionList(is check.Issue) []string {
	var out []string
	for _, s := range is.Suggestions {
		if s.Surface != "" {
			out = append(out, s.Surface)
		}
	}
	return out
}

// position is the 1-based line and column of a rune offset.
type position struct {
	Line, Column int
}

// locate converts the issue's first match to line and column positions in
// content. ok is false for issues without positional information.
func locate(content []rune, is check.Issue) (start, end position, ok bool) {
	if is.PositionalInformation == nil || len(is.PositionalInformation.Matches) == 0 {
		return position{}, position{}, false
	}
	offset, length := is.Position()
	return lineCol(content, offset), lineCol(content, offset+length), true
}

func lineCol(content []rune, offset int) position {
	offset = min(max(offset, 0), len(content))
	p := position{Line: 1, Column: 1}
	for _, r := range content[:offset] {
		if r == '\n' {
			p.Line++
			p.Column = 1
			continue
		}
		p.Column++
	}
	return p
}

// goalGroup is a goal and the issues reported under it.
type goalGroup struct {
	Goal   check.GoalResult
	Score  *float64
	Issues []check.Issue
}

// groupByGoal orders issues by the result's goal list. Issues under goals
// the result does not list follow in first-seen order.
func groupByGoal(res *check.Result) []goalGroup {
	index := make(map[string]int)
	var groups []goalGroup
	for _, g := range res.Goals {
		index[g.ID] = len(groups)
		groups = append(groups, goalGroup{Goal: g})
	}
	for _, is := range res.Issues {
		i, ok := index[is.GoalID]
		if !ok {
			i = len(groups)
			index[is.GoalID] = i
			groups = append(groups, goalGroup{Goal: check.GoalResult{ID: is.GoalID, DisplayName: is.GoalID}})
		}
		groups[i].Issues = append(groups[i].Issues, is)
	}
	for _, m := range res.Metrics {
		if i, ok := index[m.ID]; ok {
			score := m.Score
			groups[i].Score = &score
		}
	}
	return groups
}

func goalName(g check.GoalResult) string {
	if g.DisplayName != "" {
		return g.DisplayName
	}
	return g.ID
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
