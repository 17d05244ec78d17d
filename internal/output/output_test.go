package output

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dshills/scribe/internal/check"
)

const sampleContent = "Teh report is ready.\nWe will utilize the new API."

func match(begin, end int, part string) *check.PositionalInformation {
	return &check.PositionalInformation{
		Hashes:  check.Hashes{Issue: "h-" + part},
		Matches: []check.Match{{OriginalPart: part, OriginalBegin: begin, OriginalEnd: end, ExtractedPart: part, ExtractedBegin: begin, ExtractedEnd: end}},
	}
}

func sampleReport() *Report {
	return &Report{
		Source:   "notes.md",
		Content:  sampleContent,
		Provider: "openai",
		Model:    "gpt-4o-mini",
		Profile:  "Tech Docs",
		Version:  "1.2.3",
		Duration: 1500 * time.Millisecond,
		Result: &check.Result{
			ID:     "llm-check-1",
			Score:  72,
			Status: "completed",
			Goals: []check.GoalResult{
				{ID: "spelling-grammar", DisplayName: "Spelling & Grammar", Color: "#E53935", Scoring: "high", Issues: 1},
				{ID: "clarity", DisplayName: "Clarity", Color: "#1E88E5", Scoring: "medium", Issues: 1},
			},
			Issues: []check.Issue{
				{
					GoalID:                "spelling-grammar",
					DisplayNameHTML:       "Misspelled word <b>Teh</b>",
					DisplaySurface:        "Teh",
					IssueType:             "error",
					Suggestions:           []check.Suggestion{{Surface: "The"}},
					PositionalInformation: match(0, 3, "Teh"),
				},
				{
					GoalID:                "clarity",
					GuidanceHTML:          "<p>Prefer <i>use</i> over utilize.</p>",
					DisplaySurface:        "utilize",
					IssueType:             "suggestion",
					Suggestions:           []check.Suggestion{{Surface: "use"}, {Surface: ""}},
					PositionalInformation: match(29, 36, "utilize"),
				},
			},
			Metrics: []check.Metric{{ID: "spelling-grammar", Score: 60}, {ID: "clarity", Score: 85}},
			Counts:  &check.Counts{Sentences: 2, Words: 10, Issues: 2, ScoredIssues: 1},
		},
	}
}

func emptyReport() *Report {
	return &Report{
		Result: &check.Result{ID: "c1", Score: 100, Status: "completed", Goals: []check.GoalResult{}, Issues: []check.Issue{}},
	}
}

func TestGetWriter(t *testing.T) {
	tests := []struct {
		format string
		want   string
	}{
		{"", "*output.TextWriter"},
		{"text", "*output.TextWriter"},
		{"json", "*output.JSONWriter"},
		{"markdown", "*output.MarkdownWriter"},
		{"md", "*output.MarkdownWriter"},
		{"sarif", "*output.SARIFWriter"},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			w, err := GetWriter(tt.format)
			if err != nil {
				t.Fatalf("GetWriter(%q) error: %v", tt.format, err)
			}
			if got := typeName(w); got != tt.want {
				t.Errorf("GetWriter(%q) = %s, want %s", tt.format, got, tt.want)
			}
		})
	}

	if _, err := GetWriter("xml"); err == nil {
		t.Error("GetWriter(xml) should fail")
	}
}

func typeName(w Writer) string {
	switch w.(type) {
	case *TextWriter:
		return "*output.TextWriter"
	case *JSONWriter:
		return "*output.JSONWriter"
	case *MarkdownWriter:
		return "*output.MarkdownWriter"
	case *SARIFWriter:
		return "*output.SARIFWriter"
	}
	return "unknown"
}

func TestWriteReport_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	if err := WriteReport(sampleReport(), "json", path); err != nil {
		t.Fatalf("WriteReport error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(data, []byte(`"id": "llm-check-1"`)) {
		t.Errorf("report file missing result id:\n%s", data)
	}
}

func TestLocate(t *testing.T) {
	content := []rune(sampleContent)
	is := sampleReport().Result.Issues[1]

	start, end, ok := locate(content, is)
	if !ok {
		t.Fatal("locate should find positioned issue")
	}
	if start != (position{Line: 2, Column: 9}) {
		t.Errorf("start = %+v, want 2:9", start)
	}
	if end != (position{Line: 2, Column: 16}) {
		t.Errorf("end = %+v, want 2:16", end)
	}

	if _, _, ok := locate(content, check.Issue{}); ok {
		t.Error("locate should fail without positional information")
	}
}

func TestLineCol_ClampsOffset(t *testing.T) {
	content := []rune("ab\ncd")
	if got := lineCol(content, -4); got != (position{1, 1}) {
		t.Errorf("lineCol(-4) = %+v", got)
	}
	if got := lineCol(content, 99); got != (position{2, 3}) {
		t.Errorf("lineCol(99) = %+v", got)
	}
}

func TestIssueMessage(t *testing.T) {
	issues := sampleReport().Result.Issues
	if got := issueMessage(issues[0]); got != "Misspelled word Teh" {
		t.Errorf("issueMessage = %q, want %q", got, "Misspelled word Teh")
	}
	if got := issueMessage(issues[1]); got != "Prefer use over utilize." {
		t.Errorf("issueMessage = %q, want %q", got, "Prefer use over utilize.")
	}
	if got := issueMessage(check.Issue{DisplayNameHTML: "a &amp; b"}); got != "a & b" {
		t.Errorf("issueMessage should unescape entities, got %q", got)
	}
}

func TestGroupByGoal(t *testing.T) {
	res := sampleReport().Result
	res.Issues = append(res.Issues, check.Issue{GoalID: "tone", DisplaySurface: "x"})

	groups := groupByGoal(res)
	if len(groups) != 3 {
		t.Fatalf("groups = %d, want 3", len(groups))
	}
	if groups[0].Goal.ID != "spelling-grammar" || groups[1].Goal.ID != "clarity" || groups[2].Goal.ID != "tone" {
		t.Errorf("group order = %s, %s, %s", groups[0].Goal.ID, groups[1].Goal.ID, groups[2].Goal.ID)
	}
	if groups[0].Score == nil || *groups[0].Score != 60 {
		t.Errorf("spelling score = %v, want 60", groups[0].Score)
	}
	if groups[2].Score != nil {
		t.Error("unlisted goal should have no score")
	}
	if groups[2].Goal.DisplayName != "tone" {
		t.Errorf("unlisted goal name = %q", groups[2].Goal.DisplayName)
	}
}

func TestWrapText(t *testing.T) {
	lines := wrapText(strings.Repeat("word ", 30), 20)
	for _, l := range lines {
		if len(l) > 20 {
			t.Errorf("line %q exceeds width", l)
		}
	}
	if len(lines) < 2 {
		t.Errorf("expected wrapping, got %d lines", len(lines))
	}
}
