package output

import (
	"bytes"
	"encoding/json"
	"testing"
)

func decodeSARIF(t *testing.T, report *Report) sarifLog {
	t.Helper()
	var buf bytes.Buffer
	if err := (&SARIFWriter{}).Write(&buf, report); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	var sarif sarifLog
	if err := json.Unmarshal(buf.Bytes(), &sarif); err != nil {
		t.Fatalf("Invalid SARIF JSON: %v", err)
	}
	return sarif
}

func TestSARIFWriter_Empty(t *testing.T) {
	sarif := decodeSARIF(t, emptyReport())
	if sarif.Version != "2.1.0" {
		t.Errorf("Version = %q, want %q", sarif.Version, "2.1.0")
	}
	if len(sarif.Runs) != 1 {
		t.Fatalf("Runs count = %d, want 1", len(sarif.Runs))
	}
	if len(sarif.Runs[0].Results) != 0 {
		t.Errorf("Results count = %d, want 0", len(sarif.Runs[0].Results))
	}
	if len(sarif.Runs[0].Tool.Driver.Rules) != 0 {
		t.Errorf("Rules count = %d, want 0", len(sarif.Runs[0].Tool.Driver.Rules))
	}
}

func TestSARIFWriter_WithIssues(t *testing.T) {
	sarif := decodeSARIF(t, sampleReport())
	run := sarif.Runs[0]

	if run.Tool.Driver.Name != "scribe" || run.Tool.Driver.Version != "1.2.3" {
		t.Errorf("driver = %s %s", run.Tool.Driver.Name, run.Tool.Driver.Version)
	}
	if run.Properties == nil || run.Properties.Score != 72 {
		t.Errorf("run properties = %+v, want score 72", run.Properties)
	}
	if len(run.Tool.Driver.Rules) != 2 {
		t.Fatalf("Rules count = %d, want 2", len(run.Tool.Driver.Rules))
	}
	if got := run.Tool.Driver.Rules[0].ID; got != "scribe/spelling-grammar" {
		t.Errorf("rule id = %q, want scribe/spelling-grammar", got)
	}
	if got := run.Tool.Driver.Rules[1].DefaultConfig.Level; got != "warning" {
		t.Errorf("clarity rule level = %q, want warning", got)
	}
	if len(run.Results) != 2 {
		t.Fatalf("Results count = %d, want 2", len(run.Results))
	}

	first := run.Results[0]
	if first.Level != "error" {
		t.Errorf("Level = %q, want error", first.Level)
	}
	if first.Message.Text != "Misspelled word Teh" {
		t.Errorf("Message = %q", first.Message.Text)
	}
	if len(first.Fixes) != 1 || first.Fixes[0].Description.Text != "Replace with The" {
		t.Errorf("Fixes = %+v", first.Fixes)
	}
	if first.PartialFingerprints["issueHash"] != "h-Teh" {
		t.Errorf("fingerprint = %q", first.PartialFingerprints["issueHash"])
	}

	second := run.Results[1]
	if second.Level != "note" {
		t.Errorf("Level = %q, want note", second.Level)
	}
	loc := second.Locations[0].PhysicalLocation
	if loc.ArtifactLocation.URI != "notes.md" {
		t.Errorf("URI = %q, want notes.md", loc.ArtifactLocation.URI)
	}
	r := loc.Region
	if r.StartLine != 2 || r.StartColumn != 9 || r.EndLine != 2 || r.EndColumn != 16 {
		t.Errorf("region = %+v, want 2:9-2:16", r)
	}
	if r.CharOffset != 29 || r.CharLength != 7 {
		t.Errorf("char range = %d+%d, want 29+7", r.CharOffset, r.CharLength)
	}
}

func TestIssueLevel(t *testing.T) {
	tests := map[string]string{
		"error":      "error",
		"warning":    "warning",
		"suggestion": "note",
		"high":       "error",
		"medium":     "warning",
		"":           "note",
	}
	for in, want := range tests {
		if got := issueLevel(in); got != want {
			t.Errorf("issueLevel(%q) = %q, want %q", in, got, want)
		}
	}
}
