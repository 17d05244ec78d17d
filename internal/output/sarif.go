package output

import (
	"encoding/json"
	"fmt"
	"io"
)

// SARIFWriter outputs issues in SARIF v2.1.0 format, one rule per goal.
type SARIFWriter struct{}

func (s *SARIFWriter) Write(w io.Writer, report *Report) error {
	sarif := buildSARIF(report)
	data, err := json.MarshalIndent(sarif, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling SARIF: %w", err)
	}
	_, err = w.Write(data)
	if err != nil {
		return fmt.Errorf("writing SARIF: %w", err)
	}
	_, err = fmt.Fprintln(w)
	return err
}

// SARIF schema types (v2.1.0)

type sarifLog struct {
	Version string     `json:"version"`
	Schema  string     `json:"$schema"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool       sarifTool      `json:"tool"`
	Results    []sarifResult  `json:"results"`
	Properties *sarifRunProps `json:"properties,omitempty"`
}

type sarifRunProps struct {
	Score int `json:"score"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name           string      `json:"name"`
	Version        string      `json:"version"`
	InformationURI string      `json:"informationUri"`
	Rules          []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID               string             `json:"id"`
	Name             string             `json:"name"`
	ShortDescription sarifMessage       `json:"shortDescription"`
	DefaultConfig    sarifDefaultConfig `json:"defaultConfiguration"`
}

type sarifDefaultConfig struct {
	Level string `json:"level"`
}

type sarifResult struct {
	RuleID              string            `json:"ruleId"`
	Level               string            `json:"level"`
	Message             sarifMessage      `json:"message"`
	Locations           []sarifLocation   `json:"locations,omitempty"`
	Fixes               []sarifFix        `json:"fixes,omitempty"`
	PartialFingerprints map[string]string `json:"partialFingerprints,omitempty"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
	Region           sarifRegion           `json:"region"`
}

type sarifArtifactLocation struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	StartLine   int           `json:"startLine"`
	StartColumn int           `json:"startColumn"`
	EndLine     int           `json:"endLine"`
	EndColumn   int           `json:"endColumn"`
	CharOffset  int           `json:"charOffset"`
	CharLength  int           `json:"charLength"`
	Snippet     *sarifMessage `json:"snippet,omitempty"`
}

type sarifFix struct {
	Description sarifMessage `json:"description"`
}

func buildSARIF(report *Report) sarifLog {
	res := report.Result
	content := []rune(report.Content)
	uri := report.Source
	if uri == "" {
		uri = "stdin"
	}

	rules := []sarifRule{}
	results := []sarifResult{}
	for _, g := range groupByGoal(res) {
		if len(g.Issues) == 0 {
			continue
		}
		rules = append(rules, sarifRule{
			ID:               ruleID(g.Goal.ID),
			Name:             goalName(g.Goal),
			ShortDescription: sarifMessage{Text: goalName(g.Goal) + " issues"},
			DefaultConfig:    sarifDefaultConfig{Level: issueLevel(g.Goal.Scoring)},
		})

		for _, is := range g.Issues {
			msg := issueMessage(is)
			if msg == "" {
				msg = fmt.Sprintf("%s: %q", goalName(g.Goal), is.DisplaySurface)
			}
			result := sarifResult{
				RuleID:  ruleID(g.Goal.ID),
				Level:   issueLevel(is.IssueType),
				Message: sarifMessage{Text: msg},
			}
			if start, end, ok := locate(content, is); ok {
				offset, length := is.Position()
				result.Locations = []sarifLocation{{
					PhysicalLocation: sarifPhysicalLocation{
						ArtifactLocation: sarifArtifactLocation{URI: uri},
						Region: sarifRegion{
							StartLine:   start.Line,
							StartColumn: start.Column,
							EndLine:     end.Line,
							EndColumn:   end.Column,
							CharOffset:  offset,
							CharLength:  length,
							Snippet:     &sarifMessage{Text: is.DisplaySurface},
						},
					},
				}}
				result.PartialFingerprints = map[string]string{"issueHash": is.PositionalInformation.Hashes.Issue}
			}
			for _, sugg := range suggestionList(is) {
				result.Fixes = append(result.Fixes, sarifFix{Description: sarifMessage{Text: "Replace with " + sugg}})
			}
			results = append(results, result)
		}
	}

	return sarifLog{
		Version: "2.1.0",
		Schema:  "https://raw.githubusercontent.com/oasis-tcs/sarif-spec/main/sarif-2.1/schema/sarif-schema-2.1.0.json",
		Runs: []sarifRun{
			{
				Tool: sarifTool{
					Driver: sarifDriver{
						Name:           "scribe",
						Version:        report.Version,
						InformationURI: "https://github.com/dshills/scribe",
						Rules:          rules,
					},
				},
				Results:    results,
				Properties: &sarifRunProps{Score: res.Score},
			},
		},
	}
}

// issueLevel maps an issue type or goal scoring to a SARIF level.
func issueLevel(kind string) string {
	switch kind {
	case "error", "high":
		return "error"
	case "warning", "medium":
		return "warning"
	default:
		return "note"
	}
}

func ruleID(goalID string) string {
	return "scribe/" + goalID
}
