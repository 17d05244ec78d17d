package textcheck

import "strings"

// Goal is a quality dimension issues are grouped under.
type Goal struct {
	ID          string
	DisplayName string
	Color       string
	Scoring     string
}

// Goals lists every goal in report order.
var Goals = []Goal{
	{ID: "clarity", DisplayName: "Clarity", Color: "#1E88E5", Scoring: "high"},
	{ID: "consistency", DisplayName: "Consistency", Color: "#43A047", Scoring: "medium"},
	{ID: "inclusive-language", DisplayName: "Inclusive Language", Color: "#E53935", Scoring: "high"},
	{ID: "scannability", DisplayName: "Scannability", Color: "#FB8C00", Scoring: "medium"},
	{ID: "spelling-grammar", DisplayName: "Spelling and Grammar", Color: "#8E24AA", Scoring: "high"},
	{ID: "terminology", DisplayName: "Terminology", Color: "#00ACC1", Scoring: "medium"},
}

// NormalizeGoalID lowercases id and turns underscores and spaces into
// hyphens, so "SPELLING_GRAMMAR" becomes "spelling-grammar".
func NormalizeGoalID(id string) string {
	id = strings.ToLower(strings.TrimSpace(id))
	return strings.NewReplacer("_", "-", " ", "-").Replace(id)
}

// LookupGoal finds a goal by any spelling of its id.
func LookupGoal(id string) (Goal, bool) {
	norm := NormalizeGoalID(id)
	for _, g := range Goals {
		if g.ID == norm {
			return g, true
		}
	}
	return Goal{}, false
}

// goalFor is LookupGoal with unknown ids mapped to clarity.
func goalFor(id string) Goal {
	if g, ok := LookupGoal(id); ok {
		return g
	}
	return Goals[0]
}

func goalRank(id string) int {
	for i, g := range Goals {
		if g.ID == id {
			return i
		}
	}
	return len(Goals)
}
