package check

// Issue is a single flagged span in the Acrolinx result shape.
type Issue struct {
	GoalID                string                 `json:"goalId"`
	TargetGuidelineID     string                 `json:"targetGuidelineId"`
	GuidelineID           string                 `json:"guidelineId"`
	InternalName          string                 `json:"internalName"`
	DisplayNameHTML       string                 `json:"displayNameHtml"`
	GuidanceHTML          string                 `json:"guidanceHtml"`
	DisplaySurface        string                 `json:"displaySurface"`
	IssueType             string                 `json:"issueType"`
	Scoring               string                 `json:"scoring"`
	Suggestions           []Suggestion           `json:"suggestions,omitempty"`
	PositionalInformation *PositionalInformation `json:"positionalInformation,omitempty"`
}

// Suggestion is a proposed replacement surface.
type Suggestion struct {
	Surface    string `json:"surface"`
	IsAddition bool   `json:"isAddition,omitempty"`
	IsDeletion bool   `json:"isDeletion,omitempty"`
}

// PositionalInformation locates an issue in the checked content.
type PositionalInformation struct {
	Hashes  Hashes  `json:"hashes"`
	Matches []Match `json:"matches"`
}

// Hashes identify an issue across re-checks of the same content.
type Hashes struct {
	Issue       string `json:"issue"`
	Environment string `json:"environment"`
	Index       string `json:"index"`
}

// Match is one contiguous span of an issue. Begin and end are character
// offsets into the original, unchunked content.
type Match struct {
	ExtractedPart  string `json:"extractedPart"`
	ExtractedBegin int    `json:"extractedBegin"`
	ExtractedEnd   int    `json:"extractedEnd"`
	OriginalPart   string `json:"originalPart"`
	OriginalBegin  int    `json:"originalBegin"`
	OriginalEnd    int    `json:"originalEnd"`
}

// Position returns the offset and length of the issue's first match.
// Issues without positional information sort first with zero length.
func (i Issue) Position() (offset, length int) {
	if i.PositionalInformation == nil || len(i.PositionalInformation.Matches) == 0 {
		return 0, 0
	}
	m := i.PositionalInformation.Matches[0]
	return m.OriginalBegin, m.OriginalEnd - m.OriginalBegin
}

// Shifted returns a copy of the issue with every match moved by delta.
func (i Issue) Shifted(delta int) Issue {
	if i.PositionalInformation == nil {
		return i
	}
	pi := *i.PositionalInformation
	pi.Matches = make([]Match, len(i.PositionalInformation.Matches))
	for n, m := range i.PositionalInformation.Matches {
		m.ExtractedBegin += delta
		m.ExtractedEnd += delta
		m.OriginalBegin += delta
		m.OriginalEnd += delta
		pi.Matches[n] = m
	}
	i.PositionalInformation = &pi
	return i
}

// IsScored reports whether the issue counts toward the score.
func (i Issue) IsScored() bool {
	return i.IssueType == "error" || i.IssueType == "warning"
}
