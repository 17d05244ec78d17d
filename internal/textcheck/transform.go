package textcheck

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf16"

	"github.com/dshills/scribe/internal/check"
)

// ErrNoJSON is returned when a completion contains no JSON object.
var ErrNoJSON = errors.New("no JSON found in response")

const fallbackScore = 85

type llmIssue struct {
	Goal         string   `json:"goal"`
	Description  string   `json:"description"`
	Suggestions  []string `json:"suggestions"`
	Severity     string   `json:"severity"`
	OriginalText string   `json:"originalText"`
	StartOffset  *int     `json:"startOffset"`
	EndOffset    *int     `json:"endOffset"`
}

type llmResponse struct {
	Issues       []llmIssue         `json:"issues"`
	OverallScore float64            `json:"overallScore"`
	GoalScores   map[string]float64 `json:"goalScores"`
	Counts       struct {
		Sentences float64 `json:"sentences"`
		Words     float64 `json:"words"`
		Issues    float64 `json:"issues"`
	} `json:"counts"`
}

// parseResponse decodes the span from the first '{' to the last '}' of text,
// tolerating prose or code fences around it.
func parseResponse(text string) (*llmResponse, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, ErrNoJSON
	}
	var resp llmResponse
	if err := json.Unmarshal([]byte(text[start:end+1]), &resp); err != nil {
		return nil, fmt.Errorf("parsing analysis JSON: %w", err)
	}
	return &resp, nil
}

// toResult converts a parsed analysis of content into a check result.
func toResult(resp *llmResponse, content string, now time.Time) *check.Result {
	runes := []rune(content)
	env := hashString(content)

	issues := make([]check.Issue, len(resp.Issues))
	for i, li := range resp.Issues {
		issues[i] = buildIssue(li, i, runes, env)
	}

	return &check.Result{
		ID:      checkID(now),
		Score:   clampScore(resp.OverallScore),
		Status:  string(check.StatusCompleted),
		Goals:   goalResults(issues),
		Issues:  issues,
		Metrics: projectMetrics(resp.GoalScores),
		Counts: &check.Counts{
			Sentences:    int(resp.Counts.Sentences),
			Words:        int(resp.Counts.Words),
			Issues:       len(issues),
			ScoredIssues: scoredIssues(issues),
		},
	}
}

func buildIssue(li llmIssue, index int, content []rune, envHash string) check.Issue {
	goal := goalFor(li.Goal)
	begin, end := locate(li, content)

	suggestions := make([]check.Suggestion, 0, len(li.Suggestions))
	for _, s := range li.Suggestions {
		suggestions = append(suggestions, check.Suggestion{Surface: s})
	}

	is := check.Issue{
		GoalID:          goal.ID,
		DisplayNameHTML: escapeHTML(li.Description),
		GuidanceHTML:    guidanceHTML(li),
		DisplaySurface:  li.OriginalText,
		IssueType:       issueType(li.Severity),
		Scoring:         goal.Scoring,
		Suggestions:     suggestions,
		PositionalInformation: &check.PositionalInformation{
			Hashes: check.Hashes{
				Issue:       hashString(li.Goal + "-" + li.Description),
				Environment: envHash,
			},
			Matches: []check.Match{{
				ExtractedPart:  li.OriginalText,
				ExtractedBegin: begin,
				ExtractedEnd:   end,
				OriginalPart:   li.OriginalText,
				OriginalBegin:  begin,
				OriginalEnd:    end,
			}},
		},
	}
	setIndex(&is, index)
	return is
}

// setIndex fills the fields derived from an issue's position in the list.
func setIndex(is *check.Issue, index int) {
	is.TargetGuidelineID = fmt.Sprintf("%s-%d", is.GoalID, index)
	is.GuidelineID = is.GoalID + "-guideline"
	is.InternalName = fmt.Sprintf("%s_issue_%d", is.GoalID, index)
	if is.PositionalInformation != nil {
		is.PositionalInformation.Hashes.Index = strconv.Itoa(index)
	}
}

// locate clamps the reported span into content. When the model omits
// offsets, the first occurrence of originalText is used instead.
func locate(li llmIssue, content []rune) (begin, end int) {
	n := len(content)
	if li.StartOffset == nil || li.EndOffset == nil {
		if li.OriginalText == "" {
			return 0, 0
		}
		idx := strings.Index(string(content), li.OriginalText)
		if idx < 0 {
			return 0, 0
		}
		begin = len([]rune(string(content)[:idx]))
		return begin, begin + len([]rune(li.OriginalText))
	}
	begin = min(max(*li.StartOffset, 0), n)
	end = min(max(*li.EndOffset, begin), n)
	return begin, end
}

func issueType(severity string) string {
	switch strings.ToLower(severity) {
	case "error":
		return "error"
	case "warning":
		return "warning"
	default:
		return "suggestion"
	}
}

func goalResults(issues []check.Issue) []check.GoalResult {
	counts := make(map[string]int)
	for _, is := range issues {
		counts[is.GoalID]++
	}
	out := make([]check.GoalResult, len(Goals))
	for i, g := range Goals {
		out[i] = check.GoalResult{
			ID:          g.ID,
			DisplayName: g.DisplayName,
			Color:       g.Color,
			Scoring:     g.Scoring,
			Issues:      counts[g.ID],
		}
	}
	return out
}

// projectMetrics turns reported goal scores into metrics with normalized
// ids, known goals first in report order.
func projectMetrics(scores map[string]float64) []check.Metric {
	metrics := make([]check.Metric, 0, len(scores))
	for id, score := range scores {
		metrics = append(metrics, check.Metric{ID: NormalizeGoalID(id), Score: score})
	}
	return sortMetrics(metrics)
}

func sortMetrics(metrics []check.Metric) []check.Metric {
	sort.SliceStable(metrics, func(i, j int) bool {
		ri, rj := goalRank(metrics[i].ID), goalRank(metrics[j].ID)
		if ri != rj {
			return ri < rj
		}
		return metrics[i].ID < metrics[j].ID
	})
	return metrics
}

func scoredIssues(issues []check.Issue) int {
	var n int
	for _, is := range issues {
		if is.IsScored() {
			n++
		}
	}
	return n
}

func clampScore(v float64) int {
	return int(math.Round(math.Min(math.Max(v, 0), 100)))
}

func checkID(now time.Time) string {
	return fmt.Sprintf("%s%d", check.LLMCheckPrefix, now.UnixMilli())
}

var (
	whitespaceRe  = regexp.MustCompile(`\s+`)
	terminatorsRe = regexp.MustCompile(`[.!?]+`)
)

// countWords is the number of pieces left by splitting on whitespace runs.
func countWords(content string) int {
	return len(whitespaceRe.Split(content, -1))
}

// countSentences is the number of non-blank pieces left by splitting on runs
// of terminal punctuation.
func countSentences(content string) int {
	var n int
	for _, s := range terminatorsRe.Split(content, -1) {
		if strings.TrimSpace(s) != "" {
			n++
		}
	}
	return n
}

// fallbackResult is the result reported when no analysis could be obtained.
func fallbackResult(content string, now time.Time) *check.Result {
	metrics := make([]check.Metric, len(Goals))
	for i, g := range Goals {
		metrics[i] = check.Metric{ID: g.ID, Score: fallbackScore}
	}
	return &check.Result{
		ID:      checkID(now),
		Score:   fallbackScore,
		Status:  string(check.StatusCompleted),
		Goals:   goalResults(nil),
		Issues:  []check.Issue{},
		Metrics: metrics,
		Counts: &check.Counts{
			Sentences: countSentences(content),
			Words:     countWords(content),
		},
	}
}

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#039;",
)

func escapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}

func guidanceHTML(li llmIssue) string {
	var b strings.Builder
	b.WriteString(`<div class="issue-guidance"><p>`)
	b.WriteString(escapeHTML(li.Description))
	b.WriteString("</p>")
	if len(li.Suggestions) > 0 {
		b.WriteString("<p><strong>Suggestions:</strong></p><ul>")
		for _, s := range li.Suggestions {
			b.WriteString("<li>" + escapeHTML(s) + "</li>")
		}
		b.WriteString("</ul>")
	}
	b.WriteString("</div>")
	return b.String()
}

// hashString is the 31-multiplier string hash over UTF-16 code units, as
// the absolute value in hex. It is stable across runs and platforms.
func hashString(s string) string {
	var h int32
	for _, c := range utf16.Encode([]rune(s)) {
		h = h*31 + int32(c)
	}
	v := int64(h)
	if v < 0 {
		v = -v
	}
	return strconv.FormatInt(v, 16)
}
