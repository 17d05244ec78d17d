package checking

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/dshills/scribe/internal/check"
)

type serviceResult struct {
	ID      string             `json:"id"`
	Quality *serviceQuality    `json:"quality"`
	Goals   []check.GoalResult `json:"goals"`
	Issues  []check.Issue      `json:"issues"`
	Counts  *check.Counts      `json:"counts"`
}

type serviceQuality struct {
	Score        float64            `json:"score"`
	Status       string             `json:"status"`
	ScoresByGoal []check.GoalResult `json:"scoresByGoal"`
	Metrics      []check.Metric     `json:"metrics"`
}

// toResult converts a completed check body into a Result. The result is
// read from "data" when present, otherwise from the root object, and the
// raw body is kept as debug output. Issue HTML is sanitized since callers
// may render it.
func (c *Client) toResult(body []byte) (*check.Result, error) {
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("parsing check result: %w", err)
	}
	raw := envelope.Data
	if len(raw) == 0 || string(raw) == "null" {
		raw = body
	}

	var sr serviceResult
	if err := json.Unmarshal(raw, &sr); err != nil {
		return nil, fmt.Errorf("parsing check result: %w", err)
	}

	result := &check.Result{
		ID:      sr.ID,
		Status:  "unknown",
		Goals:   sr.Goals,
		Issues:  sr.Issues,
		Metrics: []check.Metric{},
		Counts:  sr.Counts,
		Debug:   &check.Debug{Response: json.RawMessage(body)},
	}
	if q := sr.Quality; q != nil {
		result.Score = int(math.Round(q.Score))
		if q.Status != "" {
			result.Status = q.Status
		}
		if len(result.Goals) == 0 {
			result.Goals = q.ScoresByGoal
		}
		if q.Metrics != nil {
			result.Metrics = q.Metrics
		}
	}
	if result.Goals == nil {
		result.Goals = []check.GoalResult{}
	}
	if result.Issues == nil {
		result.Issues = []check.Issue{}
	}
	if result.Counts == nil {
		result.Counts = &check.Counts{}
	}
	for i := range result.Issues {
		is := &result.Issues[i]
		is.DisplayNameHTML = c.policy.Sanitize(is.DisplayNameHTML)
		is.GuidanceHTML = c.policy.Sanitize(is.GuidanceHTML)
	}
	return result, nil
}
