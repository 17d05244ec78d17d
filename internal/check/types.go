package check

import (
	"encoding/json"
	"time"
)

// ContentType distinguishes uploaded files from pasted text.
type ContentType string

const (
	ContentText ContentType = "text"
	ContentFile ContentType = "file"
)

// Provider selects the checking engine for a single request.
type Provider string

const (
	ProviderNative Provider = "native"
	ProviderLLM    Provider = "llm"
)

// ParseProvider maps user input to a Provider. "acrolinx" and the empty
// string both select the native checking service.
func ParseProvider(s string) Provider {
	switch s {
	case "llm":
		return ProviderLLM
	default:
		return ProviderNative
	}
}

// Status is the lifecycle state of a persisted check record.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Request is a single user-initiated check. It is not modified after
// submission.
type Request struct {
	Content     string      `json:"content"`
	ContentType ContentType `json:"contentType"`
	ProfileID   string      `json:"guidanceProfileId"`
	ProfileName string      `json:"guidanceProfileName,omitempty"`
	LanguageID  string      `json:"languageId"`
	FileName    string      `json:"fileName,omitempty"`
	Model       string      `json:"model,omitempty"`
	Provider    Provider    `json:"provider,omitempty"`
	// SystemPrompt replaces the built-in analysis instructions on the LLM path.
	SystemPrompt string `json:"systemPrompt,omitempty"`
}

// IsLLM reports whether the request targets an LLM provider.
func (r Request) IsLLM() bool {
	return r.Provider == ProviderLLM
}

// GoalResult summarizes the issues found for one quality goal.
type GoalResult struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Color       string `json:"color"`
	Scoring     string `json:"scoring"`
	Issues      int    `json:"issues"`
}

// Metric is a per-goal score.
type Metric struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

// Counts holds document-level tallies.
type Counts struct {
	Sentences    int `json:"sentences"`
	Words        int `json:"words"`
	Issues       int `json:"issues"`
	ScoredIssues int `json:"scoredIssues"`
}

// Debug carries raw request and response payloads for troubleshooting.
type Debug struct {
	Request       json.RawMessage `json:"request,omitempty"`
	Response      json.RawMessage `json:"response,omitempty"`
	Model         string          `json:"model,omitempty"`
	Provider      string          `json:"provider,omitempty"`
	ContentLength int             `json:"contentLength,omitempty"`
	DurationMs    int64           `json:"duration,omitempty"`
}

// Result is the normalized outcome of a check, regardless of engine.
type Result struct {
	ID      string       `json:"id"`
	Score   int          `json:"score"`
	Status  string       `json:"status"`
	Goals   []GoalResult `json:"goals"`
	Issues  []Issue      `json:"issues"`
	Metrics []Metric     `json:"metrics,omitempty"`
	Counts  *Counts      `json:"counts,omitempty"`
	Debug   *Debug       `json:"debug,omitempty"`
}

// Record is a persisted check attempt.
type Record struct {
	ID          string       `json:"id"`
	Timestamp   time.Time    `json:"timestamp"`
	Content     string       `json:"content"`
	ContentType ContentType  `json:"contentType"`
	FileName    string       `json:"fileName,omitempty"`
	ProfileID   string       `json:"guidanceProfileId"`
	ProfileName string       `json:"guidanceProfileName"`
	Language    string       `json:"language"`
	Status      Status       `json:"status"`
	CheckID     string       `json:"checkId,omitempty"`
	Score       *int         `json:"score,omitempty"`
	DurationMs  *int64       `json:"duration,omitempty"`
	Issues      []Issue      `json:"issues"`
	Goals       []GoalResult `json:"goals,omitempty"`
	Metrics     []Metric     `json:"metrics,omitempty"`
}

// Application limits.
const (
	MaxFileSize  = 10 * 1024 * 1024
	CheckTimeout = 5 * time.Minute
	PollInterval = 2 * time.Second
	HistoryLimit = 1000
)

// SupportedFormats lists the file extensions accepted for upload.
var SupportedFormats = []string{"txt", "md", "html", "xml", "json", "docx", "pdf"}
