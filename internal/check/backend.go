package check

import "time"

// Submission is what a backend returns for a submitted check: either an
// immediate Result, or a CheckID to poll.
type Submission struct {
	CheckID string            `json:"checkId,omitempty"`
	Result  *Result           `json:"result,omitempty"`
	Links   map[string]string `json:"links,omitempty"`
	Debug   *Debug            `json:"debug,omitempty"`
}

// PollStatus is the state of an asynchronous check.
type PollStatus string

const (
	PollProcessing PollStatus = "processing"
	PollCompleted  PollStatus = "completed"
	PollFailed     PollStatus = "failed"
)

// ErrorInfo is an error reported inside a successful exchange.
type ErrorInfo struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// PollResult is one observation of an asynchronous check.
type PollResult struct {
	Status   PollStatus `json:"status"`
	Progress int        `json:"progress,omitempty"`
	Message  string     `json:"message,omitempty"`
	// RetryAfter is how long the service asks callers to wait before the
	// next poll. Zero means no preference.
	RetryAfter time.Duration `json:"-"`
	Result     *Result       `json:"data,omitempty"`
	Error      *ErrorInfo    `json:"error,omitempty"`
}

// LLMCheckPrefix starts the ids of checks produced by an LLM. Those checks
// complete synchronously and are never polled.
const LLMCheckPrefix = "llm-check-"
