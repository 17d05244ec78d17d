package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dshills/scribe/internal/check"
	"github.com/dshills/scribe/internal/checking"
)

// Remote runs checks through a scribe HTTP API.
type Remote struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewRemote creates a backend for the API at baseURL, authenticating with
// token. A nil client gets a two minute timeout.
func NewRemote(baseURL, token string, client *http.Client) *Remote {
	if client == nil {
		client = &http.Client{Timeout: 120 * time.Second}
	}
	return &Remote{baseURL: strings.TrimRight(baseURL, "/"), token: token, client: client}
}

// submitResponse covers both submit shapes: the processing answer at the
// top level, and a finished check under data.
type submitResponse struct {
	CheckID string            `json:"checkId"`
	Status  string            `json:"status"`
	Links   map[string]string `json:"links"`
	Debug   *check.Debug      `json:"debug"`
	Data    json.RawMessage   `json:"data"`
}

type llmSubmitData struct {
	Status string        `json:"status"`
	Result *check.Result `json:"result"`
	Debug  *check.Debug  `json:"debug"`
}

// Submit posts req to the submit endpoint, or llm-submit for LLM requests.
func (r *Remote) Submit(ctx context.Context, req check.Request) (check.Submission, error) {
	path := "/api/checking/submit"
	if req.IsLLM() {
		path = "/api/checking/llm-submit"
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return check.Submission{}, fmt.Errorf("marshaling check request: %w", err)
	}

	_, body, err := r.do(ctx, http.MethodPost, path, payload)
	if err != nil {
		return check.Submission{}, err
	}

	var resp submitResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return check.Submission{}, fmt.Errorf("parsing submit response: %w", err)
	}
	sub := check.Submission{CheckID: resp.CheckID, Links: resp.Links, Debug: resp.Debug}
	if len(resp.Data) == 0 || string(resp.Data) == "null" {
		return sub, nil
	}

	if req.IsLLM() {
		var data llmSubmitData
		if err := json.Unmarshal(resp.Data, &data); err != nil {
			return check.Submission{}, fmt.Errorf("parsing submit result: %w", err)
		}
		if data.Result != nil {
			if data.Debug != nil {
				data.Result.Debug = data.Debug
			}
			sub.CheckID = data.Result.ID
			sub.Result = data.Result
			sub.Debug = data.Result.Debug
		}
		return sub, nil
	}

	var result check.Result
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return check.Submission{}, fmt.Errorf("parsing submit result: %w", err)
	}
	sub.Result = &result
	return sub, nil
}

// Poll reads the state of a check submitted through the API.
func (r *Remote) Poll(ctx context.Context, checkID string) (check.PollResult, error) {
	_, body, err := r.do(ctx, http.MethodGet, "/api/checking/poll/"+url.PathEscape(checkID), nil)
	if err != nil {
		return check.PollResult{}, err
	}
	var resp struct {
		check.PollResult
		RetryAfter int `json:"retryAfter"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return check.PollResult{}, fmt.Errorf("parsing poll response: %w", err)
	}
	pr := resp.PollResult
	pr.RetryAfter = time.Duration(resp.RetryAfter) * time.Second
	if pr.Status == check.PollCompleted {
		pr.Progress = 100
	}
	return pr, nil
}

// do sends one authenticated request. Non-2xx answers are returned as
// *checking.APIError built from the API's error envelope.
func (r *Remote) do(ctx context.Context, method, path string, payload []byte) (*http.Response, []byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+path, reader)
	if err != nil {
		return nil, nil, fmt.Errorf("creating request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+r.token)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp, body, envelopeError(resp.StatusCode, body)
	}
	return resp, body, nil
}

func envelopeError(status int, body []byte) *checking.APIError {
	var envelope struct {
		Error *struct {
			Message    string          `json:"message"`
			Code       string          `json:"code"`
			Details    json.RawMessage `json:"details"`
			RetryAfter int             `json:"retryAfter"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || envelope.Error == nil {
		return &checking.APIError{Code: "SERVER_ERROR", Message: http.StatusText(status), Status: status}
	}
	e := envelope.Error
	return &checking.APIError{
		Code:       e.Code,
		Message:    e.Message,
		Status:     status,
		RetryAfter: e.RetryAfter,
		Details:    e.Details,
	}
}
