package checking

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"github.com/dshills/scribe/internal/check"
)

// defaultRetryAfter is used when a processing check does not say when to
// poll again.
const defaultRetryAfter = 5 * time.Second

// Config holds the checking service connection settings.
type Config struct {
	BaseURL         string
	Token           string
	ClientSignature string
	ClientVersion   string
	HTTPClient      *http.Client
	Logger          *zap.Logger
}

// Client talks to the checking service REST API.
type Client struct {
	baseURL   string
	token     string
	signature string
	client    *http.Client
	logger    *zap.Logger
	policy    *bluemonday.Policy
}

// New creates a client. BaseURL and Token are required.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("checking service base URL is not configured (set ACROLINX_BASE_URL)")
	}
	if cfg.Token == "" {
		return nil, errors.New("checking service token is not configured (set ACROLINX_API_TOKEN)")
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 120 * time.Second}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		token:     cfg.Token,
		signature: cfg.ClientSignature + "; " + cfg.ClientVersion,
		client:    cfg.HTTPClient,
		logger:    cfg.Logger,
		policy:    bluemonday.UGCPolicy(),
	}, nil
}

// Token returns the configured service token.
func (c *Client) Token() string { return c.token }

// checkRequest is the body of POST /api/v1/checking/checks.
type checkRequest struct {
	Content         string   `json:"content"`
	ContentEncoding string   `json:"contentEncoding"`
	Document        document `json:"document"`
	GuidanceProfile string   `json:"guidanceProfileId"`
	LanguageID      string   `json:"languageId"`
	ReportTypes     []string `json:"reportTypes"`
	ContentFormat   string   `json:"contentFormat"`
	CheckType       string   `json:"checkType"`
}

type document struct {
	Reference string `json:"reference"`
}

// Submit sends req for checking. The service usually answers 202 with a
// check id to poll; a 200 carries the finished result.
func (c *Client) Submit(ctx context.Context, req check.Request) (check.Submission, error) {
	reference, format := check.InferFormat(req)
	encoding := "none"
	if req.ContentType == check.ContentFile {
		encoding = "base64"
	}
	body := checkRequest{
		Content:         req.Content,
		ContentEncoding: encoding,
		Document:        document{Reference: reference},
		GuidanceProfile: req.ProfileID,
		LanguageID:      req.LanguageID,
		ReportTypes:     []string{"scorecard", "extractedText"},
		ContentFormat:   format,
		CheckType:       "interactive",
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return check.Submission{}, fmt.Errorf("marshaling check request: %w", err)
	}

	resp, respBody, err := c.do(ctx, http.MethodPost, "/api/v1/checking/checks", payload)
	if err != nil {
		return check.Submission{}, err
	}
	debug := &check.Debug{Request: payload}

	switch {
	case resp.StatusCode == http.StatusAccepted:
		var accepted struct {
			Data struct {
				ID string `json:"id"`
			} `json:"data"`
			Links map[string]string `json:"links"`
		}
		if err := json.Unmarshal(respBody, &accepted); err != nil {
			return check.Submission{}, fmt.Errorf("parsing submit response: %w", err)
		}
		c.logger.Debug("check submitted",
			zap.String("checkId", accepted.Data.ID),
			zap.String("format", format),
			zap.Int("contentLength", len(req.Content)),
		)
		return check.Submission{CheckID: accepted.Data.ID, Links: accepted.Links, Debug: debug}, nil
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return check.Submission{}, mapError(resp, respBody)
	}

	result, err := c.toResult(respBody)
	if err != nil {
		return check.Submission{}, err
	}
	result.Debug.Request = payload
	return check.Submission{Result: result, Debug: debug}, nil
}

// Poll reads the state of a submitted check.
func (c *Client) Poll(ctx context.Context, checkID string) (check.PollResult, error) {
	resp, body, err := c.do(ctx, http.MethodGet, "/api/v1/checking/checks/"+url.PathEscape(checkID), nil)
	if err != nil {
		return check.PollResult{}, err
	}

	switch resp.StatusCode {
	case http.StatusAccepted:
		var processing struct {
			Progress struct {
				Percent    float64 `json:"percent"`
				Message    string  `json:"message"`
				RetryAfter float64 `json:"retryAfter"`
			} `json:"progress"`
		}
		if err := json.Unmarshal(body, &processing); err != nil {
			return check.PollResult{}, fmt.Errorf("parsing poll response: %w", err)
		}
		retryAfter := defaultRetryAfter
		if processing.Progress.RetryAfter > 0 {
			retryAfter = time.Duration(processing.Progress.RetryAfter * float64(time.Second))
		}
		return check.PollResult{
			Status:     check.PollProcessing,
			Progress:   int(processing.Progress.Percent),
			Message:    processing.Progress.Message,
			RetryAfter: retryAfter,
		}, nil
	case http.StatusOK:
		result, err := c.toResult(body)
		if err != nil {
			return check.PollResult{}, err
		}
		return check.PollResult{Status: check.PollCompleted, Progress: 100, Result: result}, nil
	default:
		return check.PollResult{}, mapError(resp, body)
	}
}

// VerifyToken checks that the service accepts the configured token.
func (c *Client) VerifyToken(ctx context.Context) error {
	resp, body, err := c.do(ctx, http.MethodGet, "/api/v1", nil)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return mapError(resp, body)
	}
	return nil
}

// do sends one request with the service headers and reads the whole body.
func (c *Client) do(ctx context.Context, method, path string, payload []byte) (*http.Response, []byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, nil, fmt.Errorf("creating request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Acrolinx-Auth", c.token)
	req.Header.Set("X-Acrolinx-Client", c.signature)
	req.Header.Set("X-Acrolinx-Client-Locale", "en")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode >= 400 {
		c.logger.Warn("checking service error",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
		)
	}
	return resp, body, nil
}
