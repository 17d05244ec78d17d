package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Client sends chat-completion requests through a Provider.
type Client struct {
	provider Provider
	client   *http.Client
	logger   *zap.Logger
}

// WithMetadata is a response together with the request that produced it and
// the wall-clock time the call took.
type WithMetadata struct {
	Response ChatCompletionResponse
	Request  ChatCompletionRequest
	Duration time.Duration
}

// NewClient wraps p. A nil httpClient gets a 120 second timeout; a nil
// logger discards output.
func NewClient(p Provider, httpClient *http.Client, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 120 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{provider: p, client: httpClient, logger: logger}
}

// Provider returns the wrapped provider.
func (c *Client) Provider() Provider { return c.provider }

// ProviderName returns the wrapped provider's name.
func (c *Client) ProviderName() string { return c.provider.Name() }

// ChatCompletion runs one request: token, URL, request transform, headers,
// POST, response transform.
func (c *Client) ChatCompletion(ctx context.Context, req ChatCompletionRequest) (ChatCompletionResponse, error) {
	name := c.provider.Name()

	token, err := c.provider.AccessToken(ctx)
	if err != nil {
		return ChatCompletionResponse{}, fmt.Errorf("%s: getting access token: %w", name, err)
	}

	url := c.provider.ChatCompletionURL(req.Model)
	body, err := c.provider.TransformRequest(req)
	if err != nil {
		return ChatCompletionResponse{}, fmt.Errorf("%s: transforming request: %w", name, err)
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return ChatCompletionResponse{}, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return ChatCompletionResponse{}, fmt.Errorf("creating request: %w", err)
	}
	for k, vals := range c.provider.Headers(token) {
		for _, v := range vals {
			httpReq.Header.Add(k, v)
		}
	}

	c.logger.Debug("chat completion request",
		zap.String("provider", name),
		zap.String("url", url),
		zap.String("model", req.Model),
		zap.Int("messages", len(req.Messages)),
	)

	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		return ChatCompletionResponse{}, fmt.Errorf("sending request: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return ChatCompletionResponse{}, fmt.Errorf("reading response: %w", err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		apiErr := parseAPIError(httpResp.StatusCode, respBody)
		c.logger.Warn("chat completion failed",
			zap.String("provider", name),
			zap.Int("status", httpResp.StatusCode),
			zap.String("error", apiErr.Error()),
		)
		return ChatCompletionResponse{}, apiErr
	}

	resp, err := c.provider.TransformResponse(respBody)
	if err != nil {
		return ChatCompletionResponse{}, fmt.Errorf("%s: parsing response: %w", name, err)
	}
	if len(resp.Choices) == 0 {
		return ChatCompletionResponse{}, fmt.Errorf("%s: no choices in response", name)
	}

	c.logger.Debug("chat completion response",
		zap.String("provider", name),
		zap.String("model", resp.Model),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
	)
	return resp, nil
}

// ChatCompletionWithMetadata is ChatCompletion plus the request and duration.
func (c *Client) ChatCompletionWithMetadata(ctx context.Context, req ChatCompletionRequest) (WithMetadata, error) {
	start := time.Now()
	resp, err := c.ChatCompletion(ctx, req)
	if err != nil {
		return WithMetadata{}, err
	}
	return WithMetadata{
		Response: resp,
		Request:  req,
		Duration: time.Since(start),
	}, nil
}

// ListModels returns the models the provider can serve, if it supports
// discovery.
func (c *Client) ListModels(ctx context.Context) ([]Model, error) {
	lister, ok := c.provider.(ModelLister)
	if !ok {
		return nil, fmt.Errorf("%s: model listing is not supported", c.provider.Name())
	}
	return lister.ListModels(ctx)
}
