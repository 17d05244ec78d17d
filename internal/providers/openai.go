package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

const (
	defaultOpenAIBaseURL = "https://openrouter.ai/api"
	defaultOllamaURL     = "http://localhost:11434"
)

// OpenAICompatible implements Provider for any endpoint that speaks the
// OpenAI chat-completions API: OpenAI, OpenRouter, Ollama, and LMStudio.
type OpenAICompatible struct {
	name    string
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewOpenAICompatible creates a provider. The base URL may be given with or
// without the /v1 or /v1/chat/completions suffix; empty means OpenRouter.
func NewOpenAICompatible(name, apiKey, baseURL string) *OpenAICompatible {
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	return &OpenAICompatible{
		name:    name,
		apiKey:  apiKey,
		baseURL: normalizeBaseURL(baseURL),
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

func normalizeBaseURL(u string) string {
	u = strings.TrimRight(u, "/")
	u = strings.TrimSuffix(u, "/v1/chat/completions")
	u = strings.TrimSuffix(u, "/v1")
	return u
}

func (o *OpenAICompatible) Name() string { return o.name }

// AccessToken returns the static API key, which may be empty for local servers.
func (o *OpenAICompatible) AccessToken(context.Context) (string, error) {
	return o.apiKey, nil
}

func (o *OpenAICompatible) ChatCompletionURL(string) string {
	return o.baseURL + "/v1/chat/completions"
}

func (o *OpenAICompatible) TransformRequest(req ChatCompletionRequest) (any, error) {
	return req, nil
}

func (o *OpenAICompatible) TransformResponse(body []byte) (ChatCompletionResponse, error) {
	var resp ChatCompletionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return ChatCompletionResponse{}, err
	}
	return resp, nil
}

func (o *OpenAICompatible) Headers(token string) http.Header {
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}
