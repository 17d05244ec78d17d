package providers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/dshills/scribe/internal/config"
)

// Message is one turn of a chat conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatCompletionRequest is the provider-neutral, OpenAI-shaped request.
type ChatCompletionRequest struct {
	Model            string    `json:"model"`
	Messages         []Message `json:"messages"`
	Temperature      *float64  `json:"temperature,omitempty"`
	MaxTokens        int       `json:"max_tokens,omitempty"`
	TopP             *float64  `json:"top_p,omitempty"`
	FrequencyPenalty *float64  `json:"frequency_penalty,omitempty"`
	PresencePenalty  *float64  `json:"presence_penalty,omitempty"`
	Stop             []string  `json:"stop,omitempty"`
	N                int       `json:"n,omitempty"`
	Stream           bool      `json:"stream,omitempty"`
}

// Choice is one completion candidate.
type Choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

// Usage reports token consumption.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatCompletionResponse is the provider-neutral, OpenAI-shaped response.
type ChatCompletionResponse struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

// Content returns the text of the first choice, or "".
func (r ChatCompletionResponse) Content() string {
	if len(r.Choices) == 0 {
		return ""
	}
	return r.Choices[0].Message.Content
}

// Provider adapts the neutral chat-completion shape to one vendor's API.
type Provider interface {
	Name() string
	AccessToken(ctx context.Context) (string, error)
	ChatCompletionURL(model string) string
	TransformRequest(req ChatCompletionRequest) (any, error)
	TransformResponse(body []byte) (ChatCompletionResponse, error)
	Headers(token string) http.Header
}

// Float returns a pointer to v, for the optional sampling parameters.
func Float(v float64) *float64 { return &v }

// New creates a provider from the LLM configuration. Vendor environment
// variables are resolved by config.Load, not here.
func New(cfg config.LLMConfig) (Provider, error) {
	name := strings.ToLower(cfg.Provider)
	if name == "" {
		name = "sap-ai-core"
	}
	switch name {
	case "sap-ai-core", "sap":
		if cfg.ServiceKey == "" {
			return nil, &ConfigError{Provider: "sap-ai-core", Message: "AICORE_SERVICE_KEY is not set"}
		}
		key, err := ParseServiceKey(cfg.ServiceKey)
		if err != nil {
			return nil, err
		}
		return NewSAPAICore(key, cfg.ResourceGroup, nil), nil
	case "openai", "openrouter":
		if cfg.APIKey == "" {
			return nil, &ConfigError{Provider: name, Message: "OPENAI_API_KEY is not set"}
		}
		return NewOpenAICompatible(name, cfg.APIKey, cfg.BaseURL), nil
	case "ollama", "lmstudio":
		return NewOpenAICompatible(name, cfg.APIKey, firstNonEmpty(cfg.BaseURL, defaultOllamaURL)), nil
	case "anthropic":
		if cfg.APIKey == "" {
			return nil, &ConfigError{Provider: name, Message: "ANTHROPIC_API_KEY is not set"}
		}
		return NewAnthropic(cfg.APIKey, cfg.BaseURL), nil
	case "gemini", "google":
		if cfg.APIKey == "" {
			return nil, &ConfigError{Provider: "gemini", Message: "GEMINI_API_KEY or GOOGLE_API_KEY is not set"}
		}
		return NewGemini(cfg.APIKey, cfg.BaseURL), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s", cfg.Provider)
	}
}

// DefaultModel returns the model used when none is requested.
func DefaultModel(provider string) string {
	switch strings.ToLower(provider) {
	case "openrouter":
		return "openai/gpt-4o-mini"
	case "openai":
		return "gpt-4o-mini"
	case "anthropic":
		return "claude-3-5-haiku-latest"
	case "gemini", "google":
		return "gemini-2.5-flash"
	case "ollama", "lmstudio":
		return "llama3.2"
	default:
		return "gpt-4"
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
