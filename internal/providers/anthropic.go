package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

const (
	anthropicAPIURL     = "https://api.anthropic.com/v1/messages"
	anthropicAPIVersion = "2023-06-01"
)

// Anthropic implements Provider for Anthropic's Messages API.
type Anthropic struct {
	apiKey string
	url    string
}

// NewAnthropic creates a new Anthropic provider. An empty url uses the
// public Messages endpoint.
func NewAnthropic(apiKey, url string) *Anthropic {
	if url == "" {
		url = anthropicAPIURL
	}
	return &Anthropic{apiKey: apiKey, url: url}
}

func (a *Anthropic) Name() string { return "anthropic" }

func (a *Anthropic) AccessToken(context.Context) (string, error) { return a.apiKey, nil }

func (a *Anthropic) ChatCompletionURL(string) string { return a.url }

// TransformRequest lifts system messages into the system field.
func (a *Anthropic) TransformRequest(req ChatCompletionRequest) (any, error) {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}

	body := anthropicRequest{
		Model:         req.Model,
		MaxTokens:     maxTokens,
		Temperature:   req.Temperature,
		TopP:          req.TopP,
		StopSequences: req.Stop,
	}
	var system []string
	for _, m := range req.Messages {
		if m.Role == "system" {
			system = append(system, m.Content)
			continue
		}
		body.Messages = append(body.Messages, anthropicMessage(m))
	}
	body.System = strings.Join(system, "\n\n")
	return body, nil
}

// TransformResponse concatenates the text blocks into a single choice.
func (a *Anthropic) TransformResponse(data []byte) (ChatCompletionResponse, error) {
	var result anthropicResponse
	if err := json.Unmarshal(data, &result); err != nil {
		return ChatCompletionResponse{}, err
	}

	var content strings.Builder
	for _, block := range result.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}

	return ChatCompletionResponse{
		ID:      result.ID,
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   result.Model,
		Choices: []Choice{{
			Index:        0,
			Message:      Message{Role: "assistant", Content: content.String()},
			FinishReason: result.StopReason,
		}},
		Usage: Usage{
			PromptTokens:     result.Usage.InputTokens,
			CompletionTokens: result.Usage.OutputTokens,
			TotalTokens:      result.Usage.InputTokens + result.Usage.OutputTokens,
		},
	}, nil
}

func (a *Anthropic) Headers(token string) http.Header {
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	h.Set("x-api-key", token)
	h.Set("anthropic-version", anthropicAPIVersion)
	return h
}

type anthropicRequest struct {
	Model         string             `json:"model"`
	MaxTokens     int                `json:"max_tokens"`
	System        string             `json:"system,omitempty"`
	Messages      []anthropicMessage `json:"messages"`
	Temperature   *float64           `json:"temperature,omitempty"`
	TopP          *float64           `json:"top_p,omitempty"`
	StopSequences []string           `json:"stop_sequences,omitempty"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	ID         string           `json:"id"`
	Model      string           `json:"model"`
	Content    []anthropicBlock `json:"content"`
	StopReason string           `json:"stop_reason"`
	Usage      anthropicUsage   `json:"usage"`
}

type anthropicBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type anthropicUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}
