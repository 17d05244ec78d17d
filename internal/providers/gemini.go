package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const geminiAPIURL = "https://generativelanguage.googleapis.com/v1beta/models"

// Gemini implements Provider for Google's generateContent API.
type Gemini struct {
	apiKey  string
	baseURL string
}

// NewGemini creates a new Gemini provider. An empty baseURL uses the public
// v1beta models endpoint.
func NewGemini(apiKey, baseURL string) *Gemini {
	if baseURL == "" {
		baseURL = geminiAPIURL
	}
	return &Gemini{apiKey: apiKey, baseURL: strings.TrimRight(baseURL, "/")}
}

func (g *Gemini) Name() string { return "gemini" }

func (g *Gemini) AccessToken(context.Context) (string, error) { return g.apiKey, nil }

func (g *Gemini) ChatCompletionURL(model string) string {
	return fmt.Sprintf("%s/%s:generateContent", g.baseURL, model)
}

// TransformRequest moves system messages into systemInstruction and renames
// the assistant role to "model".
func (g *Gemini) TransformRequest(req ChatCompletionRequest) (any, error) {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}
	body := geminiRequest{
		GenerationConfig: &geminiGenConfig{
			MaxOutputTokens: maxTokens,
			Temperature:     req.Temperature,
			TopP:            req.TopP,
			StopSequences:   req.Stop,
		},
	}

	var system []geminiPart
	for _, m := range req.Messages {
		switch m.Role {
		case "system":
			system = append(system, geminiPart{Text: m.Content})
		case "assistant":
			body.Contents = append(body.Contents, geminiContent{Role: "model", Parts: []geminiPart{{Text: m.Content}}})
		default:
			body.Contents = append(body.Contents, geminiContent{Role: "user", Parts: []geminiPart{{Text: m.Content}}})
		}
	}
	if len(system) > 0 {
		body.SystemInstruction = &geminiContent{Parts: system}
	}
	return body, nil
}

// TransformResponse maps each candidate to a choice.
func (g *Gemini) TransformResponse(data []byte) (ChatCompletionResponse, error) {
	var result geminiResponse
	if err := json.Unmarshal(data, &result); err != nil {
		return ChatCompletionResponse{}, err
	}

	resp := ChatCompletionResponse{
		ID:      result.ResponseID,
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   result.ModelVersion,
		Usage: Usage{
			PromptTokens:     result.UsageMetadata.PromptTokenCount,
			CompletionTokens: result.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      result.UsageMetadata.TotalTokenCount,
		},
	}
	for i, c := range result.Candidates {
		var text strings.Builder
		for _, part := range c.Content.Parts {
			text.WriteString(part.Text)
		}
		resp.Choices = append(resp.Choices, Choice{
			Index:        i,
			Message:      Message{Role: "assistant", Content: text.String()},
			FinishReason: strings.ToLower(c.FinishReason),
		})
	}
	return resp, nil
}

func (g *Gemini) Headers(token string) http.Header {
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	h.Set("x-goog-api-key", token)
	return h
}

type geminiRequest struct {
	SystemInstruction *geminiContent   `json:"systemInstruction,omitempty"`
	Contents          []geminiContent  `json:"contents"`
	GenerationConfig  *geminiGenConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenConfig struct {
	MaxOutputTokens int      `json:"maxOutputTokens,omitempty"`
	Temperature     *float64 `json:"temperature,omitempty"`
	TopP            *float64 `json:"topP,omitempty"`
	StopSequences   []string `json:"stopSequences,omitempty"`
}

type geminiResponse struct {
	Candidates    []geminiCandidate `json:"candidates"`
	UsageMetadata geminiUsage       `json:"usageMetadata"`
	ModelVersion  string            `json:"modelVersion"`
	ResponseID    string            `json:"responseId"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason"`
}

type geminiUsage struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}
