package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	sapAPIVersion       = "2024-12-01-preview"
	sapDefaultGroup     = "default"
	sapDefaultMaxTokens = 8092
	sapTokenEarlyExpiry = 5 * time.Minute
)

// SAPAICore implements Provider for SAP AI Core deployments. Tokens come
// from an OAuth2 client-credentials grant and are reused until five minutes
// before they expire.
type SAPAICore struct {
	key           ServiceKey
	resourceGroup string
	client        *http.Client
	oauth         clientcredentials.Config

	mu    sync.Mutex
	token *oauth2.Token
}

// NewSAPAICore creates a provider for the instance described by key. A nil
// client uses a 120 second timeout.
func NewSAPAICore(key ServiceKey, resourceGroup string, client *http.Client) *SAPAICore {
	if resourceGroup == "" {
		resourceGroup = sapDefaultGroup
	}
	if client == nil {
		client = &http.Client{Timeout: 120 * time.Second}
	}
	return &SAPAICore{
		key:           key,
		resourceGroup: resourceGroup,
		client:        client,
		oauth: clientcredentials.Config{
			ClientID:     key.ClientID,
			ClientSecret: key.ClientSecret,
			TokenURL:     strings.TrimSuffix(key.URL, "/") + "/oauth/token",
			AuthStyle:    oauth2.AuthStyleInHeader,
		},
	}
}

func (s *SAPAICore) Name() string { return "sap-ai-core" }

// AccessToken returns a cached token, fetching a new one when none is held
// or the held one expires within five minutes.
func (s *SAPAICore) AccessToken(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != nil && s.token.AccessToken != "" &&
		(s.token.Expiry.IsZero() || time.Until(s.token.Expiry) > sapTokenEarlyExpiry) {
		return s.token.AccessToken, nil
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.client)
	tok, err := s.oauth.Token(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get SAP AI Core access token: %w", err)
	}
	s.token = tok
	return tok.AccessToken, nil
}

func (s *SAPAICore) ChatCompletionURL(model string) string {
	return fmt.Sprintf("%s/v2/inference/deployments/%s/chat/completions?api-version=%s",
		strings.TrimSuffix(s.key.ServiceURLs.AIAPIURL, "/"), model, sapAPIVersion)
}

type sapRequest struct {
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
	TopP        float64   `json:"top_p"`
	N           int       `json:"n"`
	Stream      bool      `json:"stream"`
}

// TransformRequest fills SAP defaults for unset parameters. The deployment
// id travels in the URL, so the model is not part of the body.
func (s *SAPAICore) TransformRequest(req ChatCompletionRequest) (any, error) {
	out := sapRequest{
		Messages:    req.Messages,
		MaxTokens:   req.MaxTokens,
		Temperature: 0.7,
		TopP:        1,
		N:           req.N,
		Stream:      req.Stream,
	}
	if out.MaxTokens == 0 {
		out.MaxTokens = sapDefaultMaxTokens
	}
	if req.Temperature != nil {
		out.Temperature = *req.Temperature
	}
	if req.TopP != nil && *req.TopP != 0 {
		out.TopP = *req.TopP
	}
	if out.N == 0 {
		out.N = 1
	}
	return out, nil
}

// TransformResponse decodes the already OpenAI-shaped response.
func (s *SAPAICore) TransformResponse(body []byte) (ChatCompletionResponse, error) {
	var resp ChatCompletionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return ChatCompletionResponse{}, err
	}
	return resp, nil
}

func (s *SAPAICore) Headers(token string) http.Header {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+token)
	h.Set("AI-Resource-Group", s.resourceGroup)
	h.Set("Content-Type", "application/json")
	h.Set("Accept", "application/json")
	return h
}
