package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"
)

// Model describes a model or deployment a provider can serve.
type Model struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Vendor      string `json:"vendor,omitempty"`
	Version     string `json:"version,omitempty"`
	MaxTokens   int    `json:"maxTokens,omitempty"`
}

// ModelLister is implemented by providers that support model discovery.
type ModelLister interface {
	ListModels(ctx context.Context) ([]Model, error)
}

var textModelFamilies = []string{"gpt", "claude", "gemini", "mistral", "llama"}

// modelPriority ranks model ids for text checking; higher sorts first.
func modelPriority(id string) int {
	id = strings.ToLower(id)
	switch {
	case strings.Contains(id, "gpt-4o"):
		return 10
	case strings.Contains(id, "gpt-4"):
		return 9
	case strings.Contains(id, "claude-3"):
		return 8
	case strings.Contains(id, "gpt-3.5"):
		return 7
	case strings.Contains(id, "gemini"):
		return 6
	case strings.Contains(id, "mistral"):
		return 5
	default:
		return 0
	}
}

type openRouterModel struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	ContextLength int    `json:"context_length"`
	Architecture  struct {
		InputModalities  []string `json:"input_modalities"`
		OutputModalities []string `json:"output_modalities"`
	} `json:"architecture"`
}

// ListModels fetches {base}/v1/models. For OpenAI and OpenRouter the list is
// narrowed to text-in, text-out models from well-known families and ordered
// by suitability for text checking; local servers return everything.
func (o *OpenAICompatible) ListModels(ctx context.Context) ([]Model, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"/v1/models", nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if o.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+o.apiKey)
	}

	body, err := doGet(o.client, req)
	if err != nil {
		return nil, err
	}

	var result struct {
		Data []openRouterModel `json:"data"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("parsing models: %w", err)
	}

	filter := o.name == "openai" || o.name == "openrouter"
	models := make([]Model, 0, len(result.Data))
	for _, m := range result.Data {
		if filter && !isTextCheckingModel(m) {
			continue
		}
		name := m.Name
		if name == "" {
			name = m.ID
		}
		models = append(models, Model{
			ID:          m.ID,
			Name:        name,
			Description: m.Description,
			MaxTokens:   m.ContextLength,
		})
	}
	if filter {
		slices.SortStableFunc(models, func(a, b Model) int {
			return modelPriority(b.ID) - modelPriority(a.ID)
		})
	}
	return models, nil
}

func isTextCheckingModel(m openRouterModel) bool {
	if !slices.Contains(m.Architecture.InputModalities, "text") ||
		!slices.Contains(m.Architecture.OutputModalities, "text") {
		return false
	}
	id := strings.ToLower(m.ID)
	for _, family := range textModelFamilies {
		if strings.Contains(id, family) {
			return true
		}
	}
	return false
}

type sapDeployment struct {
	ID                string `json:"id"`
	ConfigurationName string `json:"configurationName"`
	ScenarioID        string `json:"scenarioId"`
	Details           struct {
		Resources struct {
			BackendDetails struct {
				Model struct {
					Name    string `json:"name"`
					Version string `json:"version"`
				} `json:"model"`
			} `json:"backend_details"`
		} `json:"resources"`
	} `json:"details"`
}

// ListModels returns the instance's deployments. The deployment id is what
// ChatCompletionURL expects as the model.
func (s *SAPAICore) ListModels(ctx context.Context) ([]Model, error) {
	token, err := s.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	url := strings.TrimSuffix(s.key.ServiceURLs.AIAPIURL, "/") + "/v2/lm/deployments"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	for k, vals := range s.Headers(token) {
		req.Header[k] = vals
	}

	body, err := doGet(s.client, req)
	if err != nil {
		return nil, err
	}

	var result struct {
		Resources []sapDeployment `json:"resources"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("parsing deployments: %w", err)
	}

	models := make([]Model, 0, len(result.Resources))
	for _, d := range result.Resources {
		name := d.ConfigurationName
		if name == "" {
			name = d.ScenarioID
		}
		vendor := "Unknown"
		if n := d.Details.Resources.BackendDetails.Model.Name; n != "" {
			vendor, _, _ = strings.Cut(n, "/")
		}
		version := d.Details.Resources.BackendDetails.Model.Version
		if version == "" {
			version = "latest"
		}
		models = append(models, Model{
			ID:          d.ID,
			Name:        name,
			Description: d.ScenarioID + " deployment",
			Vendor:      vendor,
			Version:     version,
			MaxTokens:   4096,
		})
	}
	return models, nil
}

func doGet(client *http.Client, req *http.Request) ([]byte, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, parseAPIError(resp.StatusCode, body)
	}
	return body, nil
}
