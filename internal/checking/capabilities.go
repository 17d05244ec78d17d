package checking

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// Language identifies a checking language.
type Language struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

// Goal is a quality goal a guidance profile checks for.
type Goal struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Color       string `json:"color"`
	Scoring     string `json:"scoring"`
}

// GuidanceProfile is a named set of style rules.
type GuidanceProfile struct {
	ID          string   `json:"id"`
	DisplayName string   `json:"displayName"`
	Language    Language `json:"language"`
	Goals       []Goal   `json:"goals"`
}

// ContentFormat is a document format the service accepts.
type ContentFormat struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

// Capabilities describes what the checking service offers.
type Capabilities struct {
	GuidanceProfiles         []GuidanceProfile `json:"guidanceProfiles"`
	ContentFormats           []ContentFormat   `json:"contentFormats"`
	ContentEncodings         []string          `json:"contentEncodings"`
	CheckTypes               []string          `json:"checkTypes"`
	ReportTypes              []string          `json:"reportTypes"`
	DefaultGuidanceProfileID string            `json:"defaultGuidanceProfileId"`
}

// ProfileName returns the display name of the profile with id, or "Unknown".
func (c *Capabilities) ProfileName(id string) string {
	if c != nil {
		for _, p := range c.GuidanceProfiles {
			if p.ID == id {
				return p.DisplayName
			}
		}
	}
	return "Unknown"
}

// Capabilities fetches the service's guidance profiles and supported
// formats.
func (c *Client) Capabilities(ctx context.Context) (*Capabilities, error) {
	resp, body, err := c.do(ctx, http.MethodGet, "/api/v1/checking/capabilities", nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, mapError(resp, body)
	}
	var envelope struct {
		Data Capabilities `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("parsing capabilities: %w", err)
	}
	return &envelope.Data, nil
}
