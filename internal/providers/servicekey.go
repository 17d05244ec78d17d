package providers

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// ServiceKey is the credential document issued for an SAP AI Core instance.
type ServiceKey struct {
	ClientID     string      `json:"clientid"`
	ClientSecret string      `json:"clientsecret"`
	URL          string      `json:"url"`
	ServiceURLs  ServiceURLs `json:"serviceurls"`
}

// ServiceURLs holds the API endpoints of a service key.
type ServiceURLs struct {
	AIAPIURL string `json:"AI_API_URL"`
}

var clientSecretRe = regexp.MustCompile(`("clientsecret"\s*:\s*")((?:[^"\\]|\\.)*)(")`)

// ParseServiceKey decodes a service key. Keys pasted through a shell often
// carry `\$` inside the client secret, which is not a valid JSON escape; when
// the first decode fails those are unescaped and decoding is retried.
func ParseServiceKey(raw string) (ServiceKey, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ServiceKey{}, &ConfigError{Provider: "sap-ai-core", Message: "service key is not defined"}
	}

	var key ServiceKey
	firstErr := json.Unmarshal([]byte(raw), &key)
	if firstErr != nil {
		fixed := clientSecretRe.ReplaceAllStringFunc(raw, func(m string) string {
			parts := clientSecretRe.FindStringSubmatch(m)
			return parts[1] + strings.ReplaceAll(parts[2], `\$`, `$`) + parts[3]
		})
		key = ServiceKey{}
		if err := json.Unmarshal([]byte(fixed), &key); err != nil {
			return ServiceKey{}, &ConfigError{
				Provider: "sap-ai-core",
				Message:  fmt.Sprintf("failed to parse service key: %v", firstErr),
			}
		}
	}

	var missing []string
	if key.ClientID == "" {
		missing = append(missing, "clientid")
	}
	if key.ClientSecret == "" {
		missing = append(missing, "clientsecret")
	}
	if key.URL == "" {
		missing = append(missing, "url")
	}
	if key.ServiceURLs.AIAPIURL == "" {
		missing = append(missing, "serviceurls.AI_API_URL")
	}
	if len(missing) > 0 {
		return ServiceKey{}, &ConfigError{
			Provider: "sap-ai-core",
			Message:  "service key is missing " + strings.Join(missing, ", "),
		}
	}
	return key, nil
}
