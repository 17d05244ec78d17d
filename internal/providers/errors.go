package providers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
)

// APIError is a non-2xx response from a provider.
type APIError struct {
	StatusCode int
	Message    string
	Details    string
	Body       string
}

func (e *APIError) Error() string {
	if e.Details != "" {
		return e.Message + ": " + e.Details
	}
	return e.Message
}

// ConfigError reports missing or malformed provider credentials.
type ConfigError struct {
	Provider string
	Message  string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

// IsAuthError reports whether err was caused by rejected credentials, either
// at the chat endpoint or while fetching an OAuth token.
func IsAuthError(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden
	}
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
		code := retrieveErr.Response.StatusCode
		return code == http.StatusUnauthorized || code == http.StatusForbidden
	}
	return false
}

// parseAPIError builds an APIError from an error response body. Bodies of
// the form {"error":{"message":..,"details":..}} or {"error":".."} supply
// the message; any other JSON gets a generic message and non-JSON bodies
// are reported verbatim.
func parseAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status, Body: string(body)}

	var envelope struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		apiErr.Message = fmt.Sprintf("HTTP %d: %s", status, body)
		return apiErr
	}

	apiErr.Message = "chat completion request failed"
	if len(envelope.Error) == 0 || string(envelope.Error) == "null" {
		return apiErr
	}

	var text string
	if err := json.Unmarshal(envelope.Error, &text); err == nil {
		if text != "" {
			apiErr.Message = text
		}
		return apiErr
	}

	var detail struct {
		Message string          `json:"message"`
		Details json.RawMessage `json:"details"`
	}
	if err := json.Unmarshal(envelope.Error, &detail); err == nil {
		if detail.Message != "" {
			apiErr.Message = detail.Message
		}
		apiErr.Details = detailsText(detail.Details)
	}
	return apiErr
}

// detailsText renders an error's details field. Strings are used as is;
// structured details (Gemini sends an array) become compact JSON.
func detailsText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return text
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}
