package checking

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
)

// APIError is a mapped error response from the checking service.
type APIError struct {
	Code    string
	Message string
	// Status is the HTTP status to report for this error. It differs from
	// the upstream status for the well-known error types.
	Status int
	// RetryAfter is in seconds and only set for RATE_LIMITED.
	RetryAfter int
	Details    json.RawMessage
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// AsAPIError unwraps err to an *APIError.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	ok := errors.As(err, &apiErr)
	return apiErr, ok
}

// IsAuthError reports whether the checking service rejected the token or
// client signature.
func IsAuthError(err error) bool {
	apiErr, ok := AsAPIError(err)
	return ok && (apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden)
}

// mapError converts an error response into an APIError.
func mapError(resp *http.Response, body []byte) *APIError {
	var envelope struct {
		Error *struct {
			Type              string          `json:"type"`
			Detail            string          `json:"detail"`
			ValidationDetails json.RawMessage `json:"validationDetails"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return &APIError{
			Code:    "SERVER_ERROR",
			Message: "Server error. Please try again later.",
			Status:  resp.StatusCode,
		}
	}
	if envelope.Error == nil {
		return &APIError{Code: "UNKNOWN_ERROR", Message: "An error occurred", Status: resp.StatusCode}
	}

	e := envelope.Error
	switch e.Type {
	case "auth":
		return &APIError{Code: "AUTH_FAILED", Message: "Authentication failed. Please sign in again.", Status: http.StatusUnauthorized}
	case "clientSignatureRejected":
		return &APIError{Code: "INVALID_SIGNATURE", Message: "Invalid API signature. Please check configuration.", Status: http.StatusForbidden}
	case "guidanceProfileDoesntExist":
		return &APIError{Code: "INVALID_PROFILE", Message: "Selected style guide not available.", Status: http.StatusBadRequest}
	case "queueLimitExceeded":
		retryAfter := 60
		if v, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil {
			retryAfter = v
		}
		return &APIError{
			Code:       "RATE_LIMITED",
			Message:    fmt.Sprintf("Server busy. Please try again in %d seconds.", retryAfter),
			Status:     http.StatusTooManyRequests,
			RetryAfter: retryAfter,
		}
	case "contentTooLarge":
		return &APIError{Code: "CONTENT_TOO_LARGE", Message: "The document is too large. Please try with a smaller document.", Status: http.StatusRequestEntityTooLarge}
	case "customFieldsIncorrect":
		return &APIError{Code: "INVALID_CUSTOM_FIELDS", Message: "Custom field values are incorrect.", Status: http.StatusBadRequest, Details: e.ValidationDetails}
	}

	apiErr := &APIError{Code: e.Type, Message: e.Detail, Status: resp.StatusCode}
	if apiErr.Code == "" {
		apiErr.Code = "UNKNOWN_ERROR"
	}
	if apiErr.Message == "" {
		apiErr.Message = "An error occurred"
	}
	return apiErr
}
