package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dshills/scribe/internal/checking"
	"github.com/dshills/scribe/internal/extract"
	"github.com/dshills/scribe/internal/gateway"
)

type errorBody struct {
	Message    string          `json:"message"`
	Code       string          `json:"code"`
	Details    json.RawMessage `json:"details,omitempty"`
	RetryAfter int             `json:"retryAfter,omitempty"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorEnvelope{Error: errorBody{Message: message, Code: code}})
}

// writeFailure reports err. Mapped checking-service errors and known
// request errors get their own status; anything else is a 500 with
// fallbackCode.
func writeFailure(w http.ResponseWriter, err error, fallbackCode string) {
	if apiErr, ok := checking.AsAPIError(err); ok {
		status := apiErr.Status
		if status < 400 {
			status = http.StatusInternalServerError
		}
		writeJSON(w, status, errorEnvelope{Error: errorBody{
			Message:    apiErr.Message,
			Code:       apiErr.Code,
			Details:    apiErr.Details,
			RetryAfter: apiErr.RetryAfter,
		}})
		return
	}

	var maxErr *http.MaxBytesError
	switch {
	case errors.Is(err, gateway.ErrNoContent):
		writeError(w, http.StatusBadRequest, "NO_CONTENT", "No content provided")
	case errors.Is(err, extract.ErrTooLarge), errors.As(err, &maxErr):
		writeError(w, http.StatusRequestEntityTooLarge, "CONTENT_TOO_LARGE", "The document is too large. Please try with a smaller document.")
	case errors.Is(err, extract.ErrInvalidBase64):
		writeError(w, http.StatusBadRequest, "INVALID_CONTENT", err.Error())
	case errors.Is(err, gateway.ErrLLMUnavailable), errors.Is(err, gateway.ErrNativeUnavailable):
		writeError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, fallbackCode, err.Error())
	}
}

// decodeBody reads a JSON request body into v, writing the error response
// itself on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeFailure(w, err, "")
			return false
		}
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return false
	}
	return true
}
