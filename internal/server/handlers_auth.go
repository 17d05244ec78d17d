package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/dshills/scribe/internal/checking"
)

// apiUser is the identity reported for service-token sessions.
type apiUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

var serviceUser = apiUser{ID: "api-user", Username: "API User"}

// handleToken confirms that the configured service token works and hands
// it to the caller.
func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Service == nil {
		writeError(w, http.StatusInternalServerError, "TOKEN_VERIFICATION_FAILED", "Checking service is not configured")
		return
	}
	if err := s.cfg.Service.VerifyToken(r.Context()); err != nil {
		s.logger.Warn("token verification failed", zap.Error(err))
		if _, ok := checking.AsAPIError(err); ok {
			writeFailure(w, err, "TOKEN_VERIFICATION_FAILED")
			return
		}
		writeError(w, http.StatusInternalServerError, "TOKEN_VERIFICATION_FAILED", "Failed to verify API token")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{
		"token": s.cfg.Service.Token(),
		"user":  serviceUser,
	}})
}

// handleVerify accepts the configured token or any JWT-shaped token, from
// the Authorization header or the customToken body field.
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		var body struct {
			CustomToken string `json:"customToken"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
			return
		}
		token = body.CustomToken
	}

	if !s.validToken(token) {
		writeError(w, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid token")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{"user": serviceUser}})
}

func (s *Server) validToken(token string) bool {
	if token == "" {
		return false
	}
	if s.cfg.Token != "" && token == s.cfg.Token {
		return true
	}
	return len(strings.Split(token, ".")) == 3
}
