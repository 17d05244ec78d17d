package server

import (
	"errors"
	"math"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/dshills/scribe/internal/check"
	"github.com/dshills/scribe/internal/gateway"
)

// defaultRetryAfter is the poll hint, in seconds, when the backend gives
// none.
const defaultRetryAfter = 5

func (s *Server) handleCapabilities(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Service == nil {
		writeFailure(w, gateway.ErrNativeUnavailable, "CAPABILITIES_FETCH_FAILED")
		return
	}
	caps, err := s.cfg.Service.Capabilities(r.Context())
	if err != nil {
		s.logger.Warn("fetching capabilities failed", zap.Error(err))
		writeFailure(w, err, "CAPABILITIES_FETCH_FAILED")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": caps})
}

type submitResponse struct {
	CheckID string            `json:"checkId"`
	Status  string            `json:"status"`
	Links   map[string]string `json:"links,omitempty"`
	Debug   *check.Debug      `json:"debug,omitempty"`
	Data    *check.Result     `json:"data,omitempty"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req check.Request
	if !decodeBody(w, r, &req) {
		return
	}
	if req.IsLLM() {
		s.llmSubmit(w, r, req)
		return
	}
	if req.Content == "" {
		writeFailure(w, gateway.ErrNoContent, "")
		return
	}

	sub, err := s.cfg.Backend.Submit(r.Context(), req)
	if err != nil {
		s.logger.Warn("check submission failed", zap.Error(err))
		writeFailure(w, err, "CHECK_SUBMIT_FAILED")
		return
	}

	resp := submitResponse{CheckID: sub.CheckID, Status: string(check.PollProcessing), Links: sub.Links, Debug: sub.Debug}
	if sub.Result != nil {
		resp.CheckID = sub.Result.ID
		resp.Status = string(check.PollCompleted)
		resp.Data = sub.Result
	}
	writeJSON(w, http.StatusOK, resp)
}

type llmSubmitData struct {
	Status            string        `json:"status"`
	Result            *check.Result `json:"result"`
	CheckType         string        `json:"checkType"`
	LanguageID        string        `json:"languageId"`
	GuidanceProfileID string        `json:"guidanceProfileId"`
	FileName          string        `json:"fileName"`
	Debug             *check.Debug  `json:"debug,omitempty"`
}

func (s *Server) handleLLMSubmit(w http.ResponseWriter, r *http.Request) {
	var req check.Request
	if !decodeBody(w, r, &req) {
		return
	}
	req.Provider = check.ProviderLLM
	s.llmSubmit(w, r, req)
}

func (s *Server) llmSubmit(w http.ResponseWriter, r *http.Request, req check.Request) {
	res, err := s.cfg.Backend.CheckLLM(r.Context(), req)
	if err != nil {
		if !errors.Is(err, gateway.ErrNoContent) {
			s.logger.Warn("llm check failed", zap.Error(err))
		}
		writeFailure(w, err, "LLM_CHECK_FAILED")
		return
	}

	fileName := req.FileName
	if fileName == "" {
		fileName = "document.txt"
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": llmSubmitData{
		Status:            string(check.PollCompleted),
		Result:            res,
		CheckType:         string(check.ProviderLLM),
		LanguageID:        req.LanguageID,
		GuidanceProfileID: req.ProfileID,
		FileName:          fileName,
		Debug:             res.Debug,
	}})
}

type pollResponse struct {
	Status     check.PollStatus `json:"status"`
	Progress   int              `json:"progress,omitempty"`
	Message    string           `json:"message,omitempty"`
	RetryAfter int              `json:"retryAfter,omitempty"`
	Data       *check.Result    `json:"data,omitempty"`
	Error      *check.ErrorInfo `json:"error,omitempty"`
}

func (s *Server) handlePoll(w http.ResponseWriter, r *http.Request) {
	checkID := chi.URLParam(r, "checkID")
	pr, err := s.cfg.Backend.Poll(r.Context(), checkID)
	if err != nil {
		s.logger.Warn("check poll failed", zap.String("checkId", checkID), zap.Error(err))
		writeFailure(w, err, "CHECK_POLL_FAILED")
		return
	}

	switch pr.Status {
	case check.PollProcessing:
		retryAfter := int(math.Ceil(pr.RetryAfter.Seconds()))
		if retryAfter <= 0 {
			retryAfter = defaultRetryAfter
		}
		writeJSON(w, http.StatusAccepted, pollResponse{
			Status:     check.PollProcessing,
			Progress:   pr.Progress,
			Message:    pr.Message,
			RetryAfter: retryAfter,
		})
	case check.PollCompleted:
		writeJSON(w, http.StatusOK, pollResponse{Status: check.PollCompleted, Data: pr.Result})
	default:
		writeJSON(w, http.StatusOK, pollResponse{Status: check.PollFailed, Error: pr.Error})
	}
}
