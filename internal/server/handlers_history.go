package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/dshills/scribe/internal/history"
	"github.com/dshills/scribe/internal/providers"
)

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Models == nil {
		writeError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "No LLM provider is configured")
		return
	}
	models, err := s.cfg.Models.ListModels(r.Context())
	if err != nil {
		s.logger.Warn("listing models failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "MODELS_FETCH_FAILED", err.Error())
		return
	}
	if models == nil {
		models = []providers.Model{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": models})
}

func (s *Server) historyStore(w http.ResponseWriter) (HistoryStore, bool) {
	if s.cfg.History == nil {
		writeError(w, http.StatusServiceUnavailable, "HISTORY_DISABLED", "Check history is disabled")
		return nil, false
	}
	return s.cfg.History, true
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	store, ok := s.historyStore(w)
	if !ok {
		return
	}
	limit, err1 := queryInt(r, "limit", 0)
	offset, err2 := queryInt(r, "offset", 0)
	if err := errors.Join(err1, err2); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "limit and offset must be non-negative integers")
		return
	}
	records, err := store.History(r.Context(), limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "HISTORY_FAILED", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": records})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	store, ok := s.historyStore(w)
	if !ok {
		return
	}
	stats, err := store.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "HISTORY_FAILED", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": stats})
}

func (s *Server) handleRecord(w http.ResponseWriter, r *http.Request) {
	store, ok := s.historyStore(w)
	if !ok {
		return
	}
	rec, err := store.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, history.ErrNotFound) {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Check not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "HISTORY_FAILED", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": rec})
}

func (s *Server) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	store, ok := s.historyStore(w)
	if !ok {
		return
	}
	if err := store.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, http.StatusInternalServerError, "HISTORY_FAILED", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, errors.New("invalid " + key)
	}
	return n, nil
}
