package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/dshills/scribe/internal/check"
	"github.com/dshills/scribe/internal/checking"
	"github.com/dshills/scribe/internal/history"
	"github.com/dshills/scribe/internal/providers"
)

// shutdownTimeout bounds how long in-flight requests may run after the
// server is asked to stop.
const shutdownTimeout = 10 * time.Second

// Backend runs checks. *gateway.Local implements it.
type Backend interface {
	Submit(ctx context.Context, req check.Request) (check.Submission, error)
	Poll(ctx context.Context, checkID string) (check.PollResult, error)
	CheckLLM(ctx context.Context, req check.Request) (*check.Result, error)
}

// Service is the checking service. *checking.Client implements it.
type Service interface {
	Capabilities(ctx context.Context) (*checking.Capabilities, error)
	VerifyToken(ctx context.Context) error
	Token() string
}

// HistoryStore reads persisted checks. *history.Store implements it.
type HistoryStore interface {
	History(ctx context.Context, limit, offset int) ([]check.Record, error)
	Get(ctx context.Context, id string) (*check.Record, error)
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context) (history.Stats, error)
}

// Config wires the server's collaborators. Backend is required; the rest
// disable their routes when nil.
type Config struct {
	Backend Backend
	Service Service
	Models  providers.ModelLister
	History HistoryStore
	// Token is the checking-service token accepted by /api/auth/verify.
	Token  string
	Logger *zap.Logger
}

// Server is the HTTP API.
type Server struct {
	cfg    Config
	logger *zap.Logger
	router chi.Router
}

// New builds the router.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{cfg: cfg, logger: logger}
	s.router = s.routes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(limitBody(maxBodySize))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/token", s.handleToken)
		r.Post("/verify", s.handleVerify)
	})

	r.Group(func(r chi.Router) {
		r.Use(requireBearer)

		r.Route("/api/checking", func(r chi.Router) {
			r.Get("/capabilities", s.handleCapabilities)
			r.Post("/submit", s.handleSubmit)
			r.Post("/llm-submit", s.handleLLMSubmit)
			r.Get("/poll/{checkID}", s.handlePoll)
		})

		r.Get("/api/models", s.handleModels)

		r.Route("/api/history", func(r chi.Router) {
			r.Get("/", s.handleHistory)
			r.Get("/stats", s.handleStats)
			r.Get("/{id}", s.handleRecord)
			r.Delete("/{id}", s.handleDeleteRecord)
		})
	})
	return r
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		// Checks of long documents can take minutes.
		WriteTimeout: check.CheckTimeout,
		IdleTimeout:  60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", zap.String("addr", ln.Addr().String()))
		errc <- srv.Serve(ln)
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	<-errc
	s.logger.Info("server stopped")
	return nil
}
