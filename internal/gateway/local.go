package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/dshills/scribe/internal/check"
	"github.com/dshills/scribe/internal/extract"
	"github.com/dshills/scribe/internal/providers"
	"github.com/dshills/scribe/internal/textcheck"
)

var (
	// ErrNoContent is returned for a request with nothing to check.
	ErrNoContent = errors.New("no content provided")
	// ErrLLMUnavailable is returned for an LLM request when no provider is
	// configured.
	ErrLLMUnavailable = errors.New("no LLM provider is configured")
	// ErrNativeUnavailable is returned for a checking-service request when
	// the service is not configured.
	ErrNativeUnavailable = errors.New("checking service is not configured")
)

// LLMPollErrorCode is reported when a caller polls an LLM check.
const LLMPollErrorCode = "LLM_POLL_ERROR"

// Native is the checking service. *checking.Client implements it.
type Native interface {
	Submit(ctx context.Context, req check.Request) (check.Submission, error)
	Poll(ctx context.Context, checkID string) (check.PollResult, error)
}

// Local runs checks in process.
type Local struct {
	native Native
	llm    *textcheck.Checker
	logger *zap.Logger
}

// NewLocal creates a Local backend. Either native or llm may be nil when
// that engine is not configured; requests for it then fail.
func NewLocal(native Native, llm *textcheck.Checker, logger *zap.Logger) *Local {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Local{native: native, llm: llm, logger: logger}
}

// Submit runs an LLM check to completion, or submits to the checking service.
func (l *Local) Submit(ctx context.Context, req check.Request) (check.Submission, error) {
	if req.IsLLM() {
		res, err := l.CheckLLM(ctx, req)
		if err != nil {
			return check.Submission{}, err
		}
		return check.Submission{CheckID: res.ID, Result: res, Debug: res.Debug}, nil
	}
	if l.native == nil {
		return check.Submission{}, ErrNativeUnavailable
	}
	return l.native.Submit(ctx, req)
}

// Poll follows a checking-service check. LLM checks finish on submission,
// so polling one reports a failure rather than an error.
func (l *Local) Poll(ctx context.Context, checkID string) (check.PollResult, error) {
	if strings.HasPrefix(checkID, check.LLMCheckPrefix) {
		return check.PollResult{
			Status: check.PollFailed,
			Error:  &check.ErrorInfo{Message: "LLM checks should not require polling", Code: LLMPollErrorCode},
		}, nil
	}
	if l.native == nil {
		return check.PollResult{}, ErrNativeUnavailable
	}
	return l.native.Poll(ctx, checkID)
}

// ProviderName reports the configured LLM provider, or "" without one.
func (l *Local) ProviderName() string {
	if l.llm == nil {
		return ""
	}
	return l.llm.ProviderName()
}

// CheckLLM extracts the text of req and analyzes it with the LLM. The
// result's debug data names the model and provider used.
func (l *Local) CheckLLM(ctx context.Context, req check.Request) (*check.Result, error) {
	if strings.TrimSpace(req.Content) == "" {
		return nil, ErrNoContent
	}
	if l.llm == nil {
		return nil, ErrLLMUnavailable
	}

	text, err := extract.Text(req.Content, req.ContentType, req.FileName)
	if err != nil {
		return nil, fmt.Errorf("extracting content: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrNoContent
	}

	provider := l.llm.ProviderName()
	model := req.Model
	if model == "" {
		model = providers.DefaultModel(provider)
	}

	out := l.llm.CheckDocument(ctx, text, req.FileName, model, req.SystemPrompt)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	debug := &check.Debug{Model: model, Provider: provider, ContentLength: len(text)}
	if md := out.Metadata; md != nil {
		debug.DurationMs = md.Duration.Milliseconds()
		if md.Chunks == 0 {
			debug.Request, _ = json.Marshal(md.Request)
			debug.Response, _ = json.Marshal(md.Response)
		}
	}
	res := out.Result
	res.Debug = debug

	l.logger.Info("llm check finished",
		zap.String("provider", provider),
		zap.String("model", model),
		zap.Int("contentLength", len(text)),
		zap.Int("score", res.Score),
		zap.Int("issues", len(res.Issues)),
		zap.Bool("fallback", out.Metadata == nil),
	)
	return res, nil
}
