package cli

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/dshills/scribe/internal/cache"
	"github.com/dshills/scribe/internal/checking"
	"github.com/dshills/scribe/internal/chunk"
	"github.com/dshills/scribe/internal/config"
	"github.com/dshills/scribe/internal/gateway"
	"github.com/dshills/scribe/internal/history"
	"github.com/dshills/scribe/internal/providers"
	"github.com/dshills/scribe/internal/textcheck"
)

// loadConfig loads the effective config with the root overrides applied.
func loadConfig(overrides map[string]string) (config.Config, error) {
	if overrides == nil {
		overrides = make(map[string]string)
	}
	if flagLogLevel != "" {
		overrides["logLevel"] = flagLogLevel
	}
	return config.Load(overrides)
}

// llmStack is an LLM checker and the provider client behind it.
type llmStack struct {
	checker *textcheck.Checker
	client  *providers.Client
}

func newLLMStack(cfg config.Config, logger *zap.Logger) (*llmStack, error) {
	p, err := providers.New(cfg.LLM)
	if err != nil {
		return nil, err
	}
	client := providers.NewClient(p, nil, logger)

	ch, err := chunk.New(chunk.Options{
		MaxChunkSize:       cfg.Chunk.MaxChunkSize,
		OverlapSize:        cfg.Chunk.OverlapSize,
		PreserveBoundaries: cfg.Chunk.PreserveBoundaries,
	})
	if err != nil {
		return nil, err
	}

	opts := []textcheck.Option{
		textcheck.WithLogger(logger),
		textcheck.WithChunker(ch, cfg.Chunk.Concurrency),
	}
	if cfg.Cache.Enabled {
		c, err := cache.New(true, cfg.Cache.Dir, cfg.Cache.TTLSeconds)
		if err != nil {
			return nil, fmt.Errorf("opening cache: %w", err)
		}
		opts = append(opts, textcheck.WithCache(c))
	}
	if cfg.Privacy.RedactSecrets {
		opts = append(opts, textcheck.WithRedaction(cfg.Privacy.RedactPaths))
	}
	return &llmStack{checker: textcheck.New(client, opts...), client: client}, nil
}

func newNative(cfg config.Config, logger *zap.Logger) (*checking.Client, error) {
	return checking.New(checking.Config{
		BaseURL:         cfg.Checking.BaseURL,
		Token:           cfg.Checking.Token,
		ClientSignature: cfg.Checking.ClientSignature,
		ClientVersion:   cfg.Checking.ClientVersion,
		Logger:          logger,
	})
}

// localParts is an in-process gateway and whichever engines could be
// configured.
type localParts struct {
	gateway *gateway.Local
	native  *checking.Client
	llm     *llmStack
}

// newLocalParts configures both engines. An engine that cannot be
// configured is logged and left out; it is an error only when neither can.
func newLocalParts(cfg config.Config, logger *zap.Logger) (*localParts, error) {
	parts := &localParts{}
	var errs []error

	native, err := newNative(cfg, logger)
	if err != nil {
		logger.Warn("checking service unavailable", zap.Error(err))
		errs = append(errs, err)
	} else {
		parts.native = native
	}

	llm, err := newLLMStack(cfg, logger)
	if err != nil {
		logger.Warn("LLM provider unavailable", zap.Error(err))
		errs = append(errs, err)
	} else {
		parts.llm = llm
	}

	if parts.native == nil && parts.llm == nil {
		return nil, fmt.Errorf("no checking engine configured: %w", errors.Join(errs...))
	}

	// A nil *checking.Client must not become a non-nil interface.
	var n gateway.Native
	if parts.native != nil {
		n = parts.native
	}
	var checker *textcheck.Checker
	if parts.llm != nil {
		checker = parts.llm.checker
	}
	parts.gateway = gateway.NewLocal(n, checker, logger)
	return parts, nil
}

func openHistory(cfg config.Config) (*history.Store, error) {
	path, err := cfg.HistoryPath()
	if err != nil {
		return nil, err
	}
	store, err := history.Open(path, history.WithLimit(cfg.History.Limit))
	if err != nil {
		return nil, err
	}
	return store, nil
}
