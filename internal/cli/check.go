package cli

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dshills/scribe/internal/check"
	"github.com/dshills/scribe/internal/checking"
	"github.com/dshills/scribe/internal/config"
	"github.com/dshills/scribe/internal/coordinator"
	"github.com/dshills/scribe/internal/extract"
	"github.com/dshills/scribe/internal/gateway"
	"github.com/dshills/scribe/internal/output"
	"github.com/dshills/scribe/internal/providers"
)

// Check flags
var (
	flagLLM         bool
	flagProvider    string
	flagModel       string
	flagProfile     string
	flagProfileName string
	flagLanguage    string
	flagServer      string
	flagToken       string
	flagTimeout     string
	flagFormat      string
	flagOut         string
	flagMinScore    int
	flagPromptFile  string
	flagNoHistory   bool
	flagNoRedact    bool
)

func buildOverrides() map[string]string {
	m := make(map[string]string)
	if flagProvider != "" {
		m["provider"] = flagProvider
	}
	if flagModel != "" {
		m["model"] = flagModel
	}
	if flagFormat != "" {
		m["format"] = flagFormat
	}
	if flagLanguage != "" {
		m["language"] = flagLanguage
	}
	if flagProfile != "" {
		m["profile"] = flagProfile
	}
	if flagTimeout != "" {
		m["timeout"] = flagTimeout
	}
	return m
}

var checkCmd = &cobra.Command{
	Use:   "check [file]",
	Short: "Check a document",
	Long: `Check a document with the checking service, or with an LLM provider when
--llm or --provider is given. Reads stdin when file is "-" or omitted.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(buildOverrides())
		if err != nil {
			return err
		}
		if flagNoRedact {
			cfg.Privacy.RedactSecrets = false
		}

		path := ""
		if len(args) == 1 && args[0] != "-" {
			path = args[0]
		}
		req, err := buildRequest(cmd.InOrStdin(), path, cfg)
		if err != nil {
			return err
		}
		if flagPromptFile != "" {
			prompt, err := os.ReadFile(flagPromptFile)
			if err != nil {
				return fmt.Errorf("reading prompt file: %w", err)
			}
			req.SystemPrompt = string(prompt)
		}

		logger, err := newLogger(cfg.Log)
		if err != nil {
			return err
		}
		defer logger.Sync() //nolint:errcheck

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		exitCode = runCheck(ctx, cmd.ErrOrStderr(), cfg, req, path, logger)
		return nil
	},
}

// buildRequest reads the document at path, or r when path is empty, into a
// check request. Binary and markup formats are sent as base64 files.
func buildRequest(r io.Reader, path string, cfg config.Config) (check.Request, error) {
	var (
		data []byte
		err  error
	)
	if path == "" {
		data, err = io.ReadAll(io.LimitReader(r, check.MaxFileSize+1))
	} else {
		if !check.IsSupported(path) {
			return check.Request{}, fmt.Errorf("unsupported file type %q (supported: %v)", filepath.Ext(path), check.SupportedFormats)
		}
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return check.Request{}, fmt.Errorf("reading input: %w", err)
	}
	if len(data) > check.MaxFileSize {
		return check.Request{}, fmt.Errorf("input is %d bytes; the limit is %d", len(data), check.MaxFileSize)
	}
	if len(data) == 0 {
		return check.Request{}, errors.New("no content to check")
	}

	req := check.Request{
		ContentType: check.ContentText,
		Content:     string(data),
		ProfileID:   cfg.Check.ProfileID,
		ProfileName: flagProfileName,
		LanguageID:  cfg.Check.Language,
		Model:       cfg.LLM.Model,
		Provider:    check.ProviderNative,
	}
	if path != "" {
		req.FileName = filepath.Base(path)
		switch check.FormatFor(path) {
		case check.FormatHTML, check.FormatDocx, check.FormatPDF:
			req.ContentType = check.ContentFile
			req.Content = base64.StdEncoding.EncodeToString(data)
		}
	}
	if flagLLM || flagProvider != "" {
		req.Provider = check.ProviderLLM
	}
	return req, nil
}

func runCheck(ctx context.Context, stderr io.Writer, cfg config.Config, req check.Request, path string, logger *zap.Logger) int {
	backend, native, err := checkBackend(cfg, req, logger)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitCodeFor(err)
	}

	if native != nil && !req.IsLLM() {
		resolveProfile(ctx, native, &req, logger)
	}
	if req.ProfileName == "" {
		req.ProfileName = "Unknown"
	}

	var hist coordinator.History
	if cfg.History.Enabled && !flagNoHistory {
		store, err := openHistory(cfg)
		if err != nil {
			logger.Warn("history disabled", zap.Error(err))
		} else {
			defer store.Close()
			hist = store
		}
	}

	progress := &progressPrinter{w: stderr}
	coord := coordinator.New(backend, hist, coordinator.Options{
		Timeout:      cfg.Check.Timeout,
		PollInterval: cfg.Check.PollInterval,
		Logger:       logger,
		OnChange:     progress.update,
	})
	defer coord.Close()

	start := time.Now()
	if err := coord.Submit(ctx, req); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitCodeFor(err)
	}
	state, err := coord.Wait(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitRuntimeError
	}
	if state.Status == coordinator.StatusFailed {
		fmt.Fprintf(stderr, "Error: %s\n", state.Error)
		return exitCodeFor(state.Err)
	}
	if state.Result == nil {
		fmt.Fprintln(stderr, "Error: check finished without a result")
		return ExitRuntimeError
	}

	report := &output.Report{
		Result:   state.Result,
		Source:   path,
		Content:  reportContent(req),
		Profile:  req.ProfileName,
		Version:  version,
		Duration: time.Since(start),
	}
	if d := state.Result.Debug; d != nil && d.Provider != "" {
		report.Provider = d.Provider
		report.Model = d.Model
	} else if req.IsLLM() {
		report.Provider = cfg.LLM.Provider
		report.Model = req.Model
	} else {
		report.Provider = "checking service"
	}

	if err := output.WriteReport(report, cfg.Format, flagOut); err != nil {
		fmt.Fprintf(stderr, "Error writing output: %v\n", err)
		return ExitRuntimeError
	}

	if flagMinScore > 0 && state.Result.Score < flagMinScore {
		fmt.Fprintf(stderr, "Score %d is below the minimum of %d\n", state.Result.Score, flagMinScore)
		return ExitBelowMin
	}
	return ExitSuccess
}

// checkBackend returns the backend for req: a running scribe server when
// --server is set, otherwise the in-process engine req asks for. native is
// set when the checking service is used directly.
func checkBackend(cfg config.Config, req check.Request, logger *zap.Logger) (coordinator.Backend, *checking.Client, error) {
	if flagServer != "" {
		token := flagToken
		if token == "" {
			token = cfg.Checking.Token
		}
		return gateway.NewRemote(flagServer, token, nil), nil, nil
	}

	if req.IsLLM() {
		llm, err := newLLMStack(cfg, logger)
		if err != nil {
			return nil, nil, err
		}
		return gateway.NewLocal(nil, llm.checker, logger), nil, nil
	}

	native, err := newNative(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return gateway.NewLocal(native, nil, logger), native, nil
}

// resolveProfile fills in the service's default profile and the profile's
// display name from the capabilities. Failures leave req unchanged.
func resolveProfile(ctx context.Context, native *checking.Client, req *check.Request, logger *zap.Logger) {
	if req.ProfileID != "" && req.ProfileName != "" {
		return
	}
	caps, err := native.Capabilities(ctx)
	if err != nil {
		logger.Debug("fetching capabilities failed", zap.Error(err))
		return
	}
	if req.ProfileID == "" {
		req.ProfileID = caps.DefaultGuidanceProfileID
	}
	if req.ProfileName == "" {
		req.ProfileName = caps.ProfileName(req.ProfileID)
	}
}

// reportContent is the text issue offsets refer to.
func reportContent(req check.Request) string {
	if req.ContentType != check.ContentFile {
		return req.Content
	}
	text, err := extract.Text(req.Content, req.ContentType, req.FileName)
	if err != nil {
		return ""
	}
	return text
}

// exitCodeFor maps a check failure to an exit code.
func exitCodeFor(err error) int {
	var cfgErr *providers.ConfigError
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, coordinator.ErrCheckTimeout), errors.Is(err, context.DeadlineExceeded):
		return ExitTimeout
	case checking.IsAuthError(err), providers.IsAuthError(err), errors.As(err, &cfgErr):
		return ExitAuthError
	default:
		return ExitRuntimeError
	}
}

// progressPrinter reports status changes on stderr.
type progressPrinter struct {
	mu   sync.Mutex
	w    io.Writer
	last coordinator.Status
	pct  int
}

func (p *progressPrinter) update(s coordinator.State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if s.Status == p.last && s.Progress == p.pct {
		return
	}
	p.last, p.pct = s.Status, s.Progress
	switch s.Status {
	case coordinator.StatusSubmitting:
		fmt.Fprintln(p.w, "Submitting check...")
	case coordinator.StatusProcessing:
		if s.Progress > 0 {
			fmt.Fprintf(p.w, "Processing %s (%d%%)\n", s.CheckID, s.Progress)
		} else {
			fmt.Fprintf(p.w, "Processing %s\n", s.CheckID)
		}
	}
}

func init() {
	f := checkCmd.Flags()
	f.BoolVar(&flagLLM, "llm", false, "Check with the configured LLM provider instead of the checking service")
	f.StringVar(&flagProvider, "provider", "", "LLM provider (sap-ai-core, openai, openrouter, anthropic, gemini, ollama); implies --llm")
	f.StringVar(&flagModel, "model", "", "LLM model name")
	f.StringVar(&flagProfile, "profile", "", "Guidance profile id")
	f.StringVar(&flagProfileName, "profile-name", "", "Guidance profile display name for history")
	f.StringVar(&flagLanguage, "language", "", "Language id (default from config, en)")
	f.StringVar(&flagServer, "server", "", "Check through a running scribe server at this URL")
	f.StringVar(&flagToken, "token", "", "Bearer token for --server")
	f.StringVar(&flagTimeout, "timeout", "", "Give up on a processing check after this long (e.g. 2m)")
	f.StringVar(&flagFormat, "format", "", "Output format (text, json, markdown, sarif)")
	f.StringVar(&flagOut, "out", "", "Output file path (default: stdout)")
	f.IntVar(&flagMinScore, "min-score", 0, "Exit with code 1 when the score is below this")
	f.StringVar(&flagPromptFile, "prompt-file", "", "File with a custom system prompt for LLM checks")
	f.BoolVar(&flagNoHistory, "no-history", false, "Do not record the check in history")
	f.BoolVar(&flagNoRedact, "no-redact", false, "Send content to the LLM without secret redaction")
}
