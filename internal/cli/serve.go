package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dshills/scribe/internal/config"
	"github.com/dshills/scribe/internal/server"
)

var flagAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		overrides := map[string]string{}
		if flagAddr != "" {
			overrides["addr"] = flagAddr
		}
		cfg, err := loadConfig(overrides)
		if err != nil {
			return err
		}
		logger, err := newLogger(cfg.Log)
		if err != nil {
			return err
		}
		defer logger.Sync() //nolint:errcheck

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := runServe(ctx, cfg, logger); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
			exitCode = ExitRuntimeError
		}
		return nil
	},
}

func runServe(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	parts, err := newLocalParts(cfg, logger)
	if err != nil {
		return err
	}

	scfg := server.Config{
		Backend: parts.gateway,
		Token:   cfg.Checking.Token,
		Logger:  logger,
	}
	if parts.native != nil {
		scfg.Service = parts.native
	}
	if parts.llm != nil {
		scfg.Models = parts.llm.client
	}
	if cfg.History.Enabled {
		store, err := openHistory(cfg)
		if err != nil {
			logger.Warn("history disabled", zap.Error(err))
		} else {
			defer store.Close()
			scfg.History = store
		}
	}

	logger.Info("scribe server starting",
		zap.String("addr", cfg.Server.Addr),
		zap.Bool("checkingService", parts.native != nil),
		zap.Bool("llm", parts.llm != nil),
		zap.String("version", version),
	)
	return server.New(scfg).ListenAndServe(ctx, cfg.Server.Addr)
}

func init() {
	serveCmd.Flags().StringVar(&flagAddr, "addr", "", "Listen address (default from config, :8080)")
}
