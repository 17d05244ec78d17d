package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/scribe/internal/config"
	"github.com/dshills/scribe/internal/history"
	"github.com/dshills/scribe/internal/output"
)

var (
	flagHistoryFormat string
	flagHistoryLimit  int
	flagHistoryOffset int
	flagPruneKeep     int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse recorded checks",
}

// withHistory opens the history store for the duration of fn. Errors from
// fn are runtime failures, not usage errors.
func withHistory(cmd *cobra.Command, fn func(ctx context.Context, store *history.Store, cfg config.Config) error) error {
	overrides := map[string]string{}
	if flagHistoryFormat != "" {
		overrides["format"] = flagHistoryFormat
	}
	cfg, err := loadConfig(overrides)
	if err != nil {
		return err
	}
	store, err := openHistory(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := fn(ctx, store, cfg); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		exitCode = ExitRuntimeError
	}
	return nil
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent checks, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withHistory(cmd, func(ctx context.Context, store *history.Store, cfg config.Config) error {
			records, err := store.History(ctx, flagHistoryLimit, flagHistoryOffset)
			if err != nil {
				return err
			}
			return output.WriteHistory(cmd.OutOrStdout(), records, cfg.Format)
		})
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a recorded check and its issues",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withHistory(cmd, func(ctx context.Context, store *history.Store, cfg config.Config) error {
			rec, err := store.Get(ctx, args[0])
			if errors.Is(err, history.ErrNotFound) {
				return fmt.Errorf("no check with id %s", args[0])
			}
			if err != nil {
				return err
			}
			return output.WriteRecord(cmd.OutOrStdout(), rec, cfg.Format)
		})
	},
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a recorded check",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withHistory(cmd, func(ctx context.Context, store *history.Store, _ config.Config) error {
			if err := store.Delete(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		})
	},
}

var historyStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show check counts and the average score",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withHistory(cmd, func(ctx context.Context, store *history.Store, cfg config.Config) error {
			stats, err := store.Stats(ctx)
			if err != nil {
				return err
			}
			return output.WriteStats(cmd.OutOrStdout(), stats, cfg.Format)
		})
	},
}

var historyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete all but the newest checks",
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagPruneKeep < 0 {
			return fmt.Errorf("--keep must not be negative")
		}
		return withHistory(cmd, func(ctx context.Context, store *history.Store, _ config.Config) error {
			n, err := store.Prune(ctx, flagPruneKeep)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Pruned %s.\n", pluralize(n, "check"))
			return nil
		})
	},
}

func pluralize(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}

func init() {
	historyCmd.PersistentFlags().StringVar(&flagHistoryFormat, "format", "", "Output format (text, json)")
	historyListCmd.Flags().IntVar(&flagHistoryLimit, "limit", 50, "Maximum number of checks")
	historyListCmd.Flags().IntVar(&flagHistoryOffset, "offset", 0, "Number of checks to skip")
	historyPruneCmd.Flags().IntVar(&flagPruneKeep, "keep", 1000, "Number of newest checks to keep")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyDeleteCmd)
	historyCmd.AddCommand(historyStatsCmd)
	historyCmd.AddCommand(historyPruneCmd)
}
