package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dshills/scribe/internal/providers"
)

var flagModelsProvider string

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "LLM provider and model management",
}

func modelsOverrides() map[string]string {
	m := map[string]string{}
	if flagModelsProvider != "" {
		m["provider"] = flagModelsProvider
	}
	return m
}

var modelsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List models the configured provider can serve",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(modelsOverrides())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		p, err := providers.New(cfg.LLM)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
			exitCode = ExitAuthError
			return nil
		}
		client := providers.NewClient(p, nil, zap.NewNop())

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		models, err := client.ListModels(ctx)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
			fmt.Fprintf(out, "%s default model: %s\n", p.Name(), providers.DefaultModel(p.Name()))
			exitCode = exitCodeFor(err)
			return nil
		}

		fmt.Fprintf(out, "%s:\n", p.Name())
		for _, m := range models {
			if m.Name != "" && m.Name != m.ID {
				fmt.Fprintf(out, "  - %s (%s)\n", m.ID, m.Name)
			} else {
				fmt.Fprintf(out, "  - %s\n", m.ID)
			}
		}
		return nil
	},
}

var modelsDoctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Validate provider credentials",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(modelsOverrides())
		if err != nil {
			return err
		}
		out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()

		fmt.Fprintf(out, "Checking %s...\n", cfg.LLM.Provider)

		p, err := providers.New(cfg.LLM)
		if err != nil {
			fmt.Fprintf(errOut, "FAIL: %v\n", err)
			exitCode = ExitAuthError
			return nil
		}
		client := providers.NewClient(p, nil, zap.NewNop())

		model := cfg.LLM.Model
		if model == "" {
			model = providers.DefaultModel(p.Name())
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		_, err = client.ChatCompletion(ctx, providers.ChatCompletionRequest{
			Model:     model,
			Messages:  []providers.Message{{Role: "user", Content: "Respond with exactly: ok"}},
			MaxTokens: 1,
		})
		if err != nil {
			fmt.Fprintf(errOut, "FAIL: %v\n", err)
			exitCode = exitCodeFor(err)
			if exitCode == ExitTimeout {
				exitCode = ExitRuntimeError
			}
			return nil
		}

		fmt.Fprintf(out, "OK: %s (%s) is configured and responding\n", p.Name(), model)
		return nil
	},
}

func init() {
	modelsCmd.PersistentFlags().StringVar(&flagModelsProvider, "provider", "", "Provider to use instead of the configured one")
	modelsCmd.AddCommand(modelsListCmd)
	modelsCmd.AddCommand(modelsDoctorCmd)
}
