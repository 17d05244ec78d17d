package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var flagCapsJSON bool

var capabilitiesCmd = &cobra.Command{
	Use:   "capabilities",
	Short: "List the checking service's guidance profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(nil)
		if err != nil {
			return err
		}
		out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()

		native, err := newNative(cfg, zap.NewNop())
		if err != nil {
			fmt.Fprintf(errOut, "Error: %v\n", err)
			exitCode = ExitUsageError
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		caps, err := native.Capabilities(ctx)
		if err != nil {
			fmt.Fprintf(errOut, "Error: %v\n", err)
			exitCode = exitCodeFor(err)
			return nil
		}

		if flagCapsJSON {
			data, err := json.MarshalIndent(caps, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(data))
			return nil
		}

		fmt.Fprintln(out, "Guidance profiles:")
		for _, p := range caps.GuidanceProfiles {
			marker := " "
			if p.ID == caps.DefaultGuidanceProfileID {
				marker = "*"
			}
			fmt.Fprintf(out, " %s %-38s %-30s %s\n", marker, p.ID, p.DisplayName, p.Language.ID)
		}
		if len(caps.ContentFormats) > 0 {
			fmt.Fprint(out, "\nContent formats:")
			for _, f := range caps.ContentFormats {
				fmt.Fprintf(out, " %s", f.ID)
			}
			fmt.Fprintln(out)
		}
		return nil
	},
}

func init() {
	capabilitiesCmd.Flags().BoolVar(&flagCapsJSON, "json", false, "Print the raw capabilities as JSON")
}
