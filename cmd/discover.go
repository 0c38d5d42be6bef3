package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var discoverCmd = &cobra.Command{
	Use:   "discover <lead-id> [lead-id...]",
	Short: "Run an AI email-discovery batch from the terminal",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		summary, err := env.Enrich.DiscoverEmails(cmd.Context(), args)
		if err != nil {
			return err
		}

		if summary.BreakerTripped {
			zap.L().Warn("batch aborted early: provider throttling")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	},
}

func init() {
	rootCmd.AddCommand(discoverCmd)
}
