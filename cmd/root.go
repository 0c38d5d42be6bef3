package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/digpatho/growth-api/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "growth-api",
	Short: "AI lead-enrichment backend",
	Long:  "HTTP service and CLI for the growth CRM: AI email discovery, lead description enrichment, Apollo email matching, and a server-side Anthropic proxy.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
