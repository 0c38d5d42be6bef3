package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/digpatho/growth-api/pkg/anthropic"
)

// check-key talks to the API directly; it needs no database.
var checkKeyCmd = &cobra.Command{
	Use:   "check-key",
	Short: "Verify the configured Anthropic API key with a minimal live call",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Anthropic.Key == "" {
			fmt.Println("NO_KEY: GROWTH_ANTHROPIC_KEY is not set")
			return nil
		}

		client := anthropic.NewClient(cfg.Anthropic.Key)
		_, err := client.CreateMessage(cmd.Context(), anthropic.MessageRequest{
			Model:     cfg.Proxy.DefaultModel,
			MaxTokens: 5,
			Messages:  []anthropic.Message{{Role: "user", Content: "Hi"}},
		})
		if err == nil {
			fmt.Println("OK: key is valid and the account has credits")
			return nil
		}

		var apierr *anthropic.APIError
		switch {
		case errors.As(err, &apierr) && apierr.IsBilling():
			fmt.Println("NO_CREDITS: key is valid but the account has no credits")
		case errors.As(err, &apierr) && apierr.StatusCode == 401:
			fmt.Println("INVALID_KEY: key is invalid or revoked")
		case errors.As(err, &apierr):
			fmt.Printf("HTTP_%d: %s\n", apierr.StatusCode, apierr.Message)
		default:
			fmt.Printf("NETWORK_ERROR: %s\n", anthropic.Truncate(err.Error()))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkKeyCmd)
}
