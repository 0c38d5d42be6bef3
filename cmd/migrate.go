package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/digpatho/growth-api/internal/store"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the growth_leads schema migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Store.DatabaseURL == "" {
			return eris.New("GROWTH_STORE_DATABASE_URL is required")
		}

		st, err := store.NewPostgres(cmd.Context(), cfg.Store.DatabaseURL, cfg.Store.Pool)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(cmd.Context()); err != nil {
			return eris.Wrap(err, "migrate")
		}

		zap.L().Info("migration applied")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
