package main

import (
	"context"

	"github.com/docuflow/extraction-tracker/internal/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Migrate the db",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.New()
		if err != nil {
			return err
		}

		restore := initLogger(cfg)
		defer restore()

		if cfg.Database.Type == firestoreType {
			zap.S().Info("firestore is schemaless, nothing to migrate")
			return nil
		}

		s, err := openStore(context.Background(), cfg)
		if err != nil {
			zap.S().Errorw("migration failed", "error", err)
			return err
		}
		defer s.Close()

		zap.S().Info("db migrated")
		return nil
	},
}
