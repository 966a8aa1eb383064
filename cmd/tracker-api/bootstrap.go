package main

import (
	"context"
	"fmt"

	"github.com/docuflow/extraction-tracker/internal/config"
	"github.com/docuflow/extraction-tracker/internal/store"
	"github.com/docuflow/extraction-tracker/internal/store/firestore"
	"github.com/docuflow/extraction-tracker/pkg/log"
	"github.com/docuflow/extraction-tracker/pkg/migrations"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"
)

const firestoreType = "firestore"

// initLogger replaces the global zap logger. The returned func restores it and flushes.
func initLogger(cfg *config.Config) func() {
	logLvl, err := zap.ParseAtomicLevel(cfg.Service.LogLevel)
	if err != nil {
		logLvl = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	logger := log.InitLog(logLvl, cfg.Service.LogFormat)
	undo := zap.ReplaceGlobals(logger)
	return func() {
		_ = logger.Sync()
		undo()
	}
}

// openStore connects the configured backend. The sql backends are migrated first.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	if cfg.Database.Type == firestoreType {
		client, err := firestore.NewClient(ctx, cfg.Database.ProjectID)
		if err != nil {
			return nil, err
		}
		zap.S().Named("store").Infow("using firestore", "project", cfg.Database.ProjectID)
		return firestore.NewStore(client), nil
	}

	db, err := store.InitDB(cfg)
	if err != nil {
		return nil, fmt.Errorf("initializing data store: %w", err)
	}
	if err := migrate(db, cfg); err != nil {
		return nil, err
	}
	return store.NewStore(db), nil
}

func migrate(db *gorm.DB, cfg *config.Config) error {
	if cfg.Database.Type == "pgsql" {
		return migrations.MigrateStore(db, cfg)
	}
	return store.AutoMigrate(db)
}
