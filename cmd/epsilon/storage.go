package main

import (
	"fmt"
	"log/slog"

	"mercator-hq/epsilon/pkg/config"
	"mercator-hq/epsilon/pkg/ledger"
	"mercator-hq/epsilon/pkg/ledger/storage"
)

// openLedger creates the storage backend named by cfg.Backend.
func openLedger(cfg *config.LedgerConfig, logger *slog.Logger) (ledger.Storage, error) {
	switch cfg.Backend {
	case "memory":
		return storage.NewMemoryStorage(cfg.Memory.MaxEntries), nil
	case "sqlite":
		store, err := storage.NewSQLiteStorage(&storage.SQLiteConfig{
			Path:               cfg.SQLite.Path,
			Driver:             cfg.SQLite.Driver,
			BusyTimeout:        cfg.SQLite.BusyTimeout,
			CheckpointInterval: cfg.SQLite.CheckpointInterval,
			Logger:             logger,
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported ledger backend: %s", cfg.Backend)
	}
}
