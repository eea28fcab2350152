package storage

import (
	"context"
	"fmt"

	"codeberg.org/guideelbac/server/internal/config"
	"codeberg.org/guideelbac/server/internal/logger"
)

// opens the store selected by STORE_DRIVER; postgres is migrated on open
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverSQLite:
		store, err := NewSQLiteStore(cfg.SQLitePath, cfg.EmbeddingDimension)
		if err != nil {
			return nil, err
		}

		logger.Info("using sqlite knowledge store", "path", cfg.SQLitePath)
		return store, nil

	case config.StoreDriverPostgres:
		client, err := NewClient(ctx, cfg.DatabaseURL, cfg.EmbeddingDimension)
		if err != nil {
			return nil, err
		}

		if err := client.Migrate(ctx); err != nil {
			client.Close() //nolint:errcheck,gosec // best-effort cleanup on init failure
			return nil, err
		}

		logger.Info("using postgres knowledge store", "dimension", cfg.EmbeddingDimension)
		return client, nil
	}

	return nil, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
}
