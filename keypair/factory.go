package keypair

import (
	"context"
	"fmt"

	"github.com/mezonai/ppy/db"
)

const BackendPostgres = "postgres"

type StoreConfig struct {
	// Backend is leveldb, bolt, memory or postgres
	Backend string
	Path    string
	DSN     string
}

// OpenStore opens the configured keystore backend.
func OpenStore(ctx context.Context, cfg StoreConfig) (Store, error) {
	if cfg.Backend == BackendPostgres {
		store, err := OpenPgStore(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
	vendor := db.DBVendor(cfg.Backend)
	if vendor == "" {
		vendor = db.LevelDB
	}
	provider, err := db.CreateDBProvider(vendor, db.DBOptions{Directory: cfg.Path})
	if err != nil {
		return nil, fmt.Errorf("open keystore: %w", err)
	}
	return NewKVStore(provider), nil
}
