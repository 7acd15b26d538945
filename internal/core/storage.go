package core

import (
	"context"
	"fmt"
	"io"

	"deckhistory/internal/config"
	"deckhistory/internal/infra/persistence/memory"
	"deckhistory/internal/infra/persistence/postgres"
	"deckhistory/internal/infra/persistence/sqlite"
	"deckhistory/pkg/domain"
)

// StorageDriver identifies a concrete history store implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
)

// OpenHistoryStore builds the history store selected by cfg.Driver. The
// returned closer releases database handles and is never nil.
func OpenHistoryStore(ctx context.Context, cfg config.StorageConfig) (domain.HistoryStore, io.Closer, error) {
	switch StorageDriver(cfg.Driver) {
	case "", StorageMemory:
		return memory.NewStore(), nopCloser{}, nil
	case StorageSQLite:
		store, err := sqlite.NewStore(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil
	case StoragePostgres:
		store, err := postgres.NewStore(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %s", cfg.Driver)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
