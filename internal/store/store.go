// Package store provides key-value persistence for the ledger state.
package store

import (
	"context"
	"fmt"

	"github.com/spf13/afero"

	"harvest-ledger/internal/config"
	"harvest-ledger/internal/errors"
)

// ErrNotFound is returned by Get when the key has never been written.
var ErrNotFound = errors.ErrNotFound

// KV is the save/load contract the ledger persists through. Each key holds
// one opaque blob.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Open returns the KV backend selected by the storage configuration.
func Open(cfg config.StorageConfig) (KV, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		return NewSQLiteStore(cfg.Path)
	case config.DriverFile:
		return NewFileStore(afero.NewOsFs(), cfg.Path)
	case config.DriverMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q: %w", cfg.Driver, errors.ErrConfigInvalid)
	}
}
