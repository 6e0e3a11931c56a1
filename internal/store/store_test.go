package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"harvest-ledger/internal/config"
	"harvest-ledger/internal/errors"
)

// backends returns a fresh instance of every KV implementation.
func backends(t *testing.T) map[string]KV {
	t.Helper()

	sqliteStore, err := NewSQLiteStore(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqliteStore.Close() })

	fileStore, err := NewFileStore(afero.NewOsFs(), filepath.Join(t.TempDir(), "kv"))
	require.NoError(t, err)

	return map[string]KV{
		"sqlite": sqliteStore,
		"file":   fileStore,
		"memory": NewMemoryStore(),
	}
}

func TestKVContract(t *testing.T) {
	ctx := context.Background()

	for name, kv := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := kv.Get(ctx, "bitcoin-trade-tracker")
			assert.True(t, errors.Is(err, ErrNotFound), "missing key: %v", err)

			require.NoError(t, kv.Set(ctx, "bitcoin-trade-tracker", []byte(`{"sellTrades":[]}`)))
			got, err := kv.Get(ctx, "bitcoin-trade-tracker")
			require.NoError(t, err)
			assert.Equal(t, `{"sellTrades":[]}`, string(got))

			require.NoError(t, kv.Set(ctx, "bitcoin-trade-tracker", []byte(`{}`)))
			got, err = kv.Get(ctx, "bitcoin-trade-tracker")
			require.NoError(t, err)
			assert.Equal(t, `{}`, string(got), "Set must overwrite")

			require.NoError(t, kv.Delete(ctx, "bitcoin-trade-tracker"))
			require.NoError(t, kv.Delete(ctx, "bitcoin-trade-tracker"), "second delete is a no-op")
			_, err = kv.Get(ctx, "bitcoin-trade-tracker")
			assert.True(t, errors.Is(err, ErrNotFound))
		})
	}
}

func TestKeysAreIsolated(t *testing.T) {
	ctx := context.Background()

	for name, kv := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, kv.Set(ctx, "a/b", []byte("1")))
			require.NoError(t, kv.Set(ctx, "a", []byte("2")))

			v, err := kv.Get(ctx, "a/b")
			require.NoError(t, err)
			assert.Equal(t, "1", string(v))
		})
	}
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewMemoryStore().Set(ctx, "k", []byte("v"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFileStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()

	s1, err := NewFileStore(fs, "/data")
	require.NoError(t, err)
	require.NoError(t, s1.Set(ctx, "k", []byte("persisted")))

	s2, err := NewFileStore(fs, "/data")
	require.NoError(t, err)
	v, err := s2.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "persisted", string(v))

	exists, err := afero.Exists(fs, "/data/k.json.tmp")
	require.NoError(t, err)
	assert.False(t, exists, "temporary file must not be left behind")
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	kv, err := Open(config.StorageConfig{Driver: config.DriverSQLite, Path: filepath.Join(dir, "x.db")})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, kv)
	require.NoError(t, kv.Close())

	kv, err = Open(config.StorageConfig{Driver: config.DriverFile, Path: filepath.Join(dir, "files")})
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, kv)

	kv, err = Open(config.StorageConfig{Driver: config.DriverMemory})
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, kv)

	_, err = Open(config.StorageConfig{Driver: "redis"})
	assert.True(t, errors.Is(err, errors.ErrConfigInvalid))
}
