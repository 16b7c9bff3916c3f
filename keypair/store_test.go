package keypair

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/mezonai/ppy/errors"
	"github.com/mezonai/ppy/keys"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStores(t *testing.T) map[string]Store {
	t.Helper()
	ctx := context.Background()
	stores := map[string]Store{}

	mem, err := OpenStore(ctx, StoreConfig{Backend: "memory"})
	require.NoError(t, err)
	stores["memory"] = mem

	level, err := OpenStore(ctx, StoreConfig{Backend: "leveldb", Path: filepath.Join(t.TempDir(), "keys")})
	require.NoError(t, err)
	stores["leveldb"] = level

	bolt, err := OpenStore(ctx, StoreConfig{Backend: "bolt", Path: filepath.Join(t.TempDir(), "keys.db")})
	require.NoError(t, err)
	stores["bolt"] = bolt

	if dsn := os.Getenv("PPY_TEST_POSTGRES_DSN"); dsn != "" {
		pg, err := OpenStore(ctx, StoreConfig{Backend: BackendPostgres, DSN: dsn})
		require.NoError(t, err)
		stores["postgres"] = pg
	}

	for _, s := range stores {
		s := s
		t.Cleanup(func() { _ = s.Close() })
	}
	return stores
}

func TestStores(t *testing.T) {
	ctx := context.Background()
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			kp, err := NewKeypair("init0", testBundle(), keys.DefaultPrefix, AESCodec{})
			require.NoError(t, err)
			require.NoError(t, store.Save(ctx, kp))

			got, err := store.Get(ctx, kp.Secret())
			require.NoError(t, err)
			assert.Equal(t, kp.PrivateKey, got.PrivateKey)
			assert.Equal(t, kp.PublicKeys, got.PublicKeys)

			for _, ref := range kp.PublicKeys {
				byPub, err := store.FindByPublicKey(ctx, ref.Key)
				require.NoError(t, err, ref.Role)
				assert.Equal(t, kp.ID, byPub.ID)
			}

			all, err := store.List(ctx)
			require.NoError(t, err)
			assert.NotEmpty(t, all)

			require.NoError(t, store.Delete(ctx, kp.Secret()))
			_, err = store.Get(ctx, kp.Secret())
			assert.ErrorIs(t, err, errors.ErrNotFound)
			_, err = store.FindByPublicKey(ctx, kp.PublicKeys[1].Key)
			assert.ErrorIs(t, err, errors.ErrNotFound)
		})
	}
}

func TestKVStore_ResaveReindexes(t *testing.T) {
	ctx := context.Background()
	store, err := OpenStore(ctx, StoreConfig{Backend: "memory"})
	require.NoError(t, err)
	defer store.Close()

	kp := NewHardwareKeypair("ledger", keys.PrivateKeyFromSeed("a").PublicKey().String(keys.DefaultPrefix), "ledger")
	require.NoError(t, store.Save(ctx, kp))

	oldKey := kp.PublicKeys[0].Key
	kp.PublicKeys = append(kp.PublicKeys, PublicKeyRef{Key: "PPYextra", Role: keys.RoleMemo})
	require.NoError(t, store.Save(ctx, kp))

	byExtra, err := store.FindByPublicKey(ctx, "PPYextra")
	require.NoError(t, err)
	assert.Equal(t, oldKey, byExtra.Secret())
}

func TestOpenStore_Errors(t *testing.T) {
	ctx := context.Background()
	_, err := OpenStore(ctx, StoreConfig{Backend: "rocksdb"})
	assert.Error(t, err)
	_, err = OpenStore(ctx, StoreConfig{Backend: BackendPostgres})
	assert.ErrorIs(t, err, errors.ErrMissingInput)
}
