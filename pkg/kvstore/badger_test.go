package kvstore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *BadgerKVStore {
	t.Helper()
	store, err := NewBadgerKVStore(BadgerConfig{DBPath: filepath.Join(t.TempDir(), "db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestBadgerKVStore_PutGetDelete(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Put("passkey/abc", []byte("value")))
	got, err := store.Get("passkey/abc")
	require.NoError(t, err)
	assert.Equal(t, []byte("value"), got)

	require.NoError(t, store.Delete("passkey/abc"))
	_, err = store.Get("passkey/abc")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.NoError(t, store.Delete("missing"))
}

func TestBadgerKVStore_KeysPrefix(t *testing.T) {
	store := newTestStore(t)
	for _, k := range []string{"a/2", "a/1", "b/1"} {
		require.NoError(t, store.Put(k, []byte(k)))
	}

	keys, err := store.Keys("a/")
	require.NoError(t, err)
	assert.Equal(t, []string{"a/1", "a/2"}, keys)

	all, err := store.Keys("")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestBadgerKVStore_Encrypted(t *testing.T) {
	store, err := NewBadgerKVStore(BadgerConfig{DBPath: t.TempDir(), EncryptionKey: make([]byte, 32)})
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Put("k", []byte("v")))
	got, err := store.Get("k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	_, err = NewBadgerKVStore(BadgerConfig{InMemory: true, EncryptionKey: make([]byte, 7)})
	assert.Error(t, err)
	_, err = NewBadgerKVStore(BadgerConfig{})
	assert.Error(t, err)
}

func TestBadgerKVStore_BackupRestore(t *testing.T) {
	src := newTestStore(t)
	require.NoError(t, src.Put("passkey/one", []byte("1")))
	require.NoError(t, src.Put("passkey/two", []byte("2")))

	path, err := src.Backup(t.TempDir())
	require.NoError(t, err)
	assert.FileExists(t, path)

	dst := newTestStore(t)
	require.NoError(t, dst.Restore(path))
	got, err := dst.Get("passkey/two")
	require.NoError(t, err)
	assert.Equal(t, []byte("2"), got)
}
