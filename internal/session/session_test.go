package session

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreLoadAbsent(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "session.json"))

	token, err := store.Load()
	require.NoError(t, err, "a missing session is a normal state, not an error")
	assert.Nil(t, token)
}

func TestFileStoreRoundTrip(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "session.json"))

	saved := &Token{GuestToken: "abc123", CreatedAt: time.Now().UTC().Truncate(time.Second)}
	require.NoError(t, store.Save(saved))

	loaded, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, saved.GuestToken, loaded.GuestToken)
	assert.True(t, saved.CreatedAt.Equal(loaded.CreatedAt))
}

func TestFileStoreSaveOverwrites(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "session.json"))

	require.NoError(t, store.Save(&Token{GuestToken: "old"}))
	require.NoError(t, store.Save(&Token{GuestToken: "new"}))

	loaded, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "new", loaded.GuestToken)
}

func TestFileStoreInvalidate(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "session.json"))

	require.NoError(t, store.Save(&Token{GuestToken: "abc123"}))
	require.NoError(t, store.Invalidate())

	token, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, token)

	// Deleting an already-absent artifact is fine too.
	assert.NoError(t, store.Invalidate())
}

func TestFileStoreLoadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	store := NewFileStore(path)

	require.NoError(t, store.Save(&Token{GuestToken: "abc123"}))
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := store.Load()
	assert.Error(t, err)
}
