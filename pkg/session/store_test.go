package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dhanvan/kitefeed/pkg/core"
	"github.com/stretchr/testify/require"
)

func testSession() *core.Session {
	return &core.Session{
		UserID:       "AB1234",
		APIKey:       "testkey",
		RequestToken: "rtok-42",
		AccessToken:  "atok-99",
		CreatedAt:    time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC),
	}
}

func TestFileStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.json")
	store := NewFileStore(path)

	require.NoError(t, store.Save(testSession()))

	loaded, err := store.Load()
	require.NoError(t, err)
	require.Equal(t, testSession(), loaded)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFileStore_TokenFileLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.json")
	store := NewFileStore(path)

	require.NoError(t, store.Save(testSession()))

	content, err := os.ReadFile(path)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(content, &raw))

	// The on-disk field names are the contract other jobs read.
	require.Contains(t, raw, "request_token")
	require.Contains(t, raw, "access_token")
	require.Contains(t, raw, "user_id")
	require.Contains(t, raw, "timestamp")
}

func TestFileStore_LoadMissing(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "absent.json"))

	_, err := store.Load()
	require.ErrorIs(t, err, ErrNoSession)
}

func TestFileStore_Clear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.json")
	store := NewFileStore(path)

	require.NoError(t, store.Save(testSession()))
	require.NoError(t, store.Clear())
	require.NoError(t, store.Clear()) // clearing twice is fine

	_, err := store.Load()
	require.ErrorIs(t, err, ErrNoSession)
}

func TestFileStore_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "tokens.json")
	store := NewFileStore(path)

	require.NoError(t, store.Save(testSession()))

	_, err := store.Load()
	require.NoError(t, err)
}

func TestBuntStore_RoundTrip(t *testing.T) {
	store, err := FromMemory()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	_, err = store.Load()
	require.ErrorIs(t, err, ErrNoSession)

	require.NoError(t, store.Save(testSession()))

	loaded, err := store.Load()
	require.NoError(t, err)
	require.Equal(t, testSession(), loaded)

	require.NoError(t, store.Clear())
	_, err = store.Load()
	require.ErrorIs(t, err, ErrNoSession)
}

func TestBuntStore_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.db")

	store, err := FromFile(path)
	require.NoError(t, err)
	require.NoError(t, store.Save(testSession()))
	require.NoError(t, store.Close())

	reopened, err := FromFile(path)
	require.NoError(t, err)
	t.Cleanup(func() { reopened.Close() })

	loaded, err := reopened.Load()
	require.NoError(t, err)
	require.Equal(t, "atok-99", loaded.AccessToken)
}
