package client

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()

	_, err := store.Load()
	assert.ErrorIs(t, err, ErrNoSession)

	s := &Session{AccessToken: "tok", Email: "a@example.com"}
	require.NoError(t, store.Save(s))
	s.AccessToken = "mutated"

	got, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "tok", got.AccessToken)

	require.NoError(t, store.Clear())
	_, err = store.Load()
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestFileStore_RoundTripAndPermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	store := NewFileStore(path)

	_, err := store.Load()
	assert.ErrorIs(t, err, ErrNoSession)

	want := &Session{AccessToken: "tok", ExpiresAt: 1700000000, UserID: uuid.New(), Email: "a@example.com"}
	require.NoError(t, store.Save(want))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	got, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, want, got)

	require.NoError(t, store.Clear())
	require.NoError(t, store.Clear(), "clearing twice is fine")
	_, err = store.Load()
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestFileStore_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := NewFileStore(path).Load()
	assert.ErrorContains(t, err, "decode session")

	require.NoError(t, os.WriteFile(path, []byte(`{"email":"a@example.com"}`), 0o600))
	_, err = NewFileStore(path).Load()
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestSession_Expired(t *testing.T) {
	now := time.Unix(1700000000, 0)

	assert.False(t, (&Session{}).Expired(now))
	assert.False(t, (&Session{ExpiresAt: now.Unix() + 1}).Expired(now))
	assert.True(t, (&Session{ExpiresAt: now.Unix()}).Expired(now))
}
