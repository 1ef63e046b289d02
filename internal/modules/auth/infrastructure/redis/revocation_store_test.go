package redis

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unreachableClient(t *testing.T) *redis.Client {
	t.Helper()
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRevocationStore_ExpiredTokenIsNoop(t *testing.T) {
	store := NewRevocationStore(unreachableClient(t))

	// no round trip happens, so the dead client does not matter
	err := store.Revoke(context.Background(), "jti", time.Now().Add(-time.Second))
	require.NoError(t, err)
}

func TestRevocationStore_PropagatesOutage(t *testing.T) {
	store := NewRevocationStore(unreachableClient(t))

	err := store.Revoke(context.Background(), "jti", time.Now().Add(time.Hour))
	assert.Error(t, err)

	revoked, err := store.IsRevoked(context.Background(), "jti")
	assert.Error(t, err)
	assert.False(t, revoked)
}
