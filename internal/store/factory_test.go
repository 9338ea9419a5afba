package store_test

import (
	"testing"

	"shramsetu/internal/config"
	"shramsetu/internal/store"
	"shramsetu/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConfig(t *testing.T, redisDSN string) types.ConfigManager {
	t.Helper()
	t.Setenv("AUTH_KEY", "test-auth-key-minimum-16-chars")
	t.Setenv("REDIS_DSN", redisDSN)

	cm, err := config.NewManager()
	require.NoError(t, err)
	return cm
}

func TestNewStore_MemoryWhenNoRedisDSN(t *testing.T) {
	cm := newTestConfig(t, "")

	s, err := store.NewStore(cm)
	require.NoError(t, err)
	defer s.Close()

	assert.IsType(t, &store.MemoryStore{}, s)
}

func TestNewStore_InvalidRedisDSN(t *testing.T) {
	cm := newTestConfig(t, "not-a-valid-dsn")

	_, err := store.NewStore(cm)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse redis DSN")
}

func TestNewStore_UnreachableRedis(t *testing.T) {
	cm := newTestConfig(t, "redis://127.0.0.1:1")

	_, err := store.NewStore(cm)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to redis")
}
