package cache

import (
	"context"
	"testing"
	"time"

	"menu-gen-assistant/internal/infrastructure/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ctx = context.Background()

func newTestManager(maxSize int, ttl time.Duration) (*Manager, *time.Time) {
	m := NewManager(config.CacheConfig{Enabled: true, MaxSize: maxSize, TTL: ttl})
	clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return clock }
	return m, &clock
}

func TestNewManagerDisabled(t *testing.T) {
	assert.Nil(t, NewManager(config.CacheConfig{Enabled: false}))
}

func TestKeyDependsOnImage(t *testing.T) {
	a := Key("detect", []byte{1, 2, 3})
	b := Key("detect", []byte{1, 2, 4})
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, Key("detect", []byte{1, 2, 3}))
	assert.Contains(t, Key("detect", nil), "text:")
}

func TestGetSetAndExpiry(t *testing.T) {
	m, clock := newTestManager(10, time.Minute)
	defer m.Close()

	_, err := m.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, m.Set(ctx, "k", "v"))
	v, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", v)

	*clock = clock.Add(2 * time.Minute)
	_, err = m.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)

	stats := m.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(2), stats.Misses)
	assert.Equal(t, 0, stats.Size)
}

func TestSetEvictsLeastUsed(t *testing.T) {
	m, clock := newTestManager(2, time.Hour)
	defer m.Close()

	require.NoError(t, m.Set(ctx, "a", "1"))
	*clock = clock.Add(time.Second)
	require.NoError(t, m.Set(ctx, "b", "2"))
	_, err := m.Get(ctx, "a")
	require.NoError(t, err)

	require.NoError(t, m.Set(ctx, "c", "3"))

	_, err = m.Get(ctx, "b")
	assert.ErrorIs(t, err, ErrCacheMiss)
	_, err = m.Get(ctx, "a")
	assert.NoError(t, err)
	_, err = m.Get(ctx, "c")
	assert.NoError(t, err)
}

func TestRedisStoreKeyPrefix(t *testing.T) {
	s := NewRedisStore(nil, config.CacheConfig{TTL: time.Hour, KeyPrefix: "menugen:reply"})
	assert.Equal(t, "menugen:reply:text:abc", s.key("text:abc"))

	s = NewRedisStore(nil, config.CacheConfig{TTL: time.Hour})
	assert.Equal(t, "text:abc", s.key("text:abc"))
}
