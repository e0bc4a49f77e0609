package lkg_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quotawatch/quotawatch/pkg/lkg"
	"github.com/quotawatch/quotawatch/pkg/model"
)

func newTestCache(t *testing.T, ttl time.Duration, now *time.Time) *lkg.Cache {
	t.Helper()
	cache, err := lkg.New(ttl, lkg.WithClock(func() time.Time { return *now }))
	require.NoError(t, err)
	t.Cleanup(cache.Close)
	return cache
}

func TestCache_RememberThenGet(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	cache := newTestCache(t, 10*time.Minute, &now)

	snap := model.Snapshot{Name: "main", Remaining: 55.5, Timestamp: now}
	cache.Remember("main", snap)

	got, ok := cache.GetIfFresh("main", 0)
	require.True(t, ok)
	assert.Equal(t, snap, got)
}

func TestCache_ExpiresAfterTTL(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	cache := newTestCache(t, 10*time.Minute, &now)

	cache.Remember("main", model.Snapshot{Name: "main", Remaining: 55.5})

	now = now.Add(10*time.Minute + time.Second)
	_, ok := cache.GetIfFresh("main", 0)
	assert.False(t, ok)
}

func TestCache_ExplicitMaxAge(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	cache := newTestCache(t, 10*time.Minute, &now)

	cache.Remember("main", model.Snapshot{Name: "main", Remaining: 55.5})
	now = now.Add(2 * time.Minute)

	_, ok := cache.GetIfFresh("main", time.Minute)
	assert.False(t, ok)

	_, ok = cache.GetIfFresh("main", 5*time.Minute)
	assert.True(t, ok)
}

func TestCache_IgnoresImplausible(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	cache := newTestCache(t, 10*time.Minute, &now)

	cache.Remember("main", model.Snapshot{Name: "main"})

	_, ok := cache.GetIfFresh("main", 0)
	assert.False(t, ok)
}

func TestCache_OverwriteKeepsLatest(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	cache := newTestCache(t, 10*time.Minute, &now)

	cache.Remember("main", model.Snapshot{Name: "main", Remaining: 50})
	now = now.Add(9 * time.Minute)
	cache.Remember("main", model.Snapshot{Name: "main", Remaining: 40})

	// The overwrite refreshed the stored-at time.
	now = now.Add(5 * time.Minute)
	got, ok := cache.GetIfFresh("main", 0)
	require.True(t, ok)
	assert.Equal(t, 40.0, got.Remaining)
}

func TestCache_MissingName(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	cache := newTestCache(t, 10*time.Minute, &now)

	_, ok := cache.GetIfFresh("nobody", 0)
	assert.False(t, ok)
}
