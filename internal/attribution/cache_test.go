package attribution

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rafaesapata/AWS-EVO-sub012/internal/models"
)

func newTestCache(t *testing.T, ttl time.Duration) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	cache, err := NewRedisCache("redis://"+mr.Addr(), ttl)
	require.NoError(t, err)
	t.Cleanup(func() { cache.Close() })

	return cache, mr
}

func TestRedisCacheRoundTrip(t *testing.T) {
	cache, _ := newTestCache(t, time.Minute)
	ctx := context.Background()

	q := Query{LogGroup: "aws-waf-logs-main", OwnerAccountID: "111122223333"}
	cfg := &models.MonitoringConfig{
		ID:             "cfg-1",
		OrganizationID: "org-1",
		LogGroupName:   "aws-waf-logs-main",
		IsActive:       true,
	}

	_, ok := cache.Get(ctx, q)
	assert.False(t, ok)

	cache.Set(ctx, q, cfg)

	got, ok := cache.Get(ctx, q)
	require.True(t, ok)
	assert.Equal(t, cfg.ID, got.ID)
	assert.Equal(t, cfg.OrganizationID, got.OrganizationID)
}

func TestRedisCacheEntriesExpire(t *testing.T) {
	cache, mr := newTestCache(t, 30*time.Second)
	ctx := context.Background()

	q := Query{LogGroup: "aws-waf-logs-main", OwnerAccountID: "111122223333"}
	cache.Set(ctx, q, &models.MonitoringConfig{ID: "cfg-1"})

	// A cached attribution must not outlive its TTL.
	mr.FastForward(31 * time.Second)

	_, ok := cache.Get(ctx, q)
	assert.False(t, ok)
}

func TestRedisCacheKeysAreScopedPerQuery(t *testing.T) {
	cache, _ := newTestCache(t, time.Minute)
	ctx := context.Background()

	cache.Set(ctx, Query{LogGroup: "aws-waf-logs-a", OwnerAccountID: "1"}, &models.MonitoringConfig{ID: "cfg-a"})

	_, ok := cache.Get(ctx, Query{LogGroup: "aws-waf-logs-b", OwnerAccountID: "1"})
	assert.False(t, ok)

	_, ok = cache.Get(ctx, Query{LogGroup: "aws-waf-logs-a", OwnerAccountID: "2"})
	assert.False(t, ok)
}

func TestNewRedisCacheRejectsUnboundedTTL(t *testing.T) {
	_, err := NewRedisCache("redis://localhost:6379", 0)
	assert.Error(t, err)

	_, err = NewRedisCache("redis://localhost:6379", -time.Second)
	assert.Error(t, err)
}
