package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vastra_back_end/internal/models"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return New(rdb), mr
}

func TestUserCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)

	_, ok := c.GetUser(ctx, "u1")
	assert.False(t, ok)

	c.SetUser(ctx, &models.User{ID: "u1", Email: "a@b.in", Role: models.RoleAdmin, ExternalAuthID: "google:42"})
	u, ok := c.GetUser(ctx, "u1")
	require.True(t, ok)
	assert.Equal(t, models.RoleAdmin, u.Role)

	id, ok := c.UserIDForExternal(ctx, "google:42")
	require.True(t, ok)
	assert.Equal(t, "u1", id)

	mr.FastForward(UserCacheTTL + time.Second)
	_, ok = c.GetUser(ctx, "u1")
	assert.False(t, ok)
}

func TestWishlistInvalidation(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t)

	c.SetWishlist(ctx, "u1", []models.Product{{ID: "p1"}})
	got, ok := c.GetWishlist(ctx, "u1")
	require.True(t, ok)
	assert.Len(t, got, 1)

	c.InvalidateWishlist(ctx, "u1")
	_, ok = c.GetWishlist(ctx, "u1")
	assert.False(t, ok)
}

func TestCorruptEntryIsTreatedAsMiss(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)
	require.NoError(t, mr.Set("user:u1", "{not json"))

	_, ok := c.GetUser(ctx, "u1")
	assert.False(t, ok)
	assert.False(t, mr.Exists("user:u1"))
}

func TestIncrementRateLimit(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)

	for i := 1; i <= 3; i++ {
		n, err := c.IncrementRateLimit(ctx, "api_requests:1.2.3.4", time.Minute)
		require.NoError(t, err)
		assert.EqualValues(t, i, n)
	}
	mr.FastForward(time.Minute + time.Second)
	n, err := c.Counter(ctx, "api_requests:1.2.3.4")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestLock(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)

	release, err := c.Lock(ctx, "payment:verify:pay_1", 30*time.Second)
	require.NoError(t, err)

	_, err = c.Lock(ctx, "payment:verify:pay_1", 30*time.Second)
	assert.ErrorIs(t, err, ErrLocked)

	release()
	assert.False(t, mr.Exists("payment:verify:pay_1"))

	release2, err := c.Lock(ctx, "payment:verify:pay_1", 30*time.Second)
	require.NoError(t, err)
	release2()
}

func TestCooldown(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t)

	d, err := c.Cooldown(ctx, "login_cooldown:a@b.in")
	require.NoError(t, err)
	assert.Zero(t, d)

	require.NoError(t, c.StartCooldown(ctx, "login_cooldown:a@b.in", 15*time.Minute))
	d, err = c.Cooldown(ctx, "login_cooldown:a@b.in")
	require.NoError(t, err)
	assert.Greater(t, d, 14*time.Minute)
}
