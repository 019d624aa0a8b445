package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestRateLimiter_Allow(t *testing.T) {
	mr, rdb := newTestRedis(t)
	l := NewRateLimiter(rdb, true)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := l.Allow(ctx, "login", "ip:1.2.3.4", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok, "hit %d", i+1)
	}
	ok, err := l.Allow(ctx, "login", "ip:1.2.3.4", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	// Another caller has its own bucket.
	ok, err = l.Allow(ctx, "login", "ip:5.6.7.8", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	mr.FastForward(time.Minute + time.Second)
	ok, err = l.Allow(ctx, "login", "ip:1.2.3.4", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "window expired")
}

func TestRateLimiter_DisabledAlwaysAllows(t *testing.T) {
	l := NewRateLimiter(nil, false)
	ok, err := l.Allow(context.Background(), "x", "y", 0, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	assert.False(t, RateLimitEnabled("development"))
	assert.False(t, RateLimitEnabled("test"))
	assert.True(t, RateLimitEnabled("production"))
}

func TestRateLimiter_HandlerPolicies(t *testing.T) {
	newApp := func(l *RateLimiter, policy FailPolicy) *fiber.App {
		app := fiber.New()
		app.Get("/", l.Handler("probe", 1, time.Minute, policy), func(c *fiber.Ctx) error {
			return c.SendStatus(fiber.StatusOK)
		})
		return app
	}

	_, rdb := newTestRedis(t)
	app := newApp(NewRateLimiter(rdb, true), FailOpen)
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	// No store: fail open lets traffic through, fail closed refuses it.
	resp, err = newApp(NewRateLimiter(nil, true), FailOpen).Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = newApp(NewRateLimiter(nil, true), FailClosed).Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
