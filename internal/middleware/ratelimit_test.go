package middleware_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/tiered-shortener/internal/middleware"
	"github.com/serroba/tiered-shortener/internal/ratelimit"
	"github.com/serroba/tiered-shortener/internal/store"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

// capturingStore records the keys it is asked about.
type capturingStore struct {
	keys []string
	err  error
}

func (c *capturingStore) Record(_ context.Context, key string, _ time.Duration) (int64, error) {
	c.keys = append(c.keys, key)

	return 1, c.err
}

func redirectOp(cfg *ratelimit.EndpointConfig) *huma.Operation {
	op := &huma.Operation{Method: http.MethodGet, Path: "/{token}"}
	if cfg != nil {
		op.Metadata = map[string]any{ratelimit.MetadataKey: *cfg}
	}

	return op
}

func run(mw func(huma.Context, func(huma.Context)), ctx *mockHumaContext) bool {
	called := false
	mw(ctx, func(_ huma.Context) { called = true })

	return called
}

func TestRateLimiter(t *testing.T) {
	t.Run("allows until the endpoint limit then rejects with Retry-After", func(t *testing.T) {
		limiter := ratelimit.NewSlidingWindowLimiter(store.NewRateLimitMemoryStore())
		cfg := &ratelimit.EndpointConfig{Limits: []ratelimit.LimitConfig{{Window: time.Minute, Max: 2}}}
		mw := middleware.RateLimiter(newTestAPI(), limiter, ratelimit.DefaultLimits(), zap.NewNop())

		for range 2 {
			ctx := newMockHumaContext(redirectOp(cfg))
			ctx.headers["User-Agent"] = testUserAgent
			assert.True(t, run(mw, ctx))
		}

		ctx := newMockHumaContext(redirectOp(cfg))
		ctx.headers["User-Agent"] = testUserAgent

		assert.False(t, run(mw, ctx))
		assert.Equal(t, http.StatusTooManyRequests, ctx.statusCode)
		assert.Equal(t, "60", ctx.respHeaders["Retry-After"])
		assert.Contains(t, string(ctx.written), "rate limit exceeded")
	})

	t.Run("falls back to default limits", func(t *testing.T) {
		limiter := ratelimit.NewSlidingWindowLimiter(store.NewRateLimitMemoryStore())
		defaults := []ratelimit.LimitConfig{{Window: time.Minute, Max: 1}}
		mw := middleware.RateLimiter(newTestAPI(), limiter, defaults, zap.NewNop())

		assert.True(t, run(mw, newMockHumaContext(redirectOp(nil))))
		assert.False(t, run(mw, newMockHumaContext(redirectOp(nil))))
	})

	t.Run("disabled endpoints skip the limiter", func(t *testing.T) {
		s := &capturingStore{}
		mw := middleware.RateLimiter(newTestAPI(), ratelimit.NewSlidingWindowLimiter(s), ratelimit.DefaultLimits(), zap.NewNop())

		assert.True(t, run(mw, newMockHumaContext(redirectOp(&ratelimit.EndpointConfig{Disabled: true}))))
		assert.Empty(t, s.keys)
	})

	t.Run("clients are keyed by IP and User-Agent", func(t *testing.T) {
		s := &capturingStore{}
		mw := middleware.RateLimiter(newTestAPI(), ratelimit.NewSlidingWindowLimiter(s), ratelimit.DefaultLimits(), zap.NewNop())

		first := newMockHumaContext(redirectOp(nil))
		first.headers["User-Agent"] = testUserAgent
		run(mw, first)

		same := newMockHumaContext(redirectOp(nil))
		same.headers["User-Agent"] = testUserAgent
		run(mw, same)

		otherAgent := newMockHumaContext(redirectOp(nil))
		otherAgent.headers["User-Agent"] = "Other/2.0"
		run(mw, otherAgent)

		proxied := newMockHumaContext(redirectOp(nil))
		proxied.headers["User-Agent"] = testUserAgent
		proxied.headers["X-Forwarded-For"] = "203.0.113.195, 70.41.3.18"
		run(mw, proxied)

		assert.Equal(t, s.keys[0], s.keys[1])
		assert.NotEqual(t, s.keys[0], s.keys[2])
		assert.NotEqual(t, s.keys[0], s.keys[3])
		assert.Contains(t, s.keys[0], ":GET:/{token}:")
	})

	t.Run("store failures are internal errors", func(t *testing.T) {
		s := &capturingStore{err: errors.New("redis down")}
		mw := middleware.RateLimiter(newTestAPI(), ratelimit.NewSlidingWindowLimiter(s), ratelimit.DefaultLimits(), zap.NewNop())

		ctx := newMockHumaContext(redirectOp(nil))

		assert.False(t, run(mw, ctx))
		assert.Equal(t, http.StatusInternalServerError, ctx.statusCode)
	})
}
