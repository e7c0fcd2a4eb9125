package middleware

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/tiered-shortener/internal/ratelimit"
	"go.uber.org/zap"
)

// RateLimiter returns a Huma middleware that applies sliding-window limits per
// client (IP and User-Agent) and route. Operations carry their limits in
// ratelimit.EndpointConfig metadata; others use defaults.
//
// The key uses the operation's route template (e.g. "/{token}"), so all
// requests matching a route share counters per client.
func RateLimiter(
	api huma.API,
	limiter *ratelimit.SlidingWindowLimiter,
	defaults []ratelimit.LimitConfig,
	logger *zap.Logger,
) func(ctx huma.Context, next func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		limits := defaults
		path := getOperationPath(ctx)

		if cfg := ratelimit.GetEndpointConfig(ctx); cfg != nil {
			if cfg.Disabled {
				next(ctx)

				return
			}

			if len(cfg.Limits) > 0 {
				limits = cfg.Limits
			}
		}

		key := clientKey(ctx) + ":" + ctx.Method() + ":" + path

		exceeded, err := limiter.Allow(ctx.Context(), key, limits)
		if err != nil {
			logger.Error("rate limit check failed", zap.String("path", path), zap.Error(err))
			_ = huma.WriteErr(api, ctx, http.StatusInternalServerError, "internal server error")

			return
		}

		if exceeded != nil {
			logger.Warn("rate limit exceeded",
				zap.String("path", path),
				zap.String("method", ctx.Method()),
				zap.Int64("count", exceeded.Count),
				zap.Int64("max", exceeded.Config.Max),
				zap.Duration("window", exceeded.Config.Window),
				zap.String("client_ip", clientIP(ctx)),
			)

			retryAfter := int(math.Ceil(exceeded.Config.Window.Seconds()))
			ctx.SetHeader("Retry-After", strconv.Itoa(retryAfter))

			msg := fmt.Sprintf("rate limit exceeded: %d/%d requests in %s",
				exceeded.Count, exceeded.Config.Max, exceeded.Config.Window)
			_ = huma.WriteErr(api, ctx, http.StatusTooManyRequests, msg)

			return
		}

		next(ctx)
	}
}

// getOperationPath extracts the path from the operation, if available.
func getOperationPath(ctx huma.Context) string {
	if op := ctx.Operation(); op != nil {
		return op.Path
	}

	return ""
}

// clientKey generates a unique key for rate limiting based on IP and User-Agent.
func clientKey(ctx huma.Context) string {
	hash := sha256.Sum256([]byte(clientIP(ctx) + "|" + ctx.Header("User-Agent")))

	return hex.EncodeToString(hash[:])
}

// clientIP extracts the client IP from the request, considering proxies.
func clientIP(ctx huma.Context) string {
	if xff := ctx.Header("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")

		return strings.TrimSpace(first)
	}

	if xri := ctx.Header("X-Real-IP"); xri != "" {
		return xri
	}

	addr := ctx.RemoteAddr()
	if addr == "" {
		addr = ctx.Host()
	}

	ip, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}

	return ip
}
