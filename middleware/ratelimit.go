package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/baechuer/recsys-storefront/internal/domain"
	"github.com/go-chi/httprate"
	"github.com/redis/go-redis/v9"
)

// slidingWindow trims entries older than the window, then admits the request when
// the remaining count is below the limit.
var slidingWindow = redis.NewScript(`
	local key = KEYS[1]
	local now = tonumber(ARGV[1])
	local window_start = tonumber(ARGV[2])
	local limit = tonumber(ARGV[3])
	local ttl = tonumber(ARGV[4])

	redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)
	local count = redis.call('ZCARD', key)
	if count < limit then
		redis.call('ZADD', key, now, now .. '-' .. math.random())
		redis.call('PEXPIRE', key, ttl)
		return 1
	end
	return 0
`)

// RedisRateLimiter implements a sliding window rate limiter backed by Redis.
type RedisRateLimiter struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisRateLimiter(rdb *redis.Client) *RedisRateLimiter {
	return &RedisRateLimiter{
		rdb:    rdb,
		prefix: "rl:storefront:",
	}
}

// RateLimitConfig configures the rate limit for a specific scope.
type RateLimitConfig struct {
	Limit  int
	Window time.Duration
	KeyFn  func(r *http.Request) string
}

// Middleware enforces the limit. Redis being absent or failing lets the request through.
func (l *RedisRateLimiter) Middleware(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if l.rdb == nil {
				next.ServeHTTP(w, r)
				return
			}

			allowed, err := l.isAllowed(r.Context(), l.prefix+cfg.KeyFn(r), cfg.Limit, cfg.Window)
			if err != nil || allowed {
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("Retry-After", strconv.Itoa(int(cfg.Window.Seconds())))
			writeRateLimited(w, r)
		})
	}
}

func (l *RedisRateLimiter) isAllowed(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := time.Now().UnixMilli()
	windowStart := now - window.Milliseconds()

	result, err := slidingWindow.Run(ctx, l.rdb, []string{key}, now, windowStart, limit, int(window.Milliseconds())).Int()
	if err != nil {
		return false, err
	}
	return result == 1, nil
}

// ActionRateLimit picks the redis limiter when a client is configured and falls back
// to an in-process httprate limiter otherwise.
func ActionRateLimit(rdb *redis.Client, limit int, window time.Duration) func(http.Handler) http.Handler {
	if rdb != nil {
		return NewRedisRateLimiter(rdb).Middleware(RateLimitConfig{
			Limit:  limit,
			Window: window,
			KeyFn:  KeyByUser,
		})
	}
	return httprate.Limit(limit, window,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			return KeyByUser(r), nil
		}),
		httprate.WithLimitHandler(writeRateLimited),
	)
}

// writeRateLimited answers with the same error envelope as the handlers.
func writeRateLimited(w http.ResponseWriter, r *http.Request) {
	resp := domain.APIError{}
	resp.Error.Code = "rate_limited"
	resp.Error.Message = "too many requests"
	resp.Error.RequestID = GetRequestID(r.Context())

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	json.NewEncoder(w).Encode(resp)
}

// KeyByIP returns the client IP as the rate limit key.
func KeyByIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return "ip:" + xff
	}
	return "ip:" + r.RemoteAddr
}

// KeyByUser keys on the resolved identity, falling back to IP for anonymous callers.
func KeyByUser(r *http.Request) string {
	if id := GetIdentity(r.Context()); !id.IsZero() {
		return "user:" + id.String()
	}
	return KeyByIP(r)
}
