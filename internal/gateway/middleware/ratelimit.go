package middleware

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/saransh1220/filebox/internal/shared/logging"
	"github.com/saransh1220/filebox/internal/shared/utils"
)

// CounterStore counts hits per key. The first hit of a key starts its ttl.
type CounterStore interface {
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// RedisCounter is a CounterStore shared by every instance of the service.
type RedisCounter struct {
	client redis.UniversalClient
}

func NewRedisCounter(client redis.UniversalClient) *RedisCounter {
	return &RedisCounter{client: client}
}

func (c *RedisCounter) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	pipe := c.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

// RateLimiter allows limit requests per client IP in each fixed window.
type RateLimiter struct {
	store  CounterStore
	limit  int
	window time.Duration
	now    func() time.Time
	logger *slog.Logger
}

func NewRateLimiter(store CounterStore, limit int, window time.Duration, logger *slog.Logger) *RateLimiter {
	if logger == nil {
		logger = slog.Default()
	}
	return &RateLimiter{
		store:  store,
		limit:  limit,
		window: window,
		now:    time.Now,
		logger: logger.With(logging.Component("ratelimit")),
	}
}

// Middleware answers 429 once a client is over its limit. When the counter
// store is unavailable requests are let through.
func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		now := l.now()
		windowNo := now.UnixNano() / int64(l.window)
		resetAt := time.Unix(0, (windowNo+1)*int64(l.window))
		key := "ratelimit:" + clientIP(r) + ":" + strconv.FormatInt(windowNo, 10)

		count, err := l.store.Incr(r.Context(), key, l.window)
		if err != nil {
			l.logger.WarnContext(r.Context(), "rate limit store unavailable", logging.Error(err))
			next.ServeHTTP(w, r)
			return
		}

		remaining := int64(l.limit) - count
		h := w.Header()
		h.Set("X-RateLimit-Limit", strconv.Itoa(l.limit))
		h.Set("X-RateLimit-Remaining", strconv.FormatInt(max(0, remaining), 10))
		h.Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

		if remaining < 0 {
			if retryAfter := int(resetAt.Sub(now).Seconds()); retryAfter > 0 {
				h.Set("Retry-After", strconv.Itoa(retryAfter))
			}
			utils.WriteError(w, http.StatusTooManyRequests, "Too many requests, please slow down.")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// clientIP is the host part of RemoteAddr. Forwarding headers are never read
// here; the router rewrites RemoteAddr only for trusted proxies.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
