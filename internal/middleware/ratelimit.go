// Package middleware holds the HTTP middleware chain: request logging,
// API key checks, rate limits and JWT validation.
package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"StationData.influxDB/internal/metrics"
	"StationData.influxDB/internal/models"
	"StationData.influxDB/internal/utils"
	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
)

const limitWindow = time.Minute

// Limiter counts requests per key in fixed windows.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// RedisLimiter keeps one counter per key and window in Redis, so limits
// hold across server instances.
type RedisLimiter struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

func NewRedisLimiter(client *redis.Client) *RedisLimiter {
	return &RedisLimiter{client: client, prefix: "ratelimit:", now: time.Now}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	slot := l.now().UnixNano() / int64(window)
	counterKey := fmt.Sprintf("%s%s:%d", l.prefix, key, slot)

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, counterKey)
	pipe.Expire(ctx, counterKey, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("rate limit counter: %w", err)
	}
	return incr.Val() <= int64(limit), nil
}

// MemoryLimiter is a single-process Limiter. Counters from past windows
// are dropped at most once per window.
type MemoryLimiter struct {
	mu        sync.Mutex
	entries   map[string]*windowCount
	lastSweep time.Time
	now       func() time.Time
}

type windowCount struct {
	slot   int64
	window time.Duration
	count  int
}

func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{
		entries: make(map[string]*windowCount),
		now:     time.Now,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := l.now()
	slot := now.UnixNano() / int64(window)

	l.mu.Lock()
	defer l.mu.Unlock()
	if now.Sub(l.lastSweep) >= window {
		l.sweep(now)
	}
	e, ok := l.entries[key]
	if !ok || e.slot != slot || e.window != window {
		e = &windowCount{slot: slot, window: window}
		l.entries[key] = e
	}
	e.count++
	return e.count <= limit, nil
}

func (l *MemoryLimiter) sweep(now time.Time) {
	for key, e := range l.entries {
		if now.UnixNano()/int64(e.window) != e.slot {
			delete(l.entries, key)
		}
	}
	l.lastSweep = now
}

// IPRateLimit rejects clients exceeding perMinute requests per minute.
// Limiter failures let the request through.
func IPRateLimit(limiter Limiter, perMinute int, logger zerolog.Logger) func(http.Handler) http.Handler {
	logger = logger.With().Str("middleware", "ip_ratelimit").Logger()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if perMinute <= 0 {
				next.ServeHTTP(w, r)
				return
			}
			ip := clientIP(r)
			allowed, err := limiter.Allow(r.Context(), "ip:"+ip, perMinute, limitWindow)
			if err != nil {
				logger.Error().Err(err).Msg("rate limiter unavailable")
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				metrics.IncRateLimited("ip")
				logger.Warn().Str("ip", ip).Str("path", r.URL.Path).Msg("rate limit exceeded")
				tooManyRequests(w, perMinute, "Too many requests - rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func tooManyRequests(w http.ResponseWriter, limit int, msg string) {
	w.Header().Set("Retry-After", strconv.Itoa(int(limitWindow.Seconds())))
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
	utils.RespondWithError(w, models.NewAPIError(models.ErrorCodeTooManyRequests, msg, nil, http.StatusTooManyRequests))
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
