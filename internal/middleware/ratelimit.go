package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// Limiter counts hits per key in a fixed window.
type Limiter interface {
	// Take records a hit for key and reports whether it is within the limit,
	// how many hits remain and when the window resets.
	Take(ctx context.Context, key string) (allowed bool, remaining int, reset time.Duration, err error)
	Limit() int
}

// MemoryLimiter keeps fixed-window counters in process memory.
type MemoryLimiter struct {
	limit   int
	window  time.Duration
	now     func() time.Time
	mu      sync.Mutex
	windows map[string]*window
	stop    chan struct{}
}

type window struct {
	start time.Time
	count int
}

func NewMemoryLimiter(limit int, period time.Duration) *MemoryLimiter {
	l := &MemoryLimiter{
		limit:   limit,
		window:  period,
		now:     time.Now,
		windows: make(map[string]*window),
		stop:    make(chan struct{}),
	}
	go l.cleanup()
	return l
}

func (l *MemoryLimiter) Limit() int {
	return l.limit
}

func (l *MemoryLimiter) Take(_ context.Context, key string) (bool, int, time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[key]
	if !ok || now.Sub(w.start) >= l.window {
		w = &window{start: now}
		l.windows[key] = w
	}
	w.count++
	reset := l.window - now.Sub(w.start)
	remaining := l.limit - w.count
	if remaining < 0 {
		remaining = 0
	}
	return w.count <= l.limit, remaining, reset, nil
}

func (l *MemoryLimiter) Stop() {
	close(l.stop)
}

func (l *MemoryLimiter) cleanup() {
	ticker := time.NewTicker(l.window)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.mu.Lock()
			now := l.now()
			for key, w := range l.windows {
				if now.Sub(w.start) >= l.window {
					delete(l.windows, key)
				}
			}
			l.mu.Unlock()
		case <-l.stop:
			return
		}
	}
}

var fixedWindowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
  ttl = tonumber(ARGV[1])
end
return {current, ttl}
`)

// RedisLimiter shares fixed-window counters across replicas.
type RedisLimiter struct {
	client redis.UniversalClient
	prefix string
	limit  int
	window time.Duration
}

func NewRedisLimiter(client redis.UniversalClient, prefix string, limit int, period time.Duration) *RedisLimiter {
	prefix = strings.TrimSuffix(strings.TrimSpace(prefix), ":")
	if prefix == "" {
		prefix = "ge:rate_limit"
	}
	return &RedisLimiter{client: client, prefix: prefix, limit: limit, window: period}
}

func (l *RedisLimiter) Limit() int {
	return l.limit
}

func (l *RedisLimiter) Take(ctx context.Context, key string) (bool, int, time.Duration, error) {
	windowMs := l.window.Milliseconds()
	if windowMs < 1000 {
		windowMs = 1000
	}
	raw, err := fixedWindowScript.Run(ctx, l.client, []string{l.prefix + ":" + key}, windowMs).Result()
	if err != nil {
		return true, 0, 0, err
	}

	values, ok := raw.([]any)
	if !ok || len(values) != 2 {
		return true, 0, 0, fmt.Errorf("unexpected limiter response %T", raw)
	}
	count, ok1 := values[0].(int64)
	ttlMs, ok2 := values[1].(int64)
	if !ok1 || !ok2 {
		return true, 0, 0, fmt.Errorf("unexpected limiter values %T, %T", values[0], values[1])
	}

	remaining := l.limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return int(count) <= l.limit, remaining, time.Duration(ttlMs) * time.Millisecond, nil
}

// RateLimitMiddleware applies limiter per client IP. Limiter failures are
// logged and the request is let through.
func RateLimitMiddleware(limiter Limiter, scope string, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, remaining, reset, err := limiter.Take(c.Request.Context(), scope+":"+c.ClientIP())
		if err != nil {
			logger.Warn("rate limiter unavailable", "scope", scope, "error", err)
			c.Next()
			return
		}

		resetSeconds := int(math.Ceil(reset.Seconds()))
		if resetSeconds < 1 {
			resetSeconds = 1
		}
		c.Header("RateLimit-Limit", strconv.Itoa(limiter.Limit()))
		c.Header("RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("RateLimit-Reset", strconv.Itoa(resetSeconds))

		if !allowed {
			c.Header("Retry-After", strconv.Itoa(resetSeconds))
			RespondWithError(c, http.StatusTooManyRequests, "too_many_requests")
			return
		}
		c.Next()
	}
}
