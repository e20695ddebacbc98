package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/yeisme/docvault/pkg/configs"
	"github.com/yeisme/docvault/pkg/internal/types"
)

var rateLimited = types.ErrorResponse{Code: "RATE_LIMITED", Message: "Rate limit exceeded, please try again later"}

// RateLimitMiddleware 令牌桶限流，超出时返回 429.
func RateLimitMiddleware(cfg configs.RateLimitConfig) gin.HandlerFunc {
	if !cfg.Enabled || cfg.RPS <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	limiters := newKeyedLimiters(rate.Limit(cfg.RPS), cfg.Burst, cfg.Idle)
	keyOf := limitKey(cfg.Key)

	return func(c *gin.Context) {
		if exempt(c.Request.URL.Path, cfg.ExemptPaths) {
			c.Next()
			return
		}

		if !limiters.allow(keyOf(c), time.Now()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, rateLimited)
			return
		}

		c.Next()
	}
}

// limitKey 按配置返回限流键的提取函数，global 时所有请求共用一个键.
func limitKey(mode string) func(*gin.Context) string {
	mode = strings.TrimSpace(mode)

	switch {
	case strings.EqualFold(mode, "global"):
		return func(*gin.Context) string { return "global" }
	case strings.HasPrefix(strings.ToLower(mode), "header:"):
		header := mode[len("header:"):]

		return func(c *gin.Context) string {
			if v := c.GetHeader(header); v != "" {
				return "h:" + v
			}

			return clientIP(c)
		}
	default:
		return clientIP
	}
}

func exempt(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(path, p) {
			return true
		}
	}

	return false
}

// keyedLimiters 每个键一个令牌桶，闲置超过 idle 的桶在下次访问时顺带回收.
type keyedLimiters struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	idle      time.Duration
	entries   map[string]*limiterEntry
	lastSweep time.Time
}

type limiterEntry struct {
	limiter *rate.Limiter
	seen    time.Time
}

func newKeyedLimiters(limit rate.Limit, burst int, idle time.Duration) *keyedLimiters {
	return &keyedLimiters{
		limit:     limit,
		burst:     burst,
		idle:      idle,
		entries:   make(map[string]*limiterEntry),
		lastSweep: time.Now(),
	}
}

func (k *keyedLimiters) allow(key string, now time.Time) bool {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.idle > 0 && now.Sub(k.lastSweep) > k.idle {
		for key, e := range k.entries {
			if now.Sub(e.seen) > k.idle {
				delete(k.entries, key)
			}
		}

		k.lastSweep = now
	}

	e, ok := k.entries[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(k.limit, k.burst)}
		k.entries[key] = e
	}

	e.seen = now

	return e.limiter.AllowN(now, 1)
}

func clientIP(c *gin.Context) string {
	if ip := c.ClientIP(); ip != "" {
		return ip
	}

	if host, _, err := net.SplitHostPort(c.Request.RemoteAddr); err == nil {
		return host
	}

	if c.Request.RemoteAddr != "" {
		return c.Request.RemoteAddr
	}

	return "unknown"
}
