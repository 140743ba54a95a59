package middleware

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/jgirmay/alif24/internal/common/errors"
	"github.com/jgirmay/alif24/internal/common/response"
	"github.com/jgirmay/alif24/pkg/config"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client key. A bucket holds the
// full request budget and refills evenly over the window.
type RateLimiter struct {
	limit    config.Limit
	message  string
	visitors map[string]*visitor
	mu       sync.Mutex
	now      func() time.Time
	swept    time.Time
}

func NewRateLimiter(limit config.Limit, message string) *RateLimiter {
	return &RateLimiter{
		limit:    limit,
		message:  message,
		visitors: make(map[string]*visitor),
		now:      time.Now,
	}
}

// Allow consumes one token for key and reports the tokens left.
func (rl *RateLimiter) Allow(key string) (bool, int) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.sweep(now)

	v, ok := rl.visitors[key]
	if !ok {
		every := rl.limit.Window / time.Duration(rl.limit.Requests)
		v = &visitor{limiter: rate.NewLimiter(rate.Every(every), rl.limit.Requests)}
		rl.visitors[key] = v
	}
	v.lastSeen = now

	allowed := v.limiter.AllowN(now, 1)
	remaining := int(v.limiter.TokensAt(now))
	if remaining < 0 {
		remaining = 0
	}
	return allowed, remaining
}

// sweep drops visitors idle for longer than a window, at most once per window.
func (rl *RateLimiter) sweep(now time.Time) {
	if now.Sub(rl.swept) < rl.limit.Window {
		return
	}
	rl.swept = now
	for key, v := range rl.visitors {
		if now.Sub(v.lastSeen) > rl.limit.Window {
			delete(rl.visitors, key)
		}
	}
}

// Middleware limits requests per client IP.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, remaining := rl.Allow(c.ClientIP())

		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.limit.Requests))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if !allowed {
			c.Header("Retry-After", strconv.Itoa(int(rl.limit.Window/time.Duration(rl.limit.Requests)/time.Second)+1))
			response.Error(c, errors.TooManyRequests(rl.message))
			return
		}
		c.Next()
	}
}

// RateLimits bundles the limiters the router mounts.
type RateLimits struct {
	General  gin.HandlerFunc
	Auth     gin.HandlerFunc
	Register gin.HandlerFunc
	Game     gin.HandlerFunc
}

// NewRateLimits builds the limiters from configuration. When limiting is
// disabled every handler is a pass-through.
func NewRateLimits(cfg config.RateLimitConfig) RateLimits {
	if !cfg.Enabled {
		pass := func(c *gin.Context) { c.Next() }
		return RateLimits{General: pass, Auth: pass, Register: pass, Game: pass}
	}
	return RateLimits{
		General:  NewRateLimiter(cfg.General, "Too many requests, please try again later.").Middleware(),
		Auth:     NewRateLimiter(cfg.Auth, "Too many authentication attempts, please try again after 15 minutes.").Middleware(),
		Register: NewRateLimiter(cfg.Register, "Too many accounts created, please try again after an hour.").Middleware(),
		Game:     NewRateLimiter(cfg.Game, "Too many game requests, please slow down.").Middleware(),
	}
}
