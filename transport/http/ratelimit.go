package http

import (
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/layer-3/tagdesk/core"
	"github.com/layer-3/tagdesk/internal/logger"
)

const limiterIdle = 5 * time.Minute

type ipLimiter struct {
	mu          sync.Mutex
	limiters    map[string]*rate.Limiter
	rate        rate.Limit
	burst       int
	lastCleanup time.Time
}

func (l *ipLimiter) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if time.Since(l.lastCleanup) > limiterIdle {
		l.lastCleanup = time.Now()
		// A full bucket means the key has been idle.
		for k, lim := range l.limiters {
			if lim.Tokens() >= float64(l.burst) {
				delete(l.limiters, k)
			}
		}
	}

	lim, ok := l.limiters[key]
	if !ok {
		lim = rate.NewLimiter(l.rate, l.burst)
		l.limiters[key] = lim
	}

	return lim
}

// RateLimitByIP allows requests per window from every client IP, all of them
// available as a burst.
func RateLimitByIP(requests int, window time.Duration) gin.HandlerFunc {
	if requests <= 0 {
		requests = 1
	}

	rl := &ipLimiter{
		limiters:    make(map[string]*rate.Limiter),
		rate:        rate.Limit(float64(requests) / window.Seconds()),
		burst:       requests,
		lastCleanup: time.Now(),
	}

	return func(c *gin.Context) {
		ip := c.ClientIP()
		lim := rl.get(ip)

		if !lim.Allow() {
			r := lim.Reserve()
			retryAfter := max(int(r.Delay().Seconds()), 1)
			r.Cancel()

			c.Header("Retry-After", strconv.Itoa(retryAfter))
			logger.From(c.Request.Context()).Warn("rate_limit_exceeded",
				slog.String("client_ip", ip),
				slog.Int("retry_after", retryAfter),
			)
			abortWithError(c, core.ErrTooManyRequests)
			return
		}

		c.Next()
	}
}
