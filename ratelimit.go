package web

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimit limits each client to rps requests per second with the given
// burst. Clients are keyed by session cookie, falling back to remote address
// when no cookie is present. Requests over the limit receive 429.
func RateLimit(rps float64, burst int) gin.HandlerFunc {
	pool := &limiterPool{
		limit:       rate.Limit(rps),
		burst:       burst,
		limiters:    make(map[string]*limiterEntry),
		lastCleanup: time.Now(),
	}

	return func(c *gin.Context) {
		key, err := c.Cookie(SessionCookie)
		if err != nil || key == "" {
			key = c.ClientIP()
		}

		if !pool.allow(key) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}

		c.Next()
	}
}

// limiterPool keeps one token bucket per client key, dropping buckets that
// have been idle for a while.
type limiterPool struct {
	limit rate.Limit
	burst int

	mu          sync.Mutex
	limiters    map[string]*limiterEntry
	lastCleanup time.Time
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func (p *limiterPool) allow(key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if time.Since(p.lastCleanup) > 10*time.Minute {
		p.cleanup()
	}

	entry, exists := p.limiters[key]
	if !exists {
		entry = &limiterEntry{limiter: rate.NewLimiter(p.limit, p.burst)}
		p.limiters[key] = entry
	}
	entry.lastSeen = time.Now()

	return entry.limiter.Allow()
}

func (p *limiterPool) cleanup() {
	cutoff := time.Now().Add(-30 * time.Minute)
	for key, entry := range p.limiters {
		if entry.lastSeen.Before(cutoff) {
			delete(p.limiters, key)
		}
	}
	p.lastCleanup = time.Now()
}
