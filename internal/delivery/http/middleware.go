package http

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/plateplan/backend/internal/domain"
)

// CORSMiddleware handles CORS for browser-based callers
func CORSMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		// Check if origin is allowed
		if isAllowedOrigin(origin, allowedOrigins) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")
			c.Writer.Header().Set("Access-Control-Max-Age", "3600")
		}

		// Handle preflight requests
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// isAllowedOrigin checks if the origin is in the allowed list
func isAllowedOrigin(origin string, allowedOrigins []string) bool {
	for _, allowed := range allowedOrigins {
		// Support wildcard matching, e.g. http://localhost:*
		if strings.HasSuffix(allowed, "*") {
			prefix := strings.TrimSuffix(allowed, "*")
			if strings.HasPrefix(origin, prefix) {
				return true
			}
		} else if origin == allowed {
			return true
		}
	}
	return false
}

// limiterEntry pairs one client's token bucket with its last activity.
type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// limiterPool hands out per-client-IP token buckets and evicts buckets idle
// longer than idleTTL, so the map does not grow with every address ever seen.
type limiterPool struct {
	mu        sync.Mutex
	entries   map[string]*limiterEntry
	perSecond int
	burst     int
	idleTTL   time.Duration
}

func newLimiterPool(perSecond, burst int, idleTTL time.Duration) *limiterPool {
	p := &limiterPool{
		entries:   make(map[string]*limiterEntry),
		perSecond: perSecond,
		burst:     burst,
		idleTTL:   idleTTL,
	}
	go p.cleanupIdle()
	return p
}

// allow consumes one token from the client's bucket, creating it on first use.
func (p *limiterPool) allow(ip string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.entries[ip]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(rate.Limit(p.perSecond), p.burst)}
		p.entries[ip] = e
	}
	e.lastSeen = time.Now()
	return e.limiter.Allow()
}

// sweep removes buckets idle longer than idleTTL.
func (p *limiterPool) sweep(now time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for ip, e := range p.entries {
		if now.Sub(e.lastSeen) > p.idleTTL {
			delete(p.entries, ip)
		}
	}
}

func (p *limiterPool) size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

// cleanupIdle sweeps idle buckets every 10 minutes.
func (p *limiterPool) cleanupIdle() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		p.sweep(time.Now())
	}
}

// RateLimitMiddleware applies a per-client-IP token bucket. perSecond is
// the sustained request rate, burst the bucket size.
func RateLimitMiddleware(perSecond, burst int) gin.HandlerFunc {
	if perSecond <= 0 {
		perSecond = 10
	}
	if burst <= 0 {
		burst = perSecond
	}
	pool := newLimiterPool(perSecond, burst, time.Hour)

	return func(c *gin.Context) {
		if !pool.allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": domain.ErrRateLimited.Error(),
			})
			return
		}
		c.Next()
	}
}

// LoggerMiddleware logs requests (simple version for now)
func LoggerMiddleware() gin.HandlerFunc {
	return gin.Logger()
}

// RecoveryMiddleware recovers from panics
func RecoveryMiddleware() gin.HandlerFunc {
	return gin.Recovery()
}
