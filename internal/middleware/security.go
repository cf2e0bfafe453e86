package middleware

import (
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// Rate limiter middleware
type RateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex
	rate     rate.Limit
	burst    int
	stopCh   chan struct{}

	startOnce sync.Once
	stopOnce  sync.Once
}

func NewRateLimiter(rps rate.Limit, burst int) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     rps,
		burst:    burst,
		stopCh:   make(chan struct{}),
	}
}

func (rl *RateLimiter) getLimiter(clientIP string) *rate.Limiter {
	rl.mu.RLock()
	limiter, exists := rl.limiters[clientIP]
	rl.mu.RUnlock()

	if !exists {
		rl.mu.Lock()
		// Double-check pattern
		if limiter, exists := rl.limiters[clientIP]; exists {
			rl.mu.Unlock()
			return limiter
		}

		limiter = rate.NewLimiter(rl.rate, rl.burst)
		rl.limiters[clientIP] = limiter
		rl.mu.Unlock()
	}

	return limiter
}

// Middleware enforces the limit per client IP. The cleanup goroutine runs
// until Stop is called.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	rl.startOnce.Do(func() { go rl.cleanup() })
	return rl.handle
}

func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.mu.Lock()
			// Drop limiters that are back at full burst.
			for ip, l := range rl.limiters {
				if l.Tokens() >= float64(rl.burst) {
					delete(rl.limiters, ip)
				}
			}
			rl.mu.Unlock()
		case <-rl.stopCh:
			return
		}
	}
}

func (rl *RateLimiter) handle(c *gin.Context) {
	limiter := rl.getLimiter(c.ClientIP())
	if !limiter.Allow() {
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error": "Rate limit exceeded",
		})
		c.Abort()
		return
	}
	c.Next()
}

func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

// SecurityHeaders sets browser hardening headers and rejects POSTs outside
// the JSON API.
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodPost && !strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.AbortWithStatusJSON(http.StatusMethodNotAllowed, gin.H{"error": "POST not allowed on non-API path", "path": c.Request.URL.Path})
			return
		}
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-XSS-Protection", "1; mode=block")

		// Media is streamed into <img>/<video> elements from this origin only.
		csp := "default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'; img-src 'self' data: blob:; media-src 'self' blob:; connect-src 'self' ws: wss:;"
		if strings.EqualFold(os.Getenv("GALLERY_ALLOW_IFRAME"), "true") {
			c.Header("Content-Security-Policy", csp+" frame-ancestors *;")
		} else {
			c.Header("X-Frame-Options", "SAMEORIGIN")
			c.Header("Content-Security-Policy", csp+" frame-ancestors 'self';")
		}
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		c.Next()
	}
}

// CORS middleware
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" {
			c.Header("Access-Control-Allow-Origin", origin)
		} else {
			c.Header("Access-Control-Allow-Origin", "*")
		}
		c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		c.Header("Access-Control-Allow-Credentials", "true")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusOK)
			return
		}

		c.Next()
	}
}
