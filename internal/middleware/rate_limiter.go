package middleware

import (
	"net/http"
	"sync"
	"time"

	"tillsync/internal/apierror"

	"github.com/gin-gonic/gin"
)

// ── PIN rate limiter ──────────────────────────────────────────────────────────
// Supervisor PINs are short, so guessing must be throttled even on a
// localhost-only API. One bucket per client IP, sliding one-minute window.

type ipEntry struct {
	count     int
	windowEnd time.Time
	mu        sync.Mutex
}

var (
	ipMap   = make(map[string]*ipEntry)
	ipMapMu sync.Mutex
)

// PinRateLimiter limits PIN validation attempts to 10 per minute per IP.
func PinRateLimiter() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()

		ipMapMu.Lock()
		entry, exists := ipMap[ip]
		if !exists {
			entry = &ipEntry{}
			ipMap[ip] = entry
		}
		ipMapMu.Unlock()

		entry.mu.Lock()
		defer entry.mu.Unlock()

		now := time.Now()
		if now.After(entry.windowEnd) {
			// Reset sliding window
			entry.count = 0
			entry.windowEnd = now.Add(time.Minute)
		}

		entry.count++
		if entry.count > 10 {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.New("too many PIN attempts, wait a minute"))
			return
		}
		c.Next()
	}
}
