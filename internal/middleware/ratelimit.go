package middleware

import (
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/saiakshat556/farm-data-bridge/pkg/errors"
	"github.com/saiakshat556/farm-data-bridge/pkg/response"
)

// RateLimit allows maxRequests per window for each client IP and route,
// refilling the bucket continuously. Limiters idle for a full window are
// discarded.
func RateLimit(maxRequests int, window time.Duration) gin.HandlerFunc {
	if maxRequests <= 0 || window <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	limiters := newLimiterSet(rate.Every(window/time.Duration(maxRequests)), maxRequests, window)

	return func(c *gin.Context) {
		key := c.ClientIP() + "|" + c.FullPath()
		limiter := limiters.get(key)

		c.Header("X-RateLimit-Limit", strconv.Itoa(maxRequests))
		if !limiter.Allow() {
			wait := limiter.Reserve()
			delay := wait.Delay()
			wait.Cancel()
			c.Header("X-RateLimit-Remaining", "0")
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(delay.Seconds()))))
			response.Error(c, errors.ErrRateLimit)
			c.Abort()
			return
		}
		c.Header("X-RateLimit-Remaining", strconv.Itoa(int(limiter.Tokens())))
		c.Next()
	}
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type limiterSet struct {
	mu       sync.Mutex
	entries  map[string]*limiterEntry
	limit    rate.Limit
	burst    int
	idle     time.Duration
	lastScan time.Time
}

func newLimiterSet(limit rate.Limit, burst int, idle time.Duration) *limiterSet {
	return &limiterSet{
		entries:  make(map[string]*limiterEntry),
		limit:    limit,
		burst:    burst,
		idle:     idle,
		lastScan: time.Now(),
	}
}

func (s *limiterSet) get(key string) *rate.Limiter {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if now.Sub(s.lastScan) > s.idle {
		for k, entry := range s.entries {
			if now.Sub(entry.lastSeen) > s.idle {
				delete(s.entries, k)
			}
		}
		s.lastScan = now
	}

	entry, ok := s.entries[key]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.entries[key] = entry
	}
	entry.lastSeen = now
	return entry.limiter
}
