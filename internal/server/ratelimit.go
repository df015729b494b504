package server

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// Default rate-limit budget.
const (
	DefaultRateLimitMax    = 100
	DefaultRateLimitWindow = 60 * time.Second
)

// rateLimiter is an approximate sliding window: each client gets a fixed
// budget per window, and the window restarts once the elapsed time since
// its start exceeds the window length. A burst straddling two windows
// can therefore briefly exceed the budget; that imprecision is accepted.
// State is in-memory only and resets with the process.
type rateLimiter struct {
	max    int
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	clients map[string]*windowCount
}

type windowCount struct {
	count int
	start time.Time
}

func newRateLimiter(max int, window time.Duration) *rateLimiter {
	return &rateLimiter{
		max:     max,
		window:  window,
		now:     time.Now,
		clients: make(map[string]*windowCount),
	}
}

// take consumes one request from the client's budget and reports whether
// it was within budget, plus the remaining count for the response header.
func (rl *rateLimiter) take(client string) (remaining int, ok bool) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	w := rl.clients[client]
	if w == nil || now.Sub(w.start) > rl.window {
		w = &windowCount{start: now}
		rl.clients[client] = w
	}
	w.count++

	remaining = rl.max - w.count
	if remaining < 0 {
		remaining = 0
	}
	return remaining, w.count <= rl.max
}

func (rl *rateLimiter) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		remaining, ok := rl.take(clientID(c))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		if !ok {
			respondError(c, http.StatusTooManyRequests, "RATE_LIMITED", "rate limit exceeded")
			return
		}
		c.Next()
	}
}
