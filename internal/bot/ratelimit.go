package bot

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"
)

// maxTrackedUsers bounds how many per-user buckets are kept. The least
// recently seen user is forgotten first.
const maxTrackedUsers = 4096

// CommandLimiter enforces per-user command rate limits using a token bucket.
type CommandLimiter struct {
	mu       sync.Mutex
	limiters *lru.Cache[string, *rate.Limiter]
	r        rate.Limit
	burst    int
}

// NewCommandLimiter creates a limiter allowing perMinute commands per user
// with bursts of up to burst. perMinute <= 0 disables limiting.
func NewCommandLimiter(perMinute, burst int) *CommandLimiter {
	if burst <= 0 {
		burst = 3
	}
	r := rate.Limit(0)
	if perMinute > 0 {
		r = rate.Limit(float64(perMinute) / 60.0)
	}
	cache, _ := lru.New[string, *rate.Limiter](maxTrackedUsers)
	return &CommandLimiter{limiters: cache, r: r, burst: burst}
}

// Allow reports whether userID may run a command now.
func (cl *CommandLimiter) Allow(userID string) bool {
	if cl == nil || cl.r == 0 {
		return true
	}
	cl.mu.Lock()
	lim, ok := cl.limiters.Get(userID)
	if !ok {
		lim = rate.NewLimiter(cl.r, cl.burst)
		cl.limiters.Add(userID, lim)
	}
	cl.mu.Unlock()
	return lim.Allow()
}

// Enabled returns true if the limiter is active.
func (cl *CommandLimiter) Enabled() bool {
	return cl != nil && cl.r > 0
}
