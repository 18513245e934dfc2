package fetch

import (
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// DefaultBackoff is the pause after the first, second, ... rate-limit response.
// The last interval repeats.
var DefaultBackoff = []time.Duration{
	5 * time.Second,
	15 * time.Second,
	30 * time.Second,
	time.Minute,
	5 * time.Minute,
}

// RateLimiter pauses a tile server after it signals throttling (HTTP 429,
// 403 or 509) and clears on the next successful response.
type RateLimiter struct {
	Intervals []time.Duration
	Logger    *slog.Logger

	mu      sync.Mutex
	limited bool
	attempt int
	until   time.Time
	now     func() time.Time
}

// NewRateLimiter creates a limiter with the given backoff table
// (DefaultBackoff when empty).
func NewRateLimiter(intervals []time.Duration, logger *slog.Logger) *RateLimiter {
	if len(intervals) == 0 {
		intervals = DefaultBackoff
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &RateLimiter{Intervals: intervals, Logger: logger, now: time.Now}
}

// IsRateLimitStatus reports whether code is a throttling response.
func IsRateLimitStatus(code int) bool {
	return code == http.StatusTooManyRequests || // 429
		code == http.StatusForbidden || // 403, some servers throttle with it
		code == 509 // Bandwidth Limit Exceeded
}

// Blocked reports whether requests should be held back, and until when.
func (r *RateLimiter) Blocked() (bool, time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.limited {
		return false, time.Time{}
	}
	return r.now().Before(r.until), r.until
}

// Check records the outcome of a response. It returns true when the response
// was a throttling one.
func (r *RateLimiter) Check(host string, code int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !IsRateLimitStatus(code) {
		if r.limited {
			r.limited = false
			r.attempt = 0
			r.Logger.Info("rate limit cleared", "host", host)
		}
		return false
	}

	interval := r.Intervals[len(r.Intervals)-1]
	if r.attempt < len(r.Intervals) {
		interval = r.Intervals[r.attempt]
	}
	r.until = r.now().Add(interval)
	r.Logger.Warn("rate limited", "host", host, "status", code, "attempt", r.attempt, "retry_at", r.until.Format(time.RFC3339))
	r.limited = true
	r.attempt++
	return true
}
