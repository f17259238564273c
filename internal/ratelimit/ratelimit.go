// Package ratelimit tracks request usage against the vision provider's
// rolling daily quota.
package ratelimit

import (
	"log/slog"
	"sync"
	"time"
)

// DailyQuota is a sliding-window request counter. Allow reports whether a
// request may proceed; Record commits one. The two are split so a request
// that fails before reaching the provider does not burn quota.
type DailyQuota struct {
	mu          sync.Mutex
	maxRequests int
	window      time.Duration
	timestamps  []time.Time
	now         func() time.Time
}

// NewDailyQuota creates a quota of maxRequests per window.
func NewDailyQuota(maxRequests int, window time.Duration) *DailyQuota {
	return &DailyQuota{
		maxRequests: maxRequests,
		window:      window,
		now:         time.Now,
	}
}

// Allow reports whether another request fits in the current window.
func (q *DailyQuota) Allow() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.evict()
	if len(q.timestamps) >= q.maxRequests {
		slog.Warn("vision request quota reached", "used", len(q.timestamps), "max", q.maxRequests)
		return false
	}
	return true
}

// Record commits one request against the quota.
func (q *DailyQuota) Record() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.evict()
	q.timestamps = append(q.timestamps, q.now())
}

// Used returns the number of requests in the current window.
func (q *DailyQuota) Used() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.evict()
	return len(q.timestamps)
}

func (q *DailyQuota) evict() {
	cutoff := q.now().Add(-q.window)
	i := 0
	for i < len(q.timestamps) && q.timestamps[i].Before(cutoff) {
		i++
	}
	q.timestamps = q.timestamps[i:]
}
