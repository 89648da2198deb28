package ratatouille

import (
	"sync"
	"time"
)

// SearchLimiter rate-limits search submissions per IP address with a
// sliding window.
type SearchLimiter struct {
	mu     sync.Mutex
	hits   map[string][]time.Time
	max    int
	window time.Duration

	stop     chan struct{}
	stopOnce sync.Once
}

// NewSearchLimiter creates a SearchLimiter that allows max searches per
// window. A max of zero or less disables limiting.
func NewSearchLimiter(max int, window time.Duration) *SearchLimiter {
	l := &SearchLimiter{
		hits:   make(map[string][]time.Time),
		max:    max,
		window: window,
		stop:   make(chan struct{}),
	}
	if max > 0 {
		go l.cleanup()
	}
	return l
}

func (l *SearchLimiter) cleanup() {
	ticker := time.NewTicker(l.window)
	defer ticker.Stop()
	for {
		select {
		case <-l.stop:
			return
		case now := <-ticker.C:
			cutoff := now.Add(-l.window)
			l.mu.Lock()
			for ip, hits := range l.hits {
				if kept := prune(hits, cutoff); len(kept) == 0 {
					delete(l.hits, ip)
				} else {
					l.hits[ip] = kept
				}
			}
			l.mu.Unlock()
		}
	}
}

// Allow reports whether ip may search now and, if so, records the search.
func (l *SearchLimiter) Allow(ip string) bool {
	if l.max <= 0 {
		return true
	}
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	kept := prune(l.hits[ip], now.Add(-l.window))
	if len(kept) >= l.max {
		l.hits[ip] = kept
		return false
	}
	l.hits[ip] = append(kept, now)
	return true
}

// Stop ends the background cleanup.
func (l *SearchLimiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

func prune(hits []time.Time, cutoff time.Time) []time.Time {
	kept := hits[:0]
	for _, t := range hits {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	return kept
}
