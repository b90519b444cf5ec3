package api

import (
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
)

// loginThrottle keeps recent failed logins per client and refuses new
// attempts while limit failures sit inside window.
type loginThrottle struct {
	limit  int
	window time.Duration

	mu       sync.Mutex
	failures map[string][]time.Time
}

func newLoginThrottle(limit int, window time.Duration) *loginThrottle {
	return &loginThrottle{
		limit:    limit,
		window:   window,
		failures: make(map[string][]time.Time),
	}
}

// retryAfter reports how long client must wait, or zero when it may try now.
func (throttle *loginThrottle) retryAfter(client string, now time.Time) time.Duration {
	throttle.mu.Lock()
	defer throttle.mu.Unlock()

	recent := throttle.recentLocked(client, now)
	if len(recent) < throttle.limit {
		return 0
	}
	// The window reopens when the oldest counted failure expires.
	oldest := recent[len(recent)-throttle.limit]
	return oldest.Add(throttle.window).Sub(now)
}

func (throttle *loginThrottle) fail(client string, now time.Time) {
	throttle.mu.Lock()
	defer throttle.mu.Unlock()

	throttle.failures[client] = append(throttle.recentLocked(client, now), now)
	for key := range throttle.failures {
		if key != client && len(throttle.recentLocked(key, now)) == 0 {
			delete(throttle.failures, key)
		}
	}
}

func (throttle *loginThrottle) clear(client string) {
	throttle.mu.Lock()
	defer throttle.mu.Unlock()
	delete(throttle.failures, client)
}

func (throttle *loginThrottle) recentLocked(client string, now time.Time) []time.Time {
	cutoff := now.Add(-throttle.window)
	recent := slices.DeleteFunc(throttle.failures[client], func(at time.Time) bool {
		return !at.After(cutoff)
	})
	if len(recent) == 0 {
		delete(throttle.failures, client)
		return nil
	}
	throttle.failures[client] = recent
	return recent
}

func clientKey(c *fiber.Ctx) string {
	if ip := strings.TrimSpace(c.IP()); ip != "" {
		return ip
	}
	return "unknown"
}
