// Package ratelimit implements the per-user (fallback per-IP) fixed
// window counters plus a burst gate from The per-key
// counter shape — a map from key to a mutex-guarded window struct,
// lazily created on first use — is grounded on other_examples' nornicdb
// pkg/auth RateLimiter/rateLimitCounter; this package adds the day
// window and per-role limit overrides asks for and layers
// golang.org/x/time/rate on top for the sub-second burst allowance.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/ultimatemcp/platform/internal/apierr"
	"github.com/ultimatemcp/platform/internal/auth"
)

// Limits is the configurable per-role request budget.
type Limits struct {
	PerMinute int
	PerHour   int
	PerDay    int
	Burst     int
}

// counter holds one key's fixed windows plus its burst limiter.
type counter struct {
	mu sync.Mutex

	minuteCount, hourCount, dayCount int
	minuteReset, hourReset, dayReset time.Time
	burst                            *rate.Limiter
}

// Limiter is the process-wide rate limiter. Counters live only in
// process memory; a horizontal deployment needs a shared store (an
// external-collaborator concern this package doesn't attempt to solve).
type Limiter struct {
	mu       sync.RWMutex
	limits   map[auth.Role]Limits
	counters map[string]*counter
	now      func() time.Time
}

// New builds a Limiter with the given default limits, applied to every
// role unless overridden via SetLimits.
func New(defaults Limits) *Limiter {
	l := &Limiter{
		limits:   make(map[auth.Role]Limits),
		counters: make(map[string]*counter),
		now:      time.Now,
	}
	for _, r := range []auth.Role{auth.RoleViewer, auth.RoleDeveloper, auth.RoleAdmin} {
		l.limits[r] = defaults
	}
	return l
}

// SetLimits overrides the budget for a specific role.
func (l *Limiter) SetLimits(role auth.Role, limits Limits) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.limits[role] = limits
}

// Allow checks and (if permitted) consumes one unit of budget for key,
// using the most generous of roles' configured limits. It returns the
// duration until the caller should retry on rejection.
func (l *Limiter) Allow(key string, roles []auth.Role) (bool, time.Duration) {
	limits := l.limitsFor(roles)

	c := l.counterFor(key, limits)

	c.mu.Lock()
	defer c.mu.Unlock()

	now := l.now()
	if now.After(c.minuteReset) {
		c.minuteCount = 0
		c.minuteReset = now.Add(time.Minute)
	}
	if now.After(c.hourReset) {
		c.hourCount = 0
		c.hourReset = now.Add(time.Hour)
	}
	if now.After(c.dayReset) {
		c.dayCount = 0
		c.dayReset = now.Add(24 * time.Hour)
	}

	if !c.burst.AllowN(now, 1) {
		return false, time.Second
	}
	if limits.PerMinute > 0 && c.minuteCount >= limits.PerMinute {
		return false, c.minuteReset.Sub(now)
	}
	if limits.PerHour > 0 && c.hourCount >= limits.PerHour {
		return false, c.hourReset.Sub(now)
	}
	if limits.PerDay > 0 && c.dayCount >= limits.PerDay {
		return false, c.dayReset.Sub(now)
	}

	c.minuteCount++
	c.hourCount++
	c.dayCount++
	return true, 0
}

// CheckErr wraps Allow into the apierr shape callers want at the
// pipeline boundary.
func (l *Limiter) CheckErr(key string, roles []auth.Role) error {
	ok, retryAfter := l.Allow(key, roles)
	if ok {
		return nil
	}
	return apierr.New(apierr.KindRateLimited, "rate limit exceeded").
		WithDetails(map[string]any{"retry_after_seconds": retryAfter.Seconds()})
}

func (l *Limiter) limitsFor(roles []auth.Role) Limits {
	l.mu.RLock()
	defer l.mu.RUnlock()

	best := Limits{}
	for _, r := range roles {
		if lim, ok := l.limits[r]; ok && lim.PerMinute > best.PerMinute {
			best = lim
		}
	}
	if best.PerMinute == 0 {
		// unauthenticated / unknown role: fall back to the viewer budget
		best = l.limits[auth.RoleViewer]
	}
	return best
}

func (l *Limiter) counterFor(key string, limits Limits) *counter {
	l.mu.Lock()
	defer l.mu.Unlock()

	c, ok := l.counters[key]
	if ok {
		return c
	}
	now := l.now()
	burst := limits.Burst
	if burst <= 0 {
		burst = 1
	}
	c = &counter{
		minuteReset: now.Add(time.Minute),
		hourReset:   now.Add(time.Hour),
		dayReset:    now.Add(24 * time.Hour),
		burst:       rate.NewLimiter(rate.Every(time.Second/time.Duration(burst)), burst),
	}
	l.counters[key] = c
	return c
}

// Sweep drops counters whose day window ended before cutoff (a counter
// touched after its day window ended would have started a new one), so
// the map doesn't grow without bound across a long-lived process.
func (l *Limiter) Sweep(cutoff time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	removed := 0
	for key, c := range l.counters {
		c.mu.Lock()
		stale := c.dayReset.Before(cutoff)
		c.mu.Unlock()
		if stale {
			delete(l.counters, key)
			removed++
		}
	}
	return removed
}
