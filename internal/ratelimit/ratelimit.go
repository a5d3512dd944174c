// Package ratelimit bounds how often a single user can hit the agents.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter decides whether a user's request may proceed. Failures of the
// limiter backend are for the caller to handle; the router fails open.
type Limiter interface {
	Allow(ctx context.Context, userID string) (bool, error)
}

// Limits configures the fixed windows.
type Limits struct {
	PerMinute int
	PerHour   int
}

type window struct {
	start time.Time
	count int
}

type userWindows struct {
	minute window
	hour   window
}

// MemoryLimiter is a process-local fixed-window limiter.
type MemoryLimiter struct {
	limits Limits
	now    func() time.Time

	mu    sync.Mutex
	users map[string]*userWindows
}

// NewMemoryLimiter builds an in-memory limiter. Zero or negative limits
// disable the corresponding window.
func NewMemoryLimiter(limits Limits) *MemoryLimiter {
	return &MemoryLimiter{
		limits: limits,
		now:    time.Now,
		users:  make(map[string]*userWindows),
	}
}

func (l *MemoryLimiter) Allow(ctx context.Context, userID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	u, ok := l.users[userID]
	if !ok {
		u = &userWindows{}
		l.users[userID] = u
	}

	now := l.now()
	if !allowWindow(&u.minute, now, time.Minute, l.limits.PerMinute) {
		return false, nil
	}
	if !allowWindow(&u.hour, now, time.Hour, l.limits.PerHour) {
		// Roll back the minute increment so a denied request costs nothing.
		u.minute.count--
		return false, nil
	}
	return true, nil
}

func allowWindow(w *window, now time.Time, span time.Duration, limit int) bool {
	if limit <= 0 {
		return true
	}
	if now.Sub(w.start) >= span {
		w.start = now
		w.count = 0
	}
	if w.count >= limit {
		return false
	}
	w.count++
	return true
}
