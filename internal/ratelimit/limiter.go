// Package ratelimit implements a fixed-window attempt counter keyed by an
// arbitrary string. The window state lives in a pluggable Store so a
// multi-instance deployment can swap the in-process map for a shared
// backend without changing call sites.
package ratelimit

import (
	"context"
	"time"
)

// Policy configures a fixed-window limit.
type Policy struct {
	MaxAttempts int
	Window      time.Duration
}

// Result is the outcome of a single Check call.
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// Store records attempts per key. Incr resets the window when the stored
// one has aged out, otherwise increments it, and returns the attempt count
// together with the window start.
type Store interface {
	Incr(ctx context.Context, key string, window time.Duration, now time.Time) (attempts int, windowStart time.Time, err error)
}

type Limiter struct {
	store Store
	now   func() time.Time
}

func New(store Store) *Limiter {
	return &Limiter{
		store: store,
		now:   time.Now,
	}
}

// WithClock allows injection of a custom clock (primarily for testing).
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	if now != nil {
		l.now = now
	}
	return l
}

// Check records one attempt against the key and reports whether it is
// within the policy. ResetAt is the end of the current window regardless
// of outcome. A store failure is returned to the caller, which decides
// whether to fail open.
func (l *Limiter) Check(ctx context.Context, key string, p Policy) (Result, error) {
	now := l.now()

	attempts, windowStart, err := l.store.Incr(ctx, key, p.Window, now)
	if err != nil {
		return Result{Allowed: true, Remaining: p.MaxAttempts, ResetAt: now.Add(p.Window)}, err
	}

	remaining := p.MaxAttempts - attempts
	if remaining < 0 {
		remaining = 0
	}

	return Result{
		Allowed:   attempts <= p.MaxAttempts,
		Remaining: remaining,
		ResetAt:   windowStart.Add(p.Window),
	}, nil
}
