// Package ratelimit bounds webhook commands per sender with a fixed window
// counter persisted in the record store.
package ratelimit

import (
	"context"
	"errors"
	"time"
)

// ErrLimited is raised when a sender exceeds the ceiling inside the current
// window. The store transaction rolls back, so the rejected hit is never
// persisted.
var ErrLimited = errors.New("ratelimit: too many requests")

// Window is one sender's counter. The window resets lazily: the first check
// after ResetAt starts a fresh window; there is no background sweeper.
type Window struct {
	Hits    int
	ResetAt time.Time
}

// WindowStore applies fn to the window for key inside a transaction.
// fn receives the current window (zero value when absent); if it returns an
// error the transaction is rolled back and the error returned as-is. The
// read-modify-write must be atomic per key.
type WindowStore interface {
	Update(ctx context.Context, key string, fn func(Window) (Window, error)) error
}

// Limiter is a fixed-window rate limiter over a WindowStore.
type Limiter struct {
	store   WindowStore
	ceiling int
	period  time.Duration
	now     func() time.Time
}

func New(store WindowStore, ceiling int, period time.Duration) *Limiter {
	return &Limiter{store: store, ceiling: ceiling, period: period, now: time.Now}
}

// Allow consumes one hit for senderID. It returns ErrLimited when the
// ceiling is exceeded; any other error is a store failure.
func (l *Limiter) Allow(ctx context.Context, senderID string) error {
	return l.store.Update(ctx, senderID, func(w Window) (Window, error) {
		now := l.now()
		if w.ResetAt.IsZero() || now.After(w.ResetAt) {
			w = Window{Hits: 0, ResetAt: now.Add(l.period)}
		}
		w.Hits++
		if w.Hits > l.ceiling {
			return Window{}, ErrLimited
		}
		return w, nil
	})
}
