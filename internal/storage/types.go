package storage

import (
	"context"
	"time"

	"eventsbot/internal/event"
	"eventsbot/internal/ratelimit"
)

// Config configures the record store.
type Config struct {
	Path        string
	BusyTimeout time.Duration // 0 means default
}

// Store is the persistence API the service needs: event records, category
// routing documents and the per-sender rate windows.
//
// Update implements ratelimit.WindowStore: the read-modify-write runs in a
// transaction and an error from fn rolls it back.
type Store interface {
	CreateEvent(ctx context.Context, ev event.Event) (event.Event, error)
	ListUpcoming(ctx context.Context, from, until time.Time) ([]event.Event, error)

	CategoryDestinations(ctx context.Context, name string) ([]string, error)
	UpsertCategory(ctx context.Context, name string, tokens []string) error

	Update(ctx context.Context, key string, fn func(ratelimit.Window) (ratelimit.Window, error)) error

	Close() error
}
