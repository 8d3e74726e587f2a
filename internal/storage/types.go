package storage

import (
	"context"
	"fmt"
	"time"

	"schedbot/internal/queue"
)

// Config configures storage.
//
// Driver values:
//   - "sqlite": SQLite database file at Path (default)
//   - "memory": private in-memory SQLite database (tests, dry runs)
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // 0 means 2s
	OpTimeout   time.Duration // per-operation deadline; 0 means 5s
}

// Store is the persistent queue used by the web layer and the dispatcher.
type Store interface {
	Enqueue(ctx context.Context, it queue.Item) (int64, error)
	Get(ctx context.Context, id int64) (queue.Item, bool, error)
	ListPending(ctx context.Context) ([]queue.Item, error)
	ListDue(ctx context.Context, now string) ([]queue.Item, error)
	Delete(ctx context.Context, id int64) error
	Close() error
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", queue.ErrStoreUnavailable, op, err)
}
