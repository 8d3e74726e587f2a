package dispatch

import (
	"context"
	"time"

	"schedbot/internal/metrics"
	"schedbot/internal/queue"
	"schedbot/internal/transport"
)

// Queue is the subset of the store the dispatcher needs.
type Queue interface {
	ListDue(ctx context.Context, now string) ([]queue.Item, error)
	Delete(ctx context.Context, id int64) error
}

type Config struct {
	SendTimeout time.Duration // per-item send deadline; 0 means 15s
}

// Result classifies one delivery attempt.
type Result string

const (
	ResultSent             Result = metrics.ResultSent
	ResultNotFound         Result = metrics.ResultNotFound
	ResultPermissionDenied Result = metrics.ResultPermissionDenied
	ResultTransient        Result = metrics.ResultTransient
)

func resultOf(err error) Result {
	switch transport.Classify(err) {
	case nil:
		return ResultSent
	case transport.ErrNotFound:
		return ResultNotFound
	case transport.ErrPermissionDenied:
		return ResultPermissionDenied
	default:
		return ResultTransient
	}
}

// Outcome is the per-item record of a tick.
type Outcome struct {
	Item    queue.Item
	Result  Result
	Err     error // *queue.DeliveryError when Result != ResultSent
	Removed bool  // false if the delete after the attempt failed
	Took    time.Duration
}

// Report summarizes one tick.
type Report struct {
	Now      string
	Outcomes []Outcome
	Err      error // listing failure; no items were attempted
}

func (r Report) Sent() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Result == ResultSent {
			n++
		}
	}
	return n
}

func (r Report) Failed() int { return len(r.Outcomes) - r.Sent() }

// Stats are cumulative counters for display.
type Stats struct {
	Ticks    uint64
	Sent     uint64
	Failed   uint64
	LastTick time.Time
}
