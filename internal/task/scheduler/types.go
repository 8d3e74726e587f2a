package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	logx "schedbot/pkg/logx"
)

// Job is one unit of scheduled work. A returned error is logged; it never
// stops the schedule.
type Job func(ctx context.Context) error

// Options tune a single schedule.
type Options struct {
	// Timeout bounds one run. 0 means no deadline beyond Stop().
	Timeout time.Duration
	// Spread delays the first interval run by a random jitter so schedules
	// registered together don't fire in lockstep.
	Spread bool
}

// runState guards against overlapping runs of the same schedule.
type runState struct {
	mu      sync.Mutex
	running bool

	runs    uint64
	skips   uint64
	fails   uint64
	lastRun time.Time
	lastDur time.Duration
	lastErr string
}

func (s *runState) tryAcquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		s.skips++
		return false
	}
	s.running = true
	return true
}

func (s *runState) release(started time.Time, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	s.runs++
	s.lastRun = started
	s.lastDur = time.Since(started)
	s.lastErr = ""
	if err != nil {
		s.fails++
		s.lastErr = err.Error()
	}
}

type scheduleDef struct {
	name          string
	spec          string // cron spec or @every
	opt           Options
	job           Job
	entryID       cron.EntryID
	startupSpread time.Duration
	state         *runState
}

type Service struct {
	mu sync.Mutex

	log logx.Logger
	loc *time.Location

	parser cron.Parser
	c      *cron.Cron
	defs   []scheduleDef

	runCtx    context.Context
	runCancel context.CancelFunc

	// Failure log throttling: key is schedule name.
	warnMu   sync.Mutex
	lastWarn map[string]time.Time
}

type ScheduleInfo struct {
	Name    string
	Spec    string
	Timeout time.Duration
	Next    time.Time
	Prev    time.Time
	Running bool
	Runs    uint64
	Skips   uint64
	Fails   uint64
	LastRun time.Time
	LastDur time.Duration
	LastErr string
}

type Snapshot struct {
	Running   bool
	Timezone  string
	Schedules []ScheduleInfo
}
