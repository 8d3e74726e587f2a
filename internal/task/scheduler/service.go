package scheduler

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/robfig/cron/v3"

	logx "schedbot/pkg/logx"
)

const failWarnThrottle = 5 * time.Minute

// New creates a stopped scheduler. Schedules use the local wall clock.
func New(log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		log: log,
		loc: time.Local,
		// SecondOptional allows both 5-field and 6-field (with seconds) cron specs.
		parser:   cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
		lastWarn: map[string]time.Time{},
	}
}

// Start begins triggering registered schedules. Jobs receive a context
// derived from ctx that is cancelled by Stop.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c != nil {
		return
	}

	s.runCtx, s.runCancel = context.WithCancel(ctx)
	s.c = cron.New(cron.WithParser(s.parser), cron.WithLocation(s.loc))
	for i := range s.defs {
		if err := s.addCronLocked(&s.defs[i]); err != nil {
			s.log.Error("schedule register failed", logx.String("name", s.defs[i].name), logx.String("spec", s.defs[i].spec), logx.Err(err))
		}
	}
	s.c.Start()
	s.log.Info("service started", logx.String("tz", s.loc.String()), logx.Int("schedules", len(s.defs)))
}

// Stop halts triggering, cancels running jobs' context and waits for them to
// return or for ctx to expire. Definitions are kept for a later Start.
func (s *Service) Stop(ctx context.Context) {
	start := time.Now()
	s.log.Info("stop requested")

	s.mu.Lock()
	c := s.c
	cancel := s.runCancel
	s.c = nil
	s.runCancel = nil
	for i := range s.defs {
		s.defs[i].entryID = 0
	}
	s.mu.Unlock()

	if c == nil {
		return
	}
	// Cancel first so a running job can wind down, then wait for cron to
	// drain the jobs it started.
	if cancel != nil {
		cancel()
	}
	select {
	case <-c.Stop().Done():
		s.log.Info("service stopped", logx.Duration("took", time.Since(start)))
	case <-ctx.Done():
		s.log.Warn("stop timed out; jobs still running", logx.Duration("took", time.Since(start)))
	}
}

// RunNow executes the named schedule immediately (outside its trigger), still
// honouring the no-overlap rule. It reports false if the schedule is unknown
// or already running.
func (s *Service) RunNow(ctx context.Context, name string) bool {
	s.mu.Lock()
	var def *scheduleDef
	for i := range s.defs {
		if s.defs[i].name == name {
			d := s.defs[i]
			def = &d
			break
		}
	}
	s.mu.Unlock()
	if def == nil {
		return false
	}
	return s.run(ctx, def)
}

func (s *Service) trigger(d *scheduleDef) {
	s.mu.Lock()
	ctx := s.runCtx
	s.mu.Unlock()
	if ctx == nil || ctx.Err() != nil {
		return
	}
	s.run(ctx, d)
}

func (s *Service) run(ctx context.Context, d *scheduleDef) (ran bool) {
	if !d.state.tryAcquire() {
		s.log.Debug("schedule trigger skipped; previous run in flight", logx.String("schedule", d.name))
		return false
	}
	ran = true

	started := time.Now()
	var err error
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("panic in scheduled job", logx.String("schedule", d.name), logx.Any("panic", r), logx.String("stack", string(debug.Stack())))
			d.state.release(started, errPanic)
			return
		}
		d.state.release(started, err)
	}()

	if d.opt.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.opt.Timeout)
		defer cancel()
	}
	err = d.job(ctx)
	if err != nil {
		s.reportRunError(d.name, err)
	}
	return ran
}

func (s *Service) reportRunError(name string, err error) {
	now := time.Now()
	s.warnMu.Lock()
	last := s.lastWarn[name]
	throttled := !last.IsZero() && now.Sub(last) < failWarnThrottle
	if !throttled {
		s.lastWarn[name] = now
	}
	s.warnMu.Unlock()

	if throttled {
		s.log.Debug("scheduled job failed", logx.String("schedule", name), logx.Err(err))
		return
	}
	s.log.Warn("scheduled job failed", logx.String("schedule", name), logx.Err(err))
}
