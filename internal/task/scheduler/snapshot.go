package scheduler

import "time"

// Snapshot reports every registered schedule with its cron timing and run
// counters. Safe to call concurrently with running jobs.
func (s *Service) Snapshot() Snapshot {
	s.mu.Lock()
	defs := make([]scheduleDef, len(s.defs))
	copy(defs, s.defs)
	c := s.c
	loc := s.loc
	s.mu.Unlock()

	items := make([]ScheduleInfo, 0, len(defs))
	for _, d := range defs {
		it := ScheduleInfo{Name: d.name, Spec: d.spec, Timeout: d.opt.Timeout}
		if c != nil && d.entryID != 0 {
			e := c.Entry(d.entryID)
			it.Next = e.Next
			it.Prev = e.Prev
		}
		d.state.mu.Lock()
		it.Running = d.state.running
		it.Runs = d.state.runs
		it.Skips = d.state.skips
		it.Fails = d.state.fails
		it.LastRun = d.state.lastRun
		it.LastDur = d.state.lastDur
		it.LastErr = d.state.lastErr
		d.state.mu.Unlock()
		items = append(items, it)
	}

	return Snapshot{
		Running:   c != nil,
		Timezone:  loc.String(),
		Schedules: items,
	}
}

// Next returns the next trigger time of name, or the zero time if it is not
// scheduled.
func (s *Service) Next(name string) time.Time {
	for _, it := range s.Snapshot().Schedules {
		if it.Name == name {
			return it.Next
		}
	}
	return time.Time{}
}
