package app

import (
	"time"

	"schedbot/internal/dispatch"
	"schedbot/internal/runtime/supervisor"
	"schedbot/internal/task/scheduler"
)

type directoryStatus struct {
	Generation uint64    `json:"generation"`
	BuiltAt    time.Time `json:"built_at"`
	Channels   int       `json:"channels"`
	Roles      int       `json:"roles"`
}

// Status is served on GET /status.
type Status struct {
	Directory  directoryStatus             `json:"directory"`
	Dispatch   dispatch.Stats              `json:"dispatch"`
	Scheduler  scheduler.Snapshot          `json:"scheduler"`
	Goroutines []supervisor.GoroutineStats `json:"goroutines,omitempty"`
	PprofAddr  string                      `json:"pprof_addr,omitempty"`
}

func (a *App) status() any {
	snap := a.cache.Load()
	st := Status{
		Directory: directoryStatus{
			Generation: snap.Generation,
			BuiltAt:    snap.BuiltAt,
			Channels:   len(snap.Channels),
			Roles:      len(snap.Roles),
		},
		Dispatch:  a.disp.Stats(),
		Scheduler: a.sched.Snapshot(),
		PprofAddr: a.pprof.Addr(),
	}
	if sup := a.sup; sup != nil {
		st.Goroutines = sup.Snapshot()
	}
	return st
}
