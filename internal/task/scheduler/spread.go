package scheduler

import (
	"hash/fnv"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
)

// spreadCap bounds the extra delay before the first run of a spread job.
const spreadCap = 30 * time.Second

var spreadSeq atomic.Uint64

// delayedFirst runs first at a fixed time, then follows every.
type delayedFirst struct {
	every cron.ConstantDelaySchedule
	first time.Time
}

func (s *delayedFirst) Next(t time.Time) time.Time {
	if t.Before(s.first) {
		return s.first
	}
	return s.every.Next(t)
}

// spreadEvery builds an @every schedule whose first run lands one interval
// plus a random offset after now. The offset is below min(every, spreadCap)
// and is returned for the job snapshot. Jobs added in the same instant get
// different offsets because the seed mixes a counter and the job name.
func spreadEvery(every time.Duration, now time.Time, name string) (cron.Schedule, time.Duration) {
	base := cron.Every(every)
	window := min(every, spreadCap)
	if window <= 0 {
		return base, 0
	}

	h := fnv.New64a()
	_, _ = h.Write([]byte(name))
	seed := now.UnixNano() ^ int64(spreadSeq.Add(1)) ^ int64(h.Sum64())
	offset := time.Duration(rand.New(rand.NewSource(seed)).Int63n(int64(window)))
	return &delayedFirst{every: base, first: now.Add(every + offset)}, offset
}
