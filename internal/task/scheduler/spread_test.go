package scheduler

import (
	"testing"
	"time"
)

func TestSpreadEveryDelaysFirstRun(t *testing.T) {
	t.Parallel()
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	for _, every := range []time.Duration{5 * time.Second, time.Minute} {
		sched, offset := spreadEvery(every, now, "directory:refresh")
		window := min(every, spreadCap)
		if offset < 0 || offset >= window {
			t.Fatalf("every=%v: offset %v outside [0, %v)", every, offset, window)
		}
		first := sched.Next(now)
		if !first.Equal(now.Add(every + offset)) {
			t.Fatalf("every=%v: first run %v, want %v", every, first, now.Add(every+offset))
		}
		// After the first run the plain interval applies, on whole seconds.
		want := first.Add(every).Truncate(time.Second)
		if next := sched.Next(first); !next.Equal(want) {
			t.Fatalf("every=%v: second run %v, want %v", every, next, want)
		}
	}
}

func TestSpreadEveryZeroInterval(t *testing.T) {
	t.Parallel()
	if _, offset := spreadEvery(0, time.Now(), "x"); offset != 0 {
		t.Fatalf("offset = %v, want 0", offset)
	}
}
