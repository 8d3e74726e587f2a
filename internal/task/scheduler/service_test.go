package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	logx "schedbot/pkg/logx"
)

func TestIntervalJobRunsAndStopWaits(t *testing.T) {
	t.Parallel()
	s := New(logx.Nop())

	var runs atomic.Int64
	finished := make(chan struct{})
	err := s.AddInterval("tick", time.Second, Options{}, func(ctx context.Context) error {
		if runs.Add(1) == 1 {
			<-ctx.Done()
			time.Sleep(50 * time.Millisecond)
			close(finished)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("AddInterval: %v", err)
	}

	s.Start(context.Background())
	deadline := time.Now().Add(3 * time.Second)
	for runs.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	if runs.Load() == 0 {
		t.Fatal("job never ran")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	s.Stop(ctx)
	select {
	case <-finished:
	default:
		t.Fatal("Stop returned before the running job finished")
	}
	if s.Snapshot().Running {
		t.Fatal("snapshot reports running after Stop")
	}
}

func TestRunNowSkipsOverlap(t *testing.T) {
	t.Parallel()
	s := New(logx.Nop())

	release := make(chan struct{})
	started := make(chan struct{})
	err := s.AddSchedule("slow", "1h", Options{}, func(ctx context.Context) error {
		close(started)
		<-release
		return errors.New("boom")
	})
	if err != nil {
		t.Fatalf("AddSchedule: %v", err)
	}

	done := make(chan bool)
	go func() { done <- s.RunNow(context.Background(), "slow") }()
	<-started
	if s.RunNow(context.Background(), "slow") {
		t.Fatal("overlapping run was not skipped")
	}
	close(release)
	if !<-done {
		t.Fatal("first run reported as skipped")
	}

	info := s.Snapshot().Schedules[0]
	if info.Runs != 1 || info.Skips != 1 || info.Fails != 1 || info.LastErr != "boom" {
		t.Fatalf("info = %+v", info)
	}
	if s.RunNow(context.Background(), "missing") {
		t.Fatal("unknown schedule ran")
	}
}

func TestJobPanicIsRecorded(t *testing.T) {
	t.Parallel()
	s := New(logx.Nop())
	_ = s.AddInterval("p", time.Hour, Options{}, func(ctx context.Context) error { panic("nope") })
	if !s.RunNow(context.Background(), "p") {
		t.Fatal("RunNow skipped")
	}
	info := s.Snapshot().Schedules[0]
	if info.Fails != 1 || info.Running {
		t.Fatalf("info = %+v", info)
	}
}

func TestAddUpsertsAndRemove(t *testing.T) {
	t.Parallel()
	s := New(logx.Nop())
	job := func(ctx context.Context) error { return nil }

	if err := s.AddInterval("a", time.Minute, Options{}, job); err != nil {
		t.Fatal(err)
	}
	if err := s.AddSchedule("a", "*/2 * * * *", Options{Timeout: time.Second}, job); err != nil {
		t.Fatal(err)
	}
	snap := s.Snapshot()
	if len(snap.Schedules) != 1 || snap.Schedules[0].Spec != "*/2 * * * *" {
		t.Fatalf("schedules = %+v", snap.Schedules)
	}
	if err := s.AddSchedule("b", "61 * * * *", Options{}, job); err == nil {
		t.Fatal("expected invalid cron error")
	}
	if err := s.AddInterval("", time.Minute, Options{}, job); err == nil {
		t.Fatal("expected name error")
	}
	if !s.Remove("a") || s.Remove("a") {
		t.Fatal("Remove should succeed once")
	}
}

func TestNextAfterStart(t *testing.T) {
	t.Parallel()
	s := New(logx.Nop())
	_ = s.AddInterval("dispatch", time.Minute, Options{}, func(ctx context.Context) error { return nil })
	if !s.Next("dispatch").IsZero() {
		t.Fatal("Next should be zero before Start")
	}
	s.Start(context.Background())
	defer s.Stop(context.Background())
	if n := s.Next("dispatch"); n.IsZero() || n.Before(time.Now()) {
		t.Fatalf("Next = %v", n)
	}
}
