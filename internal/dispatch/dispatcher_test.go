package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"schedbot/internal/metrics"
	"schedbot/internal/queue"
	"schedbot/internal/storage"
	"schedbot/internal/transport"
	logx "schedbot/pkg/logx"
)

type sentMsg struct {
	channelID string
	text      string
}

type fakeSender struct {
	mu    sync.Mutex
	sent  []sentMsg
	errFn func(channelID string) error
	hook  func()
}

func (f *fakeSender) Send(ctx context.Context, channelID, text string) error {
	f.mu.Lock()
	f.sent = append(f.sent, sentMsg{channelID: channelID, text: text})
	errFn, hook := f.errFn, f.hook
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	if errFn != nil {
		return errFn(channelID)
	}
	return nil
}

func (f *fakeSender) messages() []sentMsg {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMsg(nil), f.sent...)
}

func clock(t *testing.T, stamp string) func() time.Time {
	t.Helper()
	at, err := time.ParseInLocation(queue.TimeLayout, stamp, time.Local)
	if err != nil {
		t.Fatalf("bad clock %q: %v", stamp, err)
	}
	return func() time.Time { return at.Add(30 * time.Second) }
}

func setup(t *testing.T, sender transport.Sender) (storage.Store, *Dispatcher, *metrics.Metrics) {
	t.Helper()
	st, err := storage.Open(storage.Config{Driver: "memory"}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	m := metrics.New(prometheus.NewRegistry())
	return st, New(Config{SendTimeout: time.Second}, st, sender, logx.Nop(), m), m
}

func enqueue(t *testing.T, st storage.Store, it queue.Item) int64 {
	t.Helper()
	id, err := st.Enqueue(context.Background(), it)
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	return id
}

func TestTickSendsEveryoneMentionAndRemovesItem(t *testing.T) {
	t.Parallel()
	sender := &fakeSender{}
	st, d, m := setup(t, sender)
	d.now = clock(t, "2024-01-01T10:05")

	id := enqueue(t, st, queue.Item{
		Message: "server restart at noon", SendTime: "2024-01-01T10:00",
		ChannelID: "555", ChannelName: "Guild - general", Mention: queue.Everyone(),
	})

	rep := d.Tick(context.Background())
	if rep.Err != nil {
		t.Fatalf("tick error: %v", rep.Err)
	}
	msgs := sender.messages()
	if len(msgs) != 1 || msgs[0] != (sentMsg{channelID: "555", text: "@everyone server restart at noon"}) {
		t.Fatalf("sent = %+v", msgs)
	}
	if _, ok, _ := st.Get(context.Background(), id); ok {
		t.Fatalf("item %d still queued after tick", id)
	}
	if v := testutil.ToFloat64(m.Deliveries.WithLabelValues(metrics.ResultSent)); v != 1 {
		t.Fatalf("sent counter = %v", v)
	}
}

func TestTickSkipsFutureItems(t *testing.T) {
	t.Parallel()
	sender := &fakeSender{}
	st, d, _ := setup(t, sender)
	d.now = clock(t, "2024-01-01T10:05")

	enqueue(t, st, queue.Item{Message: "later", SendTime: "2024-01-01T10:06", ChannelID: "1"})
	rep := d.Tick(context.Background())
	if len(rep.Outcomes) != 0 || len(sender.messages()) != 0 {
		t.Fatalf("future item attempted: %+v", rep.Outcomes)
	}
	pending, _ := st.ListPending(context.Background())
	if len(pending) != 1 {
		t.Fatalf("pending = %d, want 1", len(pending))
	}
}

func TestTickRemovesItemEvenWhenDeliveryFails(t *testing.T) {
	t.Parallel()
	sender := &fakeSender{errFn: func(channelID string) error {
		switch channelID {
		case "403":
			return fmt.Errorf("discord: %w", transport.ErrPermissionDenied)
		case "404":
			return transport.ErrNotFound
		case "500":
			return errors.New("connection reset")
		}
		return nil
	}}
	st, d, m := setup(t, sender)
	d.now = clock(t, "2024-01-01T12:00")

	for i, ch := range []string{"403", "404", "500", "200"} {
		enqueue(t, st, queue.Item{Message: "m", SendTime: fmt.Sprintf("2024-01-01T10:0%d", i), ChannelID: ch})
	}

	rep := d.Tick(context.Background())
	if rep.Err != nil {
		t.Fatalf("tick error: %v", rep.Err)
	}
	want := []Result{ResultPermissionDenied, ResultNotFound, ResultTransient, ResultSent}
	if len(rep.Outcomes) != len(want) {
		t.Fatalf("outcomes = %d, want %d", len(rep.Outcomes), len(want))
	}
	for i, o := range rep.Outcomes {
		if o.Result != want[i] {
			t.Fatalf("outcome[%d] = %s, want %s", i, o.Result, want[i])
		}
		if !o.Removed {
			t.Fatalf("outcome[%d] not removed", i)
		}
	}
	var de *queue.DeliveryError
	if !errors.As(rep.Outcomes[0].Err, &de) || !errors.Is(de, transport.ErrPermissionDenied) {
		t.Fatalf("expected permission denied delivery error, got %v", rep.Outcomes[0].Err)
	}

	pending, _ := st.ListPending(context.Background())
	if len(pending) != 0 {
		t.Fatalf("queue not empty after tick: %+v", pending)
	}
	if rep.Sent() != 1 || rep.Failed() != 3 {
		t.Fatalf("sent/failed = %d/%d", rep.Sent(), rep.Failed())
	}
	if v := testutil.ToFloat64(m.Deliveries.WithLabelValues(metrics.ResultPermissionDenied)); v != 1 {
		t.Fatalf("permission_denied counter = %v", v)
	}

	// A second tick finds nothing: no retry.
	if rep := d.Tick(context.Background()); len(rep.Outcomes) != 0 {
		t.Fatalf("second tick attempted %d items", len(rep.Outcomes))
	}
	if got := len(sender.messages()); got != 4 {
		t.Fatalf("send attempts = %d, want 4", got)
	}
}

func TestTickDeliversInSendTimeOrder(t *testing.T) {
	t.Parallel()
	sender := &fakeSender{}
	st, d, _ := setup(t, sender)
	d.now = clock(t, "2024-01-02T00:00")

	enqueue(t, st, queue.Item{Message: "third", SendTime: "2024-01-01T12:00", ChannelID: "1"})
	enqueue(t, st, queue.Item{Message: "first", SendTime: "2024-01-01T08:00", ChannelID: "1"})
	enqueue(t, st, queue.Item{Message: "second", SendTime: "2024-01-01T09:30", ChannelID: "1"})

	d.Tick(context.Background())
	msgs := sender.messages()
	for i, want := range []string{"first", "second", "third"} {
		if msgs[i].text != want {
			t.Fatalf("msg[%d] = %q, want %q", i, msgs[i].text, want)
		}
	}
}

func TestTickRecoversSenderPanic(t *testing.T) {
	t.Parallel()
	sender := &fakeSender{hook: func() { panic("boom") }}
	st, d, _ := setup(t, sender)
	d.now = clock(t, "2024-01-01T10:00")
	enqueue(t, st, queue.Item{Message: "x", SendTime: "2024-01-01T10:00", ChannelID: "1"})

	rep := d.Tick(context.Background())
	if len(rep.Outcomes) != 1 || rep.Outcomes[0].Result != ResultTransient || !rep.Outcomes[0].Removed {
		t.Fatalf("outcomes = %+v", rep.Outcomes)
	}
}

func TestTickStopsBetweenItemsOnCancel(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sender := &fakeSender{hook: cancel}
	st, d, _ := setup(t, sender)
	d.now = clock(t, "2024-01-01T10:00")

	first := enqueue(t, st, queue.Item{Message: "a", SendTime: "2024-01-01T09:00", ChannelID: "1"})
	second := enqueue(t, st, queue.Item{Message: "b", SendTime: "2024-01-01T09:30", ChannelID: "1"})

	rep := d.Tick(ctx)
	if len(rep.Outcomes) != 1 || rep.Outcomes[0].Item.ID != first || !rep.Outcomes[0].Removed {
		t.Fatalf("outcomes = %+v", rep.Outcomes)
	}
	if _, ok, _ := st.Get(context.Background(), second); !ok {
		t.Fatal("second item should remain queued for the next run")
	}
}

type brokenQueue struct{}

func (brokenQueue) ListDue(ctx context.Context, now string) ([]queue.Item, error) {
	return nil, fmt.Errorf("%w: locked", queue.ErrStoreUnavailable)
}
func (brokenQueue) Delete(ctx context.Context, id int64) error { return nil }

func TestTickListFailureIsReported(t *testing.T) {
	t.Parallel()
	d := New(Config{}, brokenQueue{}, &fakeSender{}, logx.Nop(), nil)
	rep := d.Tick(context.Background())
	if !errors.Is(rep.Err, queue.ErrStoreUnavailable) {
		t.Fatalf("err = %v", rep.Err)
	}
	if err := d.Run(context.Background()); !errors.Is(err, queue.ErrStoreUnavailable) {
		t.Fatalf("Run err = %v", err)
	}
	if st := d.Stats(); st.Ticks != 2 || st.LastTick.IsZero() {
		t.Fatalf("stats = %+v", st)
	}
}
