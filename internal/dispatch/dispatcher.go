package dispatch

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"schedbot/internal/metrics"
	"schedbot/internal/queue"
	"schedbot/internal/transport"
	logx "schedbot/pkg/logx"
)

const defaultSendTimeout = 15 * time.Second

type Dispatcher struct {
	cfg     Config
	q       Queue
	sender  transport.Sender
	log     logx.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	ticks    atomic.Uint64
	sent     atomic.Uint64
	failed   atomic.Uint64
	lastTick atomic.Int64 // unix nanos
}

func New(cfg Config, q Queue, sender transport.Sender, log logx.Logger, m *metrics.Metrics) *Dispatcher {
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = defaultSendTimeout
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Dispatcher{cfg: cfg, q: q, sender: sender, log: log, metrics: m, now: time.Now}
}

// Run is the scheduled job entry point.
func (d *Dispatcher) Run(ctx context.Context) error {
	return d.Tick(ctx).Err
}

// Tick delivers every item due at the current wall-clock minute. Items added
// while the tick runs are picked up by the next tick. Cancelling ctx stops the
// tick between items; the item in flight is always sent and removed.
func (d *Dispatcher) Tick(ctx context.Context) Report {
	at := d.now()
	now := queue.Stamp(at)
	rep := Report{Now: now}
	d.ticks.Add(1)
	d.lastTick.Store(at.UnixNano())

	items, err := d.q.ListDue(ctx, now)
	if err != nil {
		d.log.Warn("list due items failed", logx.String("now", now), logx.Err(err))
		rep.Err = err
		return rep
	}
	d.metrics.ObserveTick(len(items))
	if len(items) == 0 {
		return rep
	}

	rep.Outcomes = make([]Outcome, 0, len(items))
	for i, it := range items {
		if ctx.Err() != nil {
			d.log.Info("tick interrupted; remaining items stay queued",
				logx.Int("remaining", len(items)-i))
			break
		}
		rep.Outcomes = append(rep.Outcomes, d.deliver(ctx, it))
	}

	d.log.Info("tick done",
		logx.String("now", now),
		logx.Int("due", len(items)),
		logx.Int("sent", rep.Sent()),
		logx.Int("failed", rep.Failed()),
	)
	return rep
}

func (d *Dispatcher) deliver(ctx context.Context, it queue.Item) Outcome {
	// The attempt and its cleanup finish even if shutdown starts mid-item.
	wctx := context.WithoutCancel(ctx)
	fields := []logx.Field{
		logx.Int64("item_id", it.ID),
		logx.String("channel_id", it.ChannelID),
		logx.String("channel", it.ChannelName),
		logx.String("mention", it.Mention.Kind.String()),
		logx.String("send_time", it.SendTime),
	}

	start := time.Now()
	err := d.send(wctx, it)
	out := Outcome{Item: it, Result: resultOf(err), Took: time.Since(start)}
	d.metrics.ObserveDelivery(string(out.Result))

	if err != nil {
		out.Err = queue.NewDeliveryError(it, err)
		d.failed.Add(1)
		d.log.Warn("delivery failed; item discarded",
			append(fields, logx.String("result", string(out.Result)), logx.Err(err))...)
	} else {
		d.sent.Add(1)
		d.log.Info("message sent", append(fields, logx.Duration("took", out.Took))...)
	}

	if derr := d.q.Delete(wctx, it.ID); derr != nil {
		d.metrics.ObserveDeleteError()
		d.log.Error("remove after delivery attempt failed; item may be sent again",
			append(fields, logx.Err(derr))...)
		return out
	}
	out.Removed = true
	return out
}

func (d *Dispatcher) send(ctx context.Context, it queue.Item) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic in sender: %v", transport.ErrTransient, r)
		}
	}()
	sctx, cancel := context.WithTimeout(ctx, d.cfg.SendTimeout)
	defer cancel()
	return d.sender.Send(sctx, it.ChannelID, it.Payload())
}

func (d *Dispatcher) Stats() Stats {
	st := Stats{
		Ticks:  d.ticks.Load(),
		Sent:   d.sent.Load(),
		Failed: d.failed.Load(),
	}
	if ns := d.lastTick.Load(); ns != 0 {
		st.LastTick = time.Unix(0, ns)
	}
	return st
}
