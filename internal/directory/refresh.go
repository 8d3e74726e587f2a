package directory

import (
	"context"
	"fmt"
	"time"

	"schedbot/internal/metrics"
	"schedbot/internal/transport"
	logx "schedbot/pkg/logx"
)

// Refresher rebuilds the cache from the live roster.
type Refresher struct {
	roster  transport.Roster
	cache   *Cache
	log     logx.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewRefresher(roster transport.Roster, cache *Cache, log logx.Logger, m *metrics.Metrics) *Refresher {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Refresher{roster: roster, cache: cache, log: log, metrics: m, now: time.Now}
}

// Refresh builds a fresh snapshot and swaps it in. On error the previous
// snapshot stays published.
func (r *Refresher) Refresh(ctx context.Context) error {
	guilds, err := r.roster.Guilds(ctx)
	if err != nil {
		r.metrics.ObserveRefresh(false, 0, 0)
		prev := r.cache.Load()
		r.log.Warn("directory refresh failed; keeping previous snapshot",
			logx.Err(err),
			logx.Uint64("generation", prev.Generation),
		)
		return fmt.Errorf("list guilds: %w", err)
	}

	next := Build(guilds)
	next.Generation = r.cache.Load().Generation + 1
	next.BuiltAt = r.now()
	r.cache.publish(next)

	r.metrics.ObserveRefresh(true, len(next.Channels), len(next.Roles))
	if len(next.Channels) == 0 {
		r.log.Warn("no sendable channels found; is the bot in a server?", logx.Int("guilds", len(guilds)))
	} else {
		r.log.Debug("directory refreshed",
			logx.Uint64("generation", next.Generation),
			logx.Int("channels", len(next.Channels)),
			logx.Int("roles", len(next.Roles)),
		)
	}
	return nil
}

// Build converts a roster into a snapshot: channels the bot can post in, and
// roles other than the implicit everyone role and platform-managed roles.
func Build(guilds []transport.Guild) *Snapshot {
	s := &Snapshot{
		Channels: make([]Entry, 0),
		Roles:    make([]Entry, 0),
	}
	for _, g := range guilds {
		for _, ch := range g.Channels {
			if !ch.CanSend {
				continue
			}
			s.Channels = append(s.Channels, Entry{ID: ch.ID, Name: g.Name + " - " + ch.Name})
		}
		for _, role := range g.Roles {
			if role.IsDefault || role.IsManaged {
				continue
			}
			s.Roles = append(s.Roles, Entry{ID: role.ID, Name: g.Name + " - " + role.Name})
		}
	}
	return s
}
