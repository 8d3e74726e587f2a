// Package discord implements the transport contracts on top of a discordgo
// gateway session.
package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"

	"schedbot/internal/transport"
	logx "schedbot/pkg/logx"
)

type Config struct {
	Token string
	// Debug turns on discordgo's own gateway logging.
	Debug bool
}

const sendPerms = discordgo.PermissionViewChannel | discordgo.PermissionSendMessages

type Adapter struct {
	cfg Config
	log logx.Logger

	s *discordgo.Session

	runMu   sync.Mutex
	running bool

	readyOnce sync.Once
	ready     chan struct{}
}

var _ transport.Adapter = (*Adapter)(nil)

func New(cfg Config, log logx.Logger) (*Adapter, error) {
	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, errors.New("discord token is empty")
	}
	if !strings.HasPrefix(token, "Bot ") {
		token = "Bot " + token
	}
	s, err := discordgo.New(token)
	if err != nil {
		return nil, err
	}
	s.Identify.Intents = discordgo.IntentsGuilds
	s.StateEnabled = true
	if cfg.Debug {
		s.LogLevel = discordgo.LogDebug
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	a := &Adapter{cfg: cfg, log: log, s: s, ready: make(chan struct{})}

	s.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
		a.log.Info("gateway ready", logx.String("user", r.User.Username), logx.Int("guilds", len(r.Guilds)))
		a.readyOnce.Do(func() { close(a.ready) })
	})
	s.AddHandler(func(_ *discordgo.Session, g *discordgo.GuildCreate) {
		a.log.Debug("guild available", logx.String("guild_id", g.ID), logx.String("guild", g.Name))
	})
	s.AddHandler(func(_ *discordgo.Session, _ *discordgo.Disconnect) {
		a.log.Warn("gateway disconnected; reconnecting")
	})
	return a, nil
}

// SetLogger replaces the boot logger. Call before Start.
func (a *Adapter) SetLogger(log logx.Logger) {
	if !log.IsZero() {
		a.log = log
	}
}

// Start opens the gateway connection. It returns once the websocket is up;
// Ready is closed when the first READY event has been processed.
func (a *Adapter) Start(ctx context.Context) error {
	a.runMu.Lock()
	defer a.runMu.Unlock()
	if a.running {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := a.s.Open(); err != nil {
		return fmt.Errorf("discord: open session: %w", err)
	}
	a.running = true
	a.log.Info("session opened")
	return nil
}

func (a *Adapter) Stop(ctx context.Context) error {
	a.runMu.Lock()
	wasRunning := a.running
	a.running = false
	a.runMu.Unlock()
	if !wasRunning {
		return nil
	}

	done := make(chan error, 1)
	go func() { done <- a.s.Close() }()
	select {
	case err := <-done:
		if err != nil {
			a.log.Warn("session close failed", logx.Err(err))
			return err
		}
		a.log.Info("session closed")
		return nil
	case <-ctx.Done():
		a.log.Warn("session close timed out")
		return ctx.Err()
	}
}

func (a *Adapter) Ready() <-chan struct{} { return a.ready }

// Guilds reads the gateway state cache; it does not call the REST API.
func (a *Adapter) Guilds(ctx context.Context) ([]transport.Guild, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	st := a.s.State
	if st == nil {
		return nil, fmt.Errorf("%w: gateway not ready", transport.ErrTransient)
	}

	// User is set on READY under the state lock.
	st.RLock()
	if st.User == nil {
		st.RUnlock()
		return nil, fmt.Errorf("%w: gateway not ready", transport.ErrTransient)
	}
	botID := st.User.ID
	guilds := make([]*discordgo.Guild, 0, len(st.Guilds))
	for _, g := range st.Guilds {
		if g != nil && !g.Unavailable {
			guilds = append(guilds, g)
		}
	}
	st.RUnlock()

	out := make([]transport.Guild, 0, len(guilds))
	for _, g := range guilds {
		out = append(out, a.guild(st, botID, g))
	}
	return out, nil
}

func (a *Adapter) guild(st *discordgo.State, botID string, g *discordgo.Guild) transport.Guild {
	st.RLock()
	chans := make([]*discordgo.Channel, len(g.Channels))
	copy(chans, g.Channels)
	roles := make([]*discordgo.Role, len(g.Roles))
	copy(roles, g.Roles)
	st.RUnlock()

	sort.SliceStable(chans, func(i, j int) bool { return chans[i].Position < chans[j].Position })
	sort.SliceStable(roles, func(i, j int) bool { return roles[i].Position > roles[j].Position })

	tg := transport.Guild{ID: g.ID, Name: g.Name}
	for _, ch := range chans {
		if ch.Type != discordgo.ChannelTypeGuildText && ch.Type != discordgo.ChannelTypeGuildNews {
			continue
		}
		perms, err := st.UserChannelPermissions(botID, ch.ID)
		if err != nil {
			a.log.Debug("permission lookup failed", logx.String("channel_id", ch.ID), logx.Err(err))
		}
		tg.Channels = append(tg.Channels, transport.TextChannel{
			ID:      ch.ID,
			Name:    ch.Name,
			CanSend: err == nil && perms&sendPerms == sendPerms,
		})
	}
	for _, r := range roles {
		tg.Roles = append(tg.Roles, transport.Role{
			ID:        r.ID,
			Name:      r.Name,
			IsDefault: r.ID == g.ID,
			IsManaged: r.Managed,
		})
	}
	return tg
}

// Send posts text to channelID. Only @everyone/@here and role mentions are
// allowed to ping; user mentions in the text render without notifying.
func (a *Adapter) Send(ctx context.Context, channelID, text string) error {
	if _, err := a.s.ChannelMessageSendComplex(channelID, messageFor(text), discordgo.WithContext(ctx)); err != nil {
		return mapError(err)
	}
	return nil
}

func messageFor(text string) *discordgo.MessageSend {
	return &discordgo.MessageSend{
		Content: text,
		AllowedMentions: &discordgo.MessageAllowedMentions{
			Parse: []discordgo.AllowedMentionType{
				discordgo.AllowedMentionTypeEveryone,
				discordgo.AllowedMentionTypeRoles,
			},
		},
	}
}

// mapError tags a discordgo failure with the transport error kind.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var rest *discordgo.RESTError
	if errors.As(err, &rest) {
		code := 0
		if rest.Message != nil {
			code = rest.Message.Code
		}
		status := 0
		if rest.Response != nil {
			status = rest.Response.StatusCode
		}
		switch {
		case code == discordgo.ErrCodeUnknownChannel || status == http.StatusNotFound:
			return fmt.Errorf("%w: %w", transport.ErrNotFound, err)
		case code == discordgo.ErrCodeMissingAccess || code == discordgo.ErrCodeMissingPermissions || status == http.StatusForbidden:
			return fmt.Errorf("%w: %w", transport.ErrPermissionDenied, err)
		}
	}
	return fmt.Errorf("%w: %w", transport.ErrTransient, err)
}
