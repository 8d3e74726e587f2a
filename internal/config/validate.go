package config

import (
	"errors"
	"fmt"
	"strings"

	"schedbot/internal/queue"
	"schedbot/internal/task/scheduler"
)

// Validate checks required settings and value syntax. Missing required
// settings wrap queue.ErrConfigMissing; all problems are reported together.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("%w: empty config", queue.ErrConfigMissing)
	}
	var errs []error
	missing := func(path string) {
		errs = append(errs, fmt.Errorf("%w: %s", queue.ErrConfigMissing, path))
	}

	if strings.TrimSpace(cfg.Discord.Token) == "" {
		missing("discord.token (or " + EnvDiscordToken + ")")
	}
	if strings.TrimSpace(cfg.Web.Password) == "" {
		missing("web.password (or " + EnvWebPassword + ")")
	}
	if id := cfg.Discord.DefaultChannelID.String(); id == "" {
		missing("discord.default_channel_id (or " + EnvDefaultChannelID + ")")
	} else if !isNumeric(id) {
		errs = append(errs, fmt.Errorf("discord.default_channel_id: %q is not a numeric id", id))
	}

	for _, d := range []struct{ path, raw string }{
		{"web.read_timeout", cfg.Web.ReadTimeout},
		{"web.write_timeout", cfg.Web.WriteTimeout},
		{"web.shutdown_timeout", cfg.Web.ShutdownTimeout},
		{"scheduler.send_timeout", cfg.Scheduler.SendTimeout},
		{"storage.busy_timeout", cfg.Storage.BusyTimeout},
		{"storage.op_timeout", cfg.Storage.OpTimeout},
		{"pprof.read_timeout", cfg.Pprof.ReadTimeout},
		{"pprof.write_timeout", cfg.Pprof.WriteTimeout},
	} {
		if _, err := ParseDurationField(d.path, d.raw); err != nil {
			errs = append(errs, err)
		}
	}
	for _, s := range []struct{ path, raw string }{
		{"scheduler.interval", cfg.Scheduler.Interval},
		{"directory.interval", cfg.Directory.Interval},
	} {
		if strings.TrimSpace(s.raw) == "" {
			continue
		}
		if _, err := scheduler.ParseSchedule(s.raw); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.path, err))
		}
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Storage.Driver)) {
	case "", "sqlite", "sqlite3", "memory":
	default:
		errs = append(errs, fmt.Errorf("storage.driver: unsupported %q", cfg.Storage.Driver))
	}
	if cfg.Web.RatePerSec < 0 {
		errs = append(errs, errors.New("web.rate_per_sec must be >= 0"))
	}
	if lg := cfg.Logging.Discord; lg.Enabled {
		if lg.ChannelID.String() != "" && !isNumeric(lg.ChannelID.String()) {
			errs = append(errs, fmt.Errorf("logging.discord.channel_id: %q is not a numeric id", lg.ChannelID))
		}
		if lg.RatePerSec < 0 {
			errs = append(errs, errors.New("logging.discord.rate_per_sec must be >= 0"))
		}
	}
	if cfg.Pprof.MutexProfileFraction < 0 || cfg.Pprof.BlockProfileRate < 0 {
		errs = append(errs, errors.New("pprof: profile rates must be >= 0"))
	}
	return errors.Join(errs...)
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
