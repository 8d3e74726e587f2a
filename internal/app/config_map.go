package app

import (
	"fmt"
	"math"
	"strings"
	"time"

	"schedbot/internal/config"
	"schedbot/internal/dispatch"
	"schedbot/internal/observability/pprof"
	"schedbot/internal/queue"
	"schedbot/internal/storage"
	"schedbot/internal/transport/discord"
	"schedbot/internal/web"
	logx "schedbot/pkg/logx"
)

const (
	defaultTickInterval      = "30s"
	defaultDirectoryInterval = "1m"
	defaultStoragePath       = "scheduler.db"
)

func mapDiscordConfig(cfg *config.Config) discord.Config {
	return discord.Config{
		Token: cfg.Discord.Token,
		Debug: cfg.Discord.IntentsDebug,
	}
}

func mapLoggingConfig(cfg *config.Config) logx.Config {
	lc := cfg.Logging
	rps := 0
	if lc.Discord.RatePerSec > 0 {
		rps = int(math.Ceil(lc.Discord.RatePerSec))
	}
	return logx.Config{
		Level:   lc.Level,
		Console: lc.Console,
		File: logx.FileConfig{
			Enabled: lc.File.Enabled,
			Path:    lc.File.Path,
		},
		Discord: logx.DiscordConfig{
			Enabled:    lc.Discord.Enabled,
			ChannelID:  lc.Discord.ChannelID.String(),
			MinLevel:   lc.Discord.MinLevel,
			RatePerSec: rps,
		},
	}
}

func mapStorageConfig(cfg *config.Config) (storage.Config, error) {
	sc := cfg.Storage
	driver := strings.ToLower(strings.TrimSpace(sc.Driver))
	if driver == "" {
		driver = "sqlite"
	}
	path := strings.TrimSpace(sc.Path)

	switch driver {
	case "memory":
	case "sqlite", "sqlite3":
		if path == "" {
			path = defaultStoragePath
		}
	default:
		return storage.Config{}, fmt.Errorf("unknown storage.driver: %s", sc.Driver)
	}

	busy, err := config.ParseDurationOrDefault("storage.busy_timeout", sc.BusyTimeout, 2*time.Second)
	if err != nil {
		return storage.Config{}, err
	}
	op, err := config.ParseDurationOrDefault("storage.op_timeout", sc.OpTimeout, 5*time.Second)
	if err != nil {
		return storage.Config{}, err
	}
	return storage.Config{Driver: driver, Path: path, BusyTimeout: busy, OpTimeout: op}, nil
}

func mapDispatchConfig(cfg *config.Config) (dispatch.Config, error) {
	d, err := config.ParseDurationOrDefault("scheduler.send_timeout", cfg.Scheduler.SendTimeout, 15*time.Second)
	if err != nil {
		return dispatch.Config{}, err
	}
	return dispatch.Config{SendTimeout: d}, nil
}

func mapWebConfig(cfg *config.Config) (web.Config, error) {
	wc := cfg.Web
	read, err := config.ParseDurationField("web.read_timeout", wc.ReadTimeout)
	if err != nil {
		return web.Config{}, err
	}
	write, err := config.ParseDurationField("web.write_timeout", wc.WriteTimeout)
	if err != nil {
		return web.Config{}, err
	}
	shutdown, err := config.ParseDurationField("web.shutdown_timeout", wc.ShutdownTimeout)
	if err != nil {
		return web.Config{}, err
	}
	// Zero values fall back to the server's own defaults.
	return web.Config{
		Addr:            strings.TrimSpace(wc.Addr),
		Password:        wc.Password,
		ReadTimeout:     read,
		WriteTimeout:    write,
		ShutdownTimeout: shutdown,
		RatePerSec:      wc.RatePerSec,
	}, nil
}

func mapDefaults(cfg *config.Config) queue.Defaults {
	return queue.Defaults{ChannelID: cfg.Discord.DefaultChannelID.String()}
}

// intervals returns the dispatch and directory schedules, defaulted.
func intervals(cfg *config.Config) (tick, refresh string) {
	tick = strings.TrimSpace(cfg.Scheduler.Interval)
	if tick == "" {
		tick = defaultTickInterval
	}
	refresh = strings.TrimSpace(cfg.Directory.Interval)
	if refresh == "" {
		refresh = defaultDirectoryInterval
	}
	return tick, refresh
}

func mapPprofConfig(cfg *config.Config) (pprof.Config, error) {
	pc := cfg.Pprof
	read, err := config.ParseDurationOrDefault("pprof.read_timeout", pc.ReadTimeout, 10*time.Second)
	if err != nil {
		return pprof.Config{}, err
	}
	// Profiles block for their duration; 0 keeps writes unbounded.
	write, err := config.ParseDurationField("pprof.write_timeout", pc.WriteTimeout)
	if err != nil {
		return pprof.Config{}, err
	}
	return pprof.Config{
		Enabled:              pc.Enabled,
		Addr:                 strings.TrimSpace(pc.Addr),
		Token:                strings.TrimSpace(pc.Token),
		AllowInsecure:        pc.AllowInsecure,
		ReadTimeout:          read,
		WriteTimeout:         write,
		MutexProfileFraction: pc.MutexProfileFraction,
		BlockProfileRate:     pc.BlockProfileRate,
	}, nil
}
