package config

import (
	"sort"
	"strings"

	logx "schedbot/pkg/logx"
)

// SummarizeConfigChange returns (1) the changed sections, (2) safe structured
// fields for logging (never tokens or passwords) and (3) whether any changed
// section needs a restart to take effect. Logging and pprof are applied live.
func SummarizeConfigChange(oldCfg, newCfg *Config) ([]string, []logx.Field, bool) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 6)
	attrs := make([]logx.Field, 0, 16)
	restart := false

	// Discord (never log token)
	if oldCfg.Discord.Token != newCfg.Discord.Token ||
		oldCfg.Discord.DefaultChannelID != newCfg.Discord.DefaultChannelID ||
		oldCfg.Discord.IntentsDebug != newCfg.Discord.IntentsDebug {
		changed = append(changed, "discord")
		restart = true
		attrs = append(attrs,
			logx.Bool("discord.token_changed", oldCfg.Discord.Token != newCfg.Discord.Token),
			logx.String("discord.default_channel_id", newCfg.Discord.DefaultChannelID.String()),
			logx.Bool("discord.intents_debug", newCfg.Discord.IntentsDebug),
		)
	}

	// Web (never log password)
	ow, nw := oldCfg.Web, newCfg.Web
	if strings.TrimSpace(ow.Addr) != strings.TrimSpace(nw.Addr) ||
		ow.Password != nw.Password ||
		ow.ReadTimeout != nw.ReadTimeout ||
		ow.WriteTimeout != nw.WriteTimeout ||
		ow.ShutdownTimeout != nw.ShutdownTimeout ||
		ow.RatePerSec != nw.RatePerSec {
		changed = append(changed, "web")
		restart = true
		attrs = append(attrs,
			logx.String("web.addr", strings.TrimSpace(nw.Addr)),
			logx.Bool("web.password_changed", ow.Password != nw.Password),
			logx.Any("web.rate_per_sec", nw.RatePerSec),
		)
	}

	if oldCfg.Scheduler != newCfg.Scheduler {
		changed = append(changed, "scheduler")
		restart = true
		attrs = append(attrs,
			logx.String("scheduler.interval", strings.TrimSpace(newCfg.Scheduler.Interval)),
			logx.String("scheduler.send_timeout", strings.TrimSpace(newCfg.Scheduler.SendTimeout)),
		)
	}
	if oldCfg.Directory != newCfg.Directory {
		changed = append(changed, "directory")
		restart = true
		attrs = append(attrs, logx.String("directory.interval", strings.TrimSpace(newCfg.Directory.Interval)))
	}

	ost, nst := oldCfg.Storage, newCfg.Storage
	if strings.TrimSpace(ost.Driver) != strings.TrimSpace(nst.Driver) ||
		strings.TrimSpace(ost.Path) != strings.TrimSpace(nst.Path) ||
		strings.TrimSpace(ost.BusyTimeout) != strings.TrimSpace(nst.BusyTimeout) ||
		strings.TrimSpace(ost.OpTimeout) != strings.TrimSpace(nst.OpTimeout) {
		changed = append(changed, "storage")
		restart = true
		attrs = append(attrs,
			logx.String("storage.driver", strings.TrimSpace(nst.Driver)),
			logx.Bool("storage.path_set", strings.TrimSpace(nst.Path) != ""),
			logx.String("storage.busy_timeout", strings.TrimSpace(nst.BusyTimeout)),
		)
	}

	// Logging (applied live)
	if oldCfg.Logging != newCfg.Logging {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logx.level", newCfg.Logging.Level),
			logx.Bool("logx.console", newCfg.Logging.Console),
			logx.Bool("logx.file_enabled", newCfg.Logging.File.Enabled),
			logx.Bool("logx.discord_enabled", newCfg.Logging.Discord.Enabled),
		)
	}

	// pprof (applied live, never log token)
	if oldCfg.Pprof != newCfg.Pprof {
		changed = append(changed, "pprof")
		attrs = append(attrs,
			logx.Bool("pprof.enabled", newCfg.Pprof.Enabled),
			logx.String("pprof.addr", strings.TrimSpace(newCfg.Pprof.Addr)),
			logx.Bool("pprof.token_set", strings.TrimSpace(newCfg.Pprof.Token) != ""),
		)
	}

	sort.Strings(changed)
	return changed, attrs, restart
}
