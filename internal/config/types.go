package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

type Config struct {
	Discord   DiscordConfig   `json:"discord"`
	Web       WebConfig       `json:"web"`
	Scheduler SchedulerConfig `json:"scheduler"`
	Directory DirectoryConfig `json:"directory"`
	Storage   StorageConfig   `json:"storage"`
	Logging   LoggingConfig   `json:"logging"`
	Pprof     PprofConfig     `json:"pprof"`
}

type DiscordConfig struct {
	Token            string    `json:"token"`
	DefaultChannelID Snowflake `json:"default_channel_id"`
	// IntentsDebug enables discordgo gateway debug logging.
	IntentsDebug bool `json:"intents_debug,omitempty"`
}

// WebConfig controls the submission form server.
//
// Durations are Go duration strings (e.g. "10s").
type WebConfig struct {
	Addr            string  `json:"addr"`
	Password        string  `json:"password"`
	ReadTimeout     string  `json:"read_timeout,omitempty"`
	WriteTimeout    string  `json:"write_timeout,omitempty"`
	ShutdownTimeout string  `json:"shutdown_timeout,omitempty"`
	RatePerSec      float64 `json:"rate_per_sec,omitempty"`
}

// SchedulerConfig controls the dispatch loop.
//
// Interval accepts a Go duration ("30s"), HH:MM ("00:01") or a cron
// expression ("* * * * *"). Default: 30s.
type SchedulerConfig struct {
	Interval    string `json:"interval,omitempty"`
	SendTimeout string `json:"send_timeout,omitempty"`
}

// DirectoryConfig controls the channel/role refresh loop. Same Interval
// forms as the scheduler. Default: 1m.
type DirectoryConfig struct {
	Interval string `json:"interval,omitempty"`
}

// StorageConfig selects the queue store.
//
// Drivers: "sqlite" (default) or "memory" (tests/dev, nothing persisted).
type StorageConfig struct {
	Driver      string `json:"driver,omitempty"`
	Path        string `json:"path,omitempty"`
	BusyTimeout string `json:"busy_timeout,omitempty"`
	OpTimeout   string `json:"op_timeout,omitempty"`
}

type LoggingConfig struct {
	Level   string         `json:"level"`
	Console bool           `json:"console"`
	File    LoggingFile    `json:"file"`
	Discord LoggingDiscord `json:"discord"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// LoggingDiscord mirrors warn+ log records into a channel.
type LoggingDiscord struct {
	Enabled    bool      `json:"enabled"`
	ChannelID  Snowflake `json:"channel_id"`
	MinLevel   string    `json:"min_level"`
	RatePerSec float64   `json:"rate_per_sec"`
}

// PprofConfig controls the optional profiling server. It is applied on hot
// reload without a restart.
//
// Non-loopback addresses need Token or AllowInsecure.
type PprofConfig struct {
	Enabled       bool   `json:"enabled"`
	Addr          string `json:"addr,omitempty"`
	Token         string `json:"token,omitempty"`
	AllowInsecure bool   `json:"allow_insecure,omitempty"`
	ReadTimeout   string `json:"read_timeout,omitempty"`
	WriteTimeout  string `json:"write_timeout,omitempty"`

	MutexProfileFraction int `json:"mutex_profile_fraction,omitempty"`
	BlockProfileRate     int `json:"block_profile_rate,omitempty"`
}

// Snowflake is a Discord id. It decodes from a JSON string or number so
// configs written with bare numeric ids keep working.
type Snowflake string

func (s *Snowflake) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*s = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = Snowflake(strings.TrimSpace(v))
		return nil
	}
	var n json.Number
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(&n); err != nil {
		return fmt.Errorf("snowflake: %w", err)
	}
	if strings.ContainsAny(n.String(), ".eE-+") {
		return fmt.Errorf("snowflake: %s is not an integer id", n)
	}
	*s = Snowflake(n.String())
	return nil
}

func (s Snowflake) String() string { return string(s) }
