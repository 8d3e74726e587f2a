package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// Environment overrides. Secrets are usually supplied this way rather than
// written into the config file.
const (
	EnvDiscordToken     = "SCHEDBOT_DISCORD_TOKEN"
	EnvWebPassword      = "SCHEDBOT_WEB_PASSWORD"
	EnvDefaultChannelID = "SCHEDBOT_DEFAULT_CHANNEL_ID"
	EnvWebAddr          = "SCHEDBOT_WEB_ADDR"
)

// LoadDotEnv loads a .env file next to the config file into the process
// environment. Variables already set are not overridden; a missing file is
// not an error.
func LoadDotEnv(cfgPath string) error {
	p := filepath.Join(filepath.Dir(cfgPath), ".env")
	if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return godotenv.Load(p)
}

// applyEnv overlays non-empty environment values onto cfg.
func applyEnv(cfg *Config, lookup func(string) (string, bool)) {
	if lookup == nil {
		return
	}
	get := func(k string) (string, bool) {
		v, ok := lookup(k)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}
	if v, ok := get(EnvDiscordToken); ok {
		cfg.Discord.Token = v
	}
	if v, ok := get(EnvWebPassword); ok {
		cfg.Web.Password = v
	}
	if v, ok := get(EnvDefaultChannelID); ok {
		cfg.Discord.DefaultChannelID = Snowflake(v)
	}
	if v, ok := get(EnvWebAddr); ok {
		cfg.Web.Addr = v
	}
}
