// Package config loads the application configuration from an optional
// YAML file, RETAIN_-prefixed environment variables, and command-line
// flags, in that order of increasing precedence.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix namespaces the environment variables read into the config,
// e.g. RETAIN_DB_PATH.
const EnvPrefix = "RETAIN_"

// DeckSource names one place deck files are ingested from.
type DeckSource struct {
	Path string `koanf:"path" validate:"required"`
	Git  bool   `koanf:"git"`
}

// Config is the full application configuration.
type Config struct {
	DBPath        string        `koanf:"db_path" validate:"required"`
	QuotaBytes    int64         `koanf:"quota_bytes" validate:"gte=0"`
	CacheTTL      time.Duration `koanf:"cache_ttl" validate:"gte=0"`
	DebounceDelay time.Duration `koanf:"debounce_delay" validate:"gte=0"`
	ReposDir      string        `koanf:"repos_dir" validate:"required"`
	Decks         []DeckSource  `koanf:"decks" validate:"dive"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load assembles the configuration. path may name a YAML file; a missing
// file is fine and only the defaults, environment, and flags apply. flags
// may be nil.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			if !os.IsNotExist(err) {
				return Config{}, fmt.Errorf("load config file %s: %w", path, err)
			}
		}
	}

	envMapper := func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envMapper), nil); err != nil {
		return Config{}, fmt.Errorf("load environment: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return Config{}, fmt.Errorf("load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.applyDefaults()

	if err := validate.Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.DBPath == "" {
		c.DBPath = "retain.db"
	}
	if c.ReposDir == "" {
		c.ReposDir = "repos"
	}
	if c.CacheTTL == 0 {
		c.CacheTTL = 3 * time.Second
	}
	if c.DebounceDelay == 0 {
		c.DebounceDelay = 50 * time.Millisecond
	}
}
