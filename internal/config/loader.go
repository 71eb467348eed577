package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if VALETUDO_CONFIG is set
//  3. env (prefix VALETUDO_)
func Load(ctx context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv("VALETUDO_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
		}
	}

	// Environment variables: VALETUDO_ADDR, VALETUDO_WINDOW_SIZE, ...
	// Map env keys like VALETUDO_WINDOW_SIZE -> window_size (flat keys).
	// Preserve underscores to match koanf tags on the struct.
	envProvider := env.Provider("VALETUDO_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "valetudo_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.DBPath == "":
		return fmt.Errorf("%w: db_path must not be empty", ErrInvalidConfig)
	case c.WindowSize <= 0:
		return fmt.Errorf("%w: window_size must be positive", ErrInvalidConfig)
	case c.KFactor <= 0:
		return fmt.Errorf("%w: k_factor must be positive", ErrInvalidConfig)
	case c.InitialRating <= 0:
		return fmt.Errorf("%w: initial_rating must be positive", ErrInvalidConfig)
	case c.RetrainThreshold < 0:
		return fmt.Errorf("%w: retrain_threshold must not be negative", ErrInvalidConfig)
	case c.RunTimeout <= 0:
		return fmt.Errorf("%w: run_timeout must be positive", ErrInvalidConfig)
	case c.LeaseTTL <= 0:
		return fmt.Errorf("%w: lease_ttl must be positive", ErrInvalidConfig)
	case c.MaxLeaderboardLimit <= 0:
		return fmt.Errorf("%w: max_leaderboard_limit must be positive", ErrInvalidConfig)
	}
	return nil
}
