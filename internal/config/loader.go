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
//  2. file (YAML) if MEDALIST_CONFIG is set
//  3. env (prefix MEDALIST_)
func Load(ctx context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv("MEDALIST_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Env keys like MEDALIST_DB_PATH map to db_path; underscores are
	// preserved to match the koanf tags on the struct.
	envProvider := env.Provider("MEDALIST_", ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, "medalist_")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
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
	case c.MaxPageLimit < 1 || c.DefaultPageLimit < 1 || c.DefaultTopN < 1:
		return fmt.Errorf("%w: limits must be positive", ErrInvalidConfig)
	case c.DefaultPageLimit > c.MaxPageLimit:
		return fmt.Errorf("%w: default_page_limit exceeds max_page_limit", ErrInvalidConfig)
	}
	return nil
}
