// Package config defines service configuration structures and loading hooks.
package config

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DBPath locates the SQLite database file.
	DBPath string `koanf:"db_path"`

	// BusyTimeoutMS bounds how long a blocked writer waits on the
	// database lock.
	BusyTimeoutMS int `koanf:"busy_timeout_ms"`

	// DefaultPageLimit applies when a ranking request omits a limit.
	DefaultPageLimit int `koanf:"default_page_limit"`

	// MaxPageLimit caps the limit parameter on ranking requests.
	MaxPageLimit int `koanf:"max_page_limit"`

	// DefaultTopN applies when a category-ranking or auto-qualify
	// request omits top_n.
	DefaultTopN int `koanf:"default_top_n"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:         "info",
		Addr:             ":9090",
		DBPath:           "medalist.db",
		BusyTimeoutMS:    5000,
		DefaultPageLimit: 100,
		MaxPageLimit:     500,
		DefaultTopN:      8,
	}
}
