// Package config loads the shutdown coordinator settings.
//
// Sources are applied in order, later ones overriding earlier ones: built-in defaults, an optional YAML file and
// HARNESS_SHUTDOWN_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// DefaultEnvPrefix is the environment variable prefix.
const DefaultEnvPrefix = "HARNESS_SHUTDOWN_"

// Log formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Config holds the coordinator settings.
type Config struct {
	// Timeout bounds the cleanup body.
	Timeout time.Duration `koanf:"timeout"`

	Log LogConfig `koanf:"log"`
}

// LogConfig configures the hclog logger.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// JSON reports whether logs should be written as JSON.
func (l LogConfig) JSON() bool {
	return l.Format == FormatJSON
}

// Validate checks the loaded values.
func (c Config) Validate() error {
	var errs []error

	if c.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("timeout must be positive, got %s", c.Timeout))
	}
	if hclog.LevelFromString(c.Log.Level) == hclog.NoLevel {
		errs = append(errs, fmt.Errorf("unknown log level %q", c.Log.Level))
	}
	if c.Log.Format != FormatText && c.Log.Format != FormatJSON {
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Log.Format))
	}

	return errors.Join(errs...)
}

// Loader loads configuration from multiple sources.
type Loader struct {
	k         *koanf.Koanf
	envPrefix string
	filePath  string
}

// Option is a function that configures the Loader.
type Option func(*Loader)

// WithEnvPrefix sets the environment variable prefix.
func WithEnvPrefix(prefix string) Option {
	return func(l *Loader) {
		l.envPrefix = prefix
	}
}

// WithConfigFile sets the YAML configuration file path.
func WithConfigFile(path string) Option {
	return func(l *Loader) {
		l.filePath = path
	}
}

// NewLoader creates a new configuration loader.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		k:         koanf.New("."),
		envPrefix: DefaultEnvPrefix,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Load reads every source and returns the validated configuration.
func (l *Loader) Load() (Config, error) {
	var cfg Config

	if err := l.k.Load(defaults(), nil); err != nil {
		return cfg, fmt.Errorf("load defaults: %w", err)
	}

	if l.filePath != "" {
		if err := l.k.Load(file.Provider(l.filePath), yaml.Parser()); err != nil {
			return cfg, fmt.Errorf("load file %s: %w", l.filePath, err)
		}
	}

	// HARNESS_SHUTDOWN_LOG_LEVEL -> log.level
	transform := func(s string) string {
		s = strings.TrimPrefix(s, l.envPrefix)
		return strings.ReplaceAll(strings.ToLower(s), "_", ".")
	}
	if err := l.k.Load(env.Provider(l.envPrefix, ".", transform), nil); err != nil {
		return cfg, fmt.Errorf("load env: %w", err)
	}

	if err := l.k.Unmarshal("", &cfg); err != nil {
		return cfg, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Load is a shortcut for NewLoader(opts...).Load().
func Load(opts ...Option) (Config, error) {
	return NewLoader(opts...).Load()
}
