// Package config loads compiler configuration from a YAML file with
// environment-variable defaults.
package config

import (
	"fmt"
	"os"

	"github.com/xyproto/env/v2"
	"gopkg.in/yaml.v3"
)

// DefaultPath is searched when no config file is given explicitly.
const DefaultPath = "calyx.yml"

// OptimizeConfig controls the optimization pipeline.
type OptimizeConfig struct {
	// Level 0 disables optimization; 1-3 run the full pipeline.
	Level int `yaml:"level"`
	// PreserveUserBindings keeps user-authored bindings for debugging.
	PreserveUserBindings bool `yaml:"preserve_user_bindings"`
}

// LogConfig controls structured logging output.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config is the full compiler configuration.
type Config struct {
	Optimize OptimizeConfig `yaml:"optimize"`
	Log      LogConfig      `yaml:"log"`
}

// Defaults returns the configuration seeded from the environment.
func Defaults() *Config {
	return &Config{
		Optimize: OptimizeConfig{
			Level:                env.Int("CALYX_OPT_LEVEL", 2),
			PreserveUserBindings: env.Bool("CALYX_PRESERVE_BINDINGS"),
		},
		Log: LogConfig{
			Level:  env.Str("CALYX_LOG_LEVEL", "info"),
			Format: env.Str("CALYX_LOG_FORMAT", "text"),
		},
	}
}

// Load reads configuration from path, falling back to DefaultPath and
// then to Defaults when no file exists. An explicitly given path must
// exist.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	cfg := Defaults()
	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges and enumerations.
func (c *Config) Validate() error {
	if c.Optimize.Level < 0 || c.Optimize.Level > 3 {
		return fmt.Errorf("optimize.level must be between 0 and 3, got %d", c.Optimize.Level)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be %q or %q, got %q", "text", "json", c.Log.Format)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error; got %q", c.Log.Level)
	}
	return nil
}
