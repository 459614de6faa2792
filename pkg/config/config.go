// Package config loads the optional schemaui.yaml runtime configuration.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// FileName is the configuration file looked up by LoadOptional.
const FileName = "schemaui.yaml"

// Defaults.
const (
	DefaultBatchSize             = 100
	DefaultListenerWarnThreshold = 10
	DefaultLogLevel              = "info"
)

// Config represents the optional schemaui.yaml configuration.
type Config struct {
	Runtime RuntimeConfig `yaml:"runtime"`
	Log     LogConfig     `yaml:"log"`
	Loader  LoaderConfig  `yaml:"loader"`
}

// RuntimeConfig contains rendering settings.
type RuntimeConfig struct {
	// BatchSize is how many init hooks run between cooperative yields.
	BatchSize int `yaml:"batch_size,omitempty"`
	// ListenerWarnThreshold is the listener count per element or channel
	// above which a leak warning is logged. Negative disables warnings.
	ListenerWarnThreshold int `yaml:"listener_warn_threshold,omitempty"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level   string `yaml:"level,omitempty"`
	Verbose bool   `yaml:"verbose,omitempty"`
	Console bool   `yaml:"console,omitempty"`
}

// LoaderConfig contains module loading settings.
type LoaderConfig struct {
	// Root is a directory of YAML modules, mounted at Prefix.
	Root   string `yaml:"root,omitempty"`
	Prefix string `yaml:"prefix,omitempty"`
	Watch  bool   `yaml:"watch,omitempty"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads the configuration at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return Parse(data)
}

// LoadOptional reads schemaui.yaml from dir if present.
func LoadOptional(dir string) (*Config, error) {
	cfg, err := Load(filepath.Join(dir, FileName))
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Parse decodes and validates a configuration document.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", FileName, err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Runtime.BatchSize == 0 {
		c.Runtime.BatchSize = DefaultBatchSize
	}
	if c.Runtime.ListenerWarnThreshold == 0 {
		c.Runtime.ListenerWarnThreshold = DefaultListenerWarnThreshold
	}
	c.Log.Level = strings.TrimSpace(c.Log.Level)
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Loader.Prefix == "" {
		c.Loader.Prefix = "/"
	}
}

// Validate reports invalid settings.
func (c *Config) Validate() error {
	if c.Runtime.BatchSize < 1 {
		return fmt.Errorf("runtime.batch_size must be positive, got %d", c.Runtime.BatchSize)
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if !strings.HasPrefix(c.Loader.Prefix, "/") {
		return fmt.Errorf("loader.prefix must start with /, got %q", c.Loader.Prefix)
	}
	if c.Loader.Watch && c.Loader.Root == "" {
		return errors.New("loader.watch requires loader.root")
	}
	return nil
}

// WarnThreshold returns the listener warning threshold, zero when disabled.
func (c *Config) WarnThreshold() int {
	return max(c.Runtime.ListenerWarnThreshold, 0)
}

// Logger builds the logger described by the configuration.
func (c *Config) Logger(w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(c.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	if c.Log.Console {
		w = zerolog.ConsoleWriter{Out: w, NoColor: true}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}
