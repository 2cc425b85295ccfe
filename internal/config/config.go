// Package config loads emitter configuration from a TOML file and the
// environment.
//
// Settings are layered: built-in defaults, then the TOML file, then
// EMITTER_* environment variables. A missing file is not an error.
//
//	[emitter]
//	max_listeners = 10
//	initial_events = ["user.created"]
//
//	[log]
//	level = "info"
//	development = false
//
//	[watch]
//	paths = ["."]
//	batch_interval = "250ms"
//	ignore = ["*.log", "node_modules"]
//	ignore_hidden = true
//
//	[scripts]
//	files = ["hooks.lua"]
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/dshills/emitter/internal/event"
	"github.com/dshills/emitter/internal/event/topic"
	"github.com/dshills/emitter/internal/logging"
)

// Config is the complete emitter configuration.
type Config struct {
	Emitter EmitterConfig `toml:"emitter"`
	Log     LogConfig     `toml:"log"`
	Watch   WatchConfig   `toml:"watch"`
	Scripts ScriptsConfig `toml:"scripts"`
}

// EmitterConfig configures the event emitter.
type EmitterConfig struct {
	// MaxListeners is the advisory per-key listener limit.
	MaxListeners int `toml:"max_listeners"`

	// InitialEvents are keys created empty at startup.
	InitialEvents []string `toml:"initial_events"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level       string `toml:"level"`
	Development bool   `toml:"development"`
}

// WatchConfig configures the filesystem event source.
type WatchConfig struct {
	// Paths are watched directories. Empty disables watching.
	Paths []string `toml:"paths"`

	// BatchInterval is how often accumulated changes are emitted as one batch.
	BatchInterval Duration `toml:"batch_interval"`

	// Ignore holds gitignore-style patterns for paths that produce no events.
	Ignore []string `toml:"ignore"`

	// IgnoreHidden drops events for dot files and directories.
	IgnoreHidden bool `toml:"ignore_hidden"`
}

// ScriptsConfig lists Lua scripts to load.
type ScriptsConfig struct {
	Files []string `toml:"files"`
}

// Duration is a time.Duration written as a Go duration string ("250ms").
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Emitter: EmitterConfig{
			MaxListeners: event.DefaultMaxListeners,
		},
		Log: LogConfig{
			Level: "info",
		},
		Watch: WatchConfig{
			BatchInterval: Duration(250 * time.Millisecond),
		},
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	var errs []error

	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if c.Emitter.MaxListeners < 0 {
		errs = append(errs, fmt.Errorf("emitter.max_listeners: %w", ErrInvalidMaxListeners))
	}
	for _, name := range c.Emitter.InitialEvents {
		if err := topic.Topic(name).Validate(); err != nil {
			errs = append(errs, fmt.Errorf("emitter.initial_events: %w", err))
		}
	}
	if len(c.Watch.Paths) > 0 && c.Watch.BatchInterval <= 0 {
		errs = append(errs, fmt.Errorf("watch.batch_interval: %w", ErrInvalidBatchInterval))
	}

	return errors.Join(errs...)
}

// EmitterOptions converts the emitter section into emitter options.
func (c *Config) EmitterOptions() []event.Option {
	names := make([]topic.Topic, len(c.Emitter.InitialEvents))
	for i, name := range c.Emitter.InitialEvents {
		names[i] = topic.Topic(name)
	}
	return []event.Option{
		event.WithMaxListeners(c.Emitter.MaxListeners),
		event.WithInitialEvents(names...),
	}
}

// LoggingConfig converts the log section into a logger configuration.
func (c *Config) LoggingConfig() logging.Config {
	lc := logging.DefaultConfig()
	lc.Level = c.Log.Level
	lc.Development = c.Log.Development
	return lc
}
