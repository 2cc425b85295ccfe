package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// EnvLoader applies environment variable overrides to a Config.
type EnvLoader struct {
	prefix  string // Environment variable prefix (e.g., "EMITTER_")
	lookup  func(string) (string, bool)
	mapping map[string]setter // Env var suffix -> setter
}

type setter func(c *Config, value string) error

// NewEnvLoader creates a loader reading the process environment.
// The prefix should include the trailing underscore (e.g., "EMITTER_").
func NewEnvLoader(prefix string) *EnvLoader {
	return NewEnvLoaderWithLookup(prefix, os.LookupEnv)
}

// NewEnvLoaderWithLookup creates a loader with a custom variable lookup.
func NewEnvLoaderWithLookup(prefix string, lookup func(string) (string, bool)) *EnvLoader {
	return &EnvLoader{
		prefix:  prefix,
		lookup:  lookup,
		mapping: defaultEnvMapping(),
	}
}

// defaultEnvMapping returns the supported overrides.
func defaultEnvMapping() map[string]setter {
	return map[string]setter{
		"LOG_LEVEL": func(c *Config, v string) error {
			c.Log.Level = v
			return nil
		},
		"LOG_DEVELOPMENT": func(c *Config, v string) error {
			b, err := parseBool(v)
			if err != nil {
				return err
			}
			c.Log.Development = b
			return nil
		},
		"MAX_LISTENERS": func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return err
			}
			c.Emitter.MaxListeners = n
			return nil
		},
		"INITIAL_EVENTS": func(c *Config, v string) error {
			c.Emitter.InitialEvents = splitList(v)
			return nil
		},
		"WATCH_PATHS": func(c *Config, v string) error {
			c.Watch.Paths = splitList(v)
			return nil
		},
		"WATCH_BATCH_INTERVAL": func(c *Config, v string) error {
			d, err := time.ParseDuration(v)
			if err != nil {
				return err
			}
			c.Watch.BatchInterval = Duration(d)
			return nil
		},
		"WATCH_IGNORE": func(c *Config, v string) error {
			c.Watch.Ignore = splitList(v)
			return nil
		},
		"WATCH_IGNORE_HIDDEN": func(c *Config, v string) error {
			b, err := parseBool(v)
			if err != nil {
				return err
			}
			c.Watch.IgnoreHidden = b
			return nil
		},
		"SCRIPTS": func(c *Config, v string) error {
			c.Scripts.Files = splitList(v)
			return nil
		},
	}
}

// Variables returns the names of every supported variable.
func (l *EnvLoader) Variables() []string {
	names := make([]string, 0, len(l.mapping))
	for suffix := range l.mapping {
		names = append(names, l.prefix+suffix)
	}
	return names
}

// Apply overrides cfg with every set variable.
// Note: Empty string values are treated as valid values, not as unset.
func (l *EnvLoader) Apply(cfg *Config) error {
	for suffix, set := range l.mapping {
		name := l.prefix + suffix
		val, ok := l.lookup(name)
		if !ok {
			continue
		}
		if err := set(cfg, val); err != nil {
			return fmt.Errorf("%w %s=%q: %v", ErrInvalidEnv, name, val, err)
		}
	}
	return nil
}

// parseBool accepts the usual spellings of a boolean.
func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "true", "yes", "on", "1":
		return true, nil
	case "false", "no", "off", "0", "":
		return false, nil
	default:
		return false, fmt.Errorf("not a boolean: %q", s)
	}
}

// splitList splits a comma-separated list, dropping empty entries.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
