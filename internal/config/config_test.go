package config

import (
	"errors"
	"io/fs"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dshills/emitter/internal/logging"
)

// MemFS is an in-memory file system for testing.
type MemFS struct {
	files map[string][]byte
}

func NewMemFS() *MemFS {
	return &MemFS{files: make(map[string][]byte)}
}

func (m *MemFS) AddFile(path string, content string) {
	m.files[path] = []byte(content)
}

func (m *MemFS) ReadFile(path string) ([]byte, error) {
	data, ok := m.files[path]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return data, nil
}

type failingFS struct{}

func (failingFS) ReadFile(string) ([]byte, error) {
	return nil, fs.ErrPermission
}

func envFrom(vars map[string]string) *EnvLoader {
	return NewEnvLoaderWithLookup(EnvPrefix, func(name string) (string, bool) {
		v, ok := vars[name]
		return v, ok
	})
}

func TestDefault(t *testing.T) {
	cfg := Default()

	require.Equal(t, 10, cfg.Emitter.MaxListeners)
	require.Equal(t, "info", cfg.Log.Level)
	require.Equal(t, 250*time.Millisecond, cfg.Watch.BatchInterval.Std())
	require.Empty(t, cfg.Watch.Paths)
	require.NoError(t, cfg.Validate())
}

func TestLoader_File(t *testing.T) {
	memfs := NewMemFS()
	memfs.AddFile("/emitter.toml", `
[emitter]
max_listeners = 25
initial_events = ["user.created", "fs.write"]

[log]
level = "debug"
development = true

[watch]
paths = ["/srv/data"]
batch_interval = "1s"
ignore = ["*.log", "build/"]
ignore_hidden = true

[scripts]
files = ["hooks.lua"]
`)

	cfg, err := NewLoaderWith(memfs, envFrom(nil)).Load("/emitter.toml")
	require.NoError(t, err)

	require.Equal(t, 25, cfg.Emitter.MaxListeners)
	require.Equal(t, []string{"user.created", "fs.write"}, cfg.Emitter.InitialEvents)
	require.Equal(t, "debug", cfg.Log.Level)
	require.True(t, cfg.Log.Development)
	require.Equal(t, []string{"/srv/data"}, cfg.Watch.Paths)
	require.Equal(t, time.Second, cfg.Watch.BatchInterval.Std())
	require.Equal(t, []string{"*.log", "build/"}, cfg.Watch.Ignore)
	require.True(t, cfg.Watch.IgnoreHidden)
	require.Equal(t, []string{"hooks.lua"}, cfg.Scripts.Files)
}

func TestLoader_PartialFileKeepsDefaults(t *testing.T) {
	memfs := NewMemFS()
	memfs.AddFile("/emitter.toml", "[log]\nlevel = \"warn\"\n")

	cfg, err := NewLoaderWith(memfs, envFrom(nil)).Load("/emitter.toml")
	require.NoError(t, err)

	require.Equal(t, "warn", cfg.Log.Level)
	require.Equal(t, 10, cfg.Emitter.MaxListeners)
	require.Equal(t, 250*time.Millisecond, cfg.Watch.BatchInterval.Std())
}

func TestLoader_MissingFile(t *testing.T) {
	cfg, err := NewLoaderWith(NewMemFS(), envFrom(nil)).Load("/absent.toml")
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestLoader_EmptyPath(t *testing.T) {
	cfg, err := NewLoaderWith(failingFS{}, envFrom(nil)).Load("")
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestLoader_ReadError(t *testing.T) {
	_, err := NewLoaderWith(failingFS{}, envFrom(nil)).Load("/emitter.toml")
	require.ErrorIs(t, err, fs.ErrPermission)
}

func TestLoader_ParseError(t *testing.T) {
	memfs := NewMemFS()
	memfs.AddFile("/bad.toml", "[log]\nlevel = \n")

	_, err := NewLoaderWith(memfs, envFrom(nil)).Load("/bad.toml")

	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	require.Equal(t, "/bad.toml", perr.Path)
	require.Positive(t, perr.Line)
	require.Contains(t, perr.Error(), "parse error in /bad.toml at line")
}

func TestLoader_UnknownKey(t *testing.T) {
	memfs := NewMemFS()
	memfs.AddFile("/typo.toml", "[log]\nlevle = \"debug\"\n")

	_, err := NewLoaderWith(memfs, envFrom(nil)).Load("/typo.toml")

	var perr *ParseError
	require.ErrorAs(t, err, &perr)
}

func TestLoader_EnvOverridesFile(t *testing.T) {
	memfs := NewMemFS()
	memfs.AddFile("/emitter.toml", "[log]\nlevel = \"warn\"\n[emitter]\nmax_listeners = 3\n")

	env := envFrom(map[string]string{
		"EMITTER_LOG_LEVEL":            "error",
		"EMITTER_LOG_DEVELOPMENT":      "yes",
		"EMITTER_MAX_LISTENERS":        "7",
		"EMITTER_INITIAL_EVENTS":       "a.b, c",
		"EMITTER_WATCH_PATHS":          "/tmp/one,,/tmp/two",
		"EMITTER_WATCH_BATCH_INTERVAL": "2s",
		"EMITTER_WATCH_IGNORE":         "*.tmp, .cache",
		"EMITTER_WATCH_IGNORE_HIDDEN":  "on",
		"EMITTER_SCRIPTS":              "x.lua",
	})

	cfg, err := NewLoaderWith(memfs, env).Load("/emitter.toml")
	require.NoError(t, err)

	require.Equal(t, "error", cfg.Log.Level)
	require.True(t, cfg.Log.Development)
	require.Equal(t, 7, cfg.Emitter.MaxListeners)
	require.Equal(t, []string{"a.b", "c"}, cfg.Emitter.InitialEvents)
	require.Equal(t, []string{"/tmp/one", "/tmp/two"}, cfg.Watch.Paths)
	require.Equal(t, 2*time.Second, cfg.Watch.BatchInterval.Std())
	require.Equal(t, []string{"*.tmp", ".cache"}, cfg.Watch.Ignore)
	require.True(t, cfg.Watch.IgnoreHidden)
	require.Equal(t, []string{"x.lua"}, cfg.Scripts.Files)
}

func TestLoader_InvalidEnv(t *testing.T) {
	env := envFrom(map[string]string{"EMITTER_MAX_LISTENERS": "many"})

	_, err := NewLoaderWith(NewMemFS(), env).Load("")
	require.ErrorIs(t, err, ErrInvalidEnv)
	require.Contains(t, err.Error(), "EMITTER_MAX_LISTENERS")
}

func TestLoader_ValidatesResult(t *testing.T) {
	env := envFrom(map[string]string{"EMITTER_LOG_LEVEL": "chatty"})

	_, err := NewLoaderWith(NewMemFS(), env).Load("")
	require.ErrorIs(t, err, logging.ErrInvalidLevel)
}

func TestEnvLoader_Variables(t *testing.T) {
	vars := envFrom(nil).Variables()

	require.Contains(t, vars, "EMITTER_LOG_LEVEL")
	require.Contains(t, vars, "EMITTER_WATCH_PATHS")
	require.Contains(t, vars, "EMITTER_WATCH_IGNORE_HIDDEN")
	for _, v := range vars {
		require.True(t, strings.HasPrefix(v, EnvPrefix), v)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
		is      error
	}{
		{"defaults", func(c *Config) {}, false, nil},
		{"negative max listeners", func(c *Config) { c.Emitter.MaxListeners = -1 }, true, ErrInvalidMaxListeners},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, true, logging.ErrInvalidLevel},
		{"wildcard initial event", func(c *Config) { c.Emitter.InitialEvents = []string{"fs.*"} }, true, nil},
		{"zero batch interval while watching", func(c *Config) {
			c.Watch.Paths = []string{"."}
			c.Watch.BatchInterval = 0
		}, true, ErrInvalidBatchInterval},
		{"zero batch interval without watching", func(c *Config) { c.Watch.BatchInterval = 0 }, false, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()

			if !tt.wantErr {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			if tt.is != nil {
				require.True(t, errors.Is(err, tt.is), "got %v", err)
			}
		})
	}
}

func TestParse(t *testing.T) {
	cfg, err := Parse(strings.NewReader("[watch]\nbatch_interval = \"100ms\"\n"))
	require.NoError(t, err)
	require.Equal(t, 100*time.Millisecond, cfg.Watch.BatchInterval.Std())

	_, err = Parse(strings.NewReader("[watch]\nbatch_interval = \"soon\"\n"))
	require.Error(t, err)
}

func TestEmitterOptions(t *testing.T) {
	cfg := Default()
	cfg.Emitter.MaxListeners = 4
	cfg.Emitter.InitialEvents = []string{"user.created"}

	opts := cfg.EmitterOptions()
	require.Len(t, opts, 2)

	lc := cfg.LoggingConfig()
	require.Equal(t, "info", lc.Level)
	require.NotNil(t, lc.Output)
}

func TestDuration_MarshalText(t *testing.T) {
	text, err := Duration(1500 * time.Millisecond).MarshalText()
	require.NoError(t, err)
	require.Equal(t, "1.5s", string(text))
}
