package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// EnvPrefix is the prefix of environment overrides.
const EnvPrefix = "EMITTER_"

// FileSystem is an abstraction for file system operations.
// This allows for easy testing with in-memory file systems.
type FileSystem interface {
	// ReadFile reads the entire file at path.
	ReadFile(path string) ([]byte, error)
}

// OSFS implements FileSystem using the real OS file system.
type OSFS struct{}

// ReadFile reads the entire file at path.
func (OSFS) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// Loader reads configuration layers into a Config.
type Loader struct {
	fs  FileSystem
	env *EnvLoader
}

// NewLoader creates a loader reading from the OS file system and the
// process environment.
func NewLoader() *Loader {
	return &Loader{
		fs:  OSFS{},
		env: NewEnvLoader(EnvPrefix),
	}
}

// NewLoaderWith creates a loader with a custom file system and environment.
func NewLoaderWith(fsys FileSystem, env *EnvLoader) *Loader {
	return &Loader{fs: fsys, env: env}
}

// Load returns the defaults overlaid with the file at path and the
// environment, and validates the result. An empty path or a missing file
// skips the file layer.
func (l *Loader) Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := l.fs.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			// File doesn't exist, not an error
		case err != nil:
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		default:
			if err := decode(path, bytes.NewReader(data), cfg); err != nil {
				return nil, err
			}
		}
	}

	if l.env != nil {
		if err := l.env.Apply(cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Load reads configuration with the default loader.
func Load(path string) (*Config, error) {
	return NewLoader().Load(path)
}

// Parse decodes TOML from r over the defaults without environment
// overrides or validation.
func Parse(r io.Reader) (*Config, error) {
	cfg := Default()
	if err := decode("<reader>", r, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decode parses TOML data into cfg. Unknown keys are rejected.
func decode(source string, r io.Reader, cfg *Config) error {
	dec := toml.NewDecoder(r).DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		perr := &ParseError{
			Path:    source,
			Message: err.Error(),
			Err:     err,
		}
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			perr.Line, perr.Column = derr.Position()
		}
		return perr
	}
	return nil
}
