// Package watcher turns file system changes into emitter events.
//
// A Source watches directories with fsnotify and emits a FileEvent on one
// key per operation (fs.create, fs.write, fs.remove, fs.rename, fs.chmod).
// Changes are also collected and emitted together on fs.batch once per
// batch interval.
package watcher

import (
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dshills/emitter/internal/event"
	"github.com/dshills/emitter/internal/event/topic"
)

// Errors returned by Source methods.
var (
	ErrWatcherClosed   = errors.New("watcher is closed")
	ErrAlreadyWatching = errors.New("path is already being watched")
	ErrNotWatching     = errors.New("path is not being watched")
	ErrPathNotExist    = errors.New("path does not exist")
)

// Op is a set of file system operations. Emitted events carry exactly one.
type Op uint32

const (
	OpCreate Op = 1 << iota
	OpWrite
	OpRemove
	OpRename
	OpChmod
)

// ops lists every single operation in emission order.
var ops = []Op{OpCreate, OpWrite, OpRemove, OpRename, OpChmod}

var opNames = map[Op]string{
	OpCreate: "create",
	OpWrite:  "write",
	OpRemove: "remove",
	OpRename: "rename",
	OpChmod:  "chmod",
}

// String returns the operation names joined by "|", e.g. "create|write".
func (op Op) String() string {
	if op == 0 {
		return "none"
	}
	var b strings.Builder
	for _, o := range ops {
		if !op.Has(o) {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('|')
		}
		b.WriteString(opNames[o])
	}
	if b.Len() == 0 {
		return "unknown"
	}
	return b.String()
}

// Has reports whether op includes every operation in o.
func (op Op) Has(o Op) bool {
	return op&o == o
}

// FileEvent is the payload of every fs.* key.
type FileEvent struct {
	// Path is the absolute path of the affected file or directory.
	Path string

	// Op is the single operation that occurred.
	Op Op

	Timestamp time.Time
}

// Keys emitted by a Source. Single-operation keys are named fs.<op>.
var (
	KeyCreate = event.NewKey[FileEvent](opTopic(OpCreate))
	KeyWrite  = event.NewKey[FileEvent](opTopic(OpWrite))
	KeyRemove = event.NewKey[FileEvent](opTopic(OpRemove))
	KeyRename = event.NewKey[FileEvent](opTopic(OpRename))
	KeyChmod  = event.NewKey[FileEvent](opTopic(OpChmod))

	// KeyBatch carries every change observed during one batch interval.
	KeyBatch = event.NewSliceKey[FileEvent]("fs.batch")
)

func opTopic(op Op) topic.Topic {
	return topic.Topic("fs." + opNames[op])
}

// KeyFor returns the key a single operation is emitted on.
func KeyFor(op Op) (event.Key[FileEvent], bool) {
	switch op {
	case OpCreate:
		return KeyCreate, true
	case OpWrite:
		return KeyWrite, true
	case OpRemove:
		return KeyRemove, true
	case OpRename:
		return KeyRename, true
	case OpChmod:
		return KeyChmod, true
	}
	return event.Key[FileEvent]{}, false
}

// Stats provides watcher status information.
type Stats struct {
	// WatchedPaths is the number of paths being watched.
	WatchedPaths int

	// TotalEvents is the total number of events emitted.
	TotalEvents int64

	// Batches is the number of fs.batch emissions.
	Batches int64

	// Errors is the total number of errors encountered.
	Errors int64

	// LastError is the most recent error, if any.
	LastError error

	// StartTime is when the watcher was started.
	StartTime time.Time
}

// Config holds watcher configuration options.
type Config struct {
	// BatchInterval is how often collected changes are emitted on fs.batch.
	// Zero disables batching.
	// Default: 250ms
	BatchInterval time.Duration

	// IgnorePatterns are glob patterns for paths to ignore.
	IgnorePatterns []string

	// IgnoreHidden ignores hidden files (starting with .).
	// Default: false
	IgnoreHidden bool

	// MaxWatches is the maximum number of paths to watch.
	// 0 means unlimited.
	MaxWatches int

	// Logger receives emission failures and watcher errors.
	Logger *zap.Logger
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		BatchInterval: 250 * time.Millisecond,
		Logger:        zap.NewNop(),
	}
}

// Option configures a watcher.
type Option func(*Config)

// WithBatchInterval sets the batch interval.
func WithBatchInterval(d time.Duration) Option {
	return func(c *Config) {
		c.BatchInterval = d
	}
}

// WithIgnorePatterns sets the ignore patterns.
func WithIgnorePatterns(patterns []string) Option {
	return func(c *Config) {
		c.IgnorePatterns = patterns
	}
}

// WithIgnoreHidden enables ignoring hidden files.
func WithIgnoreHidden(ignore bool) Option {
	return func(c *Config) {
		c.IgnoreHidden = ignore
	}
}

// WithMaxWatches sets the maximum number of watches.
func WithMaxWatches(max int) Option {
	return func(c *Config) {
		c.MaxWatches = max
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Config) {
		if l != nil {
			c.Logger = l
		}
	}
}
