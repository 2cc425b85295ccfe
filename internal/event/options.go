package event

import (
	"go.uber.org/zap"

	"github.com/dshills/emitter/internal/event/topic"
)

// Option configures an Emitter.
type Option func(*emitterConfig)

// emitterConfig contains configuration for the emitter.
type emitterConfig struct {
	// maxListeners is the advisory per-key listener limit.
	maxListeners int

	// initialEvents are keys whose buckets are created up front.
	initialEvents []topic.Topic

	// logger receives diagnostics.
	logger *zap.Logger

	// panicHandler is called when a handler panics.
	panicHandler PanicHandler
}

// defaultEmitterConfig returns sensible default configuration.
func defaultEmitterConfig() emitterConfig {
	return emitterConfig{
		maxListeners: DefaultMaxListeners,
		logger:       zap.NewNop(),
	}
}

// WithMaxListeners sets the advisory per-key listener limit.
func WithMaxListeners(n int) Option {
	return func(c *emitterConfig) {
		if n >= 0 {
			c.maxListeners = n
		}
	}
}

// WithInitialEvents creates empty buckets for the given keys at construction.
func WithInitialEvents(names ...topic.Topic) Option {
	return func(c *emitterConfig) {
		c.initialEvents = append(c.initialEvents, names...)
	}
}

// WithLogger sets the logger used for diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(c *emitterConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithPanicHandler sets the callback invoked when a handler panics.
// The default logs the panic at error level.
func WithPanicHandler(h PanicHandler) Option {
	return func(c *emitterConfig) {
		if h != nil {
			c.panicHandler = h
		}
	}
}
