package config

import (
	"errors"
	"fmt"
)

// Errors returned by configuration operations.
var (
	// ErrInvalidMaxListeners indicates a negative listener limit.
	ErrInvalidMaxListeners = errors.New("max_listeners must not be negative")

	// ErrInvalidBatchInterval indicates a non-positive watch batch interval.
	ErrInvalidBatchInterval = errors.New("batch_interval must be positive")

	// ErrInvalidEnv indicates an environment override that cannot be parsed.
	ErrInvalidEnv = errors.New("invalid environment override")
)

// ParseError reports a malformed configuration file. Line and Column are
// 1-based and zero when the decoder could not tell.
type ParseError struct {
	Path    string
	Line    int
	Column  int
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	var where string
	switch {
	case e.Line > 0 && e.Column > 0:
		where = fmt.Sprintf(" at line %d, column %d", e.Line, e.Column)
	case e.Line > 0:
		where = fmt.Sprintf(" at line %d", e.Line)
	}
	return "parse error in " + e.Path + where + ": " + e.Message
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
