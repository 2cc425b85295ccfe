package watcher

import (
	"path/filepath"
	"strings"
	"sync"
)

// IgnorePatterns manages glob-style ignore rules.
// It supports patterns like:
//   - *.log        - match files ending in .log anywhere
//   - node_modules/ - match a directory named node_modules
//   - !keep.log    - negate (don't ignore) keep.log
//
// Patterns are matched against every component of the path, so an ignored
// directory also hides everything below it.
type IgnorePatterns struct {
	mu       sync.RWMutex
	patterns []ignorePattern
}

type ignorePattern struct {
	pattern  string
	negation bool // Pattern starts with !
	dirOnly  bool // Pattern ends with /
}

// NewIgnorePatterns creates a new ignore pattern matcher.
func NewIgnorePatterns() *IgnorePatterns {
	return &IgnorePatterns{}
}

// AddPattern adds an ignore pattern. Empty patterns and comments are skipped.
func (ip *IgnorePatterns) AddPattern(pattern string) error {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" || strings.HasPrefix(pattern, "#") {
		return nil
	}

	var p ignorePattern
	if strings.HasPrefix(pattern, "!") {
		p.negation = true
		pattern = pattern[1:]
	}
	if strings.HasSuffix(pattern, "/") {
		p.dirOnly = true
		pattern = strings.TrimSuffix(pattern, "/")
	}

	// Reject malformed globs up front.
	if _, err := filepath.Match(pattern, ""); err != nil {
		return err
	}
	p.pattern = pattern

	ip.mu.Lock()
	ip.patterns = append(ip.patterns, p)
	ip.mu.Unlock()

	return nil
}

// Match returns true if the path should be ignored.
// Later patterns override earlier ones.
func (ip *IgnorePatterns) Match(path string, isDir bool) bool {
	ip.mu.RLock()
	defer ip.mu.RUnlock()

	parts := strings.Split(filepath.ToSlash(filepath.Clean(path)), "/")

	ignored := false
	for _, p := range ip.patterns {
		if matchComponents(p, parts, isDir) {
			ignored = !p.negation
		}
	}
	return ignored
}

// matchComponents reports whether p matches any component of the path.
// Components before the last one are directories.
func matchComponents(p ignorePattern, parts []string, isDir bool) bool {
	last := len(parts) - 1
	for i, part := range parts {
		if part == "" {
			continue
		}
		if p.dirOnly && i == last && !isDir {
			continue
		}
		if ok, _ := filepath.Match(p.pattern, part); ok {
			return true
		}
	}
	return false
}
