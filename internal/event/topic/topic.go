package topic

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// Topic is the name of an event key, using dot notation.
// Examples: "user.created", "fs.write", "plugin.hooks.ready"
type Topic string

const (
	// Separator splits a topic into segments.
	Separator = "."

	// WildcardSingle matches exactly one segment.
	WildcardSingle = "*"

	// WildcardMulti matches zero or more segments.
	WildcardMulti = "**"
)

// ErrInvalid is returned by Validate for malformed topics.
var ErrInvalid = errors.New("invalid topic")

func (t Topic) String() string {
	return string(t)
}

// Name returns t itself, so a bare topic can stand in for a typed key in
// operations that only need the name.
func (t Topic) Name() Topic {
	return t
}

// Segments splits the topic on the separator. The empty topic has none.
func (t Topic) Segments() []string {
	if t == "" {
		return nil
	}
	return strings.Split(string(t), Separator)
}

// IsWildcard reports whether any segment is a wildcard.
func (t Topic) IsWildcard() bool {
	return strings.Contains(string(t), WildcardSingle)
}

// IsValid reports whether the topic is well formed: non-empty, with no
// empty segments and no whitespace. Wildcards are allowed.
func (t Topic) IsValid() bool {
	return t.check() == ""
}

// Validate returns an error wrapping ErrInvalid unless the topic is well
// formed and concrete. Key names must not contain wildcards.
func (t Topic) Validate() error {
	if reason := t.check(); reason != "" {
		return fmt.Errorf("%w %q: %s", ErrInvalid, string(t), reason)
	}
	if t.IsWildcard() {
		return fmt.Errorf("%w %q: wildcards are only allowed in patterns", ErrInvalid, string(t))
	}
	return nil
}

// check returns why t is malformed, or "" if it is not.
func (t Topic) check() string {
	if t == "" {
		return "empty"
	}
	for i, seg := range t.Segments() {
		if seg == "" {
			return fmt.Sprintf("segment %d is empty", i+1)
		}
		if strings.IndexFunc(seg, unicode.IsSpace) >= 0 {
			return fmt.Sprintf("segment %d contains whitespace", i+1)
		}
	}
	return ""
}

// Matches reports whether t matches pattern. In the pattern "*" stands for
// exactly one segment and "**" for any number of segments, including none.
func (t Topic) Matches(pattern Topic) bool {
	if pattern == t {
		return true
	}
	return match(t.Segments(), pattern.Segments())
}

func match(name, pattern []string) bool {
	for len(pattern) > 0 {
		head := pattern[0]
		pattern = pattern[1:]

		switch head {
		case WildcardMulti:
			// Try every split point, shortest first.
			for i := 0; i <= len(name); i++ {
				if match(name[i:], pattern) {
					return true
				}
			}
			return false
		case WildcardSingle:
			if len(name) == 0 {
				return false
			}
		default:
			if len(name) == 0 || name[0] != head {
				return false
			}
		}
		name = name[1:]
	}
	return len(name) == 0
}
