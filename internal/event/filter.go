package event

import (
	"context"
	"strings"

	"github.com/dshills/emitter/internal/event/topic"
)

// FilterFunc decides whether a wildcard listener sees an emission.
type FilterFunc func(name topic.Topic, args []any) bool

// Filtered wraps fn so it only runs for emissions accepted by filter.
// Rejected emissions count as successful deliveries.
func Filtered(filter FilterFunc, fn WildcardFunc) WildcardFunc {
	return func(ctx context.Context, name topic.Topic, args []any) error {
		if !filter(name, args) {
			return nil
		}
		return fn(ctx, name, args)
	}
}

// FilterByTopic allows emissions whose key matches the pattern.
// Patterns may use * for one segment and ** for any number of segments.
func FilterByTopic(pattern topic.Topic) FilterFunc {
	return func(name topic.Topic, _ []any) bool {
		return name.Matches(pattern)
	}
}

// FilterByTopicPrefix allows emissions whose key starts with prefix.
func FilterByTopicPrefix(prefix string) FilterFunc {
	return func(name topic.Topic, _ []any) bool {
		return strings.HasPrefix(string(name), prefix)
	}
}

// FilterExcludeTopic rejects emissions whose key matches the pattern.
func FilterExcludeTopic(pattern topic.Topic) FilterFunc {
	return func(name topic.Topic, _ []any) bool {
		return !name.Matches(pattern)
	}
}

// FilterByArgCount allows emissions carrying exactly n normalized arguments.
func FilterByArgCount(n int) FilterFunc {
	return func(_ topic.Topic, args []any) bool {
		return len(args) == n
	}
}

// FilterAnd combines filters with AND logic.
func FilterAnd(filters ...FilterFunc) FilterFunc {
	return func(name topic.Topic, args []any) bool {
		for _, f := range filters {
			if !f(name, args) {
				return false
			}
		}
		return true
	}
}

// FilterOr combines filters with OR logic.
func FilterOr(filters ...FilterFunc) FilterFunc {
	return func(name topic.Topic, args []any) bool {
		for _, f := range filters {
			if f(name, args) {
				return true
			}
		}
		return false
	}
}

// FilterNot negates a filter.
func FilterNot(filter FilterFunc) FilterFunc {
	return func(name topic.Topic, args []any) bool {
		return !filter(name, args)
	}
}

// FilterAll allows every emission.
func FilterAll() FilterFunc {
	return func(topic.Topic, []any) bool {
		return true
	}
}
