// Package topic provides the name type for event keys and pattern matching.
//
// # Topic Format
//
// Topics use dot-notation to create hierarchical namespaces:
//
//	user.created
//	fs.write
//	plugin.hooks.ready
//
// Key names must be concrete topics. Patterns are only used to filter
// wildcard listeners.
//
// # Wildcards
//
// Two wildcard patterns are supported:
//
//   - "*" matches exactly one segment
//   - "**" matches zero or more segments
//
// Examples:
//
//	fs.*          matches fs.write, fs.create (not fs.batch.flushed)
//	fs.**         matches fs.write, fs.batch.flushed
//	*.created     matches user.created, order.created
//	**            matches everything
package topic
