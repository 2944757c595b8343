package reconmem

import "errors"

var (
	// ErrNotFound is returned by required lookups (Get, ByID) when no row matches.
	ErrNotFound = errors.New("not found")

	// ErrInvalidFilter is returned when a filter expression cannot be parsed.
	ErrInvalidFilter = errors.New("invalid filter")

	// ErrInvalidValue is returned when a record fails validation before any write.
	ErrInvalidValue = errors.New("invalid value")

	// ErrUnsupported is returned for operations a family cannot perform,
	// such as natural key lookups on join tables.
	ErrUnsupported = errors.New("unsupported operation")

	// ErrNotScopable is returned by scope operations on families without an unscoped column.
	ErrNotScopable = errors.New("family is not scopable")

	// ErrCorruptTTL is returned when a ttl row references a table that does not exist.
	ErrCorruptTTL = errors.New("corrupt ttl")
)
