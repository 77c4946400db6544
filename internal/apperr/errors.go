// Package apperr holds the sentinel errors shared across the graph packages.
// Call sites wrap them with context; callers match with errors.Is.
package apperr

import "errors"

var (
	// ErrConnection means the backing store could not be reached at open.
	ErrConnection = errors.New("store unreachable")

	// ErrUnknownArrow means an arrow name is not in the registry.
	ErrUnknownArrow = errors.New("unknown arrow")
	// ErrBrokenInverse means an arrow has no valid inverse pairing.
	// The registry load is corrupt and the session should be abandoned.
	ErrBrokenInverse = errors.New("broken inverse arrow")
	// ErrRegistryMismatch means the arrow directory pointers are not contiguous,
	// or a definition contradicts an arrow already in the store.
	ErrRegistryMismatch = errors.New("arrow directory out of sync")

	ErrNodeNotFound       = errors.New("node not found")
	ErrMalformedPath      = errors.New("malformed path")
	ErrSTTypeOutOfRange   = errors.New("semantic type out of range (must be -3 to +3)")
	ErrSelfLoop           = errors.New("self-loops are not allowed")
	ErrZeroWeight         = errors.New("link weight must be non-zero")
	ErrInvalidOrientation = errors.New("invalid orientation")
	ErrInvalidDepth       = errors.New("search depth must not be negative")
)
