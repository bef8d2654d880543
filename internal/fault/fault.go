// Package fault classifies the failures a refresh cycle can end with.
// None of them are fatal: callers log them and keep the last good render state.
package fault

import (
	"errors"
	"fmt"
)

// Kind identifies a failure class.
type Kind int

const (
	Unknown Kind = iota
	// Configuration marks a domain that cannot run, e.g. a missing API key.
	Configuration
	// Validation marks a response that does not match what was requested.
	Validation
	// Network covers transport failures, non-2xx statuses and unparsable bodies.
	Network
	// PartialBatch means at least one request of a parallel batch failed.
	PartialBatch
	// CacheCorruption means the persisted cache could not be read or parsed.
	CacheCorruption
)

func (k Kind) String() string {
	switch k {
	case Configuration:
		return "configuration error"
	case Validation:
		return "validation error"
	case Network:
		return "network error"
	case PartialBatch:
		return "partial batch error"
	case CacheCorruption:
		return "cache corruption"
	default:
		return "unknown error"
	}
}

// Error is a classified failure raised by operation Op.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New wraps err with a kind and the operation that produced it.
func New(kind Kind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the kind of the outermost *Error in err's chain, or Unknown.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return Unknown
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
