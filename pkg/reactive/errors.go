package reactive

import (
	"errors"
	"fmt"
)

// ErrInvariant is the sentinel wrapped by every InvariantError.
//
// Invariant violations are programming errors: the push/pop protocol of the
// context stacks was bypassed and the dependency graph can no longer be
// trusted. They are raised with panic, never returned.
var ErrInvariant = errors.New("reactive: invariant violation")

// InvariantError describes a broken engine invariant.
type InvariantError struct {
	// Op is the operation that detected the violation (e.g. "popReaction").
	Op string

	// Detail describes what was expected and what was found.
	Detail string
}

// Error implements the error interface.
func (e *InvariantError) Error() string {
	return fmt.Sprintf("reactive: invariant violation in %s: %s", e.Op, e.Detail)
}

// Unwrap returns ErrInvariant for errors.Is support.
func (e *InvariantError) Unwrap() error {
	return ErrInvariant
}

// invariant panics with an InvariantError.
func invariant(op, format string, args ...any) {
	panic(&InvariantError{Op: op, Detail: fmt.Sprintf(format, args...)})
}
