package scope

import "errors"

var (
	// ErrNoScope is returned when a value is set on a context that is not
	// running inside a Boundary.
	ErrNoScope = errors.New("no active scope in context")

	// ErrScopeClosed is returned when a value is set on a scope that has
	// already been torn down.
	ErrScopeClosed = errors.New("scope already torn down")

	// ErrBoundaryReused is returned when Run is called on a Boundary that has
	// already been used for a unit of work.
	ErrBoundaryReused = errors.New("scope boundary already used")

	// ErrUnknownCounterStrategy is returned for an unrecognised counter strategy.
	ErrUnknownCounterStrategy = errors.New("unknown counter strategy")
)
