package scope

import (
	"context"
	"fmt"
)

// Registry binds one value of type T to the unit of work carried by a context.
// The registry itself holds no state; entries live in the Scope and disappear
// when it is torn down. A Registry is safe for concurrent use and is usually a
// package-level variable.
type Registry[T any] struct {
	name string
}

// NewRegistry creates a registry. The name is used in error messages only.
func NewRegistry[T any](name string) *Registry[T] {
	return &Registry[T]{name: name}
}

// Name returns the registry name.
func (r *Registry[T]) Name() string {
	return r.name
}

// Set stores value for the unit of work carried by ctx, replacing any
// previous entry. Returns ErrNoScope outside a Boundary and ErrScopeClosed
// after teardown.
func (r *Registry[T]) Set(ctx context.Context, value T) error {
	s, ok := rawFromContext(ctx)
	if !ok {
		return fmt.Errorf("setting %s: %w", r.name, ErrNoScope)
	}

	if err := s.store(r, value); err != nil {
		return fmt.Errorf("setting %s: %w", r.name, err)
	}

	return nil
}

// GetOrSet returns the existing entry, or stores value and returns it.
func (r *Registry[T]) GetOrSet(ctx context.Context, value T) (T, error) {
	var zero T

	s, ok := rawFromContext(ctx)
	if !ok {
		return zero, fmt.Errorf("setting %s: %w", r.name, ErrNoScope)
	}

	v, err := s.loadOrStore(r, value)
	if err != nil {
		return zero, fmt.Errorf("setting %s: %w", r.name, err)
	}

	typed, ok := v.(T)
	if !ok {
		return value, nil
	}

	return typed, nil
}

// Get returns the entry for the unit of work carried by ctx.
// Reports false when there is no live scope or nothing was set.
func (r *Registry[T]) Get(ctx context.Context) (T, bool) {
	var zero T

	s, ok := rawFromContext(ctx)
	if !ok {
		return zero, false
	}

	v, ok := s.load(r)
	if !ok {
		return zero, false
	}

	typed, ok := v.(T)
	if !ok {
		return zero, false
	}

	return typed, true
}

// Clear removes the entry for the unit of work carried by ctx.
// Clearing a missing entry, a closed scope, or a context without scope is a no-op.
func (r *Registry[T]) Clear(ctx context.Context) {
	if s, ok := rawFromContext(ctx); ok {
		s.remove(r)
	}
}
