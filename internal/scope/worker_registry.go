package scope

import (
	"sync"

	"github.com/petermattis/goid"
)

// WorkerRegistry binds one value of type T to the calling goroutine.
//
// It mirrors thread-local storage for code that cannot receive a context.
// Entries are keyed by goroutine id, so:
//   - an entry set by a unit of work stays visible to the next unit of work on
//     the same worker until Clear runs; register Clear as a Boundary release
//     hook, never call it "after" the handler by hand;
//   - goroutines started by the handler do not see the entry.
type WorkerRegistry[T any] struct {
	name    string
	entries sync.Map // int64 goroutine id -> T
}

// NewWorkerRegistry creates a goroutine-keyed registry.
func NewWorkerRegistry[T any](name string) *WorkerRegistry[T] {
	return &WorkerRegistry[T]{name: name}
}

// Name returns the registry name.
func (r *WorkerRegistry[T]) Name() string {
	return r.name
}

// Set stores value for the calling goroutine, replacing any previous entry.
func (r *WorkerRegistry[T]) Set(value T) {
	r.entries.Store(workerID(), value)
}

// Get returns the entry of the calling goroutine.
func (r *WorkerRegistry[T]) Get() (T, bool) {
	var zero T

	v, ok := r.entries.Load(workerID())
	if !ok {
		return zero, false
	}

	typed, ok := v.(T)
	if !ok {
		return zero, false
	}

	return typed, true
}

// Clear removes the entry of the calling goroutine. Idempotent.
func (r *WorkerRegistry[T]) Clear() {
	r.entries.Delete(workerID())
}

// Len returns the number of goroutines that currently hold an entry.
// A non-zero value while no unit of work is running indicates a leak.
func (r *WorkerRegistry[T]) Len() int {
	n := 0

	r.entries.Range(func(_, _ any) bool {
		n++
		return true
	})

	return n
}

// workerID returns the runtime id of the calling goroutine.
func workerID() int64 {
	return goid.Get()
}
