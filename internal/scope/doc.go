// Package scope binds state to a unit of work rather than to the goroutine
// that happens to execute it.
//
// A unit of work is one request or job. Workers (the net/http connection
// goroutine, or a goroutine of a fixed pool) are reused across many units of
// work, so anything stored "per worker" survives into the next unit of work
// unless it is removed. This package makes that removal unconditional.
//
// # Scope Tokens
//
// A Boundary opens a [Scope] for exactly one unit of work and attaches it to
// the context.Context handed to the handler. Values are stored in the token,
// never in a process-wide slot:
//
//	var users = scope.NewRegistry[User]("user")
//
//	err := scope.NewBoundary(
//	    scope.WithInitializer(func(ctx context.Context) error {
//	        return users.Set(ctx, user)
//	    }),
//	).Run(ctx, func(ctx context.Context) error {
//	    u, ok := users.Get(ctx) // visible anywhere ctx is passed
//	    ...
//	})
//
// When Run returns, the token is closed: every entry is dropped and any later
// Get on a context that still references it reports absent.
//
// # Guaranteed Teardown
//
// Boundary.Run defers its teardown, so release hooks run and the token is
// closed whether the handler returns normally, returns an error, or panics.
// The handler's error is returned unchanged and a panic keeps propagating
// with its original value after teardown has finished.
//
// A Boundary is single use: UNINITIALIZED -> BOUND -> RUNNING -> TORN_DOWN.
// Calling Run a second time returns ErrBoundaryReused.
//
// # Goroutine-Keyed Storage
//
// [WorkerRegistry] is the thread-local analogue for callers that cannot take a
// context. It is keyed by the id of the calling goroutine, so it is only
// correct when a Boundary release hook clears it, and it is invisible to
// goroutines the handler spawns. Prefer [Registry].
//
// # Counters
//
// [Counter] yields 1, 2, 3, ... within one unit of work. A [CounterSource]
// hands out a fresh counter per unit of work ([FreshCounters]) or a pooled
// counter reset on acquire and release ([PooledCounters]).
package scope
