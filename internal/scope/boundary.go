package scope

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"
)

// State is the lifecycle state of a Boundary.
type State int32

const (
	StateUninitialized State = iota
	StateBound
	StateRunning
	StateTornDown
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateBound:
		return "bound"
	case StateRunning:
		return "running"
	case StateTornDown:
		return "torn_down"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Handler is the unit of work run inside a Boundary.
type Handler func(ctx context.Context) error

// Initializer binds per-scope state before the handler runs.
type Initializer func(ctx context.Context) error

// Releaser undoes per-scope state that does not live in the Scope itself,
// such as goroutine-keyed entries or pooled objects.
type Releaser func(ctx context.Context)

// Option configures a Boundary.
type Option func(*Boundary)

// WithInitializer adds an initializer. Initializers run in the order added.
func WithInitializer(fn Initializer) Option {
	return func(b *Boundary) {
		b.initializers = append(b.initializers, fn)
	}
}

// WithReleaser adds a release hook. Hooks run in reverse order of addition.
func WithReleaser(fn Releaser) Option {
	return func(b *Boundary) {
		b.releasers = append(b.releasers, fn)
	}
}

// WithObserver sets the lifecycle observer.
func WithObserver(o Observer) Option {
	return func(b *Boundary) {
		if o != nil {
			b.observer = o
		}
	}
}

// WithLogger sets the logger used for teardown diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Boundary) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// Boundary opens and closes the scope of exactly one unit of work.
type Boundary struct {
	state atomic.Int32
	scope atomic.Pointer[Scope]

	initializers []Initializer
	releasers    []Releaser
	observer     Observer
	logger       *slog.Logger
}

// NewBoundary creates an unused Boundary.
func NewBoundary(opts ...Option) *Boundary {
	b := &Boundary{
		observer: nopObserver{},
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Run opens a scope, binds state through the initializers, runs handler and
// tears the scope down on every exit path.
//
// The handler's error is returned as is. If the handler panics, teardown
// completes and the panic continues with its original value. An initializer
// failure skips the handler and is returned wrapped.
func (b *Boundary) Run(ctx context.Context, handler Handler) error {
	if !b.state.CompareAndSwap(int32(StateUninitialized), int32(StateBound)) {
		return ErrBoundaryReused
	}

	s := newScope()
	b.scope.Store(s)
	ctx = withScope(ctx, s)

	b.observer.ScopeOpened(s.ID())

	outcome := OutcomePanic

	defer func() {
		b.teardown(ctx, s, outcome)
	}()

	for _, initialize := range b.initializers {
		if err := initialize(ctx); err != nil {
			outcome = OutcomeError
			return fmt.Errorf("binding scope %s: %w", s.ID(), err)
		}
	}

	b.state.Store(int32(StateRunning))

	err := handler(ctx)
	outcome = outcomeOf(err)

	return err
}

// State returns the current lifecycle state.
func (b *Boundary) State() State {
	return State(b.state.Load())
}

// Scope returns the scope opened by Run, or nil before Run.
func (b *Boundary) Scope() *Scope {
	return b.scope.Load()
}

func (b *Boundary) teardown(ctx context.Context, s *Scope, outcome Outcome) {
	for i := len(b.releasers) - 1; i >= 0; i-- {
		b.release(ctx, s, b.releasers[i])
	}

	cleared := s.close()
	b.state.Store(int32(StateTornDown))

	b.logger.DebugContext(ctx, "scope closed",
		slog.String("scope_id", s.ID()),
		slog.String("outcome", string(outcome)),
		slog.Int("entries_cleared", cleared),
	)

	b.observer.ScopeClosed(s.ID(), time.Since(s.OpenedAt()), outcome, cleared)
}

// release runs one hook; a panicking hook must not stop the remaining hooks
// or replace the handler's outcome.
func (b *Boundary) release(ctx context.Context, s *Scope, fn Releaser) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.ErrorContext(ctx, "scope release hook panicked",
				slog.String("scope_id", s.ID()),
				slog.Any("panic", r),
			)
		}
	}()

	fn(ctx)
}

// Run is shorthand for NewBoundary(opts...).Run(ctx, handler).
func Run(ctx context.Context, handler Handler, opts ...Option) error {
	return NewBoundary(opts...).Run(ctx, handler)
}
