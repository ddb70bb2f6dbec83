// Package app contains application services that orchestrate use cases.
//
// Every use case runs inside a unit of work opened by the Dispatcher. The
// Dispatcher binds the caller's ExecutionContext and a fresh order counter to
// that unit of work and guarantees both are gone before the goroutine that
// ran it picks up anything else.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	appctx "github.com/jsamuelsen/request-scope-service/internal/app/context"
	"github.com/jsamuelsen/request-scope-service/internal/domain"
	"github.com/jsamuelsen/request-scope-service/internal/platform/logging"
	"github.com/jsamuelsen/request-scope-service/internal/scope"
)

const instrumentationName = "github.com/jsamuelsen/request-scope-service/internal/app"

// ErrScopeLeak is reported by Dispatcher.Check when a fresh unit of work
// observes state it did not bind.
var ErrScopeLeak = errors.New("scope leak detected")

// Attributes are the inbound identity attributes of a unit of work.
// Empty fields mean the caller did not supply them.
type Attributes struct {
	UserID    string
	SessionID string
}

// ExecutionContext converts the attributes. Reports false when neither
// attribute was supplied, in which case nothing is bound.
func (a Attributes) ExecutionContext() (domain.ExecutionContext, bool) {
	ec := domain.NewExecutionContext(a.UserID, a.SessionID)
	if ec.IsZero() {
		return domain.ExecutionContext{}, false
	}

	return ec, true
}

// DispatcherConfig contains the dependencies of a Dispatcher.
type DispatcherConfig struct {
	// Counters supplies the per-unit order counter. Defaults to fresh counters.
	Counters scope.CounterSource

	// Observer receives scope lifecycle events. Optional.
	Observer scope.Observer

	// WorkerLocal mirrors the ExecutionContext onto the running goroutine.
	WorkerLocal bool

	// Tracer starts the per-unit span. Defaults to the global provider.
	Tracer trace.Tracer

	Logger *slog.Logger
}

// Dispatcher runs handlers as isolated units of work.
type Dispatcher struct {
	counters    scope.CounterSource
	observer    scope.Observer
	workerLocal bool
	logger      *slog.Logger
	tracer      trace.Tracer
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	counters := cfg.Counters
	if counters == nil {
		counters = scope.FreshCounters{}
	}

	tracer := cfg.Tracer
	if tracer == nil {
		tracer = otel.Tracer(instrumentationName)
	}

	return &Dispatcher{
		counters:    counters,
		observer:    cfg.Observer,
		workerLocal: cfg.WorkerLocal,
		logger:      logger.With(slog.String("component", "app.Dispatcher")),
		tracer:      tracer,
	}
}

// Dispatch runs handler as one unit of work for attrs.
//
// The handler sees a fresh counter and, when attrs carries any identity, the
// matching ExecutionContext. Both are released on every exit path before
// Dispatch returns or the handler's panic continues. The handler's error is
// returned unchanged.
func (d *Dispatcher) Dispatch(ctx context.Context, attrs Attributes, handler scope.Handler) error {
	return d.dispatch(ctx, attrs, handler, d.observer)
}

// dispatch runs handler with observer receiving the scope lifecycle. A nil
// observer records nothing.
func (d *Dispatcher) dispatch(ctx context.Context, attrs Attributes, handler scope.Handler, observer scope.Observer) error {
	ctx, span := d.tracer.Start(ctx, "scope.dispatch")
	defer span.End()

	ec, hasIdentity := attrs.ExecutionContext()
	span.SetAttributes(attribute.Bool("scope.identity_bound", hasIdentity))

	var counter *scope.Counter

	opts := []scope.Option{
		scope.WithLogger(d.logger),
		scope.WithObserver(observer),
		scope.WithInitializer(func(ctx context.Context) error {
			if !hasIdentity {
				return nil
			}

			if d.workerLocal {
				appctx.BindWorker(ec)
			}

			return appctx.Bind(ctx, ec)
		}),
		scope.WithInitializer(func(ctx context.Context) error {
			counter = d.counters.Acquire()
			return appctx.BindCounter(ctx, counter)
		}),
		scope.WithReleaser(func(ctx context.Context) {
			appctx.Release(ctx)

			if d.workerLocal {
				appctx.ReleaseWorker()
			}
		}),
		scope.WithReleaser(func(ctx context.Context) {
			appctx.ReleaseCounter(ctx)

			if counter != nil {
				d.counters.Release(counter)
			}
		}),
	}

	err := scope.NewBoundary(opts...).Run(ctx, func(ctx context.Context) error {
		id := scope.IDFromContext(ctx)
		span.SetAttributes(attribute.String("scope.id", id))

		userID, _ := ec.UserID()
		sessionID, _ := ec.SessionID()

		ctx = logging.WithUnit(ctx, logging.Unit{ScopeID: id, UserID: userID, SessionID: sessionID})
		logger := logging.FromContext(ctx)

		logger.DebugContext(ctx, "unit of work started")

		return handler(ctx)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	return err
}

// Name implements ports.HealthChecker.
func (d *Dispatcher) Name() string {
	return "scope_dispatcher"
}

// Check implements ports.HealthChecker by running an anonymous probe unit of
// work. It fails when the probe sees an identity or a counter that did not
// start from zero, which means state leaked out of an earlier unit. Probe
// units are not reported to the observer, so readiness polls stay out of the
// scope metrics.
func (d *Dispatcher) Check(ctx context.Context) error {
	return d.dispatch(ctx, Attributes{}, func(ctx context.Context) error {
		if ec, ok := appctx.Current(ctx); ok {
			return fmt.Errorf("%w: probe saw %s", ErrScopeLeak, ec)
		}

		n, err := appctx.CurrentValue(ctx)
		if err != nil {
			return fmt.Errorf("reading probe counter: %w", err)
		}

		if n != 0 {
			return fmt.Errorf("%w: probe counter started at %d", ErrScopeLeak, n)
		}

		return nil
	}, nil)
}
