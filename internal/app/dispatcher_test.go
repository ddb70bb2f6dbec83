package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	otelcodes "go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	appctx "github.com/jsamuelsen/request-scope-service/internal/app/context"
	"github.com/jsamuelsen/request-scope-service/internal/domain"
	"github.com/jsamuelsen/request-scope-service/internal/scope"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestDispatcher(t *testing.T, cfg DispatcherConfig) *Dispatcher {
	t.Helper()

	if cfg.Logger == nil {
		cfg.Logger = discardLogger()
	}

	return NewDispatcher(cfg)
}

// countingSource wraps a CounterSource and records acquire/release calls.
type countingSource struct {
	scope.CounterSource
	acquired int
	released int
}

func (c *countingSource) Acquire() *scope.Counter {
	c.acquired++
	return c.CounterSource.Acquire()
}

func (c *countingSource) Release(counter *scope.Counter) {
	c.released++
	c.CounterSource.Release(counter)
}

func TestAttributes_ExecutionContext(t *testing.T) {
	tests := []struct {
		name    string
		attrs   Attributes
		wantOK  bool
		wantStr string
	}{
		{name: "none", attrs: Attributes{}, wantOK: false},
		{
			name:    "both",
			attrs:   Attributes{UserID: "alice", SessionID: "s1"},
			wantOK:  true,
			wantStr: "RequestContext{userId='alice', sessionId='s1'}",
		},
		{
			name:    "user only",
			attrs:   Attributes{UserID: "alice"},
			wantOK:  true,
			wantStr: "RequestContext{userId='alice', sessionId='null'}",
		},
		{
			name:    "session only",
			attrs:   Attributes{SessionID: "s1"},
			wantOK:  true,
			wantStr: "RequestContext{userId='null', sessionId='s1'}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ec, ok := tt.attrs.ExecutionContext()
			assert.Equal(t, tt.wantOK, ok)

			if tt.wantOK {
				assert.Equal(t, tt.wantStr, ec.String())
			}
		})
	}
}

func TestDispatcher_BindsIdentity(t *testing.T) {
	d := newTestDispatcher(t, DispatcherConfig{})

	err := d.Dispatch(t.Context(), Attributes{UserID: "alice", SessionID: "sess-alice"}, func(ctx context.Context) error {
		ec, ok := appctx.Current(ctx)
		require.True(t, ok)
		assert.Equal(t, domain.NewExecutionContext("alice", "sess-alice"), ec)

		return nil
	})
	require.NoError(t, err)

	err = d.Dispatch(t.Context(), Attributes{}, func(ctx context.Context) error {
		_, ok := appctx.Current(ctx)
		assert.False(t, ok, "previous identity must not leak")

		return nil
	})
	require.NoError(t, err)
}

func TestDispatcher_FreshCounterPerUnit(t *testing.T) {
	for _, strategy := range []string{scope.CounterStrategyFresh, scope.CounterStrategyPooled} {
		t.Run(strategy, func(t *testing.T) {
			counters, err := scope.NewCounterSource(strategy)
			require.NoError(t, err)

			d := newTestDispatcher(t, DispatcherConfig{Counters: counters})

			for range 5 {
				err := d.Dispatch(t.Context(), Attributes{}, func(ctx context.Context) error {
					for want := int64(1); want <= 3; want++ {
						got, err := appctx.NextValue(ctx)
						require.NoError(t, err)
						assert.Equal(t, want, got)
					}

					return nil
				})
				require.NoError(t, err)
			}
		})
	}
}

func TestDispatcher_ReleasesOnEveryPath(t *testing.T) {
	handlerErr := errors.New("handler failed")

	tests := []struct {
		name    string
		handler scope.Handler
		panics  bool
		wantErr error
	}{
		{
			name:    "success",
			handler: func(context.Context) error { return nil },
		},
		{
			name:    "error",
			handler: func(context.Context) error { return handlerErr },
			wantErr: handlerErr,
		},
		{
			name:    "panic",
			handler: func(context.Context) error { panic("handler exploded") },
			panics:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := &countingSource{CounterSource: scope.FreshCounters{}}
			d := newTestDispatcher(t, DispatcherConfig{Counters: source, WorkerLocal: true})

			var inner context.Context

			run := func() error {
				return d.Dispatch(t.Context(), Attributes{UserID: "alice"}, func(ctx context.Context) error {
					inner = ctx
					return tt.handler(ctx)
				})
			}

			if tt.panics {
				assert.PanicsWithValue(t, "handler exploded", func() { _ = run() })
			} else {
				err := run()
				if tt.wantErr != nil {
					require.Same(t, tt.wantErr, err)
				} else {
					require.NoError(t, err)
				}
			}

			assert.Equal(t, 1, source.acquired)
			assert.Equal(t, 1, source.released)

			_, ok := appctx.Current(inner)
			assert.False(t, ok)

			_, ok = appctx.Counter(inner)
			assert.False(t, ok)

			_, ok = appctx.CurrentOnWorker()
			assert.False(t, ok)
		})
	}
}

func TestDispatcher_WorkerLocalMirror(t *testing.T) {
	d := newTestDispatcher(t, DispatcherConfig{WorkerLocal: true})

	err := d.Dispatch(t.Context(), Attributes{UserID: "alice"}, func(context.Context) error {
		ec, ok := appctx.CurrentOnWorker()
		require.True(t, ok)

		userID, _ := ec.UserID()
		assert.Equal(t, "alice", userID)

		return nil
	})
	require.NoError(t, err)

	assert.Zero(t, appctx.WorkerEntries())
}

func TestDispatcher_ExposesScopeID(t *testing.T) {
	d := newTestDispatcher(t, DispatcherConfig{})

	err := d.Dispatch(t.Context(), Attributes{}, func(ctx context.Context) error {
		assert.NotEmpty(t, scope.IDFromContext(ctx))
		return nil
	})
	require.NoError(t, err)
}

func TestDispatcher_Observer(t *testing.T) {
	reg := prometheus.NewRegistry()
	d := newTestDispatcher(t, DispatcherConfig{Observer: scope.NewPrometheusObserver(reg)})

	for range 3 {
		require.NoError(t, d.Dispatch(t.Context(), Attributes{UserID: "alice"}, func(context.Context) error {
			return nil
		}))
	}

	count, err := testutil.GatherAndCount(reg, "scope_units_closed_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count, "one outcome label series")

	// identity and counter are released by hooks before the scope closes
	assert.InDelta(t, 0, gatheredValue(t, reg, "scope_entries_cleared_total"), 0)
	assert.InDelta(t, 3, gatheredValue(t, reg, "scope_units_opened_total"), 0)
}

func TestDispatcher_CheckNotObserved(t *testing.T) {
	reg := prometheus.NewRegistry()
	d := newTestDispatcher(t, DispatcherConfig{Observer: scope.NewPrometheusObserver(reg)})

	for range 5 {
		require.NoError(t, d.Check(t.Context()))
	}

	require.NoError(t, d.Dispatch(t.Context(), Attributes{UserID: "alice"}, func(context.Context) error {
		return nil
	}))

	assert.InDelta(t, 1, gatheredValue(t, reg, "scope_units_opened_total"), 0)
}

func gatheredValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()

	families, err := reg.Gather()
	require.NoError(t, err)

	for _, mf := range families {
		if mf.GetName() == name {
			require.NotEmpty(t, mf.GetMetric())
			return mf.GetMetric()[0].GetCounter().GetValue()
		}
	}

	t.Fatalf("metric %s not found", name)

	return 0
}

func TestDispatcher_Check(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		d := newTestDispatcher(t, DispatcherConfig{})

		assert.Equal(t, "scope_dispatcher", d.Name())
		require.NoError(t, d.Check(t.Context()))
	})

	t.Run("counter that is never reset", func(t *testing.T) {
		shared := scope.NewCounter()
		shared.NextValue()

		d := newTestDispatcher(t, DispatcherConfig{Counters: singletonSource{counter: shared}})

		err := d.Check(t.Context())
		require.ErrorIs(t, err, ErrScopeLeak)
	})
}

// singletonSource hands out the same counter to every unit of work.
type singletonSource struct {
	counter *scope.Counter
}

func (s singletonSource) Acquire() *scope.Counter { return s.counter }

func (s singletonSource) Release(*scope.Counter) {}

func TestDispatcher_Span(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	d := newTestDispatcher(t, DispatcherConfig{Tracer: tp.Tracer("test")})

	require.NoError(t, d.Dispatch(t.Context(), Attributes{UserID: "alice"}, func(context.Context) error {
		return nil
	}))

	handlerErr := errors.New("handler failed")
	require.ErrorIs(t, d.Dispatch(t.Context(), Attributes{}, func(context.Context) error {
		return handlerErr
	}), handlerErr)

	spans := recorder.Ended()
	require.Len(t, spans, 2)

	for _, s := range spans {
		assert.Equal(t, "scope.dispatch", s.Name())
	}

	assert.Equal(t, otelcodes.Unset, spans[0].Status().Code)
	assert.Equal(t, otelcodes.Error, spans[1].Status().Code)
}
