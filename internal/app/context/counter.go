package context

import (
	"context"

	"github.com/jsamuelsen/request-scope-service/internal/scope"
)

var counters = scope.NewRegistry[*scope.Counter]("order counter")

// BindCounter associates c with the unit of work carried by ctx.
func BindCounter(ctx context.Context, c *scope.Counter) error {
	return counters.Set(ctx, c)
}

// Counter returns the counter bound to the unit of work carried by ctx.
func Counter(ctx context.Context) (*scope.Counter, bool) {
	c, ok := counters.Get(ctx)
	if !ok || c == nil {
		return nil, false
	}

	return c, true
}

// ReleaseCounter removes the counter from the unit of work. Idempotent.
func ReleaseCounter(ctx context.Context) {
	counters.Clear(ctx)
}

// NextValue advances the unit's counter and returns the new value.
func NextValue(ctx context.Context) (int64, error) {
	c, ok := Counter(ctx)
	if !ok {
		return 0, ErrNoCounter
	}

	return c.NextValue(), nil
}

// CurrentValue returns the last value handed out in this unit of work, or 0.
func CurrentValue(ctx context.Context) (int64, error) {
	c, ok := Counter(ctx)
	if !ok {
		return 0, ErrNoCounter
	}

	return c.CurrentValue(), nil
}
