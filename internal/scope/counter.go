package scope

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// Counter strategies accepted by NewCounterSource.
const (
	CounterStrategyFresh  = "fresh"
	CounterStrategyPooled = "pooled"
)

// Counter yields 1, 2, 3, ... for the unit of work that owns it.
type Counter struct {
	count atomic.Int64
}

// NewCounter returns a counter whose next value is 1.
func NewCounter() *Counter {
	return &Counter{}
}

// NextValue increments the counter and returns the new value.
func (c *Counter) NextValue() int64 {
	return c.count.Add(1)
}

// CurrentValue returns the last value handed out by NextValue, or 0.
func (c *Counter) CurrentValue() int64 {
	return c.count.Load()
}

// Reset sets the counter back to 0.
func (c *Counter) Reset() {
	c.count.Store(0)
}

// CounterSource hands out the counter for a unit of work and takes it back
// at teardown.
type CounterSource interface {
	Acquire() *Counter
	Release(c *Counter)
}

// FreshCounters allocates a new counter for every unit of work.
type FreshCounters struct{}

// Acquire returns a new counter.
func (FreshCounters) Acquire() *Counter {
	return NewCounter()
}

// Release drops the counter.
func (FreshCounters) Release(*Counter) {}

// PooledCounters reuses counters across units of work.
// Counters are reset both when acquired and when released, so a counter
// never carries a value into another unit of work. Callers must not keep a
// *Counter past the unit of work that acquired it.
type PooledCounters struct {
	pool sync.Pool
}

// NewPooledCounters creates a pooled counter source.
func NewPooledCounters() *PooledCounters {
	return &PooledCounters{
		pool: sync.Pool{New: func() any { return NewCounter() }},
	}
}

// Acquire returns a reset counter from the pool.
func (p *PooledCounters) Acquire() *Counter {
	c, ok := p.pool.Get().(*Counter)
	if !ok {
		return NewCounter()
	}

	c.Reset()

	return c
}

// Release resets the counter and returns it to the pool.
func (p *PooledCounters) Release(c *Counter) {
	if c == nil {
		return
	}

	c.Reset()
	p.pool.Put(c)
}

// NewCounterSource returns the source for a configured strategy.
func NewCounterSource(strategy string) (CounterSource, error) {
	switch strategy {
	case "", CounterStrategyFresh:
		return FreshCounters{}, nil
	case CounterStrategyPooled:
		return NewPooledCounters(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCounterStrategy, strategy)
	}
}
