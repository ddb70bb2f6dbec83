package context

import "errors"

// ErrNoCounter is returned when an order number is requested outside a unit
// of work that has a counter bound.
var ErrNoCounter = errors.New("no counter bound to unit of work")
