package scope

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type ctxKey struct{}

// Scope identifies one unit of work and holds the values bound to it.
// Handlers never create a Scope; a Boundary does.
type Scope struct {
	id     string
	opened time.Time

	mu     sync.RWMutex
	slots  map[any]any
	closed bool
}

func newScope() *Scope {
	return &Scope{
		id:     uuid.NewString(),
		opened: time.Now(),
		slots:  make(map[any]any),
	}
}

// ID returns the unique identifier of the unit of work.
func (s *Scope) ID() string {
	return s.id
}

// OpenedAt returns when the scope was opened.
func (s *Scope) OpenedAt() time.Time {
	return s.opened
}

// Closed reports whether the scope has been torn down.
func (s *Scope) Closed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.closed
}

// Len returns the number of live entries.
func (s *Scope) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.slots)
}

func (s *Scope) load(key any) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, false
	}

	v, ok := s.slots[key]

	return v, ok
}

func (s *Scope) store(key, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrScopeClosed
	}

	s.slots[key] = value

	return nil
}

func (s *Scope) loadOrStore(key, value any) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrScopeClosed
	}

	if existing, ok := s.slots[key]; ok {
		return existing, nil
	}

	s.slots[key] = value

	return value, nil
}

func (s *Scope) remove(key any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.slots, key)
}

// close drops every entry and returns how many were live.
// Closing twice is a no-op returning 0.
func (s *Scope) close() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0
	}

	n := len(s.slots)
	clear(s.slots)
	s.closed = true

	return n
}

// FromContext returns the scope carried by ctx.
// Returns nil, false if ctx is nil, carries no scope, or the scope is torn down.
func FromContext(ctx context.Context) (*Scope, bool) {
	s, ok := rawFromContext(ctx)
	if !ok || s.Closed() {
		return nil, false
	}

	return s, true
}

// rawFromContext returns the scope carried by ctx even if it is torn down.
func rawFromContext(ctx context.Context) (*Scope, bool) {
	if ctx == nil {
		return nil, false
	}

	s, ok := ctx.Value(ctxKey{}).(*Scope)

	return s, ok
}

// IDFromContext returns the id of the live scope carried by ctx, or "".
func IDFromContext(ctx context.Context) string {
	if s, ok := FromContext(ctx); ok {
		return s.ID()
	}

	return ""
}

func withScope(ctx context.Context, s *Scope) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}
