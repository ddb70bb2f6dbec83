package context

import (
	"context"
	"sync"

	"github.com/jsamuelsen/request-scope-service/internal/scope"
)

var memos = scope.NewRegistry[*sync.Map]("memo")

// GetOrFetch returns the value cached under key for the unit of work carried
// by ctx, calling fetch on first use. Errors are not cached.
// Outside a unit of work fetch runs on every call.
func GetOrFetch[T any](ctx context.Context, key string, fetch func(ctx context.Context) (T, error)) (T, error) {
	memo := memoFor(ctx)
	if memo == nil {
		return fetch(ctx)
	}

	if cached, ok := memo.Load(key); ok {
		if v, ok := cached.(T); ok {
			return v, nil
		}
	}

	value, err := fetch(ctx)
	if err != nil {
		var zero T
		return zero, err
	}

	actual, _ := memo.LoadOrStore(key, value)
	if v, ok := actual.(T); ok {
		return v, nil
	}

	return value, nil
}

func memoFor(ctx context.Context) *sync.Map {
	memo, err := memos.GetOrSet(ctx, &sync.Map{})
	if err != nil {
		return nil
	}

	return memo
}
