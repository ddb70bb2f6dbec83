package app

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Parallel executes multiple functions concurrently and returns their results
// in order, or the first error. The context passed to the remaining functions
// is canceled when any function fails.
//
// Example:
//
//	results, err := Parallel(ctx,
//	    func(ctx context.Context) (BatchResult, error) { return runBatch(ctx, first) },
//	    func(ctx context.Context) (BatchResult, error) { return runBatch(ctx, second) },
//	)
func Parallel[T any](ctx context.Context, fns ...func(context.Context) (T, error)) ([]T, error) {
	g, ctx := errgroup.WithContext(ctx)
	results := make([]T, len(fns))

	for i, fn := range fns {
		g.Go(func() error {
			result, err := fn(ctx)
			if err != nil {
				return err
			}

			results[i] = result

			return nil
		})
	}

	err := g.Wait()
	if err != nil {
		return nil, fmt.Errorf("parallel execution failed: %w", err)
	}

	return results, nil
}
