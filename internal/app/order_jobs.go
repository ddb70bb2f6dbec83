package app

import (
	"context"
	"fmt"
	"log/slog"

	appctx "github.com/jsamuelsen/request-scope-service/internal/app/context"
	"github.com/jsamuelsen/request-scope-service/internal/domain"
)

// BatchResult is the outcome of one batch run as its own unit of work.
type BatchResult struct {
	Orders          []domain.Order
	LastOrderNumber int64
}

// OrderJobs runs order batches as independent units of work on the pool.
type OrderJobs struct {
	pool   *WorkerPool
	orders *OrderService
	logger *slog.Logger
}

// OrderJobsConfig contains the dependencies of OrderJobs.
type OrderJobsConfig struct {
	Pool   *WorkerPool
	Orders *OrderService
	Logger *slog.Logger
}

// NewOrderJobs creates the batch job runner.
func NewOrderJobs(cfg OrderJobsConfig) *OrderJobs {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &OrderJobs{
		pool:   cfg.Pool,
		orders: cfg.Orders,
		logger: logger.With(slog.String("component", "app.OrderJobs")),
	}
}

// RunBatches submits every batch to the worker pool concurrently and returns
// the results in batch order. Each batch numbers its orders from 1 and runs
// with the caller's identity.
func (j *OrderJobs) RunBatches(ctx context.Context, batches [][]string) ([]BatchResult, error) {
	if len(batches) == 0 {
		return nil, fmt.Errorf("validating jobs: %w",
			domain.NewValidationError("batches", "must contain at least one batch"))
	}

	attrs := CaptureAttributes(ctx)

	fns := make([]func(context.Context) (BatchResult, error), len(batches))
	for i, customers := range batches {
		fns[i] = func(ctx context.Context) (BatchResult, error) {
			// Submit can return on ctx.Done while the job is still running, so the
			// result only crosses back through the buffered channel.
			out := make(chan BatchResult, 1)

			err := j.pool.Submit(ctx, attrs, func(ctx context.Context) error {
				orders, err := j.orders.ProcessBatch(ctx, customers)
				if err != nil {
					return err
				}

				last, err := j.orders.LastOrderNumber(ctx)
				if err != nil {
					return err
				}

				out <- BatchResult{Orders: orders, LastOrderNumber: last}

				return nil
			})
			if err != nil {
				return BatchResult{}, err
			}

			return <-out, nil
		}
	}

	results, err := Parallel(ctx, fns...)
	if err != nil {
		return nil, err
	}

	j.logger.InfoContext(ctx, "order batches completed", slog.Int("batches", len(results)))

	return results, nil
}

// CaptureAttributes returns the identity of the unit of work carried by ctx,
// for handing to a unit of work started from it.
func CaptureAttributes(ctx context.Context) Attributes {
	ec, ok := appctx.Current(ctx)
	if !ok {
		return Attributes{}
	}

	userID, _ := ec.UserID()
	sessionID, _ := ec.SessionID()

	return Attributes{UserID: userID, SessionID: sessionID}
}
