package context

import (
	"context"

	"github.com/jsamuelsen/request-scope-service/internal/domain"
	"github.com/jsamuelsen/request-scope-service/internal/scope"
)

var (
	executionContexts = scope.NewRegistry[domain.ExecutionContext]("execution context")
	workerContexts    = scope.NewWorkerRegistry[domain.ExecutionContext]("worker execution context")
)

// Bind associates ec with the unit of work carried by ctx.
func Bind(ctx context.Context, ec domain.ExecutionContext) error {
	return executionContexts.Set(ctx, ec)
}

// Current returns the ExecutionContext bound to the unit of work carried by
// ctx. Reports false when nothing was bound or the unit has ended.
func Current(ctx context.Context) (domain.ExecutionContext, bool) {
	return executionContexts.Get(ctx)
}

// Release removes the ExecutionContext from the unit of work. Idempotent.
func Release(ctx context.Context) {
	executionContexts.Clear(ctx)
}

// BindWorker mirrors ec onto the calling goroutine.
func BindWorker(ec domain.ExecutionContext) {
	workerContexts.Set(ec)
}

// CurrentOnWorker returns the ExecutionContext mirrored onto the calling
// goroutine.
func CurrentOnWorker() (domain.ExecutionContext, bool) {
	return workerContexts.Get()
}

// ReleaseWorker drops the mirror of the calling goroutine. Idempotent.
func ReleaseWorker() {
	workerContexts.Clear()
}

// WorkerEntries returns how many goroutines hold a mirrored ExecutionContext.
func WorkerEntries() int {
	return workerContexts.Len()
}
