package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/eapache/queue"
	"golang.org/x/sync/errgroup"

	"github.com/jsamuelsen/request-scope-service/internal/domain"
	"github.com/jsamuelsen/request-scope-service/internal/scope"
)

// ErrJobPanicked is returned by Submit when the job's handler panicked.
// The worker survives and the job's scope has been torn down.
var ErrJobPanicked = errors.New("job panicked")

const workerPoolComponent = "worker pool"

// WorkerPoolConfig contains configuration for the worker pool.
type WorkerPoolConfig struct {
	// Size is the number of long-lived worker goroutines.
	Size int

	// QueueSize bounds the backlog of jobs waiting for a worker. Zero means
	// unbounded.
	QueueSize int

	// Dispatcher runs every job as its own unit of work.
	Dispatcher *Dispatcher

	Logger *slog.Logger
}

type job struct {
	ctx     context.Context
	attrs   Attributes
	handler scope.Handler
	done    chan error
}

// WorkerPool runs submitted jobs on a fixed set of reused goroutines.
// Each job is dispatched as a separate unit of work, so nothing bound by one
// job is visible to the next job on the same worker.
type WorkerPool struct {
	dispatcher *Dispatcher
	logger     *slog.Logger
	size       int
	queueSize  int

	mu      sync.Mutex
	ready   *sync.Cond
	backlog *queue.Queue
	closed  bool

	group errgroup.Group
}

// NewWorkerPool starts cfg.Size workers.
func NewWorkerPool(cfg WorkerPoolConfig) (*WorkerPool, error) {
	if cfg.Size < 1 {
		return nil, domain.NewValidationErrorWithValue("size", "must be at least 1", cfg.Size)
	}

	if cfg.QueueSize < 0 {
		return nil, domain.NewValidationErrorWithValue("queue_size", "must not be negative", cfg.QueueSize)
	}

	if cfg.Dispatcher == nil {
		return nil, domain.NewValidationError("dispatcher", "is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	p := &WorkerPool{
		dispatcher: cfg.Dispatcher,
		logger:     logger.With(slog.String("component", "app.WorkerPool")),
		size:       cfg.Size,
		queueSize:  cfg.QueueSize,
		backlog:    queue.New(),
	}
	p.ready = sync.NewCond(&p.mu)

	for range cfg.Size {
		p.group.Go(p.work)
	}

	return p, nil
}

// Submit queues handler as a unit of work for attrs and waits for it.
// Returns the handler's error, ctx.Err() if ctx ends first, or an
// UnavailableError when the pool is closed or its backlog is full.
func (p *WorkerPool) Submit(ctx context.Context, attrs Attributes, handler scope.Handler) error {
	j := &job{
		ctx:     ctx,
		attrs:   attrs,
		handler: handler,
		done:    make(chan error, 1),
	}

	if err := p.enqueue(j); err != nil {
		return err
	}

	select {
	case err := <-j.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *WorkerPool) enqueue(j *job) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return domain.NewUnavailableError(workerPoolComponent, "closed")
	}

	if p.queueSize > 0 && p.backlog.Length() >= p.queueSize {
		return domain.NewUnavailableError(workerPoolComponent, "backlog full")
	}

	p.backlog.Add(j)
	p.ready.Signal()

	return nil
}

// next blocks until a job is available. Returns nil once the pool is closed
// and the backlog is drained.
func (p *WorkerPool) next() *job {
	p.mu.Lock()
	defer p.mu.Unlock()

	for p.backlog.Length() == 0 && !p.closed {
		p.ready.Wait()
	}

	if p.backlog.Length() == 0 {
		return nil
	}

	j, _ := p.backlog.Remove().(*job)

	return j
}

func (p *WorkerPool) work() error {
	for {
		j := p.next()
		if j == nil {
			return nil
		}

		j.done <- p.run(j)
	}
}

func (p *WorkerPool) run(j *job) (err error) {
	if ctxErr := j.ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	defer func() {
		if r := recover(); r != nil {
			p.logger.ErrorContext(j.ctx, "job panicked",
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
			)

			err = fmt.Errorf("%w: %v", ErrJobPanicked, r)
		}
	}()

	return p.dispatcher.Dispatch(j.ctx, j.attrs, j.handler)
}

// Close stops accepting jobs, lets the workers drain the backlog and waits
// for them to exit. Safe to call more than once.
func (p *WorkerPool) Close() error {
	p.mu.Lock()
	p.closed = true
	p.ready.Broadcast()
	p.mu.Unlock()

	if err := p.group.Wait(); err != nil {
		return fmt.Errorf("stopping worker pool: %w", err)
	}

	return nil
}

// Size returns the number of workers.
func (p *WorkerPool) Size() int {
	return p.size
}

// Pending returns the number of jobs waiting for a worker.
func (p *WorkerPool) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.backlog.Length()
}

// Name implements ports.HealthChecker.
func (p *WorkerPool) Name() string {
	return "worker_pool"
}

// Check implements ports.HealthChecker. The pool is unhealthy once closed.
func (p *WorkerPool) Check(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return domain.NewUnavailableError(workerPoolComponent, "closed")
	}

	return nil
}
