package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kendall-kelly/home-services-api/metrics"
)

// TaskRunner runs detached background work that must outlive the HTTP request
// that started it. Errors and panics are logged and never returned to callers.
type TaskRunner struct {
	log     *zap.Logger
	metrics *metrics.Metrics

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func NewTaskRunner(log *zap.Logger, m *metrics.Metrics) *TaskRunner {
	if log == nil {
		log = zap.NewNop()
	}
	return &TaskRunner{log: log, metrics: m}
}

// Go starts fn in a new goroutine with a context detached from any request.
// A positive timeout bounds fn. Tasks submitted after Close are dropped.
func (r *TaskRunner) Go(name string, timeout time.Duration, fn func(ctx context.Context) error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		r.log.Warn("background task dropped after shutdown", zap.String("task", name))
		return
	}
	r.wg.Add(1)
	r.mu.Unlock()

	r.metrics.TaskStarted()
	go func() {
		defer r.wg.Done()
		defer r.metrics.TaskFinished()

		ctx := context.Background()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		if err := r.run(ctx, fn); err != nil {
			r.log.Warn("background task failed", zap.String("task", name), zap.Error(err))
		}
	}()
}

func (r *TaskRunner) run(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return fn(ctx)
}

// Wait blocks until every running task has returned or ctx is done.
func (r *TaskRunner) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting tasks and waits for in-flight ones, bounded by ctx.
func (r *TaskRunner) Close(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	return r.Wait(ctx)
}
