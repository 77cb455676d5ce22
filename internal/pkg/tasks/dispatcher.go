// Package tasks runs fire-and-forget work after the request that produced it
// has returned.
package tasks

import (
	"context"
	"runtime/debug"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/light-bringer/catalog-admin-service/internal/pkg/committer"
)

// Dispatcher runs each submitted task on its own goroutine. Task failures and
// panics are logged and never reach the submitter.
type Dispatcher struct {
	logger  *zap.Logger
	timeout time.Duration

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithTaskTimeout bounds the context given to each task. Zero means no bound.
func WithTaskTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) { d.timeout = timeout }
}

// NewDispatcher creates a dispatcher. A nil logger disables logging.
func NewDispatcher(logger *zap.Logger, opts ...Option) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Dispatcher{logger: logger}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

var _ committer.Scheduler = (*Dispatcher)(nil)

// Submit starts fn unless the dispatcher is shutting down. It reports
// whether the task was accepted.
func (d *Dispatcher) Submit(name string, fn committer.TaskFunc) bool {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.logger.Warn("task rejected after shutdown", zap.String("task", name))
		return false
	}
	d.wg.Add(1)
	d.mu.Unlock()

	go d.run(name, fn)
	return true
}

func (d *Dispatcher) run(name string, fn committer.TaskFunc) {
	defer d.wg.Done()

	ctx := context.Background()
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	started := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			d.logger.Error("task panicked",
				zap.String("task", name),
				zap.Any("panic", rec),
				zap.ByteString("stack", debug.Stack()),
			)
		}
	}()

	if err := fn(ctx); err != nil {
		d.logger.Error("task failed",
			zap.String("task", name),
			zap.Duration("elapsed", time.Since(started)),
			zap.Error(err),
		)
		return
	}
	d.logger.Debug("task completed", zap.String("task", name), zap.Duration("elapsed", time.Since(started)))
}

// Shutdown stops accepting tasks and waits for running ones until ctx ends.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
