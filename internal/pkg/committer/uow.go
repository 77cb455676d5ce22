package committer

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/spanner"
	"google.golang.org/grpc/codes"
)

// ErrHandleClosed is returned when a handle is used after Commit or Rollback.
var ErrHandleClosed = errors.New("unit of work already finished")

// Reader is the read surface shared by transactions and single-use snapshots.
type Reader interface {
	ReadRow(ctx context.Context, table string, key spanner.Key, columns []string) (*spanner.Row, error)
	Query(ctx context.Context, statement spanner.Statement) *spanner.RowIterator
}

// TaskFunc is post-commit work. It receives a context detached from the
// request that committed.
type TaskFunc func(ctx context.Context) error

// Scheduler runs tasks asynchronously.
type Scheduler interface {
	Submit(name string, fn TaskFunc) bool
}

// Handle is one open unit of work.
type Handle interface {
	// Add buffers mutations. Nothing is written before Commit.
	Add(muts ...*spanner.Mutation)
	// Reader exposes reads that observe the transaction's snapshot.
	Reader() Reader
	// AfterCommit registers work that starts only once Commit succeeded.
	AfterCommit(name string, fn TaskFunc)
	// Commit writes the buffered mutations, then schedules the registered tasks.
	Commit(ctx context.Context) error
	// Rollback discards the buffer and every registered task.
	Rollback(ctx context.Context)
}

// UnitOfWork opens handles.
type UnitOfWork interface {
	Begin(ctx context.Context) (Handle, error)
}

// Task is a named unit of post-commit work.
type Task struct {
	Name string
	Fn   TaskFunc
}

// SpannerUnitOfWork opens statement-based read-write transactions.
type SpannerUnitOfWork struct {
	client    *spanner.Client
	scheduler Scheduler
}

// NewUnitOfWork creates a unit of work whose after-commit tasks go to scheduler.
func NewUnitOfWork(client *spanner.Client, scheduler Scheduler) *SpannerUnitOfWork {
	return &SpannerUnitOfWork{client: client, scheduler: scheduler}
}

// Begin opens a transaction.
func (u *SpannerUnitOfWork) Begin(ctx context.Context) (Handle, error) {
	txn, err := spanner.NewReadWriteStmtBasedTransaction(ctx, u.client)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return &spannerHandle{txn: txn, plan: NewPlan(), scheduler: u.scheduler}, nil
}

type spannerHandle struct {
	txn       *spanner.ReadWriteStmtBasedTransaction
	plan      *CommitPlan
	tasks     []Task
	scheduler Scheduler
	done      bool
}

func (h *spannerHandle) Add(muts ...*spanner.Mutation) {
	h.plan.Add(muts...)
}

func (h *spannerHandle) Reader() Reader {
	return h.txn
}

func (h *spannerHandle) AfterCommit(name string, fn TaskFunc) {
	h.tasks = append(h.tasks, Task{Name: name, Fn: fn})
}

func (h *spannerHandle) Commit(ctx context.Context) error {
	if h.done {
		return ErrHandleClosed
	}
	h.done = true

	if !h.plan.IsEmpty() {
		if err := h.txn.BufferWrite(h.plan.Mutations()); err != nil {
			h.txn.Rollback(ctx)
			return fmt.Errorf("buffer mutations: %w", err)
		}
	}
	if _, err := h.txn.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	ReleaseTasks(h.scheduler, h.tasks)
	h.tasks = nil
	return nil
}

func (h *spannerHandle) Rollback(ctx context.Context) {
	if h.done {
		return
	}
	h.done = true
	h.plan.Reset()
	h.tasks = nil
	h.txn.Rollback(ctx)
}

// ReleaseTasks submits every task to scheduler in registration order.
func ReleaseTasks(scheduler Scheduler, tasks []Task) {
	if scheduler == nil {
		return
	}
	for _, t := range tasks {
		scheduler.Submit(t.Name, t.Fn)
	}
}

// maxAttempts bounds retries of a unit of work aborted by a conflict.
const maxAttempts = 3

// Run begins a unit of work, runs fn and commits. fn's error rolls back.
// Attempts aborted by Spanner are retried from scratch, so fn must only
// touch the handle it is given.
func Run(ctx context.Context, uow UnitOfWork, fn func(ctx context.Context, h Handle) error) error {
	var err error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		err = runOnce(ctx, uow, fn)
		if err == nil || spanner.ErrCode(err) != codes.Aborted {
			return err
		}
	}
	return err
}

func runOnce(ctx context.Context, uow UnitOfWork, fn func(ctx context.Context, h Handle) error) error {
	h, err := uow.Begin(ctx)
	if err != nil {
		return err
	}
	if err := fn(ctx, h); err != nil {
		h.Rollback(ctx)
		return err
	}
	return h.Commit(ctx)
}
