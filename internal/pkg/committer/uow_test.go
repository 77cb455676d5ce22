package committer

import (
	"context"
	"errors"
	"testing"

	"cloud.google.com/go/spanner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type recordingScheduler struct {
	names []string
}

func (s *recordingScheduler) Submit(name string, _ TaskFunc) bool {
	s.names = append(s.names, name)
	return true
}

type scriptedHandle struct {
	plan       *CommitPlan
	tasks      []Task
	scheduler  Scheduler
	commitErr  error
	committed  bool
	rolledBack bool
}

func (h *scriptedHandle) Add(muts ...*spanner.Mutation) { h.plan.Add(muts...) }
func (h *scriptedHandle) Reader() Reader                { return nil }
func (h *scriptedHandle) AfterCommit(name string, fn TaskFunc) {
	h.tasks = append(h.tasks, Task{Name: name, Fn: fn})
}

func (h *scriptedHandle) Commit(context.Context) error {
	if h.commitErr != nil {
		return h.commitErr
	}
	h.committed = true
	ReleaseTasks(h.scheduler, h.tasks)
	return nil
}

func (h *scriptedHandle) Rollback(context.Context) { h.rolledBack = true }

type scriptedUnitOfWork struct {
	commitErrs []error
	handles    []*scriptedHandle
	scheduler  Scheduler
}

func (u *scriptedUnitOfWork) Begin(context.Context) (Handle, error) {
	h := &scriptedHandle{plan: NewPlan(), scheduler: u.scheduler}
	if n := len(u.handles); n < len(u.commitErrs) {
		h.commitErr = u.commitErrs[n]
	}
	u.handles = append(u.handles, h)
	return h, nil
}

func TestCommitPlan(t *testing.T) {
	plan := NewPlan()
	assert.True(t, plan.IsEmpty())

	plan.Add(spanner.Delete("products", spanner.Key{"a"}), nil, spanner.Delete("products", spanner.Key{"b"}))
	assert.Equal(t, 2, plan.Count())

	plan.Reset()
	assert.True(t, plan.IsEmpty())
}

func TestBatchResult_Complete(t *testing.T) {
	assert.True(t, BatchResult{Applied: []int{0, 1}}.Complete())
	assert.False(t, BatchResult{Applied: []int{0}, Failed: []int{1}}.Complete())
}

func TestRun(t *testing.T) {
	ctx := context.Background()

	t.Run("commits and releases tasks in order", func(t *testing.T) {
		sched := &recordingScheduler{}
		uow := &scriptedUnitOfWork{scheduler: sched}

		err := Run(ctx, uow, func(ctx context.Context, h Handle) error {
			h.Add(spanner.Delete("products", spanner.Key{"a"}))
			h.AfterCommit("upload", func(context.Context) error { return nil })
			h.AfterCommit("replicate", func(context.Context) error { return nil })
			return nil
		})

		require.NoError(t, err)
		require.Len(t, uow.handles, 1)
		assert.True(t, uow.handles[0].committed)
		assert.Equal(t, []string{"upload", "replicate"}, sched.names)
	})

	t.Run("error rolls back and drops tasks", func(t *testing.T) {
		sched := &recordingScheduler{}
		uow := &scriptedUnitOfWork{scheduler: sched}
		boom := errors.New("boom")

		err := Run(ctx, uow, func(ctx context.Context, h Handle) error {
			h.AfterCommit("upload", func(context.Context) error { return nil })
			return boom
		})

		assert.ErrorIs(t, err, boom)
		assert.True(t, uow.handles[0].rolledBack)
		assert.False(t, uow.handles[0].committed)
		assert.Empty(t, sched.names)
	})

	t.Run("aborted commit is retried", func(t *testing.T) {
		aborted := status.Error(codes.Aborted, "conflict")
		uow := &scriptedUnitOfWork{commitErrs: []error{aborted}}
		calls := 0

		err := Run(ctx, uow, func(ctx context.Context, h Handle) error {
			calls++
			return nil
		})

		require.NoError(t, err)
		assert.Equal(t, 2, calls)
		assert.True(t, uow.handles[1].committed)
	})

	t.Run("other commit failures are not retried", func(t *testing.T) {
		uow := &scriptedUnitOfWork{commitErrs: []error{status.Error(codes.Internal, "down")}}

		err := Run(ctx, uow, func(ctx context.Context, h Handle) error { return nil })

		assert.Error(t, err)
		assert.Len(t, uow.handles, 1)
	})
}
