package tasks

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestDispatcher(t *testing.T) {
	t.Run("shutdown waits for running tasks", func(t *testing.T) {
		d := NewDispatcher(nil)
		var done atomic.Int32

		for i := 0; i < 5; i++ {
			require.True(t, d.Submit("work", func(ctx context.Context) error {
				time.Sleep(10 * time.Millisecond)
				done.Add(1)
				return nil
			}))
		}

		require.NoError(t, d.Shutdown(context.Background()))
		assert.Equal(t, int32(5), done.Load())
	})

	t.Run("failures and panics are logged not propagated", func(t *testing.T) {
		core, logs := observer.New(zap.InfoLevel)
		d := NewDispatcher(zap.New(core))

		d.Submit("fails", func(ctx context.Context) error { return errors.New("storage down") })
		d.Submit("panics", func(ctx context.Context) error { panic("bad state") })
		require.NoError(t, d.Shutdown(context.Background()))

		assert.Equal(t, 1, logs.FilterMessage("task failed").Len())
		assert.Equal(t, 1, logs.FilterMessage("task panicked").Len())
	})

	t.Run("rejects tasks after shutdown", func(t *testing.T) {
		d := NewDispatcher(nil)
		require.NoError(t, d.Shutdown(context.Background()))
		assert.False(t, d.Submit("late", func(ctx context.Context) error { return nil }))
	})

	t.Run("shutdown gives up when the context ends", func(t *testing.T) {
		d := NewDispatcher(nil)
		release := make(chan struct{})
		d.Submit("slow", func(ctx context.Context) error {
			<-release
			return nil
		})

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		assert.ErrorIs(t, d.Shutdown(ctx), context.DeadlineExceeded)

		close(release)
		require.NoError(t, d.Shutdown(context.Background()))
	})

	t.Run("task context carries the timeout", func(t *testing.T) {
		d := NewDispatcher(nil, WithTaskTimeout(time.Minute))
		var hasDeadline atomic.Bool
		d.Submit("deadline", func(ctx context.Context) error {
			_, ok := ctx.Deadline()
			hasDeadline.Store(ok)
			return nil
		})
		require.NoError(t, d.Shutdown(context.Background()))
		assert.True(t, hasDeadline.Load())
	})
}
