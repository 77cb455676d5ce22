package storage

import (
	"context"
	"testing"

	"cloud.google.com/go/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

func TestNewBucket(t *testing.T) {
	client, err := storage.NewClient(context.Background(), option.WithoutAuthentication())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	t.Run("requires a client", func(t *testing.T) {
		_, err := NewBucket(nil, "images")
		assert.Error(t, err)
	})

	t.Run("requires a name", func(t *testing.T) {
		_, err := NewBucket(client, "  ")
		assert.ErrorIs(t, err, errInvalidBucket)
	})

	t.Run("options", func(t *testing.T) {
		b, err := NewBucket(client, "images", WithDeleteConcurrency(3), WithLogger(nil))
		require.NoError(t, err)
		assert.Equal(t, 3, b.concurrency)
		assert.NotNil(t, b.logger)
	})

	t.Run("non-positive concurrency keeps the default", func(t *testing.T) {
		b, err := NewBucket(client, "images", WithDeleteConcurrency(0))
		require.NoError(t, err)
		assert.Equal(t, defaultDeleteConcurrency, b.concurrency)
	})

	t.Run("nothing to delete", func(t *testing.T) {
		b, err := NewBucket(client, "images")
		require.NoError(t, err)
		deleted, err := b.DeleteMany(context.Background(), nil)
		require.NoError(t, err)
		assert.Empty(t, deleted)
	})
}
