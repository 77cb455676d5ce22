// Package storage stores product images in a Cloud Storage bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const defaultDeleteConcurrency = 8

var errInvalidBucket = errors.New("storage: bucket name is required")

// Bucket is an object store over one Cloud Storage bucket.
type Bucket struct {
	handle      *storage.BucketHandle
	concurrency int
	logger      *zap.Logger
}

// BucketOption customises a Bucket.
type BucketOption func(*Bucket)

// WithDeleteConcurrency bounds the number of parallel deletes of DeleteMany.
func WithDeleteConcurrency(n int) BucketOption {
	return func(b *Bucket) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) BucketOption {
	return func(b *Bucket) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// NewBucket wraps the named bucket of client.
func NewBucket(client *storage.Client, name string, opts ...BucketOption) (*Bucket, error) {
	if client == nil {
		return nil, errors.New("storage: client is required")
	}
	if strings.TrimSpace(name) == "" {
		return nil, errInvalidBucket
	}
	b := &Bucket{
		handle:      client.Bucket(name),
		concurrency: defaultDeleteConcurrency,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b, nil
}

// Put writes data under key, replacing any existing object.
func (b *Bucket) Put(ctx context.Context, key string, data []byte, contentType string) error {
	w := b.handle.Object(key).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("storage: write %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("storage: close %s: %w", key, err)
	}
	return nil
}

// Delete removes key. A missing object is not an error.
func (b *Bucket) Delete(ctx context.Context, key string) error {
	err := b.handle.Object(key).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("storage: delete %s: %w", key, err)
	}
	return nil
}

// DeleteMany removes keys concurrently and returns the keys that existed
// and were deleted, sorted. The first failure cancels the remaining deletes.
func (b *Bucket) DeleteMany(ctx context.Context, keys []string) ([]string, error) {
	var (
		mu      sync.Mutex
		deleted []string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)
	for _, key := range keys {
		g.Go(func() error {
			err := b.handle.Object(key).Delete(gctx)
			switch {
			case errors.Is(err, storage.ErrObjectNotExist):
				b.logger.Debug("object already gone", zap.String("key", key))
				return nil
			case err != nil:
				return fmt.Errorf("storage: delete %s: %w", key, err)
			}
			mu.Lock()
			deleted = append(deleted, key)
			mu.Unlock()
			return nil
		})
	}
	err := g.Wait()
	sort.Strings(deleted)
	return deleted, err
}
