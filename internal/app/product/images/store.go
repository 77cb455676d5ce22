package images

import "context"

// ObjectStore stores image bytes under keys.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Delete(ctx context.Context, key string) error
	// DeleteMany removes keys and returns those actually deleted.
	DeleteMany(ctx context.Context, keys []string) ([]string, error)
}
