package contracts

import (
	"context"
	"time"

	"cloud.google.com/go/spanner"
)

// ReplicationEntry is one replication message and its delivery state.
type ReplicationEntry struct {
	LogID       string
	RoutingKey  string
	AggregateID string
	Payload     []byte // JSON
	Status      string
	Attempts    int64
	Error       string
	CreatedAt   time.Time
	PublishedAt *time.Time
}

// ReplicationLog records replication messages next to the product writes
// that caused them.
type ReplicationLog interface {
	// InsertMut creates a mutation inserting a pending entry.
	InsertMut(entry *ReplicationEntry) (*spanner.Mutation, error)

	MarkPublished(ctx context.Context, logID string, attempts int64) error
	MarkFailed(ctx context.Context, logID string, attempts int64, reason string) error

	// ListUndelivered returns failed entries and pending entries older than
	// olderThan, oldest first.
	ListUndelivered(ctx context.Context, olderThan time.Time, limit int) ([]*ReplicationEntry, error)

	// DeletePublishedBefore removes published entries created before cutoff.
	DeletePublishedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
