package replication

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/light-bringer/catalog-admin-service/internal/app/product/contracts"
	"github.com/light-bringer/catalog-admin-service/internal/app/product/domain"
	"github.com/light-bringer/catalog-admin-service/internal/pkg/committer"
)

// Publisher delivers one message to the broker.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload []byte) error
}

// Replicator records change events next to the write that caused them and
// publishes them once that write committed. Delivery is best effort: a
// failed publish is recorded on the log entry and never reaches the caller.
type Replicator struct {
	log       contracts.ReplicationLog
	publisher Publisher
	logger    *zap.Logger
}

// NewReplicator creates a Replicator. A nil logger disables logging.
func NewReplicator(log contracts.ReplicationLog, publisher Publisher, logger *zap.Logger) *Replicator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Replicator{log: log, publisher: publisher, logger: logger}
}

// Stage buffers the log entry of event in h and schedules its publication
// for after the commit.
func (r *Replicator) Stage(h committer.Handle, event *domain.ProductsChangedEvent) error {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", event.EventType(), err)
	}

	entry := &contracts.ReplicationEntry{
		RoutingKey:  event.EventType(),
		AggregateID: event.AggregateID(),
		Payload:     payload,
	}
	mut, err := r.log.InsertMut(entry)
	if err != nil {
		return err
	}
	h.Add(mut)
	h.AfterCommit("replicate "+entry.RoutingKey, func(ctx context.Context) error {
		return r.Deliver(ctx, entry)
	})
	return nil
}

// Deliver publishes entry and records the outcome on the log.
func (r *Replicator) Deliver(ctx context.Context, entry *contracts.ReplicationEntry) error {
	attempts := entry.Attempts + 1

	if err := r.publisher.Publish(ctx, entry.RoutingKey, entry.Payload); err != nil {
		if markErr := r.log.MarkFailed(ctx, entry.LogID, attempts, err.Error()); markErr != nil {
			r.logger.Error("failed to record replication failure",
				zap.String("log_id", entry.LogID),
				zap.Error(markErr),
			)
		}
		return fmt.Errorf("publish %s for %s: %w", entry.RoutingKey, entry.AggregateID, err)
	}

	if err := r.log.MarkPublished(ctx, entry.LogID, attempts); err != nil {
		return fmt.Errorf("record delivery of %s: %w", entry.LogID, err)
	}
	return nil
}

// Replay republishes failed entries and pending entries older than
// olderThan. It returns the number of entries delivered and failed.
func (r *Replicator) Replay(ctx context.Context, olderThan time.Time, limit int) (int, int, error) {
	entries, err := r.log.ListUndelivered(ctx, olderThan, limit)
	if err != nil {
		return 0, 0, err
	}

	var delivered, failed int
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return delivered, failed, err
		}
		if err := r.Deliver(ctx, entry); err != nil {
			failed++
			r.logger.Warn("replay failed",
				zap.String("log_id", entry.LogID),
				zap.String("routing_key", entry.RoutingKey),
				zap.Error(err),
			)
			continue
		}
		delivered++
	}
	return delivered, failed, nil
}
