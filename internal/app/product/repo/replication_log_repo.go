package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/spanner"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"

	"github.com/light-bringer/catalog-admin-service/internal/app/product/contracts"
	"github.com/light-bringer/catalog-admin-service/internal/models/m_replication_log"
	"github.com/light-bringer/catalog-admin-service/internal/pkg/committer"
)

// ReplicationLogRepo implements ReplicationLog for Spanner.
type ReplicationLogRepo struct {
	client    *spanner.Client
	committer *committer.Committer
	model     *m_replication_log.Model
}

// NewReplicationLogRepo creates a new ReplicationLogRepo.
func NewReplicationLogRepo(client *spanner.Client, c *committer.Committer) *ReplicationLogRepo {
	return &ReplicationLogRepo{client: client, committer: c, model: m_replication_log.NewModel()}
}

var _ contracts.ReplicationLog = (*ReplicationLogRepo)(nil)

// InsertMut creates a mutation inserting a pending entry. A missing LogID is
// generated and written back to entry.
func (r *ReplicationLogRepo) InsertMut(entry *contracts.ReplicationEntry) (*spanner.Mutation, error) {
	if entry.LogID == "" {
		entry.LogID = uuid.NewString()
	}
	if !json.Valid(entry.Payload) {
		return nil, fmt.Errorf("replication payload of %s is not valid JSON", entry.AggregateID)
	}
	entry.Status = m_replication_log.StatusPending

	return r.model.InsertMut(&m_replication_log.Data{
		LogID:       entry.LogID,
		RoutingKey:  entry.RoutingKey,
		AggregateID: entry.AggregateID,
		Payload:     spanner.NullJSON{Value: json.RawMessage(entry.Payload), Valid: true},
	}), nil
}

// MarkPublished records a successful delivery.
func (r *ReplicationLogRepo) MarkPublished(ctx context.Context, logID string, attempts int64) error {
	plan := committer.NewPlan()
	plan.Add(r.model.PublishedMut(logID, attempts))
	return r.committer.Apply(ctx, plan)
}

// MarkFailed records a failed delivery.
func (r *ReplicationLogRepo) MarkFailed(ctx context.Context, logID string, attempts int64, reason string) error {
	plan := committer.NewPlan()
	plan.Add(r.model.FailedMut(logID, attempts, reason))
	return r.committer.Apply(ctx, plan)
}

// ListUndelivered returns failed entries and stale pending entries.
func (r *ReplicationLogRepo) ListUndelivered(ctx context.Context, olderThan time.Time, limit int) ([]*contracts.ReplicationEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	stmt := spanner.Statement{
		SQL: `SELECT log_id, routing_key, aggregate_id, payload, status, attempts, error_message, created_at, published_at
			FROM replication_log
			WHERE status = @failed OR (status = @pending AND created_at < @olderThan)
			ORDER BY created_at ASC
			LIMIT @limit`,
		Params: map[string]interface{}{
			"failed":    m_replication_log.StatusFailed,
			"pending":   m_replication_log.StatusPending,
			"olderThan": olderThan,
			"limit":     int64(limit),
		},
	}
	return queryReplication(ctx, r.client.Single(), stmt)
}

// DeletePublishedBefore removes published entries created before cutoff.
func (r *ReplicationLogRepo) DeletePublishedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	stmt := spanner.Statement{
		SQL: `DELETE FROM replication_log WHERE status = @published AND created_at < @cutoff`,
		Params: map[string]interface{}{
			"published": m_replication_log.StatusPublished,
			"cutoff":    cutoff,
		},
	}
	count, err := r.client.PartitionedUpdate(ctx, stmt)
	if err != nil {
		return 0, fmt.Errorf("failed to delete replication log: %w", err)
	}
	return count, nil
}

func queryReplication(ctx context.Context, rd committer.Reader, stmt spanner.Statement) ([]*contracts.ReplicationEntry, error) {
	iter := rd.Query(ctx, stmt)
	defer iter.Stop()

	var entries []*contracts.ReplicationEntry
	for {
		row, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			return entries, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate replication log: %w", err)
		}

		var data m_replication_log.Data
		if err := row.ToStruct(&data); err != nil {
			return nil, fmt.Errorf("failed to parse replication log: %w", err)
		}
		entry, err := replicationDataToEntry(&data)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
}

func replicationDataToEntry(data *m_replication_log.Data) (*contracts.ReplicationEntry, error) {
	entry := &contracts.ReplicationEntry{
		LogID:       data.LogID,
		RoutingKey:  data.RoutingKey,
		AggregateID: data.AggregateID,
		Status:      data.Status,
		Attempts:    data.Attempts,
		Error:       data.ErrorMessage.StringVal,
		CreatedAt:   data.CreatedAt,
	}
	if data.PublishedAt.Valid {
		t := data.PublishedAt.Time
		entry.PublishedAt = &t
	}
	if data.Payload.Valid {
		raw, err := json.Marshal(data.Payload.Value)
		if err != nil {
			return nil, fmt.Errorf("invalid payload of %s: %w", data.LogID, err)
		}
		entry.Payload = raw
	}
	return entry, nil
}
