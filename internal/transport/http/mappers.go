package http

import (
	"encoding/json"
	"time"

	"github.com/light-bringer/catalog-admin-service/internal/app/product/contracts"
)

// ReplicationEntry is a replication log entry in the HTTP response.
type ReplicationEntry struct {
	LogID       string          `json:"log_id"`
	RoutingKey  string          `json:"routing_key"`
	AggregateID string          `json:"aggregate_id"`
	Payload     json.RawMessage `json:"payload"`
	Status      string          `json:"status"`
	Attempts    int64           `json:"attempts"`
	Error       string          `json:"error,omitempty"`
	CreatedAt   string          `json:"created_at"`
	PublishedAt *string         `json:"published_at,omitempty"`
}

// ListReplicationResponse is the body of GET /admin/replication.
type ListReplicationResponse struct {
	Entries    []ReplicationEntry `json:"entries"`
	TotalCount int                `json:"total_count"`
}

func toReplicationResponse(entries []*contracts.ReplicationEntry) ListReplicationResponse {
	resp := ListReplicationResponse{
		Entries:    make([]ReplicationEntry, 0, len(entries)),
		TotalCount: len(entries),
	}
	for _, e := range entries {
		item := ReplicationEntry{
			LogID:       e.LogID,
			RoutingKey:  e.RoutingKey,
			AggregateID: e.AggregateID,
			Payload:     json.RawMessage(e.Payload),
			Status:      e.Status,
			Attempts:    e.Attempts,
			Error:       e.Error,
			CreatedAt:   e.CreatedAt.Format(time.RFC3339),
		}
		if len(item.Payload) == 0 {
			item.Payload = json.RawMessage("null")
		}
		if e.PublishedAt != nil {
			published := e.PublishedAt.Format(time.RFC3339)
			item.PublishedAt = &published
		}
		resp.Entries = append(resp.Entries, item)
	}
	return resp
}
