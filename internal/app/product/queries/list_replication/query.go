package list_replication

import (
	"context"

	"github.com/light-bringer/catalog-admin-service/internal/app/product/contracts"
)

// Request contains filtering parameters for listing replication log entries.
type Request struct {
	Status      string // "pending", "published" or "failed"
	AggregateID string
	Limit       int // Max number of entries to return (default: 50)
}

// Query handles the list replication log query use case.
type Query struct {
	readModel contracts.ReadModel
}

// NewQuery creates a new list replication query.
func NewQuery(readModel contracts.ReadModel) *Query {
	return &Query{
		readModel: readModel,
	}
}

// Execute retrieves replication log entries, newest first.
func (q *Query) Execute(ctx context.Context, req *Request) ([]*contracts.ReplicationEntry, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = 50 // Default limit
	}
	if limit > 100 {
		limit = 100 // Max limit
	}

	return q.readModel.ListReplication(ctx, &contracts.ReplicationFilter{
		Status:      req.Status,
		AggregateID: req.AggregateID,
		Limit:       limit,
	})
}
