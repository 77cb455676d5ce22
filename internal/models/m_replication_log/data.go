package m_replication_log

import (
	"time"

	"cloud.google.com/go/spanner"
)

// Data represents the database model for the replication_log table.
type Data struct {
	LogID        string             `spanner:"log_id"`
	RoutingKey   string             `spanner:"routing_key"`
	AggregateID  string             `spanner:"aggregate_id"`
	Payload      spanner.NullJSON   `spanner:"payload"`
	Status       string             `spanner:"status"`
	Attempts     int64              `spanner:"attempts"`
	ErrorMessage spanner.NullString `spanner:"error_message"`
	CreatedAt    time.Time          `spanner:"created_at"`
	PublishedAt  spanner.NullTime   `spanner:"published_at"`
}
