package m_replication_log

// Field name constants for the replication_log table.
const (
	TableName = "replication_log"

	LogID        = "log_id"
	RoutingKey   = "routing_key"
	AggregateID  = "aggregate_id"
	Payload      = "payload"
	Status       = "status"
	Attempts     = "attempts"
	ErrorMessage = "error_message"
	CreatedAt    = "created_at"
	PublishedAt  = "published_at"
)

// Status values. A row starts pending in the commit that changed the
// products and ends published or failed.
const (
	StatusPending   = "pending"
	StatusPublished = "published"
	StatusFailed    = "failed"
)

// Columns lists every column in Data order.
var Columns = []string{
	LogID, RoutingKey, AggregateID, Payload, Status, Attempts, ErrorMessage, CreatedAt, PublishedAt,
}
