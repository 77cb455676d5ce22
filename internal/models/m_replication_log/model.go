package m_replication_log

import (
	"cloud.google.com/go/spanner"
)

// Model provides a facade for type-safe mutations on the replication_log table.
type Model struct{}

// NewModel creates a new Model instance.
func NewModel() *Model {
	return &Model{}
}

// InsertMut creates a mutation inserting a pending log row.
func (m *Model) InsertMut(data *Data) *spanner.Mutation {
	return spanner.Insert(TableName, Columns, []interface{}{
		data.LogID,
		data.RoutingKey,
		data.AggregateID,
		data.Payload,
		StatusPending,
		int64(0),
		spanner.NullString{},
		spanner.CommitTimestamp,
		spanner.NullTime{},
	})
}

// PublishedMut marks a row as delivered to the broker.
func (m *Model) PublishedMut(logID string, attempts int64) *spanner.Mutation {
	return spanner.Update(TableName,
		[]string{LogID, Status, Attempts, ErrorMessage, PublishedAt},
		[]interface{}{logID, StatusPublished, attempts, spanner.NullString{}, spanner.CommitTimestamp},
	)
}

// FailedMut records a failed delivery attempt.
func (m *Model) FailedMut(logID string, attempts int64, reason string) *spanner.Mutation {
	return spanner.Update(TableName,
		[]string{LogID, Status, Attempts, ErrorMessage},
		[]interface{}{logID, StatusFailed, attempts, spanner.NullString{StringVal: reason, Valid: true}},
	)
}

// DeleteMut creates a mutation deleting a log row.
func (m *Model) DeleteMut(logID string) *spanner.Mutation {
	return spanner.Delete(TableName, spanner.Key{logID})
}
