package domain

import "fmt"

// DomainEvent is the base interface for all domain events.
type DomainEvent interface {
	EventType() string
	AggregateID() string
}

// ChangeKind is the CRUD operation a replication event reports.
type ChangeKind string

const (
	ChangeCreate ChangeKind = "create"
	ChangeUpdate ChangeKind = "update"
	ChangeDelete ChangeKind = "delete"
)

// RoutingKey returns the broker routing key for a change of one or many products.
func RoutingKey(kind ChangeKind, many bool) string {
	scope := "one"
	if many {
		scope = "many"
	}
	return fmt.Sprintf("products.crud.%s.%s", kind, scope)
}

// ProductsChangedEvent is emitted once per logical create, update or delete.
// Payload is the wire projection of the affected documents.
type ProductsChangedEvent struct {
	Kind      ChangeKind
	Many      bool
	ProductID string
	Payload   any
}

func (e *ProductsChangedEvent) EventType() string {
	return RoutingKey(e.Kind, e.Many)
}

func (e *ProductsChangedEvent) AggregateID() string {
	return e.ProductID
}
