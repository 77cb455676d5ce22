// Package replication publishes product changes to other services.
package replication

import (
	"github.com/light-bringer/catalog-admin-service/internal/app/product/domain"
	"github.com/light-bringer/catalog-admin-service/internal/app/product/images"
)

// Record is the wire projection of one product. Decimals and identifiers
// are strings.
type Record struct {
	ID           string  `json:"_id"`
	ParentID     *string `json:"parent_id,omitempty"`
	Name         string  `json:"name"`
	Price        string  `json:"price"`
	DiscountRate *string `json:"discount_rate"`
	TaxRate      string  `json:"tax_rate"`
	Stock        int64   `json:"stock"`
	MaxOrderQty  int64   `json:"max_order_qty"`
	SKU          string  `json:"sku"`
	ForSale      *bool   `json:"for_sale,omitempty"`
	Image        string  `json:"image,omitempty"`
}

// DeletedOne is the payload of a single delete.
type DeletedOne struct {
	ID string `json:"_id"`
}

// DeletedMany is the payload of a bulk delete.
type DeletedMany struct {
	ProductIDs []string `json:"product_ids"`
}

// Projector narrows products to records.
type Projector struct {
	naming images.Naming
}

// NewProjector creates a Projector building image links on cdnBaseURL.
func NewProjector(cdnBaseURL string) Projector {
	return Projector{naming: images.NewNaming(cdnBaseURL)}
}

// Created projects a freshly created product. imageOwner is the product
// whose main image the product displays.
func (p Projector) Created(prod *domain.Product, imageOwner string) Record {
	r := base(prod)
	r.ParentID = prod.ParentID
	forSale := prod.ForSale
	r.ForSale = &forSale
	if imageOwner == "" {
		imageOwner = prod.ImageOwnerID()
	}
	r.Image = p.naming.URL(p.naming.Key(imageOwner, 0))
	return r
}

// Updated projects an updated product. Variations updated as part of a
// family carry no for_sale flag.
func (p Projector) Updated(prod *domain.Product, withForSale bool) Record {
	r := base(prod)
	if withForSale {
		forSale := prod.ForSale
		r.ForSale = &forSale
	}
	return r
}

func base(prod *domain.Product) Record {
	r := Record{
		ID:          prod.ID,
		Name:        prod.Name,
		Price:       prod.Price.StringFixed(2),
		TaxRate:     prod.TaxRate.StringFixed(2),
		Stock:       prod.Stock,
		MaxOrderQty: prod.MaxOrderQty,
		SKU:         prod.SKU,
	}
	if prod.DiscountRate.Valid {
		rate := prod.DiscountRate.Decimal.StringFixed(2)
		r.DiscountRate = &rate
	}
	return r
}

// CreatedEvent reports created products as one message.
func CreatedEvent(aggregateID string, records []Record) *domain.ProductsChangedEvent {
	return recordsEvent(domain.ChangeCreate, aggregateID, records)
}

// UpdatedEvent reports updated products as one message.
func UpdatedEvent(aggregateID string, records []Record) *domain.ProductsChangedEvent {
	return recordsEvent(domain.ChangeUpdate, aggregateID, records)
}

// DeletedEvent reports deleted products as one message.
func DeletedEvent(aggregateID string, ids []string) *domain.ProductsChangedEvent {
	if len(ids) == 1 {
		return &domain.ProductsChangedEvent{
			Kind:      domain.ChangeDelete,
			ProductID: aggregateID,
			Payload:   DeletedOne{ID: ids[0]},
		}
	}
	return &domain.ProductsChangedEvent{
		Kind:      domain.ChangeDelete,
		Many:      true,
		ProductID: aggregateID,
		Payload:   DeletedMany{ProductIDs: ids},
	}
}

// BulkDeletedEvent reports a bulk delete. It is always a delete.many.
func BulkDeletedEvent(aggregateID string, ids []string) *domain.ProductsChangedEvent {
	return &domain.ProductsChangedEvent{
		Kind:      domain.ChangeDelete,
		Many:      true,
		ProductID: aggregateID,
		Payload:   DeletedMany{ProductIDs: ids},
	}
}

func recordsEvent(kind domain.ChangeKind, aggregateID string, records []Record) *domain.ProductsChangedEvent {
	if len(records) == 1 {
		return &domain.ProductsChangedEvent{Kind: kind, ProductID: aggregateID, Payload: records[0]}
	}
	return &domain.ProductsChangedEvent{Kind: kind, Many: true, ProductID: aggregateID, Payload: records}
}
