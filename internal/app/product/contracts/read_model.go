package contracts

import (
	"context"
	"time"

	"github.com/light-bringer/catalog-admin-service/internal/app/product/domain"
)

// ProductDTO is the admin view of one stored document.
// Decimals are rendered as strings.
type ProductDTO struct {
	ProductID      string                 `json:"_id"`
	Parent         bool                   `json:"parent"`
	ParentID       *string                `json:"parent_id"`
	Category       string                 `json:"category"`
	Name           string                 `json:"name"`
	Price          string                 `json:"price"`
	DiscountRate   *string                `json:"discount_rate"`
	TaxRate        string                 `json:"tax_rate"`
	Stock          int64                  `json:"stock"`
	MaxOrderQty    int64                  `json:"max_order_qty"`
	SKU            string                 `json:"sku"`
	ExternalID     *string                `json:"external_id"`
	ForSale        bool                   `json:"for_sale"`
	IsFilterable   bool                   `json:"is_filterable"`
	SameImages     bool                   `json:"same_images"`
	SearchTerms    []string               `json:"search_terms"`
	Attrs          []domain.Attr          `json:"attrs"`
	ExtraAttrs     []domain.Attr          `json:"extra_attrs"`
	VariationTheme *domain.VariationTheme `json:"variation_theme"`
	Images         domain.Images          `json:"images"`
	CreatedAt      time.Time              `json:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at"`
}

// ProductDetail is a product together with its variations.
type ProductDetail struct {
	Product    *ProductDTO   `json:"product"`
	Variations []*ProductDTO `json:"variations"`
}

// ListFilter defines filtering options for listing top-level products.
type ListFilter struct {
	Category  string
	PageSize  int
	PageToken string
}

// ListResult contains paginated product list results.
type ListResult struct {
	Products      []*ProductDTO `json:"products"`
	NextPageToken string        `json:"next_page_token"`
	TotalCount    int64         `json:"total_count"`
}

// ReplicationFilter selects replication log entries.
type ReplicationFilter struct {
	Status      string
	AggregateID string
	Limit       int
}

// ReadModel defines product queries. Read models bypass the domain layer.
type ReadModel interface {
	// GetProduct returns a document and, for a parent, its variations.
	GetProduct(ctx context.Context, productID string) (*ProductDetail, error)

	// ListProducts returns parents and standalone products, newest first.
	ListProducts(ctx context.Context, filter *ListFilter) (*ListResult, error)

	// ListReplication returns replication log entries, newest first.
	ListReplication(ctx context.Context, filter *ReplicationFilter) ([]*ReplicationEntry, error)
}
