package m_product

import (
	"math/big"
	"time"

	"cloud.google.com/go/spanner"
)

// Data represents the database model for the products table.
type Data struct {
	ProductID      string              `spanner:"product_id"`
	Parent         bool                `spanner:"parent"`
	ParentID       spanner.NullString  `spanner:"parent_id"`
	Category       string              `spanner:"category"`
	Name           string              `spanner:"name"`
	Price          big.Rat             `spanner:"price"`
	DiscountRate   spanner.NullNumeric `spanner:"discount_rate"`
	TaxRate        big.Rat             `spanner:"tax_rate"`
	Stock          int64               `spanner:"stock"`
	MaxOrderQty    int64               `spanner:"max_order_qty"`
	SKU            string              `spanner:"sku"`
	ExternalID     spanner.NullString  `spanner:"external_id"`
	ForSale        bool                `spanner:"for_sale"`
	IsFilterable   bool                `spanner:"is_filterable"`
	SameImages     bool                `spanner:"same_images"`
	SearchTerms    []string            `spanner:"search_terms"`
	Attrs          spanner.NullJSON    `spanner:"attrs"`
	ExtraAttrs     spanner.NullJSON    `spanner:"extra_attrs"`
	VariationTheme spanner.NullJSON    `spanner:"variation_theme"`
	ImageMain      spanner.NullString  `spanner:"image_main"`
	// ImageSecondary is NULL when the product has no secondary images.
	ImageSecondary []string            `spanner:"image_secondary"`
	ImageSourceID  spanner.NullString  `spanner:"image_source_id"`
	CreatedAt      time.Time           `spanner:"created_at"`
	UpdatedAt      time.Time           `spanner:"updated_at"`
}
