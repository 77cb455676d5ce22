package m_product

// Field name constants for the products table.
const (
	TableName = "products"

	ProductID      = "product_id"
	Parent         = "parent"
	ParentID       = "parent_id"
	Category       = "category"
	Name           = "name"
	Price          = "price"
	DiscountRate   = "discount_rate"
	TaxRate        = "tax_rate"
	Stock          = "stock"
	MaxOrderQty    = "max_order_qty"
	SKU            = "sku"
	ExternalID     = "external_id"
	ForSale        = "for_sale"
	IsFilterable   = "is_filterable"
	SameImages     = "same_images"
	SearchTerms    = "search_terms"
	Attrs          = "attrs"
	ExtraAttrs     = "extra_attrs"
	VariationTheme = "variation_theme"
	ImageMain      = "image_main"
	ImageSecondary = "image_secondary"
	ImageSourceID  = "image_source_id"
	CreatedAt      = "created_at"
	UpdatedAt      = "updated_at"

	// Secondary indexes.
	ByParentIndex      = "products_by_parent_id"
	BySKUIndex         = "products_by_sku"
	ByImageSourceIndex = "products_by_image_source_id"
)

// Columns lists every column in Data order.
var Columns = []string{
	ProductID, Parent, ParentID, Category,
	Name, Price, DiscountRate, TaxRate, Stock, MaxOrderQty, SKU, ExternalID,
	ForSale, IsFilterable, SameImages, SearchTerms,
	Attrs, ExtraAttrs, VariationTheme,
	ImageMain, ImageSecondary, ImageSourceID,
	CreatedAt, UpdatedAt,
}

// ImageColumns are the columns rewritten by link updates.
var ImageColumns = []string{ImageMain, ImageSecondary, ImageSourceID}
