package m_product

import (
	"cloud.google.com/go/spanner"
)

// Model provides a facade for type-safe mutations on the products table.
type Model struct{}

// NewModel creates a new Model instance.
func NewModel() *Model {
	return &Model{}
}

// InsertMut creates a mutation inserting a product. Both timestamps are
// set to the commit timestamp.
func (m *Model) InsertMut(data *Data) *spanner.Mutation {
	return spanner.Insert(TableName, Columns, []interface{}{
		data.ProductID,
		data.Parent,
		data.ParentID,
		data.Category,
		data.Name,
		data.Price,
		data.DiscountRate,
		data.TaxRate,
		data.Stock,
		data.MaxOrderQty,
		data.SKU,
		data.ExternalID,
		data.ForSale,
		data.IsFilterable,
		data.SameImages,
		data.SearchTerms,
		data.Attrs,
		data.ExtraAttrs,
		data.VariationTheme,
		data.ImageMain,
		data.ImageSecondary,
		data.ImageSourceID,
		spanner.CommitTimestamp,
		spanner.CommitTimestamp,
	})
}

// UpdateMut creates a mutation updating the given columns of one product.
// updated_at is always bumped. Returns nil when updates is empty.
func (m *Model) UpdateMut(productID string, updates map[string]interface{}) *spanner.Mutation {
	if len(updates) == 0 {
		return nil
	}

	columns := make([]string, 0, len(updates)+2)
	values := make([]interface{}, 0, len(updates)+2)

	columns = append(columns, ProductID)
	values = append(values, productID)

	for col, val := range updates {
		if col == ProductID || col == UpdatedAt {
			continue
		}
		columns = append(columns, col)
		values = append(values, val)
	}

	columns = append(columns, UpdatedAt)
	values = append(values, spanner.CommitTimestamp)

	return spanner.Update(TableName, columns, values)
}

// ImagesMut rewrites the image columns of one product.
func (m *Model) ImagesMut(productID string, main spanner.NullString, secondary []string, sourceID spanner.NullString) *spanner.Mutation {
	return spanner.Update(TableName,
		[]string{ProductID, ImageMain, ImageSecondary, ImageSourceID, UpdatedAt},
		[]interface{}{productID, main, secondary, sourceID, spanner.CommitTimestamp},
	)
}

// DeleteMut creates a mutation deleting a product (hard delete).
func (m *Model) DeleteMut(productID string) *spanner.Mutation {
	return spanner.Delete(TableName, spanner.Key{productID})
}

// MirrorMut rewrites main and secondary images but leaves image_source_id
// untouched. Used for products that copy another product's images.
func (m *Model) MirrorMut(productID string, main spanner.NullString, secondary []string) *spanner.Mutation {
	return spanner.Update(TableName,
		[]string{ProductID, ImageMain, ImageSecondary, UpdatedAt},
		[]interface{}{productID, main, secondary, spanner.CommitTimestamp},
	)
}
