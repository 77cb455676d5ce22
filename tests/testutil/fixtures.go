package testutil

import (
	"context"
	"testing"

	"cloud.google.com/go/spanner"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/light-bringer/catalog-admin-service/internal/app/product/domain"
	"github.com/light-bringer/catalog-admin-service/internal/app/product/repo"
	"github.com/light-bringer/catalog-admin-service/internal/models/m_category"
)

// NewTestProduct returns a standalone product with a unique id and SKU.
func NewTestProduct(name string) *domain.Product {
	id := uuid.NewString()
	return &domain.Product{
		ID:       id,
		Category: "shirts",
		BaseAttrs: domain.BaseAttrs{
			Name:        name,
			Price:       decimal.NewFromInt(20),
			TaxRate:     decimal.RequireFromString("0.2"),
			Stock:       5,
			MaxOrderQty: 2,
			SKU:         "SKU-" + id[:8],
		},
		ForSale: true,
		Attrs: []domain.Attr{{
			Code: "material", Name: "Material", Type: domain.AttrString, Value: domain.StringValue("cotton"),
		}},
		ExtraAttrs: []domain.Attr{},
	}
}

// NewTestFamily returns a parent and n variations sharing the parent's images.
func NewTestFamily(name string, n int) (*domain.Product, []*domain.Product) {
	parent := NewTestProduct(name)
	parent.Parent = true
	parent.ForSale = false
	parent.SameImages = true
	parent.VariationTheme = &domain.VariationTheme{
		Name:    "Color",
		Options: []domain.VariationThemeOption{{Name: "Color", FieldCodes: []string{"color"}}},
	}

	variations := make([]*domain.Product, 0, n)
	for i := 0; i < n; i++ {
		v := NewTestProduct(name)
		parentID := parent.ID
		v.ParentID = &parentID
		v.SameImages = true
		variations = append(variations, v)
	}
	return parent, variations
}

// InsertProducts writes products through the product repository.
func InsertProducts(t *testing.T, client *spanner.Client, products ...*domain.Product) {
	t.Helper()

	repository := repo.NewProductRepo(client)
	mutations := make([]*spanner.Mutation, 0, len(products))
	for _, p := range products {
		mut, err := repository.InsertMut(p)
		require.NoError(t, err, "failed to build insert for %s", p.ID)
		mutations = append(mutations, mut)
	}
	_, err := client.Apply(context.Background(), mutations)
	require.NoError(t, err, "failed to insert test products")
}

// InsertCategory makes categoryID known to the category repository.
func InsertCategory(t *testing.T, client *spanner.Client, categoryID string) {
	t.Helper()

	mut := spanner.Insert(m_category.TableName,
		[]string{m_category.CategoryID, m_category.Name},
		[]interface{}{categoryID, categoryID},
	)
	_, err := client.Apply(context.Background(), []*spanner.Mutation{mut})
	require.NoError(t, err, "failed to insert category")
}
