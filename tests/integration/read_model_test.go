//go:build integration

package integration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/light-bringer/catalog-admin-service/internal/app/product/contracts"
	"github.com/light-bringer/catalog-admin-service/internal/app/product/domain"
	"github.com/light-bringer/catalog-admin-service/internal/app/product/repo"
	"github.com/light-bringer/catalog-admin-service/tests/testutil"
)

func TestReadModel_GetProduct(t *testing.T) {
	client, cleanup := testutil.SetupSpannerTest(t)
	defer cleanup()

	ctx := context.Background()
	readModel := repo.NewReadModel(client)

	t.Run("standalone product", func(t *testing.T) {
		product := testutil.NewTestProduct("Mug")
		testutil.InsertProducts(t, client, product)

		detail, err := readModel.GetProduct(ctx, product.ID)
		require.NoError(t, err)

		assert.Equal(t, product.ID, detail.Product.ProductID)
		assert.Equal(t, "Mug", detail.Product.Name)
		assert.Equal(t, "20", detail.Product.Price)
		assert.Nil(t, detail.Product.DiscountRate)
		assert.Equal(t, []string{}, detail.Product.SearchTerms)
		assert.NotNil(t, detail.Variations)
		assert.Empty(t, detail.Variations)
	})

	t.Run("parent with variations", func(t *testing.T) {
		parent, variations := testutil.NewTestFamily("Tee", 2)
		testutil.InsertProducts(t, client, parent, variations[0], variations[1])

		detail, err := readModel.GetProduct(ctx, parent.ID)
		require.NoError(t, err)

		assert.True(t, detail.Product.Parent)
		require.Len(t, detail.Variations, 2)
		for _, v := range detail.Variations {
			require.NotNil(t, v.ParentID)
			assert.Equal(t, parent.ID, *v.ParentID)
		}
	})

	t.Run("missing product", func(t *testing.T) {
		_, err := readModel.GetProduct(ctx, "missing")
		assert.ErrorIs(t, err, domain.ErrProductNotFound)
	})
}

func TestReadModel_ListProducts(t *testing.T) {
	client, cleanup := testutil.SetupSpannerTest(t)
	defer cleanup()

	ctx := context.Background()
	readModel := repo.NewReadModel(client)

	parent, variations := testutil.NewTestFamily("Tee", 2)
	testutil.InsertProducts(t, client, parent, variations[0], variations[1])

	var ids []string
	for _, name := range []string{"First", "Second", "Third"} {
		p := testutil.NewTestProduct(name)
		if name == "Third" {
			p.Category = "mugs"
		}
		testutil.InsertProducts(t, client, p)
		ids = append(ids, p.ID)
	}

	t.Run("variations are not listed", func(t *testing.T) {
		result, err := readModel.ListProducts(ctx, &contracts.ListFilter{})
		require.NoError(t, err)

		assert.Equal(t, int64(4), result.TotalCount)
		require.Len(t, result.Products, 4)
		for _, p := range result.Products {
			assert.Nil(t, p.ParentID)
		}
		assert.Empty(t, result.NextPageToken)
	})

	t.Run("newest first with pagination", func(t *testing.T) {
		page1, err := readModel.ListProducts(ctx, &contracts.ListFilter{PageSize: 2})
		require.NoError(t, err)
		require.Len(t, page1.Products, 2)
		assert.Equal(t, ids[2], page1.Products[0].ProductID)
		assert.Equal(t, ids[1], page1.Products[1].ProductID)
		assert.Equal(t, "2", page1.NextPageToken)

		page2, err := readModel.ListProducts(ctx, &contracts.ListFilter{PageSize: 2, PageToken: page1.NextPageToken})
		require.NoError(t, err)
		require.Len(t, page2.Products, 2)
		assert.Equal(t, ids[0], page2.Products[0].ProductID)
		assert.Equal(t, parent.ID, page2.Products[1].ProductID)
		assert.Empty(t, page2.NextPageToken)
	})

	t.Run("filter by category", func(t *testing.T) {
		result, err := readModel.ListProducts(ctx, &contracts.ListFilter{Category: "mugs"})
		require.NoError(t, err)

		assert.Equal(t, int64(1), result.TotalCount)
		require.Len(t, result.Products, 1)
		assert.Equal(t, ids[2], result.Products[0].ProductID)
	})

	t.Run("invalid page token", func(t *testing.T) {
		_, err := readModel.ListProducts(ctx, &contracts.ListFilter{PageToken: "abc"})
		assert.Error(t, err)
	})
}
