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
	"github.com/light-bringer/catalog-admin-service/internal/pkg/committer"
	"github.com/light-bringer/catalog-admin-service/tests/testutil"
)

func TestImageLinkRepository(t *testing.T) {
	client, cleanup := testutil.SetupSpannerTest(t)
	defer cleanup()

	ctx := context.Background()
	links := repo.NewImageLinkRepo(client, committer.NewCommitter(client))

	parent, variations := testutil.NewTestFamily("Tee", 3)
	parent.SameImages = false
	source, copier, other := variations[0], variations[1], variations[2]
	for _, v := range variations {
		v.SameImages = false
	}
	source.Images = domain.Images{Main: "https://cdn.test/products/v1_0.jpg"}
	copier.Images = domain.Images{Main: source.Images.Main, SourceProductID: &source.ID}
	other.Images = domain.Images{Main: "https://cdn.test/products/v3_0.jpg"}
	testutil.InsertProducts(t, client, parent, source, copier, other)

	updated := domain.Images{
		Main:            "https://cdn.test/products/v1_0.jpg",
		SecondaryImages: []string{"https://cdn.test/products/v1_1.jpg"},
	}

	t.Run("without mirroring only the target changes", func(t *testing.T) {
		require.NoError(t, links.UpdateLinksOne(ctx, source.ID, updated, false))

		got, err := links.GetImages(ctx, copier.ID)
		require.NoError(t, err)
		assert.Nil(t, got.SecondaryImages)
	})

	t.Run("mirroring updates copies and keeps their source", func(t *testing.T) {
		require.NoError(t, links.UpdateLinksOne(ctx, source.ID, updated, true))

		got, err := links.GetImages(ctx, source.ID)
		require.NoError(t, err)
		assert.Equal(t, updated, got)

		got, err = links.GetImages(ctx, copier.ID)
		require.NoError(t, err)
		assert.Equal(t, updated.SecondaryImages, got.SecondaryImages)
		require.NotNil(t, got.SourceProductID)
		assert.Equal(t, source.ID, *got.SourceProductID)

		got, err = links.GetImages(ctx, other.ID)
		require.NoError(t, err)
		assert.Equal(t, other.Images, got)
	})

	t.Run("batch update", func(t *testing.T) {
		shared := domain.Images{Main: "https://cdn.test/products/p_0.jpg"}
		result, err := links.UpdateLinksMany(ctx, []contracts.LinkUpdate{
			{ProductID: parent.ID, Images: shared},
			{ProductID: other.ID, Images: shared},
		})
		require.NoError(t, err)
		assert.Empty(t, result.Failed)

		for _, id := range []string{parent.ID, other.ID} {
			got, err := links.GetImages(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, shared, got)
		}
	})

	t.Run("missing product", func(t *testing.T) {
		_, err := links.GetImages(ctx, "missing")
		assert.ErrorIs(t, err, domain.ErrProductNotFound)
	})
}
