package removal_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/light-bringer/catalog-admin-service/internal/app/product/domain"
	"github.com/light-bringer/catalog-admin-service/internal/app/product/images"
	"github.com/light-bringer/catalog-admin-service/internal/app/product/removal"
	"github.com/light-bringer/catalog-admin-service/internal/pkg/committer"
	"github.com/light-bringer/catalog-admin-service/tests/testutil"
)

func strPtr(s string) *string { return &s }

type fixture struct {
	h       *testutil.Harness
	remover *removal.Remover
}

func newFixture(t *testing.T) *fixture {
	h := testutil.NewHarness(t)
	return &fixture{h: h, remover: removal.NewRemover(h.Store, h.Images, zaptest.NewLogger(t))}
}

// put stores an object for image number of productID and returns its URL.
func (f *fixture) put(t *testing.T, productID string, number int) string {
	t.Helper()
	key := f.h.Naming.Key(productID, number)
	require.NoError(t, f.h.Objects.Put(context.Background(), key, []byte("x"), images.ContentType))
	return f.h.Naming.URL(key)
}

func (f *fixture) remove(t *testing.T, ids ...string) ([]string, error) {
	t.Helper()
	var deleted []string
	err := committer.Run(context.Background(), f.h.Store, func(ctx context.Context, h committer.Handle) error {
		targets, err := f.h.Store.GetMany(ctx, h.Reader(), ids)
		if err != nil {
			return err
		}
		deleted, err = f.remover.Remove(ctx, h, targets)
		return err
	})
	return deleted, err
}

func TestRemover_DistinctImagesParent(t *testing.T) {
	f := newFixture(t)
	v1Main := f.put(t, "v1", 0)
	v1Second := f.put(t, "v1", 1)
	v3Main := f.put(t, "v3", 0)
	unrelated := f.put(t, "other", 0)

	f.h.Store.Seed(
		&domain.Product{ID: "p", Parent: true, Images: domain.Images{Main: v1Main}},
		&domain.Product{ID: "v1", ParentID: strPtr("p"), Images: domain.Images{Main: v1Main, SecondaryImages: []string{v1Second}}},
		&domain.Product{ID: "v2", ParentID: strPtr("p"), Images: domain.Images{Main: v1Main, SecondaryImages: []string{v1Second}, SourceProductID: strPtr("v1")}},
		&domain.Product{ID: "v3", ParentID: strPtr("p"), Images: domain.Images{Main: v3Main}},
		&domain.Product{ID: "other", Images: domain.Images{Main: unrelated}},
	)

	deleted, err := f.remove(t, "p")
	require.NoError(t, err)

	assert.Equal(t, []string{"p", "v1", "v2", "v3"}, deleted)
	assert.Equal(t, 1, f.h.Store.Count())
	assert.Equal(t, []string{f.h.Naming.Key("other", 0)}, f.h.Objects.Keys())
}

func TestRemover_SameImagesParent(t *testing.T) {
	f := newFixture(t)
	shared := domain.Images{Main: f.put(t, "p", 0), SecondaryImages: []string{f.put(t, "p", 1)}}
	f.h.Store.Seed(
		&domain.Product{ID: "p", Parent: true, SameImages: true, Images: shared},
		&domain.Product{ID: "v1", ParentID: strPtr("p"), SameImages: true, Images: shared},
	)

	deleted, err := f.remove(t, "p")
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"p", "v1"}, deleted)
	assert.Empty(t, f.h.Objects.Keys())
}

func TestRemover_SingleDocuments(t *testing.T) {
	t.Run("same-images variation leaves the family objects", func(t *testing.T) {
		f := newFixture(t)
		shared := domain.Images{Main: f.put(t, "p", 0)}
		f.h.Store.Seed(
			&domain.Product{ID: "p", Parent: true, SameImages: true, Images: shared},
			&domain.Product{ID: "v1", ParentID: strPtr("p"), SameImages: true, Images: shared},
			&domain.Product{ID: "v2", ParentID: strPtr("p"), SameImages: true, Images: shared},
		)

		deleted, err := f.remove(t, "v1")
		require.NoError(t, err)

		assert.Equal(t, []string{"v1"}, deleted)
		assert.True(t, f.h.Objects.Has(f.h.Naming.Key("p", 0)))
	})

	t.Run("objects still copied by a sibling stay", func(t *testing.T) {
		f := newFixture(t)
		main := f.put(t, "v1", 0)
		f.h.Store.Seed(
			&domain.Product{ID: "p", Parent: true},
			&domain.Product{ID: "v1", ParentID: strPtr("p"), Images: domain.Images{Main: main}},
			&domain.Product{ID: "v2", ParentID: strPtr("p"), Images: domain.Images{Main: main, SourceProductID: strPtr("v1")}},
		)

		_, err := f.remove(t, "v1")
		require.NoError(t, err)

		assert.Nil(t, f.h.Store.Product("v1"))
		assert.True(t, f.h.Objects.Has(f.h.Naming.Key("v1", 0)))
	})

	t.Run("source and copier deleted together", func(t *testing.T) {
		f := newFixture(t)
		main := f.put(t, "v1", 0)
		f.h.Store.Seed(
			&domain.Product{ID: "p", Parent: true},
			&domain.Product{ID: "v1", ParentID: strPtr("p"), Images: domain.Images{Main: main}},
			&domain.Product{ID: "v2", ParentID: strPtr("p"), Images: domain.Images{Main: main, SourceProductID: strPtr("v1")}},
		)

		_, err := f.remove(t, "v1", "v2")
		require.NoError(t, err)

		assert.Empty(t, f.h.Objects.Keys())
	})

	t.Run("standalone removes its own objects", func(t *testing.T) {
		f := newFixture(t)
		f.h.Store.Seed(&domain.Product{ID: "s", Images: domain.Images{Main: f.put(t, "s", 0)}})

		_, err := f.remove(t, "s")
		require.NoError(t, err)

		assert.Empty(t, f.h.Objects.Keys())
	})

	t.Run("failed commit keeps documents and objects", func(t *testing.T) {
		f := newFixture(t)
		f.h.Store.Seed(&domain.Product{ID: "s", Images: domain.Images{Main: f.put(t, "s", 0)}})
		f.h.Store.CommitErr = testutil.ErrInjected

		_, err := f.remove(t, "s")

		assert.ErrorIs(t, err, testutil.ErrInjected)
		assert.NotNil(t, f.h.Store.Product("s"))
		assert.True(t, f.h.Objects.Has(f.h.Naming.Key("s", 0)))
	})
}
