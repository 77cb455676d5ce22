package variations_test

import (
	"context"
	"fmt"
	"image/color"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/light-bringer/catalog-admin-service/internal/app/product/domain"
	"github.com/light-bringer/catalog-admin-service/internal/app/product/domain/services"
	"github.com/light-bringer/catalog-admin-service/internal/app/product/images"
	"github.com/light-bringer/catalog-admin-service/internal/app/product/variations"
	"github.com/light-bringer/catalog-admin-service/internal/pkg/clock"
	"github.com/light-bringer/catalog-admin-service/internal/pkg/committer"
	"github.com/light-bringer/catalog-admin-service/tests/testutil"
)

const baseURL = "https://cdn.test"

type fixture struct {
	store   *testutil.MemStore
	objects *testutil.ObjectStore
	naming  images.Naming
	manager *variations.Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := testutil.NewMemStore()
	objects := testutil.NewObjectStore()
	naming := images.NewNaming(baseURL)
	imgs := images.NewManager(objects, store, naming, images.NewDecoder(0), zaptest.NewLogger(t))

	n := 0
	builder := services.NewProductBuilder(func() string {
		n++
		return fmt.Sprintf("v-%d", n)
	})
	clk := clock.NewFixed(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))

	return &fixture{
		store:   store,
		objects: objects,
		naming:  naming,
		manager: variations.NewManager(store, builder, imgs, clk, zaptest.NewLogger(t)),
	}
}

func (f *fixture) run(t *testing.T, fn func(ctx context.Context, h committer.Handle) error) {
	t.Helper()
	require.NoError(t, committer.Run(context.Background(), f.store, fn))
}

func textAttr(code, value string) domain.Attr {
	return domain.Attr{Code: code, Name: code, Type: domain.AttrString, Value: domain.StringValue(value)}
}

func strPtr(s string) *string { return &s }

func variation(id, parentID string, imgs domain.Images) *domain.Product {
	return &domain.Product{
		ID:       id,
		ParentID: strPtr(parentID),
		BaseAttrs: domain.BaseAttrs{
			Name: id, Price: decimal.NewFromInt(10), SKU: "sku-" + id,
		},
		Attrs:  []domain.Attr{textAttr("material", "cotton"), textAttr("color", "red")},
		Images: imgs,
	}
}

func TestManager_InsertVariations(t *testing.T) {
	t.Run("inserts every variation on commit", func(t *testing.T) {
		f := newFixture(t)
		common := services.FamilyCommon{
			Category: "shirts",
			ForSale:  true,
			Attrs:    []domain.Attr{textAttr("material", "cotton")},
		}
		input := []domain.VariationInput{
			{BaseAttrs: domain.BaseAttrs{Name: "red", SKU: "R"}, Attrs: []domain.Attr{textAttr("color", "red")}},
			{BaseAttrs: domain.BaseAttrs{Name: "blue", SKU: "B"}, Attrs: []domain.Attr{textAttr("color", "blue")}},
		}

		var inserted *variations.Inserted
		f.run(t, func(ctx context.Context, h committer.Handle) error {
			var err error
			inserted, err = f.manager.InsertVariations(h, "parent", common, input)
			return err
		})

		assert.Equal(t, []string{"v-1", "v-2"}, inserted.IDs())
		require.Len(t, inserted.Payloads, 2)
		require.Equal(t, 2, f.store.Count())

		blue := f.store.Product("v-2")
		require.NotNil(t, blue.ParentID)
		assert.Equal(t, "parent", *blue.ParentID)
		assert.Equal(t, []string{"material", "color"}, []string{blue.Attrs[0].Code, blue.Attrs[1].Code})
	})

	t.Run("nothing is written on rollback", func(t *testing.T) {
		f := newFixture(t)

		err := committer.Run(context.Background(), f.store, func(ctx context.Context, h committer.Handle) error {
			if _, err := f.manager.InsertVariations(h, "parent", services.FamilyCommon{}, []domain.VariationInput{{}}); err != nil {
				return err
			}
			return testutil.ErrInjected
		})

		assert.ErrorIs(t, err, testutil.ErrInjected)
		assert.Zero(t, f.store.Count())
		assert.Equal(t, 1, f.store.Rollbacks)
	})

	t.Run("same images mode returns no payloads", func(t *testing.T) {
		f := newFixture(t)

		var inserted *variations.Inserted
		f.run(t, func(ctx context.Context, h committer.Handle) error {
			var err error
			inserted, err = f.manager.InsertVariations(h, "parent", services.FamilyCommon{SameImages: true}, []domain.VariationInput{{}})
			return err
		})
		assert.Nil(t, inserted.Payloads)
	})
}

func TestManager_UpdateVariations(t *testing.T) {
	t.Run("patches changed attributes by code", func(t *testing.T) {
		f := newFixture(t)
		v1 := variation("v1", "p", domain.Images{})
		v1.Attrs = append(v1.Attrs, textAttr("note", "added elsewhere"))
		f.store.Seed(v1, variation("v2", "p", domain.Images{}))

		var updated []*domain.Product
		f.run(t, func(ctx context.Context, h committer.Handle) error {
			var err error
			updated, err = f.manager.UpdateVariations(ctx, h, "p",
				[]domain.VariationUpdate{{ID: "v1", BaseAttrs: domain.BaseAttrs{Name: "renamed", SKU: "sku-v1"}}},
				variations.Patch{
					Attrs:      []domain.Attr{textAttr("material", "linen")},
					ExtraAttrs: []domain.Attr{textAttr("care", "hand wash")},
				})
			return err
		})

		require.Len(t, updated, 1)
		assert.Equal(t, "v1", updated[0].ID)
		got := f.store.Product("v1")
		assert.Equal(t, "renamed", got.Name)
		require.Len(t, got.Attrs, 3)
		value, _ := got.Attrs[0].Value.AsString()
		assert.Equal(t, "linen", value)
		assert.Equal(t, "note", got.Attrs[2].Code)
		assert.Equal(t, "care", got.ExtraAttrs[0].Code)

		untouched := f.store.Product("v2")
		value, _ = untouched.Attrs[0].Value.AsString()
		assert.Equal(t, "cotton", value)
	})

	t.Run("skips products of another parent", func(t *testing.T) {
		f := newFixture(t)
		f.store.Seed(variation("v1", "other", domain.Images{}))

		var updated []*domain.Product
		f.run(t, func(ctx context.Context, h committer.Handle) error {
			var err error
			updated, err = f.manager.UpdateVariations(ctx, h, "p",
				[]domain.VariationUpdate{{ID: "v1", BaseAttrs: domain.BaseAttrs{Name: "hijacked"}}}, variations.Patch{})
			return err
		})

		assert.Empty(t, updated)
		assert.Equal(t, "v1", f.store.Product("v1").Name)
	})

	t.Run("skips variations deleted in the same unit of work", func(t *testing.T) {
		f := newFixture(t)
		f.store.Seed(variation("v1", "p", domain.Images{}), variation("v2", "p", domain.Images{}))

		var updated []*domain.Product
		f.run(t, func(ctx context.Context, h committer.Handle) error {
			deleted, err := f.manager.DeleteVariations(ctx, h, "p", []string{"v1"})
			if err != nil {
				return err
			}
			updated, err = f.manager.UpdateVariations(ctx, h, "p",
				[]domain.VariationUpdate{
					{ID: "v1", BaseAttrs: domain.BaseAttrs{Name: "gone"}},
					{ID: "v2", BaseAttrs: domain.BaseAttrs{Name: "kept"}},
				},
				variations.Patch{Deleted: deleted})
			return err
		})

		require.Len(t, updated, 1)
		assert.Equal(t, "v2", updated[0].ID)
		assert.Nil(t, f.store.Product("v1"))
		assert.Equal(t, "kept", f.store.Product("v2").Name)
	})
}

func TestManager_DeleteVariations(t *testing.T) {
	ctx := context.Background()

	t.Run("removes owned images after commit and keeps copied ones", func(t *testing.T) {
		f := newFixture(t)
		ownKey := f.naming.Key("v1", 0)
		srcKey := f.naming.Key("v3", 0)
		require.NoError(t, f.objects.Put(ctx, ownKey, []byte("x"), images.ContentType))
		require.NoError(t, f.objects.Put(ctx, srcKey, []byte("x"), images.ContentType))

		f.store.Seed(
			variation("v1", "p", domain.Images{Main: f.naming.URL(ownKey)}),
			variation("v2", "p", domain.Images{Main: f.naming.URL(srcKey), SourceProductID: strPtr("v3")}),
			variation("v3", "p", domain.Images{Main: f.naming.URL(srcKey)}),
		)

		var deleted []string
		f.run(t, func(ctx context.Context, h committer.Handle) error {
			var err error
			deleted, err = f.manager.DeleteVariations(ctx, h, "p", []string{"v1", "v2"})
			return err
		})

		assert.ElementsMatch(t, []string{"v1", "v2"}, deleted)
		assert.Nil(t, f.store.Product("v1"))
		assert.Nil(t, f.store.Product("v2"))
		assert.NotNil(t, f.store.Product("v3"))
		assert.False(t, f.objects.Has(ownKey))
		assert.True(t, f.objects.Has(srcKey))
	})

	t.Run("keeps images still copied by a remaining sibling", func(t *testing.T) {
		f := newFixture(t)
		key := f.naming.Key("v1", 0)
		require.NoError(t, f.objects.Put(ctx, key, []byte("x"), images.ContentType))
		f.store.Seed(
			variation("v1", "p", domain.Images{Main: f.naming.URL(key)}),
			variation("v2", "p", domain.Images{Main: f.naming.URL(key), SourceProductID: strPtr("v1")}),
		)

		f.run(t, func(ctx context.Context, h committer.Handle) error {
			_, err := f.manager.DeleteVariations(ctx, h, "p", []string{"v1"})
			return err
		})

		assert.True(t, f.objects.Has(key))
	})

	t.Run("storage is untouched when the commit fails", func(t *testing.T) {
		f := newFixture(t)
		key := f.naming.Key("v1", 0)
		require.NoError(t, f.objects.Put(ctx, key, []byte("x"), images.ContentType))
		f.store.Seed(variation("v1", "p", domain.Images{Main: f.naming.URL(key)}))
		f.store.CommitErr = testutil.ErrInjected

		err := committer.Run(ctx, f.store, func(ctx context.Context, h committer.Handle) error {
			_, err := f.manager.DeleteVariations(ctx, h, "p", []string{"v1"})
			return err
		})

		assert.ErrorIs(t, err, testutil.ErrInjected)
		assert.NotNil(t, f.store.Product("v1"))
		assert.True(t, f.objects.Has(key))
	})
}

func TestManager_UploadAfterCommit(t *testing.T) {
	f := newFixture(t)
	f.store.Seed(&domain.Product{ID: "p", Parent: true}, variation("v1", "p", domain.Images{}))

	f.run(t, func(ctx context.Context, h committer.Handle) error {
		f.manager.UploadAfterCommit(h, images.Family{
			ParentID:     "p",
			VariationIDs: []string{"v1"},
			SameImages:   true,
			Shared:       &domain.ImageSet{Main: testutil.JPEGDataURL(t, color.White)},
		})
		return nil
	})

	assert.Equal(t, f.naming.URL(f.naming.Key("p", 0)), f.store.Product("v1").Images.Main)
}
