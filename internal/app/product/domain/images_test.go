package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSourceRef(t *testing.T) {
	t.Run("pending resolves to the generated id", func(t *testing.T) {
		ref := Pending(1)
		idx, pending := ref.Index()
		assert.True(t, pending)
		assert.Equal(t, 1, idx)

		resolved, err := ref.Resolve([]string{"v0", "v1"})
		require.NoError(t, err)
		id, ok := resolved.ID()
		assert.True(t, ok)
		assert.Equal(t, "v1", id)
	})

	t.Run("out of range index fails", func(t *testing.T) {
		_, err := Pending(2).Resolve([]string{"v0"})
		assert.Error(t, err)
	})

	t.Run("persisted resolves to itself", func(t *testing.T) {
		resolved, err := Persisted("p1").Resolve(nil)
		require.NoError(t, err)
		id, _ := resolved.ID()
		assert.Equal(t, "p1", id)
	})

	t.Run("json integer is pending, string is persisted", func(t *testing.T) {
		var payload struct {
			A *SourceRef `json:"a"`
			B *SourceRef `json:"b"`
			C *SourceRef `json:"c"`
		}
		require.NoError(t, json.Unmarshal([]byte(`{"a":0,"b":"abc","c":null}`), &payload))

		idx, pending := payload.A.Index()
		assert.True(t, pending)
		assert.Equal(t, 0, idx)

		id, persisted := payload.B.ID()
		assert.True(t, persisted)
		assert.Equal(t, "abc", id)

		assert.Nil(t, payload.C)
	})
}

func TestImages(t *testing.T) {
	src := "p1"
	images := Images{
		Main:            "https://cdn/products/a_0.jpg",
		SecondaryImages: []string{"https://cdn/products/a_1.jpg"},
		SourceProductID: &src,
	}

	clone := images.Clone()
	clone.SecondaryImages[0] = "changed"
	*clone.SourceProductID = "other"
	assert.Equal(t, "https://cdn/products/a_1.jpg", images.SecondaryImages[0])
	assert.Equal(t, "p1", *images.SourceProductID)

	assert.Equal(t, []string{"https://cdn/products/a_0.jpg", "https://cdn/products/a_1.jpg"}, images.URLs())
	assert.False(t, images.OwnsStorage())

	t.Run("nil secondary images encode as null", func(t *testing.T) {
		b, err := json.Marshal(Images{Main: "m"})
		require.NoError(t, err)
		assert.JSONEq(t, `{"main":"m","secondaryImages":null,"sourceProductId":null}`, string(b))
	})
}

func TestProduct_ImageOwnerID(t *testing.T) {
	parent := "parent-1"
	source := "sibling-1"

	assert.Equal(t, "self", (&Product{ID: "self"}).ImageOwnerID())
	assert.Equal(t, parent, (&Product{ID: "self", ParentID: &parent, SameImages: true}).ImageOwnerID())
	assert.Equal(t, source, (&Product{ID: "self", ParentID: &parent, Images: Images{SourceProductID: &source}}).ImageOwnerID())
}

func TestProduct_SettersTrackChanges(t *testing.T) {
	p := &Product{ID: "p", Parent: true}
	p.SetForSale(true)
	p.SetIsFilterable(true)
	assert.False(t, p.ForSale)
	assert.False(t, p.Changes().HasChanges(), "parent is never for sale or filterable")

	p.SetSearchTerms([]string{"chair"})
	p.SetImages(Images{Main: "m"})
	assert.Equal(t, []string{FieldImages, FieldSearchTerms}, p.Changes().DirtyFields())
}
