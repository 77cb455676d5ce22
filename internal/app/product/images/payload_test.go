package images_test

import (
	"encoding/base64"
	"image/color"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/light-bringer/catalog-admin-service/internal/app/product/domain"
	"github.com/light-bringer/catalog-admin-service/internal/app/product/images"
	"github.com/light-bringer/catalog-admin-service/tests/testutil"
)

func TestDecoder(t *testing.T) {
	valid := testutil.JPEGDataURL(t, color.White)

	tests := []struct {
		name     string
		maxBytes int64
		payload  string
		want     []string
	}{
		{name: "valid jpeg", payload: valid},
		{name: "not a data url", payload: "hello", want: []string{"Image must be a base64 data URL"}},
		{name: "png rejected", payload: testutil.PNGDataURL(t), want: []string{"Only image/jpeg type allowed"}},
		{name: "broken base64", payload: "data:image/jpeg;base64,%%%", want: []string{"Image is not valid base64"}},
		{name: "too large", maxBytes: 8, payload: valid, want: []string{"The file size exceeds 8 bytes"}},
		{
			name:    "not an image",
			payload: "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString([]byte("plain text")),
			want:    []string{"Image cannot be decoded"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := images.NewDecoder(tt.maxBytes)
			assert.Equal(t, tt.want, d.Validate(tt.payload))
		})
	}

	t.Run("decode wraps ErrInvalidImage", func(t *testing.T) {
		_, err := images.NewDecoder(0).Decode("hello")
		require.ErrorIs(t, err, domain.ErrInvalidImage)
		assert.True(t, strings.Contains(err.Error(), "base64 data URL"))
	})

	t.Run("decode returns the image bytes", func(t *testing.T) {
		data, err := images.NewDecoder(0).Decode(valid)
		require.NoError(t, err)
		assert.NotEmpty(t, data)
	})

	t.Run("default limit is one megabyte", func(t *testing.T) {
		assert.Equal(t, int64(images.DefaultMaxBytes), images.NewDecoder(-1).MaxBytes)
	})
}

func TestNaming(t *testing.T) {
	n := images.NewNaming("https://cdn.test/")

	t.Run("key and url", func(t *testing.T) {
		key := n.Key("abc", 2)
		assert.Equal(t, "products/abc_2.jpg", key)
		assert.Equal(t, "https://cdn.test/products/abc_2.jpg", n.URL(key))
	})

	t.Run("key from url", func(t *testing.T) {
		key, err := n.KeyFromURL("https://cdn.test/products/abc_0.jpg")
		require.NoError(t, err)
		assert.Equal(t, "products/abc_0.jpg", key)

		key, err = n.KeyFromURL("https://storage.example.com/products/abc_1.jpg")
		require.NoError(t, err)
		assert.Equal(t, "products/abc_1.jpg", key)

		_, err = n.KeyFromURL("https://storage.example.com")
		assert.Error(t, err)
	})

	t.Run("number", func(t *testing.T) {
		got, err := n.Number("https://cdn.test/products/4f1c-77_12.jpg")
		require.NoError(t, err)
		assert.Equal(t, 12, got)

		_, err = n.Number("https://cdn.test/products/plain.jpg")
		assert.Error(t, err)
	})
}
