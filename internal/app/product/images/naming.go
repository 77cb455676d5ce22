package images

import (
	"fmt"
	"net/url"
	"path"
	"strconv"
	"strings"
)

// ContentType is the media type of every stored product image.
const ContentType = "image/jpeg"

const (
	keyPrefix    = "products/"
	keyExtension = ".jpg"
	mainNumber   = 0
)

// Naming maps product images to storage keys and public URLs.
// Keys look like products/{productID}_{n}.jpg; n is 0 for the main image.
type Naming struct {
	BaseURL string
}

// NewNaming creates a Naming rooted at baseURL.
func NewNaming(baseURL string) Naming {
	return Naming{BaseURL: strings.TrimRight(baseURL, "/")}
}

// Key returns the storage key of image n of productID.
func (n Naming) Key(productID string, number int) string {
	return keyPrefix + productID + "_" + strconv.Itoa(number) + keyExtension
}

// URL returns the public URL of key.
func (n Naming) URL(key string) string {
	return n.BaseURL + "/" + key
}

// KeyFromURL extracts the storage key from an image URL.
func (n Naming) KeyFromURL(raw string) (string, error) {
	if n.BaseURL != "" && strings.HasPrefix(raw, n.BaseURL+"/") {
		return strings.TrimPrefix(raw, n.BaseURL+"/"), nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid image url %q: %w", raw, err)
	}
	key := strings.TrimPrefix(u.Path, "/")
	if key == "" {
		return "", fmt.Errorf("image url %q has no path", raw)
	}
	return key, nil
}

// Number returns the numeric suffix of an image URL.
func (n Naming) Number(raw string) (int, error) {
	key, err := n.KeyFromURL(raw)
	if err != nil {
		return 0, err
	}
	name := strings.TrimSuffix(path.Base(key), path.Ext(key))
	idx := strings.LastIndex(name, "_")
	if idx < 0 {
		return 0, fmt.Errorf("image url %q has no number", raw)
	}
	number, err := strconv.Atoi(name[idx+1:])
	if err != nil {
		return 0, fmt.Errorf("image url %q has no number: %w", raw, err)
	}
	return number, nil
}
