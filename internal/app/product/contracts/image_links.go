package contracts

import (
	"context"

	"github.com/light-bringer/catalog-admin-service/internal/app/product/domain"
	"github.com/light-bringer/catalog-admin-service/internal/pkg/committer"
)

// LinkUpdate sets the stored image links of one product.
type LinkUpdate struct {
	ProductID string
	Images    domain.Images
}

// ImageLinkStore persists image links after the primary write committed.
type ImageLinkStore interface {
	// GetImages reads the current links of one product.
	GetImages(ctx context.Context, productID string) (domain.Images, error)

	// UpdateLinksOne stores images on productID. With updateLinked, every
	// other product whose image source is productID gets the same main and
	// secondary images; its source stays as is. Both writes are atomic.
	UpdateLinksOne(ctx context.Context, productID string, images domain.Images, updateLinked bool) error

	// UpdateLinksMany applies updates as independent writes. Applied
	// entries stay applied when others fail.
	UpdateLinksMany(ctx context.Context, updates []LinkUpdate) (committer.BatchResult, error)
}
