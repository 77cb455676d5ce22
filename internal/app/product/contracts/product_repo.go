package contracts

import (
	"context"

	"cloud.google.com/go/spanner"

	"github.com/light-bringer/catalog-admin-service/internal/app/product/domain"
	"github.com/light-bringer/catalog-admin-service/internal/pkg/committer"
)

// ProductRepository defines product persistence.
// Repositories return mutations, they don't apply them (Golden Mutation Pattern).
//
// Read methods take a committer.Reader so they can run inside a unit of
// work; a nil reader reads from a fresh single-use snapshot.
type ProductRepository interface {
	// InsertMut creates a mutation inserting a new product document.
	InsertMut(product *domain.Product) (*spanner.Mutation, error)

	// UpdateMut creates a mutation for the dirty fields of product.
	// Returns nil when nothing changed.
	UpdateMut(product *domain.Product) (*spanner.Mutation, error)

	// DeleteMut creates a mutation deleting one document.
	DeleteMut(productID string) *spanner.Mutation

	// Get reads one document. Missing documents yield domain.ErrProductNotFound.
	Get(ctx context.Context, rd committer.Reader, productID string) (*domain.Product, error)

	// GetMany reads the existing documents among ids, in no particular order.
	GetMany(ctx context.Context, rd committer.Reader, ids []string) ([]*domain.Product, error)

	// ListVariations reads every variation of parentID.
	ListVariations(ctx context.Context, rd committer.Reader, parentID string) ([]*domain.Product, error)

	// ExistingSKUs returns the subset of skus already used by any document.
	ExistingSKUs(ctx context.Context, skus []string) ([]string, error)
}

// CategoryRepository checks categories owned by another service.
type CategoryRepository interface {
	Exists(ctx context.Context, categoryID string) (bool, error)
}
