package list_products

import (
	"context"

	"github.com/light-bringer/catalog-admin-service/internal/app/product/contracts"
)

const (
	defaultPageSize = 50
	maxPageSize     = 100
)

// Request contains filtering and pagination parameters.
type Request struct {
	Category  string
	PageSize  int
	PageToken string
}

// Query handles the list products query use case.
type Query struct {
	readModel contracts.ReadModel
}

// NewQuery creates a new list products query.
func NewQuery(readModel contracts.ReadModel) *Query {
	return &Query{
		readModel: readModel,
	}
}

// Execute retrieves a page of parents and standalone products.
func (q *Query) Execute(ctx context.Context, req *Request) (*contracts.ListResult, error) {
	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	filter := &contracts.ListFilter{
		Category:  req.Category,
		PageSize:  pageSize,
		PageToken: req.PageToken,
	}

	return q.readModel.ListProducts(ctx, filter)
}
