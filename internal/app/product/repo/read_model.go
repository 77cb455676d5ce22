package repo

import (
	"context"
	"fmt"
	"strconv"

	"cloud.google.com/go/spanner"

	"github.com/light-bringer/catalog-admin-service/internal/app/product/contracts"
	"github.com/light-bringer/catalog-admin-service/internal/app/product/domain"
	"github.com/light-bringer/catalog-admin-service/internal/models/m_product"
	"github.com/light-bringer/catalog-admin-service/internal/models/m_replication_log"
	"github.com/light-bringer/catalog-admin-service/internal/pkg/query"
)

const (
	defaultPageSize = 50
	maxPageSize     = 100
)

// ReadModelImpl implements ReadModel for Spanner.
type ReadModelImpl struct {
	client   *spanner.Client
	products *ProductRepo
}

// NewReadModel creates a new ReadModel implementation.
func NewReadModel(client *spanner.Client) *ReadModelImpl {
	return &ReadModelImpl{client: client, products: NewProductRepo(client)}
}

var _ contracts.ReadModel = (*ReadModelImpl)(nil)

// GetProduct reads a product and its variations from one snapshot.
func (rm *ReadModelImpl) GetProduct(ctx context.Context, productID string) (*contracts.ProductDetail, error) {
	snapshot := rm.client.ReadOnlyTransaction()
	defer snapshot.Close()

	p, err := rm.products.Get(ctx, snapshot, productID)
	if err != nil {
		return nil, err
	}

	detail := &contracts.ProductDetail{Product: ToDTO(p), Variations: []*contracts.ProductDTO{}}
	if !p.Parent {
		return detail, nil
	}

	variations, err := rm.products.ListVariations(ctx, snapshot, p.ID)
	if err != nil {
		return nil, err
	}
	for _, v := range variations {
		detail.Variations = append(detail.Variations, ToDTO(v))
	}
	return detail, nil
}

// ListProducts lists parents and standalone products, newest first.
// The page token is the offset of the next page.
func (rm *ReadModelImpl) ListProducts(ctx context.Context, filter *contracts.ListFilter) (*contracts.ListResult, error) {
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	var offset int64
	if filter.PageToken != "" {
		parsed, err := strconv.ParseInt(filter.PageToken, 10, 64)
		if err != nil || parsed < 0 {
			return nil, fmt.Errorf("invalid page token %q", filter.PageToken)
		}
		offset = parsed
	}

	base := query.From(m_product.TableName).Where(query.IsNull(m_product.ParentID))
	if filter.Category != "" {
		base = base.Where(query.Eq(m_product.Category, filter.Category))
	}

	snapshot := rm.client.ReadOnlyTransaction()
	defer snapshot.Close()

	total, err := countRows(ctx, snapshot, base.Count().Build())
	if err != nil {
		return nil, err
	}

	stmt := base.Select(m_product.Columns...).
		OrderBy(m_product.CreatedAt, query.Desc).
		OrderBy(m_product.ProductID, query.Asc).
		Limit(int64(pageSize)).
		Offset(offset).
		Build()
	products, err := rm.products.queryProducts(ctx, snapshot, stmt)
	if err != nil {
		return nil, err
	}

	result := &contracts.ListResult{Products: make([]*contracts.ProductDTO, 0, len(products)), TotalCount: total}
	for _, p := range products {
		result.Products = append(result.Products, ToDTO(p))
	}
	if next := offset + int64(len(products)); next < total {
		result.NextPageToken = strconv.FormatInt(next, 10)
	}
	return result, nil
}

// ListReplication lists replication log entries, newest first.
func (rm *ReadModelImpl) ListReplication(ctx context.Context, filter *contracts.ReplicationFilter) ([]*contracts.ReplicationEntry, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	b := query.From(m_replication_log.TableName).Select(m_replication_log.Columns...)
	if filter.Status != "" {
		b = b.Where(query.Eq(m_replication_log.Status, filter.Status))
	}
	if filter.AggregateID != "" {
		b = b.Where(query.Eq(m_replication_log.AggregateID, filter.AggregateID))
	}
	stmt := b.OrderBy(m_replication_log.CreatedAt, query.Desc).Limit(int64(limit)).Build()

	return queryReplication(ctx, rm.client.Single(), stmt)
}

func countRows(ctx context.Context, snapshot *spanner.ReadOnlyTransaction, stmt spanner.Statement) (int64, error) {
	iter := snapshot.Query(ctx, stmt)
	defer iter.Stop()

	row, err := iter.Next()
	if err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	var count int64
	if err := row.Columns(&count); err != nil {
		return 0, fmt.Errorf("failed to parse count: %w", err)
	}
	return count, nil
}

// ToDTO converts a domain Product to its admin view.
func ToDTO(p *domain.Product) *contracts.ProductDTO {
	dto := &contracts.ProductDTO{
		ProductID:      p.ID,
		Parent:         p.Parent,
		ParentID:       p.ParentID,
		Category:       p.Category,
		Name:           p.Name,
		Price:          p.Price.String(),
		TaxRate:        p.TaxRate.String(),
		Stock:          p.Stock,
		MaxOrderQty:    p.MaxOrderQty,
		SKU:            p.SKU,
		ExternalID:     p.ExternalID,
		ForSale:        p.ForSale,
		IsFilterable:   p.IsFilterable,
		SameImages:     p.SameImages,
		SearchTerms:    p.SearchTerms,
		Attrs:          p.Attrs,
		ExtraAttrs:     p.ExtraAttrs,
		VariationTheme: p.VariationTheme,
		Images:         p.Images,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
	if p.DiscountRate.Valid {
		rate := p.DiscountRate.Decimal.String()
		dto.DiscountRate = &rate
	}
	if dto.SearchTerms == nil {
		dto.SearchTerms = []string{}
	}
	return dto
}
