package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"cloud.google.com/go/spanner"
	"github.com/shopspring/decimal"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"

	"github.com/light-bringer/catalog-admin-service/internal/app/product/contracts"
	"github.com/light-bringer/catalog-admin-service/internal/app/product/domain"
	"github.com/light-bringer/catalog-admin-service/internal/models/m_category"
	"github.com/light-bringer/catalog-admin-service/internal/models/m_product"
	"github.com/light-bringer/catalog-admin-service/internal/pkg/committer"
	"github.com/light-bringer/catalog-admin-service/internal/pkg/query"
)

// numericScale is the number of fractional digits of a Spanner NUMERIC.
const numericScale = 9

// ProductRepo implements ProductRepository for Spanner.
type ProductRepo struct {
	client *spanner.Client
	model  *m_product.Model
}

// NewProductRepo creates a new ProductRepo.
func NewProductRepo(client *spanner.Client) *ProductRepo {
	return &ProductRepo{
		client: client,
		model:  m_product.NewModel(),
	}
}

var _ contracts.ProductRepository = (*ProductRepo)(nil)

// InsertMut creates a mutation for inserting a new product.
func (r *ProductRepo) InsertMut(product *domain.Product) (*spanner.Mutation, error) {
	data, err := domainToData(product)
	if err != nil {
		return nil, err
	}
	return r.model.InsertMut(data), nil
}

// UpdateMut creates a mutation for updating a product (only dirty fields).
func (r *ProductRepo) UpdateMut(product *domain.Product) (*spanner.Mutation, error) {
	changes := product.Changes()
	if !changes.HasChanges() {
		return nil, nil
	}

	updates := make(map[string]interface{})

	if changes.Dirty(domain.FieldBaseAttrs) {
		for col, val := range baseAttrColumns(product.BaseAttrs) {
			updates[col] = val
		}
	}

	if changes.Dirty(domain.FieldAttrs) {
		updates[m_product.Attrs] = jsonColumn(product.Attrs)
	}

	if changes.Dirty(domain.FieldExtraAttrs) {
		updates[m_product.ExtraAttrs] = jsonColumn(product.ExtraAttrs)
	}

	if changes.Dirty(domain.FieldSearchTerms) {
		updates[m_product.SearchTerms] = product.SearchTerms
	}

	if changes.Dirty(domain.FieldForSale) {
		updates[m_product.ForSale] = product.ForSale
	}

	if changes.Dirty(domain.FieldIsFilterable) {
		updates[m_product.IsFilterable] = product.IsFilterable
	}

	if changes.Dirty(domain.FieldImages) {
		main, secondary, source := imageColumns(product.Images)
		updates[m_product.ImageMain] = main
		updates[m_product.ImageSecondary] = secondary
		updates[m_product.ImageSourceID] = source
	}

	return r.model.UpdateMut(product.ID, updates), nil
}

// DeleteMut creates a mutation deleting one document.
func (r *ProductRepo) DeleteMut(productID string) *spanner.Mutation {
	return r.model.DeleteMut(productID)
}

// GetByID reads a product from a single-use snapshot.
func (r *ProductRepo) GetByID(ctx context.Context, productID string) (*domain.Product, error) {
	return r.Get(ctx, nil, productID)
}

// Get reads one product.
func (r *ProductRepo) Get(ctx context.Context, rd committer.Reader, productID string) (*domain.Product, error) {
	row, err := r.reader(rd).ReadRow(ctx, m_product.TableName, spanner.Key{productID}, m_product.Columns)
	if err != nil {
		if spanner.ErrCode(err) == codes.NotFound {
			return nil, domain.ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to read product: %w", err)
	}

	var data m_product.Data
	if err := row.ToStruct(&data); err != nil {
		return nil, fmt.Errorf("failed to parse product: %w", err)
	}
	return dataToDomain(&data)
}

// GetMany reads every existing product among ids.
func (r *ProductRepo) GetMany(ctx context.Context, rd committer.Reader, ids []string) ([]*domain.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	stmt := query.From(m_product.TableName).
		Select(m_product.Columns...).
		Where(query.In(m_product.ProductID, ids)).
		Build()
	return r.queryProducts(ctx, rd, stmt)
}

// ListVariations reads every variation of parentID, oldest first.
func (r *ProductRepo) ListVariations(ctx context.Context, rd committer.Reader, parentID string) ([]*domain.Product, error) {
	stmt := query.From(m_product.TableName).
		Select(m_product.Columns...).
		Where(query.Eq(m_product.ParentID, parentID)).
		OrderBy(m_product.CreatedAt, query.Asc).
		OrderBy(m_product.ProductID, query.Asc).
		Build()
	return r.queryProducts(ctx, rd, stmt)
}

// ExistingSKUs returns the subset of skus already stored.
func (r *ProductRepo) ExistingSKUs(ctx context.Context, skus []string) ([]string, error) {
	if len(skus) == 0 {
		return nil, nil
	}
	stmt := query.From(m_product.TableName).
		Select("DISTINCT " + m_product.SKU).
		Where(query.In(m_product.SKU, skus)).
		Build()

	iter := r.client.Single().Query(ctx, stmt)
	defer iter.Stop()

	var existing []string
	for {
		row, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to query skus: %w", err)
		}
		var sku string
		if err := row.Columns(&sku); err != nil {
			return nil, fmt.Errorf("failed to parse sku: %w", err)
		}
		existing = append(existing, sku)
	}
	return existing, nil
}

func (r *ProductRepo) reader(rd committer.Reader) committer.Reader {
	if rd != nil {
		return rd
	}
	return r.client.Single()
}

func (r *ProductRepo) queryProducts(ctx context.Context, rd committer.Reader, stmt spanner.Statement) ([]*domain.Product, error) {
	iter := r.reader(rd).Query(ctx, stmt)
	defer iter.Stop()

	var products []*domain.Product
	for {
		row, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate products: %w", err)
		}

		var data m_product.Data
		if err := row.ToStruct(&data); err != nil {
			return nil, fmt.Errorf("failed to parse product: %w", err)
		}
		p, err := dataToDomain(&data)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, nil
}

// CategoryRepo implements CategoryRepository for Spanner.
type CategoryRepo struct {
	client *spanner.Client
}

// NewCategoryRepo creates a new CategoryRepo.
func NewCategoryRepo(client *spanner.Client) *CategoryRepo {
	return &CategoryRepo{client: client}
}

// Exists checks if a category exists.
func (r *CategoryRepo) Exists(ctx context.Context, categoryID string) (bool, error) {
	_, err := r.client.Single().ReadRow(ctx, m_category.TableName, spanner.Key{categoryID}, []string{m_category.CategoryID})
	if err != nil {
		if spanner.ErrCode(err) == codes.NotFound {
			return false, nil
		}
		return false, fmt.Errorf("failed to check category existence: %w", err)
	}
	return true, nil
}

func baseAttrColumns(base domain.BaseAttrs) map[string]interface{} {
	return map[string]interface{}{
		m_product.Name:         base.Name,
		m_product.Price:        *base.Price.Rat(),
		m_product.DiscountRate: nullNumeric(base.DiscountRate),
		m_product.TaxRate:      *base.TaxRate.Rat(),
		m_product.Stock:        base.Stock,
		m_product.MaxOrderQty:  base.MaxOrderQty,
		m_product.SKU:          base.SKU,
		m_product.ExternalID:   nullString(base.ExternalID),
	}
}

// domainToData converts a domain Product to database Data.
func domainToData(p *domain.Product) (*m_product.Data, error) {
	if p.ID == "" {
		return nil, fmt.Errorf("product id is required")
	}
	main, secondary, source := imageColumns(p.Images)
	data := &m_product.Data{
		ProductID:      p.ID,
		Parent:         p.Parent,
		ParentID:       nullString(p.ParentID),
		Category:       p.Category,
		Name:           p.Name,
		Price:          *p.Price.Rat(),
		DiscountRate:   nullNumeric(p.DiscountRate),
		TaxRate:        *p.TaxRate.Rat(),
		Stock:          p.Stock,
		MaxOrderQty:    p.MaxOrderQty,
		SKU:            p.SKU,
		ExternalID:     nullString(p.ExternalID),
		ForSale:        p.ForSale,
		IsFilterable:   p.IsFilterable,
		SameImages:     p.SameImages,
		SearchTerms:    p.SearchTerms,
		Attrs:          jsonColumn(p.Attrs),
		ExtraAttrs:     jsonColumn(p.ExtraAttrs),
		ImageMain:      main,
		ImageSecondary: secondary,
		ImageSourceID:  source,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
	if p.VariationTheme != nil {
		data.VariationTheme = spanner.NullJSON{Value: p.VariationTheme, Valid: true}
	}
	return data, nil
}

// dataToDomain converts database Data to a domain Product.
func dataToDomain(data *m_product.Data) (*domain.Product, error) {
	p := &domain.Product{
		ID:           data.ProductID,
		Parent:       data.Parent,
		ParentID:     stringPtr(data.ParentID),
		Category:     data.Category,
		ForSale:      data.ForSale,
		IsFilterable: data.IsFilterable,
		SameImages:   data.SameImages,
		SearchTerms:  data.SearchTerms,
		CreatedAt:    data.CreatedAt,
		UpdatedAt:    data.UpdatedAt,
		BaseAttrs: domain.BaseAttrs{
			Name:        data.Name,
			Price:       decimal.NewFromBigRat(&data.Price, numericScale),
			TaxRate:     decimal.NewFromBigRat(&data.TaxRate, numericScale),
			Stock:       data.Stock,
			MaxOrderQty: data.MaxOrderQty,
			SKU:         data.SKU,
			ExternalID:  stringPtr(data.ExternalID),
		},
		Images: domain.Images{
			Main:            data.ImageMain.StringVal,
			SourceProductID: stringPtr(data.ImageSourceID),
		},
	}
	if data.DiscountRate.Valid {
		p.DiscountRate = decimal.NewNullDecimal(decimal.NewFromBigRat(&data.DiscountRate.Numeric, numericScale))
	}
	if len(data.ImageSecondary) > 0 {
		p.Images.SecondaryImages = data.ImageSecondary
	}

	if err := decodeJSONColumn(data.Attrs, &p.Attrs); err != nil {
		return nil, fmt.Errorf("invalid attrs of product %s: %w", data.ProductID, err)
	}
	if err := decodeJSONColumn(data.ExtraAttrs, &p.ExtraAttrs); err != nil {
		return nil, fmt.Errorf("invalid extra_attrs of product %s: %w", data.ProductID, err)
	}
	if data.VariationTheme.Valid {
		var theme domain.VariationTheme
		if err := decodeJSONColumn(data.VariationTheme, &theme); err != nil {
			return nil, fmt.Errorf("invalid variation_theme of product %s: %w", data.ProductID, err)
		}
		p.VariationTheme = &theme
	}
	return p, nil
}

func imageColumns(images domain.Images) (spanner.NullString, []string, spanner.NullString) {
	main := spanner.NullString{StringVal: images.Main, Valid: images.Main != ""}
	var secondary []string
	if len(images.SecondaryImages) > 0 {
		secondary = images.SecondaryImages
	}
	return main, secondary, nullString(images.SourceProductID)
}

func jsonColumn[T any](v []T) spanner.NullJSON {
	if v == nil {
		v = []T{}
	}
	return spanner.NullJSON{Value: v, Valid: true}
}

// decodeJSONColumn re-encodes the generic value Spanner decoded and unmarshals
// it into dst. Numbers survive as json.Number, see platform/spannerdb.
func decodeJSONColumn(col spanner.NullJSON, dst any) error {
	if !col.Valid || col.Value == nil {
		return nil
	}
	raw, err := json.Marshal(col.Value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}

func nullString(s *string) spanner.NullString {
	if s == nil {
		return spanner.NullString{}
	}
	return spanner.NullString{StringVal: *s, Valid: true}
}

func stringPtr(s spanner.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.StringVal
	return &v
}

func nullNumeric(d decimal.NullDecimal) spanner.NullNumeric {
	if !d.Valid {
		return spanner.NullNumeric{}
	}
	return spanner.NullNumeric{Numeric: *d.Decimal.Rat(), Valid: true}
}
