package http_test

import (
	"context"
	"encoding/json"
	"image/color"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/light-bringer/catalog-admin-service/internal/app/product/contracts"
	"github.com/light-bringer/catalog-admin-service/internal/app/product/domain"
	"github.com/light-bringer/catalog-admin-service/internal/app/product/queries/get_product"
	"github.com/light-bringer/catalog-admin-service/internal/app/product/queries/list_products"
	"github.com/light-bringer/catalog-admin-service/internal/app/product/queries/list_replication"
	"github.com/light-bringer/catalog-admin-service/internal/app/product/removal"
	"github.com/light-bringer/catalog-admin-service/internal/app/product/usecases/create_product"
	"github.com/light-bringer/catalog-admin-service/internal/app/product/usecases/delete_product"
	"github.com/light-bringer/catalog-admin-service/internal/app/product/usecases/delete_products"
	"github.com/light-bringer/catalog-admin-service/internal/app/product/usecases/update_product"
	transport "github.com/light-bringer/catalog-admin-service/internal/transport/http"
	"github.com/light-bringer/catalog-admin-service/tests/testutil"
)

// readModel serves canned read-side results.
type readModel struct {
	detail  *contracts.ProductDetail
	list    *contracts.ListResult
	entries []*contracts.ReplicationEntry

	lastList        *contracts.ListFilter
	lastReplication *contracts.ReplicationFilter
}

func (m *readModel) GetProduct(_ context.Context, productID string) (*contracts.ProductDetail, error) {
	if m.detail == nil || m.detail.Product.ProductID != productID {
		return nil, domain.ErrProductNotFound
	}
	return m.detail, nil
}

func (m *readModel) ListProducts(_ context.Context, filter *contracts.ListFilter) (*contracts.ListResult, error) {
	m.lastList = filter
	return m.list, nil
}

func (m *readModel) ListReplication(_ context.Context, filter *contracts.ReplicationFilter) ([]*contracts.ReplicationEntry, error) {
	m.lastReplication = filter
	return m.entries, nil
}

type server struct {
	h    *testutil.Harness
	read *readModel
	srv  *httptest.Server
}

func newServer(t *testing.T) *server {
	t.Helper()
	h := testutil.NewHarness(t, "shirts")
	logger := zaptest.NewLogger(t)
	read := &readModel{list: &contracts.ListResult{}}

	remover := removal.NewRemover(h.Store, h.Images, logger)
	handler := transport.NewProductHandler(
		create_product.NewInteractor(h.Store, h.Validator, h.Builder, h.Variations, h.Images, h.Replicator, h.Projector, h.Store, h.Clock, logger),
		update_product.NewInteractor(h.Store, h.Validator, h.Variations, h.Images, h.Replicator, h.Projector, h.Store, logger),
		delete_product.NewInteractor(h.Store, remover, h.Replicator, h.Store, logger),
		delete_products.NewInteractor(h.Store, remover, h.Replicator, h.Store, logger),
		get_product.NewQuery(read),
		list_products.NewQuery(read),
		list_replication.NewQuery(read),
		logger,
	)

	srv := httptest.NewServer(transport.NewRouter(handler, logger))
	t.Cleanup(srv.Close)
	return &server{h: h, read: read, srv: srv}
}

func (s *server) do(t *testing.T, method, path, body string) (int, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, s.srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func createBody(t *testing.T, sku string) string {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"category": "shirts",
		"base_attrs": map[string]any{
			"name": "Tee", "price": "25", "tax_rate": "0.2", "stock": 3, "max_order_qty": 1, "sku": sku,
		},
		"attrs": []map[string]any{
			{"code": "material", "name": "Material", "type": "string", "value": "cotton", "optional": true},
		},
		"images": map[string]any{"main": testutil.JPEGDataURL(t, color.White)},
	})
	require.NoError(t, err)
	return string(body)
}

func TestProductHandler_Create(t *testing.T) {
	t.Run("creates a standalone product", func(t *testing.T) {
		s := newServer(t)

		status, body := s.do(t, http.MethodPost, "/admin/products", createBody(t, "TEE-1"))

		assert.Equal(t, http.StatusCreated, status)
		assert.Equal(t, "id-1", body["_id"])
		assert.NotNil(t, s.h.Store.Product("id-1"))
	})

	t.Run("validation errors are returned as detail", func(t *testing.T) {
		s := newServer(t)
		s.h.Store.Seed(&domain.Product{ID: "old", BaseAttrs: domain.BaseAttrs{SKU: "TEE-1"}})

		status, body := s.do(t, http.MethodPost, "/admin/products", createBody(t, "TEE-1"))

		assert.Equal(t, http.StatusBadRequest, status)
		detail, ok := body["detail"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "SKUs: TEE-1 already exist!", detail["existed_skus"])
	})

	t.Run("malformed json", func(t *testing.T) {
		s := newServer(t)

		status, body := s.do(t, http.MethodPost, "/admin/products", "{")

		assert.Equal(t, http.StatusBadRequest, status)
		assert.Contains(t, body["detail"], "invalid JSON payload")
	})

	t.Run("failed transaction is retryable", func(t *testing.T) {
		s := newServer(t)
		s.h.Store.CommitErr = testutil.ErrInjected

		status, _ := s.do(t, http.MethodPost, "/admin/products", createBody(t, "TEE-1"))

		assert.Equal(t, http.StatusServiceUnavailable, status)
	})
}

func TestProductHandler_UpdateAndDelete(t *testing.T) {
	t.Run("update of an unknown product", func(t *testing.T) {
		s := newServer(t)

		status, _ := s.do(t, http.MethodPut, "/admin/products/missing", `{"base_attrs":{"name":"x","price":"1","tax_rate":"0"}}`)

		assert.Equal(t, http.StatusNotFound, status)
	})

	t.Run("update switches for_sale", func(t *testing.T) {
		s := newServer(t)
		s.h.Store.Seed(&domain.Product{ID: "s", ForSale: true})

		status, body := s.do(t, http.MethodPut, "/admin/products/s", `{"base_attrs":{"name":"Tee","price":"1","tax_rate":"0","sku":"S"},"for_sale":false}`)

		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, "s", body["_id"])
		assert.False(t, s.h.Store.Product("s").ForSale)
	})

	t.Run("delete one", func(t *testing.T) {
		s := newServer(t)
		s.h.Store.Seed(&domain.Product{ID: "s"})

		status, body := s.do(t, http.MethodDelete, "/admin/products/s", "")

		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, []any{"s"}, body["deleted_ids"])
		assert.Zero(t, s.h.Store.Count())
	})

	t.Run("bulk delete needs ids", func(t *testing.T) {
		s := newServer(t)

		status, body := s.do(t, http.MethodDelete, "/admin/products", `{"product_ids":[]}`)

		assert.Equal(t, http.StatusBadRequest, status)
		detail, ok := body["detail"].(map[string]any)
		require.True(t, ok)
		assert.Contains(t, detail, "product_ids")
	})

	t.Run("bulk delete", func(t *testing.T) {
		s := newServer(t)
		s.h.Store.Seed(&domain.Product{ID: "a"}, &domain.Product{ID: "b"})

		status, body := s.do(t, http.MethodDelete, "/admin/products", `{"product_ids":["a","b","gone"]}`)

		assert.Equal(t, http.StatusOK, status)
		assert.ElementsMatch(t, []any{"a", "b"}, body["deleted_ids"])
	})
}

func TestProductHandler_Reads(t *testing.T) {
	t.Run("get product", func(t *testing.T) {
		s := newServer(t)
		s.read.detail = &contracts.ProductDetail{Product: &contracts.ProductDTO{ProductID: "p", Parent: true}}

		status, body := s.do(t, http.MethodGet, "/admin/products/p", "")

		require.Equal(t, http.StatusOK, status)
		product, ok := body["product"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "p", product["_id"])
	})

	t.Run("get unknown product", func(t *testing.T) {
		s := newServer(t)

		status, body := s.do(t, http.MethodGet, "/admin/products/nope", "")

		assert.Equal(t, http.StatusNotFound, status)
		assert.Equal(t, "product not found", body["detail"])
	})

	t.Run("list clamps the page size", func(t *testing.T) {
		s := newServer(t)

		status, _ := s.do(t, http.MethodGet, "/admin/products?category=shirts&page_size=500&page_token=50", "")

		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, &contracts.ListFilter{Category: "shirts", PageSize: 100, PageToken: "50"}, s.read.lastList)
	})

	t.Run("list rejects a bad page size", func(t *testing.T) {
		s := newServer(t)

		status, _ := s.do(t, http.MethodGet, "/admin/products?page_size=many", "")

		assert.Equal(t, http.StatusBadRequest, status)
	})

	t.Run("replication entries", func(t *testing.T) {
		s := newServer(t)
		created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
		s.read.entries = []*contracts.ReplicationEntry{{
			LogID:       "log-1",
			RoutingKey:  "products.crud.delete.one",
			AggregateID: "p",
			Payload:     []byte(`{"_id":"p"}`),
			Status:      "failed",
			Attempts:    3,
			Error:       "broker down",
			CreatedAt:   created,
		}}

		status, body := s.do(t, http.MethodGet, "/admin/replication?status=failed", "")

		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, "failed", s.read.lastReplication.Status)
		assert.Equal(t, 50, s.read.lastReplication.Limit)
		entries, ok := body["entries"].([]any)
		require.True(t, ok)
		require.Len(t, entries, 1)
		entry := entries[0].(map[string]any)
		assert.Equal(t, "products.crud.delete.one", entry["routing_key"])
		assert.Equal(t, map[string]any{"_id": "p"}, entry["payload"])
		assert.Equal(t, "2024-05-01T12:00:00Z", entry["created_at"])
	})
}

func TestRouter_Health(t *testing.T) {
	s := newServer(t)

	status, body := s.do(t, http.MethodGet, "/healthz", "")

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
}
