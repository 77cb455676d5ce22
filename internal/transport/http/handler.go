// Package http exposes the admin product API over HTTP.
package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/light-bringer/catalog-admin-service/internal/app/product/domain"
	"github.com/light-bringer/catalog-admin-service/internal/app/product/queries/get_product"
	"github.com/light-bringer/catalog-admin-service/internal/app/product/queries/list_products"
	"github.com/light-bringer/catalog-admin-service/internal/app/product/queries/list_replication"
	"github.com/light-bringer/catalog-admin-service/internal/app/product/usecases/create_product"
	"github.com/light-bringer/catalog-admin-service/internal/app/product/usecases/delete_product"
	"github.com/light-bringer/catalog-admin-service/internal/app/product/usecases/delete_products"
	"github.com/light-bringer/catalog-admin-service/internal/app/product/usecases/update_product"
)

// Request bodies carry base64 images.
const maxRequestBody = 32 << 20

// ProductHandler serves the admin product endpoints.
// It's a thin coordinator that delegates to use cases and queries.
type ProductHandler struct {
	// Commands
	createProduct  *create_product.Interactor
	updateProduct  *update_product.Interactor
	deleteProduct  *delete_product.Interactor
	deleteProducts *delete_products.Interactor

	// Queries
	getProduct      *get_product.Query
	listProducts    *list_products.Query
	listReplication *list_replication.Query

	logger *zap.Logger
}

// NewProductHandler creates a new HTTP product handler.
func NewProductHandler(
	createProduct *create_product.Interactor,
	updateProduct *update_product.Interactor,
	deleteProduct *delete_product.Interactor,
	deleteProducts *delete_products.Interactor,
	getProduct *get_product.Query,
	listProducts *list_products.Query,
	listReplication *list_replication.Query,
	logger *zap.Logger,
) *ProductHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProductHandler{
		createProduct:   createProduct,
		updateProduct:   updateProduct,
		deleteProduct:   deleteProduct,
		deleteProducts:  deleteProducts,
		getProduct:      getProduct,
		listProducts:    listProducts,
		listReplication: listReplication,
		logger:          logger,
	}
}

// Routes registers the admin endpoints on r.
func (h *ProductHandler) Routes(r chi.Router) {
	r.Route("/admin", func(rt chi.Router) {
		rt.Post("/products", h.create)
		rt.Get("/products", h.list)
		rt.Delete("/products", h.deleteMany)
		rt.Get("/products/{productID}", h.get)
		rt.Put("/products/{productID}", h.update)
		rt.Delete("/products/{productID}", h.delete)
		rt.Get("/replication", h.replication)
	})
}

func (h *ProductHandler) create(w http.ResponseWriter, r *http.Request) {
	var input domain.ProductInput
	if err := decodeBody(r, &input); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	resp, err := h.createProduct.Execute(r.Context(), &create_product.Request{Input: input})
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *ProductHandler) update(w http.ResponseWriter, r *http.Request) {
	var upd domain.ProductUpdate
	if err := decodeBody(r, &upd); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	resp, err := h.updateProduct.Execute(r.Context(), &update_product.Request{
		ProductID: chi.URLParam(r, "productID"),
		Update:    upd,
	})
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *ProductHandler) delete(w http.ResponseWriter, r *http.Request) {
	resp, err := h.deleteProduct.Execute(r.Context(), &delete_product.Request{
		ProductID: chi.URLParam(r, "productID"),
	})
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *ProductHandler) deleteMany(w http.ResponseWriter, r *http.Request) {
	var req delete_products.Request
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	resp, err := h.deleteProducts.Execute(r.Context(), &req)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *ProductHandler) get(w http.ResponseWriter, r *http.Request) {
	detail, err := h.getProduct.Execute(r.Context(), &get_product.Request{
		ProductID: chi.URLParam(r, "productID"),
	})
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (h *ProductHandler) list(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	pageSize, err := intParam(query.Get("page_size"))
	if err != nil {
		writeBadRequest(w, "page_size must be an integer")
		return
	}

	result, err := h.listProducts.Execute(r.Context(), &list_products.Request{
		Category:  query.Get("category"),
		PageSize:  pageSize,
		PageToken: query.Get("page_token"),
	})
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *ProductHandler) replication(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit, err := intParam(query.Get("limit"))
	if err != nil {
		writeBadRequest(w, "limit must be an integer")
		return
	}

	entries, err := h.listReplication.Execute(r.Context(), &list_replication.Request{
		Status:      query.Get("status"),
		AggregateID: query.Get("aggregate_id"),
		Limit:       limit,
	})
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toReplicationResponse(entries))
}

func decodeBody(r *http.Request, dst any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody+1))
	if err != nil {
		return fmt.Errorf("failed to read request body: %w", err)
	}
	if len(body) > maxRequestBody {
		return errors.New("request body too large")
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return errors.New("request body is required")
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("invalid JSON payload: %w", err)
	}
	return nil
}

func intParam(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}
