package handler

import (
	"net/http"

	"freshmart-api/internal/model"
	"freshmart-api/internal/service"
	"freshmart-api/pkg/apierror"
	"freshmart-api/pkg/response"

	"github.com/go-chi/chi/v5"
)

// CatalogHandler serves categories, ad hoc price quotes and per-user views.
type CatalogHandler struct {
	categories *service.CategoryService
	prices     *service.PriceService
	visitors   *service.VisitorService
}

// NewCatalogHandler creates a new catalog handler.
func NewCatalogHandler(categories *service.CategoryService, prices *service.PriceService, visitors *service.VisitorService) *CatalogHandler {
	return &CatalogHandler{categories: categories, prices: prices, visitors: visitors}
}

// ListCategories handles GET /api/v1/categories
func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	items, err := h.categories.List(r.Context())
	if err != nil {
		fail(w, err)
		return
	}
	response.List(w, items)
}

// CreateCategory handles POST /api/v1/categories
func (h *CatalogHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if err := decode(r, &req); err != nil {
		fail(w, err)
		return
	}

	c, err := h.categories.Create(r.Context(), &model.Category{ID: req.ID, Name: req.Name})
	if err != nil {
		fail(w, err)
		return
	}
	response.Created(w, c)
}

// DeleteCategory handles DELETE /api/v1/categories/{id}
func (h *CatalogHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := h.categories.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		fail(w, err)
		return
	}
	response.NoContent(w)
}

// Quote handles POST /api/v1/price
func (h *CatalogHandler) Quote(w http.ResponseWriter, r *http.Request) {
	var req model.PriceRequest
	if err := decode(r, &req); err != nil {
		fail(w, err)
		return
	}
	if details := validateIngredients(req.Ingredients); len(details) > 0 {
		fail(w, apierror.ValidationError("invalid price request", details...))
		return
	}

	q, err := h.prices.Quote(r.Context(), req)
	if err != nil {
		fail(w, err)
		return
	}
	response.OK(w, q)
}

// UserProducts handles GET /api/v1/users/{user_id}/products
func (h *CatalogHandler) UserProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.visitors.ProductsForUser(r.Context(), chi.URLParam(r, "user_id"))
	if err != nil {
		fail(w, err)
		return
	}
	response.List(w, products)
}

// RefreshUserProducts handles PUT /api/v1/users/{user_id}/products
func (h *CatalogHandler) RefreshUserProducts(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProductIDs []string `json:"product_ids"`
	}
	if err := decode(r, &req); err != nil {
		fail(w, err)
		return
	}

	userID := chi.URLParam(r, "user_id")
	if err := h.visitors.RefreshUserView(r.Context(), userID, req.ProductIDs); err != nil {
		fail(w, err)
		return
	}
	response.OK(w, map[string]interface{}{
		"user_id":     userID,
		"product_ids": req.ProductIDs,
	})
}
