package handler

import (
	"net/http"
	"time"

	"freshmart-api/internal/middleware"
	"freshmart-api/internal/model"
	"freshmart-api/internal/service"
	"freshmart-api/pkg/apierror"
	"freshmart-api/pkg/response"

	"github.com/go-chi/chi/v5"
)

// ProductHandler handles product HTTP requests.
type ProductHandler struct {
	products *service.ProductService
	prices   *service.PriceService
	visitors *service.VisitorService
}

// NewProductHandler creates a new product handler.
func NewProductHandler(products *service.ProductService, prices *service.PriceService, visitors *service.VisitorService) *ProductHandler {
	return &ProductHandler{products: products, prices: prices, visitors: visitors}
}

// CreateProductRequest is the body of POST /products.
type CreateProductRequest struct {
	ID          string                    `json:"id"`
	Name        string                    `json:"name"`
	Status      model.Status              `json:"status"`
	CategoryID  string                    `json:"category_id"`
	ExpiredAt   time.Time                 `json:"expired_at"`
	Ingredients []model.ProductIngredient `json:"ingredients"`
}

// List handles GET /api/v1/products
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.products.List(r.Context())
	if err != nil {
		fail(w, err)
		return
	}
	response.List(w, items)
}

// Get handles GET /api/v1/products/{id}. An X-User-ID header records the visit.
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.products.Get(r.Context(), chi.URLParam(r, "id"), middleware.GetUserID(r.Context()))
	if err != nil {
		fail(w, err)
		return
	}
	response.OK(w, p)
}

// Create handles POST /api/v1/products
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest
	if err := decode(r, &req); err != nil {
		fail(w, err)
		return
	}

	details := validateIngredients(req.Ingredients)
	if req.ExpiredAt.IsZero() {
		details = append(details, apierror.FieldError{Field: "expired_at", Message: "is required"})
	}
	if len(details) > 0 {
		fail(w, apierror.ValidationError("invalid product", details...))
		return
	}

	p, err := h.products.Create(r.Context(), &model.Product{
		ID:          req.ID,
		Name:        req.Name,
		Status:      req.Status,
		CategoryID:  req.CategoryID,
		ExpiredAt:   req.ExpiredAt,
		Ingredients: req.Ingredients,
	})
	if err != nil {
		fail(w, err)
		return
	}
	response.Created(w, p)
}

// Update handles PUT /api/v1/products/{id}
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	var upd model.ProductUpdate
	if err := decode(r, &upd); err != nil {
		fail(w, err)
		return
	}
	if details := validateIngredients(upd.Ingredients); len(details) > 0 {
		fail(w, apierror.ValidationError("invalid product", details...))
		return
	}

	p, err := h.products.Update(r.Context(), chi.URLParam(r, "id"), upd)
	if err != nil {
		fail(w, err)
		return
	}
	response.OK(w, p)
}

// Delete handles DELETE /api/v1/products/{id}
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.products.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		fail(w, err)
		return
	}
	response.NoContent(w)
}

// Price handles GET /api/v1/products/{id}/price
func (h *ProductHandler) Price(w http.ResponseWriter, r *http.Request) {
	q, err := h.prices.QuoteProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		fail(w, err)
		return
	}
	response.OK(w, q)
}

// Visitors handles GET /api/v1/products/{id}/visitors
func (h *ProductHandler) Visitors(w http.ResponseWriter, r *http.Request) {
	users, err := h.visitors.Visitors(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		fail(w, err)
		return
	}
	response.List(w, users)
}

func validateIngredients(items []model.ProductIngredient) []apierror.FieldError {
	var details []apierror.FieldError
	for _, item := range items {
		if item.IngredientID == "" {
			details = append(details, apierror.FieldError{Field: "ingredients.ingredient_id", Message: "is required"})
		}
		if !item.Quantity.IsPositive() {
			details = append(details, apierror.FieldError{Field: "ingredients.quantity", Message: "must be positive"})
		}
	}
	return details
}
