package handler

import (
	"net/http"
	"time"

	"freshmart-api/internal/model"
	"freshmart-api/internal/service"
	"freshmart-api/pkg/apierror"
	"freshmart-api/pkg/response"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// IngredientHandler handles ingredient HTTP requests.
type IngredientHandler struct {
	ingredients *service.IngredientService
}

// NewIngredientHandler creates a new ingredient handler.
func NewIngredientHandler(ingredients *service.IngredientService) *IngredientHandler {
	return &IngredientHandler{ingredients: ingredients}
}

// CreateIngredientRequest is the body of POST /ingredients.
type CreateIngredientRequest struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	Unit       string          `json:"unit"`
	Status     model.Status    `json:"status"`
	CategoryID string          `json:"category_id"`
	ExpiredAt  time.Time       `json:"expired_at"`
}

// List handles GET /api/v1/ingredients
func (h *IngredientHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.ingredients.List(r.Context())
	if err != nil {
		fail(w, err)
		return
	}
	response.List(w, items)
}

// Get handles GET /api/v1/ingredients/{id}
func (h *IngredientHandler) Get(w http.ResponseWriter, r *http.Request) {
	in, err := h.ingredients.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		fail(w, err)
		return
	}
	response.OK(w, in)
}

// Create handles POST /api/v1/ingredients
func (h *IngredientHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateIngredientRequest
	if err := decode(r, &req); err != nil {
		fail(w, err)
		return
	}

	var details []apierror.FieldError
	if req.ExpiredAt.IsZero() {
		details = append(details, apierror.FieldError{Field: "expired_at", Message: "is required"})
	}
	if req.Price.IsNegative() {
		details = append(details, apierror.FieldError{Field: "price", Message: "must not be negative"})
	}
	if len(details) > 0 {
		fail(w, apierror.ValidationError("invalid ingredient", details...))
		return
	}

	in, err := h.ingredients.Create(r.Context(), &model.Ingredient{
		ID:         req.ID,
		Name:       req.Name,
		Price:      req.Price,
		Unit:       req.Unit,
		Status:     req.Status,
		CategoryID: req.CategoryID,
		ExpiredAt:  req.ExpiredAt,
	})
	if err != nil {
		fail(w, err)
		return
	}
	response.Created(w, in)
}

// Update handles PUT /api/v1/ingredients/{id}
func (h *IngredientHandler) Update(w http.ResponseWriter, r *http.Request) {
	var upd model.IngredientUpdate
	if err := decode(r, &upd); err != nil {
		fail(w, err)
		return
	}
	if upd.Price != nil && upd.Price.IsNegative() {
		fail(w, apierror.ValidationError("invalid ingredient",
			apierror.FieldError{Field: "price", Message: "must not be negative"}))
		return
	}

	in, err := h.ingredients.Update(r.Context(), chi.URLParam(r, "id"), upd)
	if err != nil {
		fail(w, err)
		return
	}
	response.OK(w, in)
}

// Delete handles DELETE /api/v1/ingredients/{id}
func (h *IngredientHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.ingredients.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		fail(w, err)
		return
	}
	response.NoContent(w)
}
