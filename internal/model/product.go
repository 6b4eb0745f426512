package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a perishable item assembled from ingredients.
type Product struct {
	ID          string              `json:"id" db:"id"`
	Name        string              `json:"name" db:"name"`
	Status      Status              `json:"status" db:"status"`
	CategoryID  string              `json:"category_id" db:"category_id"`
	ExpiredAt   time.Time           `json:"expired_at" db:"expired_at"`
	CreatedAt   time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at" db:"updated_at"`
	Ingredients []ProductIngredient `json:"ingredients" db:"-"`
}

// ProductIngredient is one row of the product/ingredient join table.
type ProductIngredient struct {
	ProductID    string          `json:"-" db:"product_id"`
	IngredientID string          `json:"ingredient_id" db:"ingredient_id"`
	Quantity     decimal.Decimal `json:"quantity" db:"quantity"`
}

// ProductUpdate carries the mutable fields of a product.
// A non-nil Ingredients slice replaces the whole ingredient list.
type ProductUpdate struct {
	Name        *string             `json:"name,omitempty"`
	Status      *Status             `json:"status,omitempty"`
	CategoryID  *string             `json:"category_id,omitempty"`
	ExpiredAt   *time.Time          `json:"expired_at,omitempty"`
	Ingredients []ProductIngredient `json:"ingredients,omitempty"`
}

// ProductFilter narrows FindMany queries. Empty fields match everything.
type ProductFilter struct {
	IDs           []string
	ExcludeStatus []Status
}
