package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Ingredient is a perishable raw material with a unit price.
type Ingredient struct {
	ID         string          `json:"id" db:"id"`
	Name       string          `json:"name" db:"name"`
	Price      decimal.Decimal `json:"price" db:"price"`
	Unit       string          `json:"unit" db:"unit"`
	Status     Status          `json:"status" db:"status"`
	CategoryID string          `json:"category_id" db:"category_id"`
	ExpiredAt  time.Time       `json:"expired_at" db:"expired_at"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at" db:"updated_at"`
}

// IngredientUpdate carries the mutable fields of an ingredient.
// Nil fields are left untouched.
type IngredientUpdate struct {
	Name       *string          `json:"name,omitempty"`
	Price      *decimal.Decimal `json:"price,omitempty"`
	Unit       *string          `json:"unit,omitempty"`
	Status     *Status          `json:"status,omitempty"`
	CategoryID *string          `json:"category_id,omitempty"`
	ExpiredAt  *time.Time       `json:"expired_at,omitempty"`
}

// IngredientFilter narrows FindMany queries. Empty fields match everything.
type IngredientFilter struct {
	IDs           []string
	ExcludeStatus []Status
}
