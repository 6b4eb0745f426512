package repository

import (
	"context"

	"freshmart-api/internal/model"
)

// IngredientRepository defines ingredient data access methods.
type IngredientRepository interface {
	// Create inserts a new ingredient.
	Create(ctx context.Context, in *model.Ingredient) error

	// Update applies the non-nil fields of upd and returns the stored row
	// together with the ids of the products linked to it, read in the same
	// transaction. Returns ErrNotFound if no row matched.
	Update(ctx context.Context, id string, upd model.IngredientUpdate) (*model.Ingredient, []string, error)

	// UpdateStatus sets the status of a single ingredient.
	UpdateStatus(ctx context.Context, id string, status model.Status) error

	// Delete removes the ingredient and its product links in one transaction.
	// Returns the ids of the products that referenced it.
	Delete(ctx context.Context, id string) ([]string, error)

	// FindByID loads one ingredient. Returns ErrNotFound if absent.
	FindByID(ctx context.Context, id string) (*model.Ingredient, error)

	// FindMany loads every ingredient matching filter.
	FindMany(ctx context.Context, filter model.IngredientFilter) ([]model.Ingredient, error)

	// FindProductIDsByIngredient lists the products that use the ingredient.
	FindProductIDsByIngredient(ctx context.Context, id string) ([]string, error)
}

// ProductRepository defines product data access methods.
type ProductRepository interface {
	// Create inserts a product together with its ingredient links.
	Create(ctx context.Context, p *model.Product) error

	// Update applies the non-nil fields of upd and returns the stored row.
	// Returns ErrNotFound if no row matched.
	Update(ctx context.Context, id string, upd model.ProductUpdate) (*model.Product, error)

	// UpdateStatus sets the status of a single product.
	UpdateStatus(ctx context.Context, id string, status model.Status) error

	// Delete removes the product and its ingredient links in one transaction.
	Delete(ctx context.Context, id string) error

	// FindByID loads one product with its ingredients. Returns ErrNotFound if absent.
	FindByID(ctx context.Context, id string) (*model.Product, error)

	// FindMany loads every product matching filter with its ingredients.
	FindMany(ctx context.Context, filter model.ProductFilter) ([]model.Product, error)
}

// CategoryRepository defines category data access methods.
type CategoryRepository interface {
	Create(ctx context.Context, c *model.Category) error
	Delete(ctx context.Context, id string) error
	FindAll(ctx context.Context) ([]model.Category, error)
}
