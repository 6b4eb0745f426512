package repository

import (
	"context"
	"time"

	"freshmart-api/internal/model"

	"github.com/jmoiron/sqlx"
)

// SQLCategoryRepository implements CategoryRepository with sqlx.
type SQLCategoryRepository struct {
	db *sqlx.DB
}

func (r *SQLCategoryRepository) Create(ctx context.Context, c *model.Category) error {
	c.CreatedAt = utc(time.Now())
	_, err := r.db.NamedExecContext(ctx,
		`INSERT INTO categories (id, name, created_at) VALUES (:id, :name, :created_at)`, c)
	return wrap("create category", err)
}

func (r *SQLCategoryRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind("DELETE FROM categories WHERE id = ?"), id)
	if err == nil {
		err = requireRows(res)
	}
	return wrap("delete category", err)
}

func (r *SQLCategoryRepository) FindAll(ctx context.Context) ([]model.Category, error) {
	out := make([]model.Category, 0)
	if err := r.db.SelectContext(ctx, &out, "SELECT id, name, created_at FROM categories ORDER BY name, id"); err != nil {
		return nil, wrap("find categories", err)
	}
	return out, nil
}

// Ensure SQLCategoryRepository implements CategoryRepository
var _ CategoryRepository = (*SQLCategoryRepository)(nil)
