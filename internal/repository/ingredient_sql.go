package repository

import (
	"context"
	"strings"
	"time"

	"freshmart-api/internal/model"

	"github.com/jmoiron/sqlx"
)

const ingredientColumns = `id, name, price, unit, status, category_id, expired_at, created_at, updated_at`

// SQLIngredientRepository implements IngredientRepository with sqlx.
type SQLIngredientRepository struct {
	db *sqlx.DB
}

// Create inserts a new ingredient.
func (r *SQLIngredientRepository) Create(ctx context.Context, in *model.Ingredient) error {
	now := utc(time.Now())
	in.CreatedAt, in.UpdatedAt = now, now
	in.ExpiredAt = utc(in.ExpiredAt)

	query := `
		INSERT INTO ingredients (` + ingredientColumns + `)
		VALUES (:id, :name, :price, :unit, :status, :category_id, :expired_at, :created_at, :updated_at)`

	_, err := r.db.NamedExecContext(ctx, query, in)
	return wrap("create ingredient", err)
}

// Update applies the non-nil fields of upd and returns the stored row and the
// products linked to it.
func (r *SQLIngredientRepository) Update(ctx context.Context, id string, upd model.IngredientUpdate) (*model.Ingredient, []string, error) {
	var set setClause
	if upd.Name != nil {
		set.add("name", *upd.Name)
	}
	if upd.Price != nil {
		set.add("price", *upd.Price)
	}
	if upd.Unit != nil {
		set.add("unit", *upd.Unit)
	}
	if upd.Status != nil {
		set.add("status", *upd.Status)
	}
	if upd.CategoryID != nil {
		set.add("category_id", *upd.CategoryID)
	}
	if upd.ExpiredAt != nil {
		set.add("expired_at", utc(*upd.ExpiredAt))
	}
	set.add("updated_at", utc(time.Now()))

	var out model.Ingredient
	var productIDs []string
	err := inTx(ctx, r.db, "update ingredient", func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx,
			tx.Rebind("UPDATE ingredients SET "+set.sql()+" WHERE id = ?"),
			append(set.args, id)...)
		if err != nil {
			return err
		}
		if err := requireRows(res); err != nil {
			return err
		}
		if err := tx.GetContext(ctx, &out,
			tx.Rebind("SELECT "+ingredientColumns+" FROM ingredients WHERE id = ?"), id); err != nil {
			return err
		}
		productIDs, err = linkedProductIDs(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return &out, productIDs, nil
}

// UpdateStatus sets the status of a single ingredient.
func (r *SQLIngredientRepository) UpdateStatus(ctx context.Context, id string, status model.Status) error {
	res, err := r.db.ExecContext(ctx,
		r.db.Rebind("UPDATE ingredients SET status = ?, updated_at = ? WHERE id = ?"),
		status, utc(time.Now()), id)
	if err == nil {
		err = requireRows(res)
	}
	return wrap("update ingredient status", err)
}

// Delete removes the ingredient and its product links in one transaction.
func (r *SQLIngredientRepository) Delete(ctx context.Context, id string) ([]string, error) {
	var productIDs []string
	err := inTx(ctx, r.db, "delete ingredient", func(tx *sqlx.Tx) error {
		var err error
		if productIDs, err = linkedProductIDs(ctx, tx, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			tx.Rebind("DELETE FROM product_ingredients WHERE ingredient_id = ?"), id); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM ingredients WHERE id = ?"), id)
		if err != nil {
			return err
		}
		return requireRows(res)
	})
	if err != nil {
		return nil, err
	}
	return productIDs, nil
}

// FindByID loads one ingredient.
func (r *SQLIngredientRepository) FindByID(ctx context.Context, id string) (*model.Ingredient, error) {
	var out model.Ingredient
	err := r.db.GetContext(ctx, &out,
		r.db.Rebind("SELECT "+ingredientColumns+" FROM ingredients WHERE id = ?"), id)
	if err != nil {
		return nil, wrap("find ingredient", err)
	}
	return &out, nil
}

// FindMany loads every ingredient matching filter, oldest first.
func (r *SQLIngredientRepository) FindMany(ctx context.Context, filter model.IngredientFilter) ([]model.Ingredient, error) {
	query, args, err := filterQuery(r.db, "SELECT "+ingredientColumns+" FROM ingredients", filter.IDs, filter.ExcludeStatus)
	if err != nil {
		return nil, wrap("find ingredients", err)
	}

	out := make([]model.Ingredient, 0)
	if err := r.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, wrap("find ingredients", err)
	}
	return out, nil
}

// FindProductIDsByIngredient lists the products that use the ingredient.
func (r *SQLIngredientRepository) FindProductIDsByIngredient(ctx context.Context, id string) ([]string, error) {
	out, err := linkedProductIDs(ctx, r.db, id)
	if err != nil {
		return nil, wrap("find products by ingredient", err)
	}
	return out, nil
}

// queryer is satisfied by both *sqlx.DB and *sqlx.Tx.
type queryer interface {
	sqlx.QueryerContext
	Rebind(query string) string
}

func linkedProductIDs(ctx context.Context, q queryer, ingredientID string) ([]string, error) {
	out := make([]string, 0)
	err := sqlx.SelectContext(ctx, q, &out,
		q.Rebind("SELECT product_id FROM product_ingredients WHERE ingredient_id = ? ORDER BY product_id"), ingredientID)
	return out, err
}

// filterQuery appends the id and excluded-status conditions shared by the
// FindMany queries and rebinds the result for the driver.
func filterQuery(db *sqlx.DB, base string, ids []string, exclude []model.Status) (string, []interface{}, error) {
	var where []string
	var args []interface{}

	if len(ids) > 0 {
		where = append(where, "id IN (?)")
		args = append(args, ids)
	}
	if len(exclude) > 0 {
		where = append(where, "status NOT IN (?)")
		args = append(args, exclude)
	}

	query := base
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at, id"

	if len(args) > 0 {
		var err error
		if query, args, err = sqlx.In(query, args...); err != nil {
			return "", nil, err
		}
	}
	return db.Rebind(query), args, nil
}

type rowsResult interface {
	RowsAffected() (int64, error)
}

func requireRows(res rowsResult) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Ensure SQLIngredientRepository implements IngredientRepository
var _ IngredientRepository = (*SQLIngredientRepository)(nil)
