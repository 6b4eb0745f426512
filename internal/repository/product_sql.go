package repository

import (
	"context"
	"time"

	"freshmart-api/internal/model"

	"github.com/jmoiron/sqlx"
)

const productColumns = `id, name, status, category_id, expired_at, created_at, updated_at`

// SQLProductRepository implements ProductRepository with sqlx.
type SQLProductRepository struct {
	db *sqlx.DB
}

// Create inserts a product together with its ingredient links.
func (r *SQLProductRepository) Create(ctx context.Context, p *model.Product) error {
	now := utc(time.Now())
	p.CreatedAt, p.UpdatedAt = now, now
	p.ExpiredAt = utc(p.ExpiredAt)

	return inTx(ctx, r.db, "create product", func(tx *sqlx.Tx) error {
		query := `
			INSERT INTO products (` + productColumns + `)
			VALUES (:id, :name, :status, :category_id, :expired_at, :created_at, :updated_at)`
		if _, err := tx.NamedExecContext(ctx, query, p); err != nil {
			return err
		}
		return insertProductIngredients(ctx, tx, p.ID, p.Ingredients)
	})
}

// Update applies the non-nil fields of upd and returns the stored row.
// A non-nil upd.Ingredients replaces the whole ingredient list.
func (r *SQLProductRepository) Update(ctx context.Context, id string, upd model.ProductUpdate) (*model.Product, error) {
	var set setClause
	if upd.Name != nil {
		set.add("name", *upd.Name)
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

	var out model.Product
	err := inTx(ctx, r.db, "update product", func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx,
			tx.Rebind("UPDATE products SET "+set.sql()+" WHERE id = ?"),
			append(set.args, id)...)
		if err != nil {
			return err
		}
		if err := requireRows(res); err != nil {
			return err
		}

		if upd.Ingredients != nil {
			if _, err := tx.ExecContext(ctx,
				tx.Rebind("DELETE FROM product_ingredients WHERE product_id = ?"), id); err != nil {
				return err
			}
			if err := insertProductIngredients(ctx, tx, id, upd.Ingredients); err != nil {
				return err
			}
		}

		if err := tx.GetContext(ctx, &out,
			tx.Rebind("SELECT "+productColumns+" FROM products WHERE id = ?"), id); err != nil {
			return err
		}
		products := []model.Product{out}
		if err := loadProductIngredients(ctx, tx, products); err != nil {
			return err
		}
		out = products[0]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateStatus sets the status of a single product.
func (r *SQLProductRepository) UpdateStatus(ctx context.Context, id string, status model.Status) error {
	res, err := r.db.ExecContext(ctx,
		r.db.Rebind("UPDATE products SET status = ?, updated_at = ? WHERE id = ?"),
		status, utc(time.Now()), id)
	if err == nil {
		err = requireRows(res)
	}
	return wrap("update product status", err)
}

// Delete removes the product and its ingredient links in one transaction.
func (r *SQLProductRepository) Delete(ctx context.Context, id string) error {
	return inTx(ctx, r.db, "delete product", func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx,
			tx.Rebind("DELETE FROM product_ingredients WHERE product_id = ?"), id); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM products WHERE id = ?"), id)
		if err != nil {
			return err
		}
		return requireRows(res)
	})
}

// FindByID loads one product with its ingredients.
func (r *SQLProductRepository) FindByID(ctx context.Context, id string) (*model.Product, error) {
	var p model.Product
	if err := r.db.GetContext(ctx, &p,
		r.db.Rebind("SELECT "+productColumns+" FROM products WHERE id = ?"), id); err != nil {
		return nil, wrap("find product", err)
	}

	products := []model.Product{p}
	if err := loadProductIngredients(ctx, r.db, products); err != nil {
		return nil, wrap("find product ingredients", err)
	}
	return &products[0], nil
}

// FindMany loads every product matching filter with its ingredients, oldest first.
func (r *SQLProductRepository) FindMany(ctx context.Context, filter model.ProductFilter) ([]model.Product, error) {
	query, args, err := filterQuery(r.db, "SELECT "+productColumns+" FROM products", filter.IDs, filter.ExcludeStatus)
	if err != nil {
		return nil, wrap("find products", err)
	}

	out := make([]model.Product, 0)
	if err := r.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, wrap("find products", err)
	}
	if err := loadProductIngredients(ctx, r.db, out); err != nil {
		return nil, wrap("find product ingredients", err)
	}
	return out, nil
}

func insertProductIngredients(ctx context.Context, tx *sqlx.Tx, productID string, items []model.ProductIngredient) error {
	query := `
		INSERT INTO product_ingredients (product_id, ingredient_id, quantity)
		VALUES (:product_id, :ingredient_id, :quantity)`

	for i := range items {
		items[i].ProductID = productID
		if _, err := tx.NamedExecContext(ctx, query, items[i]); err != nil {
			return err
		}
	}
	return nil
}

// loadProductIngredients fills the Ingredients field of every product with one query.
func loadProductIngredients(ctx context.Context, q sqlx.ExtContext, products []model.Product) error {
	if len(products) == 0 {
		return nil
	}

	ids := make([]string, len(products))
	for i := range products {
		ids[i] = products[i].ID
		products[i].Ingredients = make([]model.ProductIngredient, 0)
	}

	query, args, err := sqlx.In(`
		SELECT product_id, ingredient_id, quantity FROM product_ingredients
		WHERE product_id IN (?) ORDER BY product_id, ingredient_id`, ids)
	if err != nil {
		return err
	}

	var rows []model.ProductIngredient
	if err := sqlx.SelectContext(ctx, q, &rows, q.Rebind(query), args...); err != nil {
		return err
	}

	index := make(map[string]int, len(products))
	for i := range products {
		index[products[i].ID] = i
	}
	for _, row := range rows {
		if i, ok := index[row.ProductID]; ok {
			products[i].Ingredients = append(products[i].Ingredients, row)
		}
	}
	return nil
}

// Ensure SQLProductRepository implements ProductRepository
var _ ProductRepository = (*SQLProductRepository)(nil)
