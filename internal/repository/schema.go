package repository

// schemaFor returns the CREATE statements for driver, one statement per entry.
func schemaFor(driver string) []string {
	switch driver {
	case "postgres":
		return postgresSchema
	case "mysql":
		return mysqlSchema
	default:
		return sqliteSchema
	}
}

// Prices and quantities are TEXT on SQLite so decimals round-trip exactly.
var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS categories (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		created_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS ingredients (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		price TEXT NOT NULL,
		unit TEXT NOT NULL,
		status TEXT NOT NULL,
		category_id TEXT NOT NULL DEFAULT '',
		expired_at DATETIME NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		status TEXT NOT NULL,
		category_id TEXT NOT NULL DEFAULT '',
		expired_at DATETIME NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS product_ingredients (
		product_id TEXT NOT NULL,
		ingredient_id TEXT NOT NULL,
		quantity TEXT NOT NULL,
		PRIMARY KEY (product_id, ingredient_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_product_ingredients_ingredient ON product_ingredients(ingredient_id)`,
	`CREATE INDEX IF NOT EXISTS idx_ingredients_status ON ingredients(status)`,
	`CREATE INDEX IF NOT EXISTS idx_products_status ON products(status)`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS categories (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS ingredients (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		price NUMERIC(14,4) NOT NULL,
		unit TEXT NOT NULL,
		status TEXT NOT NULL,
		category_id TEXT NOT NULL DEFAULT '',
		expired_at TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		status TEXT NOT NULL,
		category_id TEXT NOT NULL DEFAULT '',
		expired_at TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS product_ingredients (
		product_id TEXT NOT NULL,
		ingredient_id TEXT NOT NULL,
		quantity NUMERIC(14,4) NOT NULL,
		PRIMARY KEY (product_id, ingredient_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_product_ingredients_ingredient ON product_ingredients(ingredient_id)`,
	`CREATE INDEX IF NOT EXISTS idx_ingredients_status ON ingredients(status)`,
	`CREATE INDEX IF NOT EXISTS idx_products_status ON products(status)`,
}

// MySQL has no CREATE INDEX IF NOT EXISTS, so indexes live in the table definitions.
var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS categories (
		id VARCHAR(64) PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		created_at DATETIME(6) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS ingredients (
		id VARCHAR(64) PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		price DECIMAL(14,4) NOT NULL,
		unit VARCHAR(32) NOT NULL,
		status VARCHAR(16) NOT NULL,
		category_id VARCHAR(64) NOT NULL DEFAULT '',
		expired_at DATETIME(6) NOT NULL,
		created_at DATETIME(6) NOT NULL,
		updated_at DATETIME(6) NOT NULL,
		INDEX idx_ingredients_status (status)
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		id VARCHAR(64) PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		status VARCHAR(16) NOT NULL,
		category_id VARCHAR(64) NOT NULL DEFAULT '',
		expired_at DATETIME(6) NOT NULL,
		created_at DATETIME(6) NOT NULL,
		updated_at DATETIME(6) NOT NULL,
		INDEX idx_products_status (status)
	)`,
	`CREATE TABLE IF NOT EXISTS product_ingredients (
		product_id VARCHAR(64) NOT NULL,
		ingredient_id VARCHAR(64) NOT NULL,
		quantity DECIMAL(14,4) NOT NULL,
		PRIMARY KEY (product_id, ingredient_id),
		INDEX idx_product_ingredients_ingredient (ingredient_id)
	)`,
}
