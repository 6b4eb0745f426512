package repository

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	_ "github.com/lib/pq"              // PostgreSQL driver
	_ "modernc.org/sqlite"             // Pure Go SQLite driver - no CGO required
)

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// SQLStore owns the database handle shared by the ingredient, product and
// category repositories.
type SQLStore struct {
	db     *sqlx.DB
	driver string

	ingredients *SQLIngredientRepository
	products    *SQLProductRepository
	categories  *SQLCategoryRepository
}

// Open connects to the database, tunes the pool for the driver and creates
// the schema if needed. driver is one of "sqlite", "postgres" or "mysql".
func Open(driver, dsn string) (*SQLStore, error) {
	if driver == "sqlite" {
		var err error
		if dsn, err = sqliteDSN(dsn); err != nil {
			return nil, err
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, wrap("connect "+driver, err)
	}

	switch driver {
	case "sqlite":
		// SQLite only supports 1 writer
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
	default:
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(5 * time.Minute)
		db.SetConnMaxIdleTime(1 * time.Minute)
	}

	if err := createSchema(ctx, db, driver); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	log.Info().Str("component", "repository").Str("driver", driver).Msg("database initialized")
	return newSQLStore(db, driver), nil
}

func newSQLStore(db *sqlx.DB, driver string) *SQLStore {
	return &SQLStore{
		db:          db,
		driver:      driver,
		ingredients: &SQLIngredientRepository{db: db},
		products:    &SQLProductRepository{db: db},
		categories:  &SQLCategoryRepository{db: db},
	}
}

// sqliteDSN makes sure the database directory exists and enables WAL mode
// and a busy timeout for file databases.
func sqliteDSN(path string) (string, error) {
	if path == ":memory:" || strings.Contains(path, "?") {
		return path, nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	return path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)", nil
}

func createSchema(ctx context.Context, db *sqlx.DB, driver string) error {
	for _, stmt := range schemaFor(driver) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// Ingredients returns the ingredient repository.
func (s *SQLStore) Ingredients() *SQLIngredientRepository { return s.ingredients }

// Products returns the product repository.
func (s *SQLStore) Products() *SQLProductRepository { return s.products }

// Categories returns the category repository.
func (s *SQLStore) Categories() *SQLCategoryRepository { return s.categories }

// Driver returns the driver name the store was opened with.
func (s *SQLStore) Driver() string { return s.driver }

// Ping checks the database connection.
func (s *SQLStore) Ping(ctx context.Context) error {
	return wrap("ping", s.db.PingContext(ctx))
}

// GetStats returns row counts and pool statistics.
func (s *SQLStore) GetStats(ctx context.Context) (map[string]interface{}, error) {
	stats := make(map[string]interface{})

	for _, table := range []string{"categories", "ingredients", "products", "product_ingredients"} {
		var count int64
		if err := s.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM "+table); err != nil {
			return nil, wrap("count "+table, err)
		}
		stats[table] = count
	}

	pool := s.db.Stats()
	stats["driver"] = s.driver
	stats["open_connections"] = pool.OpenConnections
	stats["in_use"] = pool.InUse
	stats["idle"] = pool.Idle

	return stats, nil
}

// Close closes the database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// inTx runs fn inside a transaction, committing only if fn succeeds.
func inTx(ctx context.Context, db *sqlx.DB, op string, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return wrap(op+": begin", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return wrap(op, err)
	}

	if err := tx.Commit(); err != nil {
		return wrap(op+": commit", err)
	}
	return nil
}

// setClause accumulates the SET part of a partial UPDATE.
type setClause struct {
	cols []string
	args []interface{}
}

func (s *setClause) add(col string, v interface{}) {
	s.cols = append(s.cols, col+" = ?")
	s.args = append(s.args, v)
}

func (s *setClause) sql() string {
	return strings.Join(s.cols, ", ")
}

// utc normalises timestamps before they hit the database so that every
// driver stores and compares the same representation.
func utc(t time.Time) time.Time {
	return t.UTC()
}
