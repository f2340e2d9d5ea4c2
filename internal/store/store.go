package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"storefront-service/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}

// Tx is the unit-of-work handle passed to WithTx callbacks. All writes of
// one order placement go through a single Tx so they commit or roll back
// together.
type Tx struct {
	tx *sqlx.Tx
}

// WithTx runs fn inside a single database transaction. The transaction is
// rolled back on any error or panic and committed otherwise. Serialization
// failures and unique-constraint races surface as *models.ConflictError.
func (s *Store) WithTx(ctx context.Context, fn func(tx *Tx) error) error {
	txx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = txx.Rollback()
			panic(p)
		}
	}()

	if err := fn(&Tx{tx: txx}); err != nil {
		_ = txx.Rollback()
		return classifyTxError("order transaction", err)
	}

	if err := txx.Commit(); err != nil {
		return classifyTxError("commit", err)
	}
	return nil
}

// classifyTxError maps Postgres serialization/deadlock/unique-race failures
// to ConflictError so callers know a resubmit may succeed.
func classifyTxError(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "40001", "40P01", "55P03": // serialization, deadlock, lock_not_available
			return &models.ConflictError{Op: op, Err: err}
		case "23505": // unique_violation (e.g. tracking number collision)
			return &models.ConflictError{Op: op, Err: err}
		}
	}
	return err
}

// GetProductByID retrieves a product by ID
func (s *Store) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	err := s.db.GetContext(ctx, &product, "SELECT * FROM products WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, &models.NotFoundError{Entity: "product", ID: id}
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// GetProductBySKU retrieves a product by SKU
func (s *Store) GetProductBySKU(ctx context.Context, sku string) (*models.Product, error) {
	var product models.Product
	err := s.db.GetContext(ctx, &product, "SELECT * FROM products WHERE sku = $1", sku)
	if err == sql.ErrNoRows {
		return nil, &models.NotFoundError{Entity: "product", Key: sku}
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// GetProducts retrieves all products
func (s *Store) GetProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	err := s.db.SelectContext(ctx, &products, "SELECT * FROM products ORDER BY id")
	return products, err
}

// GetUserByID retrieves the display fields for a user
func (s *Store) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	err := s.db.GetContext(ctx, &user, "SELECT id, name, email, role FROM users WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, &models.NotFoundError{Entity: "user", ID: id}
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetProductForUpdate loads a product inside the transaction with a row
// lock, so concurrent orders for the same product serialize on the stock
// check.
func (tx *Tx) GetProductForUpdate(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	err := tx.tx.GetContext(ctx, &product, "SELECT * FROM products WHERE id = $1 FOR UPDATE", id)
	if err == sql.ErrNoRows {
		return nil, &models.NotFoundError{Entity: "product", ID: id}
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}
