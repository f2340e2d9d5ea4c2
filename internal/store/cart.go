package store

import (
	"context"
	"database/sql"
	"fmt"

	"storefront-service/internal/models"
)

const cartLineColumns = `
	c.id, c.user_id, c.product_id, c.quantity, c.created_at, c.updated_at,
	p.name AS product_name, p.price AS unit_price`

// GetCartLines returns the user's cart ordered by product name for display.
func (s *Store) GetCartLines(ctx context.Context, userID int64) ([]models.CartLine, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM cart_lines c
		JOIN products p ON p.id = c.product_id
		WHERE c.user_id = $1
		ORDER BY p.name`, cartLineColumns)

	var lines []models.CartLine
	err := s.db.SelectContext(ctx, &lines, query, userID)
	return lines, err
}

// GetCartLine returns one (user, product) line, or nil when absent.
func (s *Store) GetCartLine(ctx context.Context, userID, productID int64) (*models.CartLine, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM cart_lines c
		JOIN products p ON p.id = c.product_id
		WHERE c.user_id = $1 AND c.product_id = $2`, cartLineColumns)

	var line models.CartLine
	err := s.db.GetContext(ctx, &line, query, userID, productID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &line, nil
}

// UpsertCartLine adds quantity to the user's line for the product, creating
// the line on first add. The (user_id, product_id) unique constraint keeps
// at most one line per pair even under concurrent adds.
func (s *Store) UpsertCartLine(ctx context.Context, userID, productID int64, quantity int) (*models.CartLine, error) {
	query := `
		INSERT INTO cart_lines (user_id, product_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, product_id)
		DO UPDATE SET quantity = cart_lines.quantity + EXCLUDED.quantity, updated_at = NOW()
		RETURNING id`

	var id int64
	if err := s.db.GetContext(ctx, &id, query, userID, productID, quantity); err != nil {
		return nil, fmt.Errorf("failed to upsert cart line: %w", err)
	}
	return s.GetCartLine(ctx, userID, productID)
}

// SetCartLineQuantity overwrites the quantity of an existing line.
func (s *Store) SetCartLineQuantity(ctx context.Context, userID, productID int64, quantity int) (*models.CartLine, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE cart_lines SET quantity = $1, updated_at = NOW() WHERE user_id = $2 AND product_id = $3",
		quantity, userID, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to set cart quantity: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, &models.NotFoundError{Entity: "cart line", ID: productID}
	}
	return s.GetCartLine(ctx, userID, productID)
}

// DeleteCartLine removes one line; deleting an absent line is not an error.
func (s *Store) DeleteCartLine(ctx context.Context, userID, productID int64) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM cart_lines WHERE user_id = $1 AND product_id = $2", userID, productID)
	return err
}

// ClearCart wipes the user's cart outside any order transaction.
func (s *Store) ClearCart(ctx context.Context, userID int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM cart_lines WHERE user_id = $1", userID)
	return err
}

// ClearCart on a Tx wipes the cart inside the order transaction, so a cart
// is never cleared for an order that did not commit, and never left behind
// by one that did.
func (tx *Tx) ClearCart(ctx context.Context, userID int64) error {
	_, err := tx.tx.ExecContext(ctx, "DELETE FROM cart_lines WHERE user_id = $1", userID)
	return err
}
