package store

import (
	"context"
	"database/sql"
	"fmt"

	"storefront-service/internal/models"
)

// GetStock returns the live stock quantity for a product.
func (s *Store) GetStock(ctx context.Context, productID int64) (int, error) {
	var stock int
	err := s.db.GetContext(ctx, &stock,
		"SELECT stock_quantity FROM products WHERE id = $1", productID)
	if err == sql.ErrNoRows {
		return 0, &models.NotFoundError{Entity: "product", ID: productID}
	}
	return stock, err
}

// DecrementStock checks and decrements stock for one sale line and appends
// the matching ledger row, all on the enclosing transaction. The caller has
// already locked the product row via GetProductForUpdate, so previous and
// new quantities are read under the lock.
func (tx *Tx) DecrementStock(ctx context.Context, product *models.Product, quantity int, reason string, actor int64) (*models.InventoryTransaction, error) {
	if product.StockQuantity < quantity {
		return nil, &models.InsufficientStockError{
			ProductID:   product.ID,
			ProductName: product.Name,
			Requested:   quantity,
			Available:   product.StockQuantity,
		}
	}

	newQuantity := product.StockQuantity - quantity
	res, err := tx.tx.ExecContext(ctx,
		"UPDATE products SET stock_quantity = stock_quantity - $1, updated_at = NOW() WHERE id = $2 AND stock_quantity >= $1",
		quantity, product.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to decrement stock: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// The row lock makes this unreachable in practice; kept as a guard
		// against stock_quantity going negative.
		return nil, &models.InsufficientStockError{
			ProductID:   product.ID,
			ProductName: product.Name,
			Requested:   quantity,
			Available:   product.StockQuantity,
		}
	}

	ledgerRow := &models.InventoryTransaction{
		ProductID:        product.ID,
		Type:             models.InventoryTxSale,
		QuantityDelta:    -quantity,
		PreviousQuantity: product.StockQuantity,
		NewQuantity:      newQuantity,
		Reason:           reason,
		CreatedBy:        actor,
	}
	if err := tx.appendInventoryTransaction(ctx, ledgerRow); err != nil {
		return nil, err
	}

	product.StockQuantity = newQuantity
	return ledgerRow, nil
}

// SetStock sets a product's stock to an absolute quantity and appends a
// restock or adjustment ledger row depending on the direction of the change.
// Used by admin flows; runs on its own transaction handle.
func (tx *Tx) SetStock(ctx context.Context, productID int64, newQuantity int, reason string, actor int64) (*models.Product, *models.InventoryTransaction, error) {
	if newQuantity < 0 {
		return nil, nil, &models.ValidationError{Field: "quantity", Reason: "must be non-negative"}
	}

	product, err := tx.GetProductForUpdate(ctx, productID)
	if err != nil {
		return nil, nil, err
	}

	delta := newQuantity - product.StockQuantity
	txType := models.InventoryTxRestock
	if delta < 0 {
		txType = models.InventoryTxAdjustment
	}

	_, err = tx.tx.ExecContext(ctx,
		"UPDATE products SET stock_quantity = $1, updated_at = NOW() WHERE id = $2",
		newQuantity, productID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set stock: %w", err)
	}

	ledgerRow := &models.InventoryTransaction{
		ProductID:        productID,
		Type:             txType,
		QuantityDelta:    delta,
		PreviousQuantity: product.StockQuantity,
		NewQuantity:      newQuantity,
		Reason:           reason,
		CreatedBy:        actor,
	}
	if err := tx.appendInventoryTransaction(ctx, ledgerRow); err != nil {
		return nil, nil, err
	}

	product.StockQuantity = newQuantity
	return product, ledgerRow, nil
}

// appendInventoryTransaction writes one audit row. The table is append-only;
// nothing in this codebase updates or deletes from it.
func (tx *Tx) appendInventoryTransaction(ctx context.Context, itx *models.InventoryTransaction) error {
	query := `
		INSERT INTO inventory_transactions
			(product_id, type, quantity_delta, previous_quantity, new_quantity, reason, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`

	err := tx.tx.GetContext(ctx, itx, query,
		itx.ProductID, itx.Type, itx.QuantityDelta, itx.PreviousQuantity,
		itx.NewQuantity, itx.Reason, itx.CreatedBy)
	if err != nil {
		return fmt.Errorf("failed to append inventory transaction: %w", err)
	}
	return nil
}

// GetInventoryTransactions lists the ledger rows for a product, newest first.
func (s *Store) GetInventoryTransactions(ctx context.Context, productID int64, limit int) ([]models.InventoryTransaction, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []models.InventoryTransaction
	err := s.db.SelectContext(ctx, &rows,
		"SELECT * FROM inventory_transactions WHERE product_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2",
		productID, limit)
	return rows, err
}

// GetLowStockProducts returns products at or below their reorder threshold.
func (s *Store) GetLowStockProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	err := s.db.SelectContext(ctx, &products,
		"SELECT * FROM products WHERE stock_quantity <= min_stock ORDER BY stock_quantity ASC")
	return products, err
}
