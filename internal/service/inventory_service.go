package service

import (
	"context"

	"storefront-service/internal/models"
	"storefront-service/internal/redisclient"
	"storefront-service/internal/store"
	"storefront-service/internal/util"

	"go.uber.org/zap"
)

// InventoryService exposes the ledger operations that run outside the
// order transaction: admin stock adjustments, audit history and the
// startup cache warm-up. Sale decrements go through the order coordinator
// instead, inside its transaction.
type InventoryService struct {
	store  *store.Store
	cache  *redisclient.Client
	events EventSink
	logger *zap.Logger
}

// NewInventoryService creates a new inventory service.
func NewInventoryService(store *store.Store, cache *redisclient.Client, events EventSink) *InventoryService {
	return &InventoryService{
		store:  store,
		cache:  cache,
		events: events,
		logger: util.GetLogger(),
	}
}

// GetStock returns the live stock quantity for a product.
func (s *InventoryService) GetStock(ctx context.Context, productID int64) (int, error) {
	return s.store.GetStock(ctx, productID)
}

// GetProductBySKU resolves a product by its warehouse SKU.
func (s *InventoryService) GetProductBySKU(ctx context.Context, sku string) (*models.Product, error) {
	return s.store.GetProductBySKU(ctx, sku)
}

// AdjustStock sets a product's stock to an absolute quantity, appending a
// restock or adjustment ledger row, and broadcasts the updated snapshot.
func (s *InventoryService) AdjustStock(ctx context.Context, productID int64, newQuantity int, reason string, actor int64) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "InventoryService.AdjustStock")
	defer span.End()

	var (
		product   *models.Product
		ledgerRow *models.InventoryTransaction
	)
	err := s.store.WithTx(ctx, func(tx *store.Tx) error {
		var err error
		product, ledgerRow, err = tx.SetStock(ctx, productID, newQuantity, reason, actor)
		return err
	})
	if err != nil {
		return nil, err
	}

	util.StockAdjustmentsTotal.WithLabelValues(ledgerRow.Type).Inc()
	s.logger.Info("Stock adjusted",
		zap.Int64("product_id", productID),
		zap.String("type", ledgerRow.Type),
		zap.Int("previous", ledgerRow.PreviousQuantity),
		zap.Int("new", ledgerRow.NewQuantity),
		zap.Int64("actor", actor))

	if s.cache != nil {
		if err := s.cache.SetProductSnapshot(ctx, product); err != nil {
			// Drop the stale snapshot so the cart fast path falls back to
			// the database instead of serving the old quantity.
			s.logger.Warn("Failed to refresh product cache",
				zap.Int64("product_id", productID), zap.Error(err))
			if err := s.cache.InvalidateProduct(ctx, productID); err != nil {
				s.logger.Warn("Failed to invalidate product cache",
					zap.Int64("product_id", productID), zap.Error(err))
			}
		}
	}

	low := product.LowStock()
	if low {
		util.LowStockAlertsTotal.Inc()
	}
	s.events.Publish(ctx, &models.InventoryChangedEvent{
		BaseEvent: models.BaseEvent{EventType: models.EventTypeInventoryChanged},
		Product:   *product,
		LowStock:  low,
	})

	return product, nil
}

// GetTransactions lists the audit rows for a product, newest first.
func (s *InventoryService) GetTransactions(ctx context.Context, productID int64, limit int) ([]models.InventoryTransaction, error) {
	// Verify the product exists so a typo'd id is a 404, not an empty list.
	if _, err := s.store.GetProductByID(ctx, productID); err != nil {
		return nil, err
	}
	return s.store.GetInventoryTransactions(ctx, productID, limit)
}

// GetLowStockProducts returns products at or below their reorder threshold.
func (s *InventoryService) GetLowStockProducts(ctx context.Context) ([]models.Product, error) {
	return s.store.GetLowStockProducts(ctx)
}

// WarmCache mirrors every product snapshot into Redis at startup.
func (s *InventoryService) WarmCache(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}

	products, err := s.store.GetProducts(ctx)
	if err != nil {
		return err
	}
	if err := s.cache.SyncProducts(ctx, products); err != nil {
		return err
	}

	s.logger.Info("Product cache warmed", zap.Int("count", len(products)))
	return nil
}
