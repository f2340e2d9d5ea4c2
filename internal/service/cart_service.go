package service

import (
	"context"
	"fmt"

	"storefront-service/internal/models"
	"storefront-service/internal/redisclient"
	"storefront-service/internal/store"
	"storefront-service/internal/util"

	"go.uber.org/zap"
)

// CartService manages per-user carts. Cart mutations validate against live
// stock; the authoritative check still happens inside the order transaction.
type CartService struct {
	store  *store.Store
	cache  *redisclient.Client
	events EventSink
	logger *zap.Logger
}

// NewCartService creates a new cart service.
func NewCartService(store *store.Store, cache *redisclient.Client, events EventSink) *CartService {
	return &CartService{
		store:  store,
		cache:  cache,
		events: events,
		logger: util.GetLogger(),
	}
}

// GetLines returns the user's cart, ordered by product name for display.
func (s *CartService) GetLines(ctx context.Context, userID int64) ([]models.CartLine, error) {
	lines, err := s.store.GetCartLines(ctx, userID)
	if err != nil {
		return nil, err
	}
	if lines == nil {
		lines = []models.CartLine{}
	}
	return lines, nil
}

// loadProduct reads a product from the snapshot cache, falling back to the
// database on a miss or cache error.
func (s *CartService) loadProduct(ctx context.Context, productID int64) (*models.Product, error) {
	if s.cache != nil {
		product, err := s.cache.GetProductSnapshot(ctx, productID)
		if err != nil {
			s.logger.Warn("Product cache read failed, falling back to DB",
				zap.Int64("product_id", productID), zap.Error(err))
		} else if product != nil {
			return product, nil
		}
	}
	return s.store.GetProductByID(ctx, productID)
}

// AddOrIncrement upserts a cart line, adding quantity to any existing line
// for the same product.
func (s *CartService) AddOrIncrement(ctx context.Context, userID, productID int64, quantity int) (*models.CartLine, error) {
	ctx, span := util.StartSpan(ctx, "CartService.AddOrIncrement")
	defer span.End()

	if quantity <= 0 {
		return nil, &models.ValidationError{Field: "quantity", Reason: "must be positive"}
	}

	product, err := s.loadProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	existing := 0
	if line, err := s.store.GetCartLine(ctx, userID, productID); err != nil {
		return nil, err
	} else if line != nil {
		existing = line.Quantity
	}

	if existing+quantity > product.StockQuantity {
		return nil, &models.InsufficientStockError{
			ProductID:   product.ID,
			ProductName: product.Name,
			Requested:   existing + quantity,
			Available:   product.StockQuantity,
		}
	}

	line, err := s.store.UpsertCartLine(ctx, userID, productID, quantity)
	if err != nil {
		return nil, err
	}

	util.CartMutationsTotal.WithLabelValues(models.CartActionAdded).Inc()
	s.publishCartUpdated(ctx, userID, models.CartActionAdded)
	return line, nil
}

// SetQuantity overwrites a line's quantity. A non-positive quantity removes
// the line; that is treated as removal, not an error.
func (s *CartService) SetQuantity(ctx context.Context, userID, productID int64, quantity int) (*models.CartLine, error) {
	ctx, span := util.StartSpan(ctx, "CartService.SetQuantity")
	defer span.End()

	if quantity <= 0 {
		if err := s.store.DeleteCartLine(ctx, userID, productID); err != nil {
			return nil, err
		}
		util.CartMutationsTotal.WithLabelValues(models.CartActionRemoved).Inc()
		s.publishCartUpdated(ctx, userID, models.CartActionRemoved)
		return nil, nil
	}

	product, err := s.loadProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if quantity > product.StockQuantity {
		return nil, &models.InsufficientStockError{
			ProductID:   product.ID,
			ProductName: product.Name,
			Requested:   quantity,
			Available:   product.StockQuantity,
		}
	}

	line, err := s.store.SetCartLineQuantity(ctx, userID, productID, quantity)
	if err != nil {
		return nil, err
	}

	util.CartMutationsTotal.WithLabelValues(models.CartActionUpdated).Inc()
	s.publishCartUpdated(ctx, userID, models.CartActionUpdated)
	return line, nil
}

// Remove deletes one line from the user's cart.
func (s *CartService) Remove(ctx context.Context, userID, productID int64) error {
	if err := s.store.DeleteCartLine(ctx, userID, productID); err != nil {
		return fmt.Errorf("failed to remove cart line: %w", err)
	}
	util.CartMutationsTotal.WithLabelValues(models.CartActionRemoved).Inc()
	s.publishCartUpdated(ctx, userID, models.CartActionRemoved)
	return nil
}

// Clear wipes the user's cart. The order coordinator does not call this;
// its cart wipe runs inside the order transaction.
func (s *CartService) Clear(ctx context.Context, userID int64) error {
	if err := s.store.ClearCart(ctx, userID); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	util.CartMutationsTotal.WithLabelValues(models.CartActionCleared).Inc()
	s.publishCartUpdated(ctx, userID, models.CartActionCleared)
	return nil
}

// publishCartUpdated tells the owning user's sessions to refetch their
// cart. The payload carries no cart state.
func (s *CartService) publishCartUpdated(ctx context.Context, userID int64, action string) {
	s.events.Publish(ctx, &models.CartUpdatedEvent{
		BaseEvent: models.BaseEvent{
			EventType:    models.EventTypeCartUpdated,
			TargetUserID: userID,
		},
		UserID: userID,
		Action: action,
	})
}
