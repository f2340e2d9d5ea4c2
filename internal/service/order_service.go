package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront-service/internal/models"
	"storefront-service/internal/redisclient"
	"storefront-service/internal/store"
	"storefront-service/internal/util"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// EventSink receives committed domain events for broadcasting. Publishing
// is fire-and-forget: it runs after commit and can never fail an order.
type EventSink interface {
	Publish(ctx context.Context, event models.DomainEvent)
}

// orderTx is the slice of the storage transaction that order placement
// writes through. *store.Tx satisfies it; tests substitute an in-memory
// fake to exercise the placement algorithm without a database.
type orderTx interface {
	GetProductForUpdate(ctx context.Context, id int64) (*models.Product, error)
	GetUserOrderHistory(ctx context.Context, userID int64) (*models.UserOrderHistory, error)
	InsertOrder(ctx context.Context, order *models.Order) error
	InsertOrderLineItem(ctx context.Context, item *models.OrderLineItem) error
	DecrementStock(ctx context.Context, product *models.Product, quantity int, reason string, actor int64) (*models.InventoryTransaction, error)
	InsertShipment(ctx context.Context, shipment *models.Shipment) error
	ClearCart(ctx context.Context, userID int64) error
}

// orderStore is the storage surface the order service depends on.
type orderStore interface {
	WithTx(ctx context.Context, fn func(tx orderTx) error) error
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetOrderByID(ctx context.Context, id int64) (*models.Order, error)
	GetOrderByTrackingNumber(ctx context.Context, trackingNumber string) (*models.Order, error)
	GetOrdersByUserID(ctx context.Context, userID int64) ([]models.Order, error)
	GetOrderLineItems(ctx context.Context, orderID int64) ([]models.OrderLineItem, error)
	UpdateOrderStatus(ctx context.Context, orderID int64, status string) error
}

// sqlOrderStore adapts the concrete store's transaction type to orderTx.
type sqlOrderStore struct {
	*store.Store
}

func (s sqlOrderStore) WithTx(ctx context.Context, fn func(tx orderTx) error) error {
	return s.Store.WithTx(ctx, func(tx *store.Tx) error { return fn(tx) })
}

// OrderService coordinates the order placement transaction: validation,
// stock reservation, fraud scoring, persistence and the post-commit
// broadcast fan-out.
type OrderService struct {
	store  orderStore
	cache  *redisclient.Client
	events EventSink
	logger *zap.Logger
}

// NewOrderService creates a new order service. cache may be nil when
// running without Redis.
func NewOrderService(store *store.Store, cache *redisclient.Client, events EventSink) *OrderService {
	return &OrderService{
		store:  sqlOrderStore{store},
		cache:  cache,
		events: events,
		logger: util.GetLogger(),
	}
}

// PlaceOrderRequest represents a request to place an order
type PlaceOrderRequest struct {
	UserID          int64              `json:"user_id" binding:"required"`
	Items           []OrderItemRequest `json:"items" binding:"required,min=1,dive"`
	ShippingAddress string             `json:"shipping_address" binding:"required"`
}

// OrderItemRequest represents one requested line
type OrderItemRequest struct {
	ProductID int64 `json:"product_id" binding:"required"`
	Quantity  int   `json:"quantity" binding:"required,min=1"`
}

// PlaceOrderResponse represents the response after placing an order
type PlaceOrderResponse struct {
	OrderID        int64           `json:"order_id"`
	TrackingNumber string          `json:"tracking_number"`
	Status         string          `json:"status"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	FraudRisk      string          `json:"fraud_risk"`
	FraudReasons   []string        `json:"fraud_reasons"`
}

// validate rejects malformed input before any storage access.
func (req *PlaceOrderRequest) validate() error {
	if req.UserID == 0 {
		return &models.ValidationError{Field: "user_id", Reason: "required"}
	}
	if len(req.Items) == 0 {
		return &models.ValidationError{Field: "items", Reason: "must not be empty"}
	}
	if strings.TrimSpace(req.ShippingAddress) == "" {
		return &models.ValidationError{Field: "shipping_address", Reason: "required"}
	}
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			return &models.ValidationError{
				Field:  "quantity",
				Reason: fmt.Sprintf("must be positive for product %d", item.ProductID),
			}
		}
	}
	return nil
}

// PlaceOrder runs the whole order placement as one atomic unit: for every
// requested line it locks the product row, checks and decrements stock, and
// appends the audit row; it snapshots unit prices, scores fraud risk,
// persists the order with its line items and pending shipment, and clears
// the cart. Either everything commits or nothing does. Broadcasting happens
// after commit and never rolls the order back.
func (s *OrderService) PlaceOrder(ctx context.Context, req *PlaceOrderRequest) (*PlaceOrderResponse, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.PlaceOrder")
	defer span.End()

	start := time.Now()
	defer func() {
		util.OrderPlacementLatency.Observe(time.Since(start).Seconds())
	}()

	if err := req.validate(); err != nil {
		util.OrdersFailedTotal.WithLabelValues("invalid_request").Inc()
		return nil, err
	}

	var (
		order     *models.Order
		lineItems []models.OrderLineItem
		snapshots []models.Product
	)

	err := s.store.WithTx(ctx, func(tx orderTx) error {
		// Lock each distinct product once and validate every line before
		// writing anything. Lines for the same product share one locked
		// row, so repeated decrements see each other and the ledger's
		// prev/new chain stays contiguous; the requested totals catch a
		// combined quantity exceeding stock up front.
		products := make([]*models.Product, len(req.Items))
		locked := make(map[int64]*models.Product)
		requested := make(map[int64]int)
		total := decimal.Zero
		for i, item := range req.Items {
			product, ok := locked[item.ProductID]
			if !ok {
				var err error
				product, err = tx.GetProductForUpdate(ctx, item.ProductID)
				if err != nil {
					return err
				}
				locked[item.ProductID] = product
			}
			requested[item.ProductID] += item.Quantity
			if product.StockQuantity < requested[item.ProductID] {
				return &models.InsufficientStockError{
					ProductID:   product.ID,
					ProductName: product.Name,
					Requested:   requested[item.ProductID],
					Available:   product.StockQuantity,
				}
			}
			products[i] = product
			total = total.Add(product.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
		}

		history, err := tx.GetUserOrderHistory(ctx, req.UserID)
		if err != nil {
			return err
		}

		verdict := EvaluateFraudRisk(fraudInput(total, req, products), *history)
		trackingNumber := generateTrackingNumber()

		order = &models.Order{
			UserID:          req.UserID,
			TotalAmount:     total,
			Status:          models.OrderStatusPending,
			TrackingNumber:  trackingNumber,
			ShippingAddress: req.ShippingAddress,
			FraudRisk:       verdict.Risk,
			FraudReasons:    pq.StringArray(verdict.Reasons),
		}
		if err := tx.InsertOrder(ctx, order); err != nil {
			return fmt.Errorf("failed to insert order: %w", err)
		}

		lineItems = make([]models.OrderLineItem, 0, len(req.Items))
		snapshots = make([]models.Product, 0, len(req.Items))
		for i, item := range req.Items {
			product := products[i]

			lineItem := models.OrderLineItem{
				OrderID:             order.ID,
				ProductID:           product.ID,
				Quantity:            item.Quantity,
				UnitPriceAtPurchase: product.Price,
			}
			if err := tx.InsertOrderLineItem(ctx, &lineItem); err != nil {
				return fmt.Errorf("failed to insert order line item: %w", err)
			}
			lineItems = append(lineItems, lineItem)

			reason := fmt.Sprintf("Sale for order %s", trackingNumber)
			if _, err := tx.DecrementStock(ctx, product, item.Quantity, reason, req.UserID); err != nil {
				return err
			}
			snapshots = append(snapshots, *product)
		}

		shipment := &models.Shipment{
			OrderID:        order.ID,
			TrackingNumber: trackingNumber,
			Status:         models.ShipmentStatusPending,
		}
		if err := tx.InsertShipment(ctx, shipment); err != nil {
			return fmt.Errorf("failed to insert shipment: %w", err)
		}

		return tx.ClearCart(ctx, req.UserID)
	})
	if err != nil {
		s.recordFailure(err)
		return nil, err
	}

	util.OrdersPlacedTotal.Inc()
	util.FraudVerdictsTotal.WithLabelValues(order.FraudRisk).Inc()
	s.logger.Info("Order placed",
		zap.Int64("order_id", order.ID),
		zap.Int64("user_id", order.UserID),
		zap.String("tracking_number", order.TrackingNumber),
		zap.String("fraud_risk", order.FraudRisk))

	s.afterCommit(ctx, order, lineItems, snapshots)

	return &PlaceOrderResponse{
		OrderID:        order.ID,
		TrackingNumber: order.TrackingNumber,
		Status:         order.Status,
		TotalAmount:    order.TotalAmount,
		FraudRisk:      order.FraudRisk,
		FraudReasons:   []string(order.FraudReasons),
	}, nil
}

// fraudInput assembles the evaluator's view of the order draft.
func fraudInput(total decimal.Decimal, req *PlaceOrderRequest, products []*models.Product) FraudOrderInput {
	items := make([]FraudItemInput, len(req.Items))
	for i, item := range req.Items {
		items[i] = FraudItemInput{
			ProductName: products[i].Name,
			Quantity:    item.Quantity,
			UnitPrice:   products[i].Price,
		}
	}
	return FraudOrderInput{
		TotalAmount:     total.String(),
		Items:           items,
		ShippingAddress: req.ShippingAddress,
	}
}

// recordFailure buckets a failed placement for metrics.
func (s *OrderService) recordFailure(err error) {
	var (
		validationErr *models.ValidationError
		notFoundErr   *models.NotFoundError
		stockErr      *models.InsufficientStockError
		conflictErr   *models.ConflictError
	)
	switch {
	case errors.As(err, &stockErr):
		util.InsufficientStockTotal.Inc()
		util.OrdersFailedTotal.WithLabelValues("insufficient_stock").Inc()
	case errors.As(err, &notFoundErr):
		util.OrdersFailedTotal.WithLabelValues("product_not_found").Inc()
	case errors.As(err, &validationErr):
		util.OrdersFailedTotal.WithLabelValues("invalid_request").Inc()
	case errors.As(err, &conflictErr):
		util.OrdersFailedTotal.WithLabelValues("conflict").Inc()
	default:
		util.OrdersFailedTotal.WithLabelValues("internal").Inc()
	}
}

// afterCommit refreshes the redis mirror and broadcasts the order's state
// changes in the documented per-order sequence: every inventory_changed,
// then order_created, then the cart invalidation for the owning user.
func (s *OrderService) afterCommit(ctx context.Context, order *models.Order, items []models.OrderLineItem, snapshots []models.Product) {
	if s.cache != nil {
		if err := s.cache.SyncProducts(ctx, snapshots); err != nil {
			s.logger.Warn("Failed to refresh product cache", zap.Error(err))
		}
	}

	for i := range snapshots {
		product := snapshots[i]
		low := product.LowStock()
		if low {
			util.LowStockAlertsTotal.Inc()
		}
		util.StockDecrementsTotal.Inc()
		s.events.Publish(ctx, &models.InventoryChangedEvent{
			BaseEvent: models.BaseEvent{EventType: models.EventTypeInventoryChanged},
			Product:   product,
			LowStock:  low,
		})
	}

	created := &models.OrderCreatedEvent{
		BaseEvent: models.BaseEvent{EventType: models.EventTypeOrderCreated},
		Order:     *order,
		Items:     items,
	}
	if user, err := s.store.GetUserByID(ctx, order.UserID); err == nil {
		created.UserName = user.Name
		created.UserEmail = user.Email
	} else {
		s.logger.Warn("Failed to load user display fields for broadcast",
			zap.Int64("user_id", order.UserID), zap.Error(err))
	}
	s.events.Publish(ctx, created)

	s.events.Publish(ctx, &models.CartUpdatedEvent{
		BaseEvent: models.BaseEvent{
			EventType:    models.EventTypeCartUpdated,
			TargetUserID: order.UserID,
		},
		UserID: order.UserID,
		Action: models.CartActionCleared,
	})
}

// generateTrackingNumber builds a time-based tracking number with a random
// suffix. Uniqueness is enforced by the storage constraint, not here.
func generateTrackingNumber() string {
	return fmt.Sprintf("TRK-%s-%s",
		time.Now().UTC().Format("20060102150405"),
		strings.ToUpper(uuid.New().String()[:8]))
}

// orderTransitions lists the legal next states of an order. Cancellation is
// reachable from every non-terminal state.
var orderTransitions = map[string][]string{
	models.OrderStatusPending:    {models.OrderStatusProcessing, models.OrderStatusCancelled},
	models.OrderStatusProcessing: {models.OrderStatusShipped, models.OrderStatusCancelled},
	models.OrderStatusShipped:    {models.OrderStatusDelivered, models.OrderStatusCancelled},
	models.OrderStatusDelivered:  {},
	models.OrderStatusCancelled:  {},
}

func canTransition(table map[string][]string, from, to string) bool {
	for _, next := range table[from] {
		if next == to {
			return true
		}
	}
	return false
}

// UpdateOrderStatus moves an order through its lifecycle (admin operation)
// and broadcasts the change.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, orderID int64, status string) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.UpdateOrderStatus")
	defer span.End()

	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !canTransition(orderTransitions, order.Status, status) {
		return nil, &models.ValidationError{
			Field:  "status",
			Reason: fmt.Sprintf("cannot transition order from %s to %s", order.Status, status),
		}
	}

	if err := s.store.UpdateOrderStatus(ctx, orderID, status); err != nil {
		return nil, err
	}
	order.Status = status

	s.events.Publish(ctx, &models.OrderStatusChangedEvent{
		BaseEvent:      models.BaseEvent{EventType: models.EventTypeOrderStatusChanged},
		OrderID:        order.ID,
		UserID:         order.UserID,
		Status:         status,
		TrackingNumber: order.TrackingNumber,
	})

	s.logger.Info("Order status updated",
		zap.Int64("order_id", orderID),
		zap.String("status", status))
	return order, nil
}

// GetOrder retrieves an order with its line items.
func (s *OrderService) GetOrder(ctx context.Context, orderID int64) (*models.Order, []models.OrderLineItem, error) {
	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}

	items, err := s.store.GetOrderLineItems(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}

	return order, items, nil
}

// GetOrderByTrackingNumber supports customer-facing tracking lookup.
func (s *OrderService) GetOrderByTrackingNumber(ctx context.Context, trackingNumber string) (*models.Order, error) {
	return s.store.GetOrderByTrackingNumber(ctx, trackingNumber)
}

// ListUserOrders retrieves a user's orders, newest first.
func (s *OrderService) ListUserOrders(ctx context.Context, userID int64) ([]models.Order, error) {
	return s.store.GetOrdersByUserID(ctx, userID)
}
