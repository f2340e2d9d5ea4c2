package store

import (
	"context"
	"database/sql"
	"fmt"

	"storefront-service/internal/models"
)

// InsertOrder creates the order row inside the order transaction.
func (tx *Tx) InsertOrder(ctx context.Context, order *models.Order) error {
	query := `
		INSERT INTO orders
			(user_id, total_amount, status, tracking_number, shipping_address,
			 fraud_risk, fraud_reasons, order_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		RETURNING id, order_date, created_at, updated_at`

	return tx.tx.GetContext(ctx, order, query,
		order.UserID, order.TotalAmount, order.Status, order.TrackingNumber,
		order.ShippingAddress, order.FraudRisk, order.FraudReasons)
}

// InsertOrderLineItem creates one immutable line item.
func (tx *Tx) InsertOrderLineItem(ctx context.Context, item *models.OrderLineItem) error {
	query := `
		INSERT INTO order_line_items (order_id, product_id, quantity, unit_price_at_purchase)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	return tx.tx.GetContext(ctx, &item.ID, query,
		item.OrderID, item.ProductID, item.Quantity, item.UnitPriceAtPurchase)
}

// InsertShipment creates the order's shipment row in pending state.
func (tx *Tx) InsertShipment(ctx context.Context, shipment *models.Shipment) error {
	query := `
		INSERT INTO shipments (order_id, tracking_number, status, current_location, notes)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`

	return tx.tx.GetContext(ctx, shipment, query,
		shipment.OrderID, shipment.TrackingNumber, shipment.Status,
		shipment.CurrentLocation, shipment.Notes)
}

// GetUserOrderHistory computes the ephemeral per-user history snapshot that
// feeds fraud scoring. Read inside the order transaction so the snapshot and
// the order see the same state.
func (tx *Tx) GetUserOrderHistory(ctx context.Context, userID int64) (*models.UserOrderHistory, error) {
	var history models.UserOrderHistory
	err := tx.tx.GetContext(ctx, &history,
		"SELECT COUNT(*) AS total_orders, COALESCE(SUM(total_amount), 0) AS total_spent FROM orders WHERE user_id = $1",
		userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order history: %w", err)
	}
	return &history, nil
}

// GetOrderByID retrieves an order by ID
func (s *Store) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, &models.NotFoundError{Entity: "order", ID: id}
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderByTrackingNumber supports customer-facing tracking lookup.
func (s *Store) GetOrderByTrackingNumber(ctx context.Context, trackingNumber string) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order,
		"SELECT * FROM orders WHERE tracking_number = $1", trackingNumber)
	if err == sql.ErrNoRows {
		return nil, &models.NotFoundError{Entity: "order", Key: trackingNumber}
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrdersByUserID retrieves orders for a user, newest first.
func (s *Store) GetOrdersByUserID(ctx context.Context, userID int64) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders,
		"SELECT * FROM orders WHERE user_id = $1 ORDER BY order_date DESC", userID)
	return orders, err
}

// GetOrderLineItems retrieves all line items for an order.
func (s *Store) GetOrderLineItems(ctx context.Context, orderID int64) ([]models.OrderLineItem, error) {
	var items []models.OrderLineItem
	err := s.db.SelectContext(ctx, &items,
		"SELECT * FROM order_line_items WHERE order_id = $1 ORDER BY id", orderID)
	return items, err
}

// UpdateOrderStatus moves an order through its lifecycle. Transition
// legality is checked by the service layer.
func (s *Store) UpdateOrderStatus(ctx context.Context, orderID int64, status string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2",
		status, orderID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &models.NotFoundError{Entity: "order", ID: orderID}
	}
	return nil
}

// GetShipmentByID retrieves a shipment by ID
func (s *Store) GetShipmentByID(ctx context.Context, id int64) (*models.Shipment, error) {
	var shipment models.Shipment
	err := s.db.GetContext(ctx, &shipment, "SELECT * FROM shipments WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, &models.NotFoundError{Entity: "shipment", ID: id}
	}
	if err != nil {
		return nil, err
	}
	return &shipment, nil
}

// GetShipmentByOrderID retrieves the shipment for an order.
func (s *Store) GetShipmentByOrderID(ctx context.Context, orderID int64) (*models.Shipment, error) {
	var shipment models.Shipment
	err := s.db.GetContext(ctx, &shipment,
		"SELECT * FROM shipments WHERE order_id = $1", orderID)
	if err == sql.ErrNoRows {
		return nil, &models.NotFoundError{Entity: "shipment", ID: orderID}
	}
	if err != nil {
		return nil, err
	}
	return &shipment, nil
}

// UpdateShipment updates a shipment's delivery state and location.
func (s *Store) UpdateShipment(ctx context.Context, shipment *models.Shipment) error {
	query := `
		UPDATE shipments
		SET status = $1, current_location = $2, estimated_delivery = $3,
		    actual_delivery = $4, notes = $5, updated_at = NOW()
		WHERE id = $6`

	res, err := s.db.ExecContext(ctx, query,
		shipment.Status, shipment.CurrentLocation, shipment.EstimatedDelivery,
		shipment.ActualDelivery, shipment.Notes, shipment.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &models.NotFoundError{Entity: "shipment", ID: shipment.ID}
	}
	return nil
}
