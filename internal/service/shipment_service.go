package service

import (
	"context"
	"fmt"
	"time"

	"storefront-service/internal/models"
	"storefront-service/internal/store"
	"storefront-service/internal/util"

	"go.uber.org/zap"
)

// shipmentTransitions lists the legal next states of a shipment. Its
// lifecycle is independent of the order's; failed_attempt loops back into
// the delivery flow.
var shipmentTransitions = map[string][]string{
	models.ShipmentStatusPending: {
		models.ShipmentStatusInTransit, models.ShipmentStatusCancelled,
	},
	models.ShipmentStatusInTransit: {
		models.ShipmentStatusOutForDelivery, models.ShipmentStatusFailedAttempt, models.ShipmentStatusCancelled,
	},
	models.ShipmentStatusOutForDelivery: {
		models.ShipmentStatusDelivered, models.ShipmentStatusFailedAttempt, models.ShipmentStatusCancelled,
	},
	models.ShipmentStatusFailedAttempt: {
		models.ShipmentStatusInTransit, models.ShipmentStatusOutForDelivery, models.ShipmentStatusCancelled,
	},
	models.ShipmentStatusDelivered: {},
	models.ShipmentStatusCancelled: {},
}

// ShipmentService drives shipment lifecycles (admin operation) and
// broadcasts every change to watching sessions.
type ShipmentService struct {
	store  *store.Store
	events EventSink
	logger *zap.Logger
}

// NewShipmentService creates a new shipment service.
func NewShipmentService(store *store.Store, events EventSink) *ShipmentService {
	return &ShipmentService{
		store:  store,
		events: events,
		logger: util.GetLogger(),
	}
}

// UpdateShipmentRequest carries an admin shipment update.
type UpdateShipmentRequest struct {
	Status            string     `json:"status" binding:"required"`
	CurrentLocation   string     `json:"current_location"`
	EstimatedDelivery *time.Time `json:"estimated_delivery"`
	Notes             string     `json:"notes"`
}

// GetShipment retrieves a shipment by ID.
func (s *ShipmentService) GetShipment(ctx context.Context, shipmentID int64) (*models.Shipment, error) {
	return s.store.GetShipmentByID(ctx, shipmentID)
}

// GetShipmentForOrder retrieves the shipment belonging to an order.
func (s *ShipmentService) GetShipmentForOrder(ctx context.Context, orderID int64) (*models.Shipment, error) {
	return s.store.GetShipmentByOrderID(ctx, orderID)
}

// UpdateShipment moves a shipment through its lifecycle and broadcasts the
// change. Reaching delivered stamps the actual delivery time.
func (s *ShipmentService) UpdateShipment(ctx context.Context, shipmentID int64, req *UpdateShipmentRequest) (*models.Shipment, error) {
	ctx, span := util.StartSpan(ctx, "ShipmentService.UpdateShipment")
	defer span.End()

	shipment, err := s.store.GetShipmentByID(ctx, shipmentID)
	if err != nil {
		return nil, err
	}
	if !canTransition(shipmentTransitions, shipment.Status, req.Status) {
		return nil, &models.ValidationError{
			Field:  "status",
			Reason: fmt.Sprintf("cannot transition shipment from %s to %s", shipment.Status, req.Status),
		}
	}

	shipment.Status = req.Status
	if req.CurrentLocation != "" {
		shipment.CurrentLocation = req.CurrentLocation
	}
	if req.EstimatedDelivery != nil {
		shipment.EstimatedDelivery = req.EstimatedDelivery
	}
	if req.Notes != "" {
		shipment.Notes = req.Notes
	}
	if req.Status == models.ShipmentStatusDelivered {
		now := time.Now().UTC()
		shipment.ActualDelivery = &now
	}

	if err := s.store.UpdateShipment(ctx, shipment); err != nil {
		return nil, err
	}

	order, err := s.store.GetOrderByID(ctx, shipment.OrderID)
	if err != nil {
		return nil, err
	}

	s.events.Publish(ctx, &models.ShipmentStatusChangedEvent{
		BaseEvent:       models.BaseEvent{EventType: models.EventTypeShipmentStatusChange},
		ShipmentID:      shipment.ID,
		OrderID:         shipment.OrderID,
		UserID:          order.UserID,
		Status:          shipment.Status,
		CurrentLocation: shipment.CurrentLocation,
		TrackingNumber:  shipment.TrackingNumber,
	})

	s.logger.Info("Shipment updated",
		zap.Int64("shipment_id", shipment.ID),
		zap.Int64("order_id", shipment.OrderID),
		zap.String("status", shipment.Status))
	return shipment, nil
}
