package broker

import (
	"encoding/json"
	"fmt"

	"storefront-service/internal/models"
)

// EventKey derives the Kafka message key for a domain event so that all
// events for one user (and therefore one order flow) stay ordered within a
// partition.
func EventKey(event models.DomainEvent) string {
	switch e := event.(type) {
	case *models.InventoryChangedEvent:
		return fmt.Sprintf("product-%d", e.Product.ID)
	case *models.OrderCreatedEvent:
		return fmt.Sprintf("order-%d", e.Order.ID)
	case *models.OrderStatusChangedEvent:
		return fmt.Sprintf("order-%d", e.OrderID)
	case *models.ShipmentStatusChangedEvent:
		return fmt.Sprintf("order-%d", e.OrderID)
	case *models.CartUpdatedEvent:
		return fmt.Sprintf("cart-%d", e.UserID)
	default:
		return event.Base().EventID
	}
}

// DecodeEvent reassembles a concrete domain event from its wire form. Used
// by the relay worker to re-broadcast events emitted by other instances.
func DecodeEvent(data []byte) (models.DomainEvent, error) {
	var base models.BaseEvent
	if err := json.Unmarshal(data, &base); err != nil {
		return nil, fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	var event models.DomainEvent
	switch base.EventType {
	case models.EventTypeInventoryChanged:
		event = &models.InventoryChangedEvent{}
	case models.EventTypeOrderCreated:
		event = &models.OrderCreatedEvent{}
	case models.EventTypeCartUpdated:
		event = &models.CartUpdatedEvent{}
	case models.EventTypeOrderStatusChanged:
		event = &models.OrderStatusChangedEvent{}
	case models.EventTypeShipmentStatusChange:
		event = &models.ShipmentStatusChangedEvent{}
	default:
		return nil, fmt.Errorf("unknown event type: %s", base.EventType)
	}

	if err := json.Unmarshal(data, event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s event: %w", base.EventType, err)
	}
	return event, nil
}
