package models

import "time"

// Event types
const (
	EventTypeInventoryChanged     = "inventory_changed"
	EventTypeOrderCreated         = "order_created"
	EventTypeCartUpdated          = "cart_updated"
	EventTypeOrderStatusChanged   = "order_status_changed"
	EventTypeShipmentStatusChange = "shipment_status_changed"
)

// BaseEvent contains common fields for all events. TargetUserID and
// TargetRole scope delivery: zero values mean every connected session.
// Origin identifies the emitting instance so the relay worker can skip
// events it already delivered locally.
type BaseEvent struct {
	EventID      string    `json:"event_id"`
	EventType    string    `json:"event_type"`
	Timestamp    time.Time `json:"timestamp"`
	Origin       string    `json:"origin,omitempty"`
	TargetUserID int64     `json:"target_user_id,omitempty"`
	TargetRole   string    `json:"target_role,omitempty"`
}

// Base returns the shared event header. Event payload types embed BaseEvent
// and satisfy the DomainEvent interface through this method.
func (b *BaseEvent) Base() *BaseEvent { return b }

// DomainEvent is any broadcastable event payload.
type DomainEvent interface {
	Base() *BaseEvent
}

// InventoryChangedEvent is published for every product whose stock changed,
// carrying the full updated product snapshot.
type InventoryChangedEvent struct {
	BaseEvent
	Product  Product `json:"product"`
	LowStock bool    `json:"low_stock"`
}

// OrderCreatedEvent is published once per successfully committed order.
type OrderCreatedEvent struct {
	BaseEvent
	Order     Order           `json:"order"`
	Items     []OrderLineItem `json:"items"`
	UserName  string          `json:"user_name"`
	UserEmail string          `json:"user_email"`
}

// CartUpdatedEvent tells the owning user's sessions to refetch their cart.
// The new cart state is intentionally not included in the payload.
type CartUpdatedEvent struct {
	BaseEvent
	UserID int64  `json:"user_id"`
	Action string `json:"action"`
}

// Cart update actions
const (
	CartActionAdded   = "added"
	CartActionUpdated = "updated"
	CartActionRemoved = "removed"
	CartActionCleared = "cleared"
)

// OrderStatusChangedEvent is published when an admin moves an order through
// its lifecycle.
type OrderStatusChangedEvent struct {
	BaseEvent
	OrderID        int64  `json:"order_id"`
	UserID         int64  `json:"user_id"`
	Status         string `json:"status"`
	TrackingNumber string `json:"tracking_number"`
}

// ShipmentStatusChangedEvent is published when a shipment's delivery state
// or location changes.
type ShipmentStatusChangedEvent struct {
	BaseEvent
	ShipmentID      int64  `json:"shipment_id"`
	OrderID         int64  `json:"order_id"`
	UserID          int64  `json:"user_id"`
	Status          string `json:"status"`
	CurrentLocation string `json:"current_location"`
	TrackingNumber  string `json:"tracking_number"`
}
