package models

import (
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Product represents a product in the catalog. StockQuantity is only ever
// mutated through the inventory ledger, never by direct assignment.
type Product struct {
	ID            int64           `db:"id" json:"id"`
	SKU           string          `db:"sku" json:"sku"`
	Name          string          `db:"name" json:"name"`
	Price         decimal.Decimal `db:"price" json:"price"`
	StockQuantity int             `db:"stock_quantity" json:"stock_quantity"`
	MinStock      int             `db:"min_stock" json:"min_stock"`
	Location      string          `db:"location" json:"location"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
}

// LowStock reports whether the product is at or below its reorder threshold.
func (p *Product) LowStock() bool {
	return p.StockQuantity <= p.MinStock
}

// CartLine is one (user, product) entry in a cart. At most one line exists
// per pair; it is deleted when quantity reaches zero or an order succeeds.
type CartLine struct {
	ID          int64           `db:"id" json:"id"`
	UserID      int64           `db:"user_id" json:"user_id"`
	ProductID   int64           `db:"product_id" json:"product_id"`
	Quantity    int             `db:"quantity" json:"quantity"`
	ProductName string          `db:"product_name" json:"product_name"`
	UnitPrice   decimal.Decimal `db:"unit_price" json:"unit_price"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
}

// Order represents a customer order
type Order struct {
	ID              int64           `db:"id" json:"id"`
	UserID          int64           `db:"user_id" json:"user_id"`
	TotalAmount     decimal.Decimal `db:"total_amount" json:"total_amount"`
	Status          string          `db:"status" json:"status"`
	TrackingNumber  string          `db:"tracking_number" json:"tracking_number"`
	ShippingAddress string          `db:"shipping_address" json:"shipping_address"`
	FraudRisk       string          `db:"fraud_risk" json:"fraud_risk"`
	FraudReasons    pq.StringArray  `db:"fraud_reasons" json:"fraud_reasons"`
	OrderDate       time.Time       `db:"order_date" json:"order_date"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updated_at"`
}

// OrderLineItem is one line within an order. UnitPriceAtPurchase is a
// snapshot of the product price at order time and never tracks the live price.
type OrderLineItem struct {
	ID                  int64           `db:"id" json:"id"`
	OrderID             int64           `db:"order_id" json:"order_id"`
	ProductID           int64           `db:"product_id" json:"product_id"`
	Quantity            int             `db:"quantity" json:"quantity"`
	UnitPriceAtPurchase decimal.Decimal `db:"unit_price_at_purchase" json:"unit_price_at_purchase"`
}

// Shipment tracks delivery of exactly one order. Its lifecycle is
// independent of the order's.
type Shipment struct {
	ID                int64      `db:"id" json:"id"`
	OrderID           int64      `db:"order_id" json:"order_id"`
	TrackingNumber    string     `db:"tracking_number" json:"tracking_number"`
	Status            string     `db:"status" json:"status"`
	CurrentLocation   string     `db:"current_location" json:"current_location"`
	EstimatedDelivery *time.Time `db:"estimated_delivery" json:"estimated_delivery,omitempty"`
	ActualDelivery    *time.Time `db:"actual_delivery" json:"actual_delivery,omitempty"`
	Notes             string     `db:"notes" json:"notes"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
}

// InventoryTransaction is one append-only audit row explaining a stock change.
// Invariant: PreviousQuantity + QuantityDelta == NewQuantity.
type InventoryTransaction struct {
	ID               int64     `db:"id" json:"id"`
	ProductID        int64     `db:"product_id" json:"product_id"`
	Type             string    `db:"type" json:"type"`
	QuantityDelta    int       `db:"quantity_delta" json:"quantity_delta"`
	PreviousQuantity int       `db:"previous_quantity" json:"previous_quantity"`
	NewQuantity      int       `db:"new_quantity" json:"new_quantity"`
	Reason           string    `db:"reason" json:"reason"`
	CreatedBy        int64     `db:"created_by" json:"created_by"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}

// User carries the display fields joined into order broadcasts. Account
// management itself lives outside this service.
type User struct {
	ID    int64  `db:"id" json:"id"`
	Name  string `db:"name" json:"name"`
	Email string `db:"email" json:"email"`
	Role  string `db:"role" json:"role"`
}

// UserOrderHistory is an ephemeral snapshot of a user's prior orders,
// computed fresh per order for fraud scoring. Never persisted.
type UserOrderHistory struct {
	TotalOrders int             `db:"total_orders"`
	TotalSpent  decimal.Decimal `db:"total_spent"`
}

// Order statuses
const (
	OrderStatusPending    = "pending"
	OrderStatusProcessing = "processing"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
	OrderStatusCancelled  = "cancelled"
)

// Shipment statuses
const (
	ShipmentStatusPending        = "pending"
	ShipmentStatusInTransit      = "in_transit"
	ShipmentStatusOutForDelivery = "out_for_delivery"
	ShipmentStatusDelivered      = "delivered"
	ShipmentStatusFailedAttempt  = "failed_attempt"
	ShipmentStatusCancelled      = "cancelled"
)

// Inventory transaction types
const (
	InventoryTxSale       = "sale"
	InventoryTxRestock    = "restock"
	InventoryTxAdjustment = "adjustment"
)

// Fraud risk bands
const (
	FraudRiskLow    = "low"
	FraudRiskMedium = "medium"
	FraudRiskHigh   = "high"
)

// User roles
const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// SystemActor is the created_by value for stock changes not driven by a user.
const SystemActor int64 = 0
