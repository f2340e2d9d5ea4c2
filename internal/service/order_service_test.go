package service

import (
	"context"
	"strings"
	"testing"

	"storefront-service/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validPlaceOrderRequest() *PlaceOrderRequest {
	return &PlaceOrderRequest{
		UserID:          42,
		Items:           []OrderItemRequest{{ProductID: 1, Quantity: 2}},
		ShippingAddress: "1 Main St, Springfield",
	}
}

func TestPlaceOrderRequestValidate(t *testing.T) {
	assert.NoError(t, validPlaceOrderRequest().validate())

	tests := []struct {
		name   string
		mutate func(*PlaceOrderRequest)
		field  string
	}{
		{"missing user", func(r *PlaceOrderRequest) { r.UserID = 0 }, "user_id"},
		{"empty items", func(r *PlaceOrderRequest) { r.Items = nil }, "items"},
		{"blank address", func(r *PlaceOrderRequest) { r.ShippingAddress = "   " }, "shipping_address"},
		{"zero quantity", func(r *PlaceOrderRequest) { r.Items[0].Quantity = 0 }, "quantity"},
		{"negative quantity", func(r *PlaceOrderRequest) { r.Items[0].Quantity = -3 }, "quantity"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validPlaceOrderRequest()
			tt.mutate(req)

			err := req.validate()
			require.Error(t, err)

			var validationErr *models.ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Equal(t, tt.field, validationErr.Field)
		})
	}
}

func TestPlaceOrderRejectsInvalidInputBeforeStorage(t *testing.T) {
	// A service with no store at all: validation must fail first, so no
	// storage access ever happens.
	svc := &OrderService{}

	_, err := svc.PlaceOrder(context.Background(), &PlaceOrderRequest{UserID: 42})

	var validationErr *models.ValidationError
	require.ErrorAs(t, err, &validationErr)
}

func TestGenerateTrackingNumber(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		tn := generateTrackingNumber()
		assert.True(t, strings.HasPrefix(tn, "TRK-"), "unexpected prefix: %s", tn)
		assert.Equal(t, tn, strings.ToUpper(tn))

		_, dup := seen[tn]
		assert.False(t, dup, "duplicate tracking number: %s", tn)
		seen[tn] = struct{}{}
	}
}

func TestFraudInputSnapshotsPrices(t *testing.T) {
	req := &PlaceOrderRequest{
		UserID: 42,
		Items: []OrderItemRequest{
			{ProductID: 1, Quantity: 2},
			{ProductID: 2, Quantity: 1},
		},
		ShippingAddress: "1 Main St",
	}
	products := []*models.Product{
		{ID: 1, Name: "Laptop", Price: decimal.NewFromInt(700)},
		{ID: 2, Name: "Mouse", Price: decimal.NewFromInt(25)},
	}
	total := decimal.NewFromInt(1425)

	input := fraudInput(total, req, products)

	assert.Equal(t, "1425", input.TotalAmount)
	require.Len(t, input.Items, 2)
	assert.Equal(t, "Laptop", input.Items[0].ProductName)
	assert.Equal(t, 2, input.Items[0].Quantity)
	assert.True(t, input.Items[0].UnitPrice.Equal(decimal.NewFromInt(700)))
}

func TestOrderTransitions(t *testing.T) {
	allowed := []struct{ from, to string }{
		{models.OrderStatusPending, models.OrderStatusProcessing},
		{models.OrderStatusPending, models.OrderStatusCancelled},
		{models.OrderStatusProcessing, models.OrderStatusShipped},
		{models.OrderStatusProcessing, models.OrderStatusCancelled},
		{models.OrderStatusShipped, models.OrderStatusDelivered},
		{models.OrderStatusShipped, models.OrderStatusCancelled},
	}
	for _, tr := range allowed {
		assert.True(t, canTransition(orderTransitions, tr.from, tr.to),
			"%s -> %s should be allowed", tr.from, tr.to)
	}

	denied := []struct{ from, to string }{
		{models.OrderStatusPending, models.OrderStatusShipped},
		{models.OrderStatusPending, models.OrderStatusDelivered},
		{models.OrderStatusDelivered, models.OrderStatusCancelled},
		{models.OrderStatusCancelled, models.OrderStatusPending},
		{models.OrderStatusShipped, models.OrderStatusProcessing},
	}
	for _, tr := range denied {
		assert.False(t, canTransition(orderTransitions, tr.from, tr.to),
			"%s -> %s should be denied", tr.from, tr.to)
	}
}

func TestShipmentTransitions(t *testing.T) {
	assert.True(t, canTransition(shipmentTransitions, models.ShipmentStatusPending, models.ShipmentStatusInTransit))
	assert.True(t, canTransition(shipmentTransitions, models.ShipmentStatusInTransit, models.ShipmentStatusFailedAttempt))
	assert.True(t, canTransition(shipmentTransitions, models.ShipmentStatusFailedAttempt, models.ShipmentStatusOutForDelivery))
	assert.True(t, canTransition(shipmentTransitions, models.ShipmentStatusOutForDelivery, models.ShipmentStatusDelivered))

	assert.False(t, canTransition(shipmentTransitions, models.ShipmentStatusPending, models.ShipmentStatusDelivered))
	assert.False(t, canTransition(shipmentTransitions, models.ShipmentStatusDelivered, models.ShipmentStatusInTransit))
	assert.False(t, canTransition(shipmentTransitions, models.ShipmentStatusCancelled, models.ShipmentStatusInTransit))
}
