package service

import (
	"context"
	"testing"

	"storefront-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddOrIncrementRejectsNonPositiveQuantity(t *testing.T) {
	svc := &CartService{}

	for _, quantity := range []int{0, -1} {
		_, err := svc.AddOrIncrement(context.Background(), 1, 1, quantity)
		var validationErr *models.ValidationError
		require.ErrorAs(t, err, &validationErr)
		assert.Equal(t, "quantity", validationErr.Field)
	}
}

func TestCartStockAwareIntegration(t *testing.T) {
	t.Skip("Integration test - requires database")

	s := openTestStore(t)
	ctx := context.Background()

	userID := seedUser(t, s, "cart-stock@example.com")
	product := seedProduct(t, s, "CART-STOCK-1", "10.00", 5)

	sink := &recordingSink{}
	svc := NewCartService(s, nil, sink)

	// Adds merge and stay within stock.
	line, err := svc.AddOrIncrement(ctx, userID, product.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, line.Quantity)

	_, err = svc.AddOrIncrement(ctx, userID, product.ID, 4)
	var stockErr *models.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 7, stockErr.Requested)
	assert.Equal(t, 5, stockErr.Available)

	line, err = svc.AddOrIncrement(ctx, userID, product.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, 5, line.Quantity)

	// Setting a non-positive quantity removes the line.
	line, err = svc.SetQuantity(ctx, userID, product.ID, 0)
	require.NoError(t, err)
	assert.Nil(t, line)

	lines, err := svc.GetLines(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, lines)

	// Every mutation told the owner's sessions to refetch.
	for _, event := range sink.events {
		assert.Equal(t, models.EventTypeCartUpdated, event.Base().EventType)
		assert.Equal(t, userID, event.Base().TargetUserID)
	}
	assert.Len(t, sink.events, 4)
}
