package service

import (
	"context"
	"testing"

	"storefront-service/internal/models"
	"storefront-service/internal/util"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeOrderStore is an in-memory orderStore. WithTx buffers all writes in
// the transaction and applies them only when the closure succeeds, so the
// abort path leaves the store untouched just like a rolled-back transaction.
type fakeOrderStore struct {
	products  map[int64]*models.Product
	users     map[int64]*models.User
	history   map[int64]models.UserOrderHistory
	carts     map[int64]int
	orders    []*models.Order
	items     []models.OrderLineItem
	shipments []*models.Shipment
	ledger    []models.InventoryTransaction
	nextID    int64
}

func newFakeOrderStore() *fakeOrderStore {
	return &fakeOrderStore{
		products: map[int64]*models.Product{},
		users:    map[int64]*models.User{},
		history:  map[int64]models.UserOrderHistory{},
		carts:    map[int64]int{},
	}
}

func (f *fakeOrderStore) addProduct(id int64, name, price string, stock int) {
	f.products[id] = &models.Product{
		ID:            id,
		SKU:           name,
		Name:          name,
		Price:         decimal.RequireFromString(price),
		StockQuantity: stock,
		MinStock:      5,
	}
}

func (f *fakeOrderStore) WithTx(_ context.Context, fn func(tx orderTx) error) error {
	tx := &fakeOrderTx{store: f, stock: map[int64]int{}}
	if err := fn(tx); err != nil {
		return err
	}
	for id, quantity := range tx.stock {
		f.products[id].StockQuantity = quantity
	}
	f.orders = append(f.orders, tx.orders...)
	f.items = append(f.items, tx.items...)
	f.shipments = append(f.shipments, tx.shipments...)
	f.ledger = append(f.ledger, tx.ledger...)
	for _, userID := range tx.cartCleared {
		f.carts[userID] = 0
	}
	return nil
}

func (f *fakeOrderStore) GetUserByID(_ context.Context, id int64) (*models.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, &models.NotFoundError{Entity: "user", ID: id}
	}
	return user, nil
}

func (f *fakeOrderStore) GetOrderByID(_ context.Context, id int64) (*models.Order, error) {
	for _, order := range f.orders {
		if order.ID == id {
			return order, nil
		}
	}
	return nil, &models.NotFoundError{Entity: "order", ID: id}
}

func (f *fakeOrderStore) GetOrderByTrackingNumber(_ context.Context, trackingNumber string) (*models.Order, error) {
	for _, order := range f.orders {
		if order.TrackingNumber == trackingNumber {
			return order, nil
		}
	}
	return nil, &models.NotFoundError{Entity: "order", Key: trackingNumber}
}

func (f *fakeOrderStore) GetOrdersByUserID(_ context.Context, userID int64) ([]models.Order, error) {
	var orders []models.Order
	for _, order := range f.orders {
		if order.UserID == userID {
			orders = append(orders, *order)
		}
	}
	return orders, nil
}

func (f *fakeOrderStore) GetOrderLineItems(_ context.Context, orderID int64) ([]models.OrderLineItem, error) {
	var items []models.OrderLineItem
	for _, item := range f.items {
		if item.OrderID == orderID {
			items = append(items, item)
		}
	}
	return items, nil
}

func (f *fakeOrderStore) UpdateOrderStatus(_ context.Context, orderID int64, status string) error {
	for _, order := range f.orders {
		if order.ID == orderID {
			order.Status = status
			return nil
		}
	}
	return &models.NotFoundError{Entity: "order", ID: orderID}
}

type fakeOrderTx struct {
	store       *fakeOrderStore
	stock       map[int64]int
	orders      []*models.Order
	items       []models.OrderLineItem
	shipments   []*models.Shipment
	ledger      []models.InventoryTransaction
	cartCleared []int64
}

func (t *fakeOrderTx) GetProductForUpdate(_ context.Context, id int64) (*models.Product, error) {
	product, ok := t.store.products[id]
	if !ok {
		return nil, &models.NotFoundError{Entity: "product", ID: id}
	}
	view := *product
	if quantity, ok := t.stock[id]; ok {
		view.StockQuantity = quantity
	}
	return &view, nil
}

func (t *fakeOrderTx) GetUserOrderHistory(_ context.Context, userID int64) (*models.UserOrderHistory, error) {
	history := t.store.history[userID]
	return &history, nil
}

func (t *fakeOrderTx) InsertOrder(_ context.Context, order *models.Order) error {
	t.store.nextID++
	order.ID = t.store.nextID
	t.orders = append(t.orders, order)
	return nil
}

func (t *fakeOrderTx) InsertOrderLineItem(_ context.Context, item *models.OrderLineItem) error {
	t.store.nextID++
	item.ID = t.store.nextID
	t.items = append(t.items, *item)
	return nil
}

func (t *fakeOrderTx) DecrementStock(_ context.Context, product *models.Product, quantity int, reason string, actor int64) (*models.InventoryTransaction, error) {
	if product.StockQuantity < quantity {
		return nil, &models.InsufficientStockError{
			ProductID:   product.ID,
			ProductName: product.Name,
			Requested:   quantity,
			Available:   product.StockQuantity,
		}
	}
	row := models.InventoryTransaction{
		ProductID:        product.ID,
		Type:             models.InventoryTxSale,
		QuantityDelta:    -quantity,
		PreviousQuantity: product.StockQuantity,
		NewQuantity:      product.StockQuantity - quantity,
		Reason:           reason,
		CreatedBy:        actor,
	}
	product.StockQuantity = row.NewQuantity
	t.stock[product.ID] = row.NewQuantity
	t.ledger = append(t.ledger, row)
	return &row, nil
}

func (t *fakeOrderTx) InsertShipment(_ context.Context, shipment *models.Shipment) error {
	t.store.nextID++
	shipment.ID = t.store.nextID
	t.shipments = append(t.shipments, shipment)
	return nil
}

func (t *fakeOrderTx) ClearCart(_ context.Context, userID int64) error {
	t.cartCleared = append(t.cartCleared, userID)
	return nil
}

func newTestOrderService(store orderStore, sink EventSink) *OrderService {
	return &OrderService{store: store, events: sink, logger: util.GetLogger()}
}

func TestPlaceOrderCommitsAllEntitiesAndBroadcastsInOrder(t *testing.T) {
	f := newFakeOrderStore()
	f.addProduct(1, "Desk Lamp", "19.99", 10)
	f.users[5] = &models.User{ID: 5, Name: "Alice", Email: "alice@example.com", Role: models.RoleCustomer}
	f.carts[5] = 1
	sink := &recordingSink{}
	svc := newTestOrderService(f, sink)

	resp, err := svc.PlaceOrder(context.Background(), &PlaceOrderRequest{
		UserID:          5,
		Items:           []OrderItemRequest{{ProductID: 1, Quantity: 2}},
		ShippingAddress: "1 Main St",
	})
	require.NoError(t, err)

	assert.NotZero(t, resp.OrderID)
	assert.Equal(t, models.OrderStatusPending, resp.Status)
	assert.True(t, resp.TotalAmount.Equal(decimal.RequireFromString("39.98")))

	require.Len(t, f.orders, 1)
	require.Len(t, f.items, 1)
	require.Len(t, f.shipments, 1)
	require.Len(t, f.ledger, 1)
	assert.True(t, f.items[0].UnitPriceAtPurchase.Equal(decimal.RequireFromString("19.99")))
	assert.Equal(t, models.ShipmentStatusPending, f.shipments[0].Status)
	assert.Equal(t, resp.TrackingNumber, f.shipments[0].TrackingNumber)
	assert.Equal(t, 8, f.products[1].StockQuantity)
	assert.Equal(t, 0, f.carts[5])

	require.Equal(t, []string{
		models.EventTypeInventoryChanged,
		models.EventTypeOrderCreated,
		models.EventTypeCartUpdated,
	}, sink.eventTypes())

	created := sink.events[1].(*models.OrderCreatedEvent)
	assert.Equal(t, "Alice", created.UserName)
	assert.Equal(t, int64(5), sink.events[2].Base().TargetUserID)
}

func TestPlaceOrderRepeatedProductLinesKeepLedgerContiguous(t *testing.T) {
	f := newFakeOrderStore()
	f.addProduct(1, "Desk Lamp", "100.00", 10)
	f.users[5] = &models.User{ID: 5, Name: "Alice"}
	sink := &recordingSink{}
	svc := newTestOrderService(f, sink)

	// Two lines for the same product must decrement through one shared
	// stock view: the second ledger row continues where the first ended.
	resp, err := svc.PlaceOrder(context.Background(), &PlaceOrderRequest{
		UserID: 5,
		Items: []OrderItemRequest{
			{ProductID: 1, Quantity: 2},
			{ProductID: 1, Quantity: 3},
		},
		ShippingAddress: "1 Main St",
	})
	require.NoError(t, err)
	assert.True(t, resp.TotalAmount.Equal(decimal.RequireFromString("500.00")))

	require.Len(t, f.ledger, 2)
	assert.Equal(t, 10, f.ledger[0].PreviousQuantity)
	assert.Equal(t, 8, f.ledger[0].NewQuantity)
	assert.Equal(t, f.ledger[0].NewQuantity, f.ledger[1].PreviousQuantity)
	assert.Equal(t, 5, f.ledger[1].NewQuantity)
	assert.Equal(t, 5, f.products[1].StockQuantity)

	// The broadcast snapshots walk the same chain, ending on live stock.
	types := sink.eventTypes()
	require.Equal(t, []string{
		models.EventTypeInventoryChanged,
		models.EventTypeInventoryChanged,
		models.EventTypeOrderCreated,
		models.EventTypeCartUpdated,
	}, types)
	first := sink.events[0].(*models.InventoryChangedEvent)
	second := sink.events[1].(*models.InventoryChangedEvent)
	assert.Equal(t, 8, first.Product.StockQuantity)
	assert.Equal(t, 5, second.Product.StockQuantity)
}

func TestPlaceOrderRepeatedProductLinesCombinedOversell(t *testing.T) {
	f := newFakeOrderStore()
	f.addProduct(1, "Desk Lamp", "10.00", 4)
	sink := &recordingSink{}
	svc := newTestOrderService(f, sink)

	// Each line alone fits in stock; together they do not.
	_, err := svc.PlaceOrder(context.Background(), &PlaceOrderRequest{
		UserID: 5,
		Items: []OrderItemRequest{
			{ProductID: 1, Quantity: 2},
			{ProductID: 1, Quantity: 3},
		},
		ShippingAddress: "1 Main St",
	})

	var stockErr *models.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 5, stockErr.Requested)
	assert.Equal(t, 4, stockErr.Available)

	assert.Empty(t, f.orders)
	assert.Empty(t, f.ledger)
	assert.Equal(t, 4, f.products[1].StockQuantity)
	assert.Empty(t, sink.eventTypes())
}

func TestPlaceOrderAbortsWithoutWritesWhenALineFails(t *testing.T) {
	f := newFakeOrderStore()
	f.addProduct(1, "Desk Lamp", "10.00", 10)
	f.addProduct(2, "Monitor Arm", "10.00", 1)
	f.carts[5] = 2
	sink := &recordingSink{}
	svc := newTestOrderService(f, sink)

	_, err := svc.PlaceOrder(context.Background(), &PlaceOrderRequest{
		UserID: 5,
		Items: []OrderItemRequest{
			{ProductID: 1, Quantity: 2},
			{ProductID: 2, Quantity: 5},
		},
		ShippingAddress: "1 Main St",
	})

	var stockErr *models.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, int64(2), stockErr.ProductID)

	// The abort leaves everything as it was: no rows, no stock change,
	// cart intact, nothing broadcast.
	assert.Empty(t, f.orders)
	assert.Empty(t, f.items)
	assert.Empty(t, f.shipments)
	assert.Empty(t, f.ledger)
	assert.Equal(t, 10, f.products[1].StockQuantity)
	assert.Equal(t, 1, f.products[2].StockQuantity)
	assert.Equal(t, 2, f.carts[5])
	assert.Empty(t, sink.eventTypes())
}

func TestPlaceOrderUnknownProductFails(t *testing.T) {
	f := newFakeOrderStore()
	sink := &recordingSink{}
	svc := newTestOrderService(f, sink)

	_, err := svc.PlaceOrder(context.Background(), &PlaceOrderRequest{
		UserID:          5,
		Items:           []OrderItemRequest{{ProductID: 99, Quantity: 1}},
		ShippingAddress: "1 Main St",
	})

	var notFoundErr *models.NotFoundError
	require.ErrorAs(t, err, &notFoundErr)
	assert.Empty(t, f.orders)
	assert.Empty(t, sink.eventTypes())
}
