package broadcast

import (
	"context"
	"encoding/json"
	"testing"

	"storefront-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(s *Session) []Envelope {
	var out []Envelope
	for {
		select {
		case env := <-s.Events():
			out = append(out, env)
		default:
			return out
		}
	}
}

func inventoryEvent(productID int64) *models.InventoryChangedEvent {
	return &models.InventoryChangedEvent{
		BaseEvent: models.BaseEvent{EventType: models.EventTypeInventoryChanged},
		Product:   models.Product{ID: productID, Name: "Widget"},
	}
}

func TestHubDeliversToAllSessions(t *testing.T) {
	hub := NewHub(NewMemoryRegistry())

	alice := NewSession(1, models.RoleCustomer, 8)
	bob := NewSession(2, models.RoleCustomer, 8)
	hub.Connect(alice)
	hub.Connect(bob)

	hub.Deliver(inventoryEvent(7))

	require.Len(t, drain(alice), 1)
	require.Len(t, drain(bob), 1)
}

func TestHubFiltersByTargetUser(t *testing.T) {
	hub := NewHub(NewMemoryRegistry())

	alice := NewSession(1, models.RoleCustomer, 8)
	bob := NewSession(2, models.RoleCustomer, 8)
	hub.Connect(alice)
	hub.Connect(bob)

	hub.Deliver(&models.CartUpdatedEvent{
		BaseEvent: models.BaseEvent{
			EventType:    models.EventTypeCartUpdated,
			TargetUserID: 1,
		},
		UserID: 1,
		Action: models.CartActionCleared,
	})

	require.Len(t, drain(alice), 1)
	assert.Empty(t, drain(bob))
}

func TestHubFiltersByTargetRole(t *testing.T) {
	hub := NewHub(NewMemoryRegistry())

	admin := NewSession(1, models.RoleAdmin, 8)
	customer := NewSession(2, models.RoleCustomer, 8)
	hub.Connect(admin)
	hub.Connect(customer)

	event := inventoryEvent(7)
	event.TargetRole = models.RoleAdmin
	hub.Deliver(event)

	require.Len(t, drain(admin), 1)
	assert.Empty(t, drain(customer))
}

func TestHubDisconnectStopsDelivery(t *testing.T) {
	hub := NewHub(NewMemoryRegistry())

	s := NewSession(1, models.RoleCustomer, 8)
	hub.Connect(s)
	hub.Disconnect(s.ID)

	hub.Deliver(inventoryEvent(7))

	assert.Empty(t, drain(s))
}

func TestHubDropsWhenSessionBufferFull(t *testing.T) {
	hub := NewHub(NewMemoryRegistry())

	slow := NewSession(1, models.RoleCustomer, 2)
	hub.Connect(slow)

	for i := 0; i < 5; i++ {
		hub.Deliver(inventoryEvent(int64(i)))
	}

	// Delivery is at-most-once: overflow is dropped, never queued.
	assert.Len(t, drain(slow), 2)
}

func TestDispatcherStampsAndDelivers(t *testing.T) {
	hub := NewHub(NewMemoryRegistry())
	dispatcher := NewDispatcher(hub, nil)

	s := NewSession(1, models.RoleCustomer, 8)
	hub.Connect(s)

	event := inventoryEvent(7)
	dispatcher.Publish(context.Background(), event)

	assert.NotEmpty(t, event.EventID)
	assert.False(t, event.Timestamp.IsZero())
	assert.Equal(t, dispatcher.Origin(), event.Origin)

	envs := drain(s)
	require.Len(t, envs, 1)
	assert.Equal(t, models.EventTypeInventoryChanged, envs[0].EventType)

	var decoded models.InventoryChangedEvent
	require.NoError(t, json.Unmarshal(envs[0].Payload, &decoded))
	assert.Equal(t, int64(7), decoded.Product.ID)
	assert.Equal(t, event.EventID, decoded.EventID)
}

func TestDeliverOrderPlacementSequence(t *testing.T) {
	// One successful order emits inventory_changed per product, then
	// order_created, then the owner's cart invalidation. Sessions observe
	// that order.
	hub := NewHub(NewMemoryRegistry())
	dispatcher := NewDispatcher(hub, nil)

	owner := NewSession(1, models.RoleCustomer, 8)
	watcher := NewSession(2, models.RoleCustomer, 8)
	hub.Connect(owner)
	hub.Connect(watcher)

	ctx := context.Background()
	dispatcher.Publish(ctx, inventoryEvent(1))
	dispatcher.Publish(ctx, inventoryEvent(2))
	dispatcher.Publish(ctx, &models.OrderCreatedEvent{
		BaseEvent: models.BaseEvent{EventType: models.EventTypeOrderCreated},
		Order:     models.Order{ID: 9, UserID: 1},
	})
	dispatcher.Publish(ctx, &models.CartUpdatedEvent{
		BaseEvent: models.BaseEvent{EventType: models.EventTypeCartUpdated, TargetUserID: 1},
		UserID:    1,
		Action:    models.CartActionCleared,
	})

	ownerKinds := kinds(drain(owner))
	assert.Equal(t, []string{
		models.EventTypeInventoryChanged,
		models.EventTypeInventoryChanged,
		models.EventTypeOrderCreated,
		models.EventTypeCartUpdated,
	}, ownerKinds)

	// The watcher sees everything except the targeted cart notice.
	watcherKinds := kinds(drain(watcher))
	assert.Equal(t, []string{
		models.EventTypeInventoryChanged,
		models.EventTypeInventoryChanged,
		models.EventTypeOrderCreated,
	}, watcherKinds)
}

func kinds(envs []Envelope) []string {
	out := make([]string, len(envs))
	for i, env := range envs {
		out[i] = env.EventType
	}
	return out
}
