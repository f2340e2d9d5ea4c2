package broadcast

import (
	"context"
	"time"

	"storefront-service/internal/broker"
	"storefront-service/internal/models"
	"storefront-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Dispatcher stamps domain events and delivers them both to the local hub
// and to the durable Kafka stream. Publishing happens after the order
// transaction has committed and is strictly best-effort: failures are
// logged, never propagated.
type Dispatcher struct {
	hub      *Hub
	producer *broker.Producer
	origin   string
	logger   *zap.Logger
}

// NewDispatcher creates a dispatcher. The producer may be nil when running
// without Kafka (tests, single-instance deployments).
func NewDispatcher(hub *Hub, producer *broker.Producer) *Dispatcher {
	return &Dispatcher{
		hub:      hub,
		producer: producer,
		origin:   uuid.New().String(),
		logger:   util.GetLogger(),
	}
}

// Origin identifies this instance; the relay worker skips events carrying
// it to avoid double delivery.
func (d *Dispatcher) Origin() string {
	return d.origin
}

// Hub returns the local session hub.
func (d *Dispatcher) Hub() *Hub {
	return d.hub
}

// Publish stamps and fans out one event.
func (d *Dispatcher) Publish(ctx context.Context, event models.DomainEvent) {
	base := event.Base()
	if base.EventID == "" {
		base.EventID = uuid.New().String()
	}
	if base.Timestamp.IsZero() {
		base.Timestamp = time.Now().UTC()
	}
	base.Origin = d.origin

	d.hub.Deliver(event)

	if d.producer == nil {
		return
	}
	if err := d.producer.PublishEvent(ctx, broker.EventKey(event), event); err != nil {
		d.logger.Error("Failed to publish event to kafka",
			zap.String("event_type", base.EventType),
			zap.String("event_id", base.EventID),
			zap.Error(err))
	}
}
