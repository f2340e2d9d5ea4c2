package worker

import (
	"context"

	"storefront-service/internal/broadcast"
	"storefront-service/internal/broker"
	"storefront-service/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// RelayWorker consumes the durable event stream and re-delivers events to
// this instance's session hub. It is what keeps clients connected to one
// instance consistent with orders placed on another. Events originating
// from the local instance are skipped; the dispatcher already delivered
// those.
type RelayWorker struct {
	consumer *broker.Consumer
	hub      *broadcast.Hub
	origin   string
	logger   *zap.Logger
}

// NewRelayWorker creates a relay worker for the given hub. origin is the
// local dispatcher's instance id.
func NewRelayWorker(consumer *broker.Consumer, hub *broadcast.Hub, origin string) *RelayWorker {
	return &RelayWorker{
		consumer: consumer,
		hub:      hub,
		origin:   origin,
		logger:   util.GetLogger(),
	}
}

// Start consumes until the context is cancelled.
func (w *RelayWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting broadcast relay worker")
	return w.consumer.StartConsuming(ctx, w.handleMessage)
}

// Stop stops the worker.
func (w *RelayWorker) Stop() error {
	w.logger.Info("Stopping broadcast relay worker")
	return w.consumer.Close()
}

func (w *RelayWorker) handleMessage(ctx context.Context, msg kafka.Message) error {
	event, err := broker.DecodeEvent(msg.Value)
	if err != nil {
		return err
	}

	if event.Base().Origin == w.origin {
		return nil
	}

	w.hub.Deliver(event)
	return nil
}
