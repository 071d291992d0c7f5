package worker

import (
	"context"
	"encoding/json"
	"time"

	"storefront-service/internal/broker"
	"storefront-service/internal/service"
	"storefront-service/internal/sse"
	"storefront-service/internal/util"

	"go.uber.org/zap"
)

// FeedWorker relays domain events from Kafka to connected admin clients
type FeedWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	hub          *sse.Hub
	logger       *zap.Logger
}

// NewFeedWorker creates a new feed worker
func NewFeedWorker(consumer *broker.Consumer, hub *sse.Hub) *FeedWorker {
	w := &FeedWorker{
		consumer: consumer,
		hub:      hub,
		logger:   util.Named("worker.feed"),
	}
	w.eventHandler = broker.NewEventHandler(w.relay)
	return w
}

func (w *FeedWorker) relay(ctx context.Context, eventType string, payload json.RawMessage) error {
	if w.hub.ClientCount() == 0 {
		return nil
	}
	w.hub.Broadcast(sse.Message{Event: eventType, Data: payload})
	return nil
}

// Start consumes until ctx is cancelled
func (w *FeedWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting feed worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the feed worker
func (w *FeedWorker) Stop() error {
	w.logger.Info("Stopping feed worker")
	return w.consumer.Close()
}

// Dispatcher is the part of the notification service the outbox worker drives
type Dispatcher interface {
	DispatchDue(ctx context.Context) (service.DispatchStats, error)
}

// OutboxWorker periodically delivers due notifications
type OutboxWorker struct {
	dispatcher Dispatcher
	interval   time.Duration
	logger     *zap.Logger
}

// NewOutboxWorker creates a new outbox worker
func NewOutboxWorker(dispatcher Dispatcher, interval time.Duration) *OutboxWorker {
	return &OutboxWorker{
		dispatcher: dispatcher,
		interval:   interval,
		logger:     util.Named("worker.outbox"),
	}
}

// Start polls on the interval until ctx is cancelled
func (w *OutboxWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting outbox worker", zap.Duration("interval", w.interval))

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		w.tick(ctx)

		select {
		case <-ctx.Done():
			w.logger.Info("Stopping outbox worker")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (w *OutboxWorker) tick(ctx context.Context) {
	stats, err := w.dispatcher.DispatchDue(ctx)
	if err != nil {
		if ctx.Err() == nil {
			w.logger.Error("Outbox dispatch failed", zap.Error(err))
		}
		return
	}
	if stats.Sent+stats.Failed+stats.Retry > 0 {
		w.logger.Info("Outbox dispatched",
			zap.Int("sent", stats.Sent),
			zap.Int("retry", stats.Retry),
			zap.Int("failed", stats.Failed))
	}
}
