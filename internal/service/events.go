package service

import (
	"context"
	"fmt"
	"time"

	"storefront-service/internal/models"
	"storefront-service/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func newBaseEvent(eventType string, at time.Time) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.NewString(),
		EventType: eventType,
		Timestamp: at.UTC(),
	}
}

// appendEvent records a status transition in the order's audit trail.
func appendEvent(ctx context.Context, tx store.Repository, orderID string, from, to models.OrderStatus, actor, note string, at time.Time) error {
	event := &models.OrderEvent{
		OrderID:    orderID,
		FromStatus: from,
		ToStatus:   to,
		Actor:      actor,
		Note:       note,
		CreatedAt:  at,
	}
	if err := tx.AppendOrderEvent(ctx, event); err != nil {
		return fmt.Errorf("failed to append order event: %w", err)
	}
	return nil
}

func publishStatusChanged(ctx context.Context, p Publisher, logger *zap.Logger, orderID string, from, to models.OrderStatus, actor string) {
	event := &models.OrderStatusChangedEvent{
		BaseEvent:  newBaseEvent(models.EventTypeOrderStatusChanged, time.Now()),
		OrderID:    orderID,
		FromStatus: from,
		ToStatus:   to,
		Actor:      actor,
	}
	if err := p.PublishOrderStatusChanged(ctx, event); err != nil {
		logger.Error("Failed to publish OrderStatusChanged event", zap.String("order_id", orderID), zap.Error(err))
	}
}

func publishVerification(ctx context.Context, p Publisher, logger *zap.Logger, eventType string, req *models.VerificationRequest, actor string) {
	event := &models.VerificationEvent{
		BaseEvent: newBaseEvent(eventType, time.Now()),
		RequestID: req.ID,
		Type:      req.Type,
		Status:    req.Status,
		PlanName:  req.PlanName,
		Actor:     actor,
	}
	if req.OrderID != nil {
		event.OrderID = *req.OrderID
	}
	if err := p.PublishVerification(ctx, event); err != nil {
		logger.Error("Failed to publish Verification event", zap.String("request_id", req.ID), zap.Error(err))
	}
}
