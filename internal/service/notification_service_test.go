package service

import (
	"context"
	"testing"
	"time"

	"storefront-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatchDueSendsPending(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	order := e.placeCOD(physicalDetails(), e.physical("Mala", 500, 0))

	stats, err := e.notifications.DispatchDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, DispatchStats{Sent: 1}, stats)

	n := e.repo.notificationsFor(order.ID, models.NotificationOrderPlaced)[0]
	assert.Equal(t, models.NotificationStatusSent, n.Status)
	assert.Equal(t, 1, n.Attempts)
	require.NotNil(t, n.SentAt)
	assert.Equal(t, "919000000000", n.Recipient)
	assert.Contains(t, n.DeepLink, "https://wa.me/919000000000?text=")

	stats, err = e.notifications.DispatchDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, DispatchStats{}, stats)
	assert.Len(t, e.dispatcher.sent, 1)
}

func TestDispatchDueBacksOffThenGivesUp(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	e.dispatcher.err = func(*models.Notification) error { return errGatewayDown }
	order := e.placeCOD(physicalDetails(), e.physical("Mala", 500, 0))

	stats, err := e.notifications.DispatchDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, DispatchStats{Retry: 1}, stats)

	n := e.repo.notificationsFor(order.ID, models.NotificationOrderPlaced)[0]
	assert.Equal(t, models.NotificationStatusPending, n.Status)
	assert.Equal(t, "gateway down", n.LastError)
	assert.Equal(t, e.clock.now().Add(time.Minute), n.NextAttemptAt)

	// Not due yet.
	stats, err = e.notifications.DispatchDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, DispatchStats{}, stats)

	e.clock.advance(time.Minute)
	stats, err = e.notifications.DispatchDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, DispatchStats{Retry: 1}, stats)
	n = e.repo.notificationsFor(order.ID, models.NotificationOrderPlaced)[0]
	assert.Equal(t, e.clock.now().Add(4*time.Minute), n.NextAttemptAt)

	e.clock.advance(4 * time.Minute)
	stats, err = e.notifications.DispatchDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, DispatchStats{Failed: 1}, stats)

	n = e.repo.notificationsFor(order.ID, models.NotificationOrderPlaced)[0]
	assert.Equal(t, models.NotificationStatusFailed, n.Status)
	assert.Equal(t, 3, n.Attempts)

	e.dispatcher.err = nil
	requeued, err := e.notifications.Retry(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, models.NotificationStatusPending, requeued.Status)
	assert.Zero(t, requeued.Attempts)

	stats, err = e.notifications.DispatchDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, DispatchStats{Sent: 1}, stats)

	_, err = e.notifications.Retry(ctx, n.ID)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
}

func TestListNotificationsByOrder(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	first := e.placeCOD(physicalDetails(), e.physical("Mala", 500, 0))
	e.placeCOD(physicalDetails(), e.physical("Yantra", 300, 0))

	all, err := e.notifications.ListNotifications(ctx, models.NotificationFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	mine, err := e.notifications.ListNotifications(ctx, models.NotificationFilter{OrderID: first.ID})
	require.NoError(t, err)
	require.Len(t, mine, 1)

	got, err := e.notifications.GetNotification(ctx, mine[0].ID)
	require.NoError(t, err)
	assert.Contains(t, got.Message, first.ID)
}
