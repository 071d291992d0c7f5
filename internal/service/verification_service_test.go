package service

import (
	"context"
	"testing"
	"time"

	"storefront-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApproveDigitalOrderDeliversOnce(t *testing.T) {
	e := newEnv()
	ctx := context.Background()

	order := e.placePrepaid(digitalDetails(), e.digital("Ebook", 199, "https://dl.test/ebook"))
	req := e.pendingRequestFor(order.ID)
	require.NotNil(t, req)

	approved, err := e.verifications.Approve(ctx, "ravi", req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.VerificationStatusApproved, approved.Status)
	assert.Equal(t, "ravi", approved.ResolvedBy)

	stored, err := e.orders.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCompleted, stored.Status)
	assert.Equal(t, models.PaymentStatusCompleted, stored.PaymentStatus)

	deliveries := e.repo.notificationsFor(order.ID, models.NotificationDigitalDelivery)
	require.Len(t, deliveries, 1)
	assert.Contains(t, deliveries[0].Message, "https://dl.test/ebook")
	assert.Equal(t, "919876543210", deliveries[0].Recipient)

	_, err = e.verifications.Approve(ctx, "meera", req.ID)
	assert.ErrorIs(t, err, models.ErrAlreadyResolved)
	assert.Len(t, e.repo.notificationsFor(order.ID, models.NotificationDigitalDelivery), 1)

	again, err := e.verifications.Get(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, "ravi", again.ResolvedBy)
	assert.Equal(t, 1, e.publisher.count(models.EventTypeVerificationResolved))
}

func TestApproveMixedOrderMovesToProcessing(t *testing.T) {
	e := newEnv()
	ctx := context.Background()

	order := e.placePrepaid(mixedDetails(),
		e.physical("Mala", 500, 0),
		e.digital("Ebook", 199, "https://dl.test/ebook"))
	req := e.pendingRequestFor(order.ID)
	require.NotNil(t, req)

	_, err := e.verifications.Approve(ctx, "ravi", req.ID)
	require.NoError(t, err)

	stored, err := e.orders.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusProcessing, stored.Status)
	assert.Len(t, e.repo.notificationsFor(order.ID, models.NotificationDigitalDelivery), 1)

	events, err := e.orders.ListOrderEvents(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, models.OrderStatusVerificationPending, events[1].FromStatus)
	assert.Equal(t, models.OrderStatusProcessing, events[1].ToStatus)
	assert.Equal(t, "ravi", events[1].Actor)
	assert.Equal(t, 1, e.publisher.count(models.EventTypeOrderStatusChanged))
}

func TestApprovePhysicalOrderQueuesNoDelivery(t *testing.T) {
	e := newEnv()
	ctx := context.Background()

	order := e.placePrepaid(physicalDetails(), e.physical("Mala", 500, 0))
	req := e.pendingRequestFor(order.ID)
	require.NotNil(t, req)

	_, err := e.verifications.Approve(ctx, "ravi", req.ID)
	require.NoError(t, err)
	assert.Empty(t, e.repo.notificationsFor(order.ID, models.NotificationDigitalDelivery))
}

func TestRejectThenResubmit(t *testing.T) {
	e := newEnv()
	ctx := context.Background()

	order := e.placePrepaid(digitalDetails(), e.digital("Ebook", 199, "https://dl.test/ebook"))
	req := e.pendingRequestFor(order.ID)
	require.NotNil(t, req)

	rejected, err := e.verifications.Reject(ctx, "ravi", req.ID, "  screenshot unreadable ")
	require.NoError(t, err)
	assert.Equal(t, models.VerificationStatusRejected, rejected.Status)
	assert.Equal(t, "screenshot unreadable", rejected.ResolutionNote)

	stored, err := e.orders.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusVerificationPending, stored.Status)
	assert.Empty(t, e.repo.notificationsFor(order.ID, models.NotificationDigitalDelivery))

	_, err = e.verifications.Approve(ctx, "ravi", req.ID)
	assert.ErrorIs(t, err, models.ErrAlreadyResolved)

	_, err = e.verifications.ResubmitPayment(ctx, order.ID, "0000000000", "210987654321", screenshot())
	assert.ErrorIs(t, err, models.ErrNotFound)

	resubmitted, err := e.verifications.ResubmitPayment(ctx, order.ID, "98765-43210", "210987654321", screenshot())
	require.NoError(t, err)
	assert.Equal(t, models.VerificationStatusPending, resubmitted.Status)

	stored, err = e.orders.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "210987654321", stored.TransactionID)

	_, err = e.verifications.ResubmitPayment(ctx, order.ID, "9876543210", "210987654321", screenshot())
	assert.ErrorIs(t, err, models.ErrDuplicatePending)

	_, err = e.verifications.Approve(ctx, "ravi", resubmitted.ID)
	require.NoError(t, err)
	assert.Len(t, e.repo.notificationsFor(order.ID, models.NotificationDigitalDelivery), 1)
}

func TestResubmitRequiresVerificationPendingPrepaid(t *testing.T) {
	e := newEnv()
	ctx := context.Background()

	order := e.placeCOD(physicalDetails(), e.physical("Mala", 500, 0))

	_, err := e.verifications.ResubmitPayment(ctx, order.ID, "9876543210", "123456789012", screenshot())
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
}

func TestSubscriptionApprovalActivatesPlan(t *testing.T) {
	e := newEnv()
	ctx := context.Background()

	req, err := e.verifications.SubmitSubscription(ctx, SubscriptionRequest{
		Name:          "Asha",
		Phone:         "9876543210",
		PlanName:      "Monthly",
		TransactionID: "123456789012",
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, models.VerificationTypeSubscription, req.Type)
	assert.Equal(t, "199", req.Price.String())

	e.clock.advance(time.Hour)
	_, err = e.verifications.Approve(ctx, "ravi", req.ID)
	require.NoError(t, err)

	profile, err := e.accounts.GetProfile(ctx, "9876543210")
	require.NoError(t, err)
	assert.True(t, profile.IsPremium)
	assert.True(t, profile.PremiumActive)
	assert.Equal(t, "Monthly", profile.SubscriptionPlan)
	require.NotNil(t, profile.SubscriptionExpiry)
	assert.Equal(t, e.clock.now().AddDate(0, 0, 30), *profile.SubscriptionExpiry)
}

func TestSubscriptionSubmitValidation(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	valid := SubscriptionRequest{Name: "Asha", Phone: "9876543210", PlanName: "Yearly", TransactionID: "123456789012"}

	tests := []struct {
		name   string
		mutate func(*SubscriptionRequest)
		field  string
	}{
		{"unknown plan", func(r *SubscriptionRequest) { r.PlanName = "Weekly" }, "plan_name"},
		{"missing name", func(r *SubscriptionRequest) { r.Name = " " }, "name"},
		{"short phone", func(r *SubscriptionRequest) { r.Phone = "98765" }, "phone"},
		{"no proof", func(r *SubscriptionRequest) { r.TransactionID = "" }, "transaction_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.mutate(&in)
			_, err := e.verifications.SubmitSubscription(ctx, in, nil)
			var verr *models.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}

	screenshotOnly := valid
	screenshotOnly.TransactionID = ""
	req, err := e.verifications.SubmitSubscription(ctx, screenshotOnly, screenshot())
	require.NoError(t, err)
	assert.NotEmpty(t, req.ScreenshotURL)

	_, err = e.verifications.SubmitSubscription(ctx, valid, nil)
	assert.ErrorIs(t, err, models.ErrDuplicatePending)
}

func TestListReturnsPendingNewestFirst(t *testing.T) {
	e := newEnv()
	ctx := context.Background()

	first := e.placePrepaid(digitalDetails(), e.digital("Ebook", 199, "https://dl.test/a"))
	e.clock.advance(time.Minute)
	second := e.placePrepaid(digitalDetails(), e.digital("Guide", 99, "https://dl.test/b"))
	e.clock.advance(time.Minute)
	resolved := e.placePrepaid(digitalDetails(), e.digital("Chart", 49, "https://dl.test/c"))

	_, err := e.verifications.Approve(ctx, "ravi", e.pendingRequestFor(resolved.ID).ID)
	require.NoError(t, err)

	pending, err := e.verifications.List(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, second.ID, *pending[0].OrderID)
	assert.Equal(t, first.ID, *pending[1].OrderID)

	_, err = e.verifications.ListByStatus(ctx, "LOST")
	var verr *models.ValidationError
	assert.ErrorAs(t, err, &verr)
}
