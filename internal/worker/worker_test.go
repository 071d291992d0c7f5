package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"storefront-service/internal/service"
	"storefront-service/internal/sse"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingDispatcher struct {
	calls atomic.Int32
	err   error
}

func (d *countingDispatcher) DispatchDue(ctx context.Context) (service.DispatchStats, error) {
	d.calls.Add(1)
	return service.DispatchStats{Sent: 1}, d.err
}

func TestOutboxWorkerPollsUntilCancelled(t *testing.T) {
	d := &countingDispatcher{}
	w := NewOutboxWorker(d, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Start(ctx) }()

	require.Eventually(t, func() bool { return d.calls.Load() >= 3 }, time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestOutboxWorkerSurvivesDispatchErrors(t *testing.T) {
	d := &countingDispatcher{err: errors.New("db down")}
	w := NewOutboxWorker(d, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, w.Start(ctx), context.DeadlineExceeded)
	assert.GreaterOrEqual(t, d.calls.Load(), int32(2))
}

func TestFeedWorkerRelaysToHub(t *testing.T) {
	hub := sse.NewHub()
	client := hub.Register("admin-1")
	w := &FeedWorker{hub: hub}

	require.NoError(t, w.relay(context.Background(), "ORDER_PLACED", []byte(`{"order_id":"ORD-1"}`)))

	msg := <-client.Events
	assert.Equal(t, "ORDER_PLACED", msg.Event)
	assert.JSONEq(t, `{"order_id":"ORD-1"}`, string(msg.Data))
}
