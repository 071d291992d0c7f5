package sse

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubBroadcastReachesEveryClient(t *testing.T) {
	hub := NewHub()
	a := hub.Register("a")
	b := hub.Register("b")
	require.Equal(t, 2, hub.ClientCount())

	hub.Broadcast(Message{Event: "ORDER_PLACED", Data: json.RawMessage(`{"order_id":"ORD-1"}`)})

	for _, c := range []*Client{a, b} {
		msg := <-c.Events
		assert.Equal(t, "ORDER_PLACED", msg.Event)
		assert.JSONEq(t, `{"order_id":"ORD-1"}`, string(msg.Data))
	}
}

func TestHubDropsWhenBufferFull(t *testing.T) {
	hub := NewHub()
	c := hub.Register("slow")

	for i := 0; i < cap(c.Events)+5; i++ {
		hub.Broadcast(Message{Event: "TICKET_CREATED"})
	}
	assert.Len(t, c.Events, cap(c.Events))
}

func TestHubUnregisterClosesChannel(t *testing.T) {
	hub := NewHub()
	c := hub.Register("gone")
	hub.Unregister("gone")

	_, ok := <-c.Events
	assert.False(t, ok)
	assert.Zero(t, hub.ClientCount())

	hub.Unregister("gone")
}
