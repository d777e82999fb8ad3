package sse

import (
	"context"
	"testing"
	"time"

	"ms-event-ledger/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmitter_RoutesByEventAndActor(t *testing.T) {
	e := NewEmitter()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	byEvent := e.SubscribeToEvent(ctx, "event-a")
	byActor := e.SubscribeToActor(ctx, "alice")
	other := e.SubscribeToEvent(ctx, "event-b")

	n := models.LedgerNotification{Type: models.NotificationTicketsPurchased, Event: "event-a", Actor: "alice", Quantity: 2}
	require.NoError(t, e.Publish(ctx, n))

	assert.Equal(t, n, <-byEvent)
	assert.Equal(t, n, <-byActor)
	select {
	case got := <-other:
		t.Fatalf("unexpected notification %v", got)
	default:
	}
}

func TestEmitter_UnsubscribeOnCancel(t *testing.T) {
	e := NewEmitter()
	ctx, cancel := context.WithCancel(context.Background())

	ch := e.SubscribeToEvent(ctx, "event-a")
	assert.Equal(t, 1, e.EventClientCount("event-a"))

	cancel()
	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("channel not closed after cancel")
	}
	assert.Zero(t, e.EventClientCount("event-a"))
}

func TestEmitter_SlowClientDoesNotBlock(t *testing.T) {
	e := NewEmitter()
	ctx := context.Background()
	e.SubscribeToActor(ctx, "alice")

	for i := 0; i < clientBuffer*2; i++ {
		require.NoError(t, e.Publish(ctx, models.LedgerNotification{Event: "event-a", Actor: "alice"}))
	}
	assert.Equal(t, 1, e.ActorClientCount("alice"))
}

func TestEmitter_Close(t *testing.T) {
	e := NewEmitter()
	ctx := context.Background()
	ch := e.SubscribeToEvent(ctx, "event-a")

	require.NoError(t, e.Close())
	_, ok := <-ch
	assert.False(t, ok)

	late := e.SubscribeToEvent(ctx, "event-a")
	_, ok = <-late
	assert.False(t, ok)
}
