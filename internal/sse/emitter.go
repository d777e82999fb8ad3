package sse

import (
	"context"
	"sync"

	"ms-event-ledger/internal/models"
)

const clientBuffer = 16

// Emitter fans committed ledger notifications out to streaming clients,
// subscribed either to one event or to one actor.
type Emitter struct {
	mu           sync.RWMutex
	eventClients map[string][]chan models.LedgerNotification
	actorClients map[string][]chan models.LedgerNotification
	closed       bool
}

func NewEmitter() *Emitter {
	return &Emitter{
		eventClients: make(map[string][]chan models.LedgerNotification),
		actorClients: make(map[string][]chan models.LedgerNotification),
	}
}

// SubscribeToEvent returns a channel of notifications for event. The channel
// is closed once ctx is done.
func (e *Emitter) SubscribeToEvent(ctx context.Context, event string) <-chan models.LedgerNotification {
	return e.subscribe(ctx, e.eventClients, event)
}

// SubscribeToActor returns a channel of notifications for operations signed
// by actor.
func (e *Emitter) SubscribeToActor(ctx context.Context, actor string) <-chan models.LedgerNotification {
	return e.subscribe(ctx, e.actorClients, actor)
}

func (e *Emitter) subscribe(ctx context.Context, clients map[string][]chan models.LedgerNotification, key string) <-chan models.LedgerNotification {
	ch := make(chan models.LedgerNotification, clientBuffer)

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		close(ch)
		return ch
	}
	clients[key] = append(clients[key], ch)
	e.mu.Unlock()

	go func() {
		<-ctx.Done()
		e.remove(clients, key, ch)
	}()
	return ch
}

// Publish broadcasts n without blocking; a client whose buffer is full misses
// the notification.
func (e *Emitter) Publish(_ context.Context, n models.LedgerNotification) error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	for _, ch := range e.eventClients[n.Event] {
		trySend(ch, n)
	}
	if n.Actor != "" {
		for _, ch := range e.actorClients[n.Actor] {
			trySend(ch, n)
		}
	}
	return nil
}

func trySend(ch chan models.LedgerNotification, n models.LedgerNotification) {
	select {
	case ch <- n:
	default:
	}
}

func (e *Emitter) remove(clients map[string][]chan models.LedgerNotification, key string, ch chan models.LedgerNotification) {
	e.mu.Lock()
	defer e.mu.Unlock()

	list := clients[key]
	for i, c := range list {
		if c == ch {
			clients[key] = append(list[:i], list[i+1:]...)
			close(ch)
			break
		}
	}
	if len(clients[key]) == 0 {
		delete(clients, key)
	}
}

// Close disconnects every client.
func (e *Emitter) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, clients := range []map[string][]chan models.LedgerNotification{e.eventClients, e.actorClients} {
		for key, list := range clients {
			for _, ch := range list {
				close(ch)
			}
			delete(clients, key)
		}
	}
	e.closed = true
	return nil
}

// EventClientCount returns the number of clients streaming event.
func (e *Emitter) EventClientCount(event string) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.eventClients[event])
}

// ActorClientCount returns the number of clients streaming actor.
func (e *Emitter) ActorClientCount(actor string) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.actorClients[actor])
}
