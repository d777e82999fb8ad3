package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	NotificationEventCreated     = "event.created"
	NotificationTicketsPurchased = "tickets.purchased"
	NotificationEventSponsored   = "event.sponsored"
	NotificationFundsWithdrawn   = "funds.withdrawn"
	NotificationEventClosed      = "event.closed"
)

// LedgerNotification is published to Kafka after an event operation commits.
type LedgerNotification struct {
	ID         uuid.UUID `json:"id"`
	Type       string    `json:"type"`
	Event      string    `json:"event"`
	Actor      string    `json:"actor"`
	Quantity   uint64    `json:"quantity,omitempty"`
	Amount     uint64    `json:"amount,omitempty"`
	Sponsors   uint64    `json:"sponsors"`
	IsActive   bool      `json:"is_active"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewLedgerNotification snapshots the event state after an operation.
func NewLedgerNotification(kind string, event Event, actor string) LedgerNotification {
	return LedgerNotification{
		ID:         uuid.New(),
		Type:       kind,
		Event:      event.Address,
		Actor:      actor,
		Sponsors:   event.Sponsors,
		IsActive:   event.IsActive,
		OccurredAt: time.Now().UTC(),
	}
}
