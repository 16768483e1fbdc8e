package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventOrderCompleted = "order.completed"
	EventOrderCancelled = "order.cancelled"
	EventOrderHeld      = "order.held"
	EventOrderResumed   = "order.resumed"
	EventOrderSplit     = "order.split"
	EventOrdersMerged   = "order.merged"
	EventChairConflict  = "chair.conflict"
)

// LedgerEvent is handed to the notification sink; the engine does not format
// or deliver alerts itself.
type LedgerEvent struct {
	EventType string    `json:"event_type"`
	OrderID   string    `json:"order_id,omitempty"`
	TableID   string    `json:"table_id,omitempty"`
	ChairID   string    `json:"chair_id,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewLedgerEvent(eventType string, orderID uuid.UUID) LedgerEvent {
	return LedgerEvent{
		EventType: eventType,
		OrderID:   orderID.String(),
		Timestamp: time.Now().UTC(),
	}
}
