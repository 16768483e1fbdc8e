package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderPending        OrderStatus = "pending"
	OrderConfirmed      OrderStatus = "confirmed"
	OrderPreparing      OrderStatus = "preparing"
	OrderReady          OrderStatus = "ready"
	OrderServed         OrderStatus = "served"
	OrderCompleted      OrderStatus = "completed"
	OrderCancelled      OrderStatus = "cancelled"
	OrderHold           OrderStatus = "hold"
	OrderPaymentPending OrderStatus = "payment-pending"
)

// Cancellation is allowed until the kitchen reports ready; after that only
// payment and completion remain.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending:        {OrderConfirmed, OrderCancelled},
	OrderConfirmed:      {OrderPreparing, OrderCancelled},
	OrderPreparing:      {OrderReady, OrderCancelled},
	OrderReady:          {OrderServed},
	OrderServed:         {OrderPaymentPending, OrderCompleted},
	OrderPaymentPending: {OrderCompleted},
}

// CanTransition reports whether the move is a legal edge of the status
// machine. Hold and resume are not edges here: they carry occupancy side
// effects and go through the workflow controller.
func (s OrderStatus) CanTransition(to OrderStatus) bool {
	for _, next := range orderTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

func (s OrderStatus) IsTerminal() bool {
	return s == OrderCompleted || s == OrderCancelled
}

// Holdable reports whether an order in this status may be parked.
func (s OrderStatus) Holdable() bool {
	return s == OrderPending || s == OrderConfirmed || s == OrderPreparing
}

type OrderType string

const (
	OrderDineIn      OrderType = "dine-in"
	OrderTakeaway    OrderType = "takeaway"
	OrderDelivery    OrderType = "delivery"
	OrderRoomService OrderType = "room-service"
)

func (t OrderType) Valid() bool {
	switch t {
	case OrderDineIn, OrderTakeaway, OrderDelivery, OrderRoomService:
		return true
	}
	return false
}

type ItemStatus string

const (
	ItemPending   ItemStatus = "pending"
	ItemPreparing ItemStatus = "preparing"
	ItemReady     ItemStatus = "ready"
	ItemServed    ItemStatus = "served"
)

func (s ItemStatus) Valid() bool {
	switch s {
	case ItemPending, ItemPreparing, ItemReady, ItemServed:
		return true
	}
	return false
}

// OrderItem is one ordered quantity of a menu item, optionally scoped to a
// single chair for dine-in service.
type OrderItem struct {
	ID         uuid.UUID       `json:"id"`
	MenuItemID string          `json:"menu_item_id"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Notes      string          `json:"notes,omitempty"`
	Status     ItemStatus      `json:"status"`
	ChairID    *uuid.UUID      `json:"chair_id,omitempty"`
}

// Order is a bill for a table, a chair, or a non-seated context. The
// monetary fields are derived by the billing calculator and never set by
// callers. HeldFrom records the pre-hold status while Status is hold.
type Order struct {
	ID              uuid.UUID       `json:"id"`
	TableID         *uuid.UUID      `json:"table_id,omitempty"`
	ChairID         *uuid.UUID      `json:"chair_id,omitempty"`
	Items           []OrderItem     `json:"items"`
	Status          OrderStatus     `json:"status"`
	HeldFrom        OrderStatus     `json:"held_from,omitempty"`
	OrderType       OrderType       `json:"order_type"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	TipPercent      decimal.Decimal `json:"tip_percent"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	DiscountAmount  decimal.Decimal `json:"discount_amount"`
	Tax             decimal.Decimal `json:"tax"`
	ServiceCharge   decimal.Decimal `json:"service_charge"`
	TipAmount       decimal.Decimal `json:"tip_amount"`
	Total           decimal.Decimal `json:"total"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	Version         int             `json:"version"`
}

func (o *Order) ItemByID(itemID uuid.UUID) *OrderItem {
	for i := range o.Items {
		if o.Items[i].ID == itemID {
			return &o.Items[i]
		}
	}
	return nil
}

// Clone returns a deep copy so callers can mutate snapshots freely.
func (o Order) Clone() Order {
	items := make([]OrderItem, len(o.Items))
	for i, it := range o.Items {
		if it.ChairID != nil {
			id := *it.ChairID
			it.ChairID = &id
		}
		items[i] = it
	}
	o.Items = items
	if o.TableID != nil {
		id := *o.TableID
		o.TableID = &id
	}
	if o.ChairID != nil {
		id := *o.ChairID
		o.ChairID = &id
	}
	return o
}
