package domain

import (
	"github.com/google/uuid"
)

type ChairStatus string

const (
	ChairAvailable ChairStatus = "available"
	ChairOccupied  ChairStatus = "occupied"
	ChairReserved  ChairStatus = "reserved"
	ChairCleaning  ChairStatus = "cleaning"
)

func (s ChairStatus) Valid() bool {
	switch s {
	case ChairAvailable, ChairOccupied, ChairReserved, ChairCleaning:
		return true
	}
	return false
}

type TableStatus string

const (
	TableAvailable TableStatus = "available"
	TableOccupied  TableStatus = "occupied"
	TableReserved  TableStatus = "reserved"
	TableCleaning  TableStatus = "cleaning"
)

// Chair is one seat at a table. CurrentOrderID is a back-reference to the
// active order seated here; it is set iff the chair is occupied by an order
// (a manual occupied override carries no order).
type Chair struct {
	ID             uuid.UUID   `json:"id"`
	Number         int         `json:"number"`
	Status         ChairStatus `json:"status"`
	CurrentOrderID *uuid.UUID  `json:"current_order_id,omitempty"`
}

func (c *Chair) IsOccupied() bool {
	return c.Status == ChairOccupied
}

func (c *Chair) OccupiedBy(orderID uuid.UUID) bool {
	return c.Status == ChairOccupied && c.CurrentOrderID != nil && *c.CurrentOrderID == orderID
}

// Table owns its chairs. Status is derived from the chairs except for the
// reserved/cleaning overrides, which are set explicitly and must be cleared
// explicitly. CurrentOrderID is set for a shared table-level bill.
type Table struct {
	ID             uuid.UUID   `json:"id"`
	Number         int         `json:"number"`
	Capacity       int         `json:"capacity"`
	Section        string      `json:"section"`
	Shape          string      `json:"shape"`
	Status         TableStatus `json:"status"`
	CurrentOrderID *uuid.UUID  `json:"current_order_id,omitempty"`
	Chairs         []Chair     `json:"chairs"`
	Version        int         `json:"version"`
}

func (t *Table) HasOverride() bool {
	return t.Status == TableReserved || t.Status == TableCleaning
}

// DeriveStatus recomputes the table status from its chairs. Overrides win:
// a reserved/cleaning table keeps its status until explicitly cleared.
func (t *Table) DeriveStatus() {
	if t.HasOverride() {
		return
	}
	for i := range t.Chairs {
		if t.Chairs[i].Status == ChairOccupied {
			t.Status = TableOccupied
			return
		}
	}
	t.Status = TableAvailable
}

func (t *Table) ChairByID(chairID uuid.UUID) *Chair {
	for i := range t.Chairs {
		if t.Chairs[i].ID == chairID {
			return &t.Chairs[i]
		}
	}
	return nil
}

// Clone returns a deep copy so callers can mutate snapshots freely.
func (t Table) Clone() Table {
	chairs := make([]Chair, len(t.Chairs))
	for i, c := range t.Chairs {
		if c.CurrentOrderID != nil {
			id := *c.CurrentOrderID
			c.CurrentOrderID = &id
		}
		chairs[i] = c
	}
	t.Chairs = chairs
	if t.CurrentOrderID != nil {
		id := *t.CurrentOrderID
		t.CurrentOrderID = &id
	}
	return t
}
