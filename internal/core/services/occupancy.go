package services

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/srgjo27/floor_ledger/internal/core/domain"
)

// AttachOrder links an order to a chair (per-seat bill) or to the table
// itself (shared bill) and re-derives the table status. A chair already
// occupied by a different order is a conflict. Both snapshots are mutated in
// place; callers own them and commit afterwards.
func AttachOrder(o *domain.Order, t *domain.Table, chairID *uuid.UUID) error {
	if chairID != nil {
		chair := t.ChairByID(*chairID)
		if chair == nil {
			return fmt.Errorf("%w: chair %s on table %s", domain.ErrNotFound, *chairID, t.ID)
		}
		if chair.IsOccupied() && !chair.OccupiedBy(o.ID) {
			return fmt.Errorf("%w: chair %d is occupied by another order", domain.ErrOccupancyConflict, chair.Number)
		}
		chair.Status = domain.ChairOccupied
		orderID := o.ID
		chair.CurrentOrderID = &orderID
		cID := *chairID
		o.ChairID = &cID
	} else {
		orderID := o.ID
		t.CurrentOrderID = &orderID
	}
	tableID := t.ID
	o.TableID = &tableID
	t.DeriveStatus()
	return nil
}

// DetachOrder releases the floor side of an order's seat on hold, completion
// or cancellation. A chair manually marked reserved/cleaning keeps that
// status; only the occupied state falls back to available. The order keeps
// its table/chair ids as the last-known seat for the bill record.
func DetachOrder(o *domain.Order, t *domain.Table) {
	if o.ChairID != nil {
		if chair := t.ChairByID(*o.ChairID); chair != nil && chair.CurrentOrderID != nil && *chair.CurrentOrderID == o.ID {
			chair.CurrentOrderID = nil
			if chair.Status == domain.ChairOccupied {
				chair.Status = domain.ChairAvailable
			}
		}
	}
	if t.CurrentOrderID != nil && *t.CurrentOrderID == o.ID {
		t.CurrentOrderID = nil
	}
	t.DeriveStatus()
}
