package domain_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/srgjo27/floor_ledger/internal/core/domain"
)

func TestOrderStatus_CanTransition(t *testing.T) {
	allowed := []struct {
		from, to domain.OrderStatus
	}{
		{domain.OrderPending, domain.OrderConfirmed},
		{domain.OrderPending, domain.OrderCancelled},
		{domain.OrderConfirmed, domain.OrderPreparing},
		{domain.OrderConfirmed, domain.OrderCancelled},
		{domain.OrderPreparing, domain.OrderReady},
		{domain.OrderPreparing, domain.OrderCancelled},
		{domain.OrderReady, domain.OrderServed},
		{domain.OrderServed, domain.OrderPaymentPending},
		{domain.OrderServed, domain.OrderCompleted},
		{domain.OrderPaymentPending, domain.OrderCompleted},
	}
	for _, tc := range allowed {
		assert.True(t, tc.from.CanTransition(tc.to), "%s -> %s should be legal", tc.from, tc.to)
	}

	denied := []struct {
		from, to domain.OrderStatus
	}{
		{domain.OrderPending, domain.OrderReady},
		{domain.OrderReady, domain.OrderCancelled},
		{domain.OrderServed, domain.OrderCancelled},
		{domain.OrderCompleted, domain.OrderPending},
		{domain.OrderCancelled, domain.OrderConfirmed},
		{domain.OrderPaymentPending, domain.OrderCancelled},
	}
	for _, tc := range denied {
		assert.False(t, tc.from.CanTransition(tc.to), "%s -> %s should be illegal", tc.from, tc.to)
	}
}

func TestOrderStatus_Holdable(t *testing.T) {
	assert.True(t, domain.OrderPending.Holdable())
	assert.True(t, domain.OrderConfirmed.Holdable())
	assert.True(t, domain.OrderPreparing.Holdable())
	assert.False(t, domain.OrderReady.Holdable())
	assert.False(t, domain.OrderServed.Holdable())
	assert.False(t, domain.OrderHold.Holdable())
	assert.False(t, domain.OrderCompleted.Holdable())
}

func TestTable_DeriveStatus(t *testing.T) {
	table := domain.Table{
		Status: domain.TableAvailable,
		Chairs: []domain.Chair{
			{Number: 1, Status: domain.ChairAvailable},
			{Number: 2, Status: domain.ChairAvailable},
		},
	}

	table.Chairs[1].Status = domain.ChairOccupied
	table.DeriveStatus()
	assert.Equal(t, domain.TableOccupied, table.Status)

	table.Chairs[1].Status = domain.ChairAvailable
	table.DeriveStatus()
	assert.Equal(t, domain.TableAvailable, table.Status)

	// Overrides win and are never recomputed away.
	table.Status = domain.TableCleaning
	table.Chairs[0].Status = domain.ChairOccupied
	table.DeriveStatus()
	assert.Equal(t, domain.TableCleaning, table.Status)
}

func TestTable_CloneIsDeep(t *testing.T) {
	orderID := uuid.New()
	table := domain.Table{
		ID: uuid.New(),
		Chairs: []domain.Chair{
			{ID: uuid.New(), Number: 1, Status: domain.ChairOccupied, CurrentOrderID: &orderID},
		},
	}

	clone := table.Clone()
	clone.Chairs[0].Status = domain.ChairAvailable
	clone.Chairs[0].CurrentOrderID = nil

	assert.Equal(t, domain.ChairOccupied, table.Chairs[0].Status)
	assert.NotNil(t, table.Chairs[0].CurrentOrderID)
}

func TestOrder_CloneIsDeep(t *testing.T) {
	chairID := uuid.New()
	order := domain.Order{
		ID: uuid.New(),
		Items: []domain.OrderItem{
			{ID: uuid.New(), MenuItemID: "soup", Quantity: 1, ChairID: &chairID},
		},
	}

	clone := order.Clone()
	clone.Items[0].Quantity = 9
	*clone.Items[0].ChairID = uuid.New()

	assert.Equal(t, 1, order.Items[0].Quantity)
	assert.Equal(t, chairID, *order.Items[0].ChairID)
}
