package services_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/srgjo27/floor_ledger/internal/core/domain"
	"github.com/srgjo27/floor_ledger/internal/core/ports/mocks"
	"github.com/srgjo27/floor_ledger/internal/core/services"
	"github.com/srgjo27/floor_ledger/internal/core/state"
)

type workflowFixture struct {
	ledger   *state.Ledger
	floor    *services.FloorService
	orders   *services.OrderService
	workflow *services.WorkflowService
}

func newWorkflowFixture(t *testing.T) *workflowFixture {
	ledger := state.NewLedger()
	logger := zap.NewNop().Sugar()

	orderRepo := mocks.NewOrderRepository(t)
	orderRepo.On("SaveOrder", mock.Anything, mock.AnythingOfType("domain.Order")).Return(nil).Maybe()
	tableRepo := mocks.NewTableRepository(t)
	tableRepo.On("SaveTable", mock.Anything, mock.AnythingOfType("domain.Table")).Return(nil).Maybe()

	return &workflowFixture{
		ledger:   ledger,
		floor:    services.NewFloorService(ledger, tableRepo, nil, logger),
		orders:   services.NewOrderService(ledger, orderRepo, tableRepo, nil, nil, logger),
		workflow: services.NewWorkflowService(ledger, orderRepo, tableRepo, nil, nil, logger),
	}
}

// seatedOrder creates a table, opens a dine-in order and seats it at the
// first chair.
func (f *workflowFixture) seatedOrder(t *testing.T, ctx context.Context) (domain.Order, domain.Table) {
	table, err := f.floor.CreateTable(ctx, services.CreateTableRequest{Number: 10, Capacity: 4})
	require.NoError(t, err)

	order, err := f.orders.CreateOrder(ctx, services.CreateOrderRequest{
		TableID:   &table.ID,
		OrderType: domain.OrderDineIn,
	})
	require.NoError(t, err)

	chairID := table.Chairs[0].ID
	order, table, err = f.workflow.Attach(ctx, order.ID, order.Version, table.ID, table.Version, &chairID)
	require.NoError(t, err)
	return order, table
}

func TestAttach_OccupiesChair(t *testing.T) {
	ctx := context.Background()
	f := newWorkflowFixture(t)

	order, table := f.seatedOrder(t, ctx)

	assert.Equal(t, domain.ChairOccupied, table.Chairs[0].Status)
	require.NotNil(t, table.Chairs[0].CurrentOrderID)
	assert.Equal(t, order.ID, *table.Chairs[0].CurrentOrderID)
	assert.Equal(t, domain.TableOccupied, table.Status)
	require.NotNil(t, order.ChairID)
	assert.Equal(t, table.Chairs[0].ID, *order.ChairID)
}

func TestAttach_ConflictOnOccupiedChair(t *testing.T) {
	ctx := context.Background()
	f := newWorkflowFixture(t)

	_, table := f.seatedOrder(t, ctx)

	intruder, err := f.orders.CreateOrder(ctx, services.CreateOrderRequest{
		TableID:   &table.ID,
		OrderType: domain.OrderDineIn,
	})
	require.NoError(t, err)

	chairID := table.Chairs[0].ID
	_, _, err = f.workflow.Attach(ctx, intruder.ID, intruder.Version, table.ID, table.Version, &chairID)
	assert.ErrorIs(t, err, domain.ErrOccupancyConflict)
}

func TestAttach_SharedTableOrderLeavesChairsAlone(t *testing.T) {
	ctx := context.Background()
	f := newWorkflowFixture(t)

	table, err := f.floor.CreateTable(ctx, services.CreateTableRequest{Number: 2, Capacity: 2})
	require.NoError(t, err)
	order, err := f.orders.CreateOrder(ctx, services.CreateOrderRequest{
		TableID:   &table.ID,
		OrderType: domain.OrderDineIn,
	})
	require.NoError(t, err)

	order, table, err = f.workflow.Attach(ctx, order.ID, order.Version, table.ID, table.Version, nil)
	require.NoError(t, err)

	require.NotNil(t, table.CurrentOrderID)
	assert.Equal(t, order.ID, *table.CurrentOrderID)
	for _, chair := range table.Chairs {
		assert.Equal(t, domain.ChairAvailable, chair.Status)
	}
	assert.Equal(t, domain.TableAvailable, table.Status, "no chair occupied, derived status stays available")
}

func TestHoldResume_RoundTrip(t *testing.T) {
	ctx := context.Background()
	f := newWorkflowFixture(t)

	order, table := f.seatedOrder(t, ctx)
	chairID := *order.ChairID

	held, err := f.workflow.Hold(ctx, order.ID, order.Version)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderHold, held.Status)
	assert.Equal(t, domain.OrderPending, held.HeldFrom)

	// The seat is free for other service while the bill is parked.
	freed, err := f.ledger.Table(table.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ChairAvailable, freed.Chairs[0].Status)
	assert.Nil(t, freed.Chairs[0].CurrentOrderID)
	assert.Equal(t, domain.TableAvailable, freed.Status)

	resumed, err := f.workflow.Resume(ctx, held.ID, held.Version, table.ID, freed.Version, &chairID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderPending, resumed.Status, "pre-hold status is restored")
	assert.Empty(t, resumed.HeldFrom)

	reseated, err := f.ledger.Table(table.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ChairOccupied, reseated.Chairs[0].Status)
	assert.Equal(t, resumed.ID, *reseated.Chairs[0].CurrentOrderID)
}

func TestHold_OnlyFromEarlyStatuses(t *testing.T) {
	ctx := context.Background()
	f := newWorkflowFixture(t)

	order, _ := f.seatedOrder(t, ctx)
	order, err := f.orders.Transition(ctx, order.ID, order.Version, domain.OrderConfirmed)
	require.NoError(t, err)
	order, err = f.orders.Transition(ctx, order.ID, order.Version, domain.OrderPreparing)
	require.NoError(t, err)
	order, err = f.orders.Transition(ctx, order.ID, order.Version, domain.OrderReady)
	require.NoError(t, err)

	_, err = f.workflow.Hold(ctx, order.ID, order.Version)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestResume_ConflictOnTakenChair(t *testing.T) {
	ctx := context.Background()
	f := newWorkflowFixture(t)

	order, table := f.seatedOrder(t, ctx)
	chairID := *order.ChairID

	held, err := f.workflow.Hold(ctx, order.ID, order.Version)
	require.NoError(t, err)

	// Another order takes the freed chair in the meantime.
	other, err := f.orders.CreateOrder(ctx, services.CreateOrderRequest{TableID: &table.ID, OrderType: domain.OrderDineIn})
	require.NoError(t, err)
	current, err := f.ledger.Table(table.ID)
	require.NoError(t, err)
	_, current, err = f.workflow.Attach(ctx, other.ID, other.Version, table.ID, current.Version, &chairID)
	require.NoError(t, err)

	_, err = f.workflow.Resume(ctx, held.ID, held.Version, table.ID, current.Version, &chairID)
	assert.ErrorIs(t, err, domain.ErrOccupancyConflict)
}

func TestSplit_PerChairBills(t *testing.T) {
	ctx := context.Background()
	f := newWorkflowFixture(t)

	order, table := f.seatedOrder(t, ctx)
	order, err := f.orders.AddItem(ctx, order.ID, order.Version, services.AddItemRequest{MenuItemID: "ribeye", Quantity: 1, UnitPrice: dec("24.99")})
	require.NoError(t, err)
	order, err = f.orders.AddItem(ctx, order.ID, order.Version, services.AddItemRequest{MenuItemID: "salmon", Quantity: 1, UnitPrice: dec("18.99")})
	require.NoError(t, err)
	order, err = f.orders.AddItem(ctx, order.ID, order.Version, services.AddItemRequest{MenuItemID: "wine", Quantity: 2, UnitPrice: dec("9.50")})
	require.NoError(t, err)
	order, err = f.orders.SetDiscount(ctx, order.ID, order.Version, dec("10"))
	require.NoError(t, err)

	c1 := table.Chairs[0].ID
	c2 := table.Chairs[1].ID
	assignment := map[uuid.UUID][]uuid.UUID{
		c1: {order.Items[0].ID},
		c2: {order.Items[1].ID, order.Items[2].ID},
	}

	results, err := f.workflow.Split(ctx, order.ID, order.Version, assignment)
	require.NoError(t, err)
	require.Len(t, results, 3, "two children plus the superseded parent")

	parent := results[len(results)-1]
	assert.Equal(t, order.ID, parent.ID)
	assert.Equal(t, domain.OrderCancelled, parent.Status, "superseded, never deleted")

	children := results[:2]
	sum := decimal.Zero
	itemCount := 0
	for _, child := range children {
		assert.NotEqual(t, order.ID, child.ID)
		assert.True(t, child.DiscountPercent.Equal(order.DiscountPercent), "children inherit the discount")
		sum = sum.Add(child.Total)
		itemCount += len(child.Items)
	}
	assert.Equal(t, 3, itemCount)
	assert.True(t, sum.Equal(order.Total), "child totals %s must add up to the original %s before rounding", sum, order.Total)

	// Each child owns its chair now.
	current, err := f.ledger.Table(table.ID)
	require.NoError(t, err)
	assert.True(t, current.Chairs[0].IsOccupied())
	assert.True(t, current.Chairs[1].IsOccupied())
	assert.NotEqual(t, *current.Chairs[0].CurrentOrderID, *current.Chairs[1].CurrentOrderID)
}

func TestSplit_RejectsIncompleteAssignment(t *testing.T) {
	ctx := context.Background()
	f := newWorkflowFixture(t)

	order, table := f.seatedOrder(t, ctx)
	order, err := f.orders.AddItem(ctx, order.ID, order.Version, services.AddItemRequest{MenuItemID: "ribeye", Quantity: 1, UnitPrice: dec("24.99")})
	require.NoError(t, err)
	order, err = f.orders.AddItem(ctx, order.ID, order.Version, services.AddItemRequest{MenuItemID: "salmon", Quantity: 1, UnitPrice: dec("18.99")})
	require.NoError(t, err)

	c1 := table.Chairs[0].ID
	c2 := table.Chairs[1].ID

	_, err = f.workflow.Split(ctx, order.ID, order.Version, map[uuid.UUID][]uuid.UUID{
		c1: {order.Items[0].ID},
	})
	assert.ErrorIs(t, err, domain.ErrValidation, "unassigned item")

	_, err = f.workflow.Split(ctx, order.ID, order.Version, map[uuid.UUID][]uuid.UUID{
		c1: {order.Items[0].ID, order.Items[1].ID},
		c2: {order.Items[1].ID},
	})
	assert.ErrorIs(t, err, domain.ErrValidation, "item assigned twice")

	_, err = f.workflow.Split(ctx, order.ID, order.Version, map[uuid.UUID][]uuid.UUID{
		c1: {order.Items[0].ID, order.Items[1].ID},
		c2: {},
	})
	assert.ErrorIs(t, err, domain.ErrValidation, "empty bucket")

	// No child order occupies a chair after the rejected splits.
	current, err := f.ledger.Table(table.ID)
	require.NoError(t, err)
	assert.Nil(t, current.Chairs[1].CurrentOrderID)
}

func TestMerge_CombinesTableOrders(t *testing.T) {
	ctx := context.Background()
	f := newWorkflowFixture(t)

	table, err := f.floor.CreateTable(ctx, services.CreateTableRequest{Number: 5, Capacity: 2})
	require.NoError(t, err)

	var refs []services.OrderRef
	total := decimal.Zero
	for i, chair := range table.Chairs {
		order, err := f.orders.CreateOrder(ctx, services.CreateOrderRequest{TableID: &table.ID, OrderType: domain.OrderDineIn})
		require.NoError(t, err)
		current, err := f.ledger.Table(table.ID)
		require.NoError(t, err)
		chairID := chair.ID
		order, _, err = f.workflow.Attach(ctx, order.ID, order.Version, table.ID, current.Version, &chairID)
		require.NoError(t, err)
		order, err = f.orders.AddItem(ctx, order.ID, order.Version, services.AddItemRequest{
			MenuItemID: "pasta", Quantity: i + 1, UnitPrice: dec("12.00"), ChairID: &chairID,
		})
		require.NoError(t, err)
		total = total.Add(order.Total)
		refs = append(refs, services.OrderRef{ID: order.ID, Version: order.Version})
	}

	merged, err := f.workflow.Merge(ctx, refs)
	require.NoError(t, err)
	assert.Len(t, merged.Items, 2)
	assert.True(t, merged.Total.Equal(total), "merged total %s must equal input sum %s", merged.Total, total)

	// Inputs are superseded, the merged order is the shared table bill.
	for _, ref := range refs {
		input, err := f.ledger.Order(ref.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.OrderCancelled, input.Status)
	}
	current, err := f.ledger.Table(table.ID)
	require.NoError(t, err)
	require.NotNil(t, current.CurrentOrderID)
	assert.Equal(t, merged.ID, *current.CurrentOrderID)

	// Item chair scoping survived the merge.
	for _, item := range merged.Items {
		assert.NotNil(t, item.ChairID)
	}
}

func TestMerge_RejectsDuplicateOrder(t *testing.T) {
	ctx := context.Background()
	f := newWorkflowFixture(t)

	order, table := f.seatedOrder(t, ctx)
	order, err := f.orders.AddItem(ctx, order.ID, order.Version, services.AddItemRequest{MenuItemID: "ribeye", Quantity: 1, UnitPrice: dec("24.99")})
	require.NoError(t, err)

	other, err := f.orders.CreateOrder(ctx, services.CreateOrderRequest{TableID: &table.ID, OrderType: domain.OrderDineIn})
	require.NoError(t, err)
	current, err := f.ledger.Table(table.ID)
	require.NoError(t, err)
	chairID := table.Chairs[1].ID
	other, _, err = f.workflow.Attach(ctx, other.ID, other.Version, table.ID, current.Version, &chairID)
	require.NoError(t, err)
	other, err = f.orders.AddItem(ctx, other.ID, other.Version, services.AddItemRequest{MenuItemID: "salmon", Quantity: 1, UnitPrice: dec("18.99")})
	require.NoError(t, err)

	// Listing the same order twice would double-bill its items.
	_, err = f.workflow.Merge(ctx, []services.OrderRef{
		{ID: order.ID, Version: order.Version},
		{ID: order.ID, Version: order.Version},
		{ID: other.ID, Version: other.Version},
	})
	assert.ErrorIs(t, err, domain.ErrValidation)

	// Both inputs are untouched by the rejected merge.
	for _, id := range []uuid.UUID{order.ID, other.ID} {
		input, err := f.ledger.Order(id)
		require.NoError(t, err)
		assert.NotEqual(t, domain.OrderCancelled, input.Status)
	}
}

func TestMerge_RejectsDifferentTables(t *testing.T) {
	ctx := context.Background()
	f := newWorkflowFixture(t)

	orderA, _ := f.seatedOrder(t, ctx)

	tableB, err := f.floor.CreateTable(ctx, services.CreateTableRequest{Number: 11, Capacity: 2})
	require.NoError(t, err)
	orderB, err := f.orders.CreateOrder(ctx, services.CreateOrderRequest{TableID: &tableB.ID, OrderType: domain.OrderDineIn})
	require.NoError(t, err)
	chairID := tableB.Chairs[0].ID
	orderB, _, err = f.workflow.Attach(ctx, orderB.ID, orderB.Version, tableB.ID, tableB.Version, &chairID)
	require.NoError(t, err)

	_, err = f.workflow.Merge(ctx, []services.OrderRef{
		{ID: orderA.ID, Version: orderA.Version},
		{ID: orderB.ID, Version: orderB.Version},
	})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestMerge_RejectsHeldOrders(t *testing.T) {
	ctx := context.Background()
	f := newWorkflowFixture(t)

	orderA, table := f.seatedOrder(t, ctx)

	orderB, err := f.orders.CreateOrder(ctx, services.CreateOrderRequest{TableID: &table.ID, OrderType: domain.OrderDineIn})
	require.NoError(t, err)
	current, err := f.ledger.Table(table.ID)
	require.NoError(t, err)
	chairID := current.Chairs[1].ID
	orderB, _, err = f.workflow.Attach(ctx, orderB.ID, orderB.Version, table.ID, current.Version, &chairID)
	require.NoError(t, err)

	held, err := f.workflow.Hold(ctx, orderB.ID, orderB.Version)
	require.NoError(t, err)

	_, err = f.workflow.Merge(ctx, []services.OrderRef{
		{ID: orderA.ID, Version: orderA.Version},
		{ID: held.ID, Version: held.Version},
	})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

// Splitting and then merging the children back on the same table restores
// the original item multiset and total exactly, before any rounding.
func TestSplitMerge_RoundTrip(t *testing.T) {
	ctx := context.Background()
	f := newWorkflowFixture(t)

	order, table := f.seatedOrder(t, ctx)
	order, err := f.orders.AddItem(ctx, order.ID, order.Version, services.AddItemRequest{MenuItemID: "ribeye", Quantity: 2, UnitPrice: dec("24.99")})
	require.NoError(t, err)
	order, err = f.orders.AddItem(ctx, order.ID, order.Version, services.AddItemRequest{MenuItemID: "salmon", Quantity: 1, UnitPrice: dec("18.99")})
	require.NoError(t, err)
	order, err = f.orders.SetTip(ctx, order.ID, order.Version, dec("15"))
	require.NoError(t, err)

	assignment := map[uuid.UUID][]uuid.UUID{
		table.Chairs[0].ID: {order.Items[0].ID},
		table.Chairs[1].ID: {order.Items[1].ID},
	}
	results, err := f.workflow.Split(ctx, order.ID, order.Version, assignment)
	require.NoError(t, err)

	var refs []services.OrderRef
	for _, child := range results[:len(results)-1] {
		refs = append(refs, services.OrderRef{ID: child.ID, Version: child.Version})
	}

	merged, err := f.workflow.Merge(ctx, refs)
	require.NoError(t, err)

	assert.Len(t, merged.Items, len(order.Items))
	assert.True(t, merged.Total.Equal(order.Total), "merged total %s must equal the original %s", merged.Total, order.Total)
	assert.True(t, merged.TipPercent.Equal(order.TipPercent))
}

func TestHold_PublishesEvent(t *testing.T) {
	ctx := context.Background()
	ledger := state.NewLedger()
	logger := zap.NewNop().Sugar()

	publisher := mocks.NewEventPublisher(t)
	publisher.On("Publish", mock.Anything, mock.MatchedBy(func(ev domain.LedgerEvent) bool {
		return ev.EventType == domain.EventOrderHeld
	})).Return(nil).Once()

	orders := services.NewOrderService(ledger, nil, nil, nil, nil, logger)
	workflow := services.NewWorkflowService(ledger, nil, nil, nil, publisher, logger)

	order, err := orders.CreateOrder(ctx, services.CreateOrderRequest{OrderType: domain.OrderTakeaway})
	require.NoError(t, err)

	_, err = workflow.Hold(ctx, order.ID, order.Version)
	require.NoError(t, err)
}

func TestWorkflow_StaleOrderVersion(t *testing.T) {
	ctx := context.Background()
	f := newWorkflowFixture(t)

	order, _ := f.seatedOrder(t, ctx)

	_, err := f.workflow.Hold(ctx, order.ID, order.Version+3)
	assert.ErrorIs(t, err, domain.ErrConcurrentModification)
}
