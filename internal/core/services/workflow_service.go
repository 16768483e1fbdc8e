package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/srgjo27/floor_ledger/internal/core/billing"
	"github.com/srgjo27/floor_ledger/internal/core/domain"
	"github.com/srgjo27/floor_ledger/internal/core/ports"
	"github.com/srgjo27/floor_ledger/internal/core/state"
)

// OrderRef identifies an order together with the version the caller
// observed.
type OrderRef struct {
	ID      uuid.UUID `json:"id"`
	Version int       `json:"version"`
}

// WorkflowService orchestrates the multi-aggregate commands: seating an
// order, parking and resuming it, and splitting or merging bills. Every
// command commits its order and table writes atomically through the ledger.
type WorkflowService struct {
	ledger    *state.Ledger
	orderRepo ports.OrderRepository
	tableRepo ports.TableRepository
	cache     *redis.Client
	publisher ports.EventPublisher
	logger    *zap.SugaredLogger
}

func NewWorkflowService(
	ledger *state.Ledger,
	orderRepo ports.OrderRepository,
	tableRepo ports.TableRepository,
	cache *redis.Client,
	publisher ports.EventPublisher,
	logger *zap.SugaredLogger,
) *WorkflowService {
	return &WorkflowService{
		ledger:    ledger,
		orderRepo: orderRepo,
		tableRepo: tableRepo,
		cache:     cache,
		publisher: publisher,
		logger:    logger,
	}
}

// Attach seats an order at a chair, or at the table itself when chairID is
// nil (shared bill).
func (s *WorkflowService) Attach(ctx context.Context, orderID uuid.UUID, orderVersion int, tableID uuid.UUID, tableVersion int, chairID *uuid.UUID) (domain.Order, domain.Table, error) {
	order, err := s.ledger.Order(orderID)
	if err != nil {
		return domain.Order{}, domain.Table{}, err
	}
	if order.Status.IsTerminal() {
		return domain.Order{}, domain.Table{}, fmt.Errorf("%w: order %s is %s and cannot be seated", domain.ErrInvalidTransition, orderID, order.Status)
	}
	if order.Status == domain.OrderHold {
		return domain.Order{}, domain.Table{}, fmt.Errorf("%w: order %s is on hold, resume it instead", domain.ErrInvalidTransition, orderID)
	}
	table, err := s.ledger.Table(tableID)
	if err != nil {
		return domain.Order{}, domain.Table{}, err
	}

	if err := s.attach(ctx, &order, &table, chairID); err != nil {
		return domain.Order{}, domain.Table{}, err
	}
	order.UpdatedAt = time.Now().UTC()

	storedOrder, storedTable, err := s.ledger.PutOrderAndTable(order, orderVersion, table, tableVersion)
	if err != nil {
		return domain.Order{}, domain.Table{}, err
	}
	s.persist(ctx, []domain.Order{storedOrder}, storedTable)
	return storedOrder, storedTable, nil
}

// Hold parks an order and frees its seat for other service. Only legal from
// pending, confirmed or preparing; the pre-hold status is recorded for
// resume.
func (s *WorkflowService) Hold(ctx context.Context, orderID uuid.UUID, orderVersion int) (domain.Order, error) {
	order, err := s.ledger.Order(orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if !order.Status.Holdable() {
		return domain.Order{}, fmt.Errorf("%w: cannot hold an order in status %s", domain.ErrInvalidTransition, order.Status)
	}

	order.HeldFrom = order.Status
	order.Status = domain.OrderHold
	order.UpdatedAt = time.Now().UTC()

	var storedOrder domain.Order
	if order.TableID != nil {
		table, err := s.ledger.Table(*order.TableID)
		if err != nil {
			return domain.Order{}, err
		}
		DetachOrder(&order, &table)
		var storedTable domain.Table
		storedOrder, storedTable, err = s.ledger.PutOrderAndTable(order, orderVersion, table, table.Version)
		if err != nil {
			return domain.Order{}, err
		}
		s.persist(ctx, []domain.Order{storedOrder}, storedTable)
	} else {
		storedOrder, err = s.ledger.PutOrder(order, orderVersion)
		if err != nil {
			return domain.Order{}, err
		}
		s.persist(ctx, []domain.Order{storedOrder}, domain.Table{})
	}

	s.publish(ctx, domain.NewLedgerEvent(domain.EventOrderHeld, storedOrder.ID))
	return storedOrder, nil
}

// Resume re-seats a held order and restores its pre-hold status.
func (s *WorkflowService) Resume(ctx context.Context, orderID uuid.UUID, orderVersion int, tableID uuid.UUID, tableVersion int, chairID *uuid.UUID) (domain.Order, error) {
	order, err := s.ledger.Order(orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if order.Status != domain.OrderHold {
		return domain.Order{}, fmt.Errorf("%w: order %s is %s, not on hold", domain.ErrInvalidTransition, orderID, order.Status)
	}
	table, err := s.ledger.Table(tableID)
	if err != nil {
		return domain.Order{}, err
	}

	if err := s.attach(ctx, &order, &table, chairID); err != nil {
		return domain.Order{}, err
	}
	order.Status = order.HeldFrom
	order.HeldFrom = ""
	order.UpdatedAt = time.Now().UTC()

	storedOrder, storedTable, err := s.ledger.PutOrderAndTable(order, orderVersion, table, tableVersion)
	if err != nil {
		return domain.Order{}, err
	}
	s.persist(ctx, []domain.Order{storedOrder}, storedTable)
	s.publish(ctx, domain.NewLedgerEvent(domain.EventOrderResumed, storedOrder.ID))
	return storedOrder, nil
}

// Split divides an order's items into one new per-chair order per bucket.
// Every item must land in exactly one bucket. Children inherit the parent's
// discount and tip percentages and its current status; the parent is marked
// cancelled as superseded, never deleted.
func (s *WorkflowService) Split(ctx context.Context, orderID uuid.UUID, orderVersion int, assignment map[uuid.UUID][]uuid.UUID) ([]domain.Order, error) {
	order, err := s.ledger.Order(orderID)
	if err != nil {
		return nil, err
	}
	if order.Status.IsTerminal() || order.Status == domain.OrderHold {
		return nil, fmt.Errorf("%w: cannot split an order in status %s", domain.ErrInvalidTransition, order.Status)
	}
	if order.TableID == nil {
		return nil, fmt.Errorf("%w: order %s is not seated at a table", domain.ErrValidation, orderID)
	}
	if len(assignment) == 0 {
		return nil, fmt.Errorf("%w: empty split assignment", domain.ErrValidation)
	}

	assigned := make(map[uuid.UUID]uuid.UUID, len(order.Items))
	for chairID, itemIDs := range assignment {
		if len(itemIDs) == 0 {
			return nil, fmt.Errorf("%w: no items assigned to chair %s", domain.ErrValidation, chairID)
		}
		for _, itemID := range itemIDs {
			if order.ItemByID(itemID) == nil {
				return nil, fmt.Errorf("%w: item %s on order %s", domain.ErrNotFound, itemID, orderID)
			}
			if _, dup := assigned[itemID]; dup {
				return nil, fmt.Errorf("%w: item %s assigned to more than one chair", domain.ErrValidation, itemID)
			}
			assigned[itemID] = chairID
		}
	}
	if len(assigned) != len(order.Items) {
		return nil, fmt.Errorf("%w: %d of %d items left unassigned", domain.ErrValidation, len(order.Items)-len(assigned), len(order.Items))
	}

	table, err := s.ledger.Table(*order.TableID)
	if err != nil {
		return nil, err
	}
	tableVersion := table.Version
	DetachOrder(&order, &table)

	// Deterministic child ordering regardless of map iteration.
	chairIDs := make([]uuid.UUID, 0, len(assignment))
	for chairID := range assignment {
		chairIDs = append(chairIDs, chairID)
	}
	sort.Slice(chairIDs, func(i, j int) bool { return chairIDs[i].String() < chairIDs[j].String() })

	now := time.Now().UTC()
	writes := make([]state.OrderWrite, 0, len(chairIDs)+1)
	for _, chairID := range chairIDs {
		child := domain.Order{
			ID:              uuid.New(),
			OrderType:       order.OrderType,
			Status:          order.Status,
			DiscountPercent: order.DiscountPercent,
			TipPercent:      order.TipPercent,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		for _, itemID := range assignment[chairID] {
			item := *order.ItemByID(itemID)
			cID := chairID
			item.ChairID = &cID
			child.Items = append(child.Items, item)
		}
		if err := billing.Refresh(&child); err != nil {
			return nil, err
		}
		cID := chairID
		if err := s.attach(ctx, &child, &table, &cID); err != nil {
			return nil, err
		}
		writes = append(writes, state.OrderWrite{Order: child})
	}

	order.Status = domain.OrderCancelled
	order.UpdatedAt = now
	writes = append(writes, state.OrderWrite{Order: order, ExpectedVersion: orderVersion})

	storedOrders, storedTables, err := s.ledger.Commit(writes, []state.TableWrite{{Table: table, ExpectedVersion: tableVersion}})
	if err != nil {
		return nil, err
	}
	s.persist(ctx, storedOrders, storedTables[0])

	event := domain.NewLedgerEvent(domain.EventOrderSplit, order.ID)
	event.TableID = table.ID.String()
	event.Detail = fmt.Sprintf("split into %d orders", len(chairIDs))
	s.publish(ctx, event)

	// Children first, superseded parent last.
	return storedOrders, nil
}

// Merge combines orders on the same table into one shared table-level bill.
// Item chair scoping is preserved; the inputs are marked cancelled as
// superseded. Discount and tip percentages are taken from the first input.
func (s *WorkflowService) Merge(ctx context.Context, refs []OrderRef) (domain.Order, error) {
	if len(refs) < 2 {
		return domain.Order{}, fmt.Errorf("%w: merge needs at least two orders", domain.ErrValidation)
	}

	inputs := make([]domain.Order, 0, len(refs))
	seen := make(map[uuid.UUID]struct{}, len(refs))
	for _, ref := range refs {
		if _, dup := seen[ref.ID]; dup {
			return domain.Order{}, fmt.Errorf("%w: order %s listed more than once", domain.ErrValidation, ref.ID)
		}
		seen[ref.ID] = struct{}{}
		order, err := s.ledger.Order(ref.ID)
		if err != nil {
			return domain.Order{}, err
		}
		if order.Status.IsTerminal() || order.Status == domain.OrderHold {
			return domain.Order{}, fmt.Errorf("%w: order %s is %s and cannot be merged", domain.ErrValidation, order.ID, order.Status)
		}
		if order.TableID == nil {
			return domain.Order{}, fmt.Errorf("%w: order %s is not seated at a table", domain.ErrValidation, order.ID)
		}
		inputs = append(inputs, order)
	}
	tableID := *inputs[0].TableID
	for _, order := range inputs[1:] {
		if *order.TableID != tableID {
			return domain.Order{}, fmt.Errorf("%w: orders span different tables", domain.ErrValidation)
		}
	}

	table, err := s.ledger.Table(tableID)
	if err != nil {
		return domain.Order{}, err
	}
	tableVersion := table.Version

	now := time.Now().UTC()
	merged := domain.Order{
		ID:              uuid.New(),
		OrderType:       inputs[0].OrderType,
		Status:          inputs[0].Status,
		DiscountPercent: inputs[0].DiscountPercent,
		TipPercent:      inputs[0].TipPercent,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	writes := make([]state.OrderWrite, 0, len(inputs)+1)
	for i := range inputs {
		merged.Items = append(merged.Items, inputs[i].Items...)
		DetachOrder(&inputs[i], &table)
		inputs[i].Status = domain.OrderCancelled
		inputs[i].UpdatedAt = now
		writes = append(writes, state.OrderWrite{Order: inputs[i], ExpectedVersion: refs[i].Version})
	}
	if err := billing.Refresh(&merged); err != nil {
		return domain.Order{}, err
	}
	if err := s.attach(ctx, &merged, &table, nil); err != nil {
		return domain.Order{}, err
	}
	writes = append(writes, state.OrderWrite{Order: merged})

	storedOrders, storedTables, err := s.ledger.Commit(writes, []state.TableWrite{{Table: table, ExpectedVersion: tableVersion}})
	if err != nil {
		return domain.Order{}, err
	}
	s.persist(ctx, storedOrders, storedTables[0])

	storedMerged := storedOrders[len(storedOrders)-1]
	event := domain.NewLedgerEvent(domain.EventOrdersMerged, storedMerged.ID)
	event.TableID = table.ID.String()
	event.Detail = fmt.Sprintf("merged %d orders", len(inputs))
	s.publish(ctx, event)
	return storedMerged, nil
}

// attach wraps AttachOrder and reports a chair conflict to the notification
// sink before surfacing it.
func (s *WorkflowService) attach(ctx context.Context, order *domain.Order, table *domain.Table, chairID *uuid.UUID) error {
	err := AttachOrder(order, table, chairID)
	if err == nil {
		return nil
	}
	if chairID != nil && errorIsConflict(err) {
		event := domain.NewLedgerEvent(domain.EventChairConflict, order.ID)
		event.TableID = table.ID.String()
		event.ChairID = chairID.String()
		event.Detail = err.Error()
		s.publish(ctx, event)
	}
	return err
}

func errorIsConflict(err error) bool {
	return errors.Is(err, domain.ErrOccupancyConflict)
}

func (s *WorkflowService) persist(ctx context.Context, orders []domain.Order, table domain.Table) {
	if s.orderRepo != nil {
		for _, order := range orders {
			if err := s.orderRepo.SaveOrder(ctx, order); err != nil {
				s.logger.Errorw("failed to persist order snapshot", "order_id", order.ID, "error", err)
			}
		}
	}
	if table.ID == uuid.Nil {
		return
	}
	if s.tableRepo != nil {
		if err := s.tableRepo.SaveTable(ctx, table); err != nil {
			s.logger.Errorw("failed to persist table snapshot", "table_id", table.ID, "error", err)
		}
	}
	if s.cache != nil {
		if err := s.cache.Del(ctx, floorCacheKey).Err(); err != nil {
			s.logger.Warnw("failed to invalidate floor cache", "error", err)
		}
	}
}

func (s *WorkflowService) publish(ctx context.Context, event domain.LedgerEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warnw("failed to publish ledger event", "event_type", event.EventType, "error", err)
	}
}
