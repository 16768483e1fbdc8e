package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/srgjo27/floor_ledger/internal/core/billing"
	"github.com/srgjo27/floor_ledger/internal/core/domain"
	"github.com/srgjo27/floor_ledger/internal/core/ports"
	"github.com/srgjo27/floor_ledger/internal/core/state"
)

type CreateOrderRequest struct {
	TableID   *uuid.UUID       `json:"table_id,omitempty"`
	ChairID   *uuid.UUID       `json:"chair_id,omitempty"`
	OrderType domain.OrderType `json:"order_type"`
}

type AddItemRequest struct {
	MenuItemID string          `json:"menu_item_id"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Notes      string          `json:"notes,omitempty"`
	ChairID    *uuid.UUID      `json:"chair_id,omitempty"`
}

type OrderService struct {
	ledger    *state.Ledger
	orderRepo ports.OrderRepository
	tableRepo ports.TableRepository
	cache     *redis.Client
	publisher ports.EventPublisher
	logger    *zap.SugaredLogger
}

func NewOrderService(
	ledger *state.Ledger,
	orderRepo ports.OrderRepository,
	tableRepo ports.TableRepository,
	cache *redis.Client,
	publisher ports.EventPublisher,
	logger *zap.SugaredLogger,
) *OrderService {
	return &OrderService{
		ledger:    ledger,
		orderRepo: orderRepo,
		tableRepo: tableRepo,
		cache:     cache,
		publisher: publisher,
		logger:    logger,
	}
}

// CreateOrder opens a new pending bill. A dine-in order must name a table or
// a chair; seating itself happens through the workflow attach.
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (domain.Order, error) {
	if !req.OrderType.Valid() {
		return domain.Order{}, fmt.Errorf("%w: unknown order type %q", domain.ErrValidation, req.OrderType)
	}
	if req.OrderType == domain.OrderDineIn && req.TableID == nil && req.ChairID == nil {
		return domain.Order{}, fmt.Errorf("%w: dine-in order needs a table or a chair", domain.ErrValidation)
	}

	now := time.Now().UTC()
	order := domain.Order{
		ID:              uuid.New(),
		TableID:         req.TableID,
		ChairID:         req.ChairID,
		Status:          domain.OrderPending,
		OrderType:       req.OrderType,
		DiscountPercent: decimal.Zero,
		TipPercent:      decimal.Zero,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := billing.Refresh(&order); err != nil {
		return domain.Order{}, err
	}

	stored, err := s.ledger.PutOrder(order, 0)
	if err != nil {
		return domain.Order{}, err
	}
	s.persistOrder(ctx, stored)
	return stored, nil
}

// AddItem appends a pending line item and recomputes the bill.
func (s *OrderService) AddItem(ctx context.Context, orderID uuid.UUID, version int, req AddItemRequest) (domain.Order, error) {
	if req.Quantity <= 0 {
		return domain.Order{}, fmt.Errorf("%w: quantity must be positive, got %d", domain.ErrValidation, req.Quantity)
	}
	if req.UnitPrice.IsNegative() {
		return domain.Order{}, fmt.Errorf("%w: unit price %s is negative", domain.ErrValidation, req.UnitPrice)
	}

	order, err := s.modifiableOrder(orderID)
	if err != nil {
		return domain.Order{}, err
	}
	order.Items = append(order.Items, domain.OrderItem{
		ID:         uuid.New(),
		MenuItemID: req.MenuItemID,
		Quantity:   req.Quantity,
		UnitPrice:  req.UnitPrice,
		Notes:      req.Notes,
		Status:     domain.ItemPending,
		ChairID:    req.ChairID,
	})
	return s.commitOrder(ctx, order, version)
}

// UpdateItemQuantity adjusts a line item by delta, clamped at zero. Reaching
// zero removes the item.
func (s *OrderService) UpdateItemQuantity(ctx context.Context, orderID uuid.UUID, version int, itemID uuid.UUID, delta int) (domain.Order, error) {
	order, err := s.modifiableOrder(orderID)
	if err != nil {
		return domain.Order{}, err
	}
	item := order.ItemByID(itemID)
	if item == nil {
		return domain.Order{}, fmt.Errorf("%w: item %s on order %s", domain.ErrNotFound, itemID, orderID)
	}

	quantity := item.Quantity + delta
	if quantity <= 0 {
		removeItem(&order, itemID)
	} else {
		item.Quantity = quantity
	}
	return s.commitOrder(ctx, order, version)
}

func (s *OrderService) RemoveItem(ctx context.Context, orderID uuid.UUID, version int, itemID uuid.UUID) (domain.Order, error) {
	order, err := s.modifiableOrder(orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if order.ItemByID(itemID) == nil {
		return domain.Order{}, fmt.Errorf("%w: item %s on order %s", domain.ErrNotFound, itemID, orderID)
	}
	removeItem(&order, itemID)
	return s.commitOrder(ctx, order, version)
}

// UpdateItemStatus moves a single line item through the kitchen stages.
func (s *OrderService) UpdateItemStatus(ctx context.Context, orderID uuid.UUID, version int, itemID uuid.UUID, status domain.ItemStatus) (domain.Order, error) {
	if !status.Valid() {
		return domain.Order{}, fmt.Errorf("%w: unknown item status %q", domain.ErrValidation, status)
	}
	order, err := s.modifiableOrder(orderID)
	if err != nil {
		return domain.Order{}, err
	}
	item := order.ItemByID(itemID)
	if item == nil {
		return domain.Order{}, fmt.Errorf("%w: item %s on order %s", domain.ErrNotFound, itemID, orderID)
	}
	item.Status = status
	return s.commitOrder(ctx, order, version)
}

// SetDiscount stores the caller-supplied discount percent and recomputes the
// bill. Out-of-range values are rejected by the calculator.
// Adjust applies the supplied discount and tip percentages in a single
// commit, so a request carrying both either lands whole or not at all.
func (s *OrderService) Adjust(ctx context.Context, orderID uuid.UUID, version int, discountPercent, tipPercent *decimal.Decimal) (domain.Order, error) {
	if discountPercent == nil && tipPercent == nil {
		return domain.Order{}, fmt.Errorf("%w: nothing to adjust", domain.ErrValidation)
	}
	order, err := s.modifiableOrder(orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if discountPercent != nil {
		order.DiscountPercent = *discountPercent
	}
	if tipPercent != nil {
		order.TipPercent = *tipPercent
	}
	return s.commitOrder(ctx, order, version)
}

func (s *OrderService) SetDiscount(ctx context.Context, orderID uuid.UUID, version int, percent decimal.Decimal) (domain.Order, error) {
	return s.Adjust(ctx, orderID, version, &percent, nil)
}

func (s *OrderService) SetTip(ctx context.Context, orderID uuid.UUID, version int, percent decimal.Decimal) (domain.Order, error) {
	return s.Adjust(ctx, orderID, version, nil, &percent)
}

// Transition moves the order along the status machine. Reaching a terminal
// status detaches the order from its seat in the same commit.
func (s *OrderService) Transition(ctx context.Context, orderID uuid.UUID, version int, newStatus domain.OrderStatus) (domain.Order, error) {
	order, err := s.ledger.Order(orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if !order.Status.CanTransition(newStatus) {
		return domain.Order{}, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, order.Status, newStatus)
	}
	order.Status = newStatus
	order.UpdatedAt = time.Now().UTC()

	if newStatus.IsTerminal() && order.TableID != nil {
		table, err := s.ledger.Table(*order.TableID)
		if err != nil {
			return domain.Order{}, err
		}
		DetachOrder(&order, &table)
		storedOrder, storedTable, err := s.ledger.PutOrderAndTable(order, version, table, table.Version)
		if err != nil {
			return domain.Order{}, err
		}
		s.persistOrder(ctx, storedOrder)
		s.persistTable(ctx, storedTable)
		s.publishTerminal(ctx, storedOrder)
		return storedOrder, nil
	}

	stored, err := s.ledger.PutOrder(order, version)
	if err != nil {
		return domain.Order{}, err
	}
	s.persistOrder(ctx, stored)
	if newStatus.IsTerminal() {
		s.publishTerminal(ctx, stored)
	}
	return stored, nil
}

func (s *OrderService) Order(orderID uuid.UUID) (domain.Order, error) {
	return s.ledger.Order(orderID)
}

func (s *OrderService) Orders() []domain.Order {
	return s.ledger.Orders()
}

// ArchiveOrder removes a terminal order on behalf of the external archiver.
func (s *OrderService) ArchiveOrder(ctx context.Context, orderID uuid.UUID) (domain.Order, error) {
	order, err := s.ledger.ArchiveOrder(orderID)
	if err != nil {
		return domain.Order{}, err
	}
	s.logger.Infow("order archived", "order_id", order.ID, "status", order.Status)
	return order, nil
}

func (s *OrderService) modifiableOrder(orderID uuid.UUID) (domain.Order, error) {
	order, err := s.ledger.Order(orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if order.Status.IsTerminal() {
		return domain.Order{}, fmt.Errorf("%w: order %s is %s and cannot be modified", domain.ErrInvalidTransition, orderID, order.Status)
	}
	return order, nil
}

func (s *OrderService) commitOrder(ctx context.Context, order domain.Order, version int) (domain.Order, error) {
	if err := billing.Refresh(&order); err != nil {
		return domain.Order{}, err
	}
	order.UpdatedAt = time.Now().UTC()
	stored, err := s.ledger.PutOrder(order, version)
	if err != nil {
		return domain.Order{}, err
	}
	s.persistOrder(ctx, stored)
	return stored, nil
}

func (s *OrderService) persistOrder(ctx context.Context, order domain.Order) {
	if s.orderRepo == nil {
		return
	}
	if err := s.orderRepo.SaveOrder(ctx, order); err != nil {
		s.logger.Errorw("failed to persist order snapshot", "order_id", order.ID, "error", err)
	}
}

func (s *OrderService) persistTable(ctx context.Context, table domain.Table) {
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

func (s *OrderService) publishTerminal(ctx context.Context, order domain.Order) {
	if s.publisher == nil {
		return
	}
	eventType := domain.EventOrderCompleted
	if order.Status == domain.OrderCancelled {
		eventType = domain.EventOrderCancelled
	}
	if err := s.publisher.Publish(ctx, domain.NewLedgerEvent(eventType, order.ID)); err != nil {
		s.logger.Warnw("failed to publish ledger event", "event_type", eventType, "order_id", order.ID, "error", err)
	}
}

func removeItem(o *domain.Order, itemID uuid.UUID) {
	items := o.Items[:0]
	for _, it := range o.Items {
		if it.ID != itemID {
			items = append(items, it)
		}
	}
	o.Items = items
}
