package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/srgjo27/floor_ledger/internal/core/domain"
	"github.com/srgjo27/floor_ledger/internal/core/ports"
	"github.com/srgjo27/floor_ledger/internal/core/state"
)

const (
	floorCacheKey = "floor:tables"
	floorCacheTTL = 1 * time.Minute
)

type CreateTableRequest struct {
	Number   int    `json:"number"`
	Capacity int    `json:"capacity"`
	Section  string `json:"section"`
	Shape    string `json:"shape"`
}

type FloorService struct {
	ledger    *state.Ledger
	tableRepo ports.TableRepository
	cache     *redis.Client
	logger    *zap.SugaredLogger
}

func NewFloorService(ledger *state.Ledger, tableRepo ports.TableRepository, cache *redis.Client, logger *zap.SugaredLogger) *FloorService {
	return &FloorService{
		ledger:    ledger,
		tableRepo: tableRepo,
		cache:     cache,
		logger:    logger,
	}
}

// CreateTable generates a table with capacity chairs numbered 1..capacity,
// all available.
func (s *FloorService) CreateTable(ctx context.Context, req CreateTableRequest) (domain.Table, error) {
	if req.Capacity < 1 {
		return domain.Table{}, fmt.Errorf("%w: capacity must be at least 1, got %d", domain.ErrValidation, req.Capacity)
	}

	table := domain.Table{
		ID:       uuid.New(),
		Number:   req.Number,
		Capacity: req.Capacity,
		Section:  req.Section,
		Shape:    req.Shape,
		Status:   domain.TableAvailable,
		Chairs:   make([]domain.Chair, 0, req.Capacity),
	}
	for i := 1; i <= req.Capacity; i++ {
		table.Chairs = append(table.Chairs, domain.Chair{
			ID:     uuid.New(),
			Number: i,
			Status: domain.ChairAvailable,
		})
	}

	stored, err := s.ledger.PutTable(table, 0)
	if err != nil {
		return domain.Table{}, err
	}
	s.afterTableMutation(ctx, stored)
	return stored, nil
}

// ResizeTable preserves chairs 1..min(old,new). Growth appends available
// chairs continuing the numbering; a shrink that would cut through an
// occupied or reserved chair fails and leaves the table unchanged.
func (s *FloorService) ResizeTable(ctx context.Context, tableID uuid.UUID, version int, newCapacity int) (domain.Table, error) {
	if newCapacity < 1 {
		return domain.Table{}, fmt.Errorf("%w: capacity must be at least 1, got %d", domain.ErrValidation, newCapacity)
	}
	table, err := s.ledger.Table(tableID)
	if err != nil {
		return domain.Table{}, err
	}

	if newCapacity < len(table.Chairs) {
		for _, chair := range table.Chairs[newCapacity:] {
			if chair.Status == domain.ChairOccupied || chair.Status == domain.ChairReserved {
				return domain.Table{}, fmt.Errorf("%w: cannot shrink table %d through %s chair %d", domain.ErrOccupancyConflict, table.Number, chair.Status, chair.Number)
			}
		}
		table.Chairs = table.Chairs[:newCapacity]
	}
	for i := len(table.Chairs) + 1; i <= newCapacity; i++ {
		table.Chairs = append(table.Chairs, domain.Chair{
			ID:     uuid.New(),
			Number: i,
			Status: domain.ChairAvailable,
		})
	}
	table.Capacity = newCapacity
	table.DeriveStatus()

	stored, err := s.ledger.PutTable(table, version)
	if err != nil {
		return domain.Table{}, err
	}
	s.afterTableMutation(ctx, stored)
	return stored, nil
}

// SetChairStatus is the manual toggle (cleaning, reserved, or a forced
// occupied without an owning order). Leaving the occupied state clears the
// order back-reference so the chair invariant holds.
func (s *FloorService) SetChairStatus(ctx context.Context, tableID uuid.UUID, version int, chairID uuid.UUID, status domain.ChairStatus) (domain.Table, error) {
	if !status.Valid() {
		return domain.Table{}, fmt.Errorf("%w: unknown chair status %q", domain.ErrValidation, status)
	}
	table, err := s.ledger.Table(tableID)
	if err != nil {
		return domain.Table{}, err
	}
	chair := table.ChairByID(chairID)
	if chair == nil {
		return domain.Table{}, fmt.Errorf("%w: chair %s on table %s", domain.ErrNotFound, chairID, tableID)
	}

	chair.Status = status
	if status != domain.ChairOccupied {
		chair.CurrentOrderID = nil
	}
	table.DeriveStatus()

	stored, err := s.ledger.PutTable(table, version)
	if err != nil {
		return domain.Table{}, err
	}
	s.afterTableMutation(ctx, stored)
	return stored, nil
}

// SetTableOverride marks a whole table reserved or cleaning. The derived
// statuses cannot be set directly.
func (s *FloorService) SetTableOverride(ctx context.Context, tableID uuid.UUID, version int, status domain.TableStatus) (domain.Table, error) {
	if status != domain.TableReserved && status != domain.TableCleaning {
		return domain.Table{}, fmt.Errorf("%w: table status %q is derived and cannot be set directly", domain.ErrValidation, status)
	}
	table, err := s.ledger.Table(tableID)
	if err != nil {
		return domain.Table{}, err
	}
	table.Status = status

	stored, err := s.ledger.PutTable(table, version)
	if err != nil {
		return domain.Table{}, err
	}
	s.afterTableMutation(ctx, stored)
	return stored, nil
}

// ClearTableOverride lifts a reserved/cleaning override and falls back to
// the status derived from the chairs.
func (s *FloorService) ClearTableOverride(ctx context.Context, tableID uuid.UUID, version int) (domain.Table, error) {
	table, err := s.ledger.Table(tableID)
	if err != nil {
		return domain.Table{}, err
	}
	if !table.HasOverride() {
		return domain.Table{}, fmt.Errorf("%w: table %s has no override to clear", domain.ErrValidation, tableID)
	}
	table.Status = domain.TableAvailable
	table.DeriveStatus()

	stored, err := s.ledger.PutTable(table, version)
	if err != nil {
		return domain.Table{}, err
	}
	s.afterTableMutation(ctx, stored)
	return stored, nil
}

func (s *FloorService) Table(tableID uuid.UUID) (domain.Table, error) {
	return s.ledger.Table(tableID)
}

// Tables lists floor snapshots through the redis cache so read-heavy POS
// stations do not hammer the ledger lock.
func (s *FloorService) Tables(ctx context.Context) ([]domain.Table, error) {
	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, floorCacheKey).Bytes(); err == nil {
			var tables []domain.Table
			if err := json.Unmarshal(raw, &tables); err == nil {
				return tables, nil
			}
		}
	}

	tables := s.ledger.Tables()
	if s.cache != nil {
		if raw, err := json.Marshal(tables); err == nil {
			if err := s.cache.Set(ctx, floorCacheKey, raw, floorCacheTTL).Err(); err != nil {
				s.logger.Warnw("failed to cache floor snapshot", "error", err)
			}
		}
	}
	return tables, nil
}

// afterTableMutation hands the snapshot to the durable store and drops the
// floor cache. The in-memory ledger is the source of truth, so a collaborator
// failure is logged, not surfaced.
func (s *FloorService) afterTableMutation(ctx context.Context, table domain.Table) {
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
