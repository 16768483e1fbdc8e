// Package state holds the in-memory Table and Order aggregates. Every write
// is a compare-and-set against the version the caller last observed, the
// in-process equivalent of an UPDATE ... WHERE version = $n. Reads and
// writes exchange deep copies only; stored state is never aliased to
// callers.
package state

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/srgjo27/floor_ledger/internal/core/domain"
)

type Ledger struct {
	mu     sync.RWMutex
	tables map[uuid.UUID]domain.Table
	orders map[uuid.UUID]domain.Order
}

func NewLedger() *Ledger {
	return &Ledger{
		tables: make(map[uuid.UUID]domain.Table),
		orders: make(map[uuid.UUID]domain.Order),
	}
}

// Seed installs snapshots provided by the durable store at startup. Versions
// are taken as-is; zero versions are bumped to 1 so the first CAS works.
func (l *Ledger) Seed(tables []domain.Table, orders []domain.Order) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, t := range tables {
		if t.Version < 1 {
			t.Version = 1
		}
		l.tables[t.ID] = t.Clone()
	}
	for _, o := range orders {
		if o.Version < 1 {
			o.Version = 1
		}
		l.orders[o.ID] = o.Clone()
	}
}

func (l *Ledger) Table(id uuid.UUID) (domain.Table, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	t, ok := l.tables[id]
	if !ok {
		return domain.Table{}, fmt.Errorf("%w: table %s", domain.ErrNotFound, id)
	}
	return t.Clone(), nil
}

func (l *Ledger) Tables() []domain.Table {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]domain.Table, 0, len(l.tables))
	for _, t := range l.tables {
		out = append(out, t.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}

func (l *Ledger) Order(id uuid.UUID) (domain.Order, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	o, ok := l.orders[id]
	if !ok {
		return domain.Order{}, fmt.Errorf("%w: order %s", domain.ErrNotFound, id)
	}
	return o.Clone(), nil
}

func (l *Ledger) Orders() []domain.Order {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]domain.Order, 0, len(l.orders))
	for _, o := range l.orders {
		out = append(out, o.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// TableWrite and OrderWrite pair a mutated snapshot with the version the
// caller observed before mutating. ExpectedVersion 0 means the aggregate is
// new.
type TableWrite struct {
	Table           domain.Table
	ExpectedVersion int
}

type OrderWrite struct {
	Order           domain.Order
	ExpectedVersion int
}

// Commit applies all writes or none. Versions are validated first so a
// stale write cannot leave a half-applied multi-aggregate command.
func (l *Ledger) Commit(orders []OrderWrite, tables []TableWrite) ([]domain.Order, []domain.Table, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, w := range orders {
		if err := checkVersion("order", w.Order.ID, orderVersion(l.orders, w.Order.ID), w.ExpectedVersion); err != nil {
			return nil, nil, err
		}
	}
	for _, w := range tables {
		if err := checkVersion("table", w.Table.ID, tableVersion(l.tables, w.Table.ID), w.ExpectedVersion); err != nil {
			return nil, nil, err
		}
	}

	outOrders := make([]domain.Order, 0, len(orders))
	for _, w := range orders {
		o := w.Order.Clone()
		o.Version = w.ExpectedVersion + 1
		l.orders[o.ID] = o
		outOrders = append(outOrders, o.Clone())
	}
	outTables := make([]domain.Table, 0, len(tables))
	for _, w := range tables {
		t := w.Table.Clone()
		t.Version = w.ExpectedVersion + 1
		l.tables[t.ID] = t
		outTables = append(outTables, t.Clone())
	}
	return outOrders, outTables, nil
}

func (l *Ledger) PutTable(t domain.Table, expectedVersion int) (domain.Table, error) {
	_, tables, err := l.Commit(nil, []TableWrite{{Table: t, ExpectedVersion: expectedVersion}})
	if err != nil {
		return domain.Table{}, err
	}
	return tables[0], nil
}

func (l *Ledger) PutOrder(o domain.Order, expectedVersion int) (domain.Order, error) {
	orders, _, err := l.Commit([]OrderWrite{{Order: o, ExpectedVersion: expectedVersion}}, nil)
	if err != nil {
		return domain.Order{}, err
	}
	return orders[0], nil
}

func (l *Ledger) PutOrderAndTable(o domain.Order, orderVersion int, t domain.Table, tableVersion int) (domain.Order, domain.Table, error) {
	orders, tables, err := l.Commit(
		[]OrderWrite{{Order: o, ExpectedVersion: orderVersion}},
		[]TableWrite{{Table: t, ExpectedVersion: tableVersion}},
	)
	if err != nil {
		return domain.Order{}, domain.Table{}, err
	}
	return orders[0], tables[0], nil
}

// ArchiveOrder removes a terminal order on behalf of the external archiver.
// Non-terminal orders are never removed.
func (l *Ledger) ArchiveOrder(id uuid.UUID) (domain.Order, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	o, ok := l.orders[id]
	if !ok {
		return domain.Order{}, fmt.Errorf("%w: order %s", domain.ErrNotFound, id)
	}
	if !o.Status.IsTerminal() {
		return domain.Order{}, fmt.Errorf("%w: order %s is %s, only completed or cancelled orders can be archived", domain.ErrValidation, id, o.Status)
	}
	delete(l.orders, id)
	return o.Clone(), nil
}

func checkVersion(kind string, id uuid.UUID, current, expected int) error {
	if current != expected {
		return fmt.Errorf("%w: %s %s is at version %d, caller observed %d", domain.ErrConcurrentModification, kind, id, current, expected)
	}
	return nil
}

func orderVersion(m map[uuid.UUID]domain.Order, id uuid.UUID) int {
	if o, ok := m[id]; ok {
		return o.Version
	}
	return 0
}

func tableVersion(m map[uuid.UUID]domain.Table, id uuid.UUID) int {
	if t, ok := m[id]; ok {
		return t.Version
	}
	return 0
}
