package ports

import (
	"context"

	"github.com/srgjo27/floor_ledger/internal/core/domain"
)

// TableRepository is the durable-store collaborator for floor snapshots: it
// seeds the in-memory ledger at startup and receives every new snapshot after
// a successful mutation. The engine never reads storage on the hot path.
type TableRepository interface {
	LoadTables(ctx context.Context) ([]domain.Table, error)
	SaveTable(ctx context.Context, table domain.Table) error
}

// OrderRepository is the durable-store collaborator for order snapshots.
type OrderRepository interface {
	LoadOrders(ctx context.Context) ([]domain.Order, error)
	SaveOrder(ctx context.Context, order domain.Order) error
}

// EventPublisher hands domain events to the notification sink.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.LedgerEvent) error
}
