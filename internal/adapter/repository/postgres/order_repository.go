package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/srgjo27/floor_ledger/internal/core/domain"
)

type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// SaveOrder writes the whole snapshot: the order row is upserted and the
// item rows are replaced in the same transaction.
func (r *OrderRepository) SaveOrder(ctx context.Context, order domain.Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer tx.Rollback()

	queryHeader := `
	INSERT INTO orders (
		id, table_id, chair_id, status, held_from, order_type,
		discount_percent, tip_percent, subtotal, discount_amount, tax,
		service_charge, tip_amount, total, created_at, updated_at, version)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	ON CONFLICT (id) DO UPDATE SET
		table_id = EXCLUDED.table_id,
		chair_id = EXCLUDED.chair_id,
		status = EXCLUDED.status,
		held_from = EXCLUDED.held_from,
		discount_percent = EXCLUDED.discount_percent,
		tip_percent = EXCLUDED.tip_percent,
		subtotal = EXCLUDED.subtotal,
		discount_amount = EXCLUDED.discount_amount,
		tax = EXCLUDED.tax,
		service_charge = EXCLUDED.service_charge,
		tip_amount = EXCLUDED.tip_amount,
		total = EXCLUDED.total,
		updated_at = EXCLUDED.updated_at,
		version = EXCLUDED.version
	`

	_, err = tx.ExecContext(ctx, queryHeader,
		order.ID, nullUUID(order.TableID), nullUUID(order.ChairID),
		order.Status, string(order.HeldFrom), order.OrderType,
		order.DiscountPercent, order.TipPercent, order.Subtotal,
		order.DiscountAmount, order.Tax, order.ServiceCharge,
		order.TipAmount, order.Total, order.CreatedAt, order.UpdatedAt, order.Version)
	if err != nil {
		return fmt.Errorf("failed to upsert order: %w", err)
	}

	_, err = tx.ExecContext(ctx, `DELETE FROM order_items WHERE order_id = $1`, order.ID)
	if err != nil {
		return fmt.Errorf("failed to clear order items: %w", err)
	}

	queryItem := `
	INSERT INTO order_items (id, order_id, menu_item_id, quantity, unit_price, notes, status, chair_id)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	stmt, err := tx.PrepareContext(ctx, queryItem)
	if err != nil {
		return fmt.Errorf("failed to prepare item statement: %w", err)
	}

	defer stmt.Close()

	for _, item := range order.Items {
		_, err := stmt.ExecContext(ctx, item.ID, order.ID, item.MenuItemID,
			item.Quantity, item.UnitPrice, item.Notes, item.Status, nullUUID(item.ChairID))
		if err != nil {
			return fmt.Errorf("failed to insert order item %s: %w", item.ID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// LoadOrders seeds the in-memory ledger at startup. Archived orders are not
// expected here; the external archiver removes them from this store.
func (r *OrderRepository) LoadOrders(ctx context.Context) ([]domain.Order, error) {
	queryOrders := `
	SELECT id, table_id, chair_id, status, held_from, order_type,
		discount_percent, tip_percent, subtotal, discount_amount, tax,
		service_charge, tip_amount, total, created_at, updated_at, version
	FROM orders
	ORDER BY created_at
	`

	rows, err := r.db.QueryContext(ctx, queryOrders)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var orders []domain.Order
	index := make(map[uuid.UUID]int)
	for rows.Next() {
		var order domain.Order
		var tableID, chairID uuid.NullUUID
		var heldFrom string
		if err := rows.Scan(
			&order.ID,
			&tableID,
			&chairID,
			&order.Status,
			&heldFrom,
			&order.OrderType,
			&order.DiscountPercent,
			&order.TipPercent,
			&order.Subtotal,
			&order.DiscountAmount,
			&order.Tax,
			&order.ServiceCharge,
			&order.TipAmount,
			&order.Total,
			&order.CreatedAt,
			&order.UpdatedAt,
			&order.Version,
		); err != nil {
			return nil, err
		}
		order.HeldFrom = domain.OrderStatus(heldFrom)
		if tableID.Valid {
			id := tableID.UUID
			order.TableID = &id
		}
		if chairID.Valid {
			id := chairID.UUID
			order.ChairID = &id
		}
		index[order.ID] = len(orders)
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	queryItems := `
	SELECT id, order_id, menu_item_id, quantity, unit_price, notes, status, chair_id
	FROM order_items
	ORDER BY order_id
	`

	itemRows, err := r.db.QueryContext(ctx, queryItems)
	if err != nil {
		return nil, err
	}

	defer itemRows.Close()

	for itemRows.Next() {
		var item domain.OrderItem
		var orderID uuid.UUID
		var chairID uuid.NullUUID
		if err := itemRows.Scan(&item.ID, &orderID, &item.MenuItemID, &item.Quantity,
			&item.UnitPrice, &item.Notes, &item.Status, &chairID); err != nil {
			return nil, err
		}
		if chairID.Valid {
			id := chairID.UUID
			item.ChairID = &id
		}
		if i, ok := index[orderID]; ok {
			orders[i].Items = append(orders[i].Items, item)
		}
	}

	return orders, itemRows.Err()
}
