package database

import (
	"context"
	"database/sql"
	"fmt"
)

// EnsureSchema creates the snapshot tables if they do not exist. The store
// holds snapshots only; all invariants are enforced in memory, so the schema
// carries no cross-table constraints beyond the foreign keys.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS floor_tables (
			id UUID PRIMARY KEY,
			number INT NOT NULL,
			capacity INT NOT NULL,
			section TEXT NOT NULL DEFAULT '',
			shape TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			current_order_id UUID,
			version INT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS floor_chairs (
			id UUID PRIMARY KEY,
			table_id UUID NOT NULL REFERENCES floor_tables(id) ON DELETE CASCADE,
			number INT NOT NULL,
			status TEXT NOT NULL,
			current_order_id UUID
		)`,
		`CREATE TABLE IF NOT EXISTS orders (
			id UUID PRIMARY KEY,
			table_id UUID,
			chair_id UUID,
			status TEXT NOT NULL,
			held_from TEXT NOT NULL DEFAULT '',
			order_type TEXT NOT NULL,
			discount_percent NUMERIC NOT NULL DEFAULT 0,
			tip_percent NUMERIC NOT NULL DEFAULT 0,
			subtotal NUMERIC NOT NULL DEFAULT 0,
			discount_amount NUMERIC NOT NULL DEFAULT 0,
			tax NUMERIC NOT NULL DEFAULT 0,
			service_charge NUMERIC NOT NULL DEFAULT 0,
			tip_amount NUMERIC NOT NULL DEFAULT 0,
			total NUMERIC NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			version INT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS order_items (
			id UUID PRIMARY KEY,
			order_id UUID NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
			menu_item_id TEXT NOT NULL,
			quantity INT NOT NULL,
			unit_price NUMERIC NOT NULL,
			notes TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			chair_id UUID
		)`,
		`CREATE INDEX IF NOT EXISTS idx_floor_chairs_table_id ON floor_chairs(table_id)`,
		`CREATE INDEX IF NOT EXISTS idx_order_items_order_id ON order_items(order_id)`,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement: %w", err)
		}
	}
	return nil
}
