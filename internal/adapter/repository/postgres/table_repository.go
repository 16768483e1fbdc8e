package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/srgjo27/floor_ledger/internal/core/domain"
)

type TableRepository struct {
	db *sql.DB
}

func NewTableRepository(db *sql.DB) *TableRepository {
	return &TableRepository{db: db}
}

// SaveTable writes the whole snapshot: the table row is upserted and the
// chair rows are replaced in the same transaction.
func (r *TableRepository) SaveTable(ctx context.Context, table domain.Table) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer tx.Rollback()

	queryHeader := `
	INSERT INTO floor_tables (id, number, capacity, section, shape, status, current_order_id, version)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (id) DO UPDATE SET
		number = EXCLUDED.number,
		capacity = EXCLUDED.capacity,
		section = EXCLUDED.section,
		shape = EXCLUDED.shape,
		status = EXCLUDED.status,
		current_order_id = EXCLUDED.current_order_id,
		version = EXCLUDED.version
	`

	_, err = tx.ExecContext(ctx, queryHeader,
		table.ID, table.Number, table.Capacity, table.Section, table.Shape,
		table.Status, nullUUID(table.CurrentOrderID), table.Version)
	if err != nil {
		return fmt.Errorf("failed to upsert table: %w", err)
	}

	_, err = tx.ExecContext(ctx, `DELETE FROM floor_chairs WHERE table_id = $1`, table.ID)
	if err != nil {
		return fmt.Errorf("failed to clear chairs: %w", err)
	}

	queryChair := `
	INSERT INTO floor_chairs (id, table_id, number, status, current_order_id)
	VALUES ($1, $2, $3, $4, $5)
	`

	stmt, err := tx.PrepareContext(ctx, queryChair)
	if err != nil {
		return fmt.Errorf("failed to prepare chair statement: %w", err)
	}

	defer stmt.Close()

	for _, chair := range table.Chairs {
		_, err := stmt.ExecContext(ctx, chair.ID, table.ID, chair.Number, chair.Status, nullUUID(chair.CurrentOrderID))
		if err != nil {
			return fmt.Errorf("failed to insert chair %d: %w", chair.Number, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// LoadTables seeds the in-memory ledger at startup.
func (r *TableRepository) LoadTables(ctx context.Context) ([]domain.Table, error) {
	queryTables := `
	SELECT id, number, capacity, section, shape, status, current_order_id, version
	FROM floor_tables
	ORDER BY number
	`

	rows, err := r.db.QueryContext(ctx, queryTables)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var tables []domain.Table
	index := make(map[uuid.UUID]int)
	for rows.Next() {
		var table domain.Table
		var currentOrder uuid.NullUUID
		if err := rows.Scan(
			&table.ID,
			&table.Number,
			&table.Capacity,
			&table.Section,
			&table.Shape,
			&table.Status,
			&currentOrder,
			&table.Version,
		); err != nil {
			return nil, err
		}
		if currentOrder.Valid {
			id := currentOrder.UUID
			table.CurrentOrderID = &id
		}
		index[table.ID] = len(tables)
		tables = append(tables, table)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	queryChairs := `
	SELECT id, table_id, number, status, current_order_id
	FROM floor_chairs
	ORDER BY table_id, number
	`

	chairRows, err := r.db.QueryContext(ctx, queryChairs)
	if err != nil {
		return nil, err
	}

	defer chairRows.Close()

	for chairRows.Next() {
		var chair domain.Chair
		var tableID uuid.UUID
		var currentOrder uuid.NullUUID
		if err := chairRows.Scan(&chair.ID, &tableID, &chair.Number, &chair.Status, &currentOrder); err != nil {
			return nil, err
		}
		if currentOrder.Valid {
			id := currentOrder.UUID
			chair.CurrentOrderID = &id
		}
		if i, ok := index[tableID]; ok {
			tables[i].Chairs = append(tables[i].Chairs, chair)
		}
	}

	return tables, chairRows.Err()
}

func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}
