package db

import (
	"context"
	"fmt"
)

// SetAvailability toggles whether a variant can be ordered.
func (db *DB) SetAvailability(ctx context.Context, variantID int, available bool) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO stock (variant_id, available, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(variant_id) DO UPDATE SET available = excluded.available, updated_at = excluded.updated_at`,
		variantID, available, db.timestamp(),
	)
	if err != nil {
		return fmt.Errorf("saving stock toggle: %w", err)
	}
	return nil
}

// IsAvailable reports the stock toggle; variants never toggled are available.
func (db *DB) IsAvailable(ctx context.Context, variantID int) (bool, error) {
	var available bool
	err := db.conn.QueryRowContext(ctx, `SELECT available FROM stock WHERE variant_id = ?`, variantID).Scan(&available)
	if isNoRows(err) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading stock toggle: %w", err)
	}
	return available, nil
}

// Unavailable lists variants currently switched off.
func (db *DB) Unavailable(ctx context.Context) ([]int, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT variant_id FROM stock WHERE available = 0 ORDER BY variant_id`)
	if err != nil {
		return nil, fmt.Errorf("listing stock: %w", err)
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
