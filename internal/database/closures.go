package database

import (
	"context"
	"fmt"

	"barbershop/internal/model"
)

// Closures lists a shop's closures ordered by start date.
func (db *DB) Closures(ctx context.Context, shopID string) ([]model.Closure, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, start_date, end_date, reason
		FROM shop_closures
		WHERE shop_id = ?
		ORDER BY start_date, id`,
		shopID,
	)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	list := []model.Closure{}
	for rows.Next() {
		var c model.Closure
		if err := rows.Scan(&c.ID, &c.Start, &c.End, &c.Reason); err != nil {
			return nil, mapError(err)
		}
		list = append(list, c)
	}
	return list, mapError(rows.Err())
}

// AddClosure inserts c and sets its ID.
func (db *DB) AddClosure(ctx context.Context, shopID string, c *model.Closure) error {
	result, err := db.ExecContext(ctx, `
		INSERT INTO shop_closures (shop_id, start_date, end_date, reason)
		VALUES (?, ?, ?, ?)`,
		shopID, c.Start, c.End, c.Reason,
	)
	if err != nil {
		return mapError(err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last id: %w", err)
	}
	c.ID = id
	return nil
}

// DeleteClosure removes a closure; unknown ids yield model.ErrNotFound.
func (db *DB) DeleteClosure(ctx context.Context, shopID string, id int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM shop_closures WHERE shop_id = ? AND id = ?`, shopID, id)
	if err != nil {
		return mapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return mapError(err)
	}
	if affected == 0 {
		return fmt.Errorf("closure %d: %w", id, model.ErrNotFound)
	}
	return nil
}
