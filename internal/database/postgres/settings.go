package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"barbershop/internal/model"
)

func (s *Store) ShopSettings(ctx context.Context, shopID string) (*model.ShopSettings, error) {
	var (
		out             model.ShopSettings
		services, hours string
		status          string
	)
	err := s.pool.QueryRow(ctx, `
		SELECT shop_id, name, address, phone, description, services,
			working_hours, slot_duration, status, updated_at
		FROM shop_settings WHERE shop_id = $1
	`, shopID).Scan(
		&out.ShopID, &out.Name, &out.Address, &out.Phone, &out.Description, &services,
		&hours, &out.SlotDurationMinutes, &status, &out.UpdatedAt,
	)
	if err != nil {
		return nil, mapError(err)
	}

	if err := json.Unmarshal([]byte(services), &out.Services); err != nil {
		return nil, fmt.Errorf("decode services: %w", err)
	}
	if err := json.Unmarshal([]byte(hours), &out.WorkingHours); err != nil {
		return nil, fmt.Errorf("decode working hours: %w", err)
	}
	out.Status = model.ShopStatus(status)
	return &out, nil
}

func (s *Store) SaveShopSettings(ctx context.Context, in *model.ShopSettings) error {
	list := in.Services
	if list == nil {
		list = []model.Service{}
	}
	services, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("encode services: %w", err)
	}
	hours, err := json.Marshal(in.WorkingHours)
	if err != nil {
		return fmt.Errorf("encode working hours: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO shop_settings (
			shop_id, name, address, phone, description, services,
			working_hours, slot_duration, status, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (shop_id) DO UPDATE SET
			name = EXCLUDED.name,
			address = EXCLUDED.address,
			phone = EXCLUDED.phone,
			description = EXCLUDED.description,
			services = EXCLUDED.services,
			working_hours = EXCLUDED.working_hours,
			slot_duration = EXCLUDED.slot_duration,
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at
	`, in.ShopID, in.Name, in.Address, in.Phone, in.Description, string(services),
		string(hours), in.SlotDurationMinutes, string(in.Status), in.UpdatedAt)
	return mapError(err)
}

func (s *Store) Closures(ctx context.Context, shopID string) ([]model.Closure, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, start_date, end_date, reason
		FROM shop_closures
		WHERE shop_id = $1
		ORDER BY start_date, id
	`, shopID)
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
	if rows.Err() != nil {
		return nil, mapError(rows.Err())
	}
	return list, nil
}

func (s *Store) AddClosure(ctx context.Context, shopID string, c *model.Closure) error {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO shop_closures (shop_id, start_date, end_date, reason)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, shopID, c.Start, c.End, c.Reason).Scan(&c.ID)
	return mapError(err)
}

func (s *Store) DeleteClosure(ctx context.Context, shopID string, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM shop_closures WHERE shop_id = $1 AND id = $2`, shopID, id)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("closure %d: %w", id, model.ErrNotFound)
	}
	return nil
}
