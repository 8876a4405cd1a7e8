package database

import (
	"context"
	"encoding/json"
	"fmt"

	"barbershop/internal/model"
)

// ShopSettings returns model.ErrNotFound until settings are saved.
func (db *DB) ShopSettings(ctx context.Context, shopID string) (*model.ShopSettings, error) {
	var (
		s               model.ShopSettings
		services, hours string
		status          string
	)
	err := db.QueryRowContext(ctx, `
		SELECT shop_id, name, address, phone, description, services,
			working_hours, slot_duration, status, updated_at
		FROM shop_settings WHERE shop_id = ?`,
		shopID,
	).Scan(
		&s.ShopID, &s.Name, &s.Address, &s.Phone, &s.Description, &services,
		&hours, &s.SlotDurationMinutes, &status, &s.UpdatedAt,
	)
	if err != nil {
		return nil, mapError(err)
	}

	if err := json.Unmarshal([]byte(services), &s.Services); err != nil {
		return nil, fmt.Errorf("decode services: %w", err)
	}
	if err := json.Unmarshal([]byte(hours), &s.WorkingHours); err != nil {
		return nil, fmt.Errorf("decode working hours: %w", err)
	}
	s.Status = model.ShopStatus(status)
	return &s, nil
}

// SaveShopSettings upserts the settings row.
func (db *DB) SaveShopSettings(ctx context.Context, s *model.ShopSettings) error {
	services, hours, err := encodeSettings(s)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO shop_settings (
			shop_id, name, address, phone, description, services,
			working_hours, slot_duration, status, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(shop_id) DO UPDATE SET
			name = excluded.name,
			address = excluded.address,
			phone = excluded.phone,
			description = excluded.description,
			services = excluded.services,
			working_hours = excluded.working_hours,
			slot_duration = excluded.slot_duration,
			status = excluded.status,
			updated_at = excluded.updated_at`,
		s.ShopID, s.Name, s.Address, s.Phone, s.Description, services,
		hours, s.SlotDurationMinutes, string(s.Status), s.UpdatedAt.UTC(),
	)
	return mapError(err)
}

func encodeSettings(s *model.ShopSettings) (services, hours string, err error) {
	list := s.Services
	if list == nil {
		list = []model.Service{}
	}
	rawServices, err := json.Marshal(list)
	if err != nil {
		return "", "", fmt.Errorf("encode services: %w", err)
	}
	rawHours, err := json.Marshal(s.WorkingHours)
	if err != nil {
		return "", "", fmt.Errorf("encode working hours: %w", err)
	}
	return string(rawServices), string(rawHours), nil
}
