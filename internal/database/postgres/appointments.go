package postgres

import (
	"context"
	"fmt"
	"time"

	"barbershop/internal/model"

	"github.com/jackc/pgx/v5"
)

const appointmentColumns = `id, shop_id, customer_id, customer_name, customer_phone,
	date, time, service, price, status, notes, created_at, updated_at`

func (s *Store) BookedTimes(ctx context.Context, shopID, date string) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT time FROM appointments
		WHERE shop_id = $1 AND date = $2 AND status <> 'cancelled'
		ORDER BY time
	`, shopID, date)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	times := []string{}
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, mapError(err)
		}
		times = append(times, t)
	}
	if rows.Err() != nil {
		return nil, mapError(rows.Err())
	}
	return times, nil
}

// InsertAppointmentIfAvailable relies on ux_appointments_active_slot; a
// concurrent winner surfaces as a unique violation.
func (s *Store) InsertAppointmentIfAvailable(ctx context.Context, a *model.Appointment) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO appointments (`+appointmentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, a.ID, a.ShopID, a.CustomerID, a.CustomerName, a.CustomerPhone,
		a.Date, a.Time, a.Service, a.Price, string(a.Status), a.Notes,
		a.CreatedAt, a.UpdatedAt)
	return mapError(err)
}

func (s *Store) GetAppointment(ctx context.Context, id string) (*model.Appointment, error) {
	a, err := scanAppointment(s.pool.QueryRow(ctx,
		`SELECT `+appointmentColumns+` FROM appointments WHERE id = $1`, id))
	if err != nil {
		return nil, mapError(err)
	}
	return a, nil
}

func (s *Store) UpdateAppointmentStatus(ctx context.Context, id string, from, to model.AppointmentStatus) (*model.Appointment, error) {
	a, err := scanAppointment(s.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = $3, updated_at = $4
		WHERE id = $1 AND status = $2
		RETURNING `+appointmentColumns,
		id, string(from), string(to), time.Now().UTC()))
	if err == nil {
		return a, nil
	}
	if mapped := mapError(err); mapped != model.ErrNotFound {
		return nil, mapped
	}

	if _, err := s.GetAppointment(ctx, id); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("%w: appointment %s is no longer %s", model.ErrConcurrentModification, id, from)
}

func (s *Store) ListAppointmentsByDate(ctx context.Context, shopID, date string) ([]model.Appointment, error) {
	return s.queryAppointments(ctx, `
		SELECT `+appointmentColumns+` FROM appointments
		WHERE shop_id = $1 AND date = $2
		ORDER BY time, created_at
	`, shopID, date)
}

func (s *Store) ListAppointmentsByCustomer(ctx context.Context, shopID, customerID string) ([]model.Appointment, error) {
	return s.queryAppointments(ctx, `
		SELECT `+appointmentColumns+` FROM appointments
		WHERE shop_id = $1 AND customer_id = $2
		ORDER BY date DESC, time DESC
	`, shopID, customerID)
}

func (s *Store) ListAppointmentsFrom(ctx context.Context, shopID, from string) ([]model.Appointment, error) {
	return s.queryAppointments(ctx, `
		SELECT `+appointmentColumns+` FROM appointments
		WHERE shop_id = $1 AND date >= $2
		ORDER BY date, time, created_at
	`, shopID, from)
}

func (s *Store) CompletedAppointments(ctx context.Context, shopID, from, to string) ([]model.Appointment, error) {
	return s.queryAppointments(ctx, `
		SELECT `+appointmentColumns+` FROM appointments
		WHERE shop_id = $1 AND status = 'completed' AND date >= $2 AND date <= $3
		ORDER BY date, time
	`, shopID, from, to)
}

func (s *Store) queryAppointments(ctx context.Context, query string, args ...any) ([]model.Appointment, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	list := []model.Appointment{}
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, mapError(err)
		}
		list = append(list, *a)
	}
	if rows.Err() != nil {
		return nil, mapError(rows.Err())
	}
	return list, nil
}

func scanAppointment(row pgx.Row) (*model.Appointment, error) {
	var (
		a      model.Appointment
		status string
	)
	if err := row.Scan(
		&a.ID, &a.ShopID, &a.CustomerID, &a.CustomerName, &a.CustomerPhone,
		&a.Date, &a.Time, &a.Service, &a.Price, &status, &a.Notes,
		&a.CreatedAt, &a.UpdatedAt,
	); err != nil {
		return nil, err
	}
	a.Status = model.AppointmentStatus(status)
	return &a, nil
}
