package database

import (
	"context"
	"fmt"
	"time"

	"barbershop/internal/model"
)

const appointmentColumns = `id, shop_id, customer_id, customer_name, customer_phone,
	date, time, service, price, status, notes, created_at, updated_at`

// BookedTimes returns the times held by non-cancelled appointments on date.
func (db *DB) BookedTimes(ctx context.Context, shopID, date string) ([]string, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT time FROM appointments
		WHERE shop_id = ? AND date = ? AND status <> 'cancelled'
		ORDER BY time`,
		shopID, date,
	)
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
	return times, mapError(rows.Err())
}

// InsertAppointmentIfAvailable re-checks the slot and inserts a inside one
// write transaction. The partial unique index backs the check up.
func (db *DB) InsertAppointmentIfAvailable(ctx context.Context, a *model.Appointment) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return mapError(fmt.Errorf("begin tx: %w", err))
	}
	defer func() { _ = tx.Rollback() }()

	var taken int
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM appointments
		WHERE shop_id = ? AND date = ? AND time = ? AND status <> 'cancelled'`,
		a.ShopID, a.Date, a.Time,
	).Scan(&taken)
	if err != nil {
		return mapError(fmt.Errorf("check availability: %w", err))
	}
	if taken > 0 {
		return fmt.Errorf("%w: %s %s", model.ErrConflict, a.Date, a.Time)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO appointments (`+appointmentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.ShopID, a.CustomerID, a.CustomerName, a.CustomerPhone,
		a.Date, a.Time, a.Service, a.Price, string(a.Status), a.Notes,
		a.CreatedAt.UTC(), a.UpdatedAt.UTC(),
	)
	if err != nil {
		return mapError(err)
	}

	if err := tx.Commit(); err != nil {
		return mapError(fmt.Errorf("commit: %w", err))
	}
	return nil
}

// GetAppointment returns model.ErrNotFound for unknown ids.
func (db *DB) GetAppointment(ctx context.Context, id string) (*model.Appointment, error) {
	row := db.QueryRowContext(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = ?`, id)
	a, err := scanAppointment(row)
	if err != nil {
		return nil, mapError(err)
	}
	return a, nil
}

// UpdateAppointmentStatus is a compare-and-set on the status column.
func (db *DB) UpdateAppointmentStatus(ctx context.Context, id string, from, to model.AppointmentStatus) (*model.Appointment, error) {
	result, err := db.ExecContext(ctx, `
		UPDATE appointments
		SET status = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		string(to), time.Now().UTC(), id, string(from),
	)
	if err != nil {
		return nil, mapError(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, mapError(err)
	}
	if affected == 0 {
		if _, err := db.GetAppointment(ctx, id); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: appointment %s is no longer %s", model.ErrConcurrentModification, id, from)
	}

	return db.GetAppointment(ctx, id)
}

// ListAppointmentsByDate returns every appointment of a date ordered by time.
func (db *DB) ListAppointmentsByDate(ctx context.Context, shopID, date string) ([]model.Appointment, error) {
	return db.queryAppointments(ctx, `
		SELECT `+appointmentColumns+` FROM appointments
		WHERE shop_id = ? AND date = ?
		ORDER BY time, created_at`,
		shopID, date,
	)
}

// ListAppointmentsByCustomer returns a customer's appointments, newest slot first.
func (db *DB) ListAppointmentsByCustomer(ctx context.Context, shopID, customerID string) ([]model.Appointment, error) {
	return db.queryAppointments(ctx, `
		SELECT `+appointmentColumns+` FROM appointments
		WHERE shop_id = ? AND customer_id = ?
		ORDER BY date DESC, time DESC`,
		shopID, customerID,
	)
}

// ListAppointmentsFrom returns appointments on or after from, by date and time.
func (db *DB) ListAppointmentsFrom(ctx context.Context, shopID, from string) ([]model.Appointment, error) {
	return db.queryAppointments(ctx, `
		SELECT `+appointmentColumns+` FROM appointments
		WHERE shop_id = ? AND date >= ?
		ORDER BY date, time, created_at`,
		shopID, from,
	)
}

// CompletedAppointments returns completed appointments with from <= date <= to.
func (db *DB) CompletedAppointments(ctx context.Context, shopID, from, to string) ([]model.Appointment, error) {
	return db.queryAppointments(ctx, `
		SELECT `+appointmentColumns+` FROM appointments
		WHERE shop_id = ? AND status = 'completed' AND date >= ? AND date <= ?
		ORDER BY date, time`,
		shopID, from, to,
	)
}

func (db *DB) queryAppointments(ctx context.Context, query string, args ...interface{}) ([]model.Appointment, error) {
	rows, err := db.QueryContext(ctx, query, args...)
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
	return list, mapError(rows.Err())
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAppointment(row rowScanner) (*model.Appointment, error) {
	var (
		a      model.Appointment
		status string
	)
	err := row.Scan(
		&a.ID, &a.ShopID, &a.CustomerID, &a.CustomerName, &a.CustomerPhone,
		&a.Date, &a.Time, &a.Service, &a.Price, &status, &a.Notes,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.Status = model.AppointmentStatus(status)
	return &a, nil
}
