package booking

import (
	"context"

	"barbershop/internal/events"
	"barbershop/internal/model"
)

// BookedTimesReader reads the occupied slot times of a date.
type BookedTimesReader interface {
	// BookedTimes returns "HH:MM" values of non-cancelled appointments.
	BookedTimes(ctx context.Context, shopID, date string) ([]string, error)
}

// Store is the authoritative appointment storage.
type Store interface {
	BookedTimesReader

	// InsertAppointmentIfAvailable persists a. It must fail with
	// model.ErrConflict when a non-cancelled appointment already holds
	// (shop, date, time), enforced by the storage itself.
	InsertAppointmentIfAvailable(ctx context.Context, a *model.Appointment) error

	// GetAppointment returns model.ErrNotFound for unknown ids.
	GetAppointment(ctx context.Context, id string) (*model.Appointment, error)

	// UpdateAppointmentStatus moves id from one status to another. It returns
	// model.ErrConcurrentModification if the row is no longer in from.
	UpdateAppointmentStatus(ctx context.Context, id string, from, to model.AppointmentStatus) (*model.Appointment, error)

	ListAppointmentsByDate(ctx context.Context, shopID, date string) ([]model.Appointment, error)
	ListAppointmentsByCustomer(ctx context.Context, shopID, customerID string) ([]model.Appointment, error)

	// ListAppointmentsFrom returns appointments with date >= from, oldest slot first.
	ListAppointmentsFrom(ctx context.Context, shopID, from string) ([]model.Appointment, error)
}

// SettingsStore persists shop settings and closures.
type SettingsStore interface {
	// ShopSettings returns model.ErrNotFound until settings are saved.
	ShopSettings(ctx context.Context, shopID string) (*model.ShopSettings, error)
	SaveShopSettings(ctx context.Context, s *model.ShopSettings) error

	Closures(ctx context.Context, shopID string) ([]model.Closure, error)
	AddClosure(ctx context.Context, shopID string, c *model.Closure) error
	DeleteClosure(ctx context.Context, shopID string, id int64) error
}

// Publisher receives invalidation signals.
type Publisher interface {
	Publish(event events.Event)
}
