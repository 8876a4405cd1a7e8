package model

import "time"

// DateLayout is the calendar date format used everywhere in the API and store.
const DateLayout = "2006-01-02"

// AppointmentStatus is the lifecycle state of an appointment.
type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCancelled AppointmentStatus = "cancelled"
	StatusCompleted AppointmentStatus = "completed"
)

// Valid reports whether s is a known status.
func (s AppointmentStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

// OccupiesSlot is false only for cancelled appointments.
func (s AppointmentStatus) OccupiesSlot() bool {
	return s.Valid() && s != StatusCancelled
}

// Appointment is a booked visit.
type Appointment struct {
	ID            string            `json:"id"`
	ShopID        string            `json:"shop_id"`
	CustomerID    string            `json:"customer_id"`
	CustomerName  string            `json:"customer_name,omitempty"`
	CustomerPhone string            `json:"customer_phone,omitempty"`
	Date          string            `json:"date"` // YYYY-MM-DD
	Time          string            `json:"time"` // HH:MM
	Service       string            `json:"service"`
	Price         int64             `json:"price"`
	Status        AppointmentStatus `json:"status"`
	Notes         string            `json:"notes,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}
