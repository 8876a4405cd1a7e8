// Package booking enforces the appointment lifecycle and the no-double-booking rule.
package booking

import "barbershop/internal/model"

// StatusMachine validates appointment status changes.
type StatusMachine struct {
	transitions map[model.AppointmentStatus][]model.AppointmentStatus
}

// NewStatusMachine creates the machine with the shop's lifecycle:
// pending → confirmed|cancelled, confirmed → completed|cancelled.
func NewStatusMachine() *StatusMachine {
	return &StatusMachine{
		transitions: map[model.AppointmentStatus][]model.AppointmentStatus{
			model.StatusPending:   {model.StatusConfirmed, model.StatusCancelled},
			model.StatusConfirmed: {model.StatusCompleted, model.StatusCancelled},
			model.StatusCompleted: nil,
			model.StatusCancelled: nil,
		},
	}
}

// CanTransition checks if transition is allowed.
func (f *StatusMachine) CanTransition(from, to model.AppointmentStatus) bool {
	for _, s := range f.transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition leaves s.
func (f *StatusMachine) IsTerminal(s model.AppointmentStatus) bool {
	allowed, ok := f.transitions[s]
	return ok && len(allowed) == 0
}

// Next returns the statuses reachable from s.
func (f *StatusMachine) Next(s model.AppointmentStatus) []model.AppointmentStatus {
	return append([]model.AppointmentStatus(nil), f.transitions[s]...)
}
