package slots

import (
	"time"

	"barbershop/internal/model"
)

// Moment tells the filter whether the date being filtered is today and,
// if so, the current wall-clock minute.
type Moment struct {
	IsToday bool
	Now     model.Clock
}

// MomentFor compares date against now. Both must be in the shop's location.
func MomentFor(date, now time.Time) Moment {
	y1, m1, d1 := date.Date()
	y2, m2, d2 := now.Date()
	return Moment{
		IsToday: y1 == y2 && m1 == m2 && d1 == d2,
		Now:     model.ClockOf(now),
	}
}

// AvailableSlots removes booked times from candidates and, for today, every
// slot at or before the current minute. Candidate order is preserved.
// Candidates must be canonical "HH:MM" values as produced by SlotsForDay.
func AvailableSlots(candidates, booked []string, m Moment) []string {
	taken := make(map[string]struct{}, len(booked))
	for _, b := range booked {
		taken[b] = struct{}{}
	}

	now := m.Now.String()
	available := make([]string, 0, len(candidates))
	for _, slot := range candidates {
		if _, ok := taken[slot]; ok {
			continue
		}
		// Zero-padded HH:MM compares chronologically as a string.
		if m.IsToday && slot <= now {
			continue
		}
		available = append(available, slot)
	}
	return available
}
