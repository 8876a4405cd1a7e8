// Package slots derives bookable appointment times from the shop's working hours.
package slots

import (
	"fmt"
	"time"

	"barbershop/internal/model"
)

// SlotsForDay returns the slot start times ("HH:MM", ascending) for date.
// A slot is offered only if it ends no later than closing time, so a span
// that is not a multiple of the duration drops its trailing partial slot.
// A closed or unconfigured day yields an empty slice.
func SlotsForDay(hours model.WorkingHours, durationMinutes int, date time.Time) ([]string, error) {
	if durationMinutes <= 0 {
		return nil, fmt.Errorf("%w: slot duration must be positive, got %d", model.ErrInvalidConfiguration, durationMinutes)
	}

	day, ok := hours[model.WeekdayOf(date)]
	if !ok || day.Closed {
		return []string{}, nil
	}

	start, err := model.ParseClock(day.Start)
	if err != nil {
		return nil, fmt.Errorf("%w: parse start time: %v", model.ErrInvalidConfiguration, err)
	}
	end, err := model.ParseClock(day.End)
	if err != nil {
		return nil, fmt.Errorf("%w: parse end time: %v", model.ErrInvalidConfiguration, err)
	}
	if end < start {
		return nil, fmt.Errorf("%w: end %s is before start %s", model.ErrInvalidConfiguration, day.End, day.Start)
	}

	step := model.Clock(durationMinutes)
	slots := make([]string, 0, int(end-start)/durationMinutes)
	for cursor := start; cursor+step <= end; cursor += step {
		slots = append(slots, cursor.String())
	}
	return slots, nil
}

// Contains reports whether slot is in slots.
func Contains(slots []string, slot string) bool {
	for _, s := range slots {
		if s == slot {
			return true
		}
	}
	return false
}
