package model

import "fmt"

// DayHours is the opening window for one weekday.
type DayHours struct {
	Start  string `json:"start" yaml:"start"` // "09:00"
	End    string `json:"end" yaml:"end"`     // "18:00"
	Closed bool   `json:"closed" yaml:"closed"`
}

// WorkingHours maps each weekday to its opening window.
type WorkingHours map[Weekday]DayHours

// DefaultWorkingHours opens Monday to Saturday 09:00-18:00 and closes Sunday.
func DefaultWorkingHours() WorkingHours {
	wh := make(WorkingHours, len(Weekdays))
	for _, day := range Weekdays {
		wh[day] = DayHours{Start: "09:00", End: "18:00"}
	}
	wh[Sunday] = DayHours{Start: "09:00", End: "18:00", Closed: true}
	return wh
}

// Validate requires all seven days and a same-day start < end for open days.
func (wh WorkingHours) Validate() error {
	for day := range wh {
		if !day.Valid() {
			return fmt.Errorf("%w: unknown weekday %q", ErrInvalidConfiguration, day)
		}
	}

	for _, day := range Weekdays {
		h, ok := wh[day]
		if !ok {
			return fmt.Errorf("%w: working hours for %s are missing", ErrInvalidConfiguration, day)
		}
		if h.Closed {
			continue
		}

		start, err := ParseClock(h.Start)
		if err != nil {
			return fmt.Errorf("%w: %s start: %v", ErrInvalidConfiguration, day, err)
		}
		end, err := ParseClock(h.End)
		if err != nil {
			return fmt.Errorf("%w: %s end: %v", ErrInvalidConfiguration, day, err)
		}
		if start >= end {
			return fmt.Errorf("%w: %s start %s must be before end %s", ErrInvalidConfiguration, day, h.Start, h.End)
		}
	}
	return nil
}

// Clone returns a copy that shares no map with wh.
func (wh WorkingHours) Clone() WorkingHours {
	if wh == nil {
		return nil
	}
	out := make(WorkingHours, len(wh))
	for k, v := range wh {
		out[k] = v
	}
	return out
}
