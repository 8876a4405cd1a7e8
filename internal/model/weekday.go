package model

import "time"

// Weekday is the key used for a day in WorkingHours.
type Weekday string

const (
	Monday    Weekday = "monday"
	Tuesday   Weekday = "tuesday"
	Wednesday Weekday = "wednesday"
	Thursday  Weekday = "thursday"
	Friday    Weekday = "friday"
	Saturday  Weekday = "saturday"
	Sunday    Weekday = "sunday"
)

// Weekdays lists every key, Monday first.
var Weekdays = [...]Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

// weekdayByIndex is indexed by time.Weekday, where Sunday is 0.
var weekdayByIndex = [7]Weekday{Sunday, Monday, Tuesday, Wednesday, Thursday, Friday, Saturday}

// WeekdayOf maps the date's numeric weekday to its key.
func WeekdayOf(date time.Time) Weekday {
	return weekdayByIndex[date.Weekday()]
}

// Valid reports whether d is one of the seven keys.
func (d Weekday) Valid() bool {
	for _, w := range Weekdays {
		if d == w {
			return true
		}
	}
	return false
}
