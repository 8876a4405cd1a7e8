package model

import (
	"fmt"
	"strings"
	"time"
)

// ShopStatus is the owner-controlled open/closed switch.
type ShopStatus string

const (
	ShopOpen   ShopStatus = "open"
	ShopClosed ShopStatus = "closed"
)

// Service is a bookable item in the shop's catalog.
type Service struct {
	Name  string `json:"name" yaml:"name"`
	Price int64  `json:"price" yaml:"price"` // minor currency units
}

// ShopSettings is everything the booking flow reads about the shop.
type ShopSettings struct {
	ShopID              string       `json:"shop_id"`
	Name                string       `json:"shop_name"`
	Address             string       `json:"address,omitempty"`
	Phone               string       `json:"phone,omitempty"`
	Description         string       `json:"description,omitempty"`
	Services            []Service    `json:"services"`
	WorkingHours        WorkingHours `json:"working_hours"`
	SlotDurationMinutes int          `json:"slot_duration_minutes"`
	Status              ShopStatus   `json:"shop_status"`
	UpdatedAt           time.Time    `json:"updated_at"`
}

// Validate checks the settings before they are stored.
func (s *ShopSettings) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("%w: shop name is required", ErrInvalidConfiguration)
	}
	if s.SlotDurationMinutes <= 0 {
		return fmt.Errorf("%w: slot duration must be positive, got %d", ErrInvalidConfiguration, s.SlotDurationMinutes)
	}
	if s.Status != ShopOpen && s.Status != ShopClosed {
		return fmt.Errorf("%w: unknown shop status %q", ErrInvalidConfiguration, s.Status)
	}
	if err := s.WorkingHours.Validate(); err != nil {
		return err
	}

	seen := make(map[string]struct{}, len(s.Services))
	for _, svc := range s.Services {
		name := strings.TrimSpace(svc.Name)
		if name == "" {
			return fmt.Errorf("%w: service name is required", ErrInvalidConfiguration)
		}
		if svc.Price < 0 {
			return fmt.Errorf("%w: service %q has negative price", ErrInvalidConfiguration, name)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("%w: duplicate service %q", ErrInvalidConfiguration, name)
		}
		seen[name] = struct{}{}
	}
	return nil
}

// FindService looks up a catalog entry by exact name.
func (s *ShopSettings) FindService(name string) (Service, bool) {
	for _, svc := range s.Services {
		if svc.Name == name {
			return svc, true
		}
	}
	return Service{}, false
}

// Closure is a scheduled range of dates on which the shop takes no bookings.
type Closure struct {
	ID     int64  `json:"id"`
	Start  string `json:"start"` // YYYY-MM-DD, inclusive
	End    string `json:"end"`   // YYYY-MM-DD, inclusive
	Reason string `json:"reason"`
}

// Validate checks the date range and reason.
func (c *Closure) Validate() error {
	start, err := time.Parse(DateLayout, c.Start)
	if err != nil {
		return fmt.Errorf("%w: closure start must be YYYY-MM-DD", ErrInvalidRequest)
	}
	end, err := time.Parse(DateLayout, c.End)
	if err != nil {
		return fmt.Errorf("%w: closure end must be YYYY-MM-DD", ErrInvalidRequest)
	}
	if end.Before(start) {
		return fmt.Errorf("%w: closure end is before start", ErrInvalidRequest)
	}
	if strings.TrimSpace(c.Reason) == "" {
		return fmt.Errorf("%w: closure reason is required", ErrInvalidRequest)
	}
	return nil
}

// Covers reports whether date (YYYY-MM-DD) falls inside the closure.
func (c Closure) Covers(date string) bool {
	return date >= c.Start && date <= c.End
}
