// Package report aggregates completed appointments into earnings summaries.
package report

import (
	"context"
	"fmt"
	"sort"
	"time"

	"barbershop/internal/model"
)

// MaxRangeDays caps a single report.
const MaxRangeDays = 366

// Source reads completed appointments with from <= date <= to.
type Source interface {
	CompletedAppointments(ctx context.Context, shopID, from, to string) ([]model.Appointment, error)
}

// DayTotal is the revenue of one calendar day.
type DayTotal struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
	Total int64  `json:"total"`
}

// ServiceTotal is the revenue of one catalog service over the range.
type ServiceTotal struct {
	Service string `json:"service"`
	Count   int    `json:"count"`
	Total   int64  `json:"total"`
}

// Earnings is the owner's revenue summary for a date range.
type Earnings struct {
	ShopID    string         `json:"shop_id"`
	From      string         `json:"from"`
	To        string         `json:"to"`
	Count     int            `json:"count"`
	Total     int64          `json:"total"`
	Days      []DayTotal     `json:"days"`
	ByService []ServiceTotal `json:"by_service"`
}

// Build sums completed appointments per day and per service. Every day of the
// range appears in Days, including days without revenue.
func Build(ctx context.Context, src Source, shopID, from, to string) (*Earnings, error) {
	start, err := time.Parse(model.DateLayout, from)
	if err != nil {
		return nil, fmt.Errorf("%w: from must be YYYY-MM-DD", model.ErrInvalidRequest)
	}
	end, err := time.Parse(model.DateLayout, to)
	if err != nil {
		return nil, fmt.Errorf("%w: to must be YYYY-MM-DD", model.ErrInvalidRequest)
	}
	if end.Before(start) {
		return nil, fmt.Errorf("%w: to is before from", model.ErrInvalidRequest)
	}
	if end.Sub(start) >= MaxRangeDays*24*time.Hour {
		return nil, fmt.Errorf("%w: range exceeds %d days", model.ErrInvalidRequest, MaxRangeDays)
	}

	list, err := src.CompletedAppointments(ctx, shopID, from, to)
	if err != nil {
		return nil, fmt.Errorf("read completed appointments: %w", err)
	}

	out := &Earnings{ShopID: shopID, From: from, To: to}
	index := make(map[string]int)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		date := d.Format(model.DateLayout)
		index[date] = len(out.Days)
		out.Days = append(out.Days, DayTotal{Date: date})
	}

	services := make(map[string]*ServiceTotal)
	for _, a := range list {
		i, ok := index[a.Date]
		if !ok || a.Status != model.StatusCompleted {
			continue
		}
		out.Days[i].Count++
		out.Days[i].Total += a.Price
		out.Count++
		out.Total += a.Price

		st, ok := services[a.Service]
		if !ok {
			st = &ServiceTotal{Service: a.Service}
			services[a.Service] = st
		}
		st.Count++
		st.Total += a.Price
	}

	out.ByService = make([]ServiceTotal, 0, len(services))
	for _, st := range services {
		out.ByService = append(out.ByService, *st)
	}
	sort.Slice(out.ByService, func(i, j int) bool {
		if out.ByService[i].Total != out.ByService[j].Total {
			return out.ByService[i].Total > out.ByService[j].Total
		}
		return out.ByService[i].Service < out.ByService[j].Service
	})
	return out, nil
}
