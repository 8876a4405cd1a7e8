package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"barbershop/internal/events"
	"barbershop/internal/metrics"
	"barbershop/internal/model"
	"barbershop/internal/slots"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DefaultShopID is the shop scope used when none is configured.
const DefaultShopID = "main"

// Options configures a Service.
type Options struct {
	ShopID         string
	Location       *time.Location   // shop wall clock; defaults to time.Local
	MaxAdvanceDays int              // booking horizon; defaults to 30
	StoreTimeout   time.Duration    // per-operation store deadline; defaults to 5s
	Now            func() time.Time // defaults to time.Now
}

// BookingRequest is a customer's request for one slot.
type BookingRequest struct {
	Date          string `json:"date"` // YYYY-MM-DD
	Time          string `json:"time"` // HH:MM
	Service       string `json:"service"`
	CustomerID    string `json:"customer_id"`
	CustomerName  string `json:"customer_name,omitempty"`
	CustomerPhone string `json:"customer_phone,omitempty"`
	Notes         string `json:"notes,omitempty"`
}

// Service computes availability and mediates every appointment write.
type Service struct {
	store    Store
	settings SettingsStore
	reader   BookedTimesReader
	bus      Publisher
	fsm      *StatusMachine
	opts     Options
	logger   zerolog.Logger
}

// NewService wires the service. bus and logger may be nil.
func NewService(store Store, settings SettingsStore, bus Publisher, opts Options, logger *zerolog.Logger) *Service {
	if opts.ShopID == "" {
		opts.ShopID = DefaultShopID
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.MaxAdvanceDays <= 0 {
		opts.MaxAdvanceDays = 30
	}
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = 5 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "booking").Str("shop_id", opts.ShopID).Logger()
	}

	return &Service{
		store:    store,
		settings: settings,
		reader:   store,
		bus:      bus,
		fsm:      NewStatusMachine(),
		opts:     opts,
		logger:   l,
	}
}

// UseBookedTimesCache routes availability listings through r. Booking
// re-checks always go to the store.
func (s *Service) UseBookedTimesCache(r BookedTimesReader) {
	if r != nil {
		s.reader = r
	}
}

// ShopID returns the shop scope of the service.
func (s *Service) ShopID() string { return s.opts.ShopID }

// Settings returns the current shop settings.
func (s *Service) Settings(ctx context.Context) (*model.ShopSettings, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.StoreTimeout)
	defer cancel()

	settings, err := s.settings.ShopSettings(ctx, s.opts.ShopID)
	if err != nil {
		return nil, storeError(fmt.Errorf("read shop settings: %w", err))
	}
	return settings, nil
}

// AvailableSlots lists the slots a customer can still pick on date.
func (s *Service) AvailableSlots(ctx context.Context, date string) ([]string, error) {
	day, err := s.parseDate(date)
	if err != nil {
		return nil, fmt.Errorf("%w: date must be YYYY-MM-DD", model.ErrInvalidRequest)
	}

	today := s.today()
	if day.Before(today) || day.After(s.horizon(today)) {
		return []string{}, nil
	}

	settings, err := s.Settings(ctx)
	if err != nil {
		return nil, err
	}
	if settings.Status != model.ShopOpen {
		return []string{}, nil
	}
	closure, err := s.closureOn(ctx, date)
	if err != nil {
		return nil, err
	}
	if closure != nil {
		return []string{}, nil
	}

	candidates, err := slots.SlotsForDay(settings.WorkingHours, settings.SlotDurationMinutes, day)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return candidates, nil
	}

	readCtx, cancel := context.WithTimeout(ctx, s.opts.StoreTimeout)
	defer cancel()
	booked, err := s.reader.BookedTimes(readCtx, s.opts.ShopID, date)
	if err != nil {
		return nil, storeError(fmt.Errorf("read booked times: %w", err))
	}

	return slots.AvailableSlots(candidates, booked, slots.MomentFor(day, s.now())), nil
}

// TryBook books one slot. Exactly one of several concurrent requests for the
// same slot succeeds; the rest get model.ErrConflict. Conflicts are never
// retried here since that would move the customer to a time they did not pick.
func (s *Service) TryBook(ctx context.Context, req BookingRequest) (*model.Appointment, error) {
	appt, err := s.tryBook(ctx, req)
	if err != nil {
		metrics.IncBooking(model.ErrorCode(err))
		s.logger.Info().Err(err).
			Str("date", req.Date).
			Str("time", req.Time).
			Str("customer_id", req.CustomerID).
			Msg("booking rejected")
		return nil, err
	}

	metrics.IncBooking("booked")
	s.logger.Info().
		Str("appointment_id", appt.ID).
		Str("date", appt.Date).
		Str("time", appt.Time).
		Msg("appointment booked")
	return appt, nil
}

func (s *Service) tryBook(ctx context.Context, req BookingRequest) (*model.Appointment, error) {
	if strings.TrimSpace(req.CustomerID) == "" {
		return nil, fmt.Errorf("%w: customer_id is required", model.ErrInvalidRequest)
	}
	if strings.TrimSpace(req.Service) == "" {
		return nil, fmt.Errorf("%w: service is required", model.ErrInvalidRequest)
	}
	day, err := s.parseDate(req.Date)
	if err != nil {
		return nil, fmt.Errorf("%w: date must be YYYY-MM-DD", model.ErrInvalidSlot)
	}
	if _, err := model.ParseClock(req.Time); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrInvalidSlot, err)
	}
	today := s.today()
	if day.Before(today) {
		return nil, fmt.Errorf("%w: date %s is in the past", model.ErrInvalidSlot, req.Date)
	}
	if day.After(s.horizon(today)) {
		return nil, fmt.Errorf("%w: date %s is more than %d days ahead", model.ErrInvalidSlot, req.Date, s.opts.MaxAdvanceDays)
	}

	settings, err := s.Settings(ctx)
	if err != nil {
		return nil, err
	}
	if settings.Status != model.ShopOpen {
		return nil, fmt.Errorf("%w: bookings are paused", model.ErrShopClosed)
	}
	closure, err := s.closureOn(ctx, req.Date)
	if err != nil {
		return nil, err
	}
	if closure != nil {
		return nil, fmt.Errorf("%w: closed on %s (%s)", model.ErrShopClosed, req.Date, closure.Reason)
	}

	candidates, err := slots.SlotsForDay(settings.WorkingHours, settings.SlotDurationMinutes, day)
	if err != nil {
		return nil, err
	}
	if !slots.Contains(candidates, req.Time) {
		return nil, fmt.Errorf("%w: %s is not a slot on %s", model.ErrInvalidSlot, req.Time, req.Date)
	}
	if len(slots.AvailableSlots([]string{req.Time}, nil, slots.MomentFor(day, s.now()))) == 0 {
		return nil, fmt.Errorf("%w: slot %s %s has already started", model.ErrInvalidSlot, req.Date, req.Time)
	}
	svc, ok := settings.FindService(req.Service)
	if !ok {
		return nil, fmt.Errorf("%w: unknown service %q", model.ErrInvalidRequest, req.Service)
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.StoreTimeout)
	defer cancel()

	// Fast path against the store itself; the insert below is what guarantees uniqueness.
	booked, err := s.store.BookedTimes(ctx, s.opts.ShopID, req.Date)
	if err != nil {
		return nil, storeError(fmt.Errorf("re-check availability: %w", err))
	}
	if slots.Contains(booked, req.Time) {
		s.publish(events.TypeSlotUncertain, &model.Appointment{Date: req.Date, Time: req.Time})
		return nil, fmt.Errorf("%w: %s %s", model.ErrConflict, req.Date, req.Time)
	}

	now := s.now()
	appt := &model.Appointment{
		ID:            uuid.NewString(),
		ShopID:        s.opts.ShopID,
		CustomerID:    req.CustomerID,
		CustomerName:  strings.TrimSpace(req.CustomerName),
		CustomerPhone: strings.TrimSpace(req.CustomerPhone),
		Date:          req.Date,
		Time:          req.Time,
		Service:       svc.Name,
		Price:         svc.Price,
		Status:        model.StatusPending,
		Notes:         strings.TrimSpace(req.Notes),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.store.InsertAppointmentIfAvailable(ctx, appt); err != nil {
		// A timed-out insert may still have committed, and a conflict means
		// someone else holds the slot. Either way the slot is not free.
		s.publish(events.TypeSlotUncertain, &model.Appointment{Date: req.Date, Time: req.Time})
		return nil, storeError(fmt.Errorf("insert appointment: %w", err))
	}

	s.publish(events.TypeSlotBooked, appt)
	return appt, nil
}

// UpdateStatus moves an appointment along the lifecycle.
func (s *Service) UpdateStatus(ctx context.Context, id string, to model.AppointmentStatus) (*model.Appointment, error) {
	return s.transition(ctx, id, to, "")
}

// CancelByCustomer cancels on behalf of the customer who booked. Appointments
// of other customers are reported as not found.
func (s *Service) CancelByCustomer(ctx context.Context, id, customerID string) (*model.Appointment, error) {
	if strings.TrimSpace(customerID) == "" {
		return nil, fmt.Errorf("%w: customer_id is required", model.ErrInvalidRequest)
	}
	return s.transition(ctx, id, model.StatusCancelled, customerID)
}

func (s *Service) transition(ctx context.Context, id string, to model.AppointmentStatus, customerID string) (*model.Appointment, error) {
	if !to.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", model.ErrInvalidRequest, to)
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.StoreTimeout)
	defer cancel()

	current, err := s.store.GetAppointment(ctx, id)
	if err != nil {
		return nil, storeError(fmt.Errorf("get appointment %s: %w", id, err))
	}
	if current.ShopID != s.opts.ShopID || (customerID != "" && current.CustomerID != customerID) {
		return nil, fmt.Errorf("get appointment %s: %w", id, model.ErrNotFound)
	}
	if !s.fsm.CanTransition(current.Status, to) {
		if s.fsm.IsTerminal(current.Status) {
			return nil, fmt.Errorf("%w: appointment is already %s", model.ErrInvalidTransition, current.Status)
		}
		return nil, fmt.Errorf("%w: %s -> %s, allowed: %s",
			model.ErrInvalidTransition, current.Status, to, joinStatuses(s.fsm.Next(current.Status)))
	}

	updated, err := s.store.UpdateAppointmentStatus(ctx, id, current.Status, to)
	if err != nil {
		return nil, storeError(fmt.Errorf("update appointment %s: %w", id, err))
	}

	metrics.IncStatusTransition(string(current.Status), string(to))
	s.logger.Info().
		Str("appointment_id", id).
		Str("from", string(current.Status)).
		Str("to", string(to)).
		Msg("appointment status changed")

	if to == model.StatusCancelled {
		s.publish(events.TypeSlotReleased, updated)
	}
	return updated, nil
}

// AppointmentsForDate lists every appointment of a date ordered by time.
func (s *Service) AppointmentsForDate(ctx context.Context, date string) ([]model.Appointment, error) {
	if _, err := s.parseDate(date); err != nil {
		return nil, fmt.Errorf("%w: date must be YYYY-MM-DD", model.ErrInvalidRequest)
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.StoreTimeout)
	defer cancel()

	list, err := s.store.ListAppointmentsByDate(ctx, s.opts.ShopID, date)
	if err != nil {
		return nil, storeError(fmt.Errorf("list appointments: %w", err))
	}
	return list, nil
}

// Overview is the owner's dashboard: appointments from today on with a
// count per status.
type Overview struct {
	From         string                          `json:"from"`
	Appointments []model.Appointment             `json:"appointments"`
	Counts       map[model.AppointmentStatus]int `json:"counts"`
}

// UpcomingAppointments lists appointments from today on, oldest slot first.
func (s *Service) UpcomingAppointments(ctx context.Context) (*Overview, error) {
	from := s.today().Format(model.DateLayout)

	ctx, cancel := context.WithTimeout(ctx, s.opts.StoreTimeout)
	defer cancel()

	list, err := s.store.ListAppointmentsFrom(ctx, s.opts.ShopID, from)
	if err != nil {
		return nil, storeError(fmt.Errorf("list upcoming appointments: %w", err))
	}

	counts := map[model.AppointmentStatus]int{
		model.StatusPending:   0,
		model.StatusConfirmed: 0,
		model.StatusCompleted: 0,
		model.StatusCancelled: 0,
	}
	for _, a := range list {
		counts[a.Status]++
	}
	return &Overview{From: from, Appointments: list, Counts: counts}, nil
}

// Appointment returns one appointment of the shop.
func (s *Service) Appointment(ctx context.Context, id string) (*model.Appointment, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.StoreTimeout)
	defer cancel()

	a, err := s.store.GetAppointment(ctx, id)
	if err != nil {
		return nil, storeError(fmt.Errorf("get appointment %s: %w", id, err))
	}
	if a.ShopID != s.opts.ShopID {
		return nil, fmt.Errorf("get appointment %s: %w", id, model.ErrNotFound)
	}
	return a, nil
}

// CustomerAppointments lists a customer's appointments, newest first.
func (s *Service) CustomerAppointments(ctx context.Context, customerID string) ([]model.Appointment, error) {
	if strings.TrimSpace(customerID) == "" {
		return nil, fmt.Errorf("%w: customer_id is required", model.ErrInvalidRequest)
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.StoreTimeout)
	defer cancel()

	list, err := s.store.ListAppointmentsByCustomer(ctx, s.opts.ShopID, customerID)
	if err != nil {
		return nil, storeError(fmt.Errorf("list customer appointments: %w", err))
	}
	return list, nil
}

// UpdateSettings validates and replaces the shop settings.
func (s *Service) UpdateSettings(ctx context.Context, in *model.ShopSettings) (*model.ShopSettings, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: settings are required", model.ErrInvalidRequest)
	}
	updated := *in
	updated.ShopID = s.opts.ShopID
	updated.WorkingHours = in.WorkingHours.Clone()
	updated.Services = append([]model.Service{}, in.Services...)
	updated.UpdatedAt = s.now()
	if err := updated.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.StoreTimeout)
	defer cancel()

	if err := s.settings.SaveShopSettings(ctx, &updated); err != nil {
		return nil, storeError(fmt.Errorf("save shop settings: %w", err))
	}

	s.logger.Info().
		Str("status", string(updated.Status)).
		Int("slot_duration", updated.SlotDurationMinutes).
		Msg("shop settings updated")
	s.publish(events.TypeSettingsChanged, nil)
	return &updated, nil
}

// SeedSettings stores defaults if the shop has no settings yet.
// It reports whether the defaults were written.
func (s *Service) SeedSettings(ctx context.Context, defaults *model.ShopSettings) (bool, error) {
	_, err := s.Settings(ctx)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, model.ErrNotFound) {
		return false, err
	}
	if _, err := s.UpdateSettings(ctx, defaults); err != nil {
		return false, err
	}
	return true, nil
}

// Closures lists scheduled closures ordered by start date.
func (s *Service) Closures(ctx context.Context) ([]model.Closure, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.StoreTimeout)
	defer cancel()

	list, err := s.settings.Closures(ctx, s.opts.ShopID)
	if err != nil {
		return nil, storeError(fmt.Errorf("list closures: %w", err))
	}
	return list, nil
}

// AddClosure schedules a closure. Existing appointments inside the range are
// left for the owner to cancel.
func (s *Service) AddClosure(ctx context.Context, c model.Closure) (*model.Closure, error) {
	c.Reason = strings.TrimSpace(c.Reason)
	if err := c.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.StoreTimeout)
	defer cancel()

	if err := s.settings.AddClosure(ctx, s.opts.ShopID, &c); err != nil {
		return nil, storeError(fmt.Errorf("add closure: %w", err))
	}

	s.logger.Info().Str("start", c.Start).Str("end", c.End).Str("reason", c.Reason).Msg("closure scheduled")
	s.publish(events.TypeSettingsChanged, nil)
	return &c, nil
}

// RemoveClosure deletes a scheduled closure.
func (s *Service) RemoveClosure(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, s.opts.StoreTimeout)
	defer cancel()

	if err := s.settings.DeleteClosure(ctx, s.opts.ShopID, id); err != nil {
		return storeError(fmt.Errorf("delete closure %d: %w", id, err))
	}
	s.publish(events.TypeSettingsChanged, nil)
	return nil
}

func (s *Service) closureOn(ctx context.Context, date string) (*model.Closure, error) {
	list, err := s.Closures(ctx)
	if err != nil {
		return nil, err
	}
	for i := range list {
		if list[i].Covers(date) {
			return &list[i], nil
		}
	}
	return nil, nil
}

func (s *Service) publish(eventType string, a *model.Appointment) {
	if s.bus == nil {
		return
	}
	event := events.Event{
		Type:      eventType,
		ShopID:    s.opts.ShopID,
		CreatedAt: s.now(),
	}
	if a != nil {
		event.Date = a.Date
		event.Time = a.Time
		event.AppointmentID = a.ID
	}
	s.bus.Publish(event)
}

func (s *Service) now() time.Time {
	return s.opts.Now().In(s.opts.Location)
}

func (s *Service) today() time.Time {
	n := s.now()
	return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, s.opts.Location)
}

func (s *Service) horizon(today time.Time) time.Time {
	return today.AddDate(0, 0, s.opts.MaxAdvanceDays)
}

func (s *Service) parseDate(date string) (time.Time, error) {
	return time.ParseInLocation(model.DateLayout, date, s.opts.Location)
}

func joinStatuses(list []model.AppointmentStatus) string {
	names := make([]string, len(list))
	for i, st := range list {
		names[i] = string(st)
	}
	return strings.Join(names, ", ")
}

// storeError marks deadline failures as retryable timeouts.
func storeError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, model.ErrTimeout) {
		return fmt.Errorf("%w: %w", model.ErrTimeout, err)
	}
	return err
}
