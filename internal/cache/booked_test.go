package cache

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"barbershop/internal/booking"
	"barbershop/internal/events"
	"barbershop/internal/model"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingReader struct {
	calls int
	times []string
	err   error
}

func (r *countingReader) BookedTimes(_ context.Context, _, _ string) ([]string, error) {
	r.calls++
	return r.times, r.err
}

func setup(t *testing.T, ttl time.Duration) (*BookedTimes, *countingReader, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	logger := zerolog.New(io.Discard)
	reader := &countingReader{times: []string{"09:00", "11:00"}}
	return NewBookedTimes(reader, client, ttl, &logger), reader, mr
}

func TestBookedTimes_MissThenHit(t *testing.T) {
	c, reader, mr := setup(t, time.Minute)
	ctx := context.Background()

	got, err := c.BookedTimes(ctx, "main", "2030-06-04")
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00", "11:00"}, got)

	got, err = c.BookedTimes(ctx, "main", "2030-06-04")
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00", "11:00"}, got)
	assert.Equal(t, 1, reader.calls)

	assert.True(t, mr.Exists("booked:main:2030-06-04"))
	assert.Equal(t, time.Minute, mr.TTL("booked:main:2030-06-04"))

	mr.FastForward(2 * time.Minute)
	_, err = c.BookedTimes(ctx, "main", "2030-06-04")
	require.NoError(t, err)
	assert.Equal(t, 2, reader.calls)
}

func TestBookedTimes_EventInvalidates(t *testing.T) {
	c, reader, mr := setup(t, time.Minute)
	ctx := context.Background()
	bus := events.NewEventBus(nil)
	c.Attach(bus)

	_, err := c.BookedTimes(ctx, "main", "2030-06-04")
	require.NoError(t, err)
	_, err = c.BookedTimes(ctx, "main", "2030-06-05")
	require.NoError(t, err)

	bus.Publish(events.Event{Type: events.TypeSlotBooked, ShopID: "main", Date: "2030-06-04", Time: "10:00"})
	assert.False(t, mr.Exists("booked:main:2030-06-04"))
	assert.True(t, mr.Exists("booked:main:2030-06-05"))

	reader.times = []string{"09:00", "10:00", "11:00"}
	got, err := c.BookedTimes(ctx, "main", "2030-06-04")
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00", "10:00", "11:00"}, got)

	bus.Publish(events.Event{Type: events.TypeSlotReleased, ShopID: "main", Date: "2030-06-05"})
	assert.False(t, mr.Exists("booked:main:2030-06-05"))
}

func TestBookedTimes_ReaderErrorNotCached(t *testing.T) {
	c, reader, mr := setup(t, time.Minute)
	reader.err = errors.New("db down")

	_, err := c.BookedTimes(context.Background(), "main", "2030-06-04")
	assert.Error(t, err)
	assert.False(t, mr.Exists("booked:main:2030-06-04"))
}

func TestBookedTimes_RedisDownFallsBack(t *testing.T) {
	c, reader, mr := setup(t, time.Minute)
	mr.Close()

	got, err := c.BookedTimes(context.Background(), "main", "2030-06-04")
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, 1, reader.calls)
}

func TestBookedTimes_Disabled(t *testing.T) {
	c, reader, _ := setup(t, 0)

	for i := 0; i < 3; i++ {
		_, err := c.BookedTimes(context.Background(), "main", "2030-06-04")
		require.NoError(t, err)
	}
	assert.Equal(t, 3, reader.calls)
}

// committedTimeoutStore persists every insert and then reports a timeout, as
// when the commit lands but the acknowledgement is lost.
type committedTimeoutStore struct {
	booked map[string][]string
}

func (s *committedTimeoutStore) BookedTimes(_ context.Context, _, date string) ([]string, error) {
	return append([]string{}, s.booked[date]...), nil
}
func (s *committedTimeoutStore) InsertAppointmentIfAvailable(_ context.Context, a *model.Appointment) error {
	s.booked[a.Date] = append(s.booked[a.Date], a.Time)
	return context.DeadlineExceeded
}
func (s *committedTimeoutStore) GetAppointment(context.Context, string) (*model.Appointment, error) {
	return nil, model.ErrNotFound
}
func (s *committedTimeoutStore) UpdateAppointmentStatus(context.Context, string, model.AppointmentStatus, model.AppointmentStatus) (*model.Appointment, error) {
	return nil, model.ErrNotFound
}
func (s *committedTimeoutStore) ListAppointmentsByDate(context.Context, string, string) ([]model.Appointment, error) {
	return []model.Appointment{}, nil
}
func (s *committedTimeoutStore) ListAppointmentsByCustomer(context.Context, string, string) ([]model.Appointment, error) {
	return []model.Appointment{}, nil
}
func (s *committedTimeoutStore) ListAppointmentsFrom(context.Context, string, string) ([]model.Appointment, error) {
	return []model.Appointment{}, nil
}
func (s *committedTimeoutStore) ShopSettings(context.Context, string) (*model.ShopSettings, error) {
	return &model.ShopSettings{
		ShopID:              "main",
		Name:                "Fade Street",
		Services:            []model.Service{{Name: "Haircut", Price: 1500}},
		WorkingHours:        model.DefaultWorkingHours(),
		SlotDurationMinutes: 60,
		Status:              model.ShopOpen,
	}, nil
}
func (s *committedTimeoutStore) SaveShopSettings(context.Context, *model.ShopSettings) error {
	return nil
}
func (s *committedTimeoutStore) Closures(context.Context, string) ([]model.Closure, error) {
	return []model.Closure{}, nil
}
func (s *committedTimeoutStore) AddClosure(context.Context, string, *model.Closure) error {
	return nil
}
func (s *committedTimeoutStore) DeleteClosure(context.Context, string, int64) error {
	return nil
}

func TestBookedTimes_TimedOutBookingIsNotShownFree(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	logger := zerolog.New(io.Discard)
	store := &committedTimeoutStore{booked: map[string][]string{}}
	bus := events.NewEventBus(nil)
	cached := NewBookedTimes(store, client, time.Minute, &logger)
	cached.Attach(bus)

	svc := booking.NewService(store, store, bus, booking.Options{
		ShopID:   "main",
		Location: time.UTC,
		Now:      func() time.Time { return time.Date(2030, 6, 3, 10, 30, 0, 0, time.UTC) },
	}, &logger)
	svc.UseBookedTimesCache(cached)
	ctx := context.Background()

	before, err := svc.AvailableSlots(ctx, "2030-06-04")
	require.NoError(t, err)
	require.Contains(t, before, "10:00")
	require.True(t, mr.Exists("booked:main:2030-06-04"))

	_, err = svc.TryBook(ctx, booking.BookingRequest{
		Date: "2030-06-04", Time: "10:00", Service: "Haircut", CustomerID: "c-1",
	})
	require.ErrorIs(t, err, model.ErrTimeout)
	assert.True(t, model.IsRetryable(err))

	after, err := svc.AvailableSlots(ctx, "2030-06-04")
	require.NoError(t, err)
	assert.NotContains(t, after, "10:00")
}

func TestBookedTimes_UncertainEventInvalidates(t *testing.T) {
	c, _, mr := setup(t, time.Minute)
	bus := events.NewEventBus(nil)
	c.Attach(bus)

	_, err := c.BookedTimes(context.Background(), "main", "2030-06-04")
	require.NoError(t, err)
	require.True(t, mr.Exists("booked:main:2030-06-04"))

	bus.Publish(events.Event{Type: events.TypeSlotUncertain, ShopID: "main", Date: "2030-06-04", Time: "10:00"})
	assert.False(t, mr.Exists("booked:main:2030-06-04"))
}
