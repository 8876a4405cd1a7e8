package database

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"barbershop/internal/booking"
	"barbershop/internal/config"
	"barbershop/internal/model"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	logger := zerolog.New(io.Discard)
	db, err := NewDB(filepath.Join(t.TempDir(), "shop.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newAppointment(id, date, clock string) *model.Appointment {
	now := time.Date(2030, 6, 1, 12, 0, 0, 0, time.UTC)
	return &model.Appointment{
		ID:         id,
		ShopID:     "main",
		CustomerID: "c-" + id,
		Date:       date,
		Time:       clock,
		Service:    "Haircut",
		Price:      1500,
		Status:     model.StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func TestAppointmentsCRUD(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.InsertAppointmentIfAvailable(ctx, newAppointment("a1", "2030-06-04", "10:00")))
	require.NoError(t, db.InsertAppointmentIfAvailable(ctx, newAppointment("a2", "2030-06-04", "09:00")))
	require.NoError(t, db.InsertAppointmentIfAvailable(ctx, newAppointment("a3", "2030-06-05", "09:00")))

	booked, err := db.BookedTimes(ctx, "main", "2030-06-04")
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00", "10:00"}, booked)

	got, err := db.GetAppointment(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, "c-a1", got.CustomerID)
	assert.Equal(t, model.StatusPending, got.Status)
	assert.Equal(t, int64(1500), got.Price)

	_, err = db.GetAppointment(ctx, "nope")
	assert.ErrorIs(t, err, model.ErrNotFound)

	list, err := db.ListAppointmentsByDate(ctx, "main", "2030-06-04")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a2", list[0].ID)

	empty, err := db.BookedTimes(ctx, "other", "2030-06-04")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestInsertConflict(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.InsertAppointmentIfAvailable(ctx, newAppointment("a1", "2030-06-04", "10:00")))
	err := db.InsertAppointmentIfAvailable(ctx, newAppointment("a2", "2030-06-04", "10:00"))
	assert.ErrorIs(t, err, model.ErrConflict)
}

func TestUniqueIndexBacksUpCheck(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.InsertAppointmentIfAvailable(ctx, newAppointment("a1", "2030-06-04", "10:00")))

	// Bypass the in-transaction check and hit the index directly.
	a := newAppointment("a2", "2030-06-04", "10:00")
	_, err := db.ExecContext(ctx, `INSERT INTO appointments (`+appointmentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.ShopID, a.CustomerID, "", "", a.Date, a.Time, a.Service, a.Price, "confirmed", "", a.CreatedAt, a.UpdatedAt)
	require.Error(t, err)
	assert.ErrorIs(t, mapError(err), model.ErrConflict)

	// A cancelled row does not occupy the slot.
	_, err = db.ExecContext(ctx, `INSERT INTO appointments (`+appointmentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		"a3", a.ShopID, a.CustomerID, "", "", a.Date, a.Time, a.Service, a.Price, "cancelled", "", a.CreatedAt, a.UpdatedAt)
	assert.NoError(t, err)
}

func TestCancelThenRebook(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.InsertAppointmentIfAvailable(ctx, newAppointment("a1", "2030-06-04", "10:00")))
	cancelled, err := db.UpdateAppointmentStatus(ctx, "a1", model.StatusPending, model.StatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, cancelled.Status)

	booked, err := db.BookedTimes(ctx, "main", "2030-06-04")
	require.NoError(t, err)
	assert.Empty(t, booked)

	require.NoError(t, db.InsertAppointmentIfAvailable(ctx, newAppointment("a2", "2030-06-04", "10:00")))
	booked, err = db.BookedTimes(ctx, "main", "2030-06-04")
	require.NoError(t, err)
	assert.Equal(t, []string{"10:00"}, booked)
}

func TestUpdateStatusCompareAndSet(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.InsertAppointmentIfAvailable(ctx, newAppointment("a1", "2030-06-04", "10:00")))
	_, err := db.UpdateAppointmentStatus(ctx, "a1", model.StatusPending, model.StatusConfirmed)
	require.NoError(t, err)

	_, err = db.UpdateAppointmentStatus(ctx, "a1", model.StatusPending, model.StatusCancelled)
	assert.ErrorIs(t, err, model.ErrConcurrentModification)

	_, err = db.UpdateAppointmentStatus(ctx, "missing", model.StatusPending, model.StatusCancelled)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestCustomerAndCompletedListings(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	for _, a := range []*model.Appointment{
		newAppointment("a1", "2030-06-04", "10:00"),
		newAppointment("a2", "2030-06-06", "09:00"),
		newAppointment("a3", "2030-06-05", "11:00"),
	} {
		a.CustomerID = "ann"
		require.NoError(t, db.InsertAppointmentIfAvailable(ctx, a))
	}

	list, err := db.ListAppointmentsByCustomer(ctx, "main", "ann")
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"a2", "a3", "a1"}, []string{list[0].ID, list[1].ID, list[2].ID})

	_, err = db.UpdateAppointmentStatus(ctx, "a1", model.StatusPending, model.StatusConfirmed)
	require.NoError(t, err)
	_, err = db.UpdateAppointmentStatus(ctx, "a1", model.StatusConfirmed, model.StatusCompleted)
	require.NoError(t, err)

	done, err := db.CompletedAppointments(ctx, "main", "2030-06-01", "2030-06-30")
	require.NoError(t, err)
	require.Len(t, done, 1)
	assert.Equal(t, "a1", done[0].ID)

	done, err = db.CompletedAppointments(ctx, "main", "2030-06-05", "2030-06-30")
	require.NoError(t, err)
	assert.Empty(t, done)
}

func TestListAppointmentsFrom(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	for _, a := range []*model.Appointment{
		newAppointment("a1", "2030-06-02", "10:00"),
		newAppointment("a2", "2030-06-05", "09:00"),
		newAppointment("a3", "2030-06-03", "15:00"),
		newAppointment("a4", "2030-06-03", "09:00"),
	} {
		require.NoError(t, db.InsertAppointmentIfAvailable(ctx, a))
	}
	other := newAppointment("x1", "2030-06-04", "09:00")
	other.ShopID = "uptown"
	require.NoError(t, db.InsertAppointmentIfAvailable(ctx, other))

	list, err := db.ListAppointmentsFrom(ctx, "main", "2030-06-03")
	require.NoError(t, err)
	ids := make([]string, len(list))
	for i, a := range list {
		ids[i] = a.ID
	}
	assert.Equal(t, []string{"a4", "a3", "a2"}, ids)
}

func TestShopSettingsRoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	_, err := db.ShopSettings(ctx, "main")
	assert.ErrorIs(t, err, model.ErrNotFound)

	s := &model.ShopSettings{
		ShopID:              "main",
		Name:                "Fade Street",
		Services:            []model.Service{{Name: "Haircut", Price: 1500}},
		WorkingHours:        model.DefaultWorkingHours(),
		SlotDurationMinutes: 30,
		Status:              model.ShopOpen,
		UpdatedAt:           time.Date(2030, 6, 1, 9, 0, 0, 0, time.UTC),
	}
	require.NoError(t, db.SaveShopSettings(ctx, s))

	s.Status = model.ShopClosed
	s.SlotDurationMinutes = 45
	require.NoError(t, db.SaveShopSettings(ctx, s))

	got, err := db.ShopSettings(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, model.ShopClosed, got.Status)
	assert.Equal(t, 45, got.SlotDurationMinutes)
	assert.Equal(t, s.Services, got.Services)
	assert.Equal(t, s.WorkingHours, got.WorkingHours)
}

func TestClosures(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	later := &model.Closure{Start: "2030-07-01", End: "2030-07-03", Reason: "Vacation"}
	sooner := &model.Closure{Start: "2030-06-10", End: "2030-06-10", Reason: "Training"}
	require.NoError(t, db.AddClosure(ctx, "main", later))
	require.NoError(t, db.AddClosure(ctx, "main", sooner))
	assert.NotZero(t, later.ID)

	list, err := db.Closures(ctx, "main")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Training", list[0].Reason)

	require.NoError(t, db.DeleteClosure(ctx, "main", later.ID))
	assert.ErrorIs(t, db.DeleteClosure(ctx, "main", later.ID), model.ErrNotFound)
}

func TestConcurrentBookingOneWinner(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	logger := zerolog.New(io.Discard)

	svc := booking.NewService(db, db, nil, booking.Options{
		ShopID:   "main",
		Location: time.UTC,
		Now:      func() time.Time { return time.Date(2030, 6, 3, 8, 0, 0, 0, time.UTC) },
	}, &logger)
	_, err := svc.SeedSettings(ctx, &model.ShopSettings{
		Name:                "Fade Street",
		Services:            []model.Service{{Name: "Haircut", Price: 1500}},
		WorkingHours:        model.DefaultWorkingHours(),
		SlotDurationMinutes: 60,
		Status:              model.ShopOpen,
	})
	require.NoError(t, err)

	const workers = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
		others    []error
	)
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, err := svc.TryBook(ctx, booking.BookingRequest{
				Date: "2030-06-04", Time: "10:00", Service: "Haircut", CustomerID: "c",
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, model.ErrConflict):
				conflicts++
			default:
				others = append(others, err)
			}
		}(i)
	}
	close(start)
	wg.Wait()

	assert.Empty(t, others)
	assert.Equal(t, 1, successes)
	assert.Equal(t, workers-1, conflicts)

	list, err := db.ListAppointmentsByDate(ctx, "main", "2030-06-04")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	slots, err := svc.AvailableSlots(ctx, "2030-06-04")
	require.NoError(t, err)
	assert.NotContains(t, slots, "10:00")
}

func TestBackupService(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	logger := zerolog.New(io.Discard)
	require.NoError(t, db.InsertAppointmentIfAvailable(ctx, newAppointment("a1", "2030-06-04", "10:00")))

	dir := filepath.Join(t.TempDir(), "backups")
	svc := NewBackupService(db, config.BackupConfig{Enabled: true, StoragePath: dir, RetentionDays: 7}, &logger)

	path, err := svc.PerformBackup(ctx)
	require.NoError(t, err)
	assert.FileExists(t, path)

	restored, err := NewDB(path, &logger)
	require.NoError(t, err)
	defer restored.Close()
	got, err := restored.GetAppointment(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, "10:00", got.Time)

	stale := filepath.Join(dir, backupPrefix+"20000101_000000.db")
	require.NoError(t, os.WriteFile(stale, []byte("old"), 0o644))
	old := time.Now().AddDate(0, 0, -30)
	require.NoError(t, os.Chtimes(stale, old, old))
	unrelated := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(unrelated, []byte("keep"), 0o644))
	require.NoError(t, os.Chtimes(unrelated, old, old))

	svc.CleanupOldBackups()
	assert.NoFileExists(t, stale)
	assert.FileExists(t, unrelated)
	assert.FileExists(t, path)
}
