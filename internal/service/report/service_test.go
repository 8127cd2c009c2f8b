package report

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/booking-api/internal/model"
	"github.com/jwalitptl/booking-api/internal/repository/memory"
	"github.com/jwalitptl/booking-api/internal/service/clinic"
	apperrors "github.com/jwalitptl/booking-api/pkg/errors"
)

func setup(t *testing.T) (*Service, *memory.Store, model.Actor, *model.Clinic) {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	clinics := clinic.NewService(store.Clinics(), time.Minute, nil)
	owner := model.Actor{ID: uuid.New(), Role: model.RoleAdmin}

	c, err := clinics.CreateClinic(ctx, owner, &model.CreateClinicRequest{
		Name: "Smile", Type: model.ClinicTypeClinic, Address: "1 Main", City: "Sydney",
		OpeningTime: "09:00", ClosingTime: "17:00", SlotDurationMinutes: 30,
	})
	require.NoError(t, err)

	// late evening UTC still counts as 2024-05-02
	now := func() time.Time { return time.Date(2024, 5, 2, 23, 30, 0, 0, time.UTC) }
	return NewService(clinics, store.Bookings(), now), store, owner, c
}

func addBooking(t *testing.T, store *memory.Store, clinicID uuid.UUID, date, start string, status model.BookingStatus) {
	t.Helper()
	b := &model.Booking{
		ClinicID: clinicID, ServiceID: uuid.New(), CustomerID: uuid.New(),
		Date: date, StartTime: start, EndTime: "23:59", Status: model.BookingStatusPending,
	}
	require.NoError(t, store.Bookings().Create(context.Background(), b))
	if status != model.BookingStatusPending {
		require.NoError(t, store.Bookings().UpdateStatus(context.Background(), b.ID, model.BookingStatusPending, status))
	}
}

func TestService_GetTodayBookings(t *testing.T) {
	svc, store, owner, c := setup(t)

	addBooking(t, store, c.ID, "2024-05-02", "14:00", model.BookingStatusPending)
	addBooking(t, store, c.ID, "2024-05-02", "09:00", model.BookingStatusConfirmed)
	addBooking(t, store, c.ID, "2024-05-01", "09:00", model.BookingStatusPending)
	addBooking(t, store, uuid.New(), "2024-05-02", "10:00", model.BookingStatusPending)

	bookings, err := svc.GetTodayBookings(context.Background(), c.ID, owner)
	require.NoError(t, err)
	require.Len(t, bookings, 2)
	assert.Equal(t, "09:00", bookings[0].StartTime)
	assert.Equal(t, "14:00", bookings[1].StartTime)
}

func TestService_GetClinicStats(t *testing.T) {
	svc, store, owner, c := setup(t)

	addBooking(t, store, c.ID, "2024-05-02", "09:00", model.BookingStatusPending)
	addBooking(t, store, c.ID, "2024-05-02", "10:00", model.BookingStatusCancelled)
	addBooking(t, store, c.ID, "2024-05-01", "09:00", model.BookingStatusCompleted)
	addBooking(t, store, c.ID, "2024-04-30", "09:00", model.BookingStatusCompleted)

	stats, err := svc.GetClinicStats(context.Background(), c.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, &model.ClinicStats{TotalBookings: 4, TodayBookings: 2, CompletedBookings: 2}, stats)
}

func TestService_Authorization(t *testing.T) {
	svc, _, _, c := setup(t)
	ctx := context.Background()

	other := model.Actor{ID: uuid.New(), Role: model.RoleAdmin}
	_, err := svc.GetTodayBookings(ctx, c.ID, other)
	assert.Equal(t, apperrors.KindForbidden, apperrors.KindOf(err))

	_, err = svc.GetClinicStats(ctx, c.ID, other)
	assert.Equal(t, apperrors.KindForbidden, apperrors.KindOf(err))

	_, err = svc.GetClinicStats(ctx, uuid.New(), other)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}
