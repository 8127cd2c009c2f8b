package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/booking-api/internal/model"
	"github.com/jwalitptl/booking-api/internal/repository"
)

func booking(clinicID uuid.UUID, date, start string) *model.Booking {
	return &model.Booking{
		ClinicID:   clinicID,
		ServiceID:  uuid.New(),
		CustomerID: uuid.New(),
		Date:       date,
		StartTime:  start,
		EndTime:    "23:59",
		Status:     model.BookingStatusPending,
	}
}

func TestBookingRepository_ConcurrentCreate(t *testing.T) {
	repo := NewStore().Bookings()
	clinicID := uuid.New()
	const workers = 50

	var wg sync.WaitGroup
	var mu sync.Mutex
	var admitted, rejected int

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := repo.Create(context.Background(), booking(clinicID, "2024-05-01", "10:00"))

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				admitted++
			case assert.ErrorIs(t, err, repository.ErrSlotTaken):
				rejected++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, admitted)
	assert.Equal(t, workers-1, rejected)
}

func TestBookingRepository_CancelReleasesSlot(t *testing.T) {
	ctx := context.Background()
	repo := NewStore().Bookings()
	clinicID := uuid.New()

	first := booking(clinicID, "2024-05-01", "10:00")
	require.NoError(t, repo.Create(ctx, first))
	assert.ErrorIs(t, repo.Create(ctx, booking(clinicID, "2024-05-01", "10:00")), repository.ErrSlotTaken)

	require.NoError(t, repo.UpdateStatus(ctx, first.ID, model.BookingStatusPending, model.BookingStatusCancelled))

	times, err := repo.ListActiveStartTimes(ctx, clinicID, "2024-05-01")
	require.NoError(t, err)
	assert.Empty(t, times)

	assert.NoError(t, repo.Create(ctx, booking(clinicID, "2024-05-01", "10:00")))
}

func TestBookingRepository_CompletedKeepsSlot(t *testing.T) {
	ctx := context.Background()
	repo := NewStore().Bookings()
	clinicID := uuid.New()

	b := booking(clinicID, "2024-05-01", "10:00")
	require.NoError(t, repo.Create(ctx, b))
	require.NoError(t, repo.UpdateStatus(ctx, b.ID, model.BookingStatusPending, model.BookingStatusCompleted))

	times, err := repo.ListActiveStartTimes(ctx, clinicID, "2024-05-01")
	require.NoError(t, err)
	assert.Equal(t, []string{"10:00"}, times)
}

func TestBookingRepository_UpdateStatus_CompareAndSet(t *testing.T) {
	ctx := context.Background()
	repo := NewStore().Bookings()

	b := booking(uuid.New(), "2024-05-01", "10:00")
	require.NoError(t, repo.Create(ctx, b))
	require.NoError(t, repo.UpdateStatus(ctx, b.ID, model.BookingStatusPending, model.BookingStatusConfirmed))

	err := repo.UpdateStatus(ctx, b.ID, model.BookingStatusPending, model.BookingStatusCancelled)
	assert.ErrorIs(t, err, repository.ErrStatusChanged)

	err = repo.UpdateStatus(ctx, uuid.New(), model.BookingStatusPending, model.BookingStatusCancelled)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestBookingRepository_ListAndCount(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	repo := store.Bookings()
	clinicID := uuid.New()
	customerID := uuid.New()

	for _, slot := range []struct{ date, start string }{
		{"2024-05-01", "09:00"},
		{"2024-05-02", "11:00"},
		{"2024-05-02", "09:00"},
	} {
		b := booking(clinicID, slot.date, slot.start)
		b.CustomerID = customerID
		require.NoError(t, repo.Create(ctx, b))
	}
	require.NoError(t, repo.Create(ctx, booking(clinicID, "2024-05-03", "09:00")))

	list, err := repo.List(ctx, &model.BookingFilters{CustomerID: customerID})
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "2024-05-02", list[0].Date)
	assert.Equal(t, "11:00", list[0].StartTime)
	assert.Equal(t, "09:00", list[1].StartTime)
	assert.Equal(t, "2024-05-01", list[2].Date)

	asc, err := repo.List(ctx, &model.BookingFilters{Date: "2024-05-02", Ascending: true})
	require.NoError(t, err)
	require.Len(t, asc, 2)
	assert.Equal(t, "09:00", asc[0].StartTime)

	n, err := repo.Count(ctx, &model.BookingFilters{ClinicID: clinicID})
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestUserRepository_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	repo := NewStore().Users()

	require.NoError(t, repo.Create(ctx, &model.User{Name: "Ana", Email: "ana@example.com", Role: model.RoleCustomer}))
	err := repo.Create(ctx, &model.User{Name: "Ana B", Email: "ANA@example.com ", Role: model.RoleCustomer})
	assert.ErrorIs(t, err, repository.ErrDuplicateEmail)

	u, err := repo.GetByEmail(ctx, "Ana@Example.com")
	require.NoError(t, err)
	assert.Equal(t, "Ana", u.Name)
}

func TestClinicRepository_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewStore().Clinics()

	c := &model.Clinic{Name: "Smile", OwnerID: uuid.New()}
	require.NoError(t, repo.Create(ctx, c))

	got, err := repo.Get(ctx, c.ID)
	require.NoError(t, err)
	got.Name = "mutated"

	again, err := repo.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Smile", again.Name)
}

func TestClinicRepository_DeleteServiceInUse(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	svc := &model.Service{ClinicID: uuid.New(), Name: "Cut", IsActive: true}
	require.NoError(t, store.Clinics().CreateService(ctx, svc))

	b := booking(svc.ClinicID, "2024-05-01", "10:00")
	b.ServiceID = svc.ID
	require.NoError(t, store.Bookings().Create(ctx, b))

	assert.ErrorIs(t, store.Clinics().DeleteService(ctx, svc.ID), repository.ErrInUse)
}

func TestOutboxRepository_ClaimAndRetry(t *testing.T) {
	ctx := context.Background()
	repo := NewStore().Outbox()

	e := &model.OutboxEvent{EventType: model.EventBookingCreated, Payload: []byte(`{}`)}
	require.NoError(t, repo.Create(ctx, e))

	claimed, err := repo.ClaimPending(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, model.OutboxStatusProcessing, claimed[0].Status)

	require.NoError(t, repo.MarkFailed(ctx, e.ID, "boom", nil))
	claimed, err = repo.ClaimPending(ctx, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, claimed)
}
