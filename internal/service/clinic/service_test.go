package clinic

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/booking-api/internal/model"
	"github.com/jwalitptl/booking-api/internal/repository/memory"
	apperrors "github.com/jwalitptl/booking-api/pkg/errors"
)

func ptr[T any](v T) *T { return &v }

func newService(t *testing.T) *Service {
	t.Helper()
	return NewService(memory.NewStore().Clinics(), time.Minute, nil)
}

func createRequest() *model.CreateClinicRequest {
	return &model.CreateClinicRequest{
		Name:                "Smile Dental",
		Type:                model.ClinicTypeClinic,
		Address:             "12 Harbour St",
		City:                "Sydney",
		OpeningTime:         "09:00",
		ClosingTime:         "17:00",
		SlotDurationMinutes: 30,
	}
}

func TestService_CreateClinic(t *testing.T) {
	svc := newService(t)
	owner := model.Actor{ID: uuid.New(), Role: model.RoleAdmin}

	clinic, err := svc.CreateClinic(context.Background(), owner, createRequest())
	require.NoError(t, err)
	assert.Equal(t, owner.ID, clinic.OwnerID)
	assert.NotEqual(t, uuid.Nil, clinic.ID)
}

func TestService_CreateClinic_Rejections(t *testing.T) {
	svc := newService(t)

	_, err := svc.CreateClinic(context.Background(), model.Actor{ID: uuid.New(), Role: model.RoleCustomer}, createRequest())
	assert.Equal(t, apperrors.KindForbidden, apperrors.KindOf(err))

	req := createRequest()
	req.OpeningTime = "18:00"
	_, err = svc.CreateClinic(context.Background(), model.Actor{ID: uuid.New(), Role: model.RoleAdmin}, req)
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
}

func TestService_GetClinic_NotFound(t *testing.T) {
	svc := newService(t)

	_, err := svc.GetClinic(context.Background(), uuid.New())
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}

func TestService_UpdateClinic(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	owner := model.Actor{ID: uuid.New(), Role: model.RoleAdmin}

	clinic, err := svc.CreateClinic(ctx, owner, createRequest())
	require.NoError(t, err)

	// warm the cache so the update must invalidate it
	_, err = svc.GetClinic(ctx, clinic.ID)
	require.NoError(t, err)

	updated, err := svc.UpdateClinic(ctx, clinic.ID, owner, &model.UpdateClinicRequest{
		Name:        ptr("Bright Smile"),
		ClosingTime: ptr("20:00"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Bright Smile", updated.Name)

	got, err := svc.GetClinic(ctx, clinic.ID)
	require.NoError(t, err)
	assert.Equal(t, "Bright Smile", got.Name)
	assert.Equal(t, "20:00", got.ClosingTime)
	assert.Equal(t, owner.ID, got.OwnerID)
}

func TestService_UpdateClinic_Rejections(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	owner := model.Actor{ID: uuid.New(), Role: model.RoleAdmin}

	clinic, err := svc.CreateClinic(ctx, owner, createRequest())
	require.NoError(t, err)

	other := model.Actor{ID: uuid.New(), Role: model.RoleAdmin}
	_, err = svc.UpdateClinic(ctx, clinic.ID, other, &model.UpdateClinicRequest{Name: ptr("Mine now")})
	assert.Equal(t, apperrors.KindForbidden, apperrors.KindOf(err))

	_, err = svc.UpdateClinic(ctx, clinic.ID, owner, &model.UpdateClinicRequest{ClosingTime: ptr("08:00")})
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))

	got, err := svc.GetClinic(ctx, clinic.ID)
	require.NoError(t, err)
	assert.Equal(t, "17:00", got.ClosingTime)
}

func TestService_Services(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	owner := model.Actor{ID: uuid.New(), Role: model.RoleAdmin}

	clinic, err := svc.CreateClinic(ctx, owner, createRequest())
	require.NoError(t, err)

	cleaning, err := svc.CreateService(ctx, owner, &model.CreateServiceRequest{
		ClinicID: clinic.ID, Name: "Cleaning", Price: 80, DurationMinutes: 30,
	})
	require.NoError(t, err)
	assert.True(t, cleaning.IsActive)

	_, err = svc.CreateService(ctx, owner, &model.CreateServiceRequest{
		ClinicID: clinic.ID, Name: "Whitening", Price: 200, DurationMinutes: 60, IsActive: ptr(false),
	})
	require.NoError(t, err)

	services, err := svc.ListServices(ctx, clinic.ID)
	require.NoError(t, err)
	require.Len(t, services, 1)
	assert.Equal(t, "Cleaning", services[0].Name)

	updated, err := svc.UpdateService(ctx, cleaning.ID, owner, &model.UpdateServiceRequest{Price: ptr(95.0)})
	require.NoError(t, err)
	assert.Equal(t, 95.0, updated.Price)
	assert.Equal(t, clinic.ID, updated.ClinicID)

	stranger := model.Actor{ID: uuid.New(), Role: model.RoleAdmin}
	assert.Equal(t, apperrors.KindForbidden, apperrors.KindOf(svc.DeleteService(ctx, cleaning.ID, stranger)))

	require.NoError(t, svc.DeleteService(ctx, cleaning.ID, owner))
	_, err = svc.GetService(ctx, cleaning.ID)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}

func TestService_CreateService_Validation(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	owner := model.Actor{ID: uuid.New(), Role: model.RoleAdmin}

	clinic, err := svc.CreateClinic(ctx, owner, createRequest())
	require.NoError(t, err)

	_, err = svc.CreateService(ctx, owner, &model.CreateServiceRequest{ClinicID: clinic.ID, Name: "Free", Price: 0, DurationMinutes: 30})
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))

	_, err = svc.CreateService(ctx, owner, &model.CreateServiceRequest{ClinicID: uuid.New(), Name: "Lost", Price: 10, DurationMinutes: 30})
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}
