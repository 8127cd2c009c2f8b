package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/booking-api/internal/model"
)

var (
	ErrNotFound       = errors.New("record not found")
	ErrSlotTaken      = errors.New("slot already has an active booking")
	ErrStatusChanged  = errors.New("status changed concurrently")
	ErrDuplicateEmail = errors.New("email already registered")
	ErrInUse          = errors.New("record is referenced by other records")
)

// All repository interfaces in one file
type (
	UserRepository interface {
		Create(ctx context.Context, user *model.User) error
		Get(ctx context.Context, id uuid.UUID) (*model.User, error)
		GetByEmail(ctx context.Context, email string) (*model.User, error)
	}

	// ClinicRepository owns clinics and their service catalogs
	ClinicRepository interface {
		Create(ctx context.Context, clinic *model.Clinic) error
		Get(ctx context.Context, id uuid.UUID) (*model.Clinic, error)
		Update(ctx context.Context, clinic *model.Clinic) error

		CreateService(ctx context.Context, service *model.Service) error
		GetService(ctx context.Context, id uuid.UUID) (*model.Service, error)
		UpdateService(ctx context.Context, service *model.Service) error
		DeleteService(ctx context.Context, id uuid.UUID) error
		ListServices(ctx context.Context, clinicID uuid.UUID, activeOnly bool) ([]*model.Service, error)
	}

	// BookingRepository is the single place where the one active booking per
	// (clinic, date, start time) rule is enforced. Create returns ErrSlotTaken
	// when the slot is held; UpdateStatus returns ErrStatusChanged when the
	// stored status no longer matches from.
	BookingRepository interface {
		Create(ctx context.Context, booking *model.Booking) error
		Get(ctx context.Context, id uuid.UUID) (*model.Booking, error)
		UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.BookingStatus) error
		ListActiveStartTimes(ctx context.Context, clinicID uuid.UUID, date string) ([]string, error)
		List(ctx context.Context, filters *model.BookingFilters) ([]*model.BookingDetail, error)
		Count(ctx context.Context, filters *model.BookingFilters) (int, error)
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		// ClaimPending marks up to limit due events as processing and returns them.
		// Events stuck in processing for longer than staleAfter are claimed again.
		ClaimPending(ctx context.Context, limit int, staleAfter time.Duration) ([]*model.OutboxEvent, error)
		MarkProcessed(ctx context.Context, id uuid.UUID) error
		MarkFailed(ctx context.Context, id uuid.UUID, errMsg string, retryAt *time.Time) error
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	}
)
