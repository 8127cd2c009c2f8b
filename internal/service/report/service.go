package report

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/booking-api/internal/model"
	"github.com/jwalitptl/booking-api/internal/repository"
	apperrors "github.com/jwalitptl/booking-api/pkg/errors"
	"github.com/jwalitptl/booking-api/pkg/timeslot"
)

type ClinicGetter interface {
	GetClinic(ctx context.Context, id uuid.UUID) (*model.Clinic, error)
}

// Service answers the clinic owner's dashboard queries. "Today" is the
// UTC calendar date of the injected clock.
type Service struct {
	clinics  ClinicGetter
	bookings repository.BookingRepository
	now      func() time.Time
}

func NewService(clinics ClinicGetter, bookings repository.BookingRepository, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{clinics: clinics, bookings: bookings, now: now}
}

// GetTodayBookings lists today's bookings of the clinic, earliest first
func (s *Service) GetTodayBookings(ctx context.Context, clinicID uuid.UUID, actor model.Actor) ([]*model.BookingDetail, error) {
	if err := s.authorize(ctx, clinicID, actor); err != nil {
		return nil, err
	}

	bookings, err := s.bookings.List(ctx, &model.BookingFilters{
		ClinicID:  clinicID,
		Date:      timeslot.Date(s.now()),
		Ascending: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list today's bookings: %w", err)
	}
	return bookings, nil
}

func (s *Service) GetClinicStats(ctx context.Context, clinicID uuid.UUID, actor model.Actor) (*model.ClinicStats, error) {
	if err := s.authorize(ctx, clinicID, actor); err != nil {
		return nil, err
	}

	var stats model.ClinicStats
	counts := []struct {
		dst     *int
		filters model.BookingFilters
	}{
		{&stats.TotalBookings, model.BookingFilters{ClinicID: clinicID}},
		{&stats.TodayBookings, model.BookingFilters{ClinicID: clinicID, Date: timeslot.Date(s.now())}},
		{&stats.CompletedBookings, model.BookingFilters{ClinicID: clinicID, Status: model.BookingStatusCompleted}},
	}
	for _, c := range counts {
		n, err := s.bookings.Count(ctx, &c.filters)
		if err != nil {
			return nil, fmt.Errorf("failed to count bookings: %w", err)
		}
		*c.dst = n
	}
	return &stats, nil
}

func (s *Service) authorize(ctx context.Context, clinicID uuid.UUID, actor model.Actor) error {
	clinic, err := s.clinics.GetClinic(ctx, clinicID)
	if err != nil {
		return err
	}
	if !clinic.OwnedBy(actor) {
		return apperrors.NewForbidden("not authorized to view this clinic")
	}
	return nil
}
