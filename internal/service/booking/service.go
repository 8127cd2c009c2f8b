package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jwalitptl/booking-api/internal/model"
	"github.com/jwalitptl/booking-api/internal/repository"
	"github.com/jwalitptl/booking-api/internal/service/event"
	apperrors "github.com/jwalitptl/booking-api/pkg/errors"
	"github.com/jwalitptl/booking-api/pkg/logger"
	"github.com/jwalitptl/booking-api/pkg/metrics"
	"github.com/jwalitptl/booking-api/pkg/timeslot"
)

var tracer = otel.Tracer("booking-api.internal.service.booking")

// ClinicDirectory resolves the clinics and services a booking refers to.
// Missing records come back as not found AppErrors.
type ClinicDirectory interface {
	GetClinic(ctx context.Context, id uuid.UUID) (*model.Clinic, error)
	GetService(ctx context.Context, id uuid.UUID) (*model.Service, error)
}

type Service struct {
	clinics  ClinicDirectory
	bookings repository.BookingRepository
	events   event.Emitter
	metrics  *metrics.Metrics
	logger   *logger.Logger
	now      func() time.Time
}

type Option func(*Service)

// WithMetrics records admission and transition outcomes
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(clinics ClinicDirectory, bookings repository.BookingRepository, events event.Emitter, log *logger.Logger, opts ...Option) *Service {
	if events == nil {
		events = event.NopEmitter{}
	}
	if log == nil {
		log = logger.Nop()
	}
	s := &Service{
		clinics:  clinics,
		bookings: bookings,
		events:   events,
		logger:   log.With("booking"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetAvailableSlots lists the clinic's grid for date minus the start times
// held by active bookings, in grid order.
func (s *Service) GetAvailableSlots(ctx context.Context, clinicID uuid.UUID, date string) (*model.Availability, error) {
	ctx, span := tracer.Start(ctx, "booking.availability")
	defer span.End()
	span.SetAttributes(
		attribute.String("booking.clinic_id", clinicID.String()),
		attribute.String("booking.date", date),
	)

	start := time.Now()
	if s.metrics != nil {
		s.metrics.AvailabilityLookups.Inc()
		defer func() { s.metrics.AvailabilityLatency.Observe(time.Since(start).Seconds()) }()
	}

	clinic, err := s.clinics.GetClinic(ctx, clinicID)
	if err != nil {
		return nil, recordError(span, err)
	}

	if err := timeslot.ValidateDate(date); err != nil {
		return nil, recordError(span, apperrors.NewValidation("date must be YYYY-MM-DD", err))
	}

	grid, err := timeslot.Generate(clinic.OpeningTime, clinic.ClosingTime, clinic.SlotDurationMinutes)
	if err != nil {
		return nil, recordError(span, fmt.Errorf("failed to generate slots: %w", err))
	}

	taken, err := s.bookings.ListActiveStartTimes(ctx, clinicID, date)
	if err != nil {
		return nil, recordError(span, fmt.Errorf("failed to list booked slots: %w", err))
	}

	booked := make(map[string]struct{}, len(taken))
	for _, t := range taken {
		booked[t] = struct{}{}
	}

	slots := make([]string, 0, len(grid))
	for _, slot := range grid {
		if _, ok := booked[slot]; !ok {
			slots = append(slots, slot)
		}
	}

	return &model.Availability{Date: date, Slots: slots}, nil
}

// CreateBooking admits a pending booking for the actor. The store decides
// slot ownership atomically, so concurrent requests for one slot yield a
// single booking and conflicts for the rest.
func (s *Service) CreateBooking(ctx context.Context, actor model.Actor, req *model.CreateBookingRequest) (*model.Booking, error) {
	ctx, span := tracer.Start(ctx, "booking.create")
	defer span.End()

	booking, err := s.admit(ctx, actor, req)
	s.recordAdmission(err)
	if err != nil {
		return nil, recordError(span, err)
	}
	span.SetAttributes(attribute.String("booking.id", booking.ID.String()))

	s.emit(ctx, model.EventBookingCreated, booking, "", actor)
	return booking, nil
}

func (s *Service) admit(ctx context.Context, actor model.Actor, req *model.CreateBookingRequest) (*model.Booking, error) {
	if req.ClinicID == uuid.Nil || req.ServiceID == uuid.Nil || req.Date == "" || req.StartTime == "" {
		return nil, apperrors.NewValidation("clinic_id, service_id, date and start_time are required", nil)
	}
	if err := timeslot.ValidateDate(req.Date); err != nil {
		return nil, apperrors.NewValidation("date must be YYYY-MM-DD", err)
	}
	start, err := timeslot.ParseClock(req.StartTime)
	if err != nil {
		return nil, apperrors.NewValidation("start_time must be HH:MM", err)
	}
	// "24:00" only closes a window, it never starts one.
	if start >= timeslot.MinutesPerDay {
		return nil, apperrors.NewValidation("start_time must be before 24:00", nil)
	}
	if req.EndTime != "" {
		end, err := timeslot.ParseClock(req.EndTime)
		if err != nil {
			return nil, apperrors.NewValidation("end_time must be HH:MM", err)
		}
		if end <= start {
			return nil, apperrors.NewValidation("end_time must be after start_time", nil)
		}
	}

	clinic, err := s.clinics.GetClinic(ctx, req.ClinicID)
	if err != nil {
		return nil, err
	}

	service, err := s.clinics.GetService(ctx, req.ServiceID)
	if err != nil && !apperrors.Is(err, apperrors.KindNotFound) {
		return nil, err
	}
	if service == nil || service.ClinicID != clinic.ID {
		return nil, apperrors.NewValidation("service not found or does not belong to clinic", nil)
	}

	// Report a taken slot ahead of end time derivation. The insert below
	// still owns the atomic decision.
	taken, err := s.slotTaken(ctx, clinic.ID, req.Date, req.StartTime)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperrors.NewConflict("slot already booked", repository.ErrSlotTaken)
	}

	endTime := req.EndTime
	if endTime == "" {
		endTime, err = timeslot.EndTime(req.StartTime, service.DurationMinutes)
		if err != nil {
			return nil, apperrors.NewValidation("booking would end after midnight", err)
		}
	}

	booking := &model.Booking{
		ClinicID:   clinic.ID,
		ServiceID:  service.ID,
		CustomerID: actor.ID,
		Date:       req.Date,
		StartTime:  req.StartTime,
		EndTime:    endTime,
		Status:     model.BookingStatusPending,
		Notes:      req.Notes,
	}
	if err := s.bookings.Create(ctx, booking); err != nil {
		if errors.Is(err, repository.ErrSlotTaken) {
			return nil, apperrors.NewConflict("slot already booked", err)
		}
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}

	s.logger.Info("booking created",
		"booking_id", booking.ID,
		"clinic_id", booking.ClinicID,
		"date", booking.Date,
		"start_time", booking.StartTime,
	)
	return booking, nil
}

func (s *Service) slotTaken(ctx context.Context, clinicID uuid.UUID, date, startTime string) (bool, error) {
	starts, err := s.bookings.ListActiveStartTimes(ctx, clinicID, date)
	if err != nil {
		return false, fmt.Errorf("failed to list booked slots: %w", err)
	}
	for _, t := range starts {
		if t == startTime {
			return true, nil
		}
	}
	return false, nil
}

// ListMyBookings returns the customer's bookings, newest date first
func (s *Service) ListMyBookings(ctx context.Context, customerID uuid.UUID) ([]*model.BookingDetail, error) {
	bookings, err := s.bookings.List(ctx, &model.BookingFilters{CustomerID: customerID})
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	return bookings, nil
}

// CancelBooking cancels on behalf of the customer who booked or any admin
func (s *Service) CancelBooking(ctx context.Context, id uuid.UUID, actor model.Actor) (*model.Booking, error) {
	ctx, span := tracer.Start(ctx, "booking.cancel")
	defer span.End()
	span.SetAttributes(attribute.String("booking.id", id.String()))

	booking, err := s.getBooking(ctx, id)
	if err != nil {
		return nil, recordError(span, err)
	}
	if booking.CustomerID != actor.ID && !actor.IsAdmin() {
		return nil, recordError(span, apperrors.NewForbidden("not authorized to cancel this booking"))
	}

	switch booking.Status {
	case model.BookingStatusCompleted:
		return nil, recordError(span, apperrors.NewValidation("cannot cancel completed booking", nil))
	case model.BookingStatusCancelled:
		return nil, recordError(span, apperrors.NewValidation("booking already cancelled", nil))
	}

	previous := booking.Status
	if err := s.transition(ctx, booking, model.BookingStatusCancelled); err != nil {
		return nil, recordError(span, err)
	}

	s.emit(ctx, model.EventBookingCancelled, booking, previous, actor)
	return booking, nil
}

// UpdateBookingStatus moves a booking along its lifecycle. Only the admin
// who owns the booking's clinic may do so.
func (s *Service) UpdateBookingStatus(ctx context.Context, id uuid.UUID, actor model.Actor, status model.BookingStatus) (*model.Booking, error) {
	ctx, span := tracer.Start(ctx, "booking.update_status")
	defer span.End()
	span.SetAttributes(
		attribute.String("booking.id", id.String()),
		attribute.String("booking.status", string(status)),
	)

	booking, err := s.getBooking(ctx, id)
	if err != nil {
		return nil, recordError(span, err)
	}

	clinic, err := s.clinics.GetClinic(ctx, booking.ClinicID)
	if err != nil {
		return nil, recordError(span, err)
	}
	if !actor.IsAdmin() || !clinic.OwnedBy(actor) {
		return nil, recordError(span, apperrors.NewForbidden("not authorized to update this booking"))
	}

	if !status.Valid() {
		return nil, recordError(span, apperrors.NewValidation("invalid status", nil))
	}
	if !booking.Status.CanTransitionTo(status) {
		return nil, recordError(span, apperrors.NewValidation(
			fmt.Sprintf("cannot change booking from %s to %s", booking.Status, status), nil))
	}

	previous := booking.Status
	if err := s.transition(ctx, booking, status); err != nil {
		return nil, recordError(span, err)
	}

	s.emit(ctx, model.EventBookingStatusChanged, booking, previous, actor)
	return booking, nil
}

func (s *Service) getBooking(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	booking, err := s.bookings.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("booking", nil)
		}
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return booking, nil
}

// transition writes to with a compare-and-set on the booking's current status
func (s *Service) transition(ctx context.Context, booking *model.Booking, to model.BookingStatus) error {
	from := booking.Status
	if err := s.bookings.UpdateStatus(ctx, booking.ID, from, to); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return apperrors.NewNotFound("booking", nil)
		case errors.Is(err, repository.ErrStatusChanged):
			return apperrors.NewConflict("booking was modified concurrently", err)
		}
		return fmt.Errorf("failed to update booking status: %w", err)
	}

	booking.Status = to
	booking.UpdatedAt = s.now().UTC()
	if s.metrics != nil {
		s.metrics.BookingTransitions.WithLabelValues(string(from), string(to)).Inc()
	}
	s.logger.Info("booking status changed", "booking_id", booking.ID, "from", from, "to", to)
	return nil
}

// emit records an integration event. Failures never undo the booking change.
func (s *Service) emit(ctx context.Context, eventType string, booking *model.Booking, previous model.BookingStatus, actor model.Actor) {
	payload := model.BookingEvent{
		BookingID:  booking.ID,
		ClinicID:   booking.ClinicID,
		CustomerID: booking.CustomerID,
		Date:       booking.Date,
		StartTime:  booking.StartTime,
		Status:     booking.Status,
		Previous:   previous,
		ActorID:    actor.ID,
		OccurredAt: s.now().UTC(),
	}
	if err := s.events.Emit(ctx, eventType, payload); err != nil {
		s.logger.Error(err, "failed to record booking event", "event_type", eventType, "booking_id", booking.ID)
	}
}

func (s *Service) recordAdmission(err error) {
	if s.metrics == nil {
		return
	}
	result := metrics.AdmissionAdmitted
	switch {
	case err == nil:
	case apperrors.Is(err, apperrors.KindConflict):
		result = metrics.AdmissionConflict
	default:
		result = metrics.AdmissionRejected
	}
	s.metrics.BookingAdmissions.WithLabelValues(result).Inc()
}

func recordError(span trace.Span, err error) error {
	span.RecordError(err)
	if apperrors.KindOf(err) == apperrors.KindInternal {
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}
