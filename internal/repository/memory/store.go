// Package memory is an in-process implementation of the repository
// interfaces, used for local runs and tests. A single mutex serializes writes
// so the active slot check and insert are atomic.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/booking-api/internal/model"
	"github.com/jwalitptl/booking-api/internal/repository"
)

type slotKey struct {
	clinicID  uuid.UUID
	date      string
	startTime string
}

func keyOf(b *model.Booking) slotKey {
	return slotKey{clinicID: b.ClinicID, date: b.Date, startTime: b.StartTime}
}

// Store holds every record in maps keyed by id
type Store struct {
	mu sync.RWMutex

	users        map[uuid.UUID]*model.User
	usersByEmail map[string]uuid.UUID
	clinics      map[uuid.UUID]*model.Clinic
	services     map[uuid.UUID]*model.Service
	bookings     map[uuid.UUID]*model.Booking
	activeSlots  map[slotKey]uuid.UUID
	outbox       map[uuid.UUID]*model.OutboxEvent

	now func() time.Time
}

func NewStore() *Store {
	return &Store{
		users:        make(map[uuid.UUID]*model.User),
		usersByEmail: make(map[string]uuid.UUID),
		clinics:      make(map[uuid.UUID]*model.Clinic),
		services:     make(map[uuid.UUID]*model.Service),
		bookings:     make(map[uuid.UUID]*model.Booking),
		activeSlots:  make(map[slotKey]uuid.UUID),
		outbox:       make(map[uuid.UUID]*model.OutboxEvent),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) Users() repository.UserRepository       { return &userRepository{s} }
func (s *Store) Clinics() repository.ClinicRepository   { return &clinicRepository{s} }
func (s *Store) Bookings() repository.BookingRepository { return &bookingRepository{s} }
func (s *Store) Outbox() repository.OutboxRepository    { return &outboxRepository{s} }

type userRepository struct{ s *Store }

func (r *userRepository) Create(_ context.Context, user *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	email := strings.ToLower(strings.TrimSpace(user.Email))
	if _, ok := r.s.usersByEmail[email]; ok {
		return repository.ErrDuplicateEmail
	}

	user.ID = uuid.New()
	user.Email = email
	user.CreatedAt = r.s.now()
	user.UpdatedAt = user.CreatedAt

	cp := *user
	r.s.users[user.ID] = &cp
	r.s.usersByEmail[email] = user.ID
	return nil
}

func (r *userRepository) Get(_ context.Context, id uuid.UUID) (*model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	user, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *user
	return &cp, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	r.s.mu.RLock()
	id, ok := r.s.usersByEmail[strings.ToLower(strings.TrimSpace(email))]
	r.s.mu.RUnlock()
	if !ok {
		return nil, repository.ErrNotFound
	}
	return r.Get(ctx, id)
}

type clinicRepository struct{ s *Store }

func (r *clinicRepository) Create(_ context.Context, clinic *model.Clinic) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	clinic.ID = uuid.New()
	clinic.CreatedAt = r.s.now()
	clinic.UpdatedAt = clinic.CreatedAt

	cp := *clinic
	r.s.clinics[clinic.ID] = &cp
	return nil
}

func (r *clinicRepository) Get(_ context.Context, id uuid.UUID) (*model.Clinic, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	clinic, ok := r.s.clinics[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *clinic
	return &cp, nil
}

func (r *clinicRepository) Update(_ context.Context, clinic *model.Clinic) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, ok := r.s.clinics[clinic.ID]
	if !ok {
		return repository.ErrNotFound
	}

	clinic.OwnerID = existing.OwnerID
	clinic.CreatedAt = existing.CreatedAt
	clinic.UpdatedAt = r.s.now()

	cp := *clinic
	r.s.clinics[clinic.ID] = &cp
	return nil
}

func (r *clinicRepository) CreateService(_ context.Context, service *model.Service) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	service.ID = uuid.New()
	service.CreatedAt = r.s.now()
	service.UpdatedAt = service.CreatedAt

	cp := *service
	r.s.services[service.ID] = &cp
	return nil
}

func (r *clinicRepository) GetService(_ context.Context, id uuid.UUID) (*model.Service, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	service, ok := r.s.services[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *service
	return &cp, nil
}

func (r *clinicRepository) UpdateService(_ context.Context, service *model.Service) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, ok := r.s.services[service.ID]
	if !ok {
		return repository.ErrNotFound
	}

	service.ClinicID = existing.ClinicID
	service.CreatedAt = existing.CreatedAt
	service.UpdatedAt = r.s.now()

	cp := *service
	r.s.services[service.ID] = &cp
	return nil
}

func (r *clinicRepository) DeleteService(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.services[id]; !ok {
		return repository.ErrNotFound
	}
	for _, b := range r.s.bookings {
		if b.ServiceID == id {
			return repository.ErrInUse
		}
	}
	delete(r.s.services, id)
	return nil
}

func (r *clinicRepository) ListServices(_ context.Context, clinicID uuid.UUID, activeOnly bool) ([]*model.Service, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	services := []*model.Service{}
	for _, svc := range r.s.services {
		if svc.ClinicID != clinicID || (activeOnly && !svc.IsActive) {
			continue
		}
		cp := *svc
		services = append(services, &cp)
	}
	sort.Slice(services, func(i, j int) bool { return services[i].Name < services[j].Name })
	return services, nil
}

type bookingRepository struct{ s *Store }

func (r *bookingRepository) Create(_ context.Context, booking *model.Booking) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := keyOf(booking)
	if booking.Status.Active() {
		if _, taken := r.s.activeSlots[key]; taken {
			return repository.ErrSlotTaken
		}
	}

	booking.ID = uuid.New()
	booking.CreatedAt = r.s.now()
	booking.UpdatedAt = booking.CreatedAt

	cp := *booking
	r.s.bookings[booking.ID] = &cp
	if booking.Status.Active() {
		r.s.activeSlots[key] = booking.ID
	}
	return nil
}

func (r *bookingRepository) Get(_ context.Context, id uuid.UUID) (*model.Booking, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	booking, ok := r.s.bookings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *booking
	return &cp, nil
}

func (r *bookingRepository) UpdateStatus(_ context.Context, id uuid.UUID, from, to model.BookingStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	booking, ok := r.s.bookings[id]
	if !ok {
		return repository.ErrNotFound
	}
	if booking.Status != from {
		return repository.ErrStatusChanged
	}

	key := keyOf(booking)
	if !from.Active() && to.Active() {
		if _, taken := r.s.activeSlots[key]; taken {
			return repository.ErrSlotTaken
		}
		r.s.activeSlots[key] = id
	}
	if from.Active() && !to.Active() {
		delete(r.s.activeSlots, key)
	}

	booking.Status = to
	booking.UpdatedAt = r.s.now()
	return nil
}

func (r *bookingRepository) ListActiveStartTimes(_ context.Context, clinicID uuid.UUID, date string) ([]string, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	times := []string{}
	for key := range r.s.activeSlots {
		if key.clinicID == clinicID && key.date == date {
			times = append(times, key.startTime)
		}
	}
	sort.Strings(times)
	return times, nil
}

func (r *bookingRepository) List(_ context.Context, filters *model.BookingFilters) ([]*model.BookingDetail, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []*model.BookingDetail{}
	for _, b := range r.s.bookings {
		if !matches(b, filters) {
			continue
		}
		detail := &model.BookingDetail{Booking: *b}
		if c, ok := r.s.clinics[b.ClinicID]; ok {
			detail.ClinicName = c.Name
		}
		if svc, ok := r.s.services[b.ServiceID]; ok {
			detail.ServiceName = svc.Name
		}
		if u, ok := r.s.users[b.CustomerID]; ok {
			detail.CustomerName = u.Name
			detail.CustomerEmail = u.Email
		}
		out = append(out, detail)
	}

	asc := filters != nil && filters.Ascending
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !asc {
			a, b = b, a
		}
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		return a.StartTime < b.StartTime
	})
	return out, nil
}

func (r *bookingRepository) Count(_ context.Context, filters *model.BookingFilters) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	n := 0
	for _, b := range r.s.bookings {
		if matches(b, filters) {
			n++
		}
	}
	return n, nil
}

func matches(b *model.Booking, f *model.BookingFilters) bool {
	if f == nil {
		return true
	}
	if f.ClinicID != uuid.Nil && b.ClinicID != f.ClinicID {
		return false
	}
	if f.CustomerID != uuid.Nil && b.CustomerID != f.CustomerID {
		return false
	}
	if f.Date != "" && b.Date != f.Date {
		return false
	}
	if f.Status != "" && b.Status != f.Status {
		return false
	}
	return true
}

type outboxRepository struct{ s *Store }

func (r *outboxRepository) Create(_ context.Context, event *model.OutboxEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	event.ID = uuid.New()
	event.Status = model.OutboxStatusPending
	event.RetryCount = 0
	event.CreatedAt = r.s.now()
	event.UpdatedAt = event.CreatedAt

	cp := *event
	r.s.outbox[event.ID] = &cp
	return nil
}

func (r *outboxRepository) ClaimPending(_ context.Context, limit int, staleAfter time.Duration) ([]*model.OutboxEvent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := r.s.now()
	due := []*model.OutboxEvent{}
	for _, e := range r.s.outbox {
		pending := e.Status == model.OutboxStatusPending && (e.RetryAt == nil || !e.RetryAt.After(now))
		stale := e.Status == model.OutboxStatusProcessing && e.UpdatedAt.Before(now.Add(-staleAfter))
		if pending || stale {
			due = append(due, e)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].CreatedAt.Before(due[j].CreatedAt) })
	if len(due) > limit {
		due = due[:limit]
	}

	claimed := make([]*model.OutboxEvent, 0, len(due))
	for _, e := range due {
		e.Status = model.OutboxStatusProcessing
		e.UpdatedAt = now
		cp := *e
		claimed = append(claimed, &cp)
	}
	return claimed, nil
}

func (r *outboxRepository) MarkProcessed(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	e, ok := r.s.outbox[id]
	if !ok {
		return repository.ErrNotFound
	}
	now := r.s.now()
	e.Status = model.OutboxStatusProcessed
	e.ProcessedAt = &now
	e.UpdatedAt = now
	e.ErrorMessage = nil
	return nil
}

func (r *outboxRepository) MarkFailed(_ context.Context, id uuid.UUID, errMsg string, retryAt *time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	e, ok := r.s.outbox[id]
	if !ok {
		return repository.ErrNotFound
	}
	e.Status = model.OutboxStatusFailed
	if retryAt != nil {
		e.Status = model.OutboxStatusPending
	}
	e.ErrorMessage = &errMsg
	e.RetryAt = retryAt
	e.RetryCount++
	e.UpdatedAt = r.s.now()
	return nil
}

func (r *outboxRepository) DeleteProcessedBefore(_ context.Context, before time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for id, e := range r.s.outbox {
		if e.Status == model.OutboxStatusProcessed && e.ProcessedAt != nil && e.ProcessedAt.Before(before) {
			delete(r.s.outbox, id)
			n++
		}
	}
	return n, nil
}
