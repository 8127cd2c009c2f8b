package clinic

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/jwalitptl/booking-api/internal/model"
	"github.com/jwalitptl/booking-api/internal/repository"
	apperrors "github.com/jwalitptl/booking-api/pkg/errors"
	"github.com/jwalitptl/booking-api/pkg/logger"
)

const cleanupInterval = 10 * time.Minute

// Service manages clinics and their service catalogs. Clinic reads go
// through a short lived cache that is dropped on every clinic write.
type Service struct {
	repo   repository.ClinicRepository
	cache  *cache.Cache
	logger *logger.Logger
}

func NewService(repo repository.ClinicRepository, cacheTTL time.Duration, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		repo:   repo,
		cache:  cache.New(cacheTTL, cleanupInterval),
		logger: log.With("clinic"),
	}
}

func (s *Service) CreateClinic(ctx context.Context, actor model.Actor, req *model.CreateClinicRequest) (*model.Clinic, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.NewForbidden("only clinic admins can create clinics")
	}

	clinic := &model.Clinic{
		OwnerID:             actor.ID,
		Name:                req.Name,
		Type:                req.Type,
		Address:             req.Address,
		City:                req.City,
		Description:         req.Description,
		LogoURL:             req.LogoURL,
		CoverImageURL:       req.CoverImageURL,
		OpeningTime:         req.OpeningTime,
		ClosingTime:         req.ClosingTime,
		SlotDurationMinutes: req.SlotDurationMinutes,
	}
	if err := clinic.Validate(); err != nil {
		return nil, apperrors.NewValidation(err.Error(), err)
	}

	if err := s.repo.Create(ctx, clinic); err != nil {
		return nil, fmt.Errorf("failed to create clinic: %w", err)
	}

	s.logger.Info("clinic created", "clinic_id", clinic.ID, "owner_id", actor.ID)
	return clinic, nil
}

// GetClinic returns the clinic or a not found error
func (s *Service) GetClinic(ctx context.Context, id uuid.UUID) (*model.Clinic, error) {
	if cached, ok := s.cache.Get(id.String()); ok {
		cp := *cached.(*model.Clinic)
		return &cp, nil
	}

	clinic, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("clinic", nil)
		}
		return nil, fmt.Errorf("failed to get clinic: %w", err)
	}

	cp := *clinic
	s.cache.Set(id.String(), &cp, cache.DefaultExpiration)
	return clinic, nil
}

// UpdateClinic applies the whitelisted patch. Only the owner may update.
func (s *Service) UpdateClinic(ctx context.Context, id uuid.UUID, actor model.Actor, req *model.UpdateClinicRequest) (*model.Clinic, error) {
	clinic, err := s.GetClinic(ctx, id)
	if err != nil {
		return nil, err
	}
	if !clinic.OwnedBy(actor) {
		return nil, apperrors.NewForbidden("not authorized to update this clinic")
	}

	req.Apply(clinic)
	if err := clinic.Validate(); err != nil {
		return nil, apperrors.NewValidation(err.Error(), err)
	}

	if err := s.repo.Update(ctx, clinic); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("clinic", nil)
		}
		return nil, fmt.Errorf("failed to update clinic: %w", err)
	}
	s.cache.Delete(id.String())

	return clinic, nil
}

// ListServices returns the clinic's active services
func (s *Service) ListServices(ctx context.Context, clinicID uuid.UUID) ([]*model.Service, error) {
	if _, err := s.GetClinic(ctx, clinicID); err != nil {
		return nil, err
	}

	services, err := s.repo.ListServices(ctx, clinicID, true)
	if err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}
	return services, nil
}

// GetService returns the service or a not found error
func (s *Service) GetService(ctx context.Context, id uuid.UUID) (*model.Service, error) {
	service, err := s.repo.GetService(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("service", nil)
		}
		return nil, fmt.Errorf("failed to get service: %w", err)
	}
	return service, nil
}

func (s *Service) CreateService(ctx context.Context, actor model.Actor, req *model.CreateServiceRequest) (*model.Service, error) {
	if _, err := s.ownedClinic(ctx, req.ClinicID, actor); err != nil {
		return nil, err
	}

	service := &model.Service{
		ClinicID:        req.ClinicID,
		Name:            req.Name,
		Description:     req.Description,
		Price:           req.Price,
		DurationMinutes: req.DurationMinutes,
		IsActive:        true,
	}
	if req.IsActive != nil {
		service.IsActive = *req.IsActive
	}
	if err := validateService(service); err != nil {
		return nil, err
	}

	if err := s.repo.CreateService(ctx, service); err != nil {
		return nil, fmt.Errorf("failed to create service: %w", err)
	}
	return service, nil
}

func (s *Service) UpdateService(ctx context.Context, id uuid.UUID, actor model.Actor, req *model.UpdateServiceRequest) (*model.Service, error) {
	service, err := s.GetService(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.ownedClinic(ctx, service.ClinicID, actor); err != nil {
		return nil, err
	}

	req.Apply(service)
	if err := validateService(service); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateService(ctx, service); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("service", nil)
		}
		return nil, fmt.Errorf("failed to update service: %w", err)
	}
	return service, nil
}

func (s *Service) DeleteService(ctx context.Context, id uuid.UUID, actor model.Actor) error {
	service, err := s.GetService(ctx, id)
	if err != nil {
		return err
	}
	if _, err := s.ownedClinic(ctx, service.ClinicID, actor); err != nil {
		return err
	}

	if err := s.repo.DeleteService(ctx, id); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return apperrors.NewNotFound("service", nil)
		case errors.Is(err, repository.ErrInUse):
			return apperrors.NewConflict("service has bookings, deactivate it instead", err)
		}
		return fmt.Errorf("failed to delete service: %w", err)
	}
	return nil
}

func (s *Service) ownedClinic(ctx context.Context, clinicID uuid.UUID, actor model.Actor) (*model.Clinic, error) {
	clinic, err := s.GetClinic(ctx, clinicID)
	if err != nil {
		return nil, err
	}
	if !clinic.OwnedBy(actor) {
		return nil, apperrors.NewForbidden("not authorized to manage this clinic")
	}
	return clinic, nil
}

func validateService(service *model.Service) error {
	if service.Name == "" {
		return apperrors.NewValidation("service name is required", nil)
	}
	if service.Price <= 0 {
		return apperrors.NewValidation("price must be positive", nil)
	}
	if service.DurationMinutes <= 0 {
		return apperrors.NewValidation("duration_minutes must be positive", nil)
	}
	return nil
}
