package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/booking-api/internal/model"
	"github.com/jwalitptl/booking-api/internal/repository"
)

const (
	clinicColumns = `id, owner_id, name, type, address, city, description, logo_url,
		cover_image_url, opening_time, closing_time, slot_duration_minutes,
		created_at, updated_at`

	serviceColumns = `id, clinic_id, name, description, price, duration_minutes,
		is_active, created_at, updated_at`
)

type clinicRepository struct {
	BaseRepository
}

func NewClinicRepository(base BaseRepository) repository.ClinicRepository {
	return &clinicRepository{base}
}

func (r *clinicRepository) Create(ctx context.Context, clinic *model.Clinic) error {
	query := `
		INSERT INTO clinics (` + clinicColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	clinic.ID = uuid.New()
	clinic.CreatedAt = time.Now().UTC()
	clinic.UpdatedAt = clinic.CreatedAt

	_, err := r.db.ExecContext(ctx, query,
		clinic.ID,
		clinic.OwnerID,
		clinic.Name,
		clinic.Type,
		clinic.Address,
		clinic.City,
		clinic.Description,
		clinic.LogoURL,
		clinic.CoverImageURL,
		clinic.OpeningTime,
		clinic.ClosingTime,
		clinic.SlotDurationMinutes,
		clinic.CreatedAt,
		clinic.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create clinic: %w", err)
	}
	return nil
}

func (r *clinicRepository) Get(ctx context.Context, id uuid.UUID) (*model.Clinic, error) {
	query := `SELECT ` + clinicColumns + ` FROM clinics WHERE id = $1`

	var clinic model.Clinic
	if err := r.db.GetContext(ctx, &clinic, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get clinic: %w", err)
	}
	return &clinic, nil
}

func (r *clinicRepository) Update(ctx context.Context, clinic *model.Clinic) error {
	query := `
		UPDATE clinics
		SET name = $1, type = $2, address = $3, city = $4, description = $5,
			logo_url = $6, cover_image_url = $7, opening_time = $8,
			closing_time = $9, slot_duration_minutes = $10, updated_at = $11
		WHERE id = $12
	`
	clinic.UpdatedAt = time.Now().UTC()

	result, err := r.db.ExecContext(ctx, query,
		clinic.Name,
		clinic.Type,
		clinic.Address,
		clinic.City,
		clinic.Description,
		clinic.LogoURL,
		clinic.CoverImageURL,
		clinic.OpeningTime,
		clinic.ClosingTime,
		clinic.SlotDurationMinutes,
		clinic.UpdatedAt,
		clinic.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update clinic: %w", err)
	}
	return expectOneRow(result, "clinic")
}

func (r *clinicRepository) CreateService(ctx context.Context, service *model.Service) error {
	query := `
		INSERT INTO services (` + serviceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	service.ID = uuid.New()
	service.CreatedAt = time.Now().UTC()
	service.UpdatedAt = service.CreatedAt

	_, err := r.db.ExecContext(ctx, query,
		service.ID,
		service.ClinicID,
		service.Name,
		service.Description,
		service.Price,
		service.DurationMinutes,
		service.IsActive,
		service.CreatedAt,
		service.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}
	return nil
}

func (r *clinicRepository) GetService(ctx context.Context, id uuid.UUID) (*model.Service, error) {
	query := `SELECT ` + serviceColumns + ` FROM services WHERE id = $1`

	var service model.Service
	if err := r.db.GetContext(ctx, &service, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get service: %w", err)
	}
	return &service, nil
}

func (r *clinicRepository) UpdateService(ctx context.Context, service *model.Service) error {
	query := `
		UPDATE services
		SET name = $1, description = $2, price = $3, duration_minutes = $4,
			is_active = $5, updated_at = $6
		WHERE id = $7
	`
	service.UpdatedAt = time.Now().UTC()

	result, err := r.db.ExecContext(ctx, query,
		service.Name,
		service.Description,
		service.Price,
		service.DurationMinutes,
		service.IsActive,
		service.UpdatedAt,
		service.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update service: %w", err)
	}
	return expectOneRow(result, "service")
}

func (r *clinicRepository) DeleteService(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM services WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return repository.ErrInUse
		}
		return fmt.Errorf("failed to delete service: %w", err)
	}
	return expectOneRow(result, "service")
}

func (r *clinicRepository) ListServices(ctx context.Context, clinicID uuid.UUID, activeOnly bool) ([]*model.Service, error) {
	query := `
		SELECT ` + serviceColumns + `
		FROM services
		WHERE clinic_id = $1 AND ($2 = false OR is_active = true)
		ORDER BY name ASC
	`
	services := []*model.Service{}
	if err := r.db.SelectContext(ctx, &services, query, clinicID, activeOnly); err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}
	return services, nil
}

func expectOneRow(result sql.Result, entity string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%s: %w", entity, repository.ErrNotFound)
	}
	return nil
}
