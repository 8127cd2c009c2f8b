package model

import "github.com/google/uuid"

// Service is a bookable offering in a clinic's catalog
type Service struct {
	Base
	ClinicID        uuid.UUID `db:"clinic_id" json:"clinic_id"`
	Name            string    `db:"name" json:"name"`
	Description     *string   `db:"description" json:"description,omitempty"`
	Price           float64   `db:"price" json:"price"`
	DurationMinutes int       `db:"duration_minutes" json:"duration_minutes"`
	IsActive        bool      `db:"is_active" json:"is_active"`
}

type CreateServiceRequest struct {
	ClinicID        uuid.UUID `json:"clinic_id" binding:"required"`
	Name            string    `json:"name" binding:"required,max=200"`
	Description     *string   `json:"description"`
	Price           float64   `json:"price" binding:"required,gt=0"`
	DurationMinutes int       `json:"duration_minutes" binding:"required,gt=0"`
	IsActive        *bool     `json:"is_active"`
}

type UpdateServiceRequest struct {
	Name            *string  `json:"name" binding:"omitempty,max=200"`
	Description     *string  `json:"description"`
	Price           *float64 `json:"price" binding:"omitempty,gt=0"`
	DurationMinutes *int     `json:"duration_minutes" binding:"omitempty,gt=0"`
	IsActive        *bool    `json:"is_active"`
}

// Apply copies the set fields onto s
func (r *UpdateServiceRequest) Apply(s *Service) {
	if r.Name != nil {
		s.Name = *r.Name
	}
	if r.Description != nil {
		s.Description = r.Description
	}
	if r.Price != nil {
		s.Price = *r.Price
	}
	if r.DurationMinutes != nil {
		s.DurationMinutes = *r.DurationMinutes
	}
	if r.IsActive != nil {
		s.IsActive = *r.IsActive
	}
}
