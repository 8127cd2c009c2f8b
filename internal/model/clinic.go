package model

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/booking-api/pkg/timeslot"
)

type ClinicType string

const (
	ClinicTypeClinic ClinicType = "clinic"
	ClinicTypeSalon  ClinicType = "salon"
)

var (
	ErrInvalidClinicType   = errors.New("clinic type must be clinic or salon")
	ErrInvalidOpeningHours = errors.New("opening time must be before closing time")
	ErrInvalidSlotDuration = errors.New("slot duration must be positive")
)

type Clinic struct {
	Base
	OwnerID             uuid.UUID  `db:"owner_id" json:"owner_id"`
	Name                string     `db:"name" json:"name"`
	Type                ClinicType `db:"type" json:"type"`
	Address             string     `db:"address" json:"address"`
	City                string     `db:"city" json:"city"`
	Description         *string    `db:"description" json:"description,omitempty"`
	LogoURL             *string    `db:"logo_url" json:"logo_url,omitempty"`
	CoverImageURL       *string    `db:"cover_image_url" json:"cover_image_url,omitempty"`
	OpeningTime         string     `db:"opening_time" json:"opening_time"`
	ClosingTime         string     `db:"closing_time" json:"closing_time"`
	SlotDurationMinutes int        `db:"slot_duration_minutes" json:"slot_duration_minutes"`
}

// PublicClinic is the clinic as shown to anonymous callers, without its owner
type PublicClinic struct {
	*Clinic
	OwnerID *uuid.UUID `json:"owner_id,omitempty"`
}

func (c *Clinic) Public() PublicClinic {
	return PublicClinic{Clinic: c}
}

// OwnedBy reports whether the actor owns the clinic
func (c *Clinic) OwnedBy(actor Actor) bool {
	return actor.ID != uuid.Nil && c.OwnerID == actor.ID
}

// Validate checks the opening hours and slot grid
func (c *Clinic) Validate() error {
	if c.Type != ClinicTypeClinic && c.Type != ClinicTypeSalon {
		return ErrInvalidClinicType
	}
	if c.SlotDurationMinutes <= 0 {
		return ErrInvalidSlotDuration
	}
	open, err := timeslot.ParseClock(c.OpeningTime)
	if err != nil {
		return fmt.Errorf("opening_time: %w", err)
	}
	closing, err := timeslot.ParseClock(c.ClosingTime)
	if err != nil {
		return fmt.Errorf("closing_time: %w", err)
	}
	if open >= closing {
		return ErrInvalidOpeningHours
	}
	return nil
}

type CreateClinicRequest struct {
	Name                string     `json:"name" binding:"required,max=200"`
	Type                ClinicType `json:"type" binding:"required,oneof=clinic salon"`
	Address             string     `json:"address" binding:"required"`
	City                string     `json:"city" binding:"required"`
	Description         *string    `json:"description"`
	LogoURL             *string    `json:"logo_url" binding:"omitempty,url"`
	CoverImageURL       *string    `json:"cover_image_url" binding:"omitempty,url"`
	OpeningTime         string     `json:"opening_time" binding:"required,clock"`
	ClosingTime         string     `json:"closing_time" binding:"required,clock"`
	SlotDurationMinutes int        `json:"slot_duration_minutes" binding:"required,gt=0"`
}

// UpdateClinicRequest lists the only clinic fields a patch may touch.
// Identity and ownership are not part of it.
type UpdateClinicRequest struct {
	Name                *string     `json:"name" binding:"omitempty,max=200"`
	Type                *ClinicType `json:"type" binding:"omitempty,oneof=clinic salon"`
	Address             *string     `json:"address"`
	City                *string     `json:"city"`
	Description         *string     `json:"description"`
	LogoURL             *string     `json:"logo_url" binding:"omitempty,url"`
	CoverImageURL       *string     `json:"cover_image_url" binding:"omitempty,url"`
	OpeningTime         *string     `json:"opening_time" binding:"omitempty,clock"`
	ClosingTime         *string     `json:"closing_time" binding:"omitempty,clock"`
	SlotDurationMinutes *int        `json:"slot_duration_minutes" binding:"omitempty,gt=0"`
}

// Apply copies the set fields onto c
func (r *UpdateClinicRequest) Apply(c *Clinic) {
	if r.Name != nil {
		c.Name = *r.Name
	}
	if r.Type != nil {
		c.Type = *r.Type
	}
	if r.Address != nil {
		c.Address = *r.Address
	}
	if r.City != nil {
		c.City = *r.City
	}
	if r.Description != nil {
		c.Description = r.Description
	}
	if r.LogoURL != nil {
		c.LogoURL = r.LogoURL
	}
	if r.CoverImageURL != nil {
		c.CoverImageURL = r.CoverImageURL
	}
	if r.OpeningTime != nil {
		c.OpeningTime = *r.OpeningTime
	}
	if r.ClosingTime != nil {
		c.ClosingTime = *r.ClosingTime
	}
	if r.SlotDurationMinutes != nil {
		c.SlotDurationMinutes = *r.SlotDurationMinutes
	}
}
