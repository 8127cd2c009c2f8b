package postgres

import (
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/booking-api/internal/repository"
)

// Repositories groups the Postgres backed stores
type Repositories struct {
	Users    repository.UserRepository
	Clinics  repository.ClinicRepository
	Bookings repository.BookingRepository
	Outbox   repository.OutboxRepository
}

func NewRepositories(db *sqlx.DB) *Repositories {
	base := NewBaseRepository(db)
	return &Repositories{
		Users:    NewUserRepository(base),
		Clinics:  NewClinicRepository(base),
		Bookings: NewBookingRepository(base),
		Outbox:   NewOutboxRepository(base),
	}
}
