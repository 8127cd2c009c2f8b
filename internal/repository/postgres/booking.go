package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/booking-api/internal/model"
	"github.com/jwalitptl/booking-api/internal/repository"
)

const (
	bookingColumns = `id, clinic_id, service_id, customer_id, date, start_time,
		end_time, status, notes, created_at, updated_at`

	activeSlotIndex = "bookings_active_slot_uidx"
)

type bookingRepository struct {
	BaseRepository
}

func NewBookingRepository(base BaseRepository) repository.BookingRepository {
	return &bookingRepository{base}
}

// slotLockKey identifies the (clinic, date, start time) key for advisory locking
func slotLockKey(clinicID uuid.UUID, date, startTime string) string {
	return clinicID.String() + "|" + date + "|" + startTime
}

// Create inserts the booking if no active booking holds its slot. The check
// and insert run under a transaction scoped advisory lock on the slot key and
// the partial unique index backs it up.
func (r *bookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	booking.ID = uuid.New()
	booking.CreatedAt = time.Now().UTC()
	booking.UpdatedAt = booking.CreatedAt

	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		key := slotLockKey(booking.ClinicID, booking.Date, booking.StartTime)
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, key); err != nil {
			return fmt.Errorf("failed to lock slot: %w", err)
		}

		var taken bool
		err := tx.GetContext(ctx, &taken, `
			SELECT EXISTS (
				SELECT 1 FROM bookings
				WHERE clinic_id = $1 AND date = $2 AND start_time = $3
				AND status <> 'cancelled'
			)`,
			booking.ClinicID, booking.Date, booking.StartTime,
		)
		if err != nil {
			return fmt.Errorf("failed to check slot: %w", err)
		}
		if taken {
			return repository.ErrSlotTaken
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO bookings (`+bookingColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			booking.ID,
			booking.ClinicID,
			booking.ServiceID,
			booking.CustomerID,
			booking.Date,
			booking.StartTime,
			booking.EndTime,
			booking.Status,
			booking.Notes,
			booking.CreatedAt,
			booking.UpdatedAt,
		)
		if err != nil {
			if isUniqueViolation(err, activeSlotIndex) {
				return repository.ErrSlotTaken
			}
			return fmt.Errorf("failed to create booking: %w", err)
		}
		return nil
	})
}

func (r *bookingRepository) Get(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	var booking model.Booking
	if err := r.db.GetContext(ctx, &booking, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return &booking, nil
}

// UpdateStatus moves the booking from one status to another only if it is
// still in from.
func (r *bookingRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.BookingStatus) error {
	query := `
		UPDATE bookings
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4
	`
	result, err := r.db.ExecContext(ctx, query, to, time.Now().UTC(), id, from)
	if err != nil {
		if isUniqueViolation(err, activeSlotIndex) {
			return repository.ErrSlotTaken
		}
		return fmt.Errorf("failed to update booking status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows > 0 {
		return nil
	}

	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM bookings WHERE id = $1)`, id); err != nil {
		return fmt.Errorf("failed to check booking: %w", err)
	}
	if !exists {
		return repository.ErrNotFound
	}
	return repository.ErrStatusChanged
}

func (r *bookingRepository) ListActiveStartTimes(ctx context.Context, clinicID uuid.UUID, date string) ([]string, error) {
	query := `
		SELECT start_time FROM bookings
		WHERE clinic_id = $1 AND date = $2 AND status <> 'cancelled'
		ORDER BY start_time
	`
	times := []string{}
	if err := r.db.SelectContext(ctx, &times, query, clinicID, date); err != nil {
		return nil, fmt.Errorf("failed to list booked start times: %w", err)
	}
	return times, nil
}

func (r *bookingRepository) List(ctx context.Context, filters *model.BookingFilters) ([]*model.BookingDetail, error) {
	where, args := bookingWhere(filters)

	order := "DESC"
	if filters != nil && filters.Ascending {
		order = "ASC"
	}

	query := `
		SELECT
			b.id, b.clinic_id, b.service_id, b.customer_id, b.date, b.start_time,
			b.end_time, b.status, b.notes, b.created_at, b.updated_at,
			COALESCE(c.name, '') AS clinic_name,
			COALESCE(s.name, '') AS service_name,
			COALESCE(u.name, '') AS customer_name,
			COALESCE(u.email, '') AS customer_email
		FROM bookings b
		LEFT JOIN clinics c ON c.id = b.clinic_id
		LEFT JOIN services s ON s.id = b.service_id
		LEFT JOIN users u ON u.id = b.customer_id
	` + where + `
		ORDER BY b.date ` + order + `, b.start_time ` + order

	bookings := []*model.BookingDetail{}
	if err := r.db.SelectContext(ctx, &bookings, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	return bookings, nil
}

func (r *bookingRepository) Count(ctx context.Context, filters *model.BookingFilters) (int, error) {
	where, args := bookingWhere(filters)

	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM bookings b `+where, args...); err != nil {
		return 0, fmt.Errorf("failed to count bookings: %w", err)
	}
	return count, nil
}

func bookingWhere(filters *model.BookingFilters) (string, []interface{}) {
	if filters == nil {
		return "", nil
	}

	var conditions []string
	var args []interface{}
	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conditions = append(conditions, fmt.Sprintf(cond, len(args)))
	}

	if filters.ClinicID != uuid.Nil {
		add("b.clinic_id = $%d", filters.ClinicID)
	}
	if filters.CustomerID != uuid.Nil {
		add("b.customer_id = $%d", filters.CustomerID)
	}
	if filters.Date != "" {
		add("b.date = $%d", filters.Date)
	}
	if filters.Status != "" {
		add("b.status = $%d", filters.Status)
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(conditions, " AND "), args
}
