package model

import (
	"github.com/google/uuid"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingStatusPending:   {BookingStatusConfirmed, BookingStatusCompleted, BookingStatusCancelled},
	BookingStatusConfirmed: {BookingStatusCompleted, BookingStatusCancelled},
}

// Valid reports whether s is one of the four known statuses
func (s BookingStatus) Valid() bool {
	switch s {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusCompleted, BookingStatusCancelled:
		return true
	}
	return false
}

// Active reports whether the booking still holds its slot
func (s BookingStatus) Active() bool {
	return s != BookingStatusCancelled
}

// Terminal reports whether no further transition is allowed
func (s BookingStatus) Terminal() bool {
	return len(bookingTransitions[s]) == 0
}

// CanTransitionTo reports whether s -> next is a legal lifecycle step
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	for _, allowed := range bookingTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Booking is a reservation of one start time at a clinic.
// Date is a YYYY-MM-DD calendar date, StartTime and EndTime are HH:MM.
type Booking struct {
	Base
	ClinicID   uuid.UUID     `db:"clinic_id" json:"clinic_id"`
	ServiceID  uuid.UUID     `db:"service_id" json:"service_id"`
	CustomerID uuid.UUID     `db:"customer_id" json:"customer_id"`
	Date       string        `db:"date" json:"date"`
	StartTime  string        `db:"start_time" json:"start_time"`
	EndTime    string        `db:"end_time" json:"end_time"`
	Status     BookingStatus `db:"status" json:"status"`
	Notes      *string       `db:"notes" json:"notes,omitempty"`
}

// BookingDetail is a booking joined with the names callers display
type BookingDetail struct {
	Booking
	ClinicName    string `db:"clinic_name" json:"clinic_name,omitempty"`
	ServiceName   string `db:"service_name" json:"service_name,omitempty"`
	CustomerName  string `db:"customer_name" json:"customer_name,omitempty"`
	CustomerEmail string `db:"customer_email" json:"customer_email,omitempty"`
}

type CreateBookingRequest struct {
	ClinicID  uuid.UUID `json:"clinic_id"`
	ServiceID uuid.UUID `json:"service_id"`
	Date      string    `json:"date" binding:"omitempty,calendar_date"`
	StartTime string    `json:"start_time" binding:"omitempty,clock"`
	EndTime   string    `json:"end_time" binding:"omitempty,clock"`
	Notes     *string   `json:"notes" binding:"omitempty,max=1000"`
}

type UpdateBookingStatusRequest struct {
	Status BookingStatus `json:"status" binding:"required"`
}

type AvailabilityQuery struct {
	ClinicID string `form:"clinic_id" binding:"required,uuid"`
	Date     string `form:"date" binding:"required,calendar_date"`
}

type Availability struct {
	Date  string   `json:"date"`
	Slots []string `json:"slots"`
}

// BookingFilters narrows booking queries. Zero values are ignored.
type BookingFilters struct {
	ClinicID   uuid.UUID
	CustomerID uuid.UUID
	Date       string
	Status     BookingStatus
	Ascending  bool
}

type ClinicStats struct {
	TotalBookings     int `json:"total_bookings"`
	TodayBookings     int `json:"today_bookings"`
	CompletedBookings int `json:"completed_bookings"`
}
