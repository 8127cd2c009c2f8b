package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBookingStatus_CanTransitionTo(t *testing.T) {
	all := []BookingStatus{
		BookingStatusPending,
		BookingStatusConfirmed,
		BookingStatusCompleted,
		BookingStatusCancelled,
	}
	allowed := map[BookingStatus]map[BookingStatus]bool{
		BookingStatusPending: {
			BookingStatusConfirmed: true,
			BookingStatusCompleted: true,
			BookingStatusCancelled: true,
		},
		BookingStatusConfirmed: {
			BookingStatusCompleted: true,
			BookingStatusCancelled: true,
		},
	}

	for _, from := range all {
		for _, to := range all {
			want := allowed[from][to]
			assert.Equal(t, want, from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
}

func TestBookingStatus_Flags(t *testing.T) {
	assert.True(t, BookingStatusCompleted.Terminal())
	assert.True(t, BookingStatusCancelled.Terminal())
	assert.False(t, BookingStatusPending.Terminal())

	assert.True(t, BookingStatusConfirmed.Active())
	assert.True(t, BookingStatusCompleted.Active())
	assert.False(t, BookingStatusCancelled.Active())

	assert.True(t, BookingStatus("pending").Valid())
	assert.False(t, BookingStatus("done").Valid())
	assert.False(t, BookingStatus("").Valid())
}
