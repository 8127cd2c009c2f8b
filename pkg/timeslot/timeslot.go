// Package timeslot turns a clinic's opening hours into a grid of bookable
// start times and does the wall-clock arithmetic bookings need.
//
// Clock values are "HH:MM" strings on a single calendar day. "24:00" is
// accepted as the end of the day so a window or booking can close at midnight.
package timeslot

import (
	"errors"
	"fmt"
	"time"
)

const (
	// MinutesPerDay is the value of "24:00".
	MinutesPerDay = 24 * 60

	// DateLayout is the calendar date format used for bookings.
	DateLayout = "2006-01-02"
)

var (
	ErrInvalidClock    = errors.New("invalid clock value, expected HH:MM")
	ErrInvalidDate     = errors.New("invalid date, expected YYYY-MM-DD")
	ErrInvalidDuration = errors.New("duration must be positive")
	ErrPastMidnight    = errors.New("end time runs past midnight")
)

// ParseClock returns the minutes since midnight for an "HH:MM" value.
func ParseClock(s string) (int, error) {
	if len(s) != 5 || s[2] != ':' {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	h, okH := twoDigits(s[0], s[1])
	m, okM := twoDigits(s[3], s[4])
	if !okH || !okM {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	if h == 24 && m == 0 {
		return MinutesPerDay, nil
	}
	if h > 23 || m > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	return h*60 + m, nil
}

func twoDigits(a, b byte) (int, bool) {
	if a < '0' || a > '9' || b < '0' || b > '9' {
		return 0, false
	}
	return int(a-'0')*10 + int(b-'0'), true
}

// FormatClock renders minutes since midnight as zero-padded "HH:MM".
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// Generate returns every start time t in [opening, closing) such that a slot
// of slotMinutes starting at t ends no later than closing. The result is in
// ascending order and empty when the window is shorter than one slot.
func Generate(opening, closing string, slotMinutes int) ([]string, error) {
	if slotMinutes <= 0 {
		return nil, ErrInvalidDuration
	}
	start, err := ParseClock(opening)
	if err != nil {
		return nil, fmt.Errorf("opening time: %w", err)
	}
	end, err := ParseClock(closing)
	if err != nil {
		return nil, fmt.Errorf("closing time: %w", err)
	}

	slots := make([]string, 0, max(0, (end-start)/slotMinutes))
	for t := start; t+slotMinutes <= end; t += slotMinutes {
		slots = append(slots, FormatClock(t))
	}
	return slots, nil
}

// EndTime adds durationMinutes to start. Results later than "24:00" are
// rejected with ErrPastMidnight.
func EndTime(start string, durationMinutes int) (string, error) {
	if durationMinutes <= 0 {
		return "", ErrInvalidDuration
	}
	s, err := ParseClock(start)
	if err != nil {
		return "", err
	}
	end := s + durationMinutes
	if end > MinutesPerDay {
		return "", fmt.Errorf("%w: %s + %dm", ErrPastMidnight, start, durationMinutes)
	}
	return FormatClock(end), nil
}

// ValidateDate checks that s is a real calendar date in YYYY-MM-DD form.
func ValidateDate(s string) error {
	if _, err := time.Parse(DateLayout, s); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return nil
}

// Date returns the UTC calendar date of t.
func Date(t time.Time) string {
	return t.UTC().Format(DateLayout)
}
