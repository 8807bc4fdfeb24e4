// Package availability decides whether a restaurant's table pool can take
// one more reservation for a requested window. Everything here is pure:
// callers pass in the clock and the existing bookings.
package availability

import (
	"time"

	"table-booking-backend/internal/rejection"
)

// Interval is a half-open time range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether two half-open intervals share an instant.
// Intervals that only touch at an endpoint do not overlap.
func (i Interval) Overlaps(o Interval) bool {
	return i.Start.Before(o.End) && o.Start.Before(i.End)
}

// Contains reports whether t lies inside the interval.
func (i Interval) Contains(t time.Time) bool {
	return !t.Before(i.Start) && t.Before(i.End)
}

// Request is a candidate reservation.
type Request struct {
	Window     Interval
	GuestCount int
}

// Policy bounds the party size of a single reservation.
type Policy struct {
	MinGuests int
	MaxGuests int
}

// DefaultPolicy allows parties of 1 to 20 guests.
var DefaultPolicy = Policy{MinGuests: 1, MaxGuests: 20}

// Engine evaluates candidates under a Policy.
type Engine struct {
	policy Policy
}

// NewEngine creates an Engine; a zero policy falls back to DefaultPolicy.
func NewEngine(p Policy) *Engine {
	if p.MinGuests <= 0 {
		p.MinGuests = DefaultPolicy.MinGuests
	}
	if p.MaxGuests < p.MinGuests {
		p.MaxGuests = DefaultPolicy.MaxGuests
	}
	return &Engine{policy: p}
}

// Validate checks the parts of a request that do not depend on existing
// bookings: party size, window ordering and that the window is not in the past.
func (e *Engine) Validate(req Request, now time.Time) error {
	if req.GuestCount < e.policy.MinGuests || req.GuestCount > e.policy.MaxGuests {
		return rejection.New(rejection.InvalidWindow,
			"guest count %d outside [%d,%d]", req.GuestCount, e.policy.MinGuests, e.policy.MaxGuests)
	}
	if req.Window.Start.IsZero() || req.Window.End.IsZero() {
		return rejection.New(rejection.InvalidWindow, "window is incomplete")
	}
	if !req.Window.Start.Before(req.Window.End) {
		return rejection.New(rejection.InvalidWindow, "start must be before end")
	}
	if req.Window.Start.Before(now) {
		return rejection.New(rejection.InvalidWindow, "window starts in the past")
	}
	return nil
}

// Check validates req and then counts existing bookings overlapping its
// window. One reservation holds one table regardless of party size, so the
// candidate is accepted while the overlap count stays below tableCount.
func (e *Engine) Check(tableCount int, existing []Interval, req Request, now time.Time) error {
	if err := e.Validate(req, now); err != nil {
		return err
	}
	if n := Overlapping(existing, req.Window); n >= tableCount {
		return rejection.New(rejection.CapacityExceeded,
			"%d of %d tables already booked for this window", n, tableCount)
	}
	return nil
}

// Overlapping counts the intervals in existing that overlap window.
func Overlapping(existing []Interval, window Interval) int {
	n := 0
	for _, iv := range existing {
		if iv.Overlaps(window) {
			n++
		}
	}
	return n
}

// Remaining is the number of further reservations the window could take.
func Remaining(tableCount int, existing []Interval, window Interval) int {
	if r := tableCount - Overlapping(existing, window); r > 0 {
		return r
	}
	return 0
}

// PeakOccupancy is the largest number of intervals covering a single instant.
func PeakOccupancy(intervals []Interval) int {
	peak := 0
	for _, candidate := range intervals {
		// The maximum is always attained at some interval's start.
		n := 0
		for _, iv := range intervals {
			if iv.Contains(candidate.Start) {
				n++
			}
		}
		if n > peak {
			peak = n
		}
	}
	return peak
}
