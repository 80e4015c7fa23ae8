// Package ledger derives per-date seat occupancy for a bus from its
// bookings.  No seat state is ever stored on the bus itself: a seat is
// occupied on a date exactly when a confirmed booking holds it, or a
// pending-payment booking created inside the hold window holds it.
// Cancelling a booking therefore frees its seats with no separate
// release step.
package ledger

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/iliyamo/bus-ticket-reservation/internal/model"
)

// SeatSource yields the occupied seat numbers for a bus and date.
// Implemented by the booking repository.
type SeatSource interface {
	OccupiedSeats(ctx context.Context, busID uint64, date time.Time, holdCutoff time.Time) ([]string, error)
}

// ConflictError reports seats that are already occupied for the
// requested date.
type ConflictError struct {
	Seats []string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("seats already booked: %s", strings.Join(e.Seats, ", "))
}

// InvalidSeatError reports requested seat identifiers that do not
// exist on the bus.
type InvalidSeatError struct {
	Seats []string
}

func (e *InvalidSeatError) Error() string {
	return fmt.Sprintf("invalid seats: %s", strings.Join(e.Seats, ", "))
}

// Ledger answers availability questions for (bus, date) pairs.
type Ledger struct {
	source  SeatSource
	holdTTL time.Duration
}

// New returns a Ledger reading occupancy from source.  Pending-payment
// bookings older than holdTTL no longer count as occupying.
func New(source SeatSource, holdTTL time.Duration) *Ledger {
	return &Ledger{source: source, holdTTL: holdTTL}
}

// Availability is the seat map of one bus for one date.
type Availability struct {
	BusID          uint64   `json:"bus_id"`
	JourneyDate    string   `json:"journey_date"`
	TotalSeats     int      `json:"total_seats"`
	AvailableSeats []string `json:"available_seats"`
	BookedSeats    []string `json:"booked_seats"`
}

// Availability computes the full seat map of the bus for a date.  Both
// lists come back sorted in the bus's canonical seat order.
func (l *Ledger) Availability(ctx context.Context, bus *model.Bus, date time.Time, now time.Time) (*Availability, error) {
	occupied, err := l.occupiedSet(ctx, bus.ID, date, now)
	if err != nil {
		return nil, err
	}
	av := &Availability{
		BusID:          bus.ID,
		JourneyDate:    date.UTC().Format("2006-01-02"),
		TotalSeats:     bus.TotalSeats,
		AvailableSeats: make([]string, 0, bus.TotalSeats),
		BookedSeats:    make([]string, 0, len(occupied)),
	}
	for _, seat := range bus.SeatNumbers() {
		if occupied[seat] {
			av.BookedSeats = append(av.BookedSeats, seat)
		} else {
			av.AvailableSeats = append(av.AvailableSeats, seat)
		}
	}
	return av, nil
}

// CheckAvailability verifies that every requested seat exists on the
// bus and is free on the date.  Unknown seats produce an
// InvalidSeatError, occupied seats a ConflictError; each error lists
// every offending seat so the caller can surface them all at once.
func (l *Ledger) CheckAvailability(ctx context.Context, bus *model.Bus, date time.Time, seats []string, now time.Time) error {
	var invalid []string
	for _, seat := range seats {
		if !bus.HasSeat(seat) {
			invalid = append(invalid, seat)
		}
	}
	if len(invalid) > 0 {
		sort.Strings(invalid)
		return &InvalidSeatError{Seats: invalid}
	}

	occupied, err := l.occupiedSet(ctx, bus.ID, date, now)
	if err != nil {
		return err
	}
	var taken []string
	for _, seat := range seats {
		if occupied[seat] {
			taken = append(taken, seat)
		}
	}
	if len(taken) > 0 {
		sort.Strings(taken)
		return &ConflictError{Seats: taken}
	}
	return nil
}

// HoldCutoff returns the creation-time threshold below which
// pending-payment bookings stop occupying seats, relative to now.
func (l *Ledger) HoldCutoff(now time.Time) time.Time {
	return now.Add(-l.holdTTL).UTC()
}

func (l *Ledger) occupiedSet(ctx context.Context, busID uint64, date time.Time, now time.Time) (map[string]bool, error) {
	seats, err := l.source.OccupiedSeats(ctx, busID, date, l.HoldCutoff(now))
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(seats))
	for _, s := range seats {
		set[s] = true
	}
	return set, nil
}
