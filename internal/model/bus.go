package model

import (
	"fmt"
	"time"
)

// Bus statuses.  Only active buses are visible in search and
// eligible for booking.
const (
	BusStatusActive      = "active"
	BusStatusInactive    = "inactive"
	BusStatusMaintenance = "maintenance"
)

// Bus describes a scheduled service between two cities.  The seat
// inventory is static: a bus with TotalSeats = n exposes the seat
// identifiers S1..Sn.  Per-date occupancy is never stored on the bus
// record; it is derived from bookings by the seat ledger.
//
// Monetary values are integer minor units (paise) throughout.
type Bus struct {
	ID            uint64    `json:"id"`
	BusName       string    `json:"bus_name"`
	BusNumber     string    `json:"bus_number"`
	BusType       string    `json:"bus_type"` // AC, Non-AC, Sleeper, Semi-Sleeper, Luxury
	FromCity      string    `json:"from"`
	ToCity        string    `json:"to"`
	DepartureTime string    `json:"departure_time"` // "HH:MM"
	ArrivalTime   string    `json:"arrival_time"`   // "HH:MM"
	Duration      string    `json:"duration"`
	PriceCents    int64     `json:"price_cents"` // per-seat fare
	TotalSeats    int       `json:"total_seats"`
	Amenities     []string  `json:"amenities"`
	OperatingDays []string  `json:"operating_days"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// SeatNumbers returns the full seat identifier range S1..Sn for the bus.
func (b *Bus) SeatNumbers() []string {
	seats := make([]string, 0, b.TotalSeats)
	for i := 1; i <= b.TotalSeats; i++ {
		seats = append(seats, fmt.Sprintf("S%d", i))
	}
	return seats
}

// HasSeat reports whether the given identifier belongs to the bus's
// seat range.  Only the canonical form is accepted ("S7", never "S07"),
// so a seat has exactly one spelling in the booking_seats ledger.
func (b *Bus) HasSeat(seat string) bool {
	if len(seat) < 2 || seat[0] != 'S' {
		return false
	}
	digits := seat[1:]
	if digits[0] == '0' {
		return false
	}
	n := 0
	for _, r := range digits {
		if r < '0' || r > '9' {
			return false
		}
		n = n*10 + int(r-'0')
		if n > b.TotalSeats {
			return false
		}
	}
	return n >= 1
}
