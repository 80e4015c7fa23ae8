package queue

import "time"

// Event types published to the booking events queue.
const (
	EventBookingConfirmed = "booking.confirmed"
	EventBookingCancelled = "booking.cancelled"
	EventPaymentFailed    = "payment.failed"
	EventRefundProcessed  = "refund.processed"
)

// Event is the message published whenever a booking changes state.
// It carries everything the notification consumer needs so the
// consumer never queries the database.
type Event struct {
	Type        string    `json:"type"`
	BookingRef  string    `json:"booking_ref"`
	UserName    string    `json:"user_name"`
	UserEmail   string    `json:"user_email"`
	BusName     string    `json:"bus_name"`
	FromCity    string    `json:"from_city"`
	ToCity      string    `json:"to_city"`
	JourneyDate string    `json:"journey_date"`
	Seats       []string  `json:"seats"`
	AmountCents int64     `json:"amount_cents"`
	RefundCents int64     `json:"refund_cents,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}
