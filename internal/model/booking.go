package model

import "time"

// Booking statuses.  COMPLETED is reserved for post-journey processing
// and is never driven by the booking core.
const (
	BookingStatusPendingPayment = "PENDING_PAYMENT"
	BookingStatusConfirmed      = "CONFIRMED"
	BookingStatusCancelled      = "CANCELLED"
	BookingStatusCompleted      = "COMPLETED"
)

// Payment statuses.  Transitions are forward-only:
// pending -> completed | failed, completed -> refunded.
const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	PaymentStatusFailed    = "failed"
	PaymentStatusRefunded  = "refunded"
)

// Payment methods accepted when creating a booking.
const (
	PaymentMethodCash   = "cash"
	PaymentMethodOnline = "online"
)

// Refund statuses tracked on the cancellation record.
const (
	RefundStatusPending   = "pending"
	RefundStatusProcessed = "processed"
)

// PassengerDetails carries the passenger information captured at
// booking time.  Age must be within 1..120.
type PassengerDetails struct {
	Name   string `json:"name"`
	Age    int    `json:"age"`
	Gender string `json:"gender"` // Male, Female, Other
	Phone  string `json:"phone"`
}

// OfferApplied records the discount attached to a booking when an
// offer code was accepted at creation time.
type OfferApplied struct {
	Code                string `json:"code"`
	DiscountCents       int64  `json:"discount_cents"`
	OriginalAmountCents int64  `json:"original_amount_cents"`
}

// PaymentDetails holds the gateway correlation for an online payment.
type PaymentDetails struct {
	OrderID   string `json:"order_id,omitempty"`
	PaymentID string `json:"payment_id,omitempty"`
	Signature string `json:"signature,omitempty"`
}

// Cancellation is populated exactly once, when a confirmed booking is
// cancelled.  RefundAmountCents is 80% of the total amount, computed
// at cancellation time and immutable thereafter.
type Cancellation struct {
	Cancelled         bool       `json:"cancelled"`
	CancelledAt       *time.Time `json:"cancelled_at,omitempty"`
	Reason            string     `json:"reason,omitempty"`
	RefundAmountCents int64      `json:"refund_amount_cents"`
	RefundStatus      string     `json:"refund_status,omitempty"`
	RefundID          string     `json:"refund_id,omitempty"`
	RefundProcessedAt *time.Time `json:"refund_processed_at,omitempty"`
}

// Booking is a reservation of 1..5 seats on one bus for one calendar
// date.  Seats is the display/history copy; the authoritative per-date
// occupancy lives in the booking_seats ledger rows, which exist only
// while the booking occupies its seats.
type Booking struct {
	ID               uint64           `json:"id"`
	BookingRef       string           `json:"booking_ref"` // e.g. BKGM3F4A1BQX2Z
	UserID           uint64           `json:"user_id"`
	BusID            uint64           `json:"bus_id"`
	Passenger        PassengerDetails `json:"passenger_details"`
	Seats            []string         `json:"seats"`
	JourneyDate      time.Time        `json:"journey_date"` // day precision, UTC
	BoardingPoint    string           `json:"boarding_point"`
	DroppingPoint    string           `json:"dropping_point"`
	TotalAmountCents int64            `json:"total_amount_cents"`
	Offer            *OfferApplied    `json:"offer_applied,omitempty"`
	PaymentMethod    string           `json:"payment_method"`
	PaymentStatus    string           `json:"payment_status"`
	Status           string           `json:"status"`
	Payment          PaymentDetails   `json:"payment_details"`
	Cancellation     Cancellation     `json:"cancellation"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`

	// Resolved for display when listing; not always populated.
	Bus  *Bus  `json:"bus,omitempty"`
	User *User `json:"user,omitempty"`
}

// BookingStats aggregates booking counters for the admin dashboard.
// Revenue counts confirmed bookings only; refunds sum the cancellation
// refund amounts of cancelled bookings.
type BookingStats struct {
	TotalBookings     int64 `json:"total_bookings"`
	ConfirmedBookings int64 `json:"confirmed_bookings"`
	CancelledBookings int64 `json:"cancelled_bookings"`
	TotalRevenueCents int64 `json:"total_revenue_cents"`
	TotalRefundsCents int64 `json:"total_refunds_cents"`
}
