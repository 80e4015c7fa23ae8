package booking

import "errors"

// Validation failures detected before any mutation.
var (
	ErrMissingFields    = errors.New("missing required fields")
	ErrInvalidPassenger = errors.New("passenger age must be between 1 and 120")
	ErrInvalidSeats     = errors.New("between 1 and 5 distinct seats must be selected")
	ErrInvalidDate      = errors.New("journey date must be today or later")
	ErrInvalidPayment   = errors.New("payment method must be cash or online")
	ErrBusUnavailable   = errors.New("bus is not available for booking")
)

// State conflicts: the booking exists but is not in a state that
// permits the requested transition.
var (
	ErrAlreadyCancelled   = errors.New("booking is already cancelled")
	ErrNotConfirmed       = errors.New("only confirmed bookings can be cancelled")
	ErrJourneyNotFuture   = errors.New("bookings can only be cancelled before the journey date")
	ErrAlreadyPaid        = errors.New("payment is already completed for this booking")
	ErrNotAwaitingPayment = errors.New("booking is not awaiting payment")
	ErrNotCashBooking     = errors.New("booking is not a cash booking")
	ErrRefundProcessed    = errors.New("refund has already been processed")
	ErrNotRefundable      = errors.New("booking has no refundable online payment")
	ErrHoldExpired        = errors.New("payment window for this booking has expired")
)

// ErrSignatureMismatch is a definitive payment failure: the gateway
// signature did not verify, the booking is cancelled and its seats
// released.
var ErrSignatureMismatch = errors.New("payment signature verification failed")
