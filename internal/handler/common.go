// Package handler implements the HTTP endpoints.  Every error response
// carries a stable machine-readable kind next to the human-readable
// message so clients can branch without parsing text.
package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bus-ticket-reservation/internal/booking"
	"github.com/iliyamo/bus-ticket-reservation/internal/ledger"
	"github.com/iliyamo/bus-ticket-reservation/internal/offer"
	"github.com/iliyamo/bus-ticket-reservation/internal/payment"
	"github.com/iliyamo/bus-ticket-reservation/internal/repository"
	"github.com/iliyamo/bus-ticket-reservation/internal/ticket"
)

// Error kinds carried on every error response.
const (
	KindValidation    = "VALIDATION"
	KindNotFound      = "NOT_FOUND"
	KindConflict      = "CONFLICT"
	KindForbidden     = "FORBIDDEN"
	KindStateConflict = "STATE_CONFLICT"
	KindGateway       = "GATEWAY_ERROR"
	KindInternal      = "INTERNAL"
)

const dbTimeout = 5 * time.Second

// reqCtx derives a bounded context for storage and gateway calls.
func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), dbTimeout)
}

func fail(c echo.Context, status int, kind, message string) error {
	return c.JSON(status, echo.Map{"message": message, "kind": kind})
}

// writeErr translates a domain error into the HTTP error shape.
// Unknown errors are logged and surfaced as a generic INTERNAL
// response without leaking details.
func writeErr(c echo.Context, err error) error {
	var conflict *ledger.ConflictError
	if errors.As(err, &conflict) {
		return c.JSON(http.StatusConflict, echo.Map{
			"message":           conflict.Error(),
			"kind":              KindConflict,
			"conflicting_seats": conflict.Seats,
		})
	}
	var invalid *ledger.InvalidSeatError
	if errors.As(err, &invalid) {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"message":       invalid.Error(),
			"kind":          KindValidation,
			"invalid_seats": invalid.Seats,
		})
	}
	var rejection *offer.RejectionError
	if errors.As(err, &rejection) {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"message": rejection.Reason,
			"kind":    KindValidation,
			"code":    rejection.Code,
		})
	}
	var gateway *payment.GatewayError
	if errors.As(err, &gateway) {
		log.Printf("handler: gateway failure: %v", err)
		return fail(c, http.StatusBadGateway, KindGateway, "payment gateway unavailable, please retry")
	}

	switch {
	case errors.Is(err, repository.ErrBusNotFound),
		errors.Is(err, repository.ErrBookingNotFound),
		errors.Is(err, repository.ErrOfferNotFound),
		errors.Is(err, repository.ErrUserNotFound):
		return fail(c, http.StatusNotFound, KindNotFound, err.Error())

	case errors.Is(err, repository.ErrEmailTaken),
		errors.Is(err, repository.ErrBusNumberTaken),
		errors.Is(err, repository.ErrOfferCodeTaken),
		errors.Is(err, repository.ErrDuplicateReview),
		errors.Is(err, repository.ErrSeatTaken):
		return fail(c, http.StatusConflict, KindConflict, err.Error())

	case errors.Is(err, repository.ErrForbidden):
		return fail(c, http.StatusForbidden, KindForbidden, "you do not have access to this resource")

	case errors.Is(err, booking.ErrMissingFields),
		errors.Is(err, booking.ErrInvalidPassenger),
		errors.Is(err, booking.ErrInvalidSeats),
		errors.Is(err, booking.ErrInvalidDate),
		errors.Is(err, booking.ErrInvalidPayment),
		errors.Is(err, booking.ErrBusUnavailable):
		return fail(c, http.StatusBadRequest, KindValidation, err.Error())

	case errors.Is(err, booking.ErrAlreadyCancelled),
		errors.Is(err, booking.ErrNotConfirmed),
		errors.Is(err, booking.ErrJourneyNotFuture),
		errors.Is(err, booking.ErrAlreadyPaid),
		errors.Is(err, booking.ErrNotAwaitingPayment),
		errors.Is(err, booking.ErrNotCashBooking),
		errors.Is(err, booking.ErrRefundProcessed),
		errors.Is(err, booking.ErrNotRefundable),
		errors.Is(err, booking.ErrHoldExpired),
		errors.Is(err, ticket.ErrNotConfirmed):
		return fail(c, http.StatusConflict, KindStateConflict, err.Error())

	case errors.Is(err, booking.ErrSignatureMismatch):
		return fail(c, http.StatusBadRequest, KindGateway, err.Error())
	}

	log.Printf("handler: internal error: %v", err)
	return fail(c, http.StatusInternalServerError, KindInternal, "something went wrong")
}
