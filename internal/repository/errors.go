// Package repository defines sentinel error values reused across the
// repositories. Handlers and services use errors.Is against these to
// translate storage outcomes into stable machine-readable error kinds,
// e.g. ErrSeatTaken becomes a CONFLICT response enumerating seats while
// ErrBusNotFound becomes NOT_FOUND.
package repository

import "errors"

// ErrBusNotFound is returned when no bus exists for the given id.
var ErrBusNotFound = errors.New("bus not found")

// ErrBookingNotFound is returned when no booking matches the given
// reference or id.
var ErrBookingNotFound = errors.New("booking not found")

// ErrOfferNotFound is returned when no offer exists for the given code
// or id.
var ErrOfferNotFound = errors.New("offer not found")

// ErrUserNotFound is returned when no user matches the given email or id.
var ErrUserNotFound = errors.New("user not found")

// ErrEmailTaken is returned when registering with an email that is
// already in use.
var ErrEmailTaken = errors.New("email already registered")

// ErrBusNumberTaken is returned when creating a bus whose registration
// number already exists.
var ErrBusNumberTaken = errors.New("bus number already exists")

// ErrOfferCodeTaken is returned when creating an offer whose code
// already exists.
var ErrOfferCodeTaken = errors.New("offer code already exists")

// ErrDuplicateReview is returned when a user reviews the same bus twice.
var ErrDuplicateReview = errors.New("review already exists for this bus")

// ErrSeatTaken is returned when inserting booking seat rows collides
// with the unique (bus, journey_date, seat) key. It signals that
// another booking won the race after the availability check.
var ErrSeatTaken = errors.New("seat already booked")

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own. Handlers translate this into HTTP 403.
var ErrForbidden = errors.New("forbidden")
