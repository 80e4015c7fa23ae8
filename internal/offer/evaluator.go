// Package offer evaluates discount codes against a booking context.
// The evaluator is pure: all facts it needs, including the derived
// usage counts, come in through the Input, so the result depends only
// on its arguments and the supplied clock instant.
package offer

import (
	"fmt"
	"time"

	"github.com/iliyamo/bus-ticket-reservation/internal/model"
)

// Rejection codes carried on a RejectionError.  These are advisory:
// an offer rejection never aborts the booking, the caller decides
// whether to proceed at full price.
const (
	CodeNotFound        = "OFFER_NOT_FOUND"
	CodeInvalid         = "OFFER_INVALID"
	CodeLimitReached    = "OFFER_LIMIT_REACHED"
	CodeRouteMismatch   = "OFFER_ROUTE_MISMATCH"
	CodeBusMismatch     = "OFFER_BUS_MISMATCH"
	CodeMinAmountNotMet = "OFFER_MIN_AMOUNT_NOT_MET"
)

// RejectionError explains why an offer code did not apply.
type RejectionError struct {
	Code   string
	Reason string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Reason)
}

func reject(code, reason string) *RejectionError {
	return &RejectionError{Code: code, Reason: reason}
}

// Input carries the booking context an evaluation runs against.
// AmountCents is the pre-discount total in minor units.  GlobalUsed
// and UserUsed are the confirmed-booking counts carrying this code,
// recomputed by the caller from the bookings table.
type Input struct {
	Offer       *model.Offer // nil when the code resolved to nothing
	AmountCents int64
	BusID       uint64
	FromCity    string
	ToCity      string
	GlobalUsed  int64
	UserUsed    int64
	Now         time.Time
}

// Result is a successful evaluation.
type Result struct {
	Code          string `json:"code"`
	DiscountCents int64  `json:"discount_cents"`
	FinalCents    int64  `json:"final_amount_cents"`
}

// Evaluate applies the eligibility checks in order and computes the
// discount.  Percentage discounts are amount×value/100 rounded to the
// nearest minor unit, then capped at the offer's max discount when one
// is set; fixed discounts are the value itself.  The discount is
// clamped so the final amount never goes negative.
func Evaluate(in Input) (*Result, *RejectionError) {
	o := in.Offer
	if o == nil {
		return nil, reject(CodeNotFound, "offer code does not exist")
	}
	now := in.Now
	if !o.IsActive {
		return nil, reject(CodeInvalid, "offer is not active")
	}
	if now.Before(o.ValidFrom) {
		return nil, reject(CodeInvalid, "offer is not yet valid")
	}
	if now.After(o.ValidTill) {
		return nil, reject(CodeInvalid, "offer has expired")
	}
	if o.UsageLimit > 0 && in.GlobalUsed >= o.UsageLimit {
		return nil, reject(CodeInvalid, "offer usage limit exhausted")
	}
	if o.UserUsageLimit > 0 && in.UserUsed >= o.UserUsageLimit {
		return nil, reject(CodeLimitReached, "you have already used this offer the maximum number of times")
	}
	if !o.AppliesToRoute(in.FromCity, in.ToCity) {
		return nil, reject(CodeRouteMismatch, "offer is not valid on this route")
	}
	if !o.AppliesToBus(in.BusID) {
		return nil, reject(CodeBusMismatch, "offer is not valid on this bus")
	}
	if in.AmountCents < o.MinBookingAmountCents {
		return nil, reject(CodeMinAmountNotMet,
			fmt.Sprintf("minimum booking amount for this offer is %d", o.MinBookingAmountCents))
	}

	var discount int64
	switch o.DiscountType {
	case model.DiscountTypePercentage:
		// Round half up in integer minor units.
		discount = (in.AmountCents*o.DiscountValue + 50) / 100
		if o.MaxDiscountCents > 0 && discount > o.MaxDiscountCents {
			discount = o.MaxDiscountCents
		}
	case model.DiscountTypeFixed:
		discount = o.DiscountValue
	default:
		return nil, reject(CodeInvalid, "unknown discount type")
	}
	if discount < 0 {
		discount = 0
	}
	if discount > in.AmountCents {
		discount = in.AmountCents
	}
	return &Result{
		Code:          o.Code,
		DiscountCents: discount,
		FinalCents:    in.AmountCents - discount,
	}, nil
}
