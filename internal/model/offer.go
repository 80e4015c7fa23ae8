package model

import "time"

// Discount types supported by offers.
const (
	DiscountTypePercentage = "percentage"
	DiscountTypeFixed      = "fixed"
)

// Route is an exact (from, to) pair used to scope offers.
type Route struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Offer is a discount code with a validity window and eligibility
// rules.  UsageLimit == 0 means unlimited global usage.  The global
// usage counter is never stored; it is recomputed as the count of
// confirmed bookings carrying the code.
type Offer struct {
	ID                     uint64    `json:"id"`
	Code                   string    `json:"code"` // stored uppercase
	Title                  string    `json:"title"`
	Description            string    `json:"description"`
	DiscountType           string    `json:"discount_type"`
	DiscountValue          int64     `json:"discount_value"` // percent for percentage, minor units for fixed
	MaxDiscountCents       int64     `json:"max_discount_cents"` // 0 = no cap; percentage only
	MinBookingAmountCents  int64     `json:"min_booking_amount_cents"`
	ValidFrom              time.Time `json:"valid_from"`
	ValidTill              time.Time `json:"valid_till"`
	UsageLimit             int64     `json:"usage_limit"` // 0 = unlimited
	UserUsageLimit         int64     `json:"user_usage_limit"`
	ApplicableRoutes       []Route   `json:"applicable_routes"` // empty = all routes
	ApplicableBuses        []uint64  `json:"applicable_buses"`  // empty = all buses
	IsActive               bool      `json:"is_active"`
	TermsAndConditions     string    `json:"terms_and_conditions,omitempty"`
	CreatedBy              uint64    `json:"created_by"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}

// AppliesToRoute reports whether the offer covers the given route.
// An empty route scope applies everywhere.
func (o *Offer) AppliesToRoute(from, to string) bool {
	if len(o.ApplicableRoutes) == 0 {
		return true
	}
	for _, r := range o.ApplicableRoutes {
		if r.From == from && r.To == to {
			return true
		}
	}
	return false
}

// AppliesToBus reports whether the offer covers the given bus.  An
// empty bus scope applies to all buses.
func (o *Offer) AppliesToBus(busID uint64) bool {
	if len(o.ApplicableBuses) == 0 {
		return true
	}
	for _, id := range o.ApplicableBuses {
		if id == busID {
			return true
		}
	}
	return false
}
