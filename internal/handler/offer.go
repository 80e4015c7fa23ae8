package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bus-ticket-reservation/internal/booking"
	"github.com/iliyamo/bus-ticket-reservation/internal/middleware"
	"github.com/iliyamo/bus-ticket-reservation/internal/model"
	"github.com/iliyamo/bus-ticket-reservation/internal/repository"
)

// OfferHandler serves the public offer listing and validation plus the
// admin offer management endpoints.
type OfferHandler struct {
	Offers *repository.OfferRepo
	Svc    *booking.Service
}

func NewOfferHandler(o *repository.OfferRepo, s *booking.Service) *OfferHandler {
	return &OfferHandler{Offers: o, Svc: s}
}

// ListActive returns offers currently inside their validity window.
func (h *OfferHandler) ListActive(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	offers, err := h.Offers.ListActive(ctx, time.Now().UTC())
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"offers": offers, "count": len(offers)})
}

// GetByCode returns one currently active offer by its code, for the
// offer detail page.  Inactive or expired offers are reported as not
// found, same as unknown codes.
func (h *OfferHandler) GetByCode(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	o, err := h.Offers.GetByCode(ctx, c.Param("code"))
	if err != nil {
		return writeErr(c, err)
	}
	now := time.Now().UTC()
	if !o.IsActive || now.Before(o.ValidFrom) || now.After(o.ValidTill) {
		return writeErr(c, repository.ErrOfferNotFound)
	}
	return c.JSON(http.StatusOK, echo.Map{"offer": o})
}

type validateReq struct {
	Code        string `json:"code"`
	AmountCents int64  `json:"amount_cents"`
	BusID       uint64 `json:"bus_id"`
}

// Validate evaluates an offer code against a prospective booking
// without creating anything.  A rejection is reported with HTTP 200
// and valid=false, since it is advisory rather than an error.
func (h *OfferHandler) Validate(c echo.Context) error {
	var req validateReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, KindValidation, "invalid body")
	}
	if req.Code == "" || req.BusID == 0 || req.AmountCents <= 0 {
		return fail(c, http.StatusBadRequest, KindValidation, "code, bus_id and amount_cents are required")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	res, rej, err := h.Svc.ValidateOffer(ctx, middleware.UserID(c), req.Code, req.AmountCents, req.BusID)
	if err != nil {
		return writeErr(c, err)
	}
	if rej != nil {
		return c.JSON(http.StatusOK, echo.Map{"valid": false, "code": rej.Code, "reason": rej.Reason})
	}
	return c.JSON(http.StatusOK, echo.Map{"valid": true, "offer": res})
}

type offerReq struct {
	Code                  string        `json:"code"`
	Title                 string        `json:"title"`
	Description           string        `json:"description"`
	DiscountType          string        `json:"discount_type"`
	DiscountValue         int64         `json:"discount_value"`
	MaxDiscountCents      int64         `json:"max_discount_cents"`
	MinBookingAmountCents int64         `json:"min_booking_amount_cents"`
	ValidFrom             time.Time     `json:"valid_from"`
	ValidTill             time.Time     `json:"valid_till"`
	UsageLimit            int64         `json:"usage_limit"`
	UserUsageLimit        int64         `json:"user_usage_limit"`
	ApplicableRoutes      []model.Route `json:"applicable_routes"`
	ApplicableBuses       []uint64      `json:"applicable_buses"`
	IsActive              *bool         `json:"is_active"`
	TermsAndConditions    string        `json:"terms_and_conditions"`
}

func (r *offerReq) validate() string {
	switch {
	case strings.TrimSpace(r.Code) == "":
		return "offer code is required"
	case r.DiscountType != model.DiscountTypePercentage && r.DiscountType != model.DiscountTypeFixed:
		return "discount type must be percentage or fixed"
	case r.DiscountValue <= 0:
		return "discount value must be positive"
	case r.DiscountType == model.DiscountTypePercentage && r.DiscountValue > 100:
		return "percentage discount cannot exceed 100"
	case r.ValidFrom.IsZero() || r.ValidTill.IsZero() || !r.ValidTill.After(r.ValidFrom):
		return "a valid validity window is required"
	}
	return ""
}

func (r *offerReq) toModel(createdBy uint64) *model.Offer {
	active := true
	if r.IsActive != nil {
		active = *r.IsActive
	}
	return &model.Offer{
		Code:                  strings.ToUpper(strings.TrimSpace(r.Code)),
		Title:                 r.Title,
		Description:           r.Description,
		DiscountType:          r.DiscountType,
		DiscountValue:         r.DiscountValue,
		MaxDiscountCents:      r.MaxDiscountCents,
		MinBookingAmountCents: r.MinBookingAmountCents,
		ValidFrom:             r.ValidFrom,
		ValidTill:             r.ValidTill,
		UsageLimit:            r.UsageLimit,
		UserUsageLimit:        r.UserUsageLimit,
		ApplicableRoutes:      r.ApplicableRoutes,
		ApplicableBuses:       r.ApplicableBuses,
		IsActive:              active,
		TermsAndConditions:    r.TermsAndConditions,
		CreatedBy:             createdBy,
	}
}

// AdminList returns every offer including inactive and expired ones.
func (h *OfferHandler) AdminList(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	offers, err := h.Offers.ListAll(ctx)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"offers": offers, "count": len(offers)})
}

// Create adds an offer (admin).
func (h *OfferHandler) Create(c echo.Context) error {
	var req offerReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, KindValidation, "invalid body")
	}
	if msg := req.validate(); msg != "" {
		return fail(c, http.StatusBadRequest, KindValidation, msg)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	o := req.toModel(middleware.UserID(c))
	if err := h.Offers.Create(ctx, o); err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"offer": o})
}

// Update edits an offer (admin).  The code itself never changes.
func (h *OfferHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, KindValidation, "invalid offer id")
	}
	var req offerReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, KindValidation, "invalid body")
	}
	if msg := req.validate(); msg != "" {
		return fail(c, http.StatusBadRequest, KindValidation, msg)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	o := req.toModel(middleware.UserID(c))
	o.ID = id
	if err := h.Offers.Update(ctx, o); err != nil {
		return writeErr(c, err)
	}
	// Return the stored row so the response carries the immutable code
	// and the refreshed timestamps.
	updated, err := h.Offers.GetByID(ctx, id)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"offer": updated})
}

// Delete deactivates an offer (admin).  The row is kept so historic
// bookings still resolve the code.
func (h *OfferHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, KindValidation, "invalid offer id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Offers.Deactivate(ctx, id); err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"deactivated": true})
}
