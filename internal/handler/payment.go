package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bus-ticket-reservation/internal/booking"
	"github.com/iliyamo/bus-ticket-reservation/internal/middleware"
)

// PaymentHandler serves the online payment flow: order creation,
// verification callbacks and refunds.
type PaymentHandler struct {
	Svc        *booking.Service
	GatewayKey string // public key id served to clients for checkout
}

func NewPaymentHandler(s *booking.Service, gatewayKey string) *PaymentHandler {
	return &PaymentHandler{Svc: s, GatewayKey: gatewayKey}
}

type createOrderReq struct {
	BookingRef string `json:"booking_ref"`
}

// CreateOrder opens a gateway order for a booking awaiting online
// payment.  A gateway failure leaves the booking untouched so the
// client can retry.
func (h *PaymentHandler) CreateOrder(c echo.Context) error {
	var req createOrderReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, KindValidation, "invalid body")
	}
	if req.BookingRef == "" {
		return fail(c, http.StatusBadRequest, KindValidation, "booking_ref is required")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	order, err := h.Svc.CreatePaymentOrder(ctx, middleware.UserID(c), req.BookingRef)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"order": order, "gateway_key": h.GatewayKey})
}

type verifyReq struct {
	BookingRef string `json:"booking_ref"`
	OrderID    string `json:"order_id"`
	PaymentID  string `json:"payment_id"`
	Signature  string `json:"signature"`
}

// Verify checks the gateway callback signature.  A match confirms the
// booking; a mismatch cancels it and releases the seats.
func (h *PaymentHandler) Verify(c echo.Context) error {
	var req verifyReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, KindValidation, "invalid body")
	}
	if req.BookingRef == "" || req.OrderID == "" || req.PaymentID == "" || req.Signature == "" {
		return fail(c, http.StatusBadRequest, KindValidation, "booking_ref, order_id, payment_id and signature are required")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	b, err := h.Svc.VerifyPayment(ctx, middleware.UserID(c), req.BookingRef, req.OrderID, req.PaymentID, req.Signature)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"booking": b})
}

// Refund triggers the gateway refund for a cancelled booking.  The
// operation is idempotent: once processed, repeats are rejected with a
// state conflict.
func (h *PaymentHandler) Refund(c echo.Context) error {
	ref := c.Param("bookingRef")
	if ref == "" {
		return fail(c, http.StatusBadRequest, KindValidation, "booking reference is required")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	refund, err := h.Svc.Refund(ctx, middleware.UserID(c), middleware.Role(c), ref)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"refund": refund})
}
