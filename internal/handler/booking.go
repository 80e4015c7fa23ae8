package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bus-ticket-reservation/internal/booking"
	"github.com/iliyamo/bus-ticket-reservation/internal/middleware"
	"github.com/iliyamo/bus-ticket-reservation/internal/repository"
	"github.com/iliyamo/bus-ticket-reservation/internal/ticket"
)

// BookingHandler serves booking creation, lifecycle and admin
// reporting endpoints.
type BookingHandler struct {
	Svc *booking.Service
}

func NewBookingHandler(s *booking.Service) *BookingHandler {
	return &BookingHandler{Svc: s}
}

// Create books seats on a bus for a journey date.
func (h *BookingHandler) Create(c echo.Context) error {
	var req booking.CreateInput
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, KindValidation, "invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	b, err := h.Svc.Create(ctx, middleware.UserID(c), req)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"booking": b})
}

// List returns the caller's bookings, newest first.
func (h *BookingHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	bookings, err := h.Svc.ListForUser(ctx, middleware.UserID(c))
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": bookings, "count": len(bookings)})
}

// Get returns one booking by reference (owner or admin).
func (h *BookingHandler) Get(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	b, err := h.Svc.Get(ctx, middleware.UserID(c), middleware.Role(c), c.Param("id"))
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"booking": b})
}

// Confirm records fare collection for a cash booking.
func (h *BookingHandler) Confirm(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	b, err := h.Svc.ConfirmCash(ctx, middleware.UserID(c), middleware.Role(c), c.Param("id"))
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"booking": b})
}

type cancelReq struct {
	Reason string `json:"reason"`
}

// Cancel cancels a confirmed booking before its journey date and
// records the 80% refund entitlement.
func (h *BookingHandler) Cancel(c echo.Context) error {
	var req cancelReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, KindValidation, "invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	b, err := h.Svc.Cancel(ctx, middleware.UserID(c), middleware.Role(c), c.Param("id"), req.Reason)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"booking": b})
}

// Ticket streams the e-ticket PDF for a confirmed booking.
func (h *BookingHandler) Ticket(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	b, err := h.Svc.Get(ctx, middleware.UserID(c), middleware.Role(c), c.Param("id"))
	if err != nil {
		return writeErr(c, err)
	}
	pdf, name, err := ticket.Generate(b)
	if err != nil {
		return writeErr(c, err)
	}
	c.Response().Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	return c.Blob(http.StatusOK, "application/pdf", pdf)
}

// AdminList returns bookings filtered by status, bus and date range.
func (h *BookingHandler) AdminList(c echo.Context) error {
	f := repository.AdminFilter{Status: c.QueryParam("status")}
	if v := c.QueryParam("bus_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fail(c, http.StatusBadRequest, KindValidation, "invalid bus_id")
		}
		f.BusID = id
	}
	var err error
	if f.FromDate, err = dateParam(c, "from_date"); err != nil {
		return fail(c, http.StatusBadRequest, KindValidation, "invalid from_date")
	}
	if f.ToDate, err = dateParam(c, "to_date"); err != nil {
		return fail(c, http.StatusBadRequest, KindValidation, "invalid to_date")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	bookings, err := h.Svc.ListAdmin(ctx, f)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": bookings, "count": len(bookings)})
}

// AdminStats returns aggregate booking counters.
func (h *BookingHandler) AdminStats(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	stats, err := h.Svc.Stats(ctx)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"stats": stats})
}

func dateParam(c echo.Context, name string) (time.Time, error) {
	v := c.QueryParam(name)
	if v == "" {
		return time.Time{}, nil
	}
	return time.ParseInLocation("2006-01-02", v, time.UTC)
}
