package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bus-ticket-reservation/internal/booking"
	"github.com/iliyamo/bus-ticket-reservation/internal/model"
	"github.com/iliyamo/bus-ticket-reservation/internal/repository"
)

// BusHandler serves the public bus catalogue and the admin fleet
// management endpoints.
type BusHandler struct {
	Buses    *repository.BusRepo
	Reviews  *repository.ReviewRepo
	Bookings *booking.Service
}

func NewBusHandler(b *repository.BusRepo, r *repository.ReviewRepo, s *booking.Service) *BusHandler {
	return &BusHandler{Buses: b, Reviews: r, Bookings: s}
}

// List returns buses matching the optional from/to/type/status query
// filters.  Status defaults to active in the repository, so only an
// explicit status=... reveals buses under maintenance.
func (h *BusHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	buses, err := h.Buses.List(ctx, repository.BusFilter{
		From:    strings.TrimSpace(c.QueryParam("from")),
		To:      strings.TrimSpace(c.QueryParam("to")),
		BusType: strings.TrimSpace(c.QueryParam("type")),
		Status:  strings.TrimSpace(c.QueryParam("status")),
	})
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"buses": buses, "count": len(buses)})
}

// Search returns active buses serving a route.  Unlike List, origin
// and destination are required.
func (h *BusHandler) Search(c echo.Context) error {
	from := strings.TrimSpace(c.QueryParam("from"))
	to := strings.TrimSpace(c.QueryParam("to"))
	if from == "" || to == "" {
		return fail(c, http.StatusBadRequest, KindValidation, "from and to are required")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	buses, err := h.Buses.List(ctx, repository.BusFilter{
		From:    from,
		To:      to,
		BusType: strings.TrimSpace(c.QueryParam("type")),
	})
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"buses": buses, "count": len(buses)})
}

// Get returns one bus with its aggregate rating.
func (h *BusHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, KindValidation, "invalid bus id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	bus, err := h.Buses.GetByID(ctx, id)
	if err != nil {
		return writeErr(c, err)
	}
	rating, err := h.Reviews.RatingSummary(ctx, id)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"bus": bus, "rating": rating})
}

// Routes returns the distinct origin and destination cities currently
// served, for the search form.
func (h *BusHandler) Routes(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	from, to, err := h.Buses.Routes(ctx)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"from_cities": from, "to_cities": to})
}

// Seats returns the date-specific seat map of a bus.
func (h *BusHandler) Seats(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, KindValidation, "invalid bus id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	av, err := h.Bookings.SeatMap(ctx, id, c.Param("date"))
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, av)
}

type busReq struct {
	BusName       string   `json:"bus_name"`
	BusNumber     string   `json:"bus_number"`
	BusType       string   `json:"bus_type"`
	FromCity      string   `json:"from_city"`
	ToCity        string   `json:"to_city"`
	DepartureTime string   `json:"departure_time"`
	ArrivalTime   string   `json:"arrival_time"`
	Duration      string   `json:"duration"`
	PriceCents    int64    `json:"price_cents"`
	TotalSeats    int      `json:"total_seats"`
	Amenities     []string `json:"amenities"`
	OperatingDays []string `json:"operating_days"`
	Status        string   `json:"status"`
}

func (r *busReq) validate() string {
	switch {
	case strings.TrimSpace(r.BusName) == "" || strings.TrimSpace(r.BusNumber) == "":
		return "bus name and number are required"
	case strings.TrimSpace(r.FromCity) == "" || strings.TrimSpace(r.ToCity) == "":
		return "origin and destination cities are required"
	case r.PriceCents <= 0:
		return "price must be positive"
	case r.TotalSeats < 1 || r.TotalSeats > 100:
		return "total seats must be between 1 and 100"
	}
	return ""
}

func (r *busReq) toModel() *model.Bus {
	status := r.Status
	if status == "" {
		status = model.BusStatusActive
	}
	return &model.Bus{
		BusName:       strings.TrimSpace(r.BusName),
		BusNumber:     strings.ToUpper(strings.TrimSpace(r.BusNumber)),
		BusType:       r.BusType,
		FromCity:      strings.TrimSpace(r.FromCity),
		ToCity:        strings.TrimSpace(r.ToCity),
		DepartureTime: r.DepartureTime,
		ArrivalTime:   r.ArrivalTime,
		Duration:      r.Duration,
		PriceCents:    r.PriceCents,
		TotalSeats:    r.TotalSeats,
		Amenities:     r.Amenities,
		OperatingDays: r.OperatingDays,
		Status:        status,
	}
}

// Create adds a bus to the fleet (admin).
func (h *BusHandler) Create(c echo.Context) error {
	var req busReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, KindValidation, "invalid body")
	}
	if msg := req.validate(); msg != "" {
		return fail(c, http.StatusBadRequest, KindValidation, msg)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	bus := req.toModel()
	if err := h.Buses.Create(ctx, bus); err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"bus": bus})
}

// Update replaces the mutable fields of a bus (admin).
func (h *BusHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, KindValidation, "invalid bus id")
	}
	var req busReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, KindValidation, "invalid body")
	}
	if msg := req.validate(); msg != "" {
		return fail(c, http.StatusBadRequest, KindValidation, msg)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	bus := req.toModel()
	bus.ID = id
	if err := h.Buses.Update(ctx, bus); err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"bus": bus})
}

// Delete removes a bus from the fleet (admin).  Existing bookings keep
// their own copy of the display fields.
func (h *BusHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, KindValidation, "invalid bus id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Buses.Delete(ctx, id); err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"deleted": true})
}

// pathID parses a numeric path parameter.
func pathID(c echo.Context, name string) (uint64, error) {
	return strconv.ParseUint(c.Param(name), 10, 64)
}
