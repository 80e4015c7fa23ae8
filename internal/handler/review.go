package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bus-ticket-reservation/internal/middleware"
	"github.com/iliyamo/bus-ticket-reservation/internal/model"
	"github.com/iliyamo/bus-ticket-reservation/internal/repository"
)

// ReviewHandler serves bus reviews and rating summaries.
type ReviewHandler struct {
	Reviews *repository.ReviewRepo
	Buses   *repository.BusRepo
}

func NewReviewHandler(r *repository.ReviewRepo, b *repository.BusRepo) *ReviewHandler {
	return &ReviewHandler{Reviews: r, Buses: b}
}

type reviewReq struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

// Create adds a review for a bus.  One review per user per bus.
func (h *ReviewHandler) Create(c echo.Context) error {
	busID, err := pathID(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, KindValidation, "invalid bus id")
	}
	var req reviewReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, KindValidation, "invalid body")
	}
	if req.Rating < 1 || req.Rating > 5 {
		return fail(c, http.StatusBadRequest, KindValidation, "rating must be between 1 and 5")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	// The bus must exist before the review row is created.
	if _, err := h.Buses.GetByID(ctx, busID); err != nil {
		return writeErr(c, err)
	}
	rv := &model.Review{
		UserID:  middleware.UserID(c),
		BusID:   busID,
		Rating:  req.Rating,
		Comment: strings.TrimSpace(req.Comment),
	}
	if err := h.Reviews.Create(ctx, rv); err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"review": rv})
}

// List returns the reviews and rating summary of a bus.
func (h *ReviewHandler) List(c echo.Context) error {
	busID, err := pathID(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, KindValidation, "invalid bus id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	reviews, err := h.Reviews.ListByBus(ctx, busID)
	if err != nil {
		return writeErr(c, err)
	}
	summary, err := h.Reviews.RatingSummary(ctx, busID)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"reviews": reviews, "rating": summary})
}
