// Package router registers the HTTP routes and their middleware.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/bus-ticket-reservation/internal/config"
	"github.com/iliyamo/bus-ticket-reservation/internal/handler"
	"github.com/iliyamo/bus-ticket-reservation/internal/middleware"
	"github.com/iliyamo/bus-ticket-reservation/internal/model"
)

// Handlers bundles every handler the router wires up.
type Handlers struct {
	Auth    *handler.AuthHandler
	Bus     *handler.BusHandler
	Booking *handler.BookingHandler
	Offer   *handler.OfferHandler
	Payment *handler.PaymentHandler
	Review  *handler.ReviewHandler
}

// Register wires all routes onto the Echo instance.  Public routes
// carry only the rate limiter; /v1 routes additionally require a valid
// access token, and /v1/admin routes the ADMIN role.
func Register(e *echo.Echo, h Handlers, jwtSecret string, rlCfg config.RateLimitConfig, rdb *redis.Client) {
	limiter := middleware.NewTokenBucket(rlCfg, rdb)
	e.Use(limiter)

	e.GET("/healthz", handler.Health)

	// Public catalogue and auth.
	e.POST("/v1/auth/register", h.Auth.Register)
	e.POST("/v1/auth/login", h.Auth.Login)
	e.GET("/v1/buses", h.Bus.List)
	e.GET("/v1/buses/search", h.Bus.Search)
	e.GET("/v1/buses/routes", h.Bus.Routes)
	e.GET("/v1/buses/:id", h.Bus.Get)
	e.GET("/v1/buses/:id/seats/:date", h.Bus.Seats)
	e.GET("/v1/buses/:id/reviews", h.Review.List)
	e.GET("/v1/offers", h.Offer.ListActive)
	e.GET("/v1/offers/:code", h.Offer.GetByCode)

	// Authenticated routes.
	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.Use(middleware.RequireRole(model.RoleUser, model.RoleAdmin))

	auth.GET("/me", h.Auth.Me)

	auth.POST("/bookings", h.Booking.Create)
	auth.GET("/bookings", h.Booking.List)
	auth.GET("/bookings/:id", h.Booking.Get)
	auth.POST("/bookings/:id/confirm", h.Booking.Confirm)
	auth.PUT("/bookings/:id/cancel", h.Booking.Cancel)
	auth.GET("/bookings/:id/ticket", h.Booking.Ticket)

	auth.POST("/payment/create-order", h.Payment.CreateOrder)
	auth.POST("/payment/verify", h.Payment.Verify)
	auth.POST("/payment/refund/:bookingRef", h.Payment.Refund)

	auth.POST("/offers/validate", h.Offer.Validate)
	auth.POST("/buses/:id/reviews", h.Review.Create)

	// Admin routes.
	admin := e.Group("/v1/admin")
	admin.Use(middleware.JWTAuth(jwtSecret))
	admin.Use(middleware.RequireRole(model.RoleAdmin))

	admin.POST("/buses", h.Bus.Create)
	admin.PUT("/buses/:id", h.Bus.Update)
	admin.DELETE("/buses/:id", h.Bus.Delete)

	admin.GET("/bookings", h.Booking.AdminList)
	admin.GET("/bookings/stats", h.Booking.AdminStats)

	admin.GET("/offers", h.Offer.AdminList)
	admin.POST("/offers", h.Offer.Create)
	admin.PUT("/offers/:id", h.Offer.Update)
	admin.DELETE("/offers/:id", h.Offer.Delete)
}
