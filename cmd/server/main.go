package main

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bus-ticket-reservation/internal/booking"
	"github.com/iliyamo/bus-ticket-reservation/internal/config"
	"github.com/iliyamo/bus-ticket-reservation/internal/database"
	"github.com/iliyamo/bus-ticket-reservation/internal/email"
	"github.com/iliyamo/bus-ticket-reservation/internal/handler"
	"github.com/iliyamo/bus-ticket-reservation/internal/ledger"
	"github.com/iliyamo/bus-ticket-reservation/internal/payment"
	"github.com/iliyamo/bus-ticket-reservation/internal/queue"
	"github.com/iliyamo/bus-ticket-reservation/internal/repository"
	"github.com/iliyamo/bus-ticket-reservation/internal/router"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	users := repository.NewUserRepo(db)
	buses := repository.NewBusRepo(db)
	bookings := repository.NewBookingRepo(db)
	offers := repository.NewOfferRepo(db)
	reviews := repository.NewReviewRepo(db)

	holdTTL := time.Duration(cfg.HoldTTLMin) * time.Minute
	seatLedger := ledger.New(bookings, holdTTL)

	gateway := payment.NewClient(cfg.RazorpayBaseURL, cfg.RazorpayKeyID, cfg.RazorpayKeySecret, cfg.Currency)

	var publisher booking.Publisher
	if cfg.RabbitURL != "" {
		publisher = queue.NewPublisher(cfg.RabbitURL)

		var notifier queue.Notifier
		if cfg.SMTPHost != "" {
			notifier = email.NewSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom)
		} else {
			log.Printf("email: SMTP_HOST not set, notifications disabled")
		}
		go queue.StartEventConsumer(cfg.RabbitURL, notifier)
	} else {
		log.Printf("queue: RABBITMQ_URL not set, eventing disabled")
	}

	svc := booking.New(buses, users, offers, bookings, seatLedger, gateway, publisher)

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis: unavailable, rate limiting disabled")
	}

	e := echo.New()
	e.HideBanner = true
	router.Register(e, router.Handlers{
		Auth:    handler.NewAuthHandler(cfg, users),
		Bus:     handler.NewBusHandler(buses, reviews, svc),
		Booking: handler.NewBookingHandler(svc),
		Offer:   handler.NewOfferHandler(offers, svc),
		Payment: handler.NewPaymentHandler(svc, cfg.RazorpayKeyID),
		Review:  handler.NewReviewHandler(reviews, buses),
	}, cfg.JWTSecret, config.LoadRateLimitConfig(), rdb)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
