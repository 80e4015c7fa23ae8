// Package booking implements the booking orchestrator: creation with
// seat-conflict protection, the payment lifecycle and cancellation
// with refunds.  State transitions are forward-only; a cancelled
// booking can never become confirmed again.
package booking

import (
	"context"
	"crypto/rand"
	"errors"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/bus-ticket-reservation/internal/ledger"
	"github.com/iliyamo/bus-ticket-reservation/internal/model"
	"github.com/iliyamo/bus-ticket-reservation/internal/offer"
	"github.com/iliyamo/bus-ticket-reservation/internal/payment"
	"github.com/iliyamo/bus-ticket-reservation/internal/queue"
	"github.com/iliyamo/bus-ticket-reservation/internal/repository"
)

// BusStore reads bus records.
type BusStore interface {
	GetByID(ctx context.Context, id uint64) (*model.Bus, error)
}

// UserStore resolves booking owners for display and notifications.
type UserStore interface {
	GetByID(ctx context.Context, id uint64) (*model.User, error)
}

// OfferStore resolves offer codes.
type OfferStore interface {
	GetByCode(ctx context.Context, code string) (*model.Offer, error)
}

// BookingStore persists bookings and their seat ledger rows.
type BookingStore interface {
	CreateWithSeats(ctx context.Context, b *model.Booking, holdCutoff time.Time) error
	GetByRef(ctx context.Context, ref string) (*model.Booking, error)
	ListByUser(ctx context.Context, userID uint64) ([]model.Booking, error)
	ListAdmin(ctx context.Context, f repository.AdminFilter) ([]model.Booking, error)
	Stats(ctx context.Context) (model.BookingStats, error)
	CountConfirmedByOffer(ctx context.Context, code string) (int64, error)
	CountConfirmedByUserAndOffer(ctx context.Context, userID uint64, code string) (int64, error)
	SetPaymentOrder(ctx context.Context, id uint64, orderID string) error
	MarkPaymentCompleted(ctx context.Context, id uint64, orderID, paymentID, signature string) error
	MarkPaymentCollected(ctx context.Context, id uint64) error
	FailPaymentAndRelease(ctx context.Context, id uint64) error
	CancelAndRelease(ctx context.Context, id uint64, reason string, refundCents int64, at time.Time) error
	MarkRefundProcessed(ctx context.Context, id uint64, refundID string, at time.Time) error
}

// Gateway is the payment provider used for online bookings.
type Gateway interface {
	CreateOrder(ctx context.Context, amountCents int64, bookingRef string) (*payment.Order, error)
	VerifySignature(orderID, paymentID, signature string) bool
	RefundPayment(ctx context.Context, paymentID string, amountCents int64) (*payment.Refund, error)
}

// Publisher emits booking lifecycle events.  Publishing is best
// effort: a failure is logged and never fails the request.
type Publisher interface {
	Publish(ctx context.Context, evt queue.Event) error
}

// Service is the booking orchestrator.
type Service struct {
	buses    BusStore
	users    UserStore
	offers   OfferStore
	bookings BookingStore
	ledger   *ledger.Ledger
	gateway  Gateway
	events   Publisher

	// Now is the clock; tests override it.
	Now func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New wires a Service.  events may be nil when no broker is configured.
func New(buses BusStore, users UserStore, offers OfferStore, bookings BookingStore,
	l *ledger.Ledger, gateway Gateway, events Publisher) *Service {
	return &Service{
		buses:    buses,
		users:    users,
		offers:   offers,
		bookings: bookings,
		ledger:   l,
		gateway:  gateway,
		events:   events,
		Now:      time.Now,
		locks:    make(map[string]*sync.Mutex),
	}
}

// lockKey serialises booking creation per (bus, journey date) within
// this process.  The unique key on booking_seats remains the guard
// across processes.
func (s *Service) lockKey(busID uint64, day string) func() {
	key := strconv.FormatUint(busID, 10) + "|" + day
	s.mu.Lock()
	m, ok := s.locks[key]
	if !ok {
		m = &sync.Mutex{}
		s.locks[key] = m
	}
	s.mu.Unlock()
	m.Lock()
	return m.Unlock
}

// CreateInput is the request to create a booking.
type CreateInput struct {
	BusID         uint64                 `json:"bus_id"`
	Passenger     model.PassengerDetails `json:"passenger_details"`
	Seats         []string               `json:"seats"`
	JourneyDate   string                 `json:"journey_date"` // 2006-01-02
	BoardingPoint string                 `json:"boarding_point"`
	DroppingPoint string                 `json:"dropping_point"`
	PaymentMethod string                 `json:"payment_method"`
	OfferCode     string                 `json:"offer_code"`
}

// Create validates and persists a new booking.  Validation is
// fail-fast in a fixed order: required fields, bus existence, bus
// status, seat count and identifiers, then seat availability inside
// the per-(bus,date) critical section.  Cash bookings confirm
// immediately with payment pending; online bookings start in
// PENDING_PAYMENT and hold their seats for the hold window.
func (s *Service) Create(ctx context.Context, userID uint64, in CreateInput) (*model.Booking, error) {
	if in.BusID == 0 || in.Passenger.Name == "" || in.Passenger.Phone == "" ||
		in.JourneyDate == "" || in.BoardingPoint == "" || in.DroppingPoint == "" {
		return nil, ErrMissingFields
	}
	if in.Passenger.Age < 1 || in.Passenger.Age > 120 {
		return nil, ErrInvalidPassenger
	}
	if in.PaymentMethod != model.PaymentMethodCash && in.PaymentMethod != model.PaymentMethodOnline {
		return nil, ErrInvalidPayment
	}
	now := s.Now().UTC()
	jd, err := time.ParseInLocation("2006-01-02", in.JourneyDate, time.UTC)
	if err != nil {
		return nil, ErrInvalidDate
	}
	today := now.Truncate(24 * time.Hour)
	if jd.Before(today) {
		return nil, ErrInvalidDate
	}

	bus, err := s.buses.GetByID(ctx, in.BusID)
	if err != nil {
		return nil, err
	}
	if bus.Status != model.BusStatusActive {
		return nil, ErrBusUnavailable
	}
	if len(in.Seats) == 0 || len(in.Seats) > 5 || hasDuplicates(in.Seats) {
		return nil, ErrInvalidSeats
	}

	unlock := s.lockKey(bus.ID, in.JourneyDate)
	defer unlock()

	if err := s.ledger.CheckAvailability(ctx, bus, jd, in.Seats, now); err != nil {
		return nil, err
	}

	amount := int64(len(in.Seats)) * bus.PriceCents
	var applied *model.OfferApplied
	if in.OfferCode != "" {
		res, rej, err := s.evaluateOffer(ctx, userID, in.OfferCode, amount, bus)
		if err != nil {
			return nil, err
		}
		if rej != nil {
			return nil, rej
		}
		applied = &model.OfferApplied{
			Code:                res.Code,
			DiscountCents:       res.DiscountCents,
			OriginalAmountCents: amount,
		}
		amount = res.FinalCents
	}

	b := &model.Booking{
		BookingRef:       newBookingRef(now),
		UserID:           userID,
		BusID:            bus.ID,
		Passenger:        in.Passenger,
		Seats:            append([]string(nil), in.Seats...),
		JourneyDate:      jd,
		BoardingPoint:    in.BoardingPoint,
		DroppingPoint:    in.DroppingPoint,
		TotalAmountCents: amount,
		Offer:            applied,
		PaymentMethod:    in.PaymentMethod,
		PaymentStatus:    model.PaymentStatusPending,
		Status:           model.BookingStatusPendingPayment,
	}
	if in.PaymentMethod == model.PaymentMethodCash {
		b.Status = model.BookingStatusConfirmed
	}

	if err := s.bookings.CreateWithSeats(ctx, b, s.ledger.HoldCutoff(now)); err != nil {
		if errors.Is(err, repository.ErrSeatTaken) {
			// Lost a cross-instance race after the availability check.
			if cerr := s.ledger.CheckAvailability(ctx, bus, jd, in.Seats, s.Now().UTC()); cerr != nil {
				return nil, cerr
			}
			return nil, &ledger.ConflictError{Seats: append([]string(nil), in.Seats...)}
		}
		return nil, err
	}

	b.Bus = bus
	if u, uerr := s.users.GetByID(ctx, userID); uerr == nil {
		b.User = u
	}
	if b.Status == model.BookingStatusConfirmed {
		s.publish(ctx, queue.EventBookingConfirmed, b, 0)
	}
	return b, nil
}

// SeatMap returns the availability of a bus for one date.
func (s *Service) SeatMap(ctx context.Context, busID uint64, date string) (*ledger.Availability, error) {
	bus, err := s.buses.GetByID(ctx, busID)
	if err != nil {
		return nil, err
	}
	jd, err := time.ParseInLocation("2006-01-02", date, time.UTC)
	if err != nil {
		return nil, ErrInvalidDate
	}
	return s.ledger.Availability(ctx, bus, jd, s.Now().UTC())
}

// Get returns a booking with its bus resolved.  Non-admin callers may
// only read their own bookings.
func (s *Service) Get(ctx context.Context, userID uint64, role, ref string) (*model.Booking, error) {
	b, err := s.bookings.GetByRef(ctx, ref)
	if err != nil {
		return nil, err
	}
	if b.UserID != userID && role != model.RoleAdmin {
		return nil, repository.ErrForbidden
	}
	if bus, berr := s.buses.GetByID(ctx, b.BusID); berr == nil {
		b.Bus = bus
	}
	return b, nil
}

// ListForUser returns the caller's bookings, newest first.
func (s *Service) ListForUser(ctx context.Context, userID uint64) ([]model.Booking, error) {
	return s.bookings.ListByUser(ctx, userID)
}

// ListAdmin returns bookings matching the filter for the admin view.
func (s *Service) ListAdmin(ctx context.Context, f repository.AdminFilter) ([]model.Booking, error) {
	return s.bookings.ListAdmin(ctx, f)
}

// Stats returns aggregate booking counters.
func (s *Service) Stats(ctx context.Context) (model.BookingStats, error) {
	return s.bookings.Stats(ctx)
}

// ConfirmCash records that the fare of a cash booking was collected.
func (s *Service) ConfirmCash(ctx context.Context, userID uint64, role, ref string) (*model.Booking, error) {
	b, err := s.Get(ctx, userID, role, ref)
	if err != nil {
		return nil, err
	}
	switch {
	case b.Status == model.BookingStatusCancelled:
		return nil, ErrAlreadyCancelled
	case b.PaymentMethod != model.PaymentMethodCash:
		return nil, ErrNotCashBooking
	case b.PaymentStatus == model.PaymentStatusCompleted:
		return nil, ErrAlreadyPaid
	}
	if err := s.bookings.MarkPaymentCollected(ctx, b.ID); err != nil {
		return nil, err
	}
	b.PaymentStatus = model.PaymentStatusCompleted
	return b, nil
}

// Cancel cancels a confirmed booking before its journey date.  The
// refund amount is fixed at 80% of the total, computed once here;
// repeated cancellation attempts fail with a state conflict and never
// recompute it.
func (s *Service) Cancel(ctx context.Context, userID uint64, role, ref, reason string) (*model.Booking, error) {
	b, err := s.Get(ctx, userID, role, ref)
	if err != nil {
		return nil, err
	}
	if b.Status == model.BookingStatusCancelled {
		return nil, ErrAlreadyCancelled
	}
	if b.Status != model.BookingStatusConfirmed {
		return nil, ErrNotConfirmed
	}
	now := s.Now().UTC()
	if !b.JourneyDate.After(now.Truncate(24 * time.Hour)) {
		return nil, ErrJourneyNotFuture
	}

	refund := b.TotalAmountCents * 80 / 100
	if err := s.bookings.CancelAndRelease(ctx, b.ID, reason, refund, now); err != nil {
		return nil, err
	}
	b.Status = model.BookingStatusCancelled
	b.Cancellation = model.Cancellation{
		Cancelled:         true,
		CancelledAt:       &now,
		Reason:            reason,
		RefundAmountCents: refund,
		RefundStatus:      model.RefundStatusPending,
	}
	s.publish(ctx, queue.EventBookingCancelled, b, refund)
	return b, nil
}

// CreatePaymentOrder creates a gateway order for an online booking
// awaiting payment.  A gateway failure leaves the booking in
// PENDING_PAYMENT so the client can retry without re-reserving seats.
func (s *Service) CreatePaymentOrder(ctx context.Context, userID uint64, ref string) (*payment.Order, error) {
	b, err := s.Get(ctx, userID, "", ref)
	if err != nil {
		return nil, err
	}
	if err := s.requireAwaitingPayment(ctx, b); err != nil {
		return nil, err
	}
	order, err := s.gateway.CreateOrder(ctx, b.TotalAmountCents, b.BookingRef)
	if err != nil {
		return nil, err
	}
	if err := s.bookings.SetPaymentOrder(ctx, b.ID, order.OrderID); err != nil {
		return nil, err
	}
	return order, nil
}

// VerifyPayment checks the gateway signature for an online payment.
// A matching signature confirms the booking; a mismatch is a
// definitive failure that cancels it and releases its seats.
func (s *Service) VerifyPayment(ctx context.Context, userID uint64, ref, orderID, paymentID, signature string) (*model.Booking, error) {
	b, err := s.Get(ctx, userID, "", ref)
	if err != nil {
		return nil, err
	}
	if err := s.requireAwaitingPayment(ctx, b); err != nil {
		return nil, err
	}
	if orderID != b.Payment.OrderID || !s.gateway.VerifySignature(orderID, paymentID, signature) {
		if err := s.bookings.FailPaymentAndRelease(ctx, b.ID); err != nil {
			return nil, err
		}
		b.Status = model.BookingStatusCancelled
		b.PaymentStatus = model.PaymentStatusFailed
		s.publish(ctx, queue.EventPaymentFailed, b, 0)
		return nil, ErrSignatureMismatch
	}
	if err := s.bookings.MarkPaymentCompleted(ctx, b.ID, orderID, paymentID, signature); err != nil {
		return nil, err
	}
	b.Status = model.BookingStatusConfirmed
	b.PaymentStatus = model.PaymentStatusCompleted
	b.Payment = model.PaymentDetails{OrderID: orderID, PaymentID: paymentID, Signature: signature}
	s.publish(ctx, queue.EventBookingConfirmed, b, 0)
	return b, nil
}

// requireAwaitingPayment checks that an online booking can still take
// a payment.  Once the hold window has elapsed the booking is failed
// and its seats released, because other customers may already have
// booked them.
func (s *Service) requireAwaitingPayment(ctx context.Context, b *model.Booking) error {
	switch {
	case b.Status == model.BookingStatusCancelled:
		return ErrAlreadyCancelled
	case b.PaymentStatus == model.PaymentStatusCompleted:
		return ErrAlreadyPaid
	case b.PaymentMethod != model.PaymentMethodOnline || b.Status != model.BookingStatusPendingPayment:
		return ErrNotAwaitingPayment
	}
	if b.CreatedAt.Before(s.ledger.HoldCutoff(s.Now().UTC())) {
		if err := s.bookings.FailPaymentAndRelease(ctx, b.ID); err != nil {
			return err
		}
		b.Status = model.BookingStatusCancelled
		b.PaymentStatus = model.PaymentStatusFailed
		return ErrHoldExpired
	}
	return nil
}

// Refund issues the gateway refund for a cancelled online booking.
// Safe to retry after a gateway failure; a second call after success
// fails the refund-status check and never pays twice.
func (s *Service) Refund(ctx context.Context, userID uint64, role, ref string) (*payment.Refund, error) {
	b, err := s.Get(ctx, userID, role, ref)
	if err != nil {
		return nil, err
	}
	if b.Status != model.BookingStatusCancelled {
		return nil, ErrNotRefundable
	}
	if b.Cancellation.RefundStatus == model.RefundStatusProcessed {
		return nil, ErrRefundProcessed
	}
	if b.PaymentMethod != model.PaymentMethodOnline || b.Payment.PaymentID == "" {
		return nil, ErrNotRefundable
	}
	refund, err := s.gateway.RefundPayment(ctx, b.Payment.PaymentID, b.Cancellation.RefundAmountCents)
	if err != nil {
		return nil, err
	}
	now := s.Now().UTC()
	if err := s.bookings.MarkRefundProcessed(ctx, b.ID, refund.RefundID, now); err != nil {
		return nil, err
	}
	b.Cancellation.RefundStatus = model.RefundStatusProcessed
	b.Cancellation.RefundID = refund.RefundID
	b.Cancellation.RefundProcessedAt = &now
	s.publish(ctx, queue.EventRefundProcessed, b, refund.AmountCents)
	return refund, nil
}

// ValidateOffer evaluates an offer code against a prospective amount
// and bus, without creating anything.  The rejection, when present, is
// advisory.
func (s *Service) ValidateOffer(ctx context.Context, userID uint64, code string, amountCents int64, busID uint64) (*offer.Result, *offer.RejectionError, error) {
	bus, err := s.buses.GetByID(ctx, busID)
	if err != nil {
		return nil, nil, err
	}
	return s.evaluateOffer(ctx, userID, code, amountCents, bus)
}

func (s *Service) evaluateOffer(ctx context.Context, userID uint64, code string, amountCents int64, bus *model.Bus) (*offer.Result, *offer.RejectionError, error) {
	o, err := s.offers.GetByCode(ctx, code)
	if err != nil && !errors.Is(err, repository.ErrOfferNotFound) {
		return nil, nil, err
	}
	in := offer.Input{
		Offer:       o,
		AmountCents: amountCents,
		BusID:       bus.ID,
		FromCity:    bus.FromCity,
		ToCity:      bus.ToCity,
		Now:         s.Now().UTC(),
	}
	if o != nil {
		if in.GlobalUsed, err = s.bookings.CountConfirmedByOffer(ctx, o.Code); err != nil {
			return nil, nil, err
		}
		if in.UserUsed, err = s.bookings.CountConfirmedByUserAndOffer(ctx, userID, o.Code); err != nil {
			return nil, nil, err
		}
	}
	res, rej := offer.Evaluate(in)
	return res, rej, nil
}

func (s *Service) publish(ctx context.Context, typ string, b *model.Booking, refundCents int64) {
	if s.events == nil {
		return
	}
	evt := queue.Event{
		Type:        typ,
		BookingRef:  b.BookingRef,
		JourneyDate: b.JourneyDate.UTC().Format("2006-01-02"),
		Seats:       b.Seats,
		AmountCents: b.TotalAmountCents,
		RefundCents: refundCents,
		OccurredAt:  s.Now().UTC(),
	}
	if b.User == nil {
		if u, err := s.users.GetByID(ctx, b.UserID); err == nil {
			b.User = u
		}
	}
	if b.User != nil {
		evt.UserName = b.User.Name
		evt.UserEmail = b.User.Email
	}
	if b.Bus == nil {
		if bus, err := s.buses.GetByID(ctx, b.BusID); err == nil {
			b.Bus = bus
		}
	}
	if b.Bus != nil {
		evt.BusName = b.Bus.BusName
		evt.FromCity = b.Bus.FromCity
		evt.ToCity = b.Bus.ToCity
	}
	if err := s.events.Publish(ctx, evt); err != nil {
		log.Printf("booking: publish %s for %s failed: %v", typ, b.BookingRef, err)
	}
}

// newBookingRef builds a human-readable reference: BKG + millisecond
// timestamp in base36 + 6 random base36 characters (just over 2^31
// combinations).  The unique key on booking_ref backstops collisions.
func newBookingRef(now time.Time) string {
	const alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms.
		panic(err)
	}
	suffix := make([]byte, len(buf))
	for i, c := range buf {
		suffix[i] = alphabet[int(c)%len(alphabet)]
	}
	ts := strings.ToUpper(strconv.FormatInt(now.UnixMilli(), 36))
	return "BKG" + ts + string(suffix)
}

func hasDuplicates(seats []string) bool {
	seen := make(map[string]struct{}, len(seats))
	for _, s := range seats {
		if _, ok := seen[s]; ok {
			return true
		}
		seen[s] = struct{}{}
	}
	return false
}
