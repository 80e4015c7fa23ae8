package booking

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/bus-ticket-reservation/internal/ledger"
	"github.com/iliyamo/bus-ticket-reservation/internal/model"
	"github.com/iliyamo/bus-ticket-reservation/internal/payment"
	"github.com/iliyamo/bus-ticket-reservation/internal/queue"
	"github.com/iliyamo/bus-ticket-reservation/internal/repository"
)

var testNow = time.Date(2026, 5, 20, 10, 0, 0, 0, time.UTC)

const holdTTL = 10 * time.Minute

// ----- fakes -----

type fakeBuses struct{ buses map[uint64]*model.Bus }

func (f *fakeBuses) GetByID(_ context.Context, id uint64) (*model.Bus, error) {
	b, ok := f.buses[id]
	if !ok {
		return nil, repository.ErrBusNotFound
	}
	cp := *b
	return &cp, nil
}

type fakeUsers struct{ users map[uint64]*model.User }

func (f *fakeUsers) GetByID(_ context.Context, id uint64) (*model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

type fakeOffers struct{ offers map[string]*model.Offer }

func (f *fakeOffers) GetByCode(_ context.Context, code string) (*model.Offer, error) {
	o, ok := f.offers[code]
	if !ok {
		return nil, repository.ErrOfferNotFound
	}
	cp := *o
	return &cp, nil
}

// fakeBookings is an in-memory BookingStore that mirrors the seat
// ledger semantics: seat rows are unique per (bus, date, seat) and
// exist only while the booking occupies them.
type fakeBookings struct {
	mu       sync.Mutex
	nextID   uint64
	bookings map[uint64]*model.Booking
	seatRows map[string]uint64 // "bus|date|seat" -> booking id
	now      func() time.Time
}

func newFakeBookings() *fakeBookings {
	return &fakeBookings{
		bookings: make(map[uint64]*model.Booking),
		seatRows: make(map[string]uint64),
		now:      func() time.Time { return testNow },
	}
}

func seatKey(busID uint64, day, seat string) string {
	return fmt.Sprintf("%d|%s|%s", busID, day, seat)
}

func (f *fakeBookings) CreateWithSeats(_ context.Context, b *model.Booking, holdCutoff time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	day := b.JourneyDate.UTC().Format("2006-01-02")

	// Purge expired pending holds for this bus and day.
	for key, id := range f.seatRows {
		old := f.bookings[id]
		if old.BusID == b.BusID && old.JourneyDate.Equal(b.JourneyDate) &&
			old.Status == model.BookingStatusPendingPayment && old.CreatedAt.Before(holdCutoff) {
			delete(f.seatRows, key)
		}
	}
	for _, seat := range b.Seats {
		if _, taken := f.seatRows[seatKey(b.BusID, day, seat)]; taken {
			return repository.ErrSeatTaken
		}
	}
	f.nextID++
	b.ID = f.nextID
	b.CreatedAt = f.now()
	b.UpdatedAt = b.CreatedAt
	for _, seat := range b.Seats {
		f.seatRows[seatKey(b.BusID, day, seat)] = b.ID
	}
	cp := *b
	f.bookings[b.ID] = &cp
	return nil
}

func (f *fakeBookings) OccupiedSeats(_ context.Context, busID uint64, date time.Time, holdCutoff time.Time) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	day := date.UTC().Format("2006-01-02")
	var out []string
	for key, id := range f.seatRows {
		b := f.bookings[id]
		if b.BusID != busID || b.JourneyDate.UTC().Format("2006-01-02") != day {
			continue
		}
		occupies := b.Status == model.BookingStatusConfirmed ||
			(b.Status == model.BookingStatusPendingPayment && !b.CreatedAt.Before(holdCutoff))
		if occupies {
			parts := strings.Split(key, "|")
			out = append(out, parts[len(parts)-1])
		}
	}
	return out, nil
}

func (f *fakeBookings) GetByRef(_ context.Context, ref string) (*model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.bookings {
		if b.BookingRef == ref {
			cp := *b
			return &cp, nil
		}
	}
	return nil, repository.ErrBookingNotFound
}

func (f *fakeBookings) ListByUser(_ context.Context, userID uint64) ([]model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Booking
	for _, b := range f.bookings {
		if b.UserID == userID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (f *fakeBookings) ListAdmin(_ context.Context, _ repository.AdminFilter) ([]model.Booking, error) {
	return nil, nil
}

func (f *fakeBookings) Stats(_ context.Context) (model.BookingStats, error) {
	return model.BookingStats{}, nil
}

func (f *fakeBookings) CountConfirmedByOffer(_ context.Context, code string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, b := range f.bookings {
		if b.Status == model.BookingStatusConfirmed && b.Offer != nil && b.Offer.Code == code {
			n++
		}
	}
	return n, nil
}

func (f *fakeBookings) CountConfirmedByUserAndOffer(_ context.Context, userID uint64, code string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, b := range f.bookings {
		if b.UserID == userID && b.Status == model.BookingStatusConfirmed && b.Offer != nil && b.Offer.Code == code {
			n++
		}
	}
	return n, nil
}

func (f *fakeBookings) SetPaymentOrder(_ context.Context, id uint64, orderID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bookings[id].Payment.OrderID = orderID
	return nil
}

func (f *fakeBookings) MarkPaymentCompleted(_ context.Context, id uint64, orderID, paymentID, signature string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b := f.bookings[id]
	b.Payment = model.PaymentDetails{OrderID: orderID, PaymentID: paymentID, Signature: signature}
	b.PaymentStatus = model.PaymentStatusCompleted
	b.Status = model.BookingStatusConfirmed
	return nil
}

func (f *fakeBookings) MarkPaymentCollected(_ context.Context, id uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bookings[id].PaymentStatus = model.PaymentStatusCompleted
	return nil
}

func (f *fakeBookings) releaseSeats(id uint64) {
	for key, owner := range f.seatRows {
		if owner == id {
			delete(f.seatRows, key)
		}
	}
}

func (f *fakeBookings) FailPaymentAndRelease(_ context.Context, id uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b := f.bookings[id]
	b.PaymentStatus = model.PaymentStatusFailed
	b.Status = model.BookingStatusCancelled
	f.releaseSeats(id)
	return nil
}

func (f *fakeBookings) CancelAndRelease(_ context.Context, id uint64, reason string, refundCents int64, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b := f.bookings[id]
	b.Status = model.BookingStatusCancelled
	b.Cancellation = model.Cancellation{
		Cancelled:         true,
		CancelledAt:       &at,
		Reason:            reason,
		RefundAmountCents: refundCents,
		RefundStatus:      model.RefundStatusPending,
	}
	f.releaseSeats(id)
	return nil
}

func (f *fakeBookings) MarkRefundProcessed(_ context.Context, id uint64, refundID string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b := f.bookings[id]
	b.Cancellation.RefundStatus = model.RefundStatusProcessed
	b.Cancellation.RefundID = refundID
	b.Cancellation.RefundProcessedAt = &at
	b.PaymentStatus = model.PaymentStatusRefunded
	return nil
}

type fakeGateway struct {
	mu          sync.Mutex
	verifyOK    bool
	orderCalls  int
	refundCalls int
	failRefund  bool
}

func (g *fakeGateway) CreateOrder(_ context.Context, amountCents int64, ref string) (*payment.Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.orderCalls++
	return &payment.Order{OrderID: fmt.Sprintf("order_%d", g.orderCalls), AmountCents: amountCents, Currency: "INR"}, nil
}

func (g *fakeGateway) VerifySignature(_, _, _ string) bool { return g.verifyOK }

func (g *fakeGateway) RefundPayment(_ context.Context, paymentID string, amountCents int64) (*payment.Refund, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failRefund {
		return nil, &payment.GatewayError{Op: "refund", Status: 502}
	}
	g.refundCalls++
	return &payment.Refund{RefundID: "rfnd_1", AmountCents: amountCents}, nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []queue.Event
}

func (p *fakePublisher) Publish(_ context.Context, evt queue.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return nil
}

func (p *fakePublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

// ----- fixture -----

type fixture struct {
	svc      *Service
	bookings *fakeBookings
	gateway  *fakeGateway
	events   *fakePublisher
}

func newFixture() *fixture {
	buses := &fakeBuses{buses: map[uint64]*model.Bus{
		1: {ID: 1, BusName: "Shivneri Express", BusNumber: "MH12AB1234", FromCity: "Mumbai", ToCity: "Pune",
			PriceCents: 500, TotalSeats: 40, Status: model.BusStatusActive},
		2: {ID: 2, BusName: "Depot Spare", BusNumber: "MH12XX0001", FromCity: "Mumbai", ToCity: "Pune",
			PriceCents: 500, TotalSeats: 40, Status: model.BusStatusMaintenance},
	}}
	users := &fakeUsers{users: map[uint64]*model.User{
		10: {ID: 10, Name: "Asha", Email: "asha@example.com", Role: model.RoleUser},
		11: {ID: 11, Name: "Ravi", Email: "ravi@example.com", Role: model.RoleUser},
	}}
	offers := &fakeOffers{offers: map[string]*model.Offer{
		"SAVE10": {ID: 1, Code: "SAVE10", DiscountType: model.DiscountTypePercentage, DiscountValue: 10,
			MaxDiscountCents: 100, IsActive: true,
			ValidFrom: testNow.Add(-24 * time.Hour), ValidTill: testNow.Add(24 * time.Hour)},
	}}
	bookings := newFakeBookings()
	gw := &fakeGateway{verifyOK: true}
	pub := &fakePublisher{}

	svc := New(buses, users, offers, bookings, ledger.New(bookings, holdTTL), gw, pub)
	svc.Now = func() time.Time { return testNow }
	return &fixture{svc: svc, bookings: bookings, gateway: gw, events: pub}
}

func validInput() CreateInput {
	return CreateInput{
		BusID:         1,
		Passenger:     model.PassengerDetails{Name: "Asha", Age: 30, Gender: "Female", Phone: "9876543210"},
		Seats:         []string{"S1", "S2"},
		JourneyDate:   "2026-06-01",
		BoardingPoint: "Dadar",
		DroppingPoint: "Shivajinagar",
		PaymentMethod: model.PaymentMethodCash,
	}
}

// ----- tests -----

func TestCreateCashBooking(t *testing.T) {
	f := newFixture()

	b, err := f.svc.Create(context.Background(), 10, validInput())
	require.NoError(t, err)
	assert.Equal(t, int64(1000), b.TotalAmountCents)
	assert.Equal(t, model.BookingStatusConfirmed, b.Status)
	assert.Equal(t, model.PaymentStatusPending, b.PaymentStatus)
	assert.True(t, len(b.BookingRef) > 3 && b.BookingRef[:3] == "BKG")
	assert.Equal(t, []string{queue.EventBookingConfirmed}, f.events.types())
}

func TestCreateRejectsOverlappingSeats(t *testing.T) {
	f := newFixture()
	_, err := f.svc.Create(context.Background(), 10, validInput())
	require.NoError(t, err)

	in := validInput()
	in.Seats = []string{"S2", "S3"}
	_, err = f.svc.Create(context.Background(), 11, in)

	var conflict *ledger.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, []string{"S2"}, conflict.Seats)
}

func TestCreateIsDateScoped(t *testing.T) {
	f := newFixture()
	_, err := f.svc.Create(context.Background(), 10, validInput())
	require.NoError(t, err)

	in := validInput()
	in.JourneyDate = "2026-06-02"
	_, err = f.svc.Create(context.Background(), 11, in)
	assert.NoError(t, err)
}

func TestCreateValidationOrder(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	in := validInput()
	in.BoardingPoint = ""
	_, err := f.svc.Create(ctx, 10, in)
	assert.ErrorIs(t, err, ErrMissingFields)

	in = validInput()
	in.Passenger.Age = 130
	_, err = f.svc.Create(ctx, 10, in)
	assert.ErrorIs(t, err, ErrInvalidPassenger)

	in = validInput()
	in.PaymentMethod = "upi"
	_, err = f.svc.Create(ctx, 10, in)
	assert.ErrorIs(t, err, ErrInvalidPayment)

	in = validInput()
	in.JourneyDate = "2026-05-19"
	_, err = f.svc.Create(ctx, 10, in)
	assert.ErrorIs(t, err, ErrInvalidDate)

	in = validInput()
	in.BusID = 99
	_, err = f.svc.Create(ctx, 10, in)
	assert.ErrorIs(t, err, repository.ErrBusNotFound)

	in = validInput()
	in.BusID = 2
	_, err = f.svc.Create(ctx, 10, in)
	assert.ErrorIs(t, err, ErrBusUnavailable)

	in = validInput()
	in.Seats = []string{"S1", "S2", "S3", "S4", "S5", "S6"}
	_, err = f.svc.Create(ctx, 10, in)
	assert.ErrorIs(t, err, ErrInvalidSeats)

	in = validInput()
	in.Seats = []string{"S1", "S1"}
	_, err = f.svc.Create(ctx, 10, in)
	assert.ErrorIs(t, err, ErrInvalidSeats)

	in = validInput()
	in.Seats = []string{"S99"}
	var invalid *ledger.InvalidSeatError
	_, err = f.svc.Create(ctx, 10, in)
	assert.ErrorAs(t, err, &invalid)
}

func TestCreateAppliesOffer(t *testing.T) {
	f := newFixture()
	in := validInput()
	in.OfferCode = "SAVE10"

	b, err := f.svc.Create(context.Background(), 10, in)
	require.NoError(t, err)
	require.NotNil(t, b.Offer)
	assert.Equal(t, "SAVE10", b.Offer.Code)
	assert.Equal(t, int64(100), b.Offer.DiscountCents) // 10% of 1000, capped at 100
	assert.Equal(t, int64(1000), b.Offer.OriginalAmountCents)
	assert.Equal(t, int64(900), b.TotalAmountCents)
}

func TestCreateRejectsBadOfferCode(t *testing.T) {
	f := newFixture()
	in := validInput()
	in.OfferCode = "NOPE"

	_, err := f.svc.Create(context.Background(), 10, in)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OFFER_NOT_FOUND")
}

func TestConcurrentCreatesOnlyOneWins(t *testing.T) {
	f := newFixture()
	const n = 8

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Create(context.Background(), 10, validInput())
		}(i)
	}
	wg.Wait()

	okCount := 0
	for _, err := range errs {
		if err == nil {
			okCount++
			continue
		}
		var conflict *ledger.ConflictError
		assert.ErrorAs(t, err, &conflict)
	}
	assert.Equal(t, 1, okCount)
}

func TestOnlineBookingPaymentFlow(t *testing.T) {
	f := newFixture()
	in := validInput()
	in.PaymentMethod = model.PaymentMethodOnline

	b, err := f.svc.Create(context.Background(), 10, in)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusPendingPayment, b.Status)
	assert.Empty(t, f.events.types()) // nothing confirmed yet

	order, err := f.svc.CreatePaymentOrder(context.Background(), 10, b.BookingRef)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), order.AmountCents)

	got, err := f.svc.VerifyPayment(context.Background(), 10, b.BookingRef, order.OrderID, "pay_1", "sig")
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusConfirmed, got.Status)
	assert.Equal(t, model.PaymentStatusCompleted, got.PaymentStatus)
	assert.Equal(t, []string{queue.EventBookingConfirmed}, f.events.types())
}

func TestVerifyPaymentMismatchCancelsAndReleases(t *testing.T) {
	f := newFixture()
	f.gateway.verifyOK = false

	in := validInput()
	in.PaymentMethod = model.PaymentMethodOnline
	b, err := f.svc.Create(context.Background(), 10, in)
	require.NoError(t, err)

	order, err := f.svc.CreatePaymentOrder(context.Background(), 10, b.BookingRef)
	require.NoError(t, err)

	_, err = f.svc.VerifyPayment(context.Background(), 10, b.BookingRef, order.OrderID, "pay_1", "bad")
	assert.ErrorIs(t, err, ErrSignatureMismatch)

	got, err := f.svc.Get(context.Background(), 10, "", b.BookingRef)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusCancelled, got.Status)
	assert.Equal(t, model.PaymentStatusFailed, got.PaymentStatus)

	// The seats are free again.
	_, err = f.svc.Create(context.Background(), 11, validInput())
	assert.NoError(t, err)
}

func TestExpiredHoldStopsOccupyingAndFailsPayment(t *testing.T) {
	f := newFixture()
	in := validInput()
	in.PaymentMethod = model.PaymentMethodOnline
	b, err := f.svc.Create(context.Background(), 10, in)
	require.NoError(t, err)

	// Move the clock past the hold window.
	later := testNow.Add(holdTTL + time.Minute)
	f.svc.Now = func() time.Time { return later }

	// Another customer can take the seats now.
	_, err = f.svc.Create(context.Background(), 11, validInput())
	require.NoError(t, err)

	// The expired booking can no longer take a payment.
	_, err = f.svc.CreatePaymentOrder(context.Background(), 10, b.BookingRef)
	assert.ErrorIs(t, err, ErrHoldExpired)
}

func TestCancelComputesRefundOnce(t *testing.T) {
	f := newFixture()
	b, err := f.svc.Create(context.Background(), 10, validInput())
	require.NoError(t, err)

	got, err := f.svc.Cancel(context.Background(), 10, model.RoleUser, b.BookingRef, "change of plans")
	require.NoError(t, err)
	assert.Equal(t, int64(800), got.Cancellation.RefundAmountCents) // 80% of 1000
	assert.Equal(t, model.RefundStatusPending, got.Cancellation.RefundStatus)

	// Second cancel is a state conflict and the refund is untouched.
	_, err = f.svc.Cancel(context.Background(), 10, model.RoleUser, b.BookingRef, "again")
	assert.ErrorIs(t, err, ErrAlreadyCancelled)

	stored, err := f.svc.Get(context.Background(), 10, "", b.BookingRef)
	require.NoError(t, err)
	assert.Equal(t, int64(800), stored.Cancellation.RefundAmountCents)
}

func TestCancelRequiresFutureJourney(t *testing.T) {
	f := newFixture()
	in := validInput()
	in.JourneyDate = "2026-05-20" // journey is today
	b, err := f.svc.Create(context.Background(), 10, in)
	require.NoError(t, err)

	_, err = f.svc.Cancel(context.Background(), 10, model.RoleUser, b.BookingRef, "too late")
	assert.ErrorIs(t, err, ErrJourneyNotFuture)
}

func TestCancelForbiddenForOtherUsers(t *testing.T) {
	f := newFixture()
	b, err := f.svc.Create(context.Background(), 10, validInput())
	require.NoError(t, err)

	_, err = f.svc.Cancel(context.Background(), 11, model.RoleUser, b.BookingRef, "not mine")
	assert.ErrorIs(t, err, repository.ErrForbidden)

	// Admins may cancel on behalf of users.
	_, err = f.svc.Cancel(context.Background(), 11, model.RoleAdmin, b.BookingRef, "ops")
	assert.NoError(t, err)
}

func TestRefundIsIdempotent(t *testing.T) {
	f := newFixture()
	in := validInput()
	in.PaymentMethod = model.PaymentMethodOnline
	b, err := f.svc.Create(context.Background(), 10, in)
	require.NoError(t, err)

	order, err := f.svc.CreatePaymentOrder(context.Background(), 10, b.BookingRef)
	require.NoError(t, err)
	_, err = f.svc.VerifyPayment(context.Background(), 10, b.BookingRef, order.OrderID, "pay_1", "sig")
	require.NoError(t, err)
	_, err = f.svc.Cancel(context.Background(), 10, model.RoleUser, b.BookingRef, "refund me")
	require.NoError(t, err)

	refund, err := f.svc.Refund(context.Background(), 10, model.RoleUser, b.BookingRef)
	require.NoError(t, err)
	assert.Equal(t, int64(800), refund.AmountCents)
	assert.Equal(t, 1, f.gateway.refundCalls)

	_, err = f.svc.Refund(context.Background(), 10, model.RoleUser, b.BookingRef)
	assert.ErrorIs(t, err, ErrRefundProcessed)
	assert.Equal(t, 1, f.gateway.refundCalls)
}

func TestRefundRetriableAfterGatewayFailure(t *testing.T) {
	f := newFixture()
	in := validInput()
	in.PaymentMethod = model.PaymentMethodOnline
	b, err := f.svc.Create(context.Background(), 10, in)
	require.NoError(t, err)

	order, err := f.svc.CreatePaymentOrder(context.Background(), 10, b.BookingRef)
	require.NoError(t, err)
	_, err = f.svc.VerifyPayment(context.Background(), 10, b.BookingRef, order.OrderID, "pay_1", "sig")
	require.NoError(t, err)
	_, err = f.svc.Cancel(context.Background(), 10, model.RoleUser, b.BookingRef, "refund me")
	require.NoError(t, err)

	f.gateway.failRefund = true
	_, err = f.svc.Refund(context.Background(), 10, model.RoleUser, b.BookingRef)
	var gwErr *payment.GatewayError
	require.ErrorAs(t, err, &gwErr)

	// Still pending, so the retry goes through.
	f.gateway.failRefund = false
	_, err = f.svc.Refund(context.Background(), 10, model.RoleUser, b.BookingRef)
	assert.NoError(t, err)
}

func TestCashRefundNotAvailable(t *testing.T) {
	f := newFixture()
	b, err := f.svc.Create(context.Background(), 10, validInput())
	require.NoError(t, err)
	_, err = f.svc.Cancel(context.Background(), 10, model.RoleUser, b.BookingRef, "cash back")
	require.NoError(t, err)

	_, err = f.svc.Refund(context.Background(), 10, model.RoleUser, b.BookingRef)
	assert.ErrorIs(t, err, ErrNotRefundable)
}

func TestPaymentBookingConvergence(t *testing.T) {
	// A booking never ends in {completed, cancelled} or
	// {failed, confirmed}.
	f := newFixture()
	ctx := context.Background()

	in := validInput()
	in.PaymentMethod = model.PaymentMethodOnline
	b1, err := f.svc.Create(ctx, 10, in)
	require.NoError(t, err)
	order, err := f.svc.CreatePaymentOrder(ctx, 10, b1.BookingRef)
	require.NoError(t, err)
	_, err = f.svc.VerifyPayment(ctx, 10, b1.BookingRef, order.OrderID, "pay_1", "sig")
	require.NoError(t, err)

	f.gateway.verifyOK = false
	in2 := validInput()
	in2.Seats = []string{"S5"}
	in2.PaymentMethod = model.PaymentMethodOnline
	b2, err := f.svc.Create(ctx, 11, in2)
	require.NoError(t, err)
	order2, err := f.svc.CreatePaymentOrder(ctx, 11, b2.BookingRef)
	require.NoError(t, err)
	_, _ = f.svc.VerifyPayment(ctx, 11, b2.BookingRef, order2.OrderID, "pay_2", "bad")

	for _, stored := range f.bookings.bookings {
		completedAndCancelled := stored.PaymentStatus == model.PaymentStatusCompleted &&
			stored.Status == model.BookingStatusCancelled
		failedAndConfirmed := stored.PaymentStatus == model.PaymentStatusFailed &&
			stored.Status == model.BookingStatusConfirmed
		assert.False(t, completedAndCancelled, "booking %s", stored.BookingRef)
		assert.False(t, failedAndConfirmed, "booking %s", stored.BookingRef)
	}
}

func TestConfirmCash(t *testing.T) {
	f := newFixture()
	b, err := f.svc.Create(context.Background(), 10, validInput())
	require.NoError(t, err)

	got, err := f.svc.ConfirmCash(context.Background(), 10, model.RoleUser, b.BookingRef)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusCompleted, got.PaymentStatus)

	_, err = f.svc.ConfirmCash(context.Background(), 10, model.RoleUser, b.BookingRef)
	assert.ErrorIs(t, err, ErrAlreadyPaid)
}

func TestBookingRefFormat(t *testing.T) {
	const alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	ts := strings.ToUpper(strconv.FormatInt(testNow.UnixMilli(), 36))

	ref := newBookingRef(testNow)
	require.Len(t, ref, 3+len(ts)+6)
	assert.Equal(t, "BKG"+ts, ref[:3+len(ts)])
	for _, ch := range ref[3+len(ts):] {
		assert.Contains(t, alphabet, string(ch))
	}

	// Two refs minted at the same instant differ in the random suffix.
	assert.NotEqual(t, ref, newBookingRef(testNow))
}
