package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/bus-ticket-reservation/internal/model"
)

// BookingRepo provides data access to the bookings table and the
// booking_seats ledger rows.  A booking row is permanent history; its
// booking_seats rows exist only while the booking occupies seats and
// are deleted when the booking is cancelled, its payment fails, or a
// pending-payment hold expires.
//
// The UNIQUE (bus_id, journey_date, seat_number) key on booking_seats
// is the cross-instance guard against double booking: two transactions
// inserting overlapping seats for the same bus and date cannot both
// commit.  Journey dates are stored as DATE columns, so the day-bucket
// normalisation required for occupancy happens at write time.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

const bookingColumns = `id, booking_ref, user_id, bus_id,
	passenger_name, passenger_age, passenger_gender, passenger_phone,
	seats, journey_date, boarding_point, dropping_point,
	total_amount_cents, offer_code, offer_discount_cents, original_amount_cents,
	payment_method, payment_status, status,
	payment_order_id, payment_id, payment_signature,
	cancelled_at, cancellation_reason, refund_amount_cents, refund_status,
	refund_id, refund_processed_at, created_at, updated_at`

const dateFormat = "2006-01-02"

// CreateWithSeats inserts the booking and its seat ledger rows in one
// transaction.  Before inserting it purges seat rows of expired
// pending-payment bookings for the same bus and date, so abandoned
// holds never block a new reservation.  A unique-key collision on the
// seat rows is reported as ErrSeatTaken; the caller decides how to
// surface the conflict.
func (r *BookingRepo) CreateWithSeats(ctx context.Context, b *model.Booking, holdCutoff time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	day := b.JourneyDate.UTC().Format(dateFormat)
	if err := purgeExpiredHoldsTx(ctx, tx, b.BusID, day, holdCutoff); err != nil {
		return err
	}

	const q = `INSERT INTO bookings (booking_ref, user_id, bus_id,
		passenger_name, passenger_age, passenger_gender, passenger_phone,
		seats, journey_date, boarding_point, dropping_point,
		total_amount_cents, offer_code, offer_discount_cents, original_amount_cents,
		payment_method, payment_status, status, refund_status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	var offerCode sql.NullString
	var discount, original int64
	if b.Offer != nil {
		offerCode = sql.NullString{String: b.Offer.Code, Valid: true}
		discount = b.Offer.DiscountCents
		original = b.Offer.OriginalAmountCents
	}
	res, err := tx.ExecContext(ctx, q,
		b.BookingRef, b.UserID, b.BusID,
		b.Passenger.Name, b.Passenger.Age, b.Passenger.Gender, b.Passenger.Phone,
		strings.Join(b.Seats, ","), day, b.BoardingPoint, b.DroppingPoint,
		b.TotalAmountCents, offerCode, discount, original,
		b.PaymentMethod, b.PaymentStatus, b.Status, model.RefundStatusPending,
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)

	seatQ := `INSERT INTO booking_seats (booking_id, bus_id, journey_date, seat_number) VALUES `
	args := make([]interface{}, 0, len(b.Seats)*4)
	for i, seat := range b.Seats {
		if i > 0 {
			seatQ += ","
		}
		seatQ += "(?, ?, ?, ?)"
		args = append(args, b.ID, b.BusID, day, seat)
	}
	if _, err := tx.ExecContext(ctx, seatQ, args...); err != nil {
		if isDuplicateKey(err) {
			return ErrSeatTaken
		}
		return err
	}

	// Query back timestamps so the returned record matches the row.
	if err := tx.QueryRowContext(ctx,
		`SELECT created_at, updated_at FROM bookings WHERE id = ?`, b.ID,
	).Scan(&b.CreatedAt, &b.UpdatedAt); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// purgeExpiredHoldsTx deletes the seat rows of pending-payment bookings
// older than the hold cutoff for one bus and day.  The bookings
// themselves are left in place; an expired booking that later completes
// payment verification is handled by the service, not here.
func purgeExpiredHoldsTx(ctx context.Context, tx *sql.Tx, busID uint64, day string, cutoff time.Time) error {
	const q = `DELETE bs FROM booking_seats bs
		JOIN bookings bk ON bk.id = bs.booking_id
		WHERE bs.bus_id = ? AND bs.journey_date = ?
		AND bk.status = ? AND bk.created_at < ?`
	_, err := tx.ExecContext(ctx, q, busID, day, model.BookingStatusPendingPayment, cutoff.UTC())
	return err
}

// OccupiedSeats returns the seat identifiers occupied on the given bus
// and calendar date: seats of confirmed bookings plus seats of
// pending-payment bookings still inside the hold window.  Cancelled
// bookings never contribute because their seat rows are deleted on
// cancellation.
func (r *BookingRepo) OccupiedSeats(ctx context.Context, busID uint64, date time.Time, holdCutoff time.Time) ([]string, error) {
	const q = `SELECT bs.seat_number FROM booking_seats bs
		JOIN bookings bk ON bk.id = bs.booking_id
		WHERE bs.bus_id = ? AND bs.journey_date = ?
		AND (bk.status = ? OR (bk.status = ? AND bk.created_at >= ?))`
	rows, err := r.db.QueryContext(ctx, q,
		busID, date.UTC().Format(dateFormat),
		model.BookingStatusConfirmed, model.BookingStatusPendingPayment, holdCutoff.UTC(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	seats := make([]string, 0)
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		seats = append(seats, s)
	}
	return seats, rows.Err()
}

// GetByRef returns the booking with the given human-readable reference.
func (r *BookingRepo) GetByRef(ctx context.Context, ref string) (*model.Booking, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE booking_ref = ?`, ref)
	return scanBooking(row)
}

// ListByUser returns all bookings owned by the user, newest first.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Booking, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBookings(rows)
}

// AdminFilter narrows the admin booking listing.  Zero values are
// ignored.
type AdminFilter struct {
	Status   string
	BusID    uint64
	FromDate time.Time
	ToDate   time.Time
}

// ListAdmin returns bookings matching the filter, newest first.
func (r *BookingRepo) ListAdmin(ctx context.Context, f AdminFilter) ([]model.Booking, error) {
	q := `SELECT ` + bookingColumns + ` FROM bookings WHERE 1=1`
	args := make([]interface{}, 0, 4)
	if f.Status != "" {
		q += ` AND status = ?`
		args = append(args, f.Status)
	}
	if f.BusID != 0 {
		q += ` AND bus_id = ?`
		args = append(args, f.BusID)
	}
	if !f.FromDate.IsZero() {
		q += ` AND journey_date >= ?`
		args = append(args, f.FromDate.UTC().Format(dateFormat))
	}
	if !f.ToDate.IsZero() {
		q += ` AND journey_date <= ?`
		args = append(args, f.ToDate.UTC().Format(dateFormat))
	}
	q += ` ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBookings(rows)
}

// Stats aggregates booking counters for the admin dashboard.  Revenue
// and refunds are recomputed from the booking rows on every call
// rather than maintained incrementally.
func (r *BookingRepo) Stats(ctx context.Context) (model.BookingStats, error) {
	var s model.BookingStats
	const q = `SELECT COUNT(*),
		COALESCE(SUM(status = ?), 0),
		COALESCE(SUM(status = ?), 0),
		COALESCE(SUM(CASE WHEN status = ? THEN total_amount_cents ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN status = ? THEN refund_amount_cents ELSE 0 END), 0)
		FROM bookings`
	err := r.db.QueryRowContext(ctx, q,
		model.BookingStatusConfirmed, model.BookingStatusCancelled,
		model.BookingStatusConfirmed, model.BookingStatusCancelled,
	).Scan(&s.TotalBookings, &s.ConfirmedBookings, &s.CancelledBookings,
		&s.TotalRevenueCents, &s.TotalRefundsCents)
	return s, err
}

// CountConfirmedByOffer returns how many confirmed bookings carry the
// offer code.  This is the authoritative global usage counter for
// offers (no stored used_count).
func (r *BookingRepo) CountConfirmedByOffer(ctx context.Context, code string) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bookings WHERE offer_code = ? AND status = ?`,
		code, model.BookingStatusConfirmed,
	).Scan(&n)
	return n, err
}

// CountConfirmedByUserAndOffer returns how many confirmed bookings of
// one user carry the offer code, for per-user usage limits.
func (r *BookingRepo) CountConfirmedByUserAndOffer(ctx context.Context, userID uint64, code string) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bookings WHERE user_id = ? AND offer_code = ? AND status = ?`,
		userID, code, model.BookingStatusConfirmed,
	).Scan(&n)
	return n, err
}

// SetPaymentOrder stores the gateway order id on a booking awaiting
// online payment.
func (r *BookingRepo) SetPaymentOrder(ctx context.Context, id uint64, orderID string) error {
	return r.exec(ctx, `UPDATE bookings SET payment_order_id = ? WHERE id = ?`, orderID, id)
}

// MarkPaymentCompleted records a verified online payment: the payment
// correlation is stored, payment status moves to completed and the
// booking becomes confirmed.
func (r *BookingRepo) MarkPaymentCompleted(ctx context.Context, id uint64, orderID, paymentID, signature string) error {
	const q = `UPDATE bookings SET payment_status = ?, status = ?,
		payment_order_id = ?, payment_id = ?, payment_signature = ? WHERE id = ?`
	return r.exec(ctx, q, model.PaymentStatusCompleted, model.BookingStatusConfirmed,
		orderID, paymentID, signature, id)
}

// MarkPaymentCollected records an in-person cash payment against a
// confirmed booking.
func (r *BookingRepo) MarkPaymentCollected(ctx context.Context, id uint64) error {
	return r.exec(ctx, `UPDATE bookings SET payment_status = ? WHERE id = ?`,
		model.PaymentStatusCompleted, id)
}

// FailPaymentAndRelease handles a definitive payment failure: payment
// status becomes failed, the booking is cancelled and its seat rows are
// deleted so the seats free up immediately.  Both writes happen in one
// transaction.
func (r *BookingRepo) FailPaymentAndRelease(ctx context.Context, id uint64) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`UPDATE bookings SET payment_status = ?, status = ? WHERE id = ?`,
			model.PaymentStatusFailed, model.BookingStatusCancelled, id,
		); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM booking_seats WHERE booking_id = ?`, id)
		return err
	})
}

// CancelAndRelease marks a booking cancelled, records the cancellation
// sub-record (refund amount computed by the caller, refund status
// pending) and deletes the seat ledger rows, all in one transaction.
func (r *BookingRepo) CancelAndRelease(ctx context.Context, id uint64, reason string, refundCents int64, at time.Time) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		const q = `UPDATE bookings SET status = ?, cancelled_at = ?,
			cancellation_reason = ?, refund_amount_cents = ?, refund_status = ? WHERE id = ?`
		if _, err := tx.ExecContext(ctx, q,
			model.BookingStatusCancelled, at.UTC(), reason, refundCents,
			model.RefundStatusPending, id,
		); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM booking_seats WHERE booking_id = ?`, id)
		return err
	})
}

// MarkRefundProcessed records a successful gateway refund.  The refund
// amount itself is immutable once set by CancelAndRelease.
func (r *BookingRepo) MarkRefundProcessed(ctx context.Context, id uint64, refundID string, at time.Time) error {
	const q = `UPDATE bookings SET refund_status = ?, refund_id = ?,
		refund_processed_at = ?, payment_status = ? WHERE id = ?`
	return r.exec(ctx, q, model.RefundStatusProcessed, refundID, at.UTC(),
		model.PaymentStatusRefunded, id)
}

func (r *BookingRepo) exec(ctx context.Context, q string, args ...interface{}) error {
	_, err := r.db.ExecContext(ctx, q, args...)
	return err
}

func (r *BookingRepo) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

func collectBookings(rows *sql.Rows) ([]model.Booking, error) {
	out := make([]model.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func scanBooking(row rowScanner) (*model.Booking, error) {
	var b model.Booking
	var seats string
	var offerCode, reason, orderID, paymentID, signature, refundID sql.NullString
	var discount, original, refundCents sql.NullInt64
	var refundStatus sql.NullString
	var cancelledAt, refundAt sql.NullTime
	err := row.Scan(
		&b.ID, &b.BookingRef, &b.UserID, &b.BusID,
		&b.Passenger.Name, &b.Passenger.Age, &b.Passenger.Gender, &b.Passenger.Phone,
		&seats, &b.JourneyDate, &b.BoardingPoint, &b.DroppingPoint,
		&b.TotalAmountCents, &offerCode, &discount, &original,
		&b.PaymentMethod, &b.PaymentStatus, &b.Status,
		&orderID, &paymentID, &signature,
		&cancelledAt, &reason, &refundCents, &refundStatus,
		&refundID, &refundAt, &b.CreatedAt, &b.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}
	if seats != "" {
		b.Seats = strings.Split(seats, ",")
	} else {
		b.Seats = []string{}
	}
	if offerCode.Valid {
		b.Offer = &model.OfferApplied{
			Code:                offerCode.String,
			DiscountCents:       discount.Int64,
			OriginalAmountCents: original.Int64,
		}
	}
	b.Payment = model.PaymentDetails{
		OrderID:   orderID.String,
		PaymentID: paymentID.String,
		Signature: signature.String,
	}
	if b.Status == model.BookingStatusCancelled {
		b.Cancellation.Cancelled = true
		if cancelledAt.Valid {
			t := cancelledAt.Time
			b.Cancellation.CancelledAt = &t
		}
		b.Cancellation.Reason = reason.String
		b.Cancellation.RefundAmountCents = refundCents.Int64
		b.Cancellation.RefundStatus = refundStatus.String
		b.Cancellation.RefundID = refundID.String
		if refundAt.Valid {
			t := refundAt.Time
			b.Cancellation.RefundProcessedAt = &t
		}
	}
	return &b, nil
}
