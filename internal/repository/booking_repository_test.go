package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/bus-ticket-reservation/internal/model"
)

var (
	journeyDay = time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	cutoff     = time.Date(2026, 5, 20, 9, 50, 0, 0, time.UTC)
)

func newBooking() *model.Booking {
	return &model.Booking{
		BookingRef:       "BKGTEST123",
		UserID:           10,
		BusID:            1,
		Passenger:        model.PassengerDetails{Name: "Asha", Age: 30, Gender: "Female", Phone: "9876543210"},
		Seats:            []string{"S1", "S2"},
		JourneyDate:      journeyDay,
		BoardingPoint:    "Dadar",
		DroppingPoint:    "Shivajinagar",
		TotalAmountCents: 1000,
		PaymentMethod:    model.PaymentMethodCash,
		PaymentStatus:    model.PaymentStatusPending,
		Status:           model.BookingStatusConfirmed,
	}
}

func TestCreateWithSeats(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewBookingRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE bs FROM booking_seats bs")).
		WithArgs(uint64(1), "2026-06-01", model.BookingStatusPendingPayment, cutoff).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO bookings")).
		WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO booking_seats (booking_id, bus_id, journey_date, seat_number) VALUES (?, ?, ?, ?),(?, ?, ?, ?)")).
		WithArgs(uint64(7), uint64(1), "2026-06-01", "S1", uint64(7), uint64(1), "2026-06-01", "S2").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT created_at, updated_at FROM bookings WHERE id = ?")).
		WithArgs(uint64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).
			AddRow(cutoff.Add(10*time.Minute), cutoff.Add(10*time.Minute)))
	mock.ExpectCommit()

	b := newBooking()
	require.NoError(t, repo.CreateWithSeats(context.Background(), b, cutoff))
	assert.Equal(t, uint64(7), b.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateWithSeatsDuplicateKey(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewBookingRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE bs FROM booking_seats bs")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO bookings")).
		WillReturnResult(sqlmock.NewResult(8, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO booking_seats")).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})
	mock.ExpectRollback()

	err = repo.CreateWithSeats(context.Background(), newBooking(), cutoff)
	assert.ErrorIs(t, err, ErrSeatTaken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOccupiedSeats(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewBookingRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT bs.seat_number FROM booking_seats bs")).
		WithArgs(uint64(1), "2026-06-01",
			model.BookingStatusConfirmed, model.BookingStatusPendingPayment, cutoff).
		WillReturnRows(sqlmock.NewRows([]string{"seat_number"}).AddRow("S1").AddRow("S2"))

	seats, err := repo.OccupiedSeats(context.Background(), 1, journeyDay, cutoff)
	require.NoError(t, err)
	assert.Equal(t, []string{"S1", "S2"}, seats)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByRefNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewBookingRepo(db)

	mock.ExpectQuery("SELECT .+ FROM bookings WHERE booking_ref").
		WithArgs("BKGMISSING").
		WillReturnError(sql.ErrNoRows)

	_, err = repo.GetByRef(context.Background(), "BKGMISSING")
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestCancelAndReleaseRunsInOneTx(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewBookingRepo(db)

	at := time.Date(2026, 5, 21, 8, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE bookings SET status = ?")).
		WithArgs(model.BookingStatusCancelled, at, "changed plans", int64(800), model.RefundStatusPending, uint64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM booking_seats WHERE booking_id = ?")).
		WithArgs(uint64(7)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	err = repo.CancelAndRelease(context.Background(), 7, "changed plans", 800, at)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelAndReleaseRollsBackOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewBookingRepo(db)

	at := time.Now().UTC()
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE bookings SET status = ?")).
		WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	err = repo.CancelAndRelease(context.Background(), 7, "x", 800, at)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountConfirmedByOffer(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewBookingRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM bookings WHERE offer_code = ? AND status = ?")).
		WithArgs("SAVE10", model.BookingStatusConfirmed).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(42))

	n, err := repo.CountConfirmedByOffer(context.Background(), "SAVE10")
	require.NoError(t, err)
	assert.Equal(t, int64(42), n)
}
