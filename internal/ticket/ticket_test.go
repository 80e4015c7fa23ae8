package ticket

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/bus-ticket-reservation/internal/model"
)

func confirmedBooking() *model.Booking {
	return &model.Booking{
		BookingRef:       "BKGTEST123",
		Status:           model.BookingStatusConfirmed,
		Passenger:        model.PassengerDetails{Name: "Asha", Age: 30, Gender: "Female", Phone: "9876543210"},
		Seats:            []string{"S1", "S2"},
		JourneyDate:      time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
		BoardingPoint:    "Dadar",
		DroppingPoint:    "Shivajinagar",
		TotalAmountCents: 100000,
		PaymentMethod:    model.PaymentMethodCash,
		PaymentStatus:    model.PaymentStatusCompleted,
		Bus: &model.Bus{
			BusName: "Shivneri Express", BusNumber: "MH12AB1234",
			FromCity: "Mumbai", ToCity: "Pune",
			DepartureTime: "08:00", ArrivalTime: "12:00",
		},
	}
}

func TestGenerateProducesPDF(t *testing.T) {
	pdf, name, err := Generate(confirmedBooking())
	require.NoError(t, err)
	assert.Equal(t, "ticket_BKGTEST123.pdf", name)
	require.Greater(t, len(pdf), 4)
	assert.Equal(t, "%PDF", string(pdf[:4]))
}

func TestGenerateRequiresConfirmed(t *testing.T) {
	b := confirmedBooking()
	b.Status = model.BookingStatusPendingPayment
	_, _, err := Generate(b)
	assert.ErrorIs(t, err, ErrNotConfirmed)

	b.Status = model.BookingStatusCancelled
	_, _, err = Generate(b)
	assert.ErrorIs(t, err, ErrNotConfirmed)
}
