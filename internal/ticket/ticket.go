// Package ticket renders e-tickets as PDF documents.  Generation is
// on demand for confirmed bookings and never sits on the booking
// critical path.
package ticket

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/phpdave11/gofpdf"

	"github.com/iliyamo/bus-ticket-reservation/internal/model"
)

// ErrNotConfirmed is returned when a ticket is requested for a booking
// that is not confirmed.
var ErrNotConfirmed = fmt.Errorf("tickets are only available for confirmed bookings")

// Generate renders the e-ticket for a confirmed booking and returns
// the PDF bytes plus a suggested filename.  b.Bus must be resolved.
func Generate(b *model.Booking) ([]byte, string, error) {
	if b.Status != model.BookingStatusConfirmed {
		return nil, "", ErrNotConfirmed
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("E-Ticket "+b.BookingRef, false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 12, "Bus E-Ticket")
	pdf.Ln(14)

	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 7, "Booking Reference: "+b.BookingRef)
	pdf.Ln(10)

	rows := [][2]string{
		{"Passenger", fmt.Sprintf("%s (%d, %s)", b.Passenger.Name, b.Passenger.Age, b.Passenger.Gender)},
		{"Phone", b.Passenger.Phone},
		{"Journey Date", b.JourneyDate.UTC().Format("02 Jan 2006")},
		{"Seats", strings.Join(b.Seats, ", ")},
		{"Boarding Point", b.BoardingPoint},
		{"Dropping Point", b.DroppingPoint},
		{"Amount", fmt.Sprintf("Rs. %d.%02d", b.TotalAmountCents/100, b.TotalAmountCents%100)},
		{"Payment", fmt.Sprintf("%s (%s)", b.PaymentMethod, b.PaymentStatus)},
	}
	if b.Bus != nil {
		busRows := [][2]string{
			{"Bus", fmt.Sprintf("%s (%s)", b.Bus.BusName, b.Bus.BusNumber)},
			{"Route", fmt.Sprintf("%s to %s", b.Bus.FromCity, b.Bus.ToCity)},
			{"Departure", b.Bus.DepartureTime},
			{"Arrival", b.Bus.ArrivalTime},
		}
		rows = append(busRows, rows...)
	}

	for _, row := range rows {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.Cell(45, 7, row[0])
		pdf.SetFont("Helvetica", "", 10)
		pdf.Cell(0, 7, row[1])
		pdf.Ln(7)
	}

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "I", 9)
	pdf.MultiCell(0, 5, "Please arrive at the boarding point 15 minutes before departure. "+
		"Carry a valid photo ID along with this ticket. This is a computer-generated "+
		"document and does not require a signature.", "", "L", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, "", fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), fmt.Sprintf("ticket_%s.pdf", b.BookingRef), nil
}
