// Package email sends booking notifications over SMTP.  Delivery is
// best effort; callers log failures and move on.
package email

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/iliyamo/bus-ticket-reservation/internal/queue"
)

// Sender delivers notification emails through a plain SMTP relay.
type Sender struct {
	host string
	port string
	from string
	auth smtp.Auth
}

// NewSender configures a Sender.  Auth is skipped when user is empty,
// which suits local relays such as mailhog.
func NewSender(host, port, user, pass, from string) *Sender {
	s := &Sender{host: host, port: port, from: from}
	if user != "" {
		s.auth = smtp.PlainAuth("", user, pass, host)
	}
	return s
}

// Notify sends the notification matching the event type.  Unknown
// event types are ignored.
func (s *Sender) Notify(ev queue.Event) error {
	switch ev.Type {
	case queue.EventBookingConfirmed:
		return s.send(ev.UserEmail, "Booking Confirmed - "+ev.BookingRef, confirmationBody(ev))
	case queue.EventBookingCancelled:
		return s.send(ev.UserEmail, "Booking Cancelled - "+ev.BookingRef, cancellationBody(ev))
	case queue.EventRefundProcessed:
		return s.send(ev.UserEmail, "Refund Processed - "+ev.BookingRef, refundBody(ev))
	case queue.EventPaymentFailed:
		return s.send(ev.UserEmail, "Payment Failed - "+ev.BookingRef, paymentFailedBody(ev))
	}
	return nil
}

func (s *Sender) send(to, subject, body string) error {
	if to == "" {
		return fmt.Errorf("no recipient address")
	}
	msg := strings.Join([]string{
		"From: " + s.from,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"utf-8\"",
		"",
		body,
	}, "\r\n")
	addr := s.host + ":" + s.port
	if err := smtp.SendMail(addr, s.auth, s.from, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("smtp send to %s: %w", to, err)
	}
	return nil
}

func confirmationBody(ev queue.Event) string {
	return fmt.Sprintf(`Dear %s,

Your bus ticket has been booked successfully.

Booking Reference: %s
Bus: %s
Route: %s to %s
Journey Date: %s
Seats: %s
Amount Paid: %s

Please arrive at the boarding point 15 minutes before departure.
Carry a valid ID proof along with this confirmation.

Happy journey!
`, ev.UserName, ev.BookingRef, ev.BusName, ev.FromCity, ev.ToCity,
		ev.JourneyDate, strings.Join(ev.Seats, ", "), formatAmount(ev.AmountCents))
}

func cancellationBody(ev queue.Event) string {
	return fmt.Sprintf(`Dear %s,

Your booking %s for %s (%s to %s) on %s has been cancelled.

Refund Amount: %s
The refund will be credited to your original payment method within 5-7 business days.

We hope to serve you again.
`, ev.UserName, ev.BookingRef, ev.BusName, ev.FromCity, ev.ToCity,
		ev.JourneyDate, formatAmount(ev.RefundCents))
}

func refundBody(ev queue.Event) string {
	return fmt.Sprintf(`Dear %s,

The refund of %s for booking %s has been processed.

It may take a few business days to reflect in your account.
`, ev.UserName, formatAmount(ev.RefundCents), ev.BookingRef)
}

func paymentFailedBody(ev queue.Event) string {
	return fmt.Sprintf(`Dear %s,

The payment for booking %s could not be verified and the booking has
been cancelled. Your seats have been released. No amount captured by
us will be retained.

You can make a fresh booking at any time.
`, ev.UserName, ev.BookingRef)
}

// formatAmount renders minor units as a currency string with two
// decimal places.
func formatAmount(cents int64) string {
	return fmt.Sprintf("Rs. %d.%02d", cents/100, cents%100)
}
