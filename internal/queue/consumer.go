// Package queue publishes and consumes booking lifecycle events over
// RabbitMQ.  The consumer drives customer notifications and the
// booking audit log; both are best-effort side effects, never on the
// request path.
package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Notifier delivers a customer notification for one event.  A nil
// Notifier disables notifications; the audit log is still written.
type Notifier interface {
	Notify(evt Event) error
}

// StartEventConsumer connects to RabbitMQ, declares the durable
// booking.events queue and consumes it.  Each message is appended to
// logs/booking.log and handed to the notifier.  The function runs a
// reconnect loop with capped backoff and never returns; processing
// errors are logged and the offending message rejected without
// requeueing so the loop keeps moving.
func StartEventConsumer(url string, notifier Notifier) {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Printf("booking-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		if err := consumeLoop(conn, notifier); err != nil {
			log.Printf("booking-consumer: consume loop ended: %v; reconnecting", err)
			time.Sleep(2 * time.Second)
		}
	}
}

func consumeLoop(conn *amqp.Connection, notifier Notifier) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Printf("booking-consumer: set QoS failed: %v", err)
	}

	if _, err := ch.QueueDeclare(eventsQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := ch.Consume(eventsQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		if err := handleMessage(d.Body, notifier); err != nil {
			log.Printf("booking-consumer: handle message failed: %v", err)
			_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

func handleMessage(body []byte, notifier Notifier) error {
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if err := appendAuditLine(ev); err != nil {
		return err
	}
	if notifier != nil {
		// Notification failures are logged but never poison the
		// message; the audit line is already written.
		if err := notifier.Notify(ev); err != nil {
			log.Printf("booking-consumer: notify %s for %s failed: %v", ev.Type, ev.BookingRef, err)
		}
	}
	return nil
}

func appendAuditLine(ev Event) error {
	if err := os.MkdirAll("logs", 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	fpath := filepath.Join("logs", "booking.log")
	f, err := os.OpenFile(fpath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	seats := "[]"
	if len(ev.Seats) > 0 {
		seats = fmt.Sprintf("[%s]", strings.Join(ev.Seats, ","))
	}

	line := fmt.Sprintf("[%s] %s | booking_ref=%s | user=%q | bus=%q | route=\"%s -> %s\" | date=%s | total=%d cents | refund=%d cents | seats=%s\n",
		ev.OccurredAt.UTC().Format(time.RFC3339), ev.Type, ev.BookingRef, ev.UserName,
		ev.BusName, ev.FromCity, ev.ToCity, ev.JourneyDate, ev.AmountCents, ev.RefundCents, seats)

	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}
