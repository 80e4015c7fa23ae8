// Package payment wraps the Razorpay REST API for order creation,
// payment signature verification and refunds.  All amounts are integer
// minor units end to end; the adapter never touches floating point.
package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// GatewayError reports a failed call to the payment gateway: a
// transport error or a non-2xx response.  A gateway failure never
// implies anything about the payment's state.
type GatewayError struct {
	Op     string
	Status int
	Err    error
}

func (e *GatewayError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("razorpay %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("razorpay %s: unexpected status %d", e.Op, e.Status)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// Order is a gateway order awaiting client-side payment capture.
type Order struct {
	OrderID     string `json:"order_id"`
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
}

// Refund is the gateway's record of a processed refund.
type Refund struct {
	RefundID    string `json:"refund_id"`
	AmountCents int64  `json:"amount_cents"`
}

// Client calls the Razorpay REST API.  BaseURL is configurable so
// tests can point it at a local server.
type Client struct {
	baseURL   string
	keyID     string
	keySecret string
	currency  string
	http      *http.Client
}

// NewClient returns a gateway client authenticated with the given key
// pair.  Calls time out after 15 seconds and fail closed.
func NewClient(baseURL, keyID, keySecret, currency string) *Client {
	return &Client{
		baseURL:   baseURL,
		keyID:     keyID,
		keySecret: keySecret,
		currency:  currency,
		http:      &http.Client{Timeout: 15 * time.Second},
	}
}

// CreateOrder registers a gateway order for the amount.  The receipt
// embeds the booking reference plus a random suffix so retried order
// creation never reuses a receipt.
func (c *Client) CreateOrder(ctx context.Context, amountCents int64, bookingRef string) (*Order, error) {
	payload := map[string]interface{}{
		"amount":   amountCents,
		"currency": c.currency,
		"receipt":  fmt.Sprintf("booking_%s_%s", bookingRef, uuid.NewString()[:8]),
	}
	var resp struct {
		ID       string `json:"id"`
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
	}
	if err := c.post(ctx, "createOrder", "/v1/orders", payload, &resp); err != nil {
		return nil, err
	}
	return &Order{OrderID: resp.ID, AmountCents: resp.Amount, Currency: resp.Currency}, nil
}

// VerifySignature recomputes the HMAC-SHA256 of "orderID|paymentID"
// with the key secret and compares it to the client-supplied signature
// in constant time.  A mismatch is an ordinary false, never an error.
func (c *Client) VerifySignature(orderID, paymentID, signature string) bool {
	mac := hmac.New(sha256.New, []byte(c.keySecret))
	fmt.Fprintf(mac, "%s|%s", orderID, paymentID)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// RefundPayment issues a partial or full refund against a captured
// payment.  Idempotency is the caller's responsibility: the booking's
// refund status must be checked before calling here.
func (c *Client) RefundPayment(ctx context.Context, paymentID string, amountCents int64) (*Refund, error) {
	payload := map[string]interface{}{"amount": amountCents}
	var resp struct {
		ID     string `json:"id"`
		Amount int64  `json:"amount"`
	}
	path := fmt.Sprintf("/v1/payments/%s/refund", paymentID)
	if err := c.post(ctx, "refund", path, payload, &resp); err != nil {
		return nil, err
	}
	return &Refund{RefundID: resp.ID, AmountCents: resp.Amount}, nil
}

func (c *Client) post(ctx context.Context, op, path string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return &GatewayError{Op: op, Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return &GatewayError{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.keyID, c.keySecret)

	resp, err := c.http.Do(req)
	if err != nil {
		return &GatewayError{Op: op, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return &GatewayError{Op: op, Status: resp.StatusCode}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &GatewayError{Op: op, Err: err}
	}
	return nil
}
