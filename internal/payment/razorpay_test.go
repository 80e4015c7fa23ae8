package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test_secret"

func signFor(orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(testSecret))
	fmt.Fprintf(mac, "%s|%s", orderID, paymentID)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	c := NewClient("http://unused", "key", testSecret, "INR")

	good := signFor("order_123", "pay_456")
	assert.True(t, c.VerifySignature("order_123", "pay_456", good))
	assert.False(t, c.VerifySignature("order_123", "pay_456", good+"00"))
	assert.False(t, c.VerifySignature("order_999", "pay_456", good))
	assert.False(t, c.VerifySignature("order_123", "pay_456", ""))
}

func TestCreateOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/orders", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "key", user)
		assert.Equal(t, testSecret, pass)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.EqualValues(t, 90000, body["amount"])
		assert.Equal(t, "INR", body["currency"])
		assert.Contains(t, body["receipt"], "booking_BKGTEST_")

		json.NewEncoder(w).Encode(map[string]interface{}{
			"id": "order_abc", "amount": 90000, "currency": "INR",
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key", testSecret, "INR")
	order, err := c.CreateOrder(context.Background(), 90000, "BKGTEST")
	require.NoError(t, err)
	assert.Equal(t, "order_abc", order.OrderID)
	assert.Equal(t, int64(90000), order.AmountCents)
	assert.Equal(t, "INR", order.Currency)
}

func TestRefundPayment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/payments/pay_456/refund", r.URL.Path)
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.EqualValues(t, 800, body["amount"])

		json.NewEncoder(w).Encode(map[string]interface{}{"id": "rfnd_1", "amount": 800})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key", testSecret, "INR")
	refund, err := c.RefundPayment(context.Background(), "pay_456", 800)
	require.NoError(t, err)
	assert.Equal(t, "rfnd_1", refund.RefundID)
	assert.Equal(t, int64(800), refund.AmountCents)
}

func TestGatewayErrorOnNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key", testSecret, "INR")
	_, err := c.CreateOrder(context.Background(), 1000, "BKGX")

	var gwErr *GatewayError
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, http.StatusBadGateway, gwErr.Status)
	assert.Equal(t, "createOrder", gwErr.Op)
}

func TestGatewayErrorOnUnreachableHost(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", "key", testSecret, "INR")
	_, err := c.RefundPayment(context.Background(), "pay_1", 100)

	var gwErr *GatewayError
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, "refund", gwErr.Op)
}
