package razorpay

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/PaulFidika/vipkit/payments"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOrderServer(t *testing.T, calls *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		if r.URL.Path != "/orders" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "rzp_test_key" || pass != testSecret {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"code":"BAD_REQUEST_ERROR","description":"Authentication failed"}}`))
			return
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":       "order_TEST123",
			"entity":   "order",
			"amount":   body["amount"],
			"currency": body["currency"],
			"receipt":  body["receipt"],
			"status":   "created",
		})
	}))
}

func testGateway(url string) *Gateway {
	return New(Config{KeyID: "rzp_test_key", KeySecret: testSecret, APIURL: url, Timeout: 2 * time.Second}, nil)
}

func TestCreateOrder_Success(t *testing.T) {
	var calls int32
	srv := newOrderServer(t, &calls)
	defer srv.Close()

	order, err := testGateway(srv.URL).CreateOrder(context.Background(), OrderRequest{Amount: 49900})
	require.NoError(t, err)
	assert.Equal(t, "order_TEST123", order.ID)
	assert.Equal(t, int64(49900), order.Amount)
	assert.Equal(t, "INR", order.Currency)
	assert.True(t, strings.HasPrefix(order.Receipt, "receipt_"), order.Receipt)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestCreateOrder_AmountBoundaries(t *testing.T) {
	var calls int32
	srv := newOrderServer(t, &calls)
	defer srv.Close()
	g := testGateway(srv.URL)

	cases := []struct {
		amount int64
		ok     bool
	}{
		{99, false},
		{100, true},
		{100000000, true},
		{100000001, false},
		{0, false},
		{-500, false},
	}
	for _, c := range cases {
		_, err := g.CreateOrder(context.Background(), OrderRequest{Amount: c.amount})
		if c.ok {
			assert.NoError(t, err, "amount %d", c.amount)
		} else {
			require.Error(t, err, "amount %d", c.amount)
			assert.True(t, payments.IsValidation(err), "amount %d: %v", c.amount, err)
		}
	}
	// Rejected amounts never reach the provider.
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestCreateOrder_ProviderErrorKeepsMessage(t *testing.T) {
	var calls int32
	srv := newOrderServer(t, &calls)
	defer srv.Close()
	g := New(Config{KeyID: "rzp_test_key", KeySecret: "wrong", APIURL: srv.URL}, nil)

	_, err := g.CreateOrder(context.Background(), OrderRequest{Amount: 1000})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create Razorpay order")
	assert.Contains(t, err.Error(), "Authentication failed")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "BAD_REQUEST_ERROR", apiErr.Code)
}

func TestCreateOrder_ProviderErrorWithoutJSONContentType(t *testing.T) {
	cases := []struct {
		name, body, want, code string
	}{
		{"unlabelled json", `{"error":{"code":"BAD_REQUEST_ERROR","description":"The amount must be atleast INR 1.00"}}`, "The amount must be atleast INR 1.00", "BAD_REQUEST_ERROR"},
		{"plain text", "upstream unavailable\n", "upstream unavailable", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/plain")
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := testGateway(srv.URL).CreateOrder(context.Background(), OrderRequest{Amount: 1000})
			require.Error(t, err)
			assert.Equal(t, "failed to create Razorpay order: "+tc.want, err.Error())
			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
			assert.Equal(t, tc.code, apiErr.Code)
		})
	}
}

func TestCreateOrder_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	g := New(Config{KeyID: "rzp_test_key", KeySecret: testSecret, APIURL: srv.URL, Timeout: 50 * time.Millisecond}, nil)

	start := time.Now()
	_, err := g.CreateOrder(context.Background(), OrderRequest{Amount: 1000})
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestCreateOrder_NotConfigured(t *testing.T) {
	_, err := New(Config{KeyID: "rzp_test_key"}, nil).CreateOrder(context.Background(), OrderRequest{Amount: 1000})
	require.Error(t, err)
	assert.True(t, errors.Is(err, payments.ErrNotConfigured))
}

func TestPublicKeyID_Fallback(t *testing.T) {
	k, err := New(Config{KeyID: "rzp_live", PublicKeyID: "rzp_public"}, nil).PublicKeyID()
	require.NoError(t, err)
	assert.Equal(t, "rzp_public", k)

	k, err = New(Config{KeyID: "rzp_live"}, nil).PublicKeyID()
	require.NoError(t, err)
	assert.Equal(t, "rzp_live", k)

	_, err = New(Config{}, nil).PublicKeyID()
	assert.True(t, errors.Is(err, payments.ErrNotConfigured))
}

func TestAttest(t *testing.T) {
	g := testGateway("http://unused")
	att := g.Attest(VerifyRequest{OrderID: testOrderID, PaymentID: testPaymentID, Signature: testSignature})
	assert.Equal(t, Name, att.Gateway())
	assert.True(t, att.Complete())
	ok, err := att.Verify()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, payments.Reference{OrderID: testOrderID, PaymentID: testPaymentID}, att.Reference())
	assert.Equal(t, payments.StatusSuccess, att.Status())

	assert.False(t, g.Attest(VerifyRequest{OrderID: testOrderID}).Complete())
}
