package vipgin_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	vipgin "github.com/PaulFidika/vipkit/adapters/gin"
	"github.com/PaulFidika/vipkit/core"
	"github.com/PaulFidika/vipkit/entitlements"
	"github.com/PaulFidika/vipkit/payments"
	"github.com/PaulFidika/vipkit/payments/payu"
	"github.com/PaulFidika/vipkit/payments/razorpay"
	memorylimiter "github.com/PaulFidika/vipkit/ratelimit/memory"
	memorystore "github.com/PaulFidika/vipkit/storage/memory"
	vipkittest "github.com/PaulFidika/vipkit/testing"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	rzpSecret  = "rzp_secret"
	payuKey    = "key123"
	payuSalt   = "salt123"
	adminToken = "ops-token"
)

type fixture struct {
	engine *gin.Engine
	users  *memorystore.Users
	orders *memorystore.OrderCache
	issuer *vipkittest.TestIssuer
}

// fakeRazorpay answers POST /orders the way the Razorpay API does.
func fakeRazorpay(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "rzp_key" || pass != rzpSecret || r.URL.Path != "/orders" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"code":"BAD_REQUEST_ERROR","description":"Authentication failed"}}`))
			return
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":       "order_test_1",
			"amount":   body["amount"],
			"currency": body["currency"],
			"receipt":  body["receipt"],
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newFixture(t *testing.T, limiter *memorylimiter.Limiter) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	users := memorystore.NewUsers()
	orders := memorystore.NewOrderCache(time.Hour)
	t.Cleanup(func() { _ = orders.Close() })
	issuer := vipkittest.NewTestIssuer()
	vip := entitlements.NewService(users)
	api := &vipgin.API{
		Auth:       core.NewService(users, vip, issuer.Signer()),
		VIP:        vip,
		Payments:   payments.NewService(users, payments.WithOrders(orders)),
		Razorpay:   razorpay.New(razorpay.Config{KeyID: "rzp_key", KeySecret: rzpSecret, PublicKeyID: "rzp_public", APIURL: fakeRazorpay(t).URL}, nil),
		PayU:       payu.New(payu.Config{MerchantKey: payuKey, MerchantSalt: payuSalt, BaseURL: "https://api.example.com"}),
		Orders:     orders,
		AdminToken: adminToken,
	}
	if limiter != nil {
		api.Limiter = limiter
	}
	return &fixture{engine: vipgin.NewEngine(api), users: users, orders: orders, issuer: issuer}
}

func (f *fixture) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

func (f *fixture) signup(t *testing.T, email string) (string, string) {
	t.Helper()
	w := f.do(http.MethodPost, "/api/auth/signup", "", map[string]string{
		"email": email, "fullName": "Player", "password": "hunter22!",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var out struct {
		Token string `json:"token"`
		User  struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out.User.ID, out.Token
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m), w.Body.String())
	return m
}

func TestSignupAndLogin(t *testing.T) {
	f := newFixture(t, nil)
	f.signup(t, "Asha@Example.com")

	w := f.do(http.MethodPost, "/api/auth/signup", "", map[string]string{
		"email": "asha@example.com", "fullName": "Again", "password": "hunter22!",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = f.do(http.MethodPost, "/api/auth/signup", "", map[string]string{
		"email": "short@example.com", "fullName": "Short", "password": "abc",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Password must be at least 8 characters long", decode(t, w)["message"])

	w = f.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "asha@example.com", "password": "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid email or password", decode(t, w)["message"])

	w = f.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ASHA@example.com", "password": "hunter22!"})
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	assert.NotEmpty(t, body["token"])
}

func TestUserMe_RequiresTokenAndAppliesLazyExpiry(t *testing.T) {
	f := newFixture(t, nil)
	id, token := f.signup(t, "me@example.com")

	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodGet, "/api/user/me", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodGet, "/api/user/me", f.issuer.CreateExpiredToken(id, "me@example.com"), nil).Code)
	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodGet, "/api/user/me", f.issuer.CreateForeignToken(id, "me@example.com"), nil).Code)

	past := time.Now().Add(-time.Hour)
	require.NoError(t, f.users.SetEntitlement(id, true, &past))

	w := f.do(http.MethodGet, "/api/user/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	user := decode(t, w)["user"].(map[string]any)
	assert.Equal(t, false, user["isVip"])
	assert.Equal(t, false, user["isPremium"])

	w = f.do(http.MethodGet, "/api/user/me", f.issuer.CreateToken("00000000-0000-0000-0000-000000000000", "ghost@example.com"), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "User not found", decode(t, w)["message"])
}

func TestRazorpay_CreateOrderThenVerify(t *testing.T) {
	f := newFixture(t, nil)
	id, token := f.signup(t, "buyer@example.com")

	w := f.do(http.MethodPost, "/api/payments/create-order", token, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Amount is required and must be a number", decode(t, w)["message"])

	w = f.do(http.MethodPost, "/api/payments/create-order", token, map[string]any{"amount": 50})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Minimum payment amount is ₹1 (100 paise)", decode(t, w)["message"])

	w = f.do(http.MethodPost, "/api/payments/create-order", token, map[string]any{"amount": 49900})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "rzp_public", body["key"])
	order := body["order"].(map[string]any)
	assert.Equal(t, "order_test_1", order["id"])
	assert.Equal(t, "INR", order["currency"])

	pending, ok, err := f.orders.Get(context.Background(), razorpay.Name, "order_test_1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "49900", pending.Amount)

	w = f.do(http.MethodPost, "/api/payments/verify", token, map[string]string{
		"razorpay_order_id": "order_test_1", "razorpay_payment_id": "pay_1", "razorpay_signature": strings.Repeat("0", 64),
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid payment signature", decode(t, w)["message"])

	w = f.do(http.MethodPost, "/api/payments/verify", token, map[string]string{"razorpay_order_id": "order_test_1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Missing payment details", decode(t, w)["message"])

	verify := map[string]string{
		"razorpay_order_id":   "order_test_1",
		"razorpay_payment_id": "pay_1",
		"razorpay_signature":  razorpay.Sign(rzpSecret, "order_test_1", "pay_1"),
	}
	w = f.do(http.MethodPost, "/api/payments/verify", token, verify)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body = decode(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, true, body["user"].(map[string]any)["isVip"])
	assert.Equal(t, "pay_1", body["payment"].(map[string]any)["paymentId"])

	rc, ok := f.users.Receipt(razorpay.Name, "order_test_1")
	require.True(t, ok)
	assert.Equal(t, id, rc.UserID)
	assert.Equal(t, "49900", rc.Amount)

	_, otherToken := f.signup(t, "thief@example.com")
	w = f.do(http.MethodPost, "/api/payments/verify", otherToken, verify)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = f.do(http.MethodPost, "/api/payments/verify", "", verify)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPayU_CreateOrderThenVerifyForm(t *testing.T) {
	f := newFixture(t, nil)
	_, token := f.signup(t, "payu@example.com")

	w := f.do(http.MethodPost, "/api/payments/create-payu-order", token, map[string]any{"amount": 499})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Missing required fields: firstname, email, phone", decode(t, w)["message"])

	w = f.do(http.MethodPost, "/api/payments/create-payu-order", token, map[string]any{
		"amount": 499, "firstname": "Asha", "email": "payu@example.com", "phone": "9999999999",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	order := decode(t, w)["order"].(map[string]any)
	txnID := order["txnid"].(string)
	assert.Equal(t, "https://api.example.com/api/payments/verify-payu", order["surl"])
	assert.Equal(t, "https://api.example.com/api/payments/failure", order["furl"])

	resp := payu.Response{
		TxnID:       txnID,
		Amount:      "499.00",
		ProductInfo: payu.DefaultProductInfo,
		FirstName:   "Asha",
		Email:       "payu@example.com",
		Status:      "success",
	}
	resp.Hash = payu.ResponseHash(payuSalt, payuKey, resp)
	form := url.Values{
		"txnid": {resp.TxnID}, "amount": {resp.Amount}, "productinfo": {resp.ProductInfo},
		"firstname": {resp.FirstName}, "email": {resp.Email}, "status": {resp.Status}, "hash": {resp.Hash},
	}
	req := httptest.NewRequest(http.MethodPost, "/api/payments/verify-payu", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	f.engine.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, true, decode(t, rec)["user"].(map[string]any)["isVip"])

	rc, ok := f.users.Receipt(payu.Name, txnID)
	require.True(t, ok)
	assert.Equal(t, "499.00", rc.Amount)
	_, pending, err := f.orders.Get(context.Background(), payu.Name, txnID)
	require.NoError(t, err)
	assert.False(t, pending, "verified order must leave the pending cache")
}

func TestPayU_GatewayFailureIsServerSide(t *testing.T) {
	f := newFixture(t, nil)
	_, token := f.signup(t, "fail@example.com")
	resp := payu.Response{
		TxnID: "txn_9", Amount: "499.00", ProductInfo: payu.DefaultProductInfo,
		FirstName: "Asha", Email: "fail@example.com", Status: "failure",
	}
	resp.Hash = payu.ResponseHash(payuSalt, payuKey, resp)
	w := f.do(http.MethodPost, "/api/payments/verify-payu", token, resp)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Payment failure. Transaction ID: txn_9", decode(t, w)["message"])

	w = f.do(http.MethodPost, "/api/payments/failure", "", map[string]string{"txnid": "txn_9", "status": "failure"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decode(t, w)["success"])
}

func TestAdminRevokeExpiredVIPs(t *testing.T) {
	f := newFixture(t, nil)
	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(24 * time.Hour)
	for i, exp := range []*time.Time{&past, &past, &future} {
		id, _ := f.signup(t, []string{"a@example.com", "b@example.com", "c@example.com"}[i])
		require.NoError(t, f.users.SetEntitlement(id, true, exp))
	}

	admin := func(method string, token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, "/api/admin/revoke-expired-vips", nil)
		if token != "" {
			req.Header.Set("X-Admin-Token", token)
		}
		w := httptest.NewRecorder()
		f.engine.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusUnauthorized, admin(http.MethodPost, "").Code)
	assert.Equal(t, http.StatusUnauthorized, admin(http.MethodPost, "wrong").Code)

	w := admin(http.MethodGet, adminToken)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "Found 2 expired VIP subscription(s)", body["message"])
	assert.EqualValues(t, 2, body["expiredCount"])

	w = admin(http.MethodPost, adminToken)
	require.Equal(t, http.StatusOK, w.Code)
	body = decode(t, w)
	assert.Equal(t, "Revoked VIP status for 2 expired subscription(s)", body["message"])
	assert.EqualValues(t, 2, body["revokedCount"])

	body = decode(t, admin(http.MethodPost, adminToken))
	assert.EqualValues(t, 0, body["revokedCount"])
}

func TestRateLimitedLogin(t *testing.T) {
	f := newFixture(t, memorylimiter.New(map[string]memorylimiter.Limit{
		"auth_login": {Limit: 2, Window: time.Minute},
	}))
	creds := map[string]string{"email": "nobody@example.com", "password": "whatever1"}
	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodPost, "/api/auth/login", "", creds).Code)
	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodPost, "/api/auth/login", "", creds).Code)
	w := f.do(http.MethodPost, "/api/auth/login", "", creds)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "Too many requests", decode(t, w)["message"])
}

func TestHealthAndNoRoute(t *testing.T) {
	f := newFixture(t, nil)
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/healthz", "", nil).Code)
	w := f.do(http.MethodGet, "/api/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, false, decode(t, w)["success"])
}

func TestCreateOrders_DoNotRequireAToken(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(http.MethodPost, "/api/payments/create-order", "", map[string]any{"amount": 49900})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "order_test_1", decode(t, w)["order"].(map[string]any)["id"])

	w = f.do(http.MethodPost, "/api/payments/create-payu-order", "", map[string]any{
		"amount": 499, "firstname": "Asha", "email": "anon@example.com", "phone": "9999999999",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// Applying a payment still needs a signed-in user.
	w = f.do(http.MethodPost, "/api/payments/verify", "", map[string]string{
		"razorpay_order_id":   "order_test_1",
		"razorpay_payment_id": "pay_1",
		"razorpay_signature":  razorpay.Sign(rzpSecret, "order_test_1", "pay_1"),
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPaymentFailure_KeepsPendingOrderUnlessHashVerifies(t *testing.T) {
	f := newFixture(t, nil)
	w := f.do(http.MethodPost, "/api/payments/create-payu-order", "", map[string]any{
		"amount": 499, "firstname": "Asha", "email": "furl@example.com", "phone": "9999999999",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	txnID := decode(t, w)["order"].(map[string]any)["txnid"].(string)

	resp := payu.Response{
		TxnID: txnID, Amount: "499.00", ProductInfo: payu.DefaultProductInfo,
		FirstName: "Asha", Email: "furl@example.com", Status: "failure",
	}
	pending := func() bool {
		_, ok, err := f.orders.Get(context.Background(), payu.Name, txnID)
		require.NoError(t, err)
		return ok
	}

	forged := resp
	forged.Hash = strings.Repeat("a", 128)
	assert.Equal(t, http.StatusOK, f.do(http.MethodPost, "/api/payments/failure", "", forged).Code)
	assert.Equal(t, http.StatusOK, f.do(http.MethodPost, "/api/payments/failure", "", map[string]string{"txnid": txnID}).Code)
	assert.True(t, pending(), "unverified failure posts must not drop the quote")

	resp.Hash = payu.ResponseHash(payuSalt, payuKey, resp)
	w = f.do(http.MethodPost, "/api/payments/failure", "", resp)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Payment failure. Transaction ID: "+txnID, decode(t, w)["message"])
	assert.False(t, pending())
}
