// Package razorpay integrates the Razorpay checkout: orders are created through
// the Razorpay REST API and callbacks are authenticated with HMAC-SHA256.
package razorpay

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/PaulFidika/vipkit/logging"
	"github.com/PaulFidika/vipkit/payments"
	"github.com/go-resty/resty/v2"
	"github.com/segmentio/ksuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Name is the gateway key used for receipts and logs.
const Name = "razorpay"

const (
	DefaultAPIURL   = "https://api.razorpay.com/v1"
	DefaultTimeout  = 10 * time.Second
	DefaultCurrency = "INR"
)

type Config struct {
	KeyID     string
	KeySecret string
	// PublicKeyID is handed to the browser checkout; falls back to KeyID.
	PublicKeyID string
	APIURL      string
	// Timeout bounds each call to the Razorpay API.
	Timeout time.Duration
	// RequestsPerSecond caps outbound order creation; <= 0 disables the cap.
	RequestsPerSecond float64
}

// OrderRequest is the create-order input. Amount is in paise.
type OrderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency,omitempty"`
	Receipt  string            `json:"receipt,omitempty"`
	Notes    map[string]string `json:"notes,omitempty"`
}

// Order is the subset of the Razorpay order returned to the client.
type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

// APIError is a non-2xx answer from the Razorpay API.
type APIError struct {
	StatusCode  int
	Code        string
	Description string
}

func (e *APIError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("razorpay api status %d", e.StatusCode)
	}
	return e.Description
}

type apiErrorBody struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// apiError keeps the provider's message whatever content type it was sent
// with: resty only decodes error bodies labelled as JSON.
func apiError(status int, parsed apiErrorBody, body []byte) *APIError {
	if parsed.Error.Description == "" && len(body) > 0 {
		_ = json.Unmarshal(body, &parsed)
	}
	e := &APIError{StatusCode: status, Code: parsed.Error.Code, Description: parsed.Error.Description}
	if e.Description == "" {
		e.Description = strings.TrimSpace(string(body))
	}
	return e
}

type apiOrder struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

type Gateway struct {
	cfg     Config
	http    *resty.Client
	limiter *rate.Limiter
	log     logrus.FieldLogger
}

func New(cfg Config, log logrus.FieldLogger) *Gateway {
	if strings.TrimSpace(cfg.APIURL) == "" {
		cfg.APIURL = DefaultAPIURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if log == nil {
		log = logging.Discard()
	}
	g := &Gateway{
		cfg:  cfg,
		http: resty.New().SetBaseURL(strings.TrimRight(cfg.APIURL, "/")).SetTimeout(cfg.Timeout),
		log:  log.WithField("gateway", Name),
	}
	if cfg.RequestsPerSecond > 0 {
		burst := int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return g
}

// Configured reports whether both API credentials are present.
func (g *Gateway) Configured() bool {
	return g.cfg.KeyID != "" && g.cfg.KeySecret != ""
}

// PublicKeyID returns the key id the browser checkout is initialised with.
func (g *Gateway) PublicKeyID() (string, error) {
	if g.cfg.PublicKeyID != "" {
		return g.cfg.PublicKeyID, nil
	}
	if g.cfg.KeyID != "" {
		return g.cfg.KeyID, nil
	}
	return "", fmt.Errorf("Razorpay key ID is %w", payments.ErrNotConfigured)
}

// CreateOrder validates the amount and creates the order with Razorpay.
// Provider failures keep the provider's message behind the wrap.
func (g *Gateway) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	if err := payments.RazorpayAmounts.Validate(float64(req.Amount)); err != nil {
		return nil, err
	}
	if !g.Configured() {
		return nil, fmt.Errorf("Razorpay credentials are %w", payments.ErrNotConfigured)
	}
	if req.Currency == "" {
		req.Currency = DefaultCurrency
	}
	if req.Receipt == "" {
		req.Receipt = "receipt_" + ksuid.New().String()
	}
	if req.Notes == nil {
		req.Notes = map[string]string{}
	}

	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("failed to create Razorpay order: %w", err)
		}
	}
	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	var (
		out    apiOrder
		apiErr apiErrorBody
	)
	resp, err := g.http.R().
		SetContext(ctx).
		SetBasicAuth(g.cfg.KeyID, g.cfg.KeySecret).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		SetResult(&out).
		SetError(&apiErr).
		Post("/orders")
	if err != nil {
		g.log.WithError(err).Error("razorpay order request failed")
		return nil, fmt.Errorf("failed to create Razorpay order: %w", err)
	}
	if resp.IsError() {
		e := apiError(resp.StatusCode(), apiErr, resp.Body())
		g.log.WithFields(logrus.Fields{"status": e.StatusCode, "code": e.Code}).Error("razorpay rejected order")
		return nil, fmt.Errorf("failed to create Razorpay order: %w", e)
	}
	if out.ID == "" {
		return nil, fmt.Errorf("failed to create Razorpay order: unexpected response (status %d)", resp.StatusCode())
	}
	receipt := out.Receipt
	if receipt == "" {
		receipt = req.Receipt
	}
	return &Order{ID: out.ID, Amount: out.Amount, Currency: out.Currency, Receipt: receipt}, nil
}

// VerifyRequest is the body the checkout handler posts back after payment.
type VerifyRequest struct {
	OrderID   string `json:"razorpay_order_id"`
	PaymentID string `json:"razorpay_payment_id"`
	Signature string `json:"razorpay_signature"`
}

// Attest binds a callback to this gateway's secret.
func (g *Gateway) Attest(req VerifyRequest) payments.Attestation {
	return callback{req: req, secret: g.cfg.KeySecret}
}

type callback struct {
	req    VerifyRequest
	secret string
}

func (c callback) Gateway() string { return Name }

func (c callback) Complete() bool {
	return c.req.OrderID != "" && c.req.PaymentID != "" && c.req.Signature != ""
}

func (c callback) Verify() (bool, error) {
	return VerifySignature(c.secret, c.req.OrderID, c.req.PaymentID, c.req.Signature)
}

func (c callback) Reference() payments.Reference {
	return payments.Reference{OrderID: c.req.OrderID, PaymentID: c.req.PaymentID}
}

// Status is always success: Razorpay only invokes the checkout handler for
// captured or authorized payments.
func (c callback) Status() string { return payments.StatusSuccess }

func (c callback) Amount() string { return "" }
