// Package payu integrates PayU hosted checkout. Orders are built locally with a
// SHA-512 request hash; callbacks are authenticated with PayU's reverse hash.
package payu

import (
	"fmt"
	"strings"
	"time"

	"github.com/PaulFidika/vipkit/payments"
)

// Name is the gateway key used for receipts and logs.
const Name = "payu"

const (
	DefaultProductInfo     = "VIP Subscription - 30 Days"
	DefaultCurrency        = "INR"
	DefaultBaseURL         = "http://localhost:8080"
	serviceProvider        = "payu_paisa"
	successPath            = "/api/payments/verify-payu"
	failurePath            = "/api/payments/failure"
	missingIdentityMessage = "Missing required fields: firstname, email, phone"
)

type Config struct {
	MerchantKey  string
	MerchantSalt string
	// BaseURL is the public API origin PayU redirects back to.
	BaseURL     string
	ProductInfo string
}

// OrderRequest is the create-order input. Amount is in rupees.
type OrderRequest struct {
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency,omitempty"`
	ProductInfo string  `json:"productinfo,omitempty"`
	FirstName   string  `json:"firstname"`
	Email       string  `json:"email"`
	Phone       string  `json:"phone"`
	UDF         UDF     `json:"-"`
}

// Order is the descriptor the browser posts to PayU.
type Order struct {
	TxnID           string  `json:"txnid"`
	Amount          float64 `json:"amount"`
	Currency        string  `json:"currency"`
	ProductInfo     string  `json:"productinfo"`
	FirstName       string  `json:"firstname"`
	Email           string  `json:"email"`
	Phone           string  `json:"phone"`
	Hash            string  `json:"hash"`
	Key             string  `json:"key"`
	SURL            string  `json:"surl"`
	FURL            string  `json:"furl"`
	ServiceProvider string  `json:"service_provider"`
	UDF1            string  `json:"udf1,omitempty"`
	UDF2            string  `json:"udf2,omitempty"`
	UDF3            string  `json:"udf3,omitempty"`
	UDF4            string  `json:"udf4,omitempty"`
	UDF5            string  `json:"udf5,omitempty"`
}

type Gateway struct {
	cfg Config
	now func() time.Time
}

func New(cfg Config) *Gateway {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.ProductInfo == "" {
		cfg.ProductInfo = DefaultProductInfo
	}
	return &Gateway{cfg: cfg, now: time.Now}
}

// Configured reports whether merchant key and salt are present.
func (g *Gateway) Configured() bool {
	return g.cfg.MerchantKey != "" && g.cfg.MerchantSalt != ""
}

// CreateOrder validates the request, assigns a fresh transaction id and
// precomputes the request hash.
func (g *Gateway) CreateOrder(req OrderRequest) (*Order, error) {
	if err := payments.PayUAmounts.Validate(req.Amount); err != nil {
		return nil, err
	}
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.Email = strings.TrimSpace(req.Email)
	req.Phone = strings.TrimSpace(req.Phone)
	if req.FirstName == "" || req.Email == "" || req.Phone == "" {
		return nil, &payments.ValidationError{Message: missingIdentityMessage}
	}
	if !g.Configured() {
		return nil, fmt.Errorf("PayU credentials are %w", payments.ErrNotConfigured)
	}
	txnID, err := payments.NewTransactionID(g.now())
	if err != nil {
		return nil, err
	}
	if req.Currency == "" {
		req.Currency = DefaultCurrency
	}
	if req.ProductInfo == "" {
		req.ProductInfo = g.cfg.ProductInfo
	}
	hash := RequestHash(g.cfg.MerchantKey, g.cfg.MerchantSalt, txnID, payments.FormatAmount(req.Amount),
		req.ProductInfo, req.FirstName, req.Email, req.UDF)
	return &Order{
		TxnID:           txnID,
		Amount:          req.Amount,
		Currency:        req.Currency,
		ProductInfo:     req.ProductInfo,
		FirstName:       req.FirstName,
		Email:           req.Email,
		Phone:           req.Phone,
		Hash:            hash,
		Key:             g.cfg.MerchantKey,
		SURL:            g.cfg.BaseURL + successPath,
		FURL:            g.cfg.BaseURL + failurePath,
		ServiceProvider: serviceProvider,
		UDF1:            req.UDF[0],
		UDF2:            req.UDF[1],
		UDF3:            req.UDF[2],
		UDF4:            req.UDF[3],
		UDF5:            req.UDF[4],
	}, nil
}

// Attest binds a PayU callback to this gateway's salt and key.
func (g *Gateway) Attest(r Response) payments.Attestation {
	return callback{resp: r, salt: g.cfg.MerchantSalt, key: g.cfg.MerchantKey}
}

type callback struct {
	resp      Response
	salt, key string
}

func (c callback) Gateway() string { return Name }
func (c callback) Complete() bool  { return c.resp.complete() }

func (c callback) Verify() (bool, error) {
	return VerifyResponseHash(c.salt, c.key, c.resp)
}

// Reference uses txnid for both ids; PayU identifies a payment by txnid.
func (c callback) Reference() payments.Reference {
	return payments.Reference{OrderID: c.resp.TxnID, PaymentID: c.resp.TxnID}
}

func (c callback) Status() string { return c.resp.Status }
func (c callback) Amount() string { return c.resp.Amount }
