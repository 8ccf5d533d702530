package payments

// StatusSuccess is the only gateway status that unlocks an entitlement.
const StatusSuccess = "success"

// Reference names the gateway transaction a result refers to.
type Reference struct {
	OrderID   string `json:"orderId"`
	PaymentID string `json:"paymentId"`
}

// Attestation is a gateway callback bound to the credentials that can check
// it. Razorpay and PayU callbacks both satisfy it, so the verify-and-grant
// flow is written once.
type Attestation interface {
	// Gateway names the provider ("razorpay", "payu"); receipts are keyed by it.
	Gateway() string
	// Complete reports whether every field the gateway requires is present.
	Complete() bool
	// Verify checks the signature or hash in constant time. It errors only
	// when credentials are missing.
	Verify() (bool, error)
	Reference() Reference
	// Status is the gateway-reported outcome; gateways without one report StatusSuccess.
	Status() string
	// Amount is the paid amount exactly as the gateway sent it, if it sent one.
	Amount() string
}
