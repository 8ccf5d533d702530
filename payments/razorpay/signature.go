package razorpay

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"github.com/PaulFidika/vipkit/payments"
)

// Sign returns hex(HMAC-SHA256(secret, orderID + "|" + paymentID)), the value
// Razorpay sends as razorpay_signature.
func Sign(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature reports whether signature authenticates orderID|paymentID.
// Missing inputs are a plain rejection; only a missing secret is an error.
// The comparison is constant time once lengths match (length is public:
// every valid signature is 64 hex characters).
func VerifySignature(secret, orderID, paymentID, signature string) (bool, error) {
	if orderID == "" || paymentID == "" || signature == "" {
		return false, nil
	}
	if secret == "" {
		return false, fmt.Errorf("Razorpay key secret is %w", payments.ErrNotConfigured)
	}
	expected := Sign(secret, orderID, paymentID)
	if len(expected) != len(signature) {
		return false, nil
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1, nil
}
