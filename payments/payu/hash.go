package payu

import (
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/PaulFidika/vipkit/payments"
)

// Response is the part of the PayU redirect that the reverse hash covers.
// Amount is kept as text: the hash is over the exact digits PayU sent.
type Response struct {
	TxnID       string `json:"txnid" form:"txnid"`
	Amount      string `json:"amount" form:"amount"`
	ProductInfo string `json:"productinfo" form:"productinfo"`
	FirstName   string `json:"firstname" form:"firstname"`
	Email       string `json:"email" form:"email"`
	Status      string `json:"status" form:"status"`
	Hash        string `json:"hash" form:"hash"`
}

func (r Response) complete() bool {
	return r.TxnID != "" && r.Amount != "" && r.ProductInfo != "" && r.FirstName != "" &&
		r.Email != "" && r.Status != "" && r.Hash != ""
}

// UDF holds PayU's five user-defined passthrough fields.
type UDF [5]string

func sha512Hex(s string) string {
	sum := sha512.Sum512([]byte(s))
	return hex.EncodeToString(sum[:])
}

// RequestHash is the outbound hash PayU expects with a payment request:
// key|txnid|amount|productinfo|firstname|email|udf1..udf5|(five empty)|salt.
func RequestHash(key, salt, txnID, amount, productInfo, firstName, email string, udf UDF) string {
	fields := []string{key, txnID, amount, productInfo, firstName, email}
	fields = append(fields, udf[:]...)
	fields = append(fields, "", "", "", "", "", salt)
	return sha512Hex(strings.Join(fields, "|"))
}

// ResponseString is the reverse-hash input for a callback:
// salt|status||||email|firstname|productinfo|amount|txnid|key.
// The four empty positions belong to PayU's wire protocol and must stay as is.
func ResponseString(salt, key string, r Response) string {
	return salt + "|" + r.Status + "||||" + r.Email + "|" + r.FirstName + "|" + r.ProductInfo + "|" +
		r.Amount + "|" + r.TxnID + "|" + key
}

// ResponseHash is SHA-512 hex of ResponseString.
func ResponseHash(salt, key string, r Response) string {
	return sha512Hex(ResponseString(salt, key, r))
}

// VerifyResponseHash reports whether r.Hash is PayU's reverse hash of r.
// Missing fields are a plain rejection; missing salt or key is an error.
func VerifyResponseHash(salt, key string, r Response) (bool, error) {
	if !r.complete() {
		return false, nil
	}
	if salt == "" || key == "" {
		return false, fmt.Errorf("PayU credentials are %w", payments.ErrNotConfigured)
	}
	expected := ResponseHash(salt, key, r)
	if len(expected) != len(r.Hash) {
		return false, nil
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(r.Hash)) == 1, nil
}
