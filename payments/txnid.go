package payments

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/mr-tron/base58"
)

// NewTransactionID returns txn_<unix ms>_<base58 of 8 random bytes>.
func NewTransactionID(now time.Time) (string, error) {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("generate transaction id: %w", err)
	}
	return fmt.Sprintf("txn_%d_%s", now.UnixMilli(), base58.Encode(b[:])), nil
}
