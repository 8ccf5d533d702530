package payments

import (
	"context"
	"time"
)

// PendingOrder is what create-order quoted. Razorpay callbacks carry no
// amount, so the receipt ledger takes it from here.
type PendingOrder struct {
	Gateway   string    `json:"gateway"`
	OrderID   string    `json:"orderId"`
	Amount    string    `json:"amount"`
	Currency  string    `json:"currency"`
	CreatedAt time.Time `json:"createdAt"`
}

// OrderCache holds pending orders for a bounded time. Get reports false for
// unknown or expired ids.
type OrderCache interface {
	Put(ctx context.Context, o PendingOrder) error
	Get(ctx context.Context, gateway, orderID string) (PendingOrder, bool, error)
	Del(ctx context.Context, gateway, orderID string) error
}

// OrderKey is the cache key shared by OrderCache implementations.
func OrderKey(gateway, orderID string) string { return gateway + ":" + orderID }
