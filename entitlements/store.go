package entitlements

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when the target user record does not exist.
	ErrNotFound = errors.New("user not found")
	// ErrAlreadyApplied is returned by Grant when the receipt's transaction was
	// already credited. The error is an *AppliedError carrying the original receipt.
	ErrAlreadyApplied = errors.New("payment already applied")
)

// Receipt identifies the gateway transaction that paid for a grant.
type Receipt struct {
	Gateway       string
	TransactionID string
	PaymentID     string
	Amount        string
	UserID        string
	AppliedAt     time.Time
}

// AppliedError reports a duplicate receipt together with the one already stored.
type AppliedError struct {
	Existing Receipt
}

func (e *AppliedError) Error() string {
	return "payment already applied: " + e.Existing.Gateway + "/" + e.Existing.TransactionID
}

func (e *AppliedError) Unwrap() error { return ErrAlreadyApplied }

// Grant is one VIP grant to apply atomically.
type Grant struct {
	UserID    string
	ExpiresAt time.Time
	Receipt   *Receipt
}

// Store persists entitlement fields. Every mutation must be a single atomic
// conditional update on the backing store; implementations hold no
// read-modify-write logic that could race with another writer.
type Store interface {
	// GetByID returns nil, nil when the user does not exist.
	GetByID(ctx context.Context, userID string) (*Record, error)
	// Grant sets isVip/isPremium and moves the expiry to the later of the
	// stored and requested instants. A non-nil receipt is recorded in the same
	// transaction; a duplicate yields *AppliedError.
	Grant(ctx context.Context, g Grant) (*Record, error)
	// RevokeIfExpired clears the entitlement of one user when it is expired at
	// now and returns the current record either way (nil when missing).
	RevokeIfExpired(ctx context.Context, userID string, now time.Time) (*Record, error)
	// RevokeExpired clears every expired entitlement and returns how many rows changed.
	RevokeExpired(ctx context.Context, now time.Time) (int64, error)
	// CountExpired counts users RevokeExpired would change.
	CountExpired(ctx context.Context, now time.Time) (int64, error)
}
