package memorystore

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/PaulFidika/vipkit/entitlements"
	"github.com/PaulFidika/vipkit/identity"
	"github.com/google/uuid"
)

// Users is an in-memory user store implementing both identity.Users and
// entitlements.Store. Every method runs under one mutex, which gives the same
// per-call atomicity the Postgres store gets from single statements.
// Intended for development and tests; state is lost on restart.
type Users struct {
	mu       sync.Mutex
	byID     map[string]*userRow
	byEmail  map[string]string
	receipts map[string]entitlements.Receipt
	now      func() time.Time
}

type userRow struct {
	rec  entitlements.Record
	hash string
}

func NewUsers() *Users {
	return &Users{
		byID:     make(map[string]*userRow),
		byEmail:  make(map[string]string),
		receipts: make(map[string]entitlements.Receipt),
		now:      time.Now,
	}
}

func receiptKey(gateway, txnID string) string { return gateway + "/" + txnID }

func (u *Users) CreateUser(ctx context.Context, email, fullName, passwordHash string) (*entitlements.Record, error) {
	_ = ctx
	email = identity.NormalizeEmail(email)
	u.mu.Lock()
	defer u.mu.Unlock()
	if _, ok := u.byEmail[email]; ok {
		return nil, identity.ErrEmailTaken
	}
	now := u.now().UTC()
	row := &userRow{
		rec: entitlements.Record{
			ID:        uuid.NewString(),
			Email:     email,
			FullName:  strings.TrimSpace(fullName),
			CreatedAt: now,
			UpdatedAt: now,
		},
		hash: passwordHash,
	}
	u.byID[row.rec.ID] = row
	u.byEmail[email] = row.rec.ID
	return copyRecord(&row.rec), nil
}

func (u *Users) GetCredentialsByEmail(ctx context.Context, email string) (*identity.Credentials, error) {
	_ = ctx
	u.mu.Lock()
	defer u.mu.Unlock()
	id, ok := u.byEmail[identity.NormalizeEmail(email)]
	if !ok {
		return nil, nil
	}
	row := u.byID[id]
	return &identity.Credentials{User: *copyRecord(&row.rec), PasswordHash: row.hash}, nil
}

func (u *Users) UpdatePasswordHash(ctx context.Context, userID, passwordHash string) error {
	_ = ctx
	u.mu.Lock()
	defer u.mu.Unlock()
	row, ok := u.byID[userID]
	if !ok {
		return entitlements.ErrNotFound
	}
	row.hash = passwordHash
	row.rec.UpdatedAt = u.now().UTC()
	return nil
}

// GetByEmail is used by operator tooling (grant-vip).
func (u *Users) GetByEmail(ctx context.Context, email string) (*entitlements.Record, error) {
	c, err := u.GetCredentialsByEmail(ctx, email)
	if err != nil || c == nil {
		return nil, err
	}
	return &c.User, nil
}

func (u *Users) GetByID(ctx context.Context, userID string) (*entitlements.Record, error) {
	_ = ctx
	u.mu.Lock()
	defer u.mu.Unlock()
	row, ok := u.byID[userID]
	if !ok {
		return nil, nil
	}
	return copyRecord(&row.rec), nil
}

func (u *Users) Grant(ctx context.Context, g entitlements.Grant) (*entitlements.Record, error) {
	_ = ctx
	u.mu.Lock()
	defer u.mu.Unlock()
	row, ok := u.byID[g.UserID]
	if !ok {
		return nil, entitlements.ErrNotFound
	}
	if g.Receipt != nil {
		k := receiptKey(g.Receipt.Gateway, g.Receipt.TransactionID)
		if existing, dup := u.receipts[k]; dup {
			return nil, &entitlements.AppliedError{Existing: existing}
		}
		r := *g.Receipt
		r.UserID = g.UserID
		u.receipts[k] = r
	}
	exp := g.ExpiresAt
	if row.rec.VIPExpiresAt != nil && row.rec.VIPExpiresAt.After(exp) {
		exp = *row.rec.VIPExpiresAt
	}
	row.rec.IsVIP = true
	row.rec.IsPremium = true
	row.rec.VIPExpiresAt = &exp
	row.rec.UpdatedAt = u.now().UTC()
	return copyRecord(&row.rec), nil
}

func (u *Users) RevokeIfExpired(ctx context.Context, userID string, now time.Time) (*entitlements.Record, error) {
	_ = ctx
	u.mu.Lock()
	defer u.mu.Unlock()
	row, ok := u.byID[userID]
	if !ok {
		return nil, nil
	}
	if entitlements.Expired(&row.rec, now) {
		revoke(row, u.now())
	}
	return copyRecord(&row.rec), nil
}

func (u *Users) RevokeExpired(ctx context.Context, now time.Time) (int64, error) {
	_ = ctx
	u.mu.Lock()
	defer u.mu.Unlock()
	var n int64
	for _, row := range u.byID {
		if entitlements.Expired(&row.rec, now) {
			revoke(row, u.now())
			n++
		}
	}
	return n, nil
}

func (u *Users) CountExpired(ctx context.Context, now time.Time) (int64, error) {
	_ = ctx
	u.mu.Lock()
	defer u.mu.Unlock()
	var n int64
	for _, row := range u.byID {
		if entitlements.Expired(&row.rec, now) {
			n++
		}
	}
	return n, nil
}

// SetEntitlement overwrites the stored fields directly. Tests use it to plant
// stale rows that the sweep and lazy check must correct.
func (u *Users) SetEntitlement(userID string, isVIP bool, expiresAt *time.Time) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	row, ok := u.byID[userID]
	if !ok {
		return entitlements.ErrNotFound
	}
	row.rec.IsVIP = isVIP
	row.rec.IsPremium = isVIP
	if expiresAt != nil {
		t := *expiresAt
		row.rec.VIPExpiresAt = &t
	} else {
		row.rec.VIPExpiresAt = nil
	}
	return nil
}

// Receipt returns the ledger entry for a gateway transaction.
func (u *Users) Receipt(gateway, txnID string) (entitlements.Receipt, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	r, ok := u.receipts[receiptKey(gateway, txnID)]
	return r, ok
}

func revoke(row *userRow, now time.Time) {
	row.rec.IsVIP = false
	row.rec.IsPremium = false
	row.rec.VIPExpiresAt = nil
	row.rec.UpdatedAt = now.UTC()
}

func copyRecord(r *entitlements.Record) *entitlements.Record {
	out := *r
	if r.VIPExpiresAt != nil {
		t := *r.VIPExpiresAt
		out.VIPExpiresAt = &t
	}
	return &out
}

var (
	_ identity.Users     = (*Users)(nil)
	_ entitlements.Store = (*Users)(nil)
)
