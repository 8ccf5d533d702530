package entitlements

import "time"

// VIPPeriodDays is the length of one paid VIP grant in calendar days.
const VIPPeriodDays = 30

// Record is a user's profile as seen by the entitlement layer (no credentials).
// IsPremium always mirrors IsVIP; there is no separate premium tier yet.
type Record struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	FullName     string     `json:"fullName"`
	IsVIP        bool       `json:"isVip"`
	IsPremium    bool       `json:"isPremium"`
	VIPExpiresAt *time.Time `json:"vipExpiresAt"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// Snapshot is the entitlement subset returned to payment callers.
type Snapshot struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	IsVIP        bool       `json:"isVip"`
	IsPremium    bool       `json:"isPremium"`
	VIPExpiresAt *time.Time `json:"vipExpiresAt"`
}

func (r *Record) Snapshot() Snapshot {
	return Snapshot{
		ID:           r.ID,
		Email:        r.Email,
		IsVIP:        r.IsVIP,
		IsPremium:    r.IsPremium,
		VIPExpiresAt: r.VIPExpiresAt,
	}
}

// Expired reports whether a stored VIP flag is stale at now.
// A nil expiry counts as expired, never as "forever".
func Expired(r *Record, now time.Time) bool {
	if r == nil || !r.IsVIP {
		return false
	}
	if r.VIPExpiresAt == nil {
		return true
	}
	return !now.Before(*r.VIPExpiresAt)
}

// Effective returns the record as it must be presented at now: a stale VIP
// flag is cleared along with premium and the expiry. The input is not modified.
func Effective(r *Record, now time.Time) *Record {
	if r == nil {
		return nil
	}
	out := *r
	if Expired(r, now) {
		out.IsVIP = false
		out.IsPremium = false
		out.VIPExpiresAt = nil
	}
	return &out
}

// ExpiryFrom returns the expiry of a grant made at now. Days are added on the
// calendar (AddDate), so DST and month lengths follow the location of now.
func ExpiryFrom(now time.Time) time.Time {
	return now.AddDate(0, 0, VIPPeriodDays)
}
