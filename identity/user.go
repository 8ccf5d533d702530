package identity

import (
	"context"
	"errors"
	"strings"

	"github.com/PaulFidika/vipkit/entitlements"
)

// ErrEmailTaken is returned when signing up with an email that already exists.
var ErrEmailTaken = errors.New("user with this email already exists")

// Credentials pairs a user with the stored password hash. Only the login path sees it.
type Credentials struct {
	User         entitlements.Record
	PasswordHash string
}

// Users is the account side of the user store.
type Users interface {
	CreateUser(ctx context.Context, email, fullName, passwordHash string) (*entitlements.Record, error)
	// GetCredentialsByEmail returns nil, nil when no user has that email.
	GetCredentialsByEmail(ctx context.Context, email string) (*Credentials, error)
	UpdatePasswordHash(ctx context.Context, userID, passwordHash string) error
}

// NormalizeEmail lowercases and trims; emails are unique case-insensitively.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
