// Package testing provides helpers for tests of applications built on vipkit.
// TestIssuer signs HS256 session tokens with a throwaway secret so protected
// routes can be exercised without going through signup.
//
// Example usage:
//
//	issuer := testing.NewTestIssuer()
//	api := &vipgin.API{Auth: core.NewService(users, vip, issuer.Signer()), ...}
//
//	req.Header.Set("Authorization", "Bearer "+issuer.CreateToken(user.ID, user.Email))
package testing

import (
	"time"

	jwtkit "github.com/PaulFidika/vipkit/jwt"
	"github.com/google/uuid"
)

// TestIssuer mints session tokens the API accepts.
type TestIssuer struct {
	secret string
	signer *jwtkit.HMACSigner
}

// NewTestIssuer uses a random secret and the default session lifetime.
func NewTestIssuer() *TestIssuer {
	return NewTestIssuerWithSecret("test-secret-" + uuid.NewString())
}

// NewTestIssuerWithSecret pins the secret, for tests that build their own
// signer from config.
func NewTestIssuerWithSecret(secret string) *TestIssuer {
	signer, err := jwtkit.NewHMACSigner(secret, jwtkit.DefaultTTL)
	if err != nil {
		panic("failed to create HMAC signer: " + err.Error())
	}
	return &TestIssuer{secret: secret, signer: signer}
}

// Secret returns the signing secret.
func (ti *TestIssuer) Secret() string { return ti.secret }

// Signer returns the signer to hand to core.NewService.
func (ti *TestIssuer) Signer() *jwtkit.HMACSigner { return ti.signer }

// CreateToken signs a token valid from now.
func (ti *TestIssuer) CreateToken(userID, email string) string {
	return ti.CreateTokenAt(userID, email, time.Now())
}

// CreateTokenAt signs a token as if issued at t.
func (ti *TestIssuer) CreateTokenAt(userID, email string, t time.Time) string {
	token, err := ti.signer.IssueAt(userID, email, t)
	if err != nil {
		panic("failed to sign token: " + err.Error())
	}
	return token
}

// CreateExpiredToken signs a token whose lifetime ended an hour ago.
func (ti *TestIssuer) CreateExpiredToken(userID, email string) string {
	return ti.CreateTokenAt(userID, email, time.Now().Add(-ti.signer.TTL()-time.Hour))
}

// CreateForeignToken signs with an unrelated secret; the API must reject it.
func (ti *TestIssuer) CreateForeignToken(userID, email string) string {
	return NewTestIssuer().CreateToken(userID, email)
}
