package jwtkit

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// DefaultTTL is used when no expiry is configured.
const DefaultTTL = 7 * 24 * time.Hour

var (
	ErrMissingSecret = errors.New("JWT_SECRET environment variable is required")
	ErrInvalidToken  = errors.New("invalid or expired token")
)

// Claims is the bearer token payload: who the caller is, nothing about what
// they may do. Entitlements are always read from the store.
type Claims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// HMACSigner issues and verifies HS256 tokens with a shared secret.
type HMACSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewHMACSigner(secret string, ttl time.Duration) (*HMACSigner, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, ErrMissingSecret
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &HMACSigner{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

func (s *HMACSigner) Algorithm() string { return jwt.SigningMethodHS256.Alg() }
func (s *HMACSigner) TTL() time.Duration { return s.ttl }

// Issue signs a token for userID valid for the signer's TTL.
func (s *HMACSigner) Issue(userID, email string) (string, error) {
	return s.IssueAt(userID, email, s.now())
}

// IssueAt signs a token as if issued at t.
func (s *HMACSigner) IssueAt(userID, email string, t time.Time) (string, error) {
	claims := Claims{
		UserID:           userID,
		Email:            email,
		RegisteredClaims: BaseRegisteredClaims(userID, t, s.ttl),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Parse verifies signature, algorithm and expiry. Every failure is reported
// as ErrInvalidToken.
func (s *HMACSigner) Parse(token string) (*Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.UserID == "" {
		claims.UserID = claims.Subject
	}
	if claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return &claims, nil
}

// BaseRegisteredClaims builds sub/iat/exp for a token issued at now.
func BaseRegisteredClaims(subject string, now time.Time, ttl time.Duration) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
}

// ParseTTL accepts Go durations ("12h", "90m") plus a day suffix ("7d").
// Empty means DefaultTTL.
func ParseTTL(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultTTL, nil
	}
	if strings.HasSuffix(s, "d") {
		n, err := strconv.Atoi(strings.TrimSuffix(s, "d"))
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("invalid token lifetime %q", s)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid token lifetime %q", s)
	}
	return d, nil
}
