package core

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/PaulFidika/vipkit/entitlements"
	"github.com/PaulFidika/vipkit/identity"
	jwtkit "github.com/PaulFidika/vipkit/jwt"
	"github.com/PaulFidika/vipkit/logging"
	pwhash "github.com/PaulFidika/vipkit/password"
	"github.com/sirupsen/logrus"
)

var (
	ErrInvalidCredentials = errors.New("Invalid email or password")
	ErrMissingFields      = errors.New("Email, full name and password are required")
	ErrInvalidEmail       = errors.New("Invalid email address")
)

// Session is what signup and login hand back to the client.
type Session struct {
	Token string               `json:"token"`
	User  *entitlements.Record `json:"user"`
}

// Service owns signup and login. Entitlement state is never derived here; the
// returned user is passed through the lazy expiry check first.
type Service struct {
	users  identity.Users
	vip    *entitlements.Service
	signer *jwtkit.HMACSigner
	audit  AuditLogger
	log    logrus.FieldLogger
}

func NewService(users identity.Users, vip *entitlements.Service, signer *jwtkit.HMACSigner) *Service {
	return &Service{users: users, vip: vip, signer: signer, audit: NopAudit{}, log: logging.Discard()}
}

func (s *Service) WithAudit(a AuditLogger) *Service {
	if a != nil {
		s.audit = a
	}
	return s
}

func (s *Service) WithLogger(l logrus.FieldLogger) *Service {
	if l != nil {
		s.log = l
	}
	return s
}

func (s *Service) Signer() *jwtkit.HMACSigner { return s.signer }

// Signup creates a non-VIP account and signs the caller in.
func (s *Service) Signup(ctx context.Context, email, fullName, password string) (*Session, error) {
	email = identity.NormalizeEmail(email)
	fullName = strings.TrimSpace(fullName)
	if email == "" || fullName == "" || password == "" {
		return nil, ErrMissingFields
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, ErrInvalidEmail
	}
	if err := pwhash.Validate(password); err != nil {
		return nil, err
	}
	hash, err := pwhash.Hash(password)
	if err != nil {
		return nil, err
	}
	u, err := s.users.CreateUser(ctx, email, fullName, hash)
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, Event{Kind: "signup", UserID: u.ID, Detail: "account created"})
	return s.session(u)
}

// Login checks credentials. Unknown email and wrong password are
// indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	creds, err := s.users.GetCredentialsByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if creds == nil {
		return nil, ErrInvalidCredentials
	}
	ok, rehash, err := pwhash.Verify(creds.PasswordHash, password)
	if err != nil {
		s.log.WithError(err).WithField("user_id", creds.User.ID).Warn("stored password hash unreadable")
		return nil, ErrInvalidCredentials
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}
	if rehash {
		if h, err := pwhash.Hash(password); err == nil {
			if err := s.users.UpdatePasswordHash(ctx, creds.User.ID, h); err != nil {
				s.log.WithError(err).WithField("user_id", creds.User.ID).Warn("password rehash failed")
			}
		}
	}
	user := &creds.User
	if s.vip != nil {
		fresh, err := s.vip.CheckAndRevoke(ctx, user.ID)
		if err != nil {
			return nil, err
		}
		if fresh != nil {
			user = fresh
		}
	}
	s.audit.Record(ctx, Event{Kind: "login", UserID: user.ID, Detail: "password login"})
	return s.session(user)
}

func (s *Service) session(u *entitlements.Record) (*Session, error) {
	tok, err := s.signer.Issue(u.ID, u.Email)
	if err != nil {
		return nil, err
	}
	return &Session{Token: tok, User: u}, nil
}
