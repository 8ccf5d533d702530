package entitlements

import (
	"context"
	"time"

	"github.com/PaulFidika/vipkit/logging"
	"github.com/sirupsen/logrus"
)

// Service runs the lazy and batch expiry paths. Both defer to Expired so the
// two can never disagree about what "expired" means.
type Service struct {
	store Store
	log   logrus.FieldLogger
	now   func() time.Time
}

type Option func(*Service)

// WithClock overrides the time source (tests, backfills).
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

func NewService(store Store, opts ...Option) *Service {
	s := &Service{store: store, log: logging.Discard(), now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Now exposes the service clock so callers computing grants share it.
func (s *Service) Now() time.Time { return s.now() }

// CheckAndRevoke loads a user and, if the stored VIP flag is stale, persists
// the revocation before returning. Returns nil, nil when the user is missing.
func (s *Service) CheckAndRevoke(ctx context.Context, userID string) (*Record, error) {
	rec, err := s.store.GetByID(ctx, userID)
	if err != nil || rec == nil {
		return nil, err
	}
	now := s.now()
	if !Expired(rec, now) {
		return rec, nil
	}
	updated, err := s.store.RevokeIfExpired(ctx, userID, now)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, nil
	}
	s.log.WithFields(logrus.Fields{"user_id": userID}).Info("vip expired on read; revoked")
	// Another writer may have re-granted between the read and the update; the
	// store answer is authoritative, Effective only guards the presentation.
	return Effective(updated, now), nil
}

// RevokeExpired is the batch sweep.
func (s *Service) RevokeExpired(ctx context.Context) (int64, error) {
	n, err := s.store.RevokeExpired(ctx, s.now())
	if err != nil {
		return 0, err
	}
	s.log.WithFields(logrus.Fields{"revoked": n}).Info("expired vip sweep finished")
	return n, nil
}

// CountExpired is the dry run of RevokeExpired.
func (s *Service) CountExpired(ctx context.Context) (int64, error) {
	return s.store.CountExpired(ctx, s.now())
}
