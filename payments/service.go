package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/PaulFidika/vipkit/core"
	"github.com/PaulFidika/vipkit/entitlements"
	"github.com/PaulFidika/vipkit/logging"
	"github.com/sirupsen/logrus"
)

// Result codes let the HTTP layer pick a status without parsing messages.
const (
	CodeInvalidSignature        = "invalid_signature"
	CodeGatewayFailure          = "gateway_failure"
	CodeAlreadyClaimed          = "already_claimed"
	CodeEntitlementUpdateFailed = "entitlement_update_failed"
)

const (
	msgInvalidSignature = "Invalid payment signature"
	msgUpdateFailed     = "Payment verified but failed to update subscription. Please contact support."
	msgAlreadyClaimed   = "This payment has already been applied to another account."
)

// Result is what a verified (or rejected) callback produced. Business
// failures are results, not errors.
type Result struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message"`
	Code    string                 `json:"-"`
	Payment *Reference             `json:"payment,omitempty"`
	User    *entitlements.Snapshot `json:"user,omitempty"`
}

// Service turns gateway callbacks into entitlement changes.
type Service struct {
	store  entitlements.Store
	orders OrderCache
	audit  core.AuditLogger
	log    logrus.FieldLogger
	now    func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func WithAudit(a core.AuditLogger) Option {
	return func(s *Service) {
		if a != nil {
			s.audit = a
		}
	}
}

// WithOrders lets receipts record the quoted amount when the callback has none.
func WithOrders(c OrderCache) Option { return func(s *Service) { s.orders = c } }

func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

func NewService(store entitlements.Store, opts ...Option) *Service {
	s := &Service{store: store, audit: core.NopAudit{}, log: logging.Discard(), now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// VerifyAndGrant checks att and, when it proves a successful payment, grants
// VIP to userID for 30 calendar days from now. The entitlement store is not
// touched unless the signature is valid and the gateway reported success.
//
// Errors are reserved for unauthenticated calls, missing fields, missing
// gateway credentials and unexpected failures; everything else is a Result.
func (s *Service) VerifyAndGrant(ctx context.Context, userID string, att Attestation) (*Result, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	if att == nil || !att.Complete() {
		return nil, ErrMissingDetails
	}
	ref := att.Reference()
	ev := core.Event{UserID: userID, Gateway: att.Gateway(), TransactionID: ref.OrderID}
	log := s.log.WithFields(logrus.Fields{"user_id": userID, "gateway": att.Gateway(), "txn_id": ref.OrderID})

	ok, err := att.Verify()
	if err != nil {
		return nil, err
	}
	if !ok {
		log.Warn("payment signature rejected")
		ev.Kind, ev.Detail = "payment_rejected", "invalid signature"
		s.audit.Record(ctx, ev)
		return &Result{Success: false, Message: msgInvalidSignature, Code: CodeInvalidSignature}, nil
	}

	if status := att.Status(); status != StatusSuccess {
		log.WithField("status", status).Info("gateway reported non-success status")
		ev.Kind, ev.Detail = "payment_failed", status
		s.audit.Record(ctx, ev)
		return &Result{
			Success: false,
			Message: fmt.Sprintf("Payment %s. Transaction ID: %s", status, ref.OrderID),
			Code:    CodeGatewayFailure,
		}, nil
	}

	now := s.now()
	expiresAt := entitlements.ExpiryFrom(now)
	amount := att.Amount()
	if amount == "" {
		amount = s.quotedAmount(ctx, log, att.Gateway(), ref.OrderID)
	}
	rec, err := s.store.Grant(ctx, entitlements.Grant{
		UserID:    userID,
		ExpiresAt: expiresAt,
		Receipt: &entitlements.Receipt{
			Gateway:       att.Gateway(),
			TransactionID: ref.OrderID,
			PaymentID:     ref.PaymentID,
			Amount:        amount,
			UserID:        userID,
			AppliedAt:     now,
		},
	})
	if err != nil {
		var applied *entitlements.AppliedError
		if errors.As(err, &applied) {
			return s.duplicate(ctx, log, ev, userID, ref, applied.Existing)
		}
		log.WithError(err).Error("payment verified but entitlement update failed")
		ev.Kind, ev.Detail = "payment_failed", "entitlement update failed"
		s.audit.Record(ctx, ev)
		return &Result{Success: false, Message: msgUpdateFailed, Code: CodeEntitlementUpdateFailed}, nil
	}

	log.WithField("vip_expires_at", rec.VIPExpiresAt).Info("vip granted")
	if s.orders != nil {
		if err := s.orders.Del(ctx, att.Gateway(), ref.OrderID); err != nil {
			log.WithError(err).Warn("failed to drop pending order")
		}
	}
	ev.Kind, ev.Detail = "payment_verified", "vip granted"
	s.audit.Record(ctx, ev)
	snap := rec.Snapshot()
	until := expiresAt
	if rec.VIPExpiresAt != nil {
		until = *rec.VIPExpiresAt
	}
	return &Result{
		Success: true,
		Message: fmt.Sprintf("Payment verified successfully. Your VIP subscription is now active until %s!", until.Format("Jan 2, 2006")),
		Payment: &ref,
		User:    &snap,
	}, nil
}

// duplicate answers a replayed callback. The owner gets an idempotent success
// with their current entitlement; anyone else is refused.
func (s *Service) duplicate(ctx context.Context, log logrus.FieldLogger, ev core.Event, userID string, ref Reference, existing entitlements.Receipt) (*Result, error) {
	ev.Kind = "payment_duplicate"
	if existing.UserID != userID {
		log.WithField("owner_id", existing.UserID).Warn("transaction already claimed by another account")
		ev.Detail = "claimed by another account"
		s.audit.Record(ctx, ev)
		return &Result{Success: false, Message: msgAlreadyClaimed, Code: CodeAlreadyClaimed}, nil
	}
	ev.Detail = "replayed callback"
	s.audit.Record(ctx, ev)
	rec, err := s.store.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return &Result{Success: false, Message: msgUpdateFailed, Code: CodeEntitlementUpdateFailed}, nil
	}
	snap := entitlements.Effective(rec, s.now()).Snapshot()
	return &Result{
		Success: true,
		Message: "Payment already applied. Your VIP subscription is unchanged.",
		Payment: &ref,
		User:    &snap,
	}, nil
}

func (s *Service) quotedAmount(ctx context.Context, log logrus.FieldLogger, gateway, orderID string) string {
	if s.orders == nil {
		return ""
	}
	o, ok, err := s.orders.Get(ctx, gateway, orderID)
	if err != nil {
		log.WithError(err).Warn("pending order lookup failed")
		return ""
	}
	if !ok {
		log.Debug("no pending order for callback")
		return ""
	}
	return o.Amount
}
