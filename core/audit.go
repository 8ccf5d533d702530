package core

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Event is one auditable account or payment event.
type Event struct {
	Kind          string // signup | login | payment_verified | payment_rejected | payment_failed | payment_duplicate
	UserID        string
	Gateway       string
	TransactionID string
	Detail        string
	At            time.Time
}

// AuditLogger records events to an external sink. Implementations should be
// non-blocking and best-effort.
type AuditLogger interface {
	Record(ctx context.Context, ev Event)
}

// LogrusAudit writes events as structured log lines.
type LogrusAudit struct {
	Log logrus.FieldLogger
}

func (a LogrusAudit) Record(_ context.Context, ev Event) {
	if a.Log == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	a.Log.WithFields(logrus.Fields{
		"audit":   ev.Kind,
		"user_id": ev.UserID,
		"gateway": ev.Gateway,
		"txn_id":  ev.TransactionID,
		"at":      ev.At.UTC().Format(time.RFC3339),
	}).Info(ev.Detail)
}

// NopAudit drops every event.
type NopAudit struct{}

func (NopAudit) Record(context.Context, Event) {}
