// Package jobs schedules the expired-VIP sweep. With Postgres the sweep is a
// river periodic job, so exactly one replica runs each tick; without it an
// in-process cron runs the sweep directly.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/riverqueue/river"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// DefaultSchedule runs the sweep at the top of every hour.
const DefaultSchedule = "@hourly"

// Sweeper is the batch revocation entry point (entitlements.Service).
type Sweeper interface {
	RevokeExpired(ctx context.Context) (int64, error)
}

// Scheduler runs the sweep until stopped.
type Scheduler interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// ParseSchedule accepts standard five-field cron specs and descriptors
// (@hourly, @every 15m).
func ParseSchedule(spec string) (cron.Schedule, error) {
	if spec == "" {
		spec = DefaultSchedule
	}
	s, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", spec, err)
	}
	return s, nil
}

// SweepArgs is the river job payload.
type SweepArgs struct {
	Trigger string `json:"trigger,omitempty"`
}

func (SweepArgs) Kind() string { return "revoke_expired_vips" }

// SweepWorker runs one sweep per job.
type SweepWorker struct {
	river.WorkerDefaults[SweepArgs]
	sweeper Sweeper
	log     logrus.FieldLogger
}

func NewSweepWorker(s Sweeper, log logrus.FieldLogger) *SweepWorker {
	return &SweepWorker{sweeper: s, log: log}
}

func (w *SweepWorker) Work(ctx context.Context, job *river.Job[SweepArgs]) error {
	n, err := w.sweeper.RevokeExpired(ctx)
	if err != nil {
		return fmt.Errorf("revoke expired vips: %w", err)
	}
	w.log.WithFields(logrus.Fields{"job_id": job.ID, "trigger": job.Args.Trigger, "revoked": n}).Info("sweep job finished")
	return nil
}

// Timeout bounds one sweep; it is a single UPDATE.
func (w *SweepWorker) Timeout(*river.Job[SweepArgs]) time.Duration { return 5 * time.Minute }
