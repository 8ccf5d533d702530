package jobs

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/sirupsen/logrus"
)

// RiverScheduler enqueues the sweep as a periodic river job. River elects a
// leader among replicas, so each tick is enqueued once.
type RiverScheduler struct {
	client *river.Client[pgx.Tx]
	log    logrus.FieldLogger
}

func NewRiverScheduler(pool *pgxpool.Pool, s Sweeper, spec string, log logrus.FieldLogger) (*RiverScheduler, error) {
	sched, err := ParseSchedule(spec)
	if err != nil {
		return nil, err
	}
	workers := river.NewWorkers()
	if err := river.AddWorkerSafely(workers, NewSweepWorker(s, log)); err != nil {
		return nil, err
	}
	client, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: 1},
		},
		Workers: workers,
		PeriodicJobs: []*river.PeriodicJob{
			river.NewPeriodicJob(sched, func() (river.JobArgs, *river.InsertOpts) {
				return SweepArgs{Trigger: "schedule"}, nil
			}, &river.PeriodicJobOpts{RunOnStart: true}),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("river client: %w", err)
	}
	return &RiverScheduler{client: client, log: log}, nil
}

func (r *RiverScheduler) Start(ctx context.Context) error {
	if err := r.client.Start(ctx); err != nil {
		return fmt.Errorf("start river: %w", err)
	}
	r.log.Info("sweep scheduled via river")
	return nil
}

func (r *RiverScheduler) Stop(ctx context.Context) error { return r.client.Stop(ctx) }

// MigrateRiver installs or upgrades river's own tables.
func MigrateRiver(ctx context.Context, pool *pgxpool.Pool, log logrus.FieldLogger) error {
	m, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		return err
	}
	res, err := m.Migrate(ctx, rivermigrate.DirectionUp, nil)
	if err != nil {
		return fmt.Errorf("river migrate: %w", err)
	}
	for _, v := range res.Versions {
		log.WithField("version", v.Version).Info("river migration applied")
	}
	return nil
}
