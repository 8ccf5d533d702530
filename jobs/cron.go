package jobs

import (
	"context"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// CronScheduler runs the sweep in-process. Use it only for single-instance
// deployments (the memory store).
type CronScheduler struct {
	c       *cron.Cron
	sweeper Sweeper
	log     logrus.FieldLogger
	ctx     context.Context
	cancel  context.CancelFunc
	initial sync.WaitGroup
}

func NewCronScheduler(s Sweeper, spec string, log logrus.FieldLogger) (*CronScheduler, error) {
	sched, err := ParseSchedule(spec)
	if err != nil {
		return nil, err
	}
	cl := cronLogger{log}
	cs := &CronScheduler{
		c:       cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		sweeper: s,
		log:     log,
	}
	cs.c.Schedule(sched, cron.FuncJob(cs.run))
	return cs, nil
}

// Start runs one sweep immediately, then follows the schedule.
func (cs *CronScheduler) Start(ctx context.Context) error {
	cs.ctx, cs.cancel = context.WithCancel(context.WithoutCancel(ctx))
	cs.initial.Add(1)
	go func() {
		defer cs.initial.Done()
		cs.run()
	}()
	cs.c.Start()
	cs.log.Info("sweep scheduled in-process")
	return nil
}

// Stop waits for running sweeps, including the one Start kicked off, or
// for ctx, whichever ends first.
func (cs *CronScheduler) Stop(ctx context.Context) error {
	cronDone := cs.c.Stop()
	done := make(chan struct{})
	go func() {
		<-cronDone.Done()
		cs.initial.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
	if cs.cancel != nil {
		cs.cancel()
	}
	return nil
}

func (cs *CronScheduler) run() {
	ctx := cs.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	n, err := cs.sweeper.RevokeExpired(ctx)
	if err != nil {
		cs.log.WithError(err).Error("scheduled sweep failed")
		return
	}
	cs.log.WithField("revoked", n).Debug("scheduled sweep finished")
}

// cronLogger adapts logrus to cron.Logger.
type cronLogger struct{ log logrus.FieldLogger }

func (l cronLogger) Info(msg string, kv ...interface{}) {
	l.log.WithFields(fields(kv)).Debug(msg)
}

func (l cronLogger) Error(err error, msg string, kv ...interface{}) {
	l.log.WithError(err).WithFields(fields(kv)).Error(msg)
}

func fields(kv []interface{}) logrus.Fields {
	f := logrus.Fields{}
	for i := 0; i+1 < len(kv); i += 2 {
		if k, ok := kv[i].(string); ok {
			f[k] = kv[i+1]
		}
	}
	return f
}
