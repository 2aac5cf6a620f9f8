// Package scheduler arms the periodic ingestion and enhancement ticks.
package scheduler

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Job is one periodic unit of work. Run must tolerate being skipped: a missed
// tick is fine because the next one re-derives all work from the store.
type Job struct {
	Name       string
	Interval   time.Duration
	RunOnStart bool
	Run        func(ctx context.Context) error

	running atomic.Bool
}

// Scheduler owns the cron instance and the overlap guards.
type Scheduler struct {
	logger *zap.Logger
	cron   *cron.Cron
	jobs   []*Job
}

// cronLogger adapts zap to the cron logging interface.
type cronLogger struct {
	logger *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Sugar().Infow(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}

// fixedDelay activates a job a fixed interval after each activation, keeping
// sub-second intervals as given (cron's @every rounds them up to one second).
type fixedDelay time.Duration

func (d fixedDelay) Next(t time.Time) time.Time { return t.Add(time.Duration(d)) }

// New builds an empty scheduler.
func New(logger *zap.Logger) *Scheduler {
	logger = logger.Named("scheduler")
	return &Scheduler{
		logger: logger,
		cron:   cron.New(cron.WithChain(cron.Recover(cronLogger{logger: logger}))),
	}
}

// Add registers a job. The overlap guard is a simple is-running flag with
// early return; queueing skipped ticks would add nothing.
func (s *Scheduler) Add(ctx context.Context, job *Job) error {
	if job.Interval <= 0 {
		return fmt.Errorf("schedule %s: interval must be positive", job.Name)
	}
	wrapped := func() {
		if !job.running.CompareAndSwap(false, true) {
			s.logger.Info("tick still running; skipping", zap.String("job", job.Name))
			return
		}
		defer job.running.Store(false)

		if ctx.Err() != nil {
			return
		}
		started := time.Now()
		if err := job.Run(ctx); err != nil {
			s.logger.Error("tick failed",
				zap.String("job", job.Name),
				zap.Duration("took", time.Since(started)),
				zap.Error(err),
			)
			return
		}
		s.logger.Debug("tick done",
			zap.String("job", job.Name),
			zap.Duration("took", time.Since(started)),
		)
	}

	s.cron.Schedule(fixedDelay(job.Interval), cron.FuncJob(wrapped))
	s.jobs = append(s.jobs, job)

	if job.RunOnStart {
		go wrapped()
	}
	return nil
}

// Start arms all registered jobs.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", zap.Int("jobs", len(s.jobs)))
}

// Stop stops arming new ticks and waits for any in-flight tick to complete.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}
