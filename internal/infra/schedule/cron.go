package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"rentcar/internal/app/commands"
	"rentcar/internal/app/handlers/ledger"
)

// Job is a named periodic task. Run receives a context cancelled on shutdown or after Timeout.
type Job struct {
	Name    string
	Spec    string
	Timeout time.Duration
	Run     func(ctx context.Context) error
}

// Cron runs jobs on robfig/cron schedules. A job still running when its next tick fires is
// skipped rather than overlapped.
type Cron struct {
	c      *cron.Cron
	logger *slog.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

func New(loc *time.Location, logger *slog.Logger) *Cron {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	adapter := cronLogger{logger: logger}
	ctx, cancel := context.WithCancel(context.Background())
	return &Cron{
		c: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(adapter),
			cron.WithChain(cron.Recover(adapter), cron.SkipIfStillRunning(adapter)),
		),
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

func (s *Cron) Add(job Job) error {
	if job.Run == nil {
		return fmt.Errorf("schedule: job %q has no run func", job.Name)
	}
	_, err := s.c.AddFunc(job.Spec, func() { s.run(job) })
	if err != nil {
		return fmt.Errorf("schedule: job %q: %w", job.Name, err)
	}
	return nil
}

func (s *Cron) run(job Job) {
	ctx := s.ctx
	if job.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, job.Timeout)
		defer cancel()
	}
	start := time.Now()
	if err := job.Run(ctx); err != nil {
		s.logger.Error("scheduled job failed", "job", job.Name, "duration", time.Since(start), "error", err)
		return
	}
	s.logger.Info("scheduled job finished", "job", job.Name, "duration", time.Since(start))
}

// Run starts the scheduler and blocks until ctx is done, then waits for running jobs.
func (s *Cron) Run(ctx context.Context) error {
	s.c.Start()
	<-ctx.Done()
	s.cancel()
	<-s.c.Stop().Done()
	return nil
}

// ReconcileJob dispatches the ledger reconciliation as the system actor.
func ReconcileJob(bus commands.Bus, spec string) Job {
	return Job{
		Name:    "ledger.reconcile",
		Spec:    spec,
		Timeout: 10 * time.Minute,
		Run: func(ctx context.Context) error {
			_, err := bus.Dispatch(ctx, ledger.ReconcileCommand{Actor: ledger.SystemActor, System: true})
			return err
		},
	}
}

type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
