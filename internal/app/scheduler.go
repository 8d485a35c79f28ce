package app

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/bobmcallan/iacob/internal/common"
)

// Job is a unit of scheduled work.
type Job interface {
	Run() error
	Name() string
}

// Scheduler runs jobs on cron schedules. Expressions take a leading seconds
// field, e.g. "0 30 14 * * MON-FRI".
type Scheduler struct {
	cron   *cron.Cron
	logger *common.Logger
}

// NewScheduler creates a scheduler. Runs of the same job never overlap; a
// tick that fires while the previous run is still going is skipped.
func NewScheduler(logger *common.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		logger: logger,
	}
}

// AddJob registers a job with a cron schedule
func (s *Scheduler) AddJob(schedule string, job Job) error {
	_, err := s.cron.AddFunc(schedule, func() {
		start := time.Now()
		s.logger.Info().Str("job", job.Name()).Msg("Running scheduled job")

		if err := job.Run(); err != nil {
			s.logger.Error().
				Err(err).
				Str("job", job.Name()).
				Dur("elapsed", time.Since(start)).
				Msg("Scheduled job failed")
			return
		}
		s.logger.Info().
			Str("job", job.Name()).
			Dur("elapsed", time.Since(start)).
			Msg("Scheduled job completed")
	})
	if err != nil {
		return err
	}

	s.logger.Info().
		Str("schedule", schedule).
		Str("job", job.Name()).
		Msg("Job registered")
	return nil
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info().Int("jobs", len(s.cron.Entries())).Msg("Scheduler started")
}

// Stop stops the scheduler and waits for running jobs to finish
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info().Msg("Scheduler stopped")
}

// Next returns the next activation time of the earliest job, zero when
// nothing is scheduled or the scheduler is not running.
func (s *Scheduler) Next() time.Time {
	var next time.Time
	for _, e := range s.cron.Entries() {
		if e.Next.IsZero() {
			continue
		}
		if next.IsZero() || e.Next.Before(next) {
			next = e.Next
		}
	}
	return next
}

// RunNow executes a job immediately, outside its schedule
func (s *Scheduler) RunNow(job Job) error {
	s.logger.Info().Str("job", job.Name()).Msg("Running job immediately")
	return job.Run()
}

// TradingJob runs one trading session per activation.
type TradingJob struct {
	app     *App
	ctx     context.Context
	timeout time.Duration
}

// NewTradingJob creates the scheduled trading session job. ctx bounds every
// run; timeout caps a single session when positive.
func NewTradingJob(ctx context.Context, app *App, timeout time.Duration) *TradingJob {
	return &TradingJob{app: app, ctx: ctx, timeout: timeout}
}

// Name returns the job name
func (j *TradingJob) Name() string {
	return "trading-session-" + j.app.Market.String()
}

// Run executes one session
func (j *TradingJob) Run() error {
	ctx := j.ctx
	if j.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.timeout)
		defer cancel()
	}
	_, err := j.app.RunOnce(ctx)
	return err
}
