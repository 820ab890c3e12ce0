package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/nurpe/snowops-agreements/internal/observability/metrics"
)

const (
	JobReminders = "reminders"
	JobReaper    = "reaper"

	defaultJobTimeout = 30 * time.Minute
)

// Task is one scheduled unit of work.
type Task func(ctx context.Context) error

type Scheduler struct {
	cron    *cron.Cron
	locker  Locker
	timeout time.Duration
	log     zerolog.Logger
}

func NewScheduler(locker Locker, loc *time.Location, timeout time.Duration, log zerolog.Logger) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	if timeout <= 0 {
		timeout = defaultJobTimeout
	}
	return &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLocation(loc),
			cron.WithChain(cron.Recover(cronLogger{log: log})),
		),
		locker:  locker,
		timeout: timeout,
		log:     log,
	}
}

func (s *Scheduler) Register(name, spec string, task Task) error {
	if _, err := s.cron.AddFunc(spec, func() { _ = s.Run(context.Background(), name, task) }); err != nil {
		return fmt.Errorf("schedule %s (%q): %w", name, spec, err)
	}
	s.log.Info().Str("job", name).Str("schedule", spec).Msg("registered job")
	return nil
}

// ErrJobLocked is returned by Run when another instance holds the job lock.
var ErrJobLocked = errors.New("job is already running")

// Run executes task under the job lock.
func (s *Scheduler) Run(ctx context.Context, name string, task Task) error {
	acquired, err := s.locker.TryLock(ctx, name, s.timeout+30*time.Second)
	if err != nil {
		s.log.Error().Err(err).Str("job", name).Msg("failed to acquire job lock")
		return fmt.Errorf("acquire lock for %s: %w", name, err)
	}
	if !acquired {
		metrics.ObserveJob(name, "skipped", 0)
		s.log.Debug().Str("job", name).Msg("job already running elsewhere, skipping")
		return ErrJobLocked
	}
	defer func() {
		if err := s.locker.Unlock(context.Background(), name); err != nil {
			s.log.Error().Err(err).Str("job", name).Msg("failed to release job lock")
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	started := time.Now()
	if err := task(ctx); err != nil {
		metrics.ObserveJob(name, "failed", time.Since(started))
		s.log.Error().Err(err).Str("job", name).Msg("job failed")
		return err
	}
	metrics.ObserveJob(name, "ok", time.Since(started))
	s.log.Info().Str("job", name).Dur("duration", time.Since(started)).Msg("job completed")
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Int("jobs", len(s.cron.Entries())).Msg("job scheduler started")
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info().Msg("job scheduler stopped")
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
