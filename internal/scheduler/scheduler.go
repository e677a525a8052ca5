package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/robfig/cron/v3"
)

// Jobs is what the scheduler runs.
type Jobs interface {
	PublishLatest(ctx context.Context) error
	Flush() error
}

// Scheduler runs the periodic publish and the daily flush.
type Scheduler struct {
	interval *gocron.Scheduler
	daily    *cron.Cron
	jobs     Jobs
	log      *slog.Logger

	publishEvery time.Duration
	flushAt      DailyAt
	flushEntry   cron.EntryID
}

// New creates a new Scheduler.
func New(jobs Jobs, publishEvery time.Duration, flushAt DailyAt, log *slog.Logger) *Scheduler {
	log = log.With("component", "scheduler")
	loc := flushAt.Location
	if loc == nil {
		loc = time.Local
	}

	clog := cronLogger{log}
	return &Scheduler{
		interval: gocron.NewScheduler(loc),
		daily: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(clog),
			cron.WithChain(cron.Recover(clog), cron.SkipIfStillRunning(clog)),
		),
		jobs:         jobs,
		log:          log,
		publishEvery: publishEvery,
		flushAt:      flushAt,
	}
}

// Start schedules both jobs. The first publish runs immediately.
func (s *Scheduler) Start() error {
	if s.publishEvery <= 0 {
		return fmt.Errorf("scheduler: publish interval must be positive, got %s", s.publishEvery)
	}

	s.interval.SingletonModeAll()
	if _, err := s.interval.Every(s.publishEvery).Do(s.runPublish); err != nil {
		return fmt.Errorf("scheduler: schedule publish: %w", err)
	}

	s.flushEntry = s.daily.Schedule(s.flushAt, cron.FuncJob(s.runFlush))

	s.interval.StartAsync()
	s.daily.Start()

	s.log.Info("scheduler started",
		"publish_every", s.publishEvery.String(),
		"flush_at", s.flushAt.String(),
		"next_flush", s.NextFlush().Format(time.DateTime))
	return nil
}

// Stop stops both jobs and waits for a running flush to finish.
func (s *Scheduler) Stop() {
	if s.interval != nil {
		s.interval.Stop()
	}
	if s.daily != nil {
		<-s.daily.Stop().Done()
	}
}

// NextFlush returns when the daily flush fires next.
func (s *Scheduler) NextFlush() time.Time {
	if next := s.daily.Entry(s.flushEntry).Next; !next.IsZero() {
		return next
	}
	return s.flushAt.Next(time.Now())
}

func (s *Scheduler) runPublish() {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("publish job panicked", "panic", r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.jobs.PublishLatest(ctx); err != nil {
		s.log.Warn("publish failed; retrying at next interval", "error", err)
	}
}

func (s *Scheduler) runFlush() {
	s.log.Info("running daily flush")
	if err := s.jobs.Flush(); err != nil {
		s.log.Error("daily flush failed", "error", err)
	}
	s.log.Info("next flush scheduled", "at", s.flushAt.Next(time.Now()).Format(time.DateTime))
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct{ log *slog.Logger }

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
