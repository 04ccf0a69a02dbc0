package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"

	"train-schedule-service/internal/domain/entity"
	"train-schedule-service/pkg/logger"
)

// Runner is the refresh pipeline as seen by the timer trigger
type Runner interface {
	RunWithTrigger(ctx context.Context, trigger string, stations []string) (*entity.SummaryResult, error)
}

// Scheduler fires schedule refreshes on a cron expression with a seconds field
type Scheduler struct {
	cron   *cron.Cron
	runner Runner
	logger logger.Logger
	ctx    context.Context

	// held for the whole of a refresh, whichever way it was started
	running sync.Mutex
}

// NewScheduler parses the cron expression and registers the refresh job; Start must be called to run it
func NewScheduler(ctx context.Context, expr string, runner Runner, logger logger.Logger) (*Scheduler, error) {
	cronLogger := cronLogAdapter{logger: logger}
	c := cron.New(
		cron.WithSeconds(),
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)

	s := &Scheduler{
		cron:   c,
		runner: runner,
		logger: logger,
		ctx:    ctx,
	}

	if _, err := c.AddFunc(expr, s.Trigger); err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}

	return s, nil
}

// Start begins firing the timer in the background
func (s *Scheduler) Start() {
	s.cron.Start()
	for _, e := range s.cron.Entries() {
		s.logger.Info("Timer trigger scheduled", "next", e.Next)
	}
}

// Stop stops the timer and returns a context that is done once a running refresh has finished
func (s *Scheduler) Stop() context.Context {
	cronDone := s.cron.Stop()
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-cronDone.Done()
		s.running.Lock()
		s.running.Unlock()
		cancel()
	}()
	return ctx
}

// Trigger runs one refresh for the configured default stations and logs the summary
func (s *Scheduler) Trigger() {
	s.run(entity.TriggerTimer)
}

// RunOnce runs a refresh outside the timer, e.g. at startup
func (s *Scheduler) RunOnce() {
	s.run(entity.TriggerStartup)
}

func (s *Scheduler) run(trigger string) {
	if !s.running.TryLock() {
		s.logger.Warn("Refresh still running, skipping", "trigger", trigger)
		return
	}
	defer s.running.Unlock()

	s.logger.Info("Timer trigger started", "trigger", trigger)
	defer s.logger.Info("Timer trigger completed", "trigger", trigger)

	summary, err := s.runner.RunWithTrigger(s.ctx, trigger, nil)
	if err != nil {
		s.logger.Error("Timer trigger failed", "trigger", trigger, "error", err)
		return
	}

	s.logger.Info("Schedules updated",
		"runId", summary.RunID,
		"stations", summary.Stations,
		"arrivalCounts", summary.ArrivalSchedulesCounts,
		"departureCounts", summary.DepartureSchedulesCounts,
		"total", summary.TotalSchedules,
		"skipped", summary.SkippedEntries,
		"failures", len(summary.Failures))
}

// cronLogAdapter routes cron's own logging into the service logger
type cronLogAdapter struct {
	logger logger.Logger
}

func (a cronLogAdapter) Info(msg string, keysAndValues ...interface{}) {
	a.logger.Debug("cron: "+msg, keysAndValues...)
}

func (a cronLogAdapter) Error(err error, msg string, keysAndValues ...interface{}) {
	a.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
