package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"train-schedule-service/internal/domain/entity"
	"train-schedule-service/internal/domain/repository"
	"train-schedule-service/pkg/logger"
	"train-schedule-service/pkg/metrics"
	"train-schedule-service/pkg/utils"
)

// SuccessMessage is reported in the summary of every committed run
const SuccessMessage = "Schedules updated successfully"

const runRecordTimeout = 5 * time.Second

// UpdaterConfig holds the settings a ScheduleUpdater is built with
type UpdaterConfig struct {
	// DefaultStations is used when a run is requested without stations
	DefaultStations []string
	// Concurrency bounds how many stations are fetched at once
	Concurrency int
}

// ScheduleUpdater runs the fetch, normalize and replace pipeline for a set of stations
type ScheduleUpdater struct {
	cfg           UpdaterConfig
	liveboardRepo repository.LiveboardRepository
	scheduleRepo  repository.ScheduleRepository
	runRepo       repository.RefreshRunRepository
	normalizer    *Normalizer
	metrics       *metrics.Metrics
	logger        logger.Logger
	now           func() time.Time
}

// NewScheduleUpdater creates a new schedule updater. runRepo may be nil.
func NewScheduleUpdater(
	cfg UpdaterConfig,
	liveboardRepo repository.LiveboardRepository,
	scheduleRepo repository.ScheduleRepository,
	runRepo repository.RefreshRunRepository,
	normalizer *Normalizer,
	metrics *metrics.Metrics,
	logger logger.Logger,
) *ScheduleUpdater {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	cfg.DefaultStations = utils.CleanStations(cfg.DefaultStations)

	return &ScheduleUpdater{
		cfg:           cfg,
		liveboardRepo: liveboardRepo,
		scheduleRepo:  scheduleRepo,
		runRepo:       runRepo,
		normalizer:    normalizer,
		metrics:       metrics,
		logger:        logger,
		now:           time.Now,
	}
}

// DefaultStations returns the configured fallback station list
func (u *ScheduleUpdater) DefaultStations() []string {
	return append([]string(nil), u.cfg.DefaultStations...)
}

// Run refreshes the schedules of stations, or of the default stations when none are given
func (u *ScheduleUpdater) Run(ctx context.Context, stations []string) (*entity.SummaryResult, error) {
	return u.RunWithTrigger(ctx, entity.TriggerManual, stations)
}

// RunWithTrigger is Run with the trigger recorded in logs, metrics and the run log
func (u *ScheduleUpdater) RunWithTrigger(ctx context.Context, trigger string, stations []string) (*entity.SummaryResult, error) {
	stations = utils.CleanStations(stations)
	if len(stations) == 0 {
		stations = u.DefaultStations()
	}
	if len(stations) == 0 {
		return nil, entity.ErrNoStations
	}

	runID := uuid.NewString()
	log := u.logger.With("runId", runID, "trigger", trigger)
	startedAt := u.now()
	log.Info("Starting schedule refresh", "stations", stations)

	batches := u.fetchAll(ctx, log, stations)

	summary := &entity.SummaryResult{
		RunID:                    runID,
		Stations:                 stations,
		ArrivalSchedulesCounts:   make([]int, len(stations)),
		DepartureSchedulesCounts: make([]int, len(stations)),
		Failures:                 []entity.FetchFailure{},
		Schedules:                []*entity.NormalizedSchedule{},
	}

	for i, batch := range batches {
		summary.ArrivalSchedulesCounts[i] = len(batch.Arrivals)
		summary.DepartureSchedulesCounts[i] = len(batch.Departures)
		summary.SkippedEntries += batch.Skipped
		summary.Failures = append(summary.Failures, batch.Failures...)
		summary.Schedules = append(summary.Schedules, batch.Arrivals...)
		summary.Schedules = append(summary.Schedules, batch.Departures...)
	}
	summary.TotalSchedules = len(summary.Schedules)

	writtenAt := u.now()
	for _, schedule := range summary.Schedules {
		schedule.LastUpdated = writtenAt
	}

	log.Info("Replacing schedules", "stations", len(stations), "records", summary.TotalSchedules)
	result, err := u.scheduleRepo.Replace(ctx, stations, summary.Schedules)
	if err != nil {
		var persistErr *entity.PersistenceError
		if !errors.As(err, &persistErr) {
			err = &entity.PersistenceError{Op: "replace", Err: err}
		}
		log.Error("Schedule refresh failed", "error", err)
		u.finish(ctx, log, trigger, startedAt, summary, nil, err)
		return nil, err
	}

	summary.Message = SuccessMessage
	log.Info("Schedule refresh completed",
		"total", summary.TotalSchedules,
		"deleted", result.Deleted,
		"skipped", summary.SkippedEntries,
		"failures", len(summary.Failures))
	u.finish(ctx, log, trigger, startedAt, summary, result, nil)

	return summary, nil
}

// fetchAll fetches every station with bounded parallelism; results keep the input order
func (u *ScheduleUpdater) fetchAll(ctx context.Context, log logger.Logger, stations []string) []*entity.StationBatch {
	batches := make([]*entity.StationBatch, len(stations))

	var g errgroup.Group
	g.SetLimit(u.cfg.Concurrency)
	for i, station := range stations {
		i, station := i, station
		g.Go(func() error {
			batches[i] = u.fetchStation(ctx, log, station)
			return nil
		})
	}
	g.Wait()

	return batches
}

func (u *ScheduleUpdater) fetchStation(ctx context.Context, log logger.Logger, station string) *entity.StationBatch {
	batch := &entity.StationBatch{Station: station}

	for _, direction := range entity.Directions {
		log.Debug("Fetching schedules", "station", station, "direction", direction)

		raws, err := u.liveboardRepo.FetchLiveboard(ctx, station, direction)
		if err != nil {
			var timeoutErr *entity.TimeoutError
			timeout := errors.As(err, &timeoutErr)
			kind := "fetch"
			if timeout {
				kind = "timeout"
			}
			u.metrics.FetchErrors.WithLabelValues(string(direction), kind).Inc()
			log.Error("Failed to fetch schedules",
				"station", station,
				"direction", direction,
				"timeout", timeout,
				"error", err)
			batch.Failures = append(batch.Failures, entity.FetchFailure{
				Station:   station,
				Direction: direction,
				Timeout:   timeout,
				Error:     err.Error(),
			})
			continue
		}

		if len(raws) == 0 {
			log.Warn("No schedules found", "station", station, "direction", direction)
			continue
		}

		for _, raw := range raws {
			schedule, err := u.normalizer.Normalize(raw, station, direction)
			if err != nil {
				batch.Skipped++
				log.Warn("Skipping schedule entry", "station", station, "direction", direction, "error", err)
				continue
			}
			batch.Add(schedule)
		}
	}

	return batch
}

func (u *ScheduleUpdater) finish(ctx context.Context, log logger.Logger, trigger string, startedAt time.Time, summary *entity.SummaryResult, result *entity.ReplaceResult, runErr error) {
	finishedAt := u.now()
	status := entity.RunStatusSucceeded
	if runErr != nil {
		status = entity.RunStatusFailed
	}

	u.metrics.RunsTotal.WithLabelValues(trigger, status).Inc()
	u.metrics.RunDuration.Observe(finishedAt.Sub(startedAt).Seconds())
	u.metrics.SkippedEntries.Add(float64(summary.SkippedEntries))
	if result != nil {
		u.metrics.RecordsPersisted.Add(float64(result.Inserted))
	}

	if u.runRepo == nil {
		return
	}

	run := &entity.RefreshRun{
		RunID:           summary.RunID,
		Trigger:         trigger,
		Stations:        summary.Stations,
		ArrivalCounts:   summary.ArrivalSchedulesCounts,
		DepartureCounts: summary.DepartureSchedulesCounts,
		TotalSchedules:  summary.TotalSchedules,
		SkippedEntries:  summary.SkippedEntries,
		Failures:        summary.Failures,
		Status:          status,
		StartedAt:       startedAt,
		FinishedAt:      finishedAt,
	}
	if result != nil {
		run.Deleted = result.Deleted
	}
	if runErr != nil {
		run.ErrorDetail = runErr.Error()
	}

	// The run log is written even when the caller's context is already done
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), runRecordTimeout)
	defer cancel()
	if err := u.runRepo.Save(saveCtx, run); err != nil {
		log.Error("Failed to record refresh run", "error", err)
	}
}
