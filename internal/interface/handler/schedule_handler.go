package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"train-schedule-service/internal/domain/entity"
	"train-schedule-service/internal/domain/repository"
	"train-schedule-service/pkg/logger"
	"train-schedule-service/pkg/utils"
)

const (
	defaultListLimit = 50
	maxListLimit     = 1000
)

// ScheduleUpdater is the part of the refresh pipeline the HTTP trigger needs
type ScheduleUpdater interface {
	RunWithTrigger(ctx context.Context, trigger string, stations []string) (*entity.SummaryResult, error)
}

// ErrorResponse is the JSON body of every non-2xx response
type ErrorResponse struct {
	Error string `json:"error"`
}

// ScheduleHandler serves the on-demand refresh trigger and read endpoints
type ScheduleHandler struct {
	updater      ScheduleUpdater
	scheduleRepo repository.ScheduleRepository
	runRepo      repository.RefreshRunRepository
	logger       logger.Logger
}

// NewScheduleHandler creates a new schedule handler. runRepo may be nil.
func NewScheduleHandler(
	updater ScheduleUpdater,
	scheduleRepo repository.ScheduleRepository,
	runRepo repository.RefreshRunRepository,
	logger logger.Logger,
) *ScheduleHandler {
	return &ScheduleHandler{
		updater:      updater,
		scheduleRepo: scheduleRepo,
		runRepo:      runRepo,
		logger:       logger,
	}
}

// HasRunLog reports whether refresh runs are recorded and can be listed
func (h *ScheduleHandler) HasRunLog() bool {
	return h.runRepo != nil
}

// UpdateSchedules handles GET|POST /api/update_schedules?stations=A,B
func (h *ScheduleHandler) UpdateSchedules(w http.ResponseWriter, r *http.Request) {
	h.logger.Info("Update schedules requested", "remote", r.RemoteAddr)
	defer h.logger.Info("Update schedules completed")

	stations := utils.ParseStationList(r.URL.Query().Get("stations"))

	// An in-flight run is not cancelled when the client goes away
	summary, err := h.updater.RunWithTrigger(context.WithoutCancel(r.Context()), entity.TriggerHTTP, stations)
	if err != nil {
		if errors.Is(err, entity.ErrNoStations) {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "No stations provided"})
			return
		}
		h.logger.Error("Update schedules failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "Internal server error: " + err.Error()})
		return
	}

	if include, err := strconv.ParseBool(r.URL.Query().Get("include_schedules")); err == nil && !include {
		summary.Schedules = nil
	}

	writeJSON(w, http.StatusOK, summary)
}

// ListSchedulesResponse is the JSON response structure for GET /api/schedules
type ListSchedulesResponse struct {
	Schedules []*entity.NormalizedSchedule `json:"schedules"`
	Count     int                          `json:"count"`
}

// ListSchedules handles GET /api/schedules?limit=N
func (h *ScheduleHandler) ListSchedules(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}

	schedules, err := h.scheduleRepo.ListLatest(r.Context(), limit)
	if err != nil {
		h.logger.Error("Failed to list schedules", "error", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "Failed to retrieve schedules"})
		return
	}

	writeJSON(w, http.StatusOK, ListSchedulesResponse{Schedules: schedules, Count: len(schedules)})
}

// ListRuns handles GET /api/runs?limit=N
func (h *ScheduleHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	if h.runRepo == nil {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "Run log is not enabled"})
		return
	}

	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}

	runs, err := h.runRepo.FindLatest(r.Context(), int64(limit))
	if err != nil {
		h.logger.Error("Failed to list refresh runs", "error", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "Failed to retrieve refresh runs"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"runs":  runs,
		"count": len(runs),
	})
}

// Health handles GET /health with a database connectivity check
func (h *ScheduleHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.scheduleRepo.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":    "error",
			"database":  "disconnected",
			"timestamp": time.Now().UTC(),
			"error":     err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"database":  "connected",
		"timestamp": time.Now().UTC(),
	})
}

func parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	value := r.URL.Query().Get("limit")
	if value == "" {
		return defaultListLimit, true
	}
	limit, err := strconv.Atoi(value)
	if err != nil || limit < 1 {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "limit must be a positive integer"})
		return 0, false
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return limit, true
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
