package entity

import "time"

// Refresh run status
const (
	RunStatusSucceeded = "SUCCEEDED"
	RunStatusFailed    = "FAILED"
)

// Run triggers
const (
	TriggerManual  = "manual"
	TriggerHTTP    = "http"
	TriggerTimer   = "timer"
	TriggerStartup = "startup"
)

// RefreshRun is the audit record of one pipeline run
type RefreshRun struct {
	RunID           string         `bson:"runId"`
	Trigger         string         `bson:"trigger"`
	Stations        []string       `bson:"stations"`
	ArrivalCounts   []int          `bson:"arrivalCounts"`
	DepartureCounts []int          `bson:"departureCounts"`
	TotalSchedules  int            `bson:"totalSchedules"`
	SkippedEntries  int            `bson:"skippedEntries"`
	Deleted         int64          `bson:"deleted"`
	Failures        []FetchFailure `bson:"failures"`
	Status          string         `bson:"status"`
	ErrorDetail     string         `bson:"errorDetail,omitempty"`
	StartedAt       time.Time      `bson:"startedAt"`
	FinishedAt      time.Time      `bson:"finishedAt"`
}
