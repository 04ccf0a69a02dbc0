package entity

import (
	"fmt"
	"strings"
	"time"
)

// Direction tells whether an entry arrives at or departs from the queried station
type Direction string

const (
	DirectionArrival   Direction = "ARRIVAL"
	DirectionDeparture Direction = "DEPARTURE"
)

// Directions lists every direction fetched for a station, in fetch order
var Directions = []Direction{DirectionArrival, DirectionDeparture}

// Current status codes stored in current_status
const (
	StatusOnTime   = "On Time"
	StatusDelayed  = "Delayed"
	StatusCanceled = "Canceled"
)

// ParseDirection accepts the canonical names as well as iRail's arrdep values
func ParseDirection(value string) (Direction, error) {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "ARRIVAL", "ARRIVALS":
		return DirectionArrival, nil
	case "DEPARTURE", "DEPARTURES":
		return DirectionDeparture, nil
	}
	return "", fmt.Errorf("unknown direction %q", value)
}

// Valid reports whether d is one of the known directions
func (d Direction) Valid() bool {
	return d == DirectionArrival || d == DirectionDeparture
}

// QueryValue returns the value the liveboard API expects for arrdep
func (d Direction) QueryValue() string {
	return strings.ToLower(string(d))
}

// DelayUnit is the unit a provider reports delays in
type DelayUnit int

const (
	DelaySeconds DelayUnit = iota
	DelayMinutes
)

// RawScheduleEntry is one liveboard row as the provider sent it.
// It lives only for the duration of a fetch cycle.
type RawScheduleEntry struct {
	Station       string // queried station
	OtherStation  string // destination for departures, origin for arrivals
	TrainID       string
	TrainName     string
	Platform      string
	ScheduledTime string
	Delay         string
	DelayUnit     DelayUnit
	Canceled      string
	Status        string
}

// NormalizedSchedule is the canonical record written to train_schedules.
// Length limits mirror the train_schedules column sizes.
type NormalizedSchedule struct {
	TrainID          string    `json:"train_id" validate:"required,max=50"`
	TrainName        string    `json:"train_name" validate:"required,max=50"`
	Direction        Direction `json:"direction" validate:"required,oneof=ARRIVAL DEPARTURE"`
	DepartureStation string    `json:"departure_station" validate:"max=100"`
	ArrivalStation   string    `json:"arrival_station" validate:"max=100"`
	Platform         string    `json:"platform" validate:"max=10"`
	ScheduledTime    time.Time `json:"scheduled_time" validate:"required"`
	ActualTime       time.Time `json:"actual_time" validate:"required"`
	DelayMinutes     int       `json:"delay_minutes" validate:"gte=0"`
	Canceled         bool      `json:"canceled"`
	CurrentStatus    string    `json:"current_status" validate:"required,max=10"`
	LastUpdated      time.Time `json:"last_updated,omitempty"`
}

// QueriedStation returns the station this record was fetched for
func (s *NormalizedSchedule) QueriedStation() string {
	if s.Direction == DirectionDeparture {
		return s.DepartureStation
	}
	return s.ArrivalStation
}

// StationBatch groups the normalized records of one queried station
type StationBatch struct {
	Station    string
	Arrivals   []*NormalizedSchedule
	Departures []*NormalizedSchedule
	Failures   []FetchFailure
	Skipped    int
}

// Add appends a record to the slice matching its direction
func (b *StationBatch) Add(s *NormalizedSchedule) {
	if s.Direction == DirectionArrival {
		b.Arrivals = append(b.Arrivals, s)
		return
	}
	b.Departures = append(b.Departures, s)
}

// Total returns the number of records in the batch
func (b *StationBatch) Total() int {
	return len(b.Arrivals) + len(b.Departures)
}

// FetchFailure describes one station/direction that could not be fetched
type FetchFailure struct {
	Station   string    `json:"station" bson:"station"`
	Direction Direction `json:"direction" bson:"direction"`
	Timeout   bool      `json:"timeout" bson:"timeout"`
	Error     string    `json:"error" bson:"error"`
}

// SummaryResult is what a pipeline run reports back to its trigger
type SummaryResult struct {
	RunID                    string                `json:"run_id"`
	Message                  string                `json:"message"`
	Stations                 []string              `json:"stations"`
	ArrivalSchedulesCounts   []int                 `json:"arrival_schedules_counts"`
	DepartureSchedulesCounts []int                 `json:"departure_schedules_counts"`
	TotalSchedules           int                   `json:"total_schedules"`
	SkippedEntries           int                   `json:"skipped_entries"`
	Failures                 []FetchFailure        `json:"failures"`
	Schedules                []*NormalizedSchedule `json:"schedules,omitempty"`
}

// ReplaceResult reports what a replace-on-refresh write changed
type ReplaceResult struct {
	Deleted  int64
	Inserted int
}
