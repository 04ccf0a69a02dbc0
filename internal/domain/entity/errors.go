package entity

import (
	"errors"
	"fmt"
)

// ErrNoStations is returned when neither the caller nor the configuration names a station
var ErrNoStations = errors.New("no stations provided")

// FetchError reports that a liveboard could not be retrieved or decoded
type FetchError struct {
	Station   string
	Direction Direction
	Err       error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s liveboard for %q: %v", e.Direction.QueryValue(), e.Station, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// TimeoutError is a FetchError caused by the request deadline expiring
type TimeoutError struct {
	FetchError
}

func (e *TimeoutError) Error() string {
	return "timeout: " + e.FetchError.Error()
}

// Unwrap exposes the embedded FetchError so errors.As matches either type
func (e *TimeoutError) Unwrap() error {
	return &e.FetchError
}

// NormalizationError reports a single liveboard entry that could not be mapped
type NormalizationError struct {
	Station   string
	Direction Direction
	TrainID   string
	Field     string
	Err       error
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("normalize %s entry %q at %q: field %s: %v",
		e.Direction.QueryValue(), e.TrainID, e.Station, e.Field, e.Err)
}

func (e *NormalizationError) Unwrap() error {
	return e.Err
}

// PersistenceError reports a failed write to the schedule store
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
