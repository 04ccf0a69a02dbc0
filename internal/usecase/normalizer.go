package usecase

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"train-schedule-service/internal/domain/entity"
)

// Normalizer maps provider liveboard entries onto the canonical schedule record
type Normalizer struct {
	location *time.Location
	validate *validator.Validate
}

// NewNormalizer creates a normalizer that renders timestamps in loc
func NewNormalizer(loc *time.Location) *Normalizer {
	if loc == nil {
		loc = time.UTC
	}
	return &Normalizer{
		location: loc,
		validate: validator.New(),
	}
}

// Normalize converts one raw entry fetched for station in the given direction
func (n *Normalizer) Normalize(raw entity.RawScheduleEntry, station string, direction entity.Direction) (*entity.NormalizedSchedule, error) {
	fail := func(field string, err error) error {
		return &entity.NormalizationError{
			Station:   station,
			Direction: direction,
			TrainID:   raw.TrainID,
			Field:     field,
			Err:       err,
		}
	}

	if !direction.Valid() {
		return nil, fail("direction", fmt.Errorf("unknown direction %q", direction))
	}

	trainID := strings.TrimSpace(raw.TrainID)
	if trainID == "" {
		return nil, fail("train_id", errors.New("missing"))
	}

	scheduled, err := n.parseTimestamp(raw.ScheduledTime)
	if err != nil {
		return nil, fail("scheduled_time", err)
	}

	delayMinutes := delayToMinutes(raw.Delay, raw.DelayUnit)
	canceled := parseFlag(raw.Canceled)

	schedule := &entity.NormalizedSchedule{
		TrainID:       trainID,
		TrainName:     trainName(raw.TrainName, trainID),
		Direction:     direction,
		Platform:      normalizePlatform(raw.Platform),
		ScheduledTime: scheduled,
		ActualTime:    scheduled.Add(time.Duration(delayMinutes) * time.Minute),
		DelayMinutes:  delayMinutes,
		Canceled:      canceled,
		CurrentStatus: currentStatus(canceled, delayMinutes),
	}

	other := strings.TrimSpace(raw.OtherStation)
	if direction == entity.DirectionDeparture {
		schedule.DepartureStation = station
		schedule.ArrivalStation = other
	} else {
		schedule.DepartureStation = other
		schedule.ArrivalStation = station
	}

	if err := n.validate.Struct(schedule); err != nil {
		return nil, fail("record", err)
	}

	return schedule, nil
}

// parseTimestamp reads iRail's Unix-seconds timestamps, with RFC 3339 accepted as well
func (n *Normalizer) parseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, errors.New("missing")
	}
	if secs, err := strconv.ParseInt(value, 10, 64); err == nil {
		if secs <= 0 {
			return time.Time{}, fmt.Errorf("invalid unix timestamp %d", secs)
		}
		return time.Unix(secs, 0).In(n.location), nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("unparsable timestamp %q", value)
	}
	return t.In(n.location), nil
}

// delayToMinutes rounds down to whole minutes; unparsable or negative delays count as zero
func delayToMinutes(value string, unit entity.DelayUnit) int {
	delay, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || delay <= 0 {
		return 0
	}
	if unit == entity.DelayMinutes {
		return delay
	}
	return delay / 60
}

func parseFlag(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes":
		return true
	}
	return false
}

func trainName(name, trainID string) string {
	if name = strings.TrimSpace(name); name != "" {
		return name
	}
	// BE.NMBS.IC1832 -> IC1832
	parts := strings.Split(trainID, ".")
	return parts[len(parts)-1]
}

func normalizePlatform(platform string) string {
	platform = strings.TrimSpace(platform)
	if platform == "?" {
		return ""
	}
	return platform
}

func currentStatus(canceled bool, delayMinutes int) string {
	switch {
	case canceled:
		return entity.StatusCanceled
	case delayMinutes > 0:
		return entity.StatusDelayed
	default:
		return entity.StatusOnTime
	}
}
