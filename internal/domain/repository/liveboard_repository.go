package repository

import (
	"context"

	"train-schedule-service/internal/domain/entity"
)

// LiveboardRepository defines the interface for reading station liveboards
type LiveboardRepository interface {
	FetchLiveboard(ctx context.Context, station string, direction entity.Direction) ([]entity.RawScheduleEntry, error)
}
