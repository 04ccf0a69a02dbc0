package repository

import (
	"context"

	"train-schedule-service/internal/domain/entity"
)

// ScheduleRepository defines the interface for train schedule storage
type ScheduleRepository interface {
	// Replace deletes every row previously stored for stations and inserts records, atomically
	Replace(ctx context.Context, stations []string, records []*entity.NormalizedSchedule) (*entity.ReplaceResult, error)
	ListLatest(ctx context.Context, limit int) ([]*entity.NormalizedSchedule, error)
	Ping(ctx context.Context) error
}
