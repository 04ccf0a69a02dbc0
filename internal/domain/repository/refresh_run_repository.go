package repository

import (
	"context"

	"train-schedule-service/internal/domain/entity"
)

// RefreshRunRepository defines the interface for recording pipeline runs
type RefreshRunRepository interface {
	Save(ctx context.Context, run *entity.RefreshRun) error
	FindLatest(ctx context.Context, limit int64) ([]*entity.RefreshRun, error)
}
