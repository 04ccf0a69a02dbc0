package repository

import (
	"context"
	"errors"
	"time"

	"train-schedule-service/internal/domain/entity"
	"train-schedule-service/internal/domain/repository"

	"gorm.io/gorm"
)

const defaultInsertBatchSize = 100

// GormScheduleRepository implements the ScheduleRepository interface
type GormScheduleRepository struct {
	db        *gorm.DB
	batchSize int
	now       func() time.Time
}

// NewGormScheduleRepository creates a new GORM schedule repository
func NewGormScheduleRepository(db *gorm.DB, batchSize int) repository.ScheduleRepository {
	return newGormScheduleRepository(db, batchSize)
}

func newGormScheduleRepository(db *gorm.DB, batchSize int) *GormScheduleRepository {
	if batchSize < 1 {
		batchSize = defaultInsertBatchSize
	}
	return &GormScheduleRepository{
		db:        db,
		batchSize: batchSize,
		now:       time.Now,
	}
}

// TrainSchedules GORM model for database mapping
type TrainSchedules struct {
	ID               uint      `gorm:"primaryKey;autoIncrement"`
	TrainID          string    `gorm:"column:train_id;size:50;not null;index"`
	TrainName        string    `gorm:"column:train_name;size:50;not null"`
	Direction        string    `gorm:"column:direction;size:10;not null;index:idx_train_schedules_station,priority:1"`
	DepartureStation string    `gorm:"column:departure_station;size:100;not null;index:idx_train_schedules_station,priority:2"`
	ArrivalStation   string    `gorm:"column:arrival_station;size:100;not null"`
	Platform         string    `gorm:"column:platform;size:10;not null"`
	ScheduledTime    time.Time `gorm:"column:scheduled_time;not null"`
	ActualTime       time.Time `gorm:"column:actual_time;not null"`
	DelayMinutes     int       `gorm:"column:delay_minutes;default:0"`
	Canceled         bool      `gorm:"column:canceled;default:false"`
	CurrentStatus    string    `gorm:"column:current_status;size:10;not null"`
	LastUpdated      time.Time `gorm:"column:last_updated;autoCreateTime"`
}

// TableName overrides the default table name
func (TrainSchedules) TableName() string {
	return "train_schedules"
}

// EnsureSchema creates or migrates the train_schedules table
func EnsureSchema(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).AutoMigrate(&TrainSchedules{}); err != nil {
		return &entity.PersistenceError{Op: "migrate", Err: err}
	}
	return nil
}

// Replace deletes the rows previously fetched for stations, in both directions,
// and inserts records in the same transaction.
func (r *GormScheduleRepository) Replace(ctx context.Context, stations []string, records []*entity.NormalizedSchedule) (*entity.ReplaceResult, error) {
	result := &entity.ReplaceResult{}
	if len(stations) == 0 && len(records) == 0 {
		return result, nil
	}

	writtenAt := r.now()
	rows := make([]TrainSchedules, 0, len(records))
	for _, record := range records {
		rows = append(rows, toModel(record, writtenAt))
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(stations) > 0 {
			deleted := tx.
				Where("(direction = ? AND departure_station IN ?) OR (direction = ? AND arrival_station IN ?)",
					string(entity.DirectionDeparture), stations,
					string(entity.DirectionArrival), stations).
				Delete(&TrainSchedules{})
			if deleted.Error != nil {
				return &entity.PersistenceError{Op: "delete", Err: deleted.Error}
			}
			result.Deleted = deleted.RowsAffected
		}

		if len(rows) > 0 {
			if err := tx.CreateInBatches(&rows, r.batchSize).Error; err != nil {
				return &entity.PersistenceError{Op: "insert", Err: err}
			}
		}
		result.Inserted = len(rows)
		return nil
	})
	if err != nil {
		var persistErr *entity.PersistenceError
		if errors.As(err, &persistErr) {
			return nil, err
		}
		return nil, &entity.PersistenceError{Op: "transaction", Err: err}
	}

	return result, nil
}

// ListLatest returns up to limit stored schedules ordered by departure station and time
func (r *GormScheduleRepository) ListLatest(ctx context.Context, limit int) ([]*entity.NormalizedSchedule, error) {
	var rows []TrainSchedules
	err := r.db.WithContext(ctx).
		Order("departure_station").
		Order("scheduled_time").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, &entity.PersistenceError{Op: "list", Err: err}
	}

	schedules := make([]*entity.NormalizedSchedule, 0, len(rows))
	for _, row := range rows {
		schedules = append(schedules, toEntity(row))
	}
	return schedules, nil
}

// Ping checks that the database is reachable
func (r *GormScheduleRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func toModel(s *entity.NormalizedSchedule, writtenAt time.Time) TrainSchedules {
	lastUpdated := s.LastUpdated
	if lastUpdated.IsZero() {
		lastUpdated = writtenAt
	}
	return TrainSchedules{
		TrainID:          s.TrainID,
		TrainName:        s.TrainName,
		Direction:        string(s.Direction),
		DepartureStation: s.DepartureStation,
		ArrivalStation:   s.ArrivalStation,
		Platform:         s.Platform,
		ScheduledTime:    s.ScheduledTime,
		ActualTime:       s.ActualTime,
		DelayMinutes:     s.DelayMinutes,
		Canceled:         s.Canceled,
		CurrentStatus:    s.CurrentStatus,
		LastUpdated:      lastUpdated,
	}
}

// Convert GORM model to domain entity
func toEntity(row TrainSchedules) *entity.NormalizedSchedule {
	return &entity.NormalizedSchedule{
		TrainID:          row.TrainID,
		TrainName:        row.TrainName,
		Direction:        entity.Direction(row.Direction),
		DepartureStation: row.DepartureStation,
		ArrivalStation:   row.ArrivalStation,
		Platform:         row.Platform,
		ScheduledTime:    row.ScheduledTime,
		ActualTime:       row.ActualTime,
		DelayMinutes:     row.DelayMinutes,
		Canceled:         row.Canceled,
		CurrentStatus:    row.CurrentStatus,
		LastUpdated:      row.LastUpdated,
	}
}
