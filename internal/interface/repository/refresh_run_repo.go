package repository

import (
	"context"
	"time"

	"train-schedule-service/internal/domain/entity"
	"train-schedule-service/internal/domain/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoRefreshRunRepository implements RefreshRunRepository
type MongoRefreshRunRepository struct {
	collection *mongo.Collection
}

// NewMongoRefreshRunRepository creates a new refresh run repository
func NewMongoRefreshRunRepository(db *mongo.Database) repository.RefreshRunRepository {
	collection := db.Collection("refresh_runs")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Create unique index on runId
	indexModel := mongo.IndexModel{
		Keys:    bson.M{"runId": 1},
		Options: options.Index().SetUnique(true),
	}
	collection.Indexes().CreateOne(ctx, indexModel)

	// Create index on startedAt for recent-run queries
	startedIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "startedAt", Value: -1}},
	}
	collection.Indexes().CreateOne(ctx, startedIndex)

	return &MongoRefreshRunRepository{
		collection: collection,
	}
}

// Save stores a refresh run, replacing any record with the same run id
func (r *MongoRefreshRunRepository) Save(ctx context.Context, run *entity.RefreshRun) error {
	opts := options.Replace().SetUpsert(true)
	_, err := r.collection.ReplaceOne(ctx, bson.M{"runId": run.RunID}, run, opts)
	return err
}

// FindLatest returns the most recent runs, newest first
func (r *MongoRefreshRunRepository) FindLatest(ctx context.Context, limit int64) ([]*entity.RefreshRun, error) {
	opts := options.Find().SetSort(bson.D{{Key: "startedAt", Value: -1}}).SetLimit(limit)
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var runs []*entity.RefreshRun
	if err := cursor.All(ctx, &runs); err != nil {
		return nil, err
	}
	return runs, nil
}
