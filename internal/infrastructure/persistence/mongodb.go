package persistence

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const defaultMongoConnectTimeout = 10 * time.Second

// MongoConfig describes the run log connection
type MongoConfig struct {
	URI            string
	Database       string
	Username       string
	Password       string
	ConnectTimeout time.Duration
}

// NewMongoClient connects to the run log server and fails unless the primary answers a ping
func NewMongoClient(ctx context.Context, cfg MongoConfig) (*mongo.Client, error) {
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = defaultMongoConnectTimeout
	}

	opts := options.Client().
		ApplyURI(cfg.URI).
		SetAppName("train-schedule-service").
		SetConnectTimeout(timeout).
		SetServerSelectionTimeout(timeout)
	if cfg.Username != "" && cfg.Password != "" {
		opts.SetAuth(options.Credential{
			Username: cfg.Username,
			Password: cfg.Password,
		})
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect run log store: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping run log store: %w", err)
	}

	return client, nil
}

// RunLogDatabase returns the database holding refresh runs
func RunLogDatabase(client *mongo.Client, cfg MongoConfig) *mongo.Database {
	name := cfg.Database
	if name == "" {
		name = "train_schedules"
	}
	return client.Database(name)
}
