package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"train-schedule-service/internal/domain/repository"
	"train-schedule-service/internal/infrastructure/config"
	"train-schedule-service/internal/infrastructure/persistence"
	"train-schedule-service/internal/infrastructure/router"
	"train-schedule-service/internal/infrastructure/scheduler"
	"train-schedule-service/internal/interface/handler"
	"train-schedule-service/internal/interface/irail"
	gormRepo "train-schedule-service/internal/interface/repository"
	"train-schedule-service/internal/usecase"
	"train-schedule-service/pkg/logger"
	"train-schedule-service/pkg/metrics"

	"go.mongodb.org/mongo-driver/mongo"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.NewLogger().Fatal("Failed to load config", "error", err)
	}

	// Create logger
	log := logger.NewLoggerWithLevel(cfg.LogLevel)
	defer log.Sync()
	log.Info("Starting train schedule service", "version", cfg.AppVersion, "stations", cfg.TrainStations)

	// Set up context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up the schedule database
	log.Info("Connecting to schedule database")
	gormDB, err := persistence.NewPostgresDB(ctx, cfg.DBConnectionString)
	if err != nil {
		log.Fatal("Failed to connect to database", "error", err)
	}
	if err := gormRepo.EnsureSchema(ctx, gormDB); err != nil {
		log.Fatal("Failed to create tables", "error", err)
	}
	scheduleRepository := gormRepo.NewGormScheduleRepository(gormDB, cfg.DBInsertBatchSize)

	// Set up the optional MongoDB run log
	var mongoClient *mongo.Client
	var runRepository repository.RefreshRunRepository
	if cfg.MongoURI != "" {
		log.Info("Connecting to MongoDB")
		mongoCfg := persistence.MongoConfig{
			URI:      cfg.MongoURI,
			Database: cfg.MongoDB,
			Username: cfg.MongoUser,
			Password: cfg.MongoPassword,
		}
		mongoClient, err = persistence.NewMongoClient(ctx, mongoCfg)
		if err != nil {
			log.Fatal("Failed to connect to MongoDB", "error", err)
		}
		runRepository = gormRepo.NewMongoRefreshRunRepository(persistence.RunLogDatabase(mongoClient, mongoCfg))
	}

	liveboardClient := irail.NewLiveboardClient(irail.ClientConfig{
		BaseURL:   cfg.IRailBaseURL,
		Lang:      cfg.IRailLang,
		UserAgent: cfg.IRailUserAgent,
		Timeout:   cfg.IRailTimeout,
	}, log.With("component", "irail"))

	updater := usecase.NewScheduleUpdater(
		usecase.UpdaterConfig{
			DefaultStations: cfg.TrainStations,
			Concurrency:     cfg.FetchConcurrency,
		},
		liveboardClient,
		scheduleRepository,
		runRepository,
		usecase.NewNormalizer(cfg.Location()),
		metrics.NewMetrics(cfg.MetricsNamespace),
		log,
	)

	// Set up the timer trigger
	timer, err := scheduler.NewScheduler(ctx, cfg.TimerCron, updater, log.With("component", "timer"))
	if err != nil {
		log.Fatal("Failed to create timer trigger", "error", err)
	}
	timer.Start()
	if cfg.RunOnStartup {
		go timer.RunOnce()
	}

	// Set up HTTP server
	scheduleHandler := handler.NewScheduleHandler(updater, scheduleRepository, runRepository, log.With("component", "http"))
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router.NewHTTPRouter(scheduleHandler, cfg.CORSAllowedOrigins, log),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	// Start HTTP server in a goroutine
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error", "error", err)
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	log.Info("Received signal", "signal", sig)

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", "error", err)
	}

	// Let a running refresh finish before closing the stores
	select {
	case <-timer.Stop().Done():
	case <-shutdownCtx.Done():
		log.Warn("Timed out waiting for running refresh")
	}

	cancel() // Cancel the context to stop all goroutines

	if mongoClient != nil {
		if err := mongoClient.Disconnect(shutdownCtx); err != nil {
			log.Error("MongoDB disconnect error", "error", err)
		}
	}
	if sqlDB, err := gormDB.DB(); err == nil {
		sqlDB.Close()
	}

	log.Info("Train schedule service stopped")
}
