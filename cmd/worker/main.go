package main

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	redis "github.com/go-redis/redis/v8"
	_ "github.com/go-sql-driver/mysql"
	"github.com/hibiken/asynq"
	"github.com/imagevault/backend/internal/config"
	"github.com/imagevault/backend/internal/logger"
	"github.com/imagevault/backend/internal/processing"
	"github.com/imagevault/backend/internal/queue"
	"github.com/imagevault/backend/internal/repositories"
	"github.com/imagevault/backend/internal/storage"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v\n", err)
	}

	// Initialize logger
	if err := logger.Init(cfg.Logging.Level); err != nil {
		log.Fatalf("Failed to initialize logger: %v\n", err)
	}
	defer logger.Sync()

	logger.Logger.Info("Starting ImageVault worker")

	// Connect to database
	db, err := connectDB(cfg.DSN())
	if err != nil {
		logger.Logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Connect to Redis (progress store)
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	// Initialize storage and repositories
	fileStorage := storage.NewLocalStorage(cfg.Upload.BasePath)
	assetRepo := repositories.NewAssetRepository(db)
	progressStore := queue.NewProgressStore(redisClient)

	// Initialize processor and worker
	processor := processing.NewProcessor(assetRepo, fileStorage, progressStore, logger.Logger, cfg.Upload.ThumbnailSize)
	worker := NewWorker(processor, progressStore, logger.Logger)

	// Setup asynq server
	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.RedisAddr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: cfg.Worker.Concurrency,
			Queues: map[string]int{
				queue.QueueName: 1,
			},
			Logger: newAsynqLogger(logger.Logger),
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TypeProcessAsset, worker.HandleProcessTask)

	logger.Logger.Info("Worker starting", zap.Int("concurrency", cfg.Worker.Concurrency))

	// Run blocks until SIGINT/SIGTERM and drains in-flight tasks before
	// returning.
	if err := srv.Run(mux); err != nil {
		logger.Logger.Fatal("Worker failed", zap.Error(err))
	}

	logger.Logger.Info("Worker exited")
}

// connectDB connects to the database
func connectDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// asynqLogger adapts zap to the asynq logging interface
type asynqLogger struct {
	logger *zap.SugaredLogger
}

func newAsynqLogger(logger *zap.Logger) *asynqLogger {
	return &asynqLogger{logger: logger.Sugar()}
}

func (l *asynqLogger) Debug(args ...interface{}) { l.logger.Debug(args...) }
func (l *asynqLogger) Info(args ...interface{})  { l.logger.Info(args...) }
func (l *asynqLogger) Warn(args ...interface{})  { l.logger.Warn(args...) }
func (l *asynqLogger) Error(args ...interface{}) { l.logger.Error(args...) }
func (l *asynqLogger) Fatal(args ...interface{}) { l.logger.Fatal(args...) }
