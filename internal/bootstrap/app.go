package bootstrap

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"cocoaguard/internal/config"
	"cocoaguard/internal/model"
	mysqlClient "cocoaguard/internal/platform/mysql"
	rabbitmqClient "cocoaguard/internal/platform/rabbitmq"
	redisClient "cocoaguard/internal/platform/redis"
	"cocoaguard/internal/repository"
	"cocoaguard/internal/storage"
	"cocoaguard/internal/vision"
	"cocoaguard/internal/worker"
)

// App holds every process-wide resource, constructed once at startup
// and passed into the router. Nothing here is package-level state.
type App struct {
	Config           *config.Config
	MySQL            *gorm.DB
	Redis            *redis.Client
	MQConn           *amqp.Connection
	Classifier       *vision.Classifier
	UploadStore      *storage.UploadStore
	PredictionWorker *worker.PredictionPersistWorker

	StartedAt time.Time
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	mysqlDB, err := mysqlClient.New(ctx, cfg.MySQLDSN())
	if err != nil {
		return nil, err
	}
	if err := mysqlDB.AutoMigrate(&model.Farmer{}, &model.Prediction{}); err != nil {
		return nil, fmt.Errorf("auto migrate tables failed: %w", err)
	}

	redisCli, err := redisClient.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, err
	}

	mqConn, err := rabbitmqClient.New(ctx, cfg.RabbitMQ.URL)
	if err != nil {
		return nil, err
	}

	uploadStore, err := storage.NewUploadStore(cfg.Uploads.Dir, cfg.Uploads.MaxSizeBytes)
	if err != nil {
		return nil, err
	}

	classifier := vision.NewClassifier(cfg.Vision.ModelPath, cfg.Vision.ONNXSharedLibPath)

	predictionRepo := repository.NewPredictionRepository(mysqlDB)
	predictionWorker := worker.NewPredictionPersistWorker(mqConn, predictionRepo, cfg.RabbitMQ.PredictionPersistQueue)
	if err := predictionWorker.Start(ctx); err != nil {
		return nil, fmt.Errorf("start prediction worker failed: %w", err)
	}

	return &App{
		Config:           cfg,
		MySQL:            mysqlDB,
		Redis:            redisCli,
		MQConn:           mqConn,
		Classifier:       classifier,
		UploadStore:      uploadStore,
		PredictionWorker: predictionWorker,
		StartedAt:        time.Now(),
	}, nil
}

func (a *App) Close() error {
	var closeErr error
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.PredictionWorker != nil {
		a.PredictionWorker.Close()
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MySQL != nil {
		sqlDB, err := a.MySQL.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	return closeErr
}
