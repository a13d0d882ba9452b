package app

import (
	"context"
	"database/sql"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/DeadlyParkour777/code-room/pkg/events"
	"github.com/DeadlyParkour777/code-room/services/runner_service/internal/config"
	"github.com/DeadlyParkour777/code-room/services/runner_service/internal/handler"
	"github.com/DeadlyParkour777/code-room/services/runner_service/internal/judge"
	"github.com/DeadlyParkour777/code-room/services/runner_service/internal/service"
	"github.com/DeadlyParkour777/code-room/services/runner_service/internal/store"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type App struct {
	readers     []*kafka.Reader
	handler     *handler.KafkaConsumer
	db          *sql.DB
	redisClient *redis.Client
	logger      *zap.Logger
}

func New(cfg config.Config, logger *zap.Logger) (*App, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to db: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}
	logger.Info("connected to postgres", zap.String("host", cfg.DBHost), zap.String("db", cfg.DBName))

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	logger.Info("connected to redis", zap.String("addr", cfg.RedisAddr))

	judgeClient := judge.NewClient(cfg.JudgeAPIURL, cfg.JudgeAPIKey, cfg.JudgeAPIHost, cfg.JudgeTimeout, logger)
	logger.Info("judge client initialized", zap.String("url", cfg.JudgeAPIURL))

	runService := service.NewService(
		store.NewStore(db, redisClient, logger),
		judgeClient,
		events.NewRedisPublisher(redisClient),
		logger,
	)

	// Readers share one consumer group, so each partition stays on one worker.
	readers := make([]*kafka.Reader, 0, cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		readers = append(readers, kafka.NewReader(kafka.ReaderConfig{
			Brokers:        cfg.KafkaBrokers,
			Topic:          cfg.RunTopic,
			GroupID:        cfg.GroupID,
			MinBytes:       1,
			MaxBytes:       10e6,
			CommitInterval: time.Second,
		}))
	}
	logger.Info("kafka readers initialized",
		zap.Strings("brokers", cfg.KafkaBrokers),
		zap.String("topic", cfg.RunTopic),
		zap.String("group", cfg.GroupID),
		zap.Int("workers", cfg.Workers),
	)

	return &App{
		readers:     readers,
		handler:     handler.NewKafkaConsumer(runService, logger),
		db:          db,
		redisClient: redisClient,
		logger:      logger,
	}, nil
}

// Run consumes run jobs until SIGINT or SIGTERM.
func (a *App) Run() error {
	defer a.close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.logger.Info("runner started, waiting for jobs")

	g, gctx := errgroup.WithContext(ctx)
	for i, r := range a.readers {
		g.Go(func() error {
			if err := a.handler.Start(gctx, r); err != nil {
				return fmt.Errorf("worker %d: %w", i, err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	a.logger.Info("runner gracefully stopped")
	return nil
}

func (a *App) close() {
	for _, r := range a.readers {
		if err := r.Close(); err != nil {
			a.logger.Warn("failed to close kafka reader", zap.Error(err))
		}
	}
	_ = a.redisClient.Close()
	_ = a.db.Close()
}
