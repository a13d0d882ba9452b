package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	authpb "github.com/DeadlyParkour777/code-room/pkg/auth"
	"github.com/DeadlyParkour777/code-room/pkg/events"
	"github.com/DeadlyParkour777/code-room/services/gateway/internal/assistant"
	"github.com/DeadlyParkour777/code-room/services/gateway/internal/autosave"
	"github.com/DeadlyParkour777/code-room/services/gateway/internal/cache"
	"github.com/DeadlyParkour777/code-room/services/gateway/internal/config"
	"github.com/DeadlyParkour777/code-room/services/gateway/internal/handler"
	"github.com/DeadlyParkour777/code-room/services/gateway/internal/languages"
	"github.com/DeadlyParkour777/code-room/services/gateway/internal/queue"
	"github.com/DeadlyParkour777/code-room/services/gateway/internal/service"
	"github.com/DeadlyParkour777/code-room/services/gateway/internal/store"
	"github.com/DeadlyParkour777/code-room/services/gateway/internal/types"
	"github.com/DeadlyParkour777/code-room/services/gateway/internal/ws"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const shutdownTimeout = 15 * time.Second

type App struct {
	httpServer  *http.Server
	hub         *ws.Hub
	saver       *autosave.Saver
	db          *sql.DB
	redisClient *redis.Client
	kafkaWriter *kafka.Writer
	authConn    *grpc.ClientConn
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

	langs, err := languages.Load(cfg.LanguagesFile)
	if err != nil {
		_ = db.Close()
		_ = redisClient.Close()
		return nil, err
	}

	authConn, err := grpc.NewClient(cfg.AuthServiceAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		_ = db.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("failed to connect to auth service: %w", err)
	}
	authClient := authpb.NewAuthServiceClient(authConn)
	logger.Info("auth client initialized", zap.String("addr", cfg.AuthServiceAddr))

	var gen assistant.Generator
	gen, err = assistant.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	switch {
	case errors.Is(err, types.ErrAssistantDisabled):
		logger.Warn("GEMINI_API_KEY is not set, assistant disabled")
		gen = nil
	case err != nil:
		_ = db.Close()
		_ = redisClient.Close()
		_ = authConn.Close()
		return nil, err
	default:
		logger.Info("assistant initialized", zap.String("model", cfg.GeminiModel))
	}

	kafkaWriter := queue.NewKafkaWriter(cfg.KafkaBrokers, cfg.RunTopic)
	logger.Info("kafka producer initialized", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.RunTopic))

	publisher := events.NewRedisPublisher(redisClient)
	roomStore := store.NewStore(db, cache.NewRedisRunsCache(redisClient), logger)
	saver := autosave.New(roomStore, publisher, logger, cfg.AutosaveDebounce, cfg.AutosaveMaxWait)

	roomService := service.NewService(service.Deps{
		Store:     roomStore,
		Saver:     saver,
		Publisher: publisher,
		Languages: langs,
		Assistant: gen,
		Runs:      queue.NewRunProducer(kafkaWriter),
		Logger:    logger,
	})

	hub := ws.NewHub(logger)
	httpHandler := handler.NewHandler(
		authClient,
		cache.NewRedisJWTCache(redisClient),
		roomService,
		hub,
		map[string]handler.HealthCheck{
			"postgres": roomStore.Ping,
			"redis":    func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		},
		logger,
	)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:           httpHandler.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		httpServer:  server,
		hub:         hub,
		saver:       saver,
		db:          db,
		redisClient: redisClient,
		kafkaWriter: kafkaWriter,
		authConn:    authConn,
		logger:      logger,
	}, nil
}

// Run serves until SIGINT or SIGTERM. Pending autosaves are flushed after
// the HTTP server stops accepting edits.
func (a *App) Run() error {
	defer a.close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.hub.Run(hubCtx)
		return nil
	})
	g.Go(func() error {
		return a.hub.Listen(gctx, a.redisClient)
	})
	g.Go(func() error {
		a.logger.Info("HTTP server started", zap.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to serve HTTP: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		stopHub()
		err := a.httpServer.Shutdown(shutdownCtx)
		if serr := a.saver.Close(shutdownCtx); serr != nil {
			a.logger.Error("failed to flush pending autosaves", zap.Error(serr))
		}
		return err
	})

	if err := g.Wait(); err != nil {
		return err
	}
	a.logger.Info("server gracefully stopped")
	return nil
}

func (a *App) close() {
	if err := a.kafkaWriter.Close(); err != nil {
		a.logger.Warn("failed to close kafka writer", zap.Error(err))
	}
	_ = a.authConn.Close()
	_ = a.redisClient.Close()
	_ = a.db.Close()
}
