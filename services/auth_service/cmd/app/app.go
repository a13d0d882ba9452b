package app

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"os/signal"
	"syscall"
	"time"

	authpb "github.com/DeadlyParkour777/code-room/pkg/auth"
	"github.com/DeadlyParkour777/code-room/services/auth_service/internal/config"
	"github.com/DeadlyParkour777/code-room/services/auth_service/internal/handler"
	"github.com/DeadlyParkour777/code-room/services/auth_service/internal/service"
	"github.com/DeadlyParkour777/code-room/services/auth_service/internal/store"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"
)

type App struct {
	grpcServer *grpc.Server
	db         *sql.DB
	cfg        *config.Config
	logger     *zap.Logger
}

func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
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

	userStore := store.NewStore(db)
	authService := service.NewService(userStore, cfg.JWTSecretKey, cfg.TokenTTL)
	grpcHandler := handler.NewGrpcHandler(authService, logger)

	grpcServer := grpc.NewServer()
	authpb.RegisterAuthServiceServer(grpcServer, grpcHandler)
	reflection.Register(grpcServer)

	return &App{
		grpcServer: grpcServer,
		db:         db,
		cfg:        cfg,
		logger:     logger,
	}, nil
}

func (a *App) Run() error {
	defer a.db.Close()

	lis, err := net.Listen("tcp", fmt.Sprintf(":%s", a.cfg.GRPCPort))
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("gRPC server started", zap.String("port", a.cfg.GRPCPort))
		serveErr <- a.grpcServer.Serve(lis)
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("failed to serve gRPC: %w", err)
	case <-ctx.Done():
	}

	a.logger.Info("shutting down server")
	a.grpcServer.GracefulStop()
	a.logger.Info("server gracefully stopped")

	return nil
}
