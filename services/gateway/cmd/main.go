package main

import (
	"log"

	"github.com/DeadlyParkour777/code-room/pkg/logger"
	"github.com/DeadlyParkour777/code-room/services/gateway/cmd/app"
	"github.com/DeadlyParkour777/code-room/services/gateway/internal/config"
	"go.uber.org/zap"
)

func main() {
	cfg := config.ConfigInit()

	l, err := logger.New("gateway", cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = l.Sync() }()

	server, err := app.New(cfg, l)
	if err != nil {
		l.Fatal("failed to create API server", zap.Error(err))
	}
	l.Info("API server created")

	if err := server.Run(); err != nil {
		l.Fatal("failed to run API server", zap.Error(err))
	}
}
