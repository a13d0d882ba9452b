package main

import (
	"log"

	"github.com/DeadlyParkour777/code-room/pkg/logger"
	"github.com/DeadlyParkour777/code-room/services/auth_service/cmd/app"
	"github.com/DeadlyParkour777/code-room/services/auth_service/internal/config"
	"go.uber.org/zap"
)

func main() {
	cfg := config.ConfigInit()

	l, err := logger.New("auth_service", cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = l.Sync() }()

	application, err := app.New(cfg, l)
	if err != nil {
		l.Fatal("failed to initialize application", zap.Error(err))
	}

	if err := application.Run(); err != nil {
		l.Fatal("application run failed", zap.Error(err))
	}
}
