package main

import (
	"log"

	"github.com/DeadlyParkour777/code-room/pkg/logger"
	"github.com/DeadlyParkour777/code-room/services/runner_service/cmd/app"
	"github.com/DeadlyParkour777/code-room/services/runner_service/internal/config"
	"go.uber.org/zap"
)

func main() {
	cfg := config.ConfigInit()

	l, err := logger.New("runner_service", cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = l.Sync() }()

	runner, err := app.New(cfg, l)
	if err != nil {
		l.Fatal("failed to create runner", zap.Error(err))
	}

	if err := runner.Run(); err != nil {
		l.Fatal("runner stopped with error", zap.Error(err))
	}
}
