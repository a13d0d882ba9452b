package handler

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/DeadlyParkour777/code-room/pkg/events"
	"github.com/DeadlyParkour777/code-room/services/runner_service/internal/service"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

type KafkaConsumer struct {
	service service.Service
	logger  *zap.Logger
}

func NewKafkaConsumer(svc service.Service, logger *zap.Logger) *KafkaConsumer {
	return &KafkaConsumer{service: svc, logger: logger}
}

// ProcessMessage reports whether the message should be committed.
func (h *KafkaConsumer) ProcessMessage(ctx context.Context, msg kafka.Message) bool {
	var job events.RunJob
	if err := json.Unmarshal(msg.Value, &job); err != nil {
		h.logger.Warn("skipping malformed run job", zap.Int64("offset", msg.Offset), zap.Error(err))
		return true
	}
	if job.RunID == "" || job.RoomID == "" || job.LanguageID <= 0 {
		h.logger.Warn("skipping incomplete run job", zap.Int64("offset", msg.Offset), zap.String("run_id", job.RunID))
		return true
	}

	if err := h.service.ProcessRun(ctx, &job); err != nil {
		if ctx.Err() != nil {
			return false
		}
		h.logger.Error("failed to process run", zap.String("run_id", job.RunID), zap.Error(err))
	}
	return true
}

// Start consumes until ctx is cancelled.
func (h *KafkaConsumer) Start(ctx context.Context, reader MessageReader) error {
	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}

		if !h.ProcessMessage(ctx, msg) {
			return nil
		}

		if err := reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			h.logger.Error("failed to commit message", zap.Int64("offset", msg.Offset), zap.Error(err))
		}
	}
}
