package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/DeadlyParkour777/code-room/pkg/events"
	"github.com/DeadlyParkour777/code-room/services/runner_service/internal/judge"
	"github.com/DeadlyParkour777/code-room/services/runner_service/internal/store"
	"github.com/DeadlyParkour777/code-room/services/runner_service/internal/types"
	"go.uber.org/zap"
)

type Service interface {
	ProcessRun(ctx context.Context, job *events.RunJob) error
}

const saveAttempts = 3

type service struct {
	store       store.Store
	judge       judge.Executor
	publisher   events.Publisher
	logger      *zap.Logger
	saveBackoff time.Duration
}

func NewService(store store.Store, executor judge.Executor, pub events.Publisher, logger *zap.Logger) Service {
	return &service{
		store:       store,
		judge:       executor,
		publisher:   pub,
		logger:      logger,
		saveBackoff: 200 * time.Millisecond,
	}
}

// ProcessRun executes one job and stores its verdict. Jobs whose run is gone
// or already finished are skipped. A cancelled ctx leaves the run claimed
// so a redelivery can finish it.
func (s *service) ProcessRun(ctx context.Context, job *events.RunJob) error {
	log := s.logger.With(zap.String("run_id", job.RunID), zap.String("room_id", job.RoomID))

	if err := s.store.MarkRunning(ctx, job.RoomID, job.RunID); err != nil {
		if errors.Is(err, types.ErrRunNotFound) {
			log.Info("skipping job without a pending run")
			return nil
		}
		return err
	}

	res, err := s.judge.Execute(ctx, judge.Submission{
		SourceCode: job.Source,
		LanguageID: job.LanguageID,
		Stdin:      job.Stdin,
	})
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}

	result := buildResult(job, res, err)
	if err != nil {
		log.Warn("judge call failed", zap.Error(err))
	}

	if err := s.saveResult(ctx, result); err != nil {
		if errors.Is(err, types.ErrRunNotFound) {
			log.Info("run was deleted while executing")
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		// The job is committed after this, so leave the run finished rather
		// than stuck in running.
		fallback := &types.RunResult{
			RunID:   job.RunID,
			RoomID:  job.RoomID,
			Status:  types.RunFailed,
			Message: "failed to store run result",
		}
		if ferr := s.store.SaveResult(ctx, fallback); ferr != nil {
			log.Error("failed to mark run failed", zap.Error(ferr))
		} else {
			s.publishFinished(ctx, log, job, fallback.Status)
		}
		return err
	}
	log.Info("run finished", zap.String("status", string(result.Status)), zap.Int("time_ms", result.TimeMs))

	s.publishFinished(ctx, log, job, result.Status)
	return nil
}

func (s *service) publishFinished(ctx context.Context, log *zap.Logger, job *events.RunJob, status types.RunStatus) {
	ev, err := events.New(events.RunFinished, job.RoomID, job.UserID, events.RunStatusPayload{
		RunID:  job.RunID,
		Status: string(status),
	})
	if err == nil {
		err = s.publisher.Publish(ctx, ev)
	}
	if err != nil {
		log.Warn("failed to publish run.finished", zap.Error(err))
	}
}

// saveResult retries transient store failures with exponential backoff.
func (s *service) saveResult(ctx context.Context, result *types.RunResult) error {
	var err error
	for attempt := 1; attempt <= saveAttempts; attempt++ {
		if err = s.store.SaveResult(ctx, result); err == nil || errors.Is(err, types.ErrRunNotFound) {
			return err
		}
		if attempt == saveAttempts {
			break
		}
		s.logger.Warn("failed to store run result, retrying",
			zap.String("run_id", result.RunID), zap.Int("attempt", attempt), zap.Error(err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.saveBackoff << (attempt - 1)):
		}
	}
	return err
}

func buildResult(job *events.RunJob, res *judge.Result, err error) *types.RunResult {
	result := &types.RunResult{RunID: job.RunID, RoomID: job.RoomID}
	if err != nil {
		result.Status = types.RunFailed
		result.Message = err.Error()
		return result
	}

	result.Status = mapStatus(res.Status.ID)
	result.Stdout = truncate(res.Stdout)
	result.Stderr = truncate(res.Stderr)
	result.CompileOutput = truncate(res.CompileOutput)
	result.Message = res.Message
	if result.Message == "" && result.Status != types.RunSucceeded {
		result.Message = res.Status.Description
	}
	result.ExitCode = res.ExitCode
	result.TimeMs = parseSeconds(res.Time)
	result.MemoryKB = res.Memory
	return result
}

func mapStatus(id int) types.RunStatus {
	switch {
	case id == judge.StatusAccepted:
		return types.RunSucceeded
	case id == judge.StatusTimeLimitExceeded:
		return types.RunTimeout
	case id == judge.StatusCompilationError:
		return types.RunCompileError
	case id >= judge.StatusRuntimeFirst && id <= judge.StatusRuntimeLast:
		return types.RunRuntimeError
	default:
		return types.RunFailed
	}
}

// truncate cuts s to MaxOutputBytes without splitting a UTF-8 sequence.
func truncate(s string) string {
	if len(s) <= types.MaxOutputBytes {
		return s
	}
	return strings.ToValidUTF8(s[:types.MaxOutputBytes], "") + "\n[output truncated]"
}

func parseSeconds(v string) int {
	if v == "" {
		return 0
	}
	secs, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0
	}
	return int(secs*1000 + 0.5)
}

