package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/DeadlyParkour777/code-room/pkg/events"
	"github.com/DeadlyParkour777/code-room/services/runner_service/internal/types"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Store interface {
	MarkRunning(ctx context.Context, roomID, runID string) error
	SaveResult(ctx context.Context, res *types.RunResult) error
}

type store struct {
	db     *sql.DB
	cache  redis.UniversalClient
	logger *zap.Logger
}

func NewStore(db *sql.DB, cache redis.UniversalClient, logger *zap.Logger) Store {
	return &store{db: db, cache: cache, logger: logger}
}

// MarkRunning claims a queued run. A run already marked running is claimed
// again so redelivered jobs finish; a finished or deleted run is not found.
func (s *store) MarkRunning(ctx context.Context, roomID, runID string) error {
	query := `UPDATE runs SET status = $3, updated_at = now()
	          WHERE id = $1 AND room_id = $2 AND status IN ('queued', 'running')`

	res, err := s.db.ExecContext(ctx, query, runID, roomID, string(types.RunRunning))
	if err != nil {
		return fmt.Errorf("failed to mark run running: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return types.ErrRunNotFound
	}

	s.invalidate(ctx, roomID)
	return nil
}

func (s *store) SaveResult(ctx context.Context, r *types.RunResult) error {
	query := `UPDATE runs
	          SET status = $3, stdout = $4, stderr = $5, compile_output = $6, message = $7,
	              exit_code = $8, time_ms = $9, memory_kb = $10, updated_at = now()
	          WHERE id = $1 AND room_id = $2`

	var exitCode sql.NullInt64
	if r.ExitCode != nil {
		exitCode = sql.NullInt64{Int64: int64(*r.ExitCode), Valid: true}
	}

	res, err := s.db.ExecContext(ctx, query,
		r.RunID, r.RoomID, string(r.Status),
		r.Stdout, r.Stderr, r.CompileOutput, r.Message,
		exitCode, r.TimeMs, r.MemoryKB,
	)
	if err != nil {
		return fmt.Errorf("failed to store run result: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return types.ErrRunNotFound
	}

	s.invalidate(ctx, r.RoomID)
	return nil
}

func (s *store) invalidate(ctx context.Context, roomID string) {
	if err := s.cache.Del(ctx, events.RunsCacheKey(roomID)).Err(); err != nil {
		s.logger.Warn("failed to invalidate runs cache", zap.String("room_id", roomID), zap.Error(err))
	}
}
