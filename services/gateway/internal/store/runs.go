package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/DeadlyParkour777/code-room/services/gateway/internal/cache"
	"github.com/DeadlyParkour777/code-room/services/gateway/internal/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const runColumns = `id, room_id, COALESCE(file_id::text, ''), user_id, language, source, stdin, status,
	stdout, stderr, compile_output, message, exit_code, time_ms, memory_kb, created_at, updated_at`

func scanRun(row rowScanner) (*types.Run, error) {
	r := new(types.Run)
	var status string
	var exitCode sql.NullInt64
	err := row.Scan(&r.ID, &r.RoomID, &r.FileID, &r.UserID, &r.Language, &r.Source, &r.Stdin, &status,
		&r.Stdout, &r.Stderr, &r.CompileOutput, &r.Message, &exitCode, &r.TimeMs, &r.MemoryKB, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	r.Status = types.RunStatus(status)
	if exitCode.Valid {
		code := int(exitCode.Int64)
		r.ExitCode = &code
	}
	return r, nil
}

func (s *store) CreateRun(ctx context.Context, run *types.Run) (*types.Run, error) {
	run.ID = uuid.New().String()
	if run.Status == "" {
		run.Status = types.RunQueued
	}

	query := `INSERT INTO runs (id, room_id, file_id, user_id, language, source, stdin, status)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING ` + runColumns

	created, err := scanRun(s.db.QueryRowContext(ctx, query,
		run.ID, run.RoomID, nullString(run.FileID), run.UserID, run.Language, run.Source, run.Stdin, string(run.Status)))
	if err != nil {
		if pqCode(err) == foreignKeyMissing {
			return nil, types.ErrRoomNotFound
		}
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	s.invalidateRuns(ctx, run.RoomID)
	return created, nil
}

func (s *store) GetRun(ctx context.Context, roomID, runID string) (*types.Run, error) {
	run, err := scanRun(s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = $1 AND room_id = $2`, runID, roomID))
	if err != nil {
		if notFound(err, types.ErrRunNotFound) {
			return nil, types.ErrRunNotFound
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

func (s *store) ListRuns(ctx context.Context, roomID string, limit int) ([]*types.Run, error) {
	cached, err := s.runs.GetRuns(ctx, roomID)
	if err == nil {
		s.logger.Debug("runs cache hit", zap.String("room_id", roomID))
		return cached, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		s.logger.Warn("runs cache read failed", zap.String("room_id", roomID), zap.Error(err))
	}

	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs WHERE room_id = $1 ORDER BY created_at DESC LIMIT $2`,
		roomID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	runs := []*types.Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := s.runs.SetRuns(ctx, roomID, runs); err != nil {
		s.logger.Warn("runs cache write failed", zap.String("room_id", roomID), zap.Error(err))
	}
	return runs, nil
}

// FailRun marks a run that never reached the runner.
func (s *store) FailRun(ctx context.Context, roomID, runID, message string) error {
	query := `UPDATE runs SET status = $3, message = $4, updated_at = now() WHERE id = $1 AND room_id = $2`

	res, err := s.db.ExecContext(ctx, query, runID, roomID, string(types.RunFailed), message)
	if err != nil {
		return fmt.Errorf("failed to mark run failed: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return types.ErrRunNotFound
	}

	s.invalidateRuns(ctx, roomID)
	return nil
}

func (s *store) invalidateRuns(ctx context.Context, roomID string) {
	if err := s.runs.Invalidate(ctx, roomID); err != nil {
		s.logger.Warn("failed to invalidate runs cache", zap.String("room_id", roomID), zap.Error(err))
	}
}
