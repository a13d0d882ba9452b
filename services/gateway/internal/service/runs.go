package service

import (
	"context"

	"github.com/DeadlyParkour777/code-room/pkg/events"
	"github.com/DeadlyParkour777/code-room/services/gateway/internal/types"
	"go.uber.org/zap"
)

// CreateRun stores a queued run and hands it to the runner. A run whose job
// cannot be enqueued is returned already failed.
func (s *service) CreateRun(ctx context.Context, id *types.Identity, roomID string, req types.CreateRun) (*types.Run, error) {
	if _, err := s.AuthorizeRoom(ctx, id, roomID); err != nil {
		return nil, err
	}

	langName, source := req.Language, req.Source
	if req.FileID != "" {
		file, err := s.mergedFile(ctx, roomID, req.FileID)
		if err != nil {
			return nil, err
		}
		langName, source = file.Language, file.Content
	} else if langName == "" || source == "" {
		return nil, invalid("either file_id or language and source are required")
	}

	lang, ok := s.langs.Lookup(langName)
	if !ok || !lang.Runnable {
		return nil, types.ErrUnsupportedRun
	}
	if len(source) > types.MaxContentBytes {
		return nil, types.ErrContentTooLarge
	}

	run, err := s.store.CreateRun(ctx, &types.Run{
		RoomID:   roomID,
		FileID:   req.FileID,
		UserID:   id.UserID,
		Language: lang.Name,
		Source:   source,
		Stdin:    req.Stdin,
		Status:   types.RunQueued,
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.RunQueued, roomID, id.UserID, events.RunStatusPayload{RunID: run.ID, Status: string(run.Status)})

	err = s.runs.Enqueue(ctx, &events.RunJob{
		RunID:      run.ID,
		RoomID:     roomID,
		UserID:     id.UserID,
		Language:   lang.Name,
		LanguageID: lang.JudgeID,
		Source:     source,
		Stdin:      req.Stdin,
	})
	if err != nil {
		s.logger.Error("failed to enqueue run", zap.String("run_id", run.ID), zap.Error(err))
		run.Status = types.RunFailed
		run.Message = "run could not be queued"
		if ferr := s.store.FailRun(ctx, roomID, run.ID, run.Message); ferr != nil {
			s.logger.Error("failed to mark run failed", zap.String("run_id", run.ID), zap.Error(ferr))
		}
		s.publish(ctx, events.RunFinished, roomID, id.UserID, events.RunStatusPayload{RunID: run.ID, Status: string(run.Status)})
	}

	return run, nil
}

func (s *service) ListRuns(ctx context.Context, id *types.Identity, roomID string) ([]*types.Run, error) {
	if _, err := s.AuthorizeRoom(ctx, id, roomID); err != nil {
		return nil, err
	}
	return s.store.ListRuns(ctx, roomID, types.MaxRunHistory)
}

func (s *service) GetRun(ctx context.Context, id *types.Identity, roomID, runID string) (*types.Run, error) {
	if _, err := s.AuthorizeRoom(ctx, id, roomID); err != nil {
		return nil, err
	}
	return s.store.GetRun(ctx, roomID, runID)
}
