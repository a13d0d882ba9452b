package service

import (
	"context"

	"github.com/DeadlyParkour777/code-room/pkg/events"
	"github.com/DeadlyParkour777/code-room/services/gateway/internal/types"
)

type fileEventPayload struct {
	FileID   string `json:"file_id"`
	Name     string `json:"name,omitempty"`
	Language string `json:"language,omitempty"`
}

func (s *service) resolveLanguage(name, requested string) (string, error) {
	if requested == "" {
		return s.langs.ForFile(name), nil
	}
	lang, ok := s.langs.Lookup(requested)
	if !ok {
		return "", invalid("unknown language %q", requested)
	}
	return lang.Name, nil
}

func (s *service) CreateFile(ctx context.Context, id *types.Identity, roomID string, req types.CreateFileRequest) (*types.File, error) {
	if _, err := s.AuthorizeRoom(ctx, id, roomID); err != nil {
		return nil, err
	}

	name, err := validateFileName(req.Name)
	if err != nil {
		return nil, err
	}
	lang, err := s.resolveLanguage(name, req.Language)
	if err != nil {
		return nil, err
	}
	if len(req.Content) > types.MaxContentBytes {
		return nil, types.ErrContentTooLarge
	}

	file, err := s.store.CreateFile(ctx, &types.File{
		RoomID:    roomID,
		Name:      name,
		Language:  lang,
		Content:   req.Content,
		UpdatedBy: id.UserID,
	}, types.MaxRoomFiles)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.FileCreated, roomID, id.UserID, fileEventPayload{FileID: file.ID, Name: file.Name, Language: file.Language})
	return file, nil
}

func (s *service) ListFiles(ctx context.Context, id *types.Identity, roomID string) ([]*types.File, error) {
	if _, err := s.AuthorizeRoom(ctx, id, roomID); err != nil {
		return nil, err
	}

	files, err := s.store.ListFiles(ctx, roomID)
	if err != nil {
		return nil, err
	}
	for _, f := range files {
		s.saver.Overlay(f, false)
	}
	return files, nil
}

func (s *service) GetFile(ctx context.Context, id *types.Identity, roomID, fileID string) (*types.File, error) {
	if _, err := s.AuthorizeRoom(ctx, id, roomID); err != nil {
		return nil, err
	}
	return s.mergedFile(ctx, roomID, fileID)
}

// mergedFile is the stored record with any unsaved edit applied. The pending
// snapshot is taken before the read: a write committing in between is then
// either in the record or still in the snapshot.
func (s *service) mergedFile(ctx context.Context, roomID, fileID string) (*types.File, error) {
	pending, hasPending := s.saver.Pending(fileID)

	file, err := s.store.GetFile(ctx, roomID, fileID)
	if err != nil {
		return nil, err
	}
	if hasPending {
		file.MergePending(pending, true)
	}
	return file, nil
}

// SaveFile accepts new content for the debounced writer. With Flush set the
// content is persisted before returning.
func (s *service) SaveFile(ctx context.Context, id *types.Identity, roomID, fileID string, req types.SaveFileRequest) (*types.File, error) {
	if _, err := s.AuthorizeRoom(ctx, id, roomID); err != nil {
		return nil, err
	}
	if len(req.Content) > types.MaxContentBytes {
		return nil, types.ErrContentTooLarge
	}

	file, err := s.store.GetFile(ctx, roomID, fileID)
	if err != nil {
		return nil, err
	}

	pending, err := s.saver.Schedule(&types.File{
		ID:        file.ID,
		RoomID:    roomID,
		Content:   req.Content,
		UpdatedBy: id.UserID,
	})
	if err != nil {
		return nil, err
	}

	file.Content = pending.Content
	file.UpdatedBy = pending.UpdatedBy
	file.LastModified = pending.LastModified
	file.Pending = true

	if req.Flush {
		if err := s.saver.Flush(ctx, fileID); err != nil {
			return nil, err
		}
		file.Pending = false
	}
	return file, nil
}

func (s *service) RenameFile(ctx context.Context, id *types.Identity, roomID, fileID string, req types.UpdateFileRequest) (*types.File, error) {
	if _, err := s.AuthorizeRoom(ctx, id, roomID); err != nil {
		return nil, err
	}

	name, err := validateFileName(req.Name)
	if err != nil {
		return nil, err
	}
	lang, err := s.resolveLanguage(name, req.Language)
	if err != nil {
		return nil, err
	}

	file, err := s.store.RenameFile(ctx, &types.File{ID: fileID, RoomID: roomID, Name: name, Language: lang})
	if err != nil {
		return nil, err
	}
	s.saver.Overlay(file, false)

	s.publish(ctx, events.FileRenamed, roomID, id.UserID, fileEventPayload{FileID: file.ID, Name: file.Name, Language: file.Language})
	return file, nil
}

func (s *service) DeleteFile(ctx context.Context, id *types.Identity, roomID, fileID string) error {
	if _, err := s.AuthorizeRoom(ctx, id, roomID); err != nil {
		return err
	}

	if err := s.store.DeleteFile(ctx, roomID, fileID); err != nil {
		return err
	}
	s.saver.Discard(fileID)

	s.publish(ctx, events.FileDeleted, roomID, id.UserID, fileEventPayload{FileID: fileID})
	return nil
}
