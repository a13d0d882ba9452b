package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/DeadlyParkour777/code-room/pkg/events"
	"github.com/DeadlyParkour777/code-room/services/gateway/internal/assistant"
	"github.com/DeadlyParkour777/code-room/services/gateway/internal/languages"
	"github.com/DeadlyParkour777/code-room/services/gateway/internal/queue"
	"github.com/DeadlyParkour777/code-room/services/gateway/internal/store"
	"github.com/DeadlyParkour777/code-room/services/gateway/internal/types"
	"go.uber.org/zap"
)

type Service interface {
	CreateRoom(ctx context.Context, id *types.Identity, req types.CreateRoomRequest) (*types.Room, error)
	ListRooms(ctx context.Context, id *types.Identity, tag string) ([]*types.Room, error)
	GetRoom(ctx context.Context, id *types.Identity, roomID string) (*types.RoomDetail, error)
	JoinRoom(ctx context.Context, id *types.Identity, roomID string) (*types.Room, error)
	LeaveRoom(ctx context.Context, id *types.Identity, roomID string) error
	UpdateRoom(ctx context.Context, id *types.Identity, roomID string, upd types.RoomUpdate) (*types.Room, error)
	DeleteRoom(ctx context.Context, id *types.Identity, roomID string) error
	AuthorizeRoom(ctx context.Context, id *types.Identity, roomID string) (*types.Room, error)

	CreateFile(ctx context.Context, id *types.Identity, roomID string, req types.CreateFileRequest) (*types.File, error)
	ListFiles(ctx context.Context, id *types.Identity, roomID string) ([]*types.File, error)
	GetFile(ctx context.Context, id *types.Identity, roomID, fileID string) (*types.File, error)
	SaveFile(ctx context.Context, id *types.Identity, roomID, fileID string, req types.SaveFileRequest) (*types.File, error)
	RenameFile(ctx context.Context, id *types.Identity, roomID, fileID string, req types.UpdateFileRequest) (*types.File, error)
	DeleteFile(ctx context.Context, id *types.Identity, roomID, fileID string) error

	PostMessage(ctx context.Context, id *types.Identity, roomID, text string) (*types.Message, error)
	ListMessages(ctx context.Context, id *types.Identity, roomID string, q types.MessageQuery) ([]*types.Message, error)
	Ask(ctx context.Context, id *types.Identity, roomID string, req types.AskRequest) (*types.AskReply, error)

	CreateRun(ctx context.Context, id *types.Identity, roomID string, req types.CreateRun) (*types.Run, error)
	ListRuns(ctx context.Context, id *types.Identity, roomID string) ([]*types.Run, error)
	GetRun(ctx context.Context, id *types.Identity, roomID, runID string) (*types.Run, error)

	Languages() []languages.Language
}

// Autosaver is the debounced write path for file content.
type Autosaver interface {
	Schedule(file *types.File) (*types.File, error)
	Flush(ctx context.Context, fileID string) error
	Discard(fileID string)
	Pending(fileID string) (*types.File, bool)
	Overlay(file *types.File, withContent bool)
}

type service struct {
	store     store.Store
	saver     Autosaver
	publisher events.Publisher
	langs     *languages.Catalogue
	assistant assistant.Generator
	runs      queue.RunProducer
	logger    *zap.Logger
}

type Deps struct {
	Store     store.Store
	Saver     Autosaver
	Publisher events.Publisher
	Languages *languages.Catalogue
	// Assistant may be nil, which disables the assistant channel.
	Assistant assistant.Generator
	Runs      queue.RunProducer
	Logger    *zap.Logger
}

func NewService(d Deps) Service {
	if d.Languages == nil {
		d.Languages = languages.Default()
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return &service{
		store:     d.Store,
		saver:     d.Saver,
		publisher: d.Publisher,
		langs:     d.Languages,
		assistant: d.Assistant,
		runs:      d.Runs,
		logger:    d.Logger,
	}
}

func (s *service) Languages() []languages.Language {
	return s.langs.All()
}

// AuthorizeRoom returns the room when the caller is one of its members.
func (s *service) AuthorizeRoom(ctx context.Context, id *types.Identity, roomID string) (*types.Room, error) {
	room, err := s.store.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !room.IsMember(id.UserID) {
		return nil, types.ErrForbidden
	}
	return room, nil
}

func (s *service) authorizeCreator(ctx context.Context, id *types.Identity, roomID string) (*types.Room, error) {
	room, err := s.store.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room.CreatorID != id.UserID {
		return nil, types.ErrForbidden
	}
	return room, nil
}

// publish never fails the caller: the state change already happened.
func (s *service) publish(ctx context.Context, t events.Type, roomID, actorID string, payload any) {
	ev, err := events.New(t, roomID, actorID, payload)
	if err == nil {
		err = s.publisher.Publish(ctx, ev)
	}
	if err != nil {
		s.logger.Warn("failed to publish room event",
			zap.String("type", string(t)),
			zap.String("room_id", roomID),
			zap.Error(err),
		)
	}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", types.ErrInvalidInput, fmt.Sprintf(format, args...))
}

func validateRoomName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if n := utf8.RuneCountInString(name); n < 1 || n > 100 {
		return "", invalid("room name must be 1 to 100 characters")
	}
	return name, nil
}

// normalizeTags trims, lowercases and de-duplicates tags, keeping their
// first-seen order.
func normalizeTags(tags []string) ([]string, error) {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" || seen[tag] {
			continue
		}
		if utf8.RuneCountInString(tag) > types.MaxTagLength {
			return nil, invalid("tag %q is longer than %d characters", tag, types.MaxTagLength)
		}
		seen[tag] = true
		out = append(out, tag)
	}
	if len(out) > types.MaxTags {
		return nil, invalid("a room can have at most %d tags", types.MaxTags)
	}
	return out, nil
}

func validateFileName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if n := utf8.RuneCountInString(name); n < 1 || n > 255 {
		return "", invalid("file name must be 1 to 255 characters")
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", invalid("file name must not contain path separators")
	}
	return name, nil
}
