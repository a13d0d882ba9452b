package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/DeadlyParkour777/code-room/pkg/events"
	"github.com/DeadlyParkour777/code-room/services/gateway/internal/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type memberPayload struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

func (s *service) CreateRoom(ctx context.Context, id *types.Identity, req types.CreateRoomRequest) (*types.Room, error) {
	name, err := validateRoomName(req.Name)
	if err != nil {
		return nil, err
	}
	tags, err := normalizeTags(req.Tags)
	if err != nil {
		return nil, err
	}

	room, err := s.store.CreateRoom(ctx, &types.Room{
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		CreatorID:   id.UserID,
		Members:     []string{id.UserID},
		Tags:        tags,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("room created", zap.String("room_id", room.ID), zap.String("user_id", id.UserID))
	return room, nil
}

func (s *service) ListRooms(ctx context.Context, id *types.Identity, tag string) ([]*types.Room, error) {
	return s.store.ListRoomsForUser(ctx, id.UserID, strings.ToLower(strings.TrimSpace(tag)))
}

// GetRoom loads the room and its files concurrently; the files are only
// returned once membership is confirmed.
func (s *service) GetRoom(ctx context.Context, id *types.Identity, roomID string) (*types.RoomDetail, error) {
	var (
		room  *types.Room
		files []*types.File
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		room, err = s.store.GetRoom(gctx, roomID)
		return err
	})
	g.Go(func() error {
		var err error
		files, err = s.store.ListFiles(gctx, roomID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if !room.IsMember(id.UserID) {
		return nil, types.ErrForbidden
	}

	for _, f := range files {
		s.saver.Overlay(f, false)
	}

	return &types.RoomDetail{
		Room:        room,
		MemberCount: len(room.Members),
		Files:       files,
	}, nil
}

func (s *service) JoinRoom(ctx context.Context, id *types.Identity, roomID string) (*types.Room, error) {
	room, err := s.store.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room.IsMember(id.UserID) {
		return room, nil
	}
	if len(room.Members) >= types.MaxRoomMembers {
		return nil, types.ErrRoomFull
	}

	room, err = s.store.AddMember(ctx, roomID, id.UserID, types.MaxRoomMembers)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.MemberJoined, roomID, id.UserID, memberPayload{UserID: id.UserID, Username: id.Username})
	return room, nil
}

func (s *service) LeaveRoom(ctx context.Context, id *types.Identity, roomID string) error {
	room, err := s.AuthorizeRoom(ctx, id, roomID)
	if err != nil {
		return err
	}
	if room.CreatorID == id.UserID {
		return types.ErrCreatorCannotLeave
	}

	if _, err := s.store.RemoveMember(ctx, roomID, id.UserID); err != nil {
		return err
	}

	s.publish(ctx, events.MemberLeft, roomID, id.UserID, memberPayload{UserID: id.UserID, Username: id.Username})
	return nil
}

func (s *service) UpdateRoom(ctx context.Context, id *types.Identity, roomID string, upd types.RoomUpdate) (*types.Room, error) {
	room, err := s.authorizeCreator(ctx, id, roomID)
	if err != nil {
		return nil, err
	}

	if upd.Name != nil {
		if room.Name, err = validateRoomName(*upd.Name); err != nil {
			return nil, err
		}
	}
	if upd.Description != nil {
		desc := strings.TrimSpace(*upd.Description)
		if utf8.RuneCountInString(desc) > 2000 {
			return nil, invalid("description must be at most 2000 characters")
		}
		room.Description = desc
	}
	if upd.SetTags {
		if room.Tags, err = normalizeTags(upd.Tags); err != nil {
			return nil, err
		}
	}

	updated, err := s.store.UpdateRoom(ctx, room)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.RoomUpdated, roomID, id.UserID, updated)
	return updated, nil
}

func (s *service) DeleteRoom(ctx context.Context, id *types.Identity, roomID string) error {
	room, err := s.authorizeCreator(ctx, id, roomID)
	if err != nil {
		return err
	}

	for _, fileID := range room.FileIDs {
		s.saver.Discard(fileID)
	}
	if err := s.store.DeleteRoom(ctx, roomID); err != nil {
		return err
	}

	s.logger.Info("room deleted", zap.String("room_id", roomID), zap.String("user_id", id.UserID))
	s.publish(ctx, events.RoomDeleted, roomID, id.UserID, nil)
	return nil
}
