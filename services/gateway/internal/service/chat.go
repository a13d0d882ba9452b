package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/DeadlyParkour777/code-room/pkg/events"
	"github.com/DeadlyParkour777/code-room/services/gateway/internal/assistant"
	"github.com/DeadlyParkour777/code-room/services/gateway/internal/types"
	"go.uber.org/zap"
)

const assistantName = "Assistant"

func validateText(text string) (string, error) {
	text = strings.TrimSpace(text)
	if n := utf8.RuneCountInString(text); n < 1 || n > types.MaxMessageRunes {
		return "", invalid("message must be 1 to %d characters", types.MaxMessageRunes)
	}
	return text, nil
}

func (s *service) PostMessage(ctx context.Context, id *types.Identity, roomID, text string) (*types.Message, error) {
	if _, err := s.AuthorizeRoom(ctx, id, roomID); err != nil {
		return nil, err
	}

	text, err := validateText(text)
	if err != nil {
		return nil, err
	}

	return s.storeMessage(ctx, &types.Message{
		RoomID:     roomID,
		Channel:    types.ChannelTeam,
		SenderID:   id.UserID,
		SenderName: id.Username,
		Role:       types.RoleUser,
		Text:       text,
	})
}

func (s *service) storeMessage(ctx context.Context, msg *types.Message) (*types.Message, error) {
	created, err := s.store.CreateMessage(ctx, msg)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.MessageCreated, created.RoomID, created.SenderID, created)
	return created, nil
}

func (s *service) ListMessages(ctx context.Context, id *types.Identity, roomID string, q types.MessageQuery) ([]*types.Message, error) {
	if _, err := s.AuthorizeRoom(ctx, id, roomID); err != nil {
		return nil, err
	}

	if q.Channel == "" {
		q.Channel = types.ChannelTeam
	}
	if !q.Channel.Valid() {
		return nil, invalid("unknown channel %q", q.Channel)
	}
	switch {
	case q.Limit <= 0:
		q.Limit = types.DefaultMessageLimit
	case q.Limit > types.MaxMessageLimit:
		q.Limit = types.MaxMessageLimit
	}

	return s.store.ListMessages(ctx, roomID, q)
}

// Ask posts the prompt to the room assistant channel and stores the model
// reply next to it. The thread is shared by every member of the room.
func (s *service) Ask(ctx context.Context, id *types.Identity, roomID string, req types.AskRequest) (*types.AskReply, error) {
	if s.assistant == nil {
		return nil, types.ErrAssistantDisabled
	}
	if _, err := s.AuthorizeRoom(ctx, id, roomID); err != nil {
		return nil, err
	}

	prompt, err := validateText(req.Prompt)
	if err != nil {
		return nil, err
	}

	var file *types.File
	if req.FileID != "" {
		if file, err = s.mergedFile(ctx, roomID, req.FileID); err != nil {
			return nil, err
		}
	}

	history, err := s.store.ListMessages(ctx, roomID, types.MessageQuery{
		Channel: types.ChannelAssistant,
		Limit:   assistant.HistoryLimit,
	})
	if err != nil {
		return nil, err
	}

	question, err := s.storeMessage(ctx, &types.Message{
		RoomID:     roomID,
		Channel:    types.ChannelAssistant,
		SenderID:   id.UserID,
		SenderName: id.Username,
		Role:       types.RoleUser,
		Text:       prompt,
	})
	if err != nil {
		return nil, err
	}

	text, err := s.assistant.Generate(ctx, assistant.HistoryFromMessages(history), assistant.BuildPrompt(prompt, file))
	if err != nil {
		s.logger.Error("assistant request failed", zap.String("room_id", roomID), zap.Error(err))
		return nil, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, types.ErrEmptyReply
	}

	reply, err := s.storeMessage(ctx, &types.Message{
		RoomID:     roomID,
		Channel:    types.ChannelAssistant,
		SenderName: assistantName,
		Role:       types.RoleAssistant,
		Text:       text,
	})
	if err != nil {
		return nil, err
	}

	return &types.AskReply{Prompt: question, Reply: reply}, nil
}
