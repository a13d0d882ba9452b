package store

import (
	"context"
	"fmt"
	"time"

	"github.com/DeadlyParkour777/code-room/services/gateway/internal/types"
	"github.com/google/uuid"
)

func (s *store) CreateMessage(ctx context.Context, msg *types.Message) (*types.Message, error) {
	msg.ID = uuid.New().String()
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	query := `INSERT INTO messages (id, room_id, channel, sender_id, sender_name, role, text, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := s.db.ExecContext(ctx, query,
		msg.ID, msg.RoomID, string(msg.Channel), nullString(msg.SenderID), msg.SenderName, msg.Role, msg.Text, msg.CreatedAt)
	if err != nil {
		if pqCode(err) == foreignKeyMissing {
			return nil, types.ErrRoomNotFound
		}
		return nil, fmt.Errorf("failed to create message: %w", err)
	}
	return msg, nil
}

// ListMessages returns the newest page older than q.Before in
// chronological order.
func (s *store) ListMessages(ctx context.Context, roomID string, q types.MessageQuery) ([]*types.Message, error) {
	var before any
	if !q.Before.IsZero() {
		before = q.Before
	}

	query := `SELECT id, room_id, channel, COALESCE(sender_id::text, ''), sender_name, role, text, created_at
	          FROM messages
	          WHERE room_id = $1 AND channel = $2 AND ($3::timestamptz IS NULL OR created_at < $3)
	          ORDER BY created_at DESC, id DESC
	          LIMIT $4`

	rows, err := s.db.QueryContext(ctx, query, roomID, string(q.Channel), before, q.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	messages := []*types.Message{}
	for rows.Next() {
		m := new(types.Message)
		var channel string
		if err := rows.Scan(&m.ID, &m.RoomID, &channel, &m.SenderID, &m.SenderName, &m.Role, &m.Text, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		m.Channel = types.Channel(channel)
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}
