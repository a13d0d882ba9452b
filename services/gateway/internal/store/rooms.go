package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/DeadlyParkour777/code-room/services/gateway/internal/types"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

const roomColumns = `id, name, description, creator_id, members, file_ids, tags, created_at, updated_at`

func scanRoom(row rowScanner) (*types.Room, error) {
	room := new(types.Room)
	err := row.Scan(
		&room.ID, &room.Name, &room.Description, &room.CreatorID,
		pq.Array(&room.Members), pq.Array(&room.FileIDs), pq.Array(&room.Tags),
		&room.CreatedAt, &room.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return room, nil
}

func (s *store) CreateRoom(ctx context.Context, room *types.Room) (*types.Room, error) {
	room.ID = uuid.New().String()
	if room.Tags == nil {
		room.Tags = []string{}
	}
	room.FileIDs = []string{}

	query := `INSERT INTO rooms (id, name, description, creator_id, members, file_ids, tags)
	          VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING ` + roomColumns

	created, err := scanRoom(s.db.QueryRowContext(ctx, query,
		room.ID, room.Name, room.Description, room.CreatorID,
		pq.Array(room.Members), pq.Array(room.FileIDs), pq.Array(room.Tags),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create room: %w", err)
	}
	return created, nil
}

func (s *store) GetRoom(ctx context.Context, id string) (*types.Room, error) {
	room, err := scanRoom(s.db.QueryRowContext(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id = $1`, id))
	if err != nil {
		if notFound(err, types.ErrRoomNotFound) {
			return nil, types.ErrRoomNotFound
		}
		return nil, fmt.Errorf("failed to get room: %w", err)
	}
	return room, nil
}

func (s *store) ListRoomsForUser(ctx context.Context, userID, tag string) ([]*types.Room, error) {
	query := `SELECT ` + roomColumns + ` FROM rooms
	          WHERE $1 = ANY(members) AND ($2 = '' OR $2 = ANY(tags))
	          ORDER BY updated_at DESC`

	rows, err := s.db.QueryContext(ctx, query, userID, tag)
	if err != nil {
		if pqCode(err) == invalidTextRepr {
			return []*types.Room{}, nil
		}
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	defer rows.Close()

	rooms := []*types.Room{}
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan room: %w", err)
		}
		rooms = append(rooms, room)
	}
	return rooms, rows.Err()
}

func (s *store) UpdateRoom(ctx context.Context, room *types.Room) (*types.Room, error) {
	query := `UPDATE rooms SET name = $2, description = $3, tags = $4, updated_at = now()
	          WHERE id = $1 RETURNING ` + roomColumns

	updated, err := scanRoom(s.db.QueryRowContext(ctx, query, room.ID, room.Name, room.Description, pq.Array(room.Tags)))
	if err != nil {
		if notFound(err, types.ErrRoomNotFound) {
			return nil, types.ErrRoomNotFound
		}
		return nil, fmt.Errorf("failed to update room: %w", err)
	}
	return updated, nil
}

func (s *store) DeleteRoom(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM rooms WHERE id = $1`, id)
	if err != nil {
		if pqCode(err) == invalidTextRepr {
			return types.ErrRoomNotFound
		}
		return fmt.Errorf("failed to delete room: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return types.ErrRoomNotFound
	}
	if err := s.runs.Invalidate(ctx, id); err != nil {
		s.logger.Warn("failed to drop runs cache of deleted room", zap.String("room_id", id), zap.Error(err))
	}
	return nil
}

// AddMember appends the user in a single statement so concurrent joins
// cannot push a room past maxMembers. Joining twice is a no-op.
func (s *store) AddMember(ctx context.Context, roomID, userID string, maxMembers int) (*types.Room, error) {
	query := `UPDATE rooms SET members = array_append(members, $2::uuid), updated_at = now()
	          WHERE id = $1 AND NOT ($2::uuid = ANY(members)) AND cardinality(members) < $3
	          RETURNING ` + roomColumns

	room, err := scanRoom(s.db.QueryRowContext(ctx, query, roomID, userID, maxMembers))
	if err == nil {
		return room, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		if pqCode(err) == invalidTextRepr {
			return nil, types.ErrRoomNotFound
		}
		return nil, fmt.Errorf("failed to add member: %w", err)
	}

	room, err = s.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room.IsMember(userID) {
		return room, nil
	}
	return nil, types.ErrRoomFull
}

func (s *store) RemoveMember(ctx context.Context, roomID, userID string) (*types.Room, error) {
	query := `UPDATE rooms SET members = array_remove(members, $2::uuid), updated_at = now()
	          WHERE id = $1 RETURNING ` + roomColumns

	room, err := scanRoom(s.db.QueryRowContext(ctx, query, roomID, userID))
	if err != nil {
		if notFound(err, types.ErrRoomNotFound) {
			return nil, types.ErrRoomNotFound
		}
		return nil, fmt.Errorf("failed to remove member: %w", err)
	}
	return room, nil
}
