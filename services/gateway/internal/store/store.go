package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/DeadlyParkour777/code-room/services/gateway/internal/cache"
	"github.com/DeadlyParkour777/code-room/services/gateway/internal/types"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

type Store interface {
	Ping(ctx context.Context) error

	CreateRoom(ctx context.Context, room *types.Room) (*types.Room, error)
	GetRoom(ctx context.Context, id string) (*types.Room, error)
	ListRoomsForUser(ctx context.Context, userID, tag string) ([]*types.Room, error)
	UpdateRoom(ctx context.Context, room *types.Room) (*types.Room, error)
	DeleteRoom(ctx context.Context, id string) error
	AddMember(ctx context.Context, roomID, userID string, maxMembers int) (*types.Room, error)
	RemoveMember(ctx context.Context, roomID, userID string) (*types.Room, error)

	CreateFile(ctx context.Context, file *types.File, maxFiles int) (*types.File, error)
	GetFile(ctx context.Context, roomID, fileID string) (*types.File, error)
	ListFiles(ctx context.Context, roomID string) ([]*types.File, error)
	SaveContent(ctx context.Context, file *types.File) error
	RenameFile(ctx context.Context, file *types.File) (*types.File, error)
	DeleteFile(ctx context.Context, roomID, fileID string) error

	CreateMessage(ctx context.Context, msg *types.Message) (*types.Message, error)
	ListMessages(ctx context.Context, roomID string, q types.MessageQuery) ([]*types.Message, error)

	CreateRun(ctx context.Context, run *types.Run) (*types.Run, error)
	GetRun(ctx context.Context, roomID, runID string) (*types.Run, error)
	ListRuns(ctx context.Context, roomID string, limit int) ([]*types.Run, error)
	FailRun(ctx context.Context, roomID, runID, message string) error
}

type store struct {
	db     *sql.DB
	runs   cache.RunsCache
	logger *zap.Logger
}

func NewStore(db *sql.DB, runs cache.RunsCache, logger *zap.Logger) Store {
	return &store{db: db, runs: runs, logger: logger}
}

func (s *store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

const (
	uniqueViolation   = "23505"
	invalidTextRepr   = "22P02"
	foreignKeyMissing = "23503"
)

func pqCode(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

// notFound maps missing rows and malformed ids to the given sentinel.
func notFound(err, sentinel error) bool {
	return errors.Is(err, sql.ErrNoRows) || pqCode(err) == invalidTextRepr || errors.Is(err, sentinel)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}
