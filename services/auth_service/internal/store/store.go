package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/DeadlyParkour777/code-room/services/auth_service/internal/types"
	"github.com/lib/pq"
)

type Store interface {
	CreateUser(ctx context.Context, user *types.User) (*types.User, error)
	GetUserByUsername(ctx context.Context, username string) (*types.User, error)
	GetUserByID(ctx context.Context, id string) (*types.User, error)
}

type store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *store {
	return &store{db: db}
}

const uniqueViolation = "23505"

func (s *store) CreateUser(ctx context.Context, user *types.User) (*types.User, error) {
	query := `INSERT INTO users (username, password, role) VALUES ($1, $2, $3) RETURNING id, created_at`

	err := s.db.QueryRowContext(ctx, query, user.Username, user.Password, user.Role).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, types.ErrUserExists
		}
		return nil, fmt.Errorf("could not create user: %w", err)
	}

	return user, nil
}

func (s *store) GetUserByUsername(ctx context.Context, username string) (*types.User, error) {
	user := new(types.User)
	query := `SELECT id, username, password, role, created_at FROM users WHERE username = $1`

	err := s.db.QueryRowContext(ctx, query, username).Scan(&user.ID, &user.Username, &user.Password, &user.Role, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, types.ErrUserNotFound
		}
		return nil, fmt.Errorf("could not get user: %w", err)
	}

	return user, nil
}

func (s *store) GetUserByID(ctx context.Context, id string) (*types.User, error) {
	user := new(types.User)
	query := `SELECT id, username, password, role, created_at FROM users WHERE id = $1`

	err := s.db.QueryRowContext(ctx, query, id).Scan(&user.ID, &user.Username, &user.Password, &user.Role, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user with id %s: %w", id, types.ErrUserNotFound)
		}
		return nil, fmt.Errorf("could not get user by id: %w", err)
	}

	return user, nil
}
