package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DeadlyParkour777/code-room/services/auth_service/internal/types"
	"golang.org/x/crypto/bcrypt"
)

type fakeStore struct {
	createUserFn    func(user *types.User) (*types.User, error)
	getByUsernameFn func(username string) (*types.User, error)
	getByIDFn       func(id string) (*types.User, error)
	lastCreatedUser *types.User
	lastIDQuery     string
}

func (f *fakeStore) CreateUser(_ context.Context, user *types.User) (*types.User, error) {
	f.lastCreatedUser = user
	if f.createUserFn == nil {
		return nil, errors.New("CreateUser not implemented")
	}
	return f.createUserFn(user)
}

func (f *fakeStore) GetUserByUsername(_ context.Context, username string) (*types.User, error) {
	if f.getByUsernameFn == nil {
		return nil, errors.New("GetUserByUsername not implemented")
	}
	return f.getByUsernameFn(username)
}

func (f *fakeStore) GetUserByID(_ context.Context, id string) (*types.User, error) {
	f.lastIDQuery = id
	if f.getByIDFn == nil {
		return nil, errors.New("GetUserByID not implemented")
	}
	return f.getByIDFn(id)
}

func storeWithUser(t *testing.T, role string) *fakeStore {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("pass123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return &fakeStore{
		getByUsernameFn: func(username string) (*types.User, error) {
			if username != "alice" {
				return nil, types.ErrUserNotFound
			}
			return &types.User{ID: "u1", Username: username, Password: string(hash), Role: role}, nil
		},
	}
}

func login(t *testing.T, s *service) string {
	t.Helper()
	_, token, err := s.Login(context.Background(), &types.UserLoginPayload{Username: "alice", Password: "pass123"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	return token
}

func TestRegister_HashesPasswordAndSetsRole(t *testing.T) {
	store := &fakeStore{
		createUserFn: func(user *types.User) (*types.User, error) {
			user.ID = "u1"
			return user, nil
		},
	}
	service := NewService(store, "secret", time.Hour)

	created, err := service.Register(context.Background(), &types.UserRegisterPayload{
		Username: "alice",
		Password: "pass123",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.ID != "u1" {
		t.Fatalf("unexpected id: %s", created.ID)
	}
	if store.lastCreatedUser.Role != "user" {
		t.Fatalf("expected role user, got %s", store.lastCreatedUser.Role)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(store.lastCreatedUser.Password), []byte("pass123")); err != nil {
		t.Fatalf("hash does not match: %v", err)
	}
}

func TestRegister_PropagatesDuplicate(t *testing.T) {
	store := &fakeStore{
		createUserFn: func(user *types.User) (*types.User, error) {
			return nil, types.ErrUserExists
		},
	}
	service := NewService(store, "secret", time.Hour)

	_, err := service.Register(context.Background(), &types.UserRegisterPayload{Username: "alice", Password: "pass123"})
	if !errors.Is(err, types.ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	tests := []struct {
		name     string
		username string
		password string
	}{
		{name: "wrong password", username: "alice", password: "wrong"},
		{name: "unknown user", username: "bob", password: "pass123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := NewService(storeWithUser(t, "user"), "secret", time.Hour)

			_, _, err := service.Login(context.Background(), &types.UserLoginPayload{
				Username: tt.username,
				Password: tt.password,
			})
			if !errors.Is(err, types.ErrInvalidCredentials) {
				t.Fatalf("expected ErrInvalidCredentials, got %v", err)
			}
		})
	}
}

func TestValidateToken_Valid(t *testing.T) {
	service := NewService(storeWithUser(t, "admin"), "secret", time.Hour)
	token := login(t, service)

	id, err := service.ValidateToken(context.Background(), token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id.UserID != "u1" || id.Role != "admin" || id.Username != "alice" {
		t.Fatalf("unexpected identity: %+v", id)
	}
}

func TestValidateToken_Rejects(t *testing.T) {
	issuer := NewService(storeWithUser(t, "user"), "secret", time.Hour)
	token := login(t, issuer)

	expired := NewService(storeWithUser(t, "user"), "secret", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	tests := []struct {
		name    string
		service *service
		token   string
	}{
		{name: "garbage", service: issuer, token: "invalid.token"},
		{name: "other secret", service: NewService(&fakeStore{}, "other", time.Hour), token: token},
		{name: "expired", service: expired, token: token},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.service.ValidateToken(context.Background(), tt.token)
			if !errors.Is(err, types.ErrInvalidToken) {
				t.Fatalf("expected ErrInvalidToken, got %v", err)
			}
		})
	}
}

func TestRefreshToken_ReissuesWithCurrentRole(t *testing.T) {
	store := storeWithUser(t, "user")
	store.getByIDFn = func(id string) (*types.User, error) {
		return &types.User{ID: id, Username: "alice", Role: "admin"}, nil
	}
	service := NewService(store, "secret", time.Hour)
	token := login(t, service)

	refreshed, err := service.RefreshToken(context.Background(), token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.lastIDQuery != "u1" {
		t.Fatalf("expected lookup of u1, got %q", store.lastIDQuery)
	}

	id, err := service.ValidateToken(context.Background(), refreshed)
	if err != nil {
		t.Fatalf("validate refreshed: %v", err)
	}
	if id.Role != "admin" {
		t.Fatalf("expected refreshed role admin, got %s", id.Role)
	}
}

func TestRefreshToken_DeletedUser(t *testing.T) {
	store := storeWithUser(t, "user")
	store.getByIDFn = func(id string) (*types.User, error) {
		return nil, types.ErrUserNotFound
	}
	service := NewService(store, "secret", time.Hour)
	token := login(t, service)

	_, err := service.RefreshToken(context.Background(), token)
	if !errors.Is(err, types.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}
