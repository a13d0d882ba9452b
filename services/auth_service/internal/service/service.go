package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/DeadlyParkour777/code-room/services/auth_service/internal/store"
	"github.com/DeadlyParkour777/code-room/services/auth_service/internal/types"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const defaultRole = "user"

type Service interface {
	Register(ctx context.Context, payload *types.UserRegisterPayload) (*types.User, error)
	Login(ctx context.Context, payload *types.UserLoginPayload) (*types.User, string, error)
	ValidateToken(ctx context.Context, token string) (*types.Identity, error)
	RefreshToken(ctx context.Context, token string) (string, error)
}

type JWTClaims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

type service struct {
	store    store.Store
	secret   []byte
	tokenTTL time.Duration
	now      func() time.Time
}

func NewService(store store.Store, secret string, tokenTTL time.Duration) *service {
	return &service{
		store:    store,
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
		now:      time.Now,
	}
}

func (s *service) Register(ctx context.Context, payload *types.UserRegisterPayload) (*types.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(payload.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("could not hash password: %w", err)
	}

	user, err := s.store.CreateUser(ctx, &types.User{
		Username: payload.Username,
		Password: string(hash),
		Role:     defaultRole,
	})
	if err != nil {
		return nil, err
	}

	return user, nil
}

func (s *service) Login(ctx context.Context, payload *types.UserLoginPayload) (*types.User, string, error) {
	user, err := s.store.GetUserByUsername(ctx, payload.Username)
	if err != nil {
		if errors.Is(err, types.ErrUserNotFound) {
			return nil, "", types.ErrInvalidCredentials
		}
		return nil, "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(payload.Password)); err != nil {
		return nil, "", types.ErrInvalidCredentials
	}

	token, err := s.issue(user)
	if err != nil {
		return nil, "", err
	}

	return user, token, nil
}

func (s *service) ValidateToken(_ context.Context, token string) (*types.Identity, error) {
	claims, err := s.parse(token)
	if err != nil {
		return nil, err
	}

	return &types.Identity{
		UserID:   claims.UserID,
		Username: claims.Username,
		Role:     claims.Role,
	}, nil
}

// RefreshToken re-reads the user so a changed role or a deleted account
// is reflected in the new token.
func (s *service) RefreshToken(ctx context.Context, token string) (string, error) {
	claims, err := s.parse(token)
	if err != nil {
		return "", err
	}

	user, err := s.store.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, types.ErrUserNotFound) {
			return "", types.ErrInvalidToken
		}
		return "", err
	}

	return s.issue(user)
}

func (s *service) issue(user *types.User) (string, error) {
	now := s.now()
	claims := JWTClaims{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("could not sign token: %w", err)
	}

	return signed, nil
}

func (s *service) parse(token string) (*JWTClaims, error) {
	claims := new(JWTClaims)
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid {
		return nil, types.ErrInvalidToken
	}
	if claims.UserID == "" {
		return nil, types.ErrInvalidToken
	}

	return claims, nil
}
