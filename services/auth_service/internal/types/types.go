package types

import (
	"errors"
	"time"
)

var (
	ErrUserExists         = errors.New("username already taken")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
)

type User struct {
	ID        string
	Username  string
	Password  string
	Role      string
	CreatedAt time.Time
}

type UserLoginPayload struct {
	Username string
	Password string
}

type UserRegisterPayload struct {
	Username string
	Password string
}

// Identity is what a validated token says about its bearer.
type Identity struct {
	UserID   string
	Username string
	Role     string
}
