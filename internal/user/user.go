package user

import (
	"errors"
	"time"
)

var (
	ErrNotFound           = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailExists        = errors.New("email already exists")
	ErrPasswordTooLong    = errors.New("password must be at most 72 bytes")
)

// User is a registered employee. PasswordHash never leaves the service.
type User struct {
	ID           string
	Name         string
	Age          int
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}
