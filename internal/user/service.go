package user

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"timeclock/internal/auth"
)

// Service registers and authenticates users.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Register hashes the password and stores a new user.
func (s *Service) Register(ctx context.Context, name string, age int, email, password string) (User, error) {
	// bcrypt only reads the first 72 bytes.
	if len(password) > 72 {
		return User{}, ErrPasswordTooLong
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return User{}, err
	}
	return s.repo.Create(ctx, User{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(name),
		Age:          age,
		Email:        normalizeEmail(email),
		PasswordHash: hash,
	})
}

// Authenticate returns the user when email and password match. Unknown
// emails and wrong passwords both yield ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (User, error) {
	u, err := s.repo.GetByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, ErrNotFound) {
		return User{}, ErrInvalidCredentials
	}
	if err != nil {
		return User{}, err
	}
	if !auth.CheckPassword(u.PasswordHash, password) {
		return User{}, ErrInvalidCredentials
	}
	return u, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
