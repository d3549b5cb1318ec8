package auth

import (
	"context"
	"errors"
	"fmt"

	"bookswap/db"
	"bookswap/models"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUsernameTaken      = errors.New("username already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// AuthService is the credential store: it registers accounts and checks
// passwords. Only bcrypt hashes are ever persisted.
type AuthService struct {
	repo db.UserRepository
}

// NewAuthService creates a new AuthService
func NewAuthService(repo db.UserRepository) *AuthService {
	return &AuthService{repo: repo}
}

// Register creates a new account. Returns ErrUsernameTaken when the username
// is already in use; the repository's uniqueness constraint backs the check,
// so a racing duplicate registration loses cleanly.
func (s *AuthService) Register(ctx context.Context, username, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("error hashing password: %w", err)
	}

	user := &models.User{
		Username:     username,
		PasswordHash: string(hash),
	}

	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, db.ErrDuplicate) {
			return ErrUsernameTaken
		}
		return fmt.Errorf("error registering user: %w", err)
	}

	return nil
}

// Authenticate checks a username/password pair. An unknown username and a
// wrong password both come back as ErrInvalidCredentials.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("error looking up user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}
