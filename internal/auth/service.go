// Package auth handles email/password authentication and token issuance.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/pixelift/service/internal/user"
)

const bcryptCost = 10

// ErrInvalidCredentials covers both unknown emails and password mismatches so
// the two cases are indistinguishable to the client.
var ErrInvalidCredentials = errors.New("invalid credentials")

// UserStore is the subset of user persistence the auth flow needs.
type UserStore interface {
	Create(ctx context.Context, email, username, passwordHash string, isAdmin bool) (*user.User, error)
	GetByEmail(ctx context.Context, email string) (*user.User, error)
}

// Service contains the business logic for registration and login.
type Service struct {
	users     UserStore
	jwtSecret string
}

// NewService creates a new auth Service.
func NewService(users UserStore, jwtSecret string) *Service {
	return &Service{users: users, jwtSecret: jwtSecret}
}

// Register creates a user with a bcrypt-hashed password and issues a token.
// The username is derived from the email's local part. Duplicate emails
// surface as user.ErrAlreadyExists.
func (s *Service) Register(ctx context.Context, email, password string) (string, *user.User, error) {
	email = NormalizeEmail(email)
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", nil, fmt.Errorf("hash password: %w", err)
	}

	username := email
	if at := strings.Index(email, "@"); at > 0 {
		username = email[:at]
	}

	u, err := s.users.Create(ctx, email, username, string(hash), false)
	if err != nil {
		return "", nil, err
	}

	token, err := IssueToken(s.jwtSecret, u)
	if err != nil {
		return "", nil, fmt.Errorf("issue token: %w", err)
	}
	return token, u, nil
}

// Login verifies the credentials and issues a token. Unknown email and wrong
// password both return ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, email, password string) (string, *user.User, error) {
	u, err := s.users.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := IssueToken(s.jwtSecret, u)
	if err != nil {
		return "", nil, fmt.Errorf("issue token: %w", err)
	}
	return token, u, nil
}

// NormalizeEmail lowercases and trims an email address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
