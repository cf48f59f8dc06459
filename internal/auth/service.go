// Package auth provides account registration, credential verification, and
// JWT token issuance.
package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/varb24/TurtleMessenger/internal/storage"
	"github.com/varb24/TurtleMessenger/pkg/types"
)

var (
	// ErrInvalidCredentials is returned for an unknown username or a wrong
	// password. The two cases are deliberately indistinguishable.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidUsername is returned when a username fails validation.
	ErrInvalidUsername = errors.New("invalid username; use a-z, 0-9, . _ - (3-50 chars)")

	// ErrWeakPassword is returned when a password is too short.
	ErrWeakPassword = errors.New("password must be at least 6 characters")

	// ErrUsernameTaken is returned when the username is already registered.
	ErrUsernameTaken = errors.New("username already taken")
)

// Service manages accounts.
type Service struct {
	users storage.UserStore
}

// NewService creates an auth service over a user store.
func NewService(users storage.UserStore) *Service {
	return &Service{users: users}
}

// Register creates a new account. The username is normalized before
// validation and storage.
func (s *Service) Register(ctx context.Context, username, password string) (*types.User, error) {
	u := types.NormalizeUsername(username)
	if !types.ValidUsername(u) {
		return nil, ErrInvalidUsername
	}
	if len(password) < 6 {
		return nil, ErrWeakPassword
	}

	taken, err := s.users.UsernameTaken(ctx, u)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrUsernameTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("auth: failed to hash password: %w", err)
	}

	user := &types.User{Username: u, PasswordHash: string(hash)}
	if err := s.users.CreateUser(ctx, user); err != nil {
		// Lost a race with a concurrent registration of the same name.
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, ErrUsernameTaken
		}
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"user_id":  user.ID,
		"username": user.Username,
	}).Info("user registered")
	return user, nil
}

// Authenticate verifies a username/password pair and returns the account.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*types.User, error) {
	u := types.NormalizeUsername(username)

	user, err := s.users.GetUserByUsername(ctx, u)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}
