package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/anikets/bachatbuddy/internal/user"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
	ErrAccountExists      = errors.New("username or email already registered")
	ErrMissingFields      = errors.New("username, email and password are required")
)

// IDGenerator generates unique IDs for new accounts.
type IDGenerator interface {
	Generate() string
}

// PasswordAuthenticator implements password-based registration and login
// using bcrypt.
type PasswordAuthenticator struct {
	store user.Store
	idGen IDGenerator
}

// NewPasswordAuthenticator creates a password-based authenticator.
func NewPasswordAuthenticator(store user.Store, idGen IDGenerator) *PasswordAuthenticator {
	return &PasswordAuthenticator{store: store, idGen: idGen}
}

// Register creates a new user account with a hashed password.
func (a *PasswordAuthenticator) Register(username, email, fullName, password string) (*user.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" || email == "" || password == "" {
		return nil, ErrMissingFields
	}
	if len(password) < 8 {
		return nil, ErrWeakPassword
	}

	if existing, err := a.store.GetByUsername(username); err == nil && existing != nil {
		return nil, ErrAccountExists
	}
	if existing, err := a.store.GetByEmail(email); err == nil && existing != nil {
		return nil, ErrAccountExists
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	if fullName == "" {
		fullName = username
	}
	u := &user.User{
		ID:           a.idGen.Generate(),
		Username:     username,
		Email:        email,
		FullName:     fullName,
		PasswordHash: string(hashed),
		CreatedAt:    time.Now(),
	}

	if err := a.store.Create(u); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return u, nil
}

// Authenticate verifies the username and password, returning the user if
// valid.
func (a *PasswordAuthenticator) Authenticate(username, password string) (*user.User, error) {
	u, err := a.store.GetByUsername(strings.TrimSpace(username))
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return u, nil
}
