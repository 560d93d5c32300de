// Package services orchestrates the resource components: every operation
// runs the same pipeline of authorize, validate, execute, invalidate-cache.
// Authorization and validation always complete before any store mutation.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"finledger/internal/auth"
	"finledger/internal/core"
	"finledger/internal/log"
	"finledger/internal/storage"
)

// AuthService issues and resolves identities: registration, login, and
// bearer-token resolution.
type AuthService struct {
	storage *storage.SQLiteRepository
	tokens  *auth.TokenManager
	logger  *log.Logger
}

func NewAuthService(storage *storage.SQLiteRepository, tokens *auth.TokenManager, logger *log.Logger) *AuthService {
	return &AuthService{
		storage: storage,
		tokens:  tokens,
		logger:  logger.WithComponent(log.ComponentAuth),
	}
}

// Register creates an account and returns it with a fresh token. The role
// defaults to "user" when omitted.
func (s *AuthService) Register(ctx context.Context, name, email, password string, role core.Role) (core.User, string, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if name == "" || email == "" || password == "" {
		return core.User{}, "", fmt.Errorf("%w: name, email, and password are required", core.ErrValidation)
	}
	if len(password) < 8 {
		return core.User{}, "", fmt.Errorf("%w: password must be at least 8 characters", core.ErrValidation)
	}
	if role == "" {
		role = core.RoleUser
	}
	if !role.IsValid() {
		return core.User{}, "", core.ErrInvalidRole
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return core.User{}, "", fmt.Errorf("hash password: %w", err)
	}

	user, err := s.storage.CreateUser(ctx, core.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	})
	if err != nil {
		return core.User{}, "", err
	}

	token, err := s.tokens.Generate(user)
	if err != nil {
		return core.User{}, "", fmt.Errorf("generate token: %w", err)
	}

	s.logger.InfoContext(ctx, "User registered",
		log.FieldOperation, log.OpRegister,
		log.FieldUserID, user.ID,
		"role", string(user.Role))
	return user, token, nil
}

// Login verifies credentials and returns the user with a fresh token.
// Unknown email and wrong password produce the same error.
func (s *AuthService) Login(ctx context.Context, email, password string) (core.User, string, error) {
	user, err := s.storage.GetUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return core.User{}, "", core.ErrInvalidCredentials
		}
		return core.User{}, "", err
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		return core.User{}, "", core.ErrInvalidCredentials
	}

	token, err := s.tokens.Generate(user)
	if err != nil {
		return core.User{}, "", fmt.Errorf("generate token: %w", err)
	}

	s.logger.InfoContext(ctx, "User logged in",
		log.FieldOperation, log.OpLogin,
		log.FieldUserID, user.ID)
	return user, token, nil
}

// Resolve turns a bearer token into a caller identity. The user row is
// loaded on every request so role changes and deletions take effect
// immediately; any failure maps to ErrUnauthenticated.
func (s *AuthService) Resolve(ctx context.Context, token string) (*auth.Identity, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, core.ErrUnauthenticated
	}

	user, err := s.storage.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, core.ErrUnauthenticated
		}
		return nil, err
	}

	return &auth.Identity{
		ID:    user.ID,
		Name:  user.Name,
		Email: user.Email,
		Role:  user.Role,
	}, nil
}
