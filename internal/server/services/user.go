// Package services contains server-side business logic. This file implements
// UserService, which handles registration and login and mints session tokens.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/voltio/takeoff-server/internal/common"
	"github.com/voltio/takeoff-server/internal/server/auth"
	"github.com/voltio/takeoff-server/internal/server/config"
	"github.com/voltio/takeoff-server/internal/server/models"
	"github.com/voltio/takeoff-server/internal/server/repositories/repomanager"
)

// UserService provides authentication-related operations:
// - Register: create users and issue a first session token
// - Login: verify credentials and mint a token
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	jwtSecret   []byte
	tokenTTL    time.Duration
}

// NewUserService constructs a UserService using repositories and server config.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *UserService {
	return &UserService{
		db:          db,
		repomanager: m,
		jwtSecret:   []byte(cfg.SecretKey),
		tokenTTL:    cfg.TokenTTL,
	}
}

// Register creates a user with the given credentials and returns the stored
// user plus a fresh session token. A taken email yields common.ErrEmailTaken;
// missing or malformed fields yield common.ErrValidation.
func (s *UserService) Register(ctx context.Context, email, password string) (*models.User, string, error) {
	email = normalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") || password == "" {
		return nil, "", common.ErrValidation
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, "", fmt.Errorf("error hashing password: %w", err)
	}

	repo := s.repomanager.Users(s.db)
	user, err := repo.Create(ctx, &models.User{Email: email, PasswordHash: hash})
	if err != nil {
		if errors.Is(err, common.ErrEmailTaken) {
			return nil, "", common.ErrEmailTaken
		}
		return nil, "", fmt.Errorf("error creating user: %w", err)
	}

	token, err := auth.GenerateToken(user.ID, user.Email, s.jwtSecret, s.tokenTTL)
	if err != nil {
		return nil, "", common.ErrInternal
	}

	return user, token, nil
}

// Login verifies the provided credentials and, on success, returns the user
// and a new session token. Unknown email and wrong password are both
// reported as common.ErrUnauthorized.
func (s *UserService) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, "", common.ErrUnauthorized
	}

	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, "", common.ErrUnauthorized
		}
		return nil, "", common.ErrInternal
	}

	if err := auth.CheckPassword(user.PasswordHash, password); err != nil {
		return nil, "", common.ErrUnauthorized
	}

	token, err := auth.GenerateToken(user.ID, user.Email, s.jwtSecret, s.tokenTTL)
	if err != nil {
		return nil, "", common.ErrInternal
	}

	return user, token, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
