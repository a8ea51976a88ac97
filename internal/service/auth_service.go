package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gatedesk/gatedesk/internal/auth"
	"github.com/gatedesk/gatedesk/internal/config"
	"github.com/gatedesk/gatedesk/internal/logger"
	"github.com/gatedesk/gatedesk/internal/model"
	"github.com/gatedesk/gatedesk/internal/repository"
)

// Operator auth errors
var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrAccountDisabled    = errors.New("account is disabled")
	ErrPasswordTooShort   = errors.New("password does not meet the minimum length")
)

// AuthService handles operator login and password management.
type AuthService struct {
	users  UserStore
	tokens *auth.TokenService
	audit  AuditStore
	cfg    *config.Config
	log    *logger.Logger
	now    func() time.Time
}

// NewAuthService creates a new AuthService
func NewAuthService(users UserStore, tokens *auth.TokenService, audit AuditStore, cfg *config.Config, log *logger.Logger) *AuthService {
	return &AuthService{
		users:  users,
		tokens: tokens,
		audit:  audit,
		cfg:    cfg,
		log:    log.WithComponent("auth_service"),
		now:    time.Now,
	}
}

// LoginResult is returned on a successful operator login.
type LoginResult struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
	User      *model.User `json:"user"`
}

// Login verifies operator credentials and issues a session token.
func (s *AuthService) Login(ctx context.Context, username, password, ipAddress, userAgent string) (*LoginResult, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	ok, err := auth.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}
	if !ok {
		s.logAudit(ctx, user.ID, model.AuditActionLoginFailed, ipAddress, userAgent)
		s.log.Warn().Str("username", username).Str("ip", ipAddress).Msg("login failed")
		return nil, ErrInvalidCredentials
	}

	if !user.Active {
		return nil, ErrAccountDisabled
	}

	token, expiresAt, err := s.tokens.Generate(user.ID, user.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to issue session token: %w", err)
	}

	s.logAudit(ctx, user.ID, model.AuditActionLogin, ipAddress, userAgent)
	s.log.Info().Str("user_id", user.ID).Msg("operator logged in")

	return &LoginResult{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      user,
	}, nil
}

// ChangePassword replaces an operator's password after verifying the
// current one.
func (s *AuthService) ChangePassword(ctx context.Context, userID, current, newPassword, ipAddress, userAgent string) error {
	if len(newPassword) < s.cfg.Security.Password.MinLength {
		return ErrPasswordTooShort
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidCredentials
		}
		return fmt.Errorf("failed to look up user: %w", err)
	}

	ok, err := auth.VerifyPassword(current, user.PasswordHash)
	if err != nil {
		return fmt.Errorf("failed to verify password: %w", err)
	}
	if !ok {
		return ErrInvalidCredentials
	}

	params := auth.NewParams(
		s.cfg.Security.Password.Argon2Memory,
		s.cfg.Security.Password.Argon2Iterations,
		s.cfg.Security.Password.Argon2Parallelism,
	)
	hash, err := auth.HashPassword(newPassword, params)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.users.UpdatePassword(ctx, userID, hash, s.now()); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	s.logAudit(ctx, userID, model.AuditActionPasswordChange, ipAddress, userAgent)
	s.log.Info().Str("user_id", userID).Msg("operator password changed")
	return nil
}

func (s *AuthService) logAudit(ctx context.Context, userID, action, ipAddress, userAgent string) {
	resourceType := "user"
	entry := &model.AuditLog{
		ID:           generateID("aud"),
		UserID:       &userID,
		Action:       action,
		ResourceType: &resourceType,
		ResourceID:   &userID,
		CreatedAt:    s.now(),
	}
	if ipAddress != "" {
		entry.IPAddress = &ipAddress
	}
	if userAgent != "" {
		entry.UserAgent = &userAgent
	}
	if err := s.audit.Create(ctx, entry); err != nil {
		s.log.Error().Err(err).Str("action", action).Msg("failed to create audit log")
	}
}
