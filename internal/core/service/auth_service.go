package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/lumiereluxe/site-backend/internal/core/domain"
	"github.com/lumiereluxe/site-backend/internal/core/ports"
)

// AuthService implements login, registration and password changes.
type AuthService struct {
	repo        ports.AdminRepository
	hasher      ports.PasswordHasher
	tokens      ports.TokenIssuer
	emailDomain string
	logger      zerolog.Logger
	now         func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

func NewAuthService(repo ports.AdminRepository, hasher ports.PasswordHasher, tokens ports.TokenIssuer, emailDomain string, logger zerolog.Logger) *AuthService {
	if emailDomain == "" {
		emailDomain = "slimming.com"
	}
	return &AuthService{
		repo:        repo,
		hasher:      hasher,
		tokens:      tokens,
		emailDomain: emailDomain,
		logger:      logger,
		now:         time.Now,
	}
}

func (s *AuthService) Login(ctx context.Context, username, password string) (*ports.AuthResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || strings.TrimSpace(password) == "" {
		return nil, domain.ErrInvalidCredentials
	}

	admin, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrAdminNotFound) {
			// Burn a hash comparison so unknown usernames cost the same as
			// wrong passwords.
			s.hasher.Verify(password, s.dummy())
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if !s.hasher.Verify(password, admin.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}

	return s.issue(admin)
}

func (s *AuthService) Register(ctx context.Context, username, password string) (*ports.AuthResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || strings.TrimSpace(password) == "" {
		return nil, domain.ErrInvalidCredentials
	}
	if err := domain.ValidatePassword(password); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	created, err := s.repo.Create(ctx, &domain.Admin{
		Username:     username,
		Email:        username + "@" + s.emailDomain,
		PasswordHash: hash,
		Role:         domain.RoleAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("username", created.Username).Msg("admin registered")
	return s.issue(created)
}

func (s *AuthService) ChangePassword(ctx context.Context, username, currentPassword, newPassword string) error {
	if strings.TrimSpace(currentPassword) == "" {
		return domain.ErrInvalidCredentials
	}
	if err := domain.ValidatePassword(newPassword); err != nil {
		return err
	}

	admin, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		return err
	}
	if !s.hasher.Verify(currentPassword, admin.PasswordHash) {
		return domain.ErrInvalidCredentials
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.repo.UpdatePassword(ctx, admin.Username, hash); err != nil {
		return err
	}

	s.logger.Info().Str("username", admin.Username).Msg("password changed")
	return nil
}

func (s *AuthService) Profile(ctx context.Context, username string) (*domain.Admin, error) {
	return s.repo.FindByUsername(ctx, username)
}

// EnsureAdmin creates the bootstrap admin when no admin with that username
// exists. It reports whether an account was created.
func (s *AuthService) EnsureAdmin(ctx context.Context, username, password, email string) (bool, error) {
	_, err := s.repo.FindByUsername(ctx, username)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, domain.ErrAdminNotFound) {
		return false, err
	}
	if err := domain.ValidatePassword(password); err != nil {
		return false, fmt.Errorf("bootstrap admin %q: %w", username, err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return false, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	_, err = s.repo.Create(ctx, &domain.Admin{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if errors.Is(err, domain.ErrAdminExists) {
		// Another instance won the race.
		return false, nil
	}
	if err != nil {
		return false, err
	}

	s.logger.Info().Str("username", username).Msg("bootstrap admin created")
	return true, nil
}

func (s *AuthService) issue(admin *domain.Admin) (*ports.AuthResult, error) {
	token, err := s.tokens.Issue(admin.Username)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &ports.AuthResult{Token: token, Admin: admin}, nil
}

func (s *AuthService) dummy() string {
	s.dummyOnce.Do(func() {
		h, err := s.hasher.Hash("not-a-real-password")
		if err != nil {
			s.logger.Error().Err(err).Msg("failed to prepare dummy hash")
			return
		}
		s.dummyHash = h
	})
	return s.dummyHash
}
