package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/lumiereluxe/site-backend/internal/core/domain"
	"github.com/lumiereluxe/site-backend/internal/core/ports"
)

// ResetTokenTTL is how long a reset token stays usable after it is issued.
const ResetTokenTTL = time.Hour

const resetTokenBytes = 32

// PasswordResetService runs the one-time reset token lifecycle:
// none -> pending (RequestReset) -> none (ResetPassword or expiry).
type PasswordResetService struct {
	repo   ports.AdminRepository
	hasher ports.PasswordHasher
	mailer ports.ResetMailer
	logger zerolog.Logger
	now    func() time.Time
	random io.Reader
}

func NewPasswordResetService(repo ports.AdminRepository, hasher ports.PasswordHasher, mailer ports.ResetMailer, logger zerolog.Logger) *PasswordResetService {
	return &PasswordResetService{
		repo:   repo,
		hasher: hasher,
		mailer: mailer,
		logger: logger,
		now:    time.Now,
		random: rand.Reader,
	}
}

// RequestReset issues a reset token for username and hands it to the mailer.
// Unknown usernames and mail failures return nil so callers answer the same
// way in every case.
func (s *PasswordResetService) RequestReset(ctx context.Context, username string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil
	}

	admin, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrAdminNotFound) {
			s.logger.Debug().Msg("reset requested for unknown username")
			return nil
		}
		return err
	}

	token, err := s.newToken()
	if err != nil {
		return fmt.Errorf("generate reset token: %w", err)
	}
	expiry := s.now().UTC().Add(ResetTokenTTL)

	if err := s.repo.SetResetToken(ctx, admin.Username, hashResetToken(token), expiry); err != nil {
		return err
	}

	err = s.mailer.SendReset(ctx, ports.ResetMail{
		Username: admin.Username,
		To:       admin.Email,
		Token:    token,
		Expires:  expiry,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("username", admin.Username).Msg("reset mail not queued")
		return nil
	}

	s.logger.Info().Str("username", admin.Username).Time("expires", expiry).Msg("reset token issued")
	return nil
}

// ResetPassword consumes token and sets newPassword. Unknown, expired and
// already used tokens all yield domain.ErrInvalidResetToken.
func (s *PasswordResetService) ResetPassword(ctx context.Context, token, newPassword string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.ErrInvalidResetToken
	}
	if err := domain.ValidatePassword(newPassword); err != nil {
		return err
	}

	digest := hashResetToken(token)
	now := s.now().UTC()

	admin, err := s.repo.FindByResetTokenHash(ctx, digest)
	if err != nil {
		if errors.Is(err, domain.ErrAdminNotFound) {
			return domain.ErrInvalidResetToken
		}
		return err
	}
	if admin.ResetTokenExpiry == nil || !admin.ResetTokenExpiry.After(now) {
		return domain.ErrInvalidResetToken
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	// The store re-checks digest and expiry so two concurrent resets with the
	// same token cannot both succeed.
	if err := s.repo.ConsumeResetToken(ctx, digest, hash, now); err != nil {
		return err
	}

	s.logger.Info().Str("username", admin.Username).Msg("password reset completed")
	return nil
}

func (s *PasswordResetService) newToken() (string, error) {
	b := make([]byte, resetTokenBytes)
	if _, err := io.ReadFull(s.random, b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// hashResetToken is the form a reset token is stored and looked up in.
func hashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
