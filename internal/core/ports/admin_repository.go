package ports

import (
	"context"
	"time"

	"github.com/lumiereluxe/site-backend/internal/core/domain"
)

// AdminRepository is the credential store consulted by the auth layer.
type AdminRepository interface {
	Create(ctx context.Context, admin *domain.Admin) (*domain.Admin, error)
	FindByUsername(ctx context.Context, username string) (*domain.Admin, error)
	// FindByResetTokenHash returns the admin holding the given reset digest,
	// regardless of expiry. Callers decide whether the token is still valid.
	FindByResetTokenHash(ctx context.Context, tokenHash string) (*domain.Admin, error)
	UpdatePassword(ctx context.Context, username, passwordHash string) error
	SetResetToken(ctx context.Context, username, tokenHash string, expiry time.Time) error
	// ConsumeResetToken sets the new password hash and clears the reset fields
	// only if the stored digest still equals tokenHash and has not expired at
	// now. It returns domain.ErrInvalidResetToken when nothing matched.
	ConsumeResetToken(ctx context.Context, tokenHash, passwordHash string, now time.Time) error
}
