package ports

import (
	"context"

	"github.com/lumiereluxe/site-backend/internal/core/domain"
)

// AuthResult is what login and registration hand back to the client.
type AuthResult struct {
	Token string
	Admin *domain.Admin
}

type AuthService interface {
	Login(ctx context.Context, username, password string) (*AuthResult, error)
	Register(ctx context.Context, username, password string) (*AuthResult, error)
	ChangePassword(ctx context.Context, username, currentPassword, newPassword string) error
	Profile(ctx context.Context, username string) (*domain.Admin, error)
}

type PasswordResetService interface {
	RequestReset(ctx context.Context, username string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
}
