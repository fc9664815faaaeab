package domain

import "errors"

// Authentication and authorization failures.
var (
	ErrInvalidCredentialFormat = errors.New("missing or malformed bearer credential")
	ErrInvalidToken            = errors.New("invalid token")
	ErrAuthenticationRequired  = errors.New("authentication required")
	ErrInsufficientRole        = errors.New("insufficient role")
)

// Credential and reset-flow failures.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidResetToken  = errors.New("invalid or expired reset token")
	ErrWeakPassword       = errors.New("password must be at least 6 characters long")
	ErrPasswordTooLong    = errors.New("password must be at most 72 bytes long")
	ErrAdminNotFound      = errors.New("admin not found")
	ErrAdminExists        = errors.New("admin already exists")
	ErrRateLimited        = errors.New("too many attempts")
)
