package ports

import (
	"context"
	"time"
)

// TokenIssuer signs and validates bearer tokens.
type TokenIssuer interface {
	Issue(username string) (string, error)
	Validate(token string) (string, error)
}

// PasswordHasher is the one-way password primitive.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
}

// ResetMail is a password reset notification waiting to be delivered.
type ResetMail struct {
	Username string
	To       string
	Token    string
	Expires  time.Time
}

// ResetMailer hands a reset mail to whatever delivers it.
type ResetMailer interface {
	SendReset(ctx context.Context, mail ResetMail) error
}

// AttemptLimiter throttles credential endpoints per key.
type AttemptLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}
