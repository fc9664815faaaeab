package domain

import "time"

// RoleAdmin is the only role the site issues today. Role checks compare the
// stored string exactly, so casing matters.
const RoleAdmin = "ADMIN"

// MinPasswordLength is the shortest password accepted on register, reset and
// change.
const MinPasswordLength = 6

// MaxPasswordLength is the longest password, in bytes, that bcrypt can hash.
const MaxPasswordLength = 72

// Admin models an administrator of the site. Username is unique and never
// changes after creation.
type Admin struct {
	ID               string     `json:"id"`
	Username         string     `json:"username"`
	Email            string     `json:"email"`
	PasswordHash     string     `json:"-"`
	Role             string     `json:"role"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	ResetTokenHash   string     `json:"-"`
	ResetTokenExpiry *time.Time `json:"-"`
}

// ValidatePassword enforces the length rules. The upper bound counts bytes,
// not runes.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return ErrWeakPassword
	}
	if len(password) > MaxPasswordLength {
		return ErrPasswordTooLong
	}
	return nil
}
