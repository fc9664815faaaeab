// Package token issues and validates the signed bearer tokens handed out at
// login. Tokens are HS256 JWTs carrying the admin username as subject; nothing
// about them is stored server side.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/lumiereluxe/site-backend/internal/core/domain"
)

// DefaultTTL is the validity window of an issued token.
const DefaultTTL = 24 * time.Hour

// Service is safe for concurrent use: its fields are never written after New.
type Service struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
	parser *jwt.Parser
}

// Option customises a Service.
type Option func(*Service)

// WithClock replaces time.Now, used by tests to move through the expiry window.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New builds a Service. A non-positive ttl falls back to DefaultTTL.
func New(secret, issuer string, ttl time.Duration, opts ...Option) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s := &Service{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(func() time.Time { return s.now() }),
	}
	if issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(issuer))
	}
	s.parser = jwt.NewParser(parserOpts...)
	return s
}

// TTL returns the validity window applied to issued tokens.
func (s *Service) TTL() time.Duration {
	return s.ttl
}

// Issue signs a token for username, expiring exactly TTL after issuance.
func (s *Service) Issue(username string) (string, error) {
	if username == "" {
		return "", errors.New("token: empty username")
	}
	now := s.now().UTC().Truncate(time.Second)
	claims := jwt.RegisteredClaims{
		Subject:   username,
		Issuer:    s.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Validate returns the username embedded in raw. Every failure, whatever the
// cause, is reported as domain.ErrInvalidToken.
func (s *Service) Validate(raw string) (username string, err error) {
	defer func() {
		if r := recover(); r != nil {
			username, err = "", domain.ErrInvalidToken
		}
	}()

	if raw == "" {
		return "", domain.ErrInvalidToken
	}

	var claims jwt.RegisteredClaims
	tkn, err := s.parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil || !tkn.Valid || claims.Subject == "" {
		return "", domain.ErrInvalidToken
	}
	return claims.Subject, nil
}
