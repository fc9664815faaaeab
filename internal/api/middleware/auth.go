package middleware

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/lumiereluxe/site-backend/internal/api/access"
	"github.com/lumiereluxe/site-backend/internal/api/metrics"
	"github.com/lumiereluxe/site-backend/internal/core/domain"
	"github.com/lumiereluxe/site-backend/internal/core/ports"
)

const bearerPrefix = "Bearer "

// PrincipalLoader resolves a token subject to a stored admin.
type PrincipalLoader interface {
	FindByUsername(ctx context.Context, username string) (*domain.Admin, error)
}

// Auth resolves the bearer token of protected requests into a principal on
// the request context. It never rejects a request: a missing or bad token
// just leaves the request anonymous, and Authorize decides what to do.
func Auth(table *access.Table, tokens ports.TokenIssuer, admins PrincipalLoader, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if table.Visibility(req.URL.Path, req.Method) == access.Open {
				return next(c)
			}

			principal, err := resolvePrincipal(req.Context(), req.Header.Get(echo.HeaderAuthorization), tokens, admins)
			if err != nil {
				log.Debug().
					Err(err).
					Str("path", req.URL.Path).
					Msg("request left unauthenticated")
				return next(c)
			}

			c.SetRequest(req.WithContext(domain.WithPrincipal(req.Context(), principal)))
			return next(c)
		}
	}
}

func resolvePrincipal(ctx context.Context, header string, tokens ports.TokenIssuer, admins PrincipalLoader) (p domain.Principal, err error) {
	defer func() {
		if r := recover(); r != nil {
			metrics.TokenValidationsTotal.WithLabelValues("error").Inc()
			err = fmt.Errorf("resolve principal: %v", r)
		}
	}()

	if header == "" || !strings.HasPrefix(header, bearerPrefix) {
		return domain.Principal{}, domain.ErrInvalidCredentialFormat
	}
	raw := strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))

	username, err := tokens.Validate(raw)
	if err != nil {
		metrics.TokenValidationsTotal.WithLabelValues("invalid").Inc()
		return domain.Principal{}, err
	}

	admin, err := admins.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrAdminNotFound) {
			metrics.TokenValidationsTotal.WithLabelValues("unknown_principal").Inc()
			return domain.Principal{}, domain.ErrInvalidToken
		}
		metrics.TokenValidationsTotal.WithLabelValues("error").Inc()
		return domain.Principal{}, fmt.Errorf("load principal: %w", err)
	}

	metrics.TokenValidationsTotal.WithLabelValues("valid").Inc()
	return domain.Principal{Username: admin.Username, Role: admin.Role}, nil
}
