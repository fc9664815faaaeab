package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/lumiereluxe/site-backend/internal/core/domain"
)

// ctxPrincipal returns the principal the Auth middleware placed on the
// request context. Handlers behind Authorize always have one; the check
// guards routes registered without it.
func ctxPrincipal(c echo.Context) (domain.Principal, error) {
	p, ok := domain.PrincipalFromContext(c.Request().Context())
	if !ok || p.Username == "" {
		return domain.Principal{}, domain.ErrAuthenticationRequired
	}
	return p, nil
}

// statusError keeps the domain error for the error code but overrides the
// HTTP status the error handler picks for it.
type statusError struct {
	status int
	err    error
}

func withStatus(status int, err error) error {
	return &statusError{status: status, err: err}
}

func (e *statusError) Error() string   { return e.err.Error() }
func (e *statusError) Unwrap() error   { return e.err }
func (e *statusError) HTTPStatus() int { return e.status }
