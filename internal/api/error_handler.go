package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/lumiereluxe/site-backend/internal/api/middleware"
	"github.com/lumiereluxe/site-backend/internal/core/domain"
)

// statusCoder lets a handler override the status chosen for a domain error
// while keeping its error code.
type statusCoder interface {
	HTTPStatus() int
}

type apiError struct {
	status  int
	code    string
	message string
}

// domainErrors maps known domain errors to deterministic responses.
var domainErrors = []struct {
	err error
	apiError
}{
	{domain.ErrAuthenticationRequired, apiError{http.StatusUnauthorized, middleware.CodeAuthenticationRequired, middleware.MessageAuthenticationRequired}},
	{domain.ErrInvalidToken, apiError{http.StatusUnauthorized, middleware.CodeAuthenticationRequired, middleware.MessageAuthenticationRequired}},
	{domain.ErrInvalidCredentialFormat, apiError{http.StatusUnauthorized, middleware.CodeAuthenticationRequired, middleware.MessageAuthenticationRequired}},
	{domain.ErrInsufficientRole, apiError{http.StatusForbidden, middleware.CodeInsufficientRole, middleware.MessageAccessDenied}},
	{domain.ErrInvalidResetToken, apiError{http.StatusBadRequest, "invalid_or_expired_reset_token", "Invalid or expired reset token"}},
	{domain.ErrWeakPassword, apiError{http.StatusBadRequest, "weak_password", "New password is required and must be at least 6 characters long"}},
	{domain.ErrPasswordTooLong, apiError{http.StatusBadRequest, "password_too_long", "New password must be at most 72 bytes long"}},
	{domain.ErrInvalidCredentials, apiError{http.StatusUnauthorized, "invalid_credentials", "Invalid username or password"}},
	{domain.ErrAdminNotFound, apiError{http.StatusNotFound, "admin_not_found", "Admin not found"}},
	{domain.ErrAdminExists, apiError{http.StatusConflict, "admin_exists", "Username already exists"}},
	{domain.ErrRateLimited, apiError{http.StatusTooManyRequests, "rate_limited", "Too many attempts, try again later"}},
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps known domain errors to their HTTP status and a stable error code.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders a consistent JSON envelope: {"error": "<code>", "message": "<text>"}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		res := resolveError(err, log, c)
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(res.status)
			return
		}
		_ = c.JSON(res.status, middleware.ErrorResponse{Error: res.code, Message: res.message})
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) apiError {
	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return apiError{status: he.Code, code: codeForStatus(he.Code), message: fmt.Sprintf("%v", he.Message)}
	}

	for _, m := range domainErrors {
		if errors.Is(err, m.err) {
			res := m.apiError
			var sc statusCoder
			if errors.As(err, &sc) {
				res.status = sc.HTTPStatus()
			}
			return res
		}
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return apiError{status: http.StatusInternalServerError, code: "internal_error", message: "Internal server error"}
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "invalid_payload"
	case http.StatusUnauthorized:
		return middleware.CodeAuthenticationRequired
	case http.StatusForbidden:
		return middleware.CodeInsufficientRole
	}
	text := http.StatusText(status)
	if text == "" {
		return "error"
	}
	return strings.ToLower(strings.ReplaceAll(text, " ", "_"))
}
