package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/lumiereluxe/site-backend/internal/api/middleware"
	"github.com/lumiereluxe/site-backend/internal/core/domain"
)

type overridden struct{ err error }

func (o overridden) Error() string   { return o.err.Error() }
func (o overridden) Unwrap() error   { return o.err }
func (o overridden) HTTPStatus() int { return http.StatusBadRequest }

func handle(t *testing.T, method string, err error) (*httptest.ResponseRecorder, middleware.ErrorResponse) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, "/x", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	NewHTTPErrorHandler(zerolog.Nop())(err, c)

	var body middleware.ErrorResponse
	if method != http.MethodHead {
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("invalid json %q: %v", rec.Body.String(), err)
		}
	}
	return rec, body
}

func TestHTTPErrorHandler_DomainErrors(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{domain.ErrAuthenticationRequired, http.StatusUnauthorized, "authentication_required"},
		{domain.ErrInsufficientRole, http.StatusForbidden, "insufficient_role"},
		{domain.ErrInvalidResetToken, http.StatusBadRequest, "invalid_or_expired_reset_token"},
		{domain.ErrWeakPassword, http.StatusBadRequest, "weak_password"},
		{domain.ErrPasswordTooLong, http.StatusBadRequest, "password_too_long"},
		{domain.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
		{domain.ErrAdminNotFound, http.StatusNotFound, "admin_not_found"},
		{domain.ErrAdminExists, http.StatusConflict, "admin_exists"},
		{domain.ErrRateLimited, http.StatusTooManyRequests, "rate_limited"},
		{fmt.Errorf("wrapped: %w", domain.ErrAdminExists), http.StatusConflict, "admin_exists"},
	}

	for _, c := range cases {
		rec, body := handle(t, http.MethodPost, c.err)
		if rec.Code != c.status || body.Error != c.code || body.Message == "" {
			t.Fatalf("%v: expected %d/%s, got %d/%+v", c.err, c.status, c.code, rec.Code, body)
		}
	}
}

func TestHTTPErrorHandler_StatusOverride(t *testing.T) {
	rec, body := handle(t, http.MethodPost, overridden{domain.ErrInvalidCredentials})
	if rec.Code != http.StatusBadRequest || body.Error != "invalid_credentials" {
		t.Fatalf("expected 400 invalid_credentials, got %d/%+v", rec.Code, body)
	}
}

func TestHTTPErrorHandler_EchoErrors(t *testing.T) {
	rec, body := handle(t, http.MethodPost, echo.NewHTTPError(http.StatusBadRequest, "username is required"))
	if rec.Code != http.StatusBadRequest || body.Error != "invalid_payload" || body.Message != "username is required" {
		t.Fatalf("unexpected: %d/%+v", rec.Code, body)
	}

	rec, body = handle(t, http.MethodGet, echo.ErrNotFound)
	if rec.Code != http.StatusNotFound || body.Error != "not_found" {
		t.Fatalf("unexpected: %d/%+v", rec.Code, body)
	}
}

func TestHTTPErrorHandler_UnknownErrorHidesDetails(t *testing.T) {
	rec, body := handle(t, http.MethodGet, errors.New("mongo: connection refused at 10.0.0.3"))
	if rec.Code != http.StatusInternalServerError || body.Error != "internal_error" {
		t.Fatalf("unexpected: %d/%+v", rec.Code, body)
	}
	if body.Message != "Internal server error" {
		t.Fatalf("internal details leaked: %q", body.Message)
	}
}

func TestHTTPErrorHandler_HeadHasNoBody(t *testing.T) {
	rec, _ := handle(t, http.MethodHead, domain.ErrAdminNotFound)
	if rec.Code != http.StatusNotFound || rec.Body.Len() != 0 {
		t.Fatalf("unexpected HEAD response: %d %q", rec.Code, rec.Body.String())
	}
}
