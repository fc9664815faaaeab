package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/lumiereluxe/site-backend/internal/api/access"
	"github.com/lumiereluxe/site-backend/internal/core/domain"
	"github.com/lumiereluxe/site-backend/internal/pkg/token"
)

const testOrigin = "http://localhost:5173"

type stubLoader struct {
	admins map[string]*domain.Admin
	err    error
	panic  bool
	calls  int
}

func (s *stubLoader) FindByUsername(_ context.Context, username string) (*domain.Admin, error) {
	s.calls++
	if s.panic {
		panic("store exploded")
	}
	if s.err != nil {
		return nil, s.err
	}
	a, ok := s.admins[username]
	if !ok {
		return nil, domain.ErrAdminNotFound
	}
	return a, nil
}

type panicIssuer struct{}

func (panicIssuer) Issue(string) (string, error)    { panic("issue called") }
func (panicIssuer) Validate(string) (string, error) { panic("validate called") }

var errStoreDown = errors.New("store down")

func newTestTokens() *token.Service {
	return token.New("middleware-test-secret", "site", time.Hour)
}

func newLoader() *stubLoader {
	return &stubLoader{admins: map[string]*domain.Admin{
		"admin":  {Username: "admin", Role: domain.RoleAdmin},
		"viewer": {Username: "viewer", Role: "VIEWER"},
		"lower":  {Username: "lower", Role: "admin"},
	}}
}

// newAccessServer wires CORS, Auth and Authorize the way the router does and
// registers an echo handler reporting the principal it saw.
func newAccessServer(tokens *token.Service, loader *stubLoader) *echo.Echo {
	table := access.DefaultTable()
	cors := NewCORSPolicy([]string{testOrigin})

	e := echo.New()
	e.Use(CORS(cors))
	e.Use(Auth(table, tokens, loader, zerolog.Nop()))
	e.Use(Authorize(table, NewResponder(cors)))

	whoami := func(c echo.Context) error {
		p, ok := domain.PrincipalFromContext(c.Request().Context())
		if !ok {
			return c.String(http.StatusOK, "anonymous")
		}
		return c.String(http.StatusOK, p.Username)
	}
	e.POST("/api/auth/login", whoami)
	e.GET("/api/auth/me", whoami)
	e.GET("/api/admin/profile", whoami)
	return e
}

func serve(e *echo.Echo, method, path, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set(echo.HeaderOrigin, testOrigin)
	if bearer != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}
