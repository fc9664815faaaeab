package api

import (
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/lumiereluxe/site-backend/internal/api/access"
	"github.com/lumiereluxe/site-backend/internal/api/handler"
	"github.com/lumiereluxe/site-backend/internal/api/middleware"
	"github.com/lumiereluxe/site-backend/internal/core/domain"
	"github.com/lumiereluxe/site-backend/internal/core/ports"
)

// Deps are the collaborators the router wires into handlers and middleware.
type Deps struct {
	Admins  middleware.PrincipalLoader
	Tokens  ports.TokenIssuer
	Auth    ports.AuthService
	Resets  ports.PasswordResetService
	Limiter ports.AttemptLimiter // optional; nil disables throttling

	// DB and Redis back the readiness probe, which is only registered when
	// both are set.
	DB    *mongo.Database
	Redis *redis.Client

	CORSOrigins []string
	TrustProxy  bool
	Table       *access.Table // defaults to access.DefaultTable()
	Logger      zerolog.Logger
}

type route struct {
	method     string
	path       string
	handler    echo.HandlerFunc
	requires   access.Requirement
	middleware []echo.MiddlewareFunc
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	table := d.Table
	if table == nil {
		table = access.DefaultTable()
	}
	cors := middleware.NewCORSPolicy(d.CORSOrigins)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Logger)
	if d.TrustProxy {
		e.IPExtractor = echo.ExtractIPFromXFFHeader()
	} else {
		e.IPExtractor = echo.ExtractIPDirect()
	}

	// --- Global middleware ---
	e.Pre(echomiddleware.RemoveTrailingSlash())
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(middleware.RequestLogger(d.Logger))
	e.Use(middleware.Metrics())
	e.Use(middleware.CORS(cors))
	e.Use(echomiddleware.BodyLimit("64K"))
	e.Use(middleware.Auth(table, d.Tokens, d.Admins, d.Logger))
	e.Use(middleware.Authorize(table, middleware.NewResponder(cors)))

	// --- Dependencies ---
	authHandler := handler.NewAuthHandler(d.Auth, d.Resets, d.Logger)
	adminHandler := handler.NewAdminHandler(d.Auth)

	throttle := func(scope string) []echo.MiddlewareFunc {
		if d.Limiter == nil {
			return nil
		}
		return []echo.MiddlewareFunc{middleware.RateLimit(d.Limiter, scope, d.Logger)}
	}

	for _, r := range apiRoutes(authHandler, adminHandler, throttle) {
		e.Add(r.method, r.path, r.handler, r.middleware...)
	}

	// --- Health probes (no auth required) ---
	e.GET("/health", handler.NewHealthHandler().Liveness)
	if d.DB != nil && d.Redis != nil {
		e.GET("/health/ready", handler.NewHealthDependenciesHandler(d.DB, d.Redis).Readiness)
	}

	// --- Operations ---
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

// apiRoutes declares every API route together with the access requirement
// it is written for. The router test checks the declarations against the
// access table.
func apiRoutes(auth *handler.AuthHandler, admin *handler.AdminHandler, throttle func(scope string) []echo.MiddlewareFunc) []route {
	adminOnly := access.Role(domain.RoleAdmin)
	return []route{
		{method: "POST", path: "/api/auth/login", handler: auth.Login, requires: access.Public, middleware: throttle("login")},
		{method: "POST", path: "/api/auth/register", handler: auth.Register, requires: access.Public, middleware: throttle("register")},
		{method: "POST", path: "/api/auth/forgot-password", handler: auth.ForgotPassword, requires: access.Public, middleware: throttle("forgot-password")},
		{method: "POST", path: "/api/auth/reset-password", handler: auth.ResetPassword, requires: access.Public, middleware: throttle("reset-password")},
		{method: "POST", path: "/api/auth/change-password", handler: auth.ChangePassword, requires: adminOnly},
		{method: "GET", path: "/api/auth/me", handler: auth.Me, requires: access.Authenticated},
		{method: "GET", path: "/api/admin/profile", handler: admin.Profile, requires: adminOnly},
	}
}
