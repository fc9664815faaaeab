package middleware

import (
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/lumiereluxe/site-backend/internal/core/domain"
	"github.com/lumiereluxe/site-backend/internal/core/ports"
)

// RateLimit throttles a route per client IP. scope separates the counters of
// different routes. Limiter failures let the request through.
func RateLimit(limiter ports.AttemptLimiter, scope string, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			allowed, err := limiter.Allow(c.Request().Context(), scope+":"+c.RealIP())
			if err != nil {
				log.Warn().Err(err).Str("scope", scope).Msg("rate limiter unavailable")
			}
			if !allowed {
				return domain.ErrRateLimited
			}
			return next(c)
		}
	}
}
