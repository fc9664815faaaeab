package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/lumiereluxe/site-backend/internal/api/access"
	"github.com/lumiereluxe/site-backend/internal/api/metrics"
	"github.com/lumiereluxe/site-backend/internal/core/domain"
)

// Authorize enforces the requirement table.Classify assigns to each request.
// It must run after Auth. Denied requests never reach the handler.
func Authorize(table *access.Table, responder *Responder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			requirement := table.Classify(req.URL.Path, req.Method)
			if requirement.Kind == access.KindPublic {
				return next(c)
			}

			principal, ok := domain.PrincipalFromContext(req.Context())
			if !ok {
				metrics.DenialsTotal.WithLabelValues(CodeAuthenticationRequired).Inc()
				return responder.Unauthorized(c)
			}

			if requirement.Kind == access.KindRole && !principal.HasRole(requirement.Role) {
				metrics.DenialsTotal.WithLabelValues(CodeInsufficientRole).Inc()
				return responder.Forbidden(c)
			}

			return next(c)
		}
	}
}
