package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ErrorResponse is the JSON envelope of every API error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

const (
	CodeAuthenticationRequired = "authentication_required"
	CodeInsufficientRole       = "insufficient_role"

	MessageAuthenticationRequired = "Authentication required"
	MessageAccessDenied           = "Access denied"
)

// Responder writes the 401 and 403 responses of the access layer.
type Responder struct {
	cors *CORSPolicy
}

func NewResponder(cors *CORSPolicy) *Responder {
	return &Responder{cors: cors}
}

// Unauthorized answers a protected request that arrived without a usable
// principal.
func (r *Responder) Unauthorized(c echo.Context) error {
	return r.write(c, http.StatusUnauthorized, ErrorResponse{
		Error:   CodeAuthenticationRequired,
		Message: MessageAuthenticationRequired,
	})
}

// Forbidden answers a request whose principal lacks the required role.
func (r *Responder) Forbidden(c echo.Context) error {
	return r.write(c, http.StatusForbidden, ErrorResponse{
		Error:   CodeInsufficientRole,
		Message: MessageAccessDenied,
	})
}

func (r *Responder) write(c echo.Context, status int, body ErrorResponse) error {
	if r.cors != nil {
		r.cors.Apply(c.Response().Header(), c.Request().Header.Get(echo.HeaderOrigin))
	}
	return c.JSON(status, body)
}
