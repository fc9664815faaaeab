package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/lumiereluxe/site-backend/internal/api/metrics"
	"github.com/lumiereluxe/site-backend/internal/core/domain"
	"github.com/lumiereluxe/site-backend/internal/core/ports"
)

// ForgotPasswordMessage is returned for every accepted forgot-password
// request, whether or not the username exists.
const ForgotPasswordMessage = "If the username exists, a password reset link has been sent"

type AuthHandler struct {
	authService  ports.AuthService
	resetService ports.PasswordResetService
	log          zerolog.Logger
}

func NewAuthHandler(authService ports.AuthService, resetService ports.PasswordResetService, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, resetService: resetService, log: log}
}

type credentialsRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required"`
}

type forgotPasswordRequest struct {
	Username string `json:"username" validate:"required,max=64"`
}

type resetPasswordRequest struct {
	Token       string `json:"token" validate:"required,max=128"`
	NewPassword string `json:"newPassword"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword"`
}

type authResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

type messageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type principalResponse struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

func toAuthResponse(res *ports.AuthResult) authResponse {
	return authResponse{
		Token:    res.Token,
		Username: res.Admin.Username,
		Email:    res.Admin.Email,
		Role:     res.Admin.Role,
	}
}

// Login authenticates an admin and returns a bearer token.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      credentialsRequest  true  "Login credentials"
// @Success      200   {object}  authResponse
// @Failure      400   {object}  middleware.ErrorResponse
// @Failure      401   {object}  middleware.ErrorResponse
// @Failure      429   {object}  middleware.ErrorResponse
// @Router       /api/auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req credentialsRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	res, err := h.authService.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			metrics.LoginsTotal.WithLabelValues("invalid_credentials").Inc()
		} else {
			metrics.LoginsTotal.WithLabelValues("error").Inc()
		}
		return err
	}

	metrics.LoginsTotal.WithLabelValues("success").Inc()
	return c.JSON(http.StatusOK, toAuthResponse(res))
}

// Register creates an admin account and returns a bearer token for it.
//
// @Summary      Register an admin
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      credentialsRequest  true  "New admin credentials"
// @Success      200   {object}  authResponse
// @Failure      400   {object}  middleware.ErrorResponse
// @Failure      409   {object}  middleware.ErrorResponse
// @Router       /api/auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req credentialsRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	res, err := h.authService.Register(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			return withStatus(http.StatusBadRequest, err)
		}
		return err
	}

	return c.JSON(http.StatusOK, toAuthResponse(res))
}

// ForgotPassword starts a password reset. The response is the same whether
// or not the username exists.
//
// @Summary      Request a password reset link
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      forgotPasswordRequest  true  "Username"
// @Success      200   {object}  messageResponse
// @Failure      400   {object}  middleware.ErrorResponse
// @Failure      429   {object}  middleware.ErrorResponse
// @Router       /api/auth/forgot-password [post]
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req forgotPasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	if err := h.resetService.RequestReset(c.Request().Context(), req.Username); err != nil {
		metrics.PasswordResetsTotal.WithLabelValues("request", "error").Inc()
		h.log.Error().Err(err).Msg("password reset request failed")
	} else {
		metrics.PasswordResetsTotal.WithLabelValues("request", "accepted").Inc()
	}

	return c.JSON(http.StatusOK, messageResponse{Success: true, Message: ForgotPasswordMessage})
}

// ResetPassword sets a new password using a reset token.
//
// @Summary      Reset a password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      resetPasswordRequest  true  "Reset token and new password"
// @Success      200   {object}  messageResponse
// @Failure      400   {object}  middleware.ErrorResponse
// @Failure      429   {object}  middleware.ErrorResponse
// @Router       /api/auth/reset-password [post]
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req resetPasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	if err := h.resetService.ResetPassword(c.Request().Context(), req.Token, req.NewPassword); err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidResetToken):
			metrics.PasswordResetsTotal.WithLabelValues("reset", "invalid_token").Inc()
		case errors.Is(err, domain.ErrWeakPassword), errors.Is(err, domain.ErrPasswordTooLong):
			metrics.PasswordResetsTotal.WithLabelValues("reset", "weak_password").Inc()
		default:
			metrics.PasswordResetsTotal.WithLabelValues("reset", "error").Inc()
		}
		return err
	}

	metrics.PasswordResetsTotal.WithLabelValues("reset", "success").Inc()
	return c.JSON(http.StatusOK, messageResponse{Success: true, Message: "Password reset successfully"})
}

// ChangePassword changes the caller's password.
//
// @Summary      Change password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      changePasswordRequest  true  "Current and new password"
// @Success      200   {object}  messageResponse
// @Failure      400   {object}  middleware.ErrorResponse
// @Failure      401   {object}  middleware.ErrorResponse
// @Failure      403   {object}  middleware.ErrorResponse
// @Router       /api/auth/change-password [post]
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	var req changePasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	err = h.authService.ChangePassword(c.Request().Context(), p.Username, req.CurrentPassword, req.NewPassword)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			return withStatus(http.StatusBadRequest, err)
		}
		return err
	}

	return c.JSON(http.StatusOK, messageResponse{Success: true, Message: "Password changed successfully"})
}

// Me returns the authenticated principal.
//
// @Summary      Current principal
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  principalResponse
// @Failure      401  {object}  middleware.ErrorResponse
// @Router       /api/auth/me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, principalResponse{Username: p.Username, Role: p.Role})
}
