package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/lumiereluxe/site-backend/internal/core/ports"
)

type AdminHandler struct {
	authService ports.AuthService
}

func NewAdminHandler(authService ports.AuthService) *AdminHandler {
	return &AdminHandler{authService: authService}
}

type profileResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// Profile returns the caller's admin profile.
//
// @Summary      Admin profile
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  profileResponse
// @Failure      401  {object}  middleware.ErrorResponse
// @Failure      403  {object}  middleware.ErrorResponse
// @Failure      404  {object}  middleware.ErrorResponse
// @Router       /api/admin/profile [get]
func (h *AdminHandler) Profile(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	admin, err := h.authService.Profile(c.Request().Context(), p.Username)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, profileResponse{
		ID:        admin.ID,
		Username:  admin.Username,
		Email:     admin.Email,
		Role:      admin.Role,
		CreatedAt: admin.CreatedAt,
	})
}
