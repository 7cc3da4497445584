package account

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/meddx/meddx/internal/platform/auth"
	"github.com/meddx/meddx/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/auth/register", h.Register)
	api.POST("/auth/login", h.Login)
	api.GET("/auth/me", h.Me, auth.RequireSession())
	api.POST("/auth/logout", h.Logout, auth.RequireSession())

	admin := api.Group("/admin", auth.RequireRole(auth.RoleAdmin))
	admin.GET("/accounts", h.ListAccounts)
}

type registerRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	a, err := h.svc.Register(c.Request().Context(), req.Username, req.Password, req.DisplayName)
	if err != nil {
		return accountError(err)
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "username and password are required")
	}
	res, err := h.svc.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return accountError(err)
	}
	return c.JSON(http.StatusOK, res)
}

// Me returns the session of the caller.
func (h *Handler) Me(c echo.Context) error {
	return c.JSON(http.StatusOK, auth.SessionFromContext(c.Request().Context()))
}

// Logout revokes the caller's token.
func (h *Handler) Logout(c echo.Context) error {
	if err := h.svc.Logout(auth.SessionFromContext(c.Request().Context())); err != nil {
		return accountError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListAccounts(c echo.Context) error {
	accounts, err := h.svc.List(c.Request().Context())
	if err != nil {
		return accountError(err)
	}
	return c.JSON(http.StatusOK, pagination.Page(accounts, pagination.FromContext(c), c.Path()))
}

func accountError(err error) error {
	switch {
	case errors.Is(err, ErrDuplicateUsername):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalidCredentials):
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	case errors.Is(err, ErrInvalidInput):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, "account store unavailable")
}
