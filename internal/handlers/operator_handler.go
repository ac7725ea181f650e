package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/agamariel/markstation/internal/auth"
	"github.com/agamariel/markstation/internal/models"
	"github.com/agamariel/markstation/internal/services"
	"github.com/agamariel/markstation/internal/storage"
)

// OperatorService - учётные записи операторов.
type OperatorService interface {
	Register(ctx context.Context, login, password string) (*models.Operator, string, error)
	Login(ctx context.Context, login, password string) (*models.Operator, string, error)
}

// OperatorHandler обрабатывает вход и регистрацию операторов.
type OperatorHandler struct {
	operatorService OperatorService
	tokenTTL        time.Duration
}

// NewOperatorHandler создаёт новый экземпляр OperatorHandler.
// tokenTTL задаёт срок жизни cookie с токеном.
func NewOperatorHandler(operatorService OperatorService, tokenTTL time.Duration) *OperatorHandler {
	return &OperatorHandler{
		operatorService: operatorService,
		tokenTTL:        tokenTTL,
	}
}

// Register обрабатывает POST /api/operator/register. Доступен только вошедшему оператору.
func (h *OperatorHandler) Register(c echo.Context) error {
	registrar, err := auth.GetOperatorLoginFromContext(c)
	if err != nil {
		return err
	}

	var req models.RegisterRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request format")
	}

	operator, _, err := h.operatorService.Register(c.Request().Context(), req.Login, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrEmptyCredentials) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		if errors.Is(err, storage.ErrLoginExists) {
			return echo.NewHTTPError(http.StatusConflict, "login already exists")
		}
		c.Logger().Errorf("failed to register operator: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
	c.Logger().Infof("operator %s registered by %s", operator.Login, registrar)

	return c.JSON(http.StatusOK, map[string]interface{}{
		"operator_id": operator.ID,
		"login":       operator.Login,
	})
}

// Login обрабатывает POST /api/operator/login.
func (h *OperatorHandler) Login(c echo.Context) error {
	var req models.LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request format")
	}

	operator, token, err := h.operatorService.Login(c.Request().Context(), req.Login, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrEmptyCredentials) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		if errors.Is(err, services.ErrInvalidCredentials) {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid login or password")
		}
		c.Logger().Errorf("failed to login operator: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}

	h.setAuthToken(c, token)

	return c.JSON(http.StatusOK, map[string]interface{}{
		"operator_id": operator.ID,
		"login":       operator.Login,
	})
}

// setAuthToken устанавливает токен в cookie и заголовок ответа.
func (h *OperatorHandler) setAuthToken(c echo.Context, token string) {
	ttl := h.tokenTTL
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	c.SetCookie(&http.Cookie{
		Name:     "Authorization",
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(ttl.Seconds()),
	})
	c.Response().Header().Set("Authorization", "Bearer "+token)
}
