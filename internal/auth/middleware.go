package auth

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// ContextKey - тип для ключей контекста.
type ContextKey string

const (
	// OperatorIDKey - ключ ID оператора в контексте запроса.
	OperatorIDKey ContextKey = "operator_id"
	// OperatorLoginKey - ключ логина оператора в контексте запроса.
	OperatorLoginKey ContextKey = "operator_login"
)

// JWTMiddleware пропускает только запросы с действующим токеном оператора.
func JWTMiddleware(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := tokenFromHeader(c)
			if token == "" {
				token = tokenFromCookie(c)
			}

			if token == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing or invalid token")
			}

			claims, err := ValidateToken(token, secret)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			c.Set(string(OperatorIDKey), claims.OperatorID)
			c.Set(string(OperatorLoginKey), claims.Login)

			return next(c)
		}
	}
}

// tokenFromHeader извлекает токен из заголовка "Authorization: Bearer <token>".
func tokenFromHeader(c echo.Context) string {
	authHeader := c.Request().Header.Get("Authorization")
	scheme, token, ok := strings.Cut(authHeader, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") || token == "" || strings.Contains(token, " ") {
		return ""
	}
	return token
}

func tokenFromCookie(c echo.Context) string {
	cookie, err := c.Cookie("Authorization")
	if err != nil {
		return ""
	}
	return cookie.Value
}

// GetOperatorIDFromContext извлекает ID оператора из контекста.
func GetOperatorIDFromContext(c echo.Context) (uuid.UUID, error) {
	id, ok := c.Get(string(OperatorIDKey)).(uuid.UUID)
	if !ok {
		return uuid.Nil, echo.NewHTTPError(http.StatusUnauthorized, "operator not found in context")
	}
	return id, nil
}

// GetOperatorLoginFromContext извлекает логин оператора из контекста.
func GetOperatorLoginFromContext(c echo.Context) (string, error) {
	login, ok := c.Get(string(OperatorLoginKey)).(string)
	if !ok {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "operator not found in context")
	}
	return login, nil
}
