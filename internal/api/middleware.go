package api

import (
	"net/http"
	"strings"

	"github.com/C4T-BuT-S4D/taskpay/internal/authutil"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

const (
	ctxUserID        = "user_id"
	adminTokenHeader = "X-Admin-Token"
)

func (s *Service) RequireUser() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "token is required"})
			}

			userID, err := s.tokens.Parse(token)
			if err != nil {
				logrus.Debugf("rejecting token: %v", err)
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}

			c.Set(ctxUserID, userID)
			return next(c)
		}
	}
}

func (s *Service) RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !authutil.IsAdminToken(s.config.AdminToken, c.Request().Header.Get(adminTokenHeader)) {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "admin token is required"})
			}
			return next(c)
		}
	}
}

func userID(c echo.Context) string {
	return c.Get(ctxUserID).(string)
}
