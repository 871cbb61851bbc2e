package api

import (
	"errors"
	"net/http"

	"github.com/C4T-BuT-S4D/taskpay/internal/errs"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

var statusByKind = []struct {
	err    error
	status int
}{
	{errs.ErrNotFound, http.StatusNotFound},
	{errs.ErrInvalidState, http.StatusConflict},
	{errs.ErrConflict, http.StatusConflict},
	{errs.ErrInsufficientBalance, http.StatusUnprocessableEntity},
	{errs.ErrBelowMinimum, http.StatusUnprocessableEntity},
	{errs.ErrTooSoon, http.StatusTooManyRequests},
	{errs.ErrForbidden, http.StatusForbidden},
	{errs.ErrInvalidArgument, http.StatusBadRequest},
}

// fail turns a component error into a JSON error response.
func fail(c echo.Context, err error) error {
	for _, k := range statusByKind {
		if errors.Is(err, k.err) {
			return c.JSON(k.status, echo.Map{"error": err.Error()})
		}
	}

	logrus.WithFields(logrus.Fields{
		"method": c.Request().Method,
		"path":   c.Path(),
	}).Errorf("request failed: %v", err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}
