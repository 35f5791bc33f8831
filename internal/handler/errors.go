package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/danielnymberg/bokabuttle/internal/service"
)

// dbTimeout bounds every storage round trip a handler starts.
const dbTimeout = 5 * time.Second

func withTimeout(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), dbTimeout)
}

// writeError maps the service error taxonomy onto HTTP responses.  Internal
// causes are logged, never returned.
func writeError(c echo.Context, err error) error {
	if ce, ok := service.IsConflict(err); ok {
		body := echo.Map{"error": ce.Error()}
		if ce.TakenBy != "" {
			body["taken_by"] = ce.TakenBy
		}
		return c.JSON(http.StatusConflict, body)
	}
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": ve.Msg, "field": ve.Field})
	case service.IsForbidden(err):
		return c.JSON(http.StatusForbidden, echo.Map{"error": err.Error()})
	case service.IsNotFound(err):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case service.IsAuth(err):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthenticated"})
	}
	slog.Error("request failed",
		"method", c.Request().Method,
		"path", c.Path(),
		"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
		"err", err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

func badBody() error {
	return &service.ValidationError{Field: "body", Msg: "invalid JSON body"}
}

// pathID parses a positive numeric path parameter.
func pathID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, &service.ValidationError{Field: name, Msg: "must be a positive integer"}
	}
	return id, nil
}
