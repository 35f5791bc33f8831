package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/danielnymberg/bokabuttle/internal/service"
)

// PublicHandler serves the unauthenticated read side.
type PublicHandler struct {
	Events *service.EventAdmin
}

func NewPublicHandler(events *service.EventAdmin) *PublicHandler {
	return &PublicHandler{Events: events}
}

// Board handles GET /event.  With no open event it answers 200 with a null
// event and an empty session list.
func (h *PublicHandler) Board(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()
	board, err := h.Events.Board(ctx)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, board)
}

// Summary handles GET /event/summary.
func (h *PublicHandler) Summary(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()
	rows, err := h.Events.Summary(ctx)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"volunteers": rows})
}
