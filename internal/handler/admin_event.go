package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/danielnymberg/bokabuttle/internal/service"
)

// AdminHandler serves the event, session and account management routes.
// Every route sits behind RequireRole(ADMIN).
type AdminHandler struct {
	Svc *service.EventAdmin
}

func NewAdminHandler(svc *service.EventAdmin) *AdminHandler { return &AdminHandler{Svc: svc} }

type createEventReq struct {
	Name      string `json:"name"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// CreateEvent handles POST /admin/event.
func (h *AdminHandler) CreateEvent(c echo.Context) error {
	var req createEventReq
	if err := c.Bind(&req); err != nil {
		return writeError(c, badBody())
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	id, err := h.Svc.CreateEvent(ctx, req.Name, req.StartDate, req.EndDate)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"id": id})
}

type addSessionReq struct {
	Date            string  `json:"date"`
	StartTime       string  `json:"start_time"`
	EndTime         string  `json:"end_time"`
	Activity        *string `json:"activity"`
	PrimaryCapacity *int    `json:"primary_capacity"`
	ReserveCapacity *int    `json:"reserve_capacity"`
}

// AddSession handles POST /admin/event/:id/session.
func (h *AdminHandler) AddSession(c echo.Context) error {
	eventID, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	var req addSessionReq
	if err := c.Bind(&req); err != nil {
		return writeError(c, badBody())
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	id, err := h.Svc.AddSession(ctx, eventID, service.NewSession{
		Date:            req.Date,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		Activity:        req.Activity,
		PrimaryCapacity: req.PrimaryCapacity,
		ReserveCapacity: req.ReserveCapacity,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"id": id})
}

type generateReq struct {
	IntervalHours   int  `json:"interval_hours"`
	PrimaryCapacity *int `json:"primary_capacity"`
	ReserveCapacity *int `json:"reserve_capacity"`
}

// GenerateSessions handles POST /admin/event/:id/generate.  The body is
// optional; defaults give four six-hour sessions a day with 2+2 slots.
func (h *AdminHandler) GenerateSessions(c echo.Context) error {
	eventID, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	var req generateReq
	if err := c.Bind(&req); err != nil {
		return writeError(c, badBody())
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	n, err := h.Svc.GenerateSessions(ctx, eventID, service.GenerateOptions{
		IntervalHours:   req.IntervalHours,
		PrimaryCapacity: req.PrimaryCapacity,
		ReserveCapacity: req.ReserveCapacity,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"created": n})
}

type updateEventReq struct {
	Name   *string `json:"name"`
	IsOpen *bool   `json:"is_open"`
	Open   *bool   `json:"open"`
}

// UpdateEvent handles PUT /admin/event/:id: open/close and/or rename.
func (h *AdminHandler) UpdateEvent(c echo.Context) error {
	eventID, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	var req updateEventReq
	if err := c.Bind(&req); err != nil {
		return writeError(c, badBody())
	}
	open := req.IsOpen
	if open == nil {
		open = req.Open
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	if err := h.Svc.Update(ctx, eventID, service.EventPatch{Name: req.Name, Open: open}); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}

// DeleteEvent handles DELETE /admin/event/:id.
func (h *AdminHandler) DeleteEvent(c echo.Context) error {
	eventID, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	if err := h.Svc.DeleteEvent(ctx, eventID); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}

// ListEvents handles GET /admin/events.
func (h *AdminHandler) ListEvents(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()
	events, err := h.Svc.ListEvents(ctx)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, events)
}

type createAdminReq struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// CreateAdmin handles POST /admin/admins.
func (h *AdminHandler) CreateAdmin(c echo.Context) error {
	var req createAdminReq
	if err := c.Bind(&req); err != nil {
		return writeError(c, badBody())
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	id, err := h.Svc.CreateAdmin(ctx, req.Name, req.Email, req.Password)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"ok": true, "id": id})
}

// ListAdmins handles GET /admin/admins.
func (h *AdminHandler) ListAdmins(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()
	admins, err := h.Svc.ListAdmins(ctx)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, admins)
}
