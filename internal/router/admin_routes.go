package router

import (
	"github.com/labstack/echo/v4"

	"github.com/danielnymberg/bokabuttle/internal/auth"
	"github.com/danielnymberg/bokabuttle/internal/middleware"
)

// RegisterAdmin registers event, session, slot-override and account
// management.  Every route requires the ADMIN role, and every write purges
// the response cache once it succeeds.
func RegisterAdmin(e *echo.Echo, d Deps) {
	g := e.Group("/admin", middleware.RequireRole(auth.RoleAdmin))
	purge := middleware.InvalidateCache(d.Config.Cache, d.Redis)

	g.GET("/events", d.Admin.ListEvents)
	g.POST("/event", d.Admin.CreateEvent, purge)
	g.PUT("/event/:id", d.Admin.UpdateEvent, purge)
	g.DELETE("/event/:id", d.Admin.DeleteEvent, purge)
	g.POST("/event/:id/session", d.Admin.AddSession, purge)
	g.POST("/event/:id/generate", d.Admin.GenerateSessions, purge)

	g.PUT("/session/:id/book", d.Booking.Override, purge)

	g.GET("/admins", d.Admin.ListAdmins)
	g.POST("/admins", d.Admin.CreateAdmin)
}
