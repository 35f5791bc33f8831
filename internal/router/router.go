// Package router registers the HTTP routes and the middleware each group
// runs behind.
package router

import (
	"database/sql"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/danielnymberg/bokabuttle/internal/auth"
	"github.com/danielnymberg/bokabuttle/internal/config"
	"github.com/danielnymberg/bokabuttle/internal/handler"
	"github.com/danielnymberg/bokabuttle/internal/metrics"
	"github.com/danielnymberg/bokabuttle/internal/middleware"
)

// Deps is everything RegisterRoutes wires together.  DB, Redis and Metrics
// may be nil; the corresponding features degrade to pass-through.
type Deps struct {
	Config  config.Config
	DB      *sql.DB
	Redis   *redis.Client
	Metrics *metrics.Metrics
	Tokens  *auth.TokenIssuer

	Public  *handler.PublicHandler
	Booking *handler.BookingHandler
	Auth    *handler.AuthHandler
	Admin   *handler.AdminHandler
}

// RegisterRoutes installs the session middleware and every route group.
func RegisterRoutes(e *echo.Echo, d Deps) {
	e.Use(middleware.SessionAuth(d.Tokens, d.Config.CookieName))
	e.Use(middleware.RequireJSON())

	e.GET("/healthz", handler.Health(d.DB, d.Redis))
	if d.Config.MetricsEnabled && d.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(d.Metrics.Handler()))
	}

	RegisterPublic(e, d)
	RegisterAuth(e, d)
	RegisterAdmin(e, d)
}

// RegisterPublic registers the board, the summary and the volunteer claim.
// Reads go through the response cache; a successful claim purges it.
func RegisterPublic(e *echo.Echo, d Deps) {
	cache := middleware.NewRedisCache(d.Config.Cache, d.Redis, d.Metrics)
	e.GET("/event", d.Public.Board, cache)
	e.GET("/event/summary", d.Public.Summary, cache)

	e.PUT("/session/:id/book", d.Booking.Claim,
		middleware.NewTokenBucket(d.Config.RateLimit, d.Redis, "claim", d.Metrics),
		middleware.InvalidateCache(d.Config.Cache, d.Redis),
	)
}

// RegisterAuth registers login, logout and the session check.  Login has
// its own, smaller bucket.
func RegisterAuth(e *echo.Echo, d Deps) {
	e.POST("/admin/login", d.Auth.Login,
		middleware.NewTokenBucket(d.Config.RateLimit.ForLogin(), d.Redis, "login", d.Metrics))
	e.POST("/admin/logout", d.Auth.Logout)
	e.GET("/admin/me", d.Auth.Me)
}
