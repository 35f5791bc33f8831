package handler

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

// Health reports liveness plus the reachability of MySQL and, when
// configured, Redis.  Redis being down degrades features but is not fatal,
// so only a failed database ping turns the response into 503.
func Health(db *sql.DB, rdb *redis.Client) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		body := echo.Map{"status": "ok"}
		if db != nil {
			if err := db.PingContext(ctx); err != nil {
				status = http.StatusServiceUnavailable
				body["status"] = "degraded"
				body["database"] = "unreachable"
			} else {
				body["database"] = "ok"
			}
		}
		if rdb != nil {
			if err := rdb.Ping(ctx).Err(); err != nil {
				body["redis"] = "unreachable"
			} else {
				body["redis"] = "ok"
			}
		} else {
			body["redis"] = "disabled"
		}
		return c.JSON(status, body)
	}
}
