package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// callerID identifies the caller for rate-limit keys: the admin id when a
// session token was verified, otherwise "anon".
func callerID(c echo.Context) string {
	if id, ok := c.Get(ctxAdminID).(uint64); ok && id != 0 {
		return strconv.FormatUint(id, 10)
	}
	return "anon"
}
