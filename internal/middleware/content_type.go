package middleware

import (
	"mime"
	"net/http"

	"github.com/labstack/echo/v4"
)

// RequireJSON rejects write requests whose body is not application/json
// with 415.  Requests without a body (DELETE, logout) pass.
func RequireJSON() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			r := c.Request()
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodDelete:
				return next(c)
			}
			ct := r.Header.Get(echo.HeaderContentType)
			if ct == "" && r.ContentLength == 0 {
				return next(c)
			}
			mt, _, err := mime.ParseMediaType(ct)
			if err != nil || mt != echo.MIMEApplicationJSON {
				return c.JSON(http.StatusUnsupportedMediaType, echo.Map{"error": "content type must be application/json"})
			}
			return next(c)
		}
	}
}
