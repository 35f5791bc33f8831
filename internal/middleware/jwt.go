package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/danielnymberg/bokabuttle/internal/auth"
)

// Context keys set by SessionAuth.
const (
	ctxIdentity = "identity"
	ctxAdminID  = "admin_id"
	ctxRole     = "role"
)

// TokenVerifier is satisfied by *auth.TokenIssuer.
type TokenVerifier interface {
	Verify(raw string) (auth.Identity, bool)
}

// SessionAuth reads the session token from the named cookie, falling back
// to an "Authorization: Bearer" header, and stores the verified identity
// in the context.  Requests without a valid token continue as anonymous;
// use RequireRole to reject them.
func SessionAuth(v TokenVerifier, cookieName string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := ""
			if ck, err := c.Cookie(cookieName); err == nil {
				raw = ck.Value
			}
			if raw == "" {
				if h := c.Request().Header.Get(echo.HeaderAuthorization); strings.HasPrefix(h, "Bearer ") {
					raw = strings.TrimPrefix(h, "Bearer ")
				}
			}
			if id, ok := v.Verify(raw); ok {
				c.Set(ctxIdentity, id)
				c.Set(ctxAdminID, id.AdminID)
				c.Set(ctxRole, auth.RoleAdmin)
			}
			return next(c)
		}
	}
}

// IdentityFrom returns the admin identity attached by SessionAuth.
func IdentityFrom(c echo.Context) (auth.Identity, bool) {
	id, ok := c.Get(ctxIdentity).(auth.Identity)
	return id, ok
}
