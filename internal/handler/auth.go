package handler

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/danielnymberg/bokabuttle/internal/auth"
	"github.com/danielnymberg/bokabuttle/internal/middleware"
	"github.com/danielnymberg/bokabuttle/internal/service"
)

// AuthHandler bundles dependencies for the admin session endpoints.
type AuthHandler struct {
	Admins       *service.EventAdmin
	Tokens       *auth.TokenIssuer
	CookieName   string
	CookieSecure bool
}

func NewAuthHandler(admins *service.EventAdmin, tokens *auth.TokenIssuer, cookieName string, cookieSecure bool) *AuthHandler {
	return &AuthHandler{Admins: admins, Tokens: tokens, CookieName: cookieName, CookieSecure: cookieSecure}
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type identityResp struct {
	ID    uint64 `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Login handles POST /admin/login.  On success the signed token is set as
// an HttpOnly cookie; it never appears in the body.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return writeError(c, badBody())
	}
	if req.Email == "" || req.Password == "" {
		return writeError(c, &service.AuthError{})
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	a, err := h.Admins.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		if service.IsAuth(err) {
			slog.Info("admin login failed", "ip", c.RealIP())
		}
		return writeError(c, err)
	}
	tok, err := h.Tokens.Issue(auth.Identity{AdminID: a.ID, Name: a.Name, Email: a.Email})
	if err != nil {
		return writeError(c, &service.InternalError{Op: "issue token", Err: err})
	}
	c.SetCookie(auth.SessionCookie(h.CookieName, tok, h.CookieSecure))
	slog.Info("admin logged in", "admin_id", a.ID)
	return c.JSON(http.StatusOK, echo.Map{"name": a.Name, "expires": tok.Exp})
}

// Me handles GET /admin/me.  The token must still belong to an existing
// admin.
func (h *AuthHandler) Me(c echo.Context) error {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		return writeError(c, &service.AuthError{})
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	a, err := h.Admins.Admin(ctx, id.AdminID)
	if err != nil {
		if service.IsNotFound(err) {
			return writeError(c, &service.AuthError{})
		}
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, identityResp{ID: a.ID, Name: a.Name, Email: a.Email})
}

// Logout handles POST /admin/logout.  It always succeeds.
func (h *AuthHandler) Logout(c echo.Context) error {
	c.SetCookie(auth.ClearedCookie(h.CookieName, h.CookieSecure))
	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}
