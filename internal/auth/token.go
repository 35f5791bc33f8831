package auth

import (
	"net/http"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// RoleAdmin is the only role a token can carry.
const RoleAdmin = "ADMIN"

// Identity is the admin a token speaks for.
type Identity struct {
	AdminID uint64 `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
}

// Token is a signed JWT with its issue and expiry times, both read from the
// issuer's clock.
type Token struct {
	Value  string
	Issued time.Time
	Exp    time.Time
}

type claims struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies HS256 session tokens.  Now defaults to
// time.Now and exists for tests.
type TokenIssuer struct {
	Secret []byte
	TTL    time.Duration
	Now    func() time.Time
}

// NewTokenIssuer returns an issuer for the given secret and lifetime.
func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{Secret: []byte(secret), TTL: ttl}
}

func (t *TokenIssuer) now() time.Time {
	if t.Now != nil {
		return t.Now().UTC()
	}
	return time.Now().UTC()
}

// Issue signs a token for id that expires after the issuer's TTL.
func (t *TokenIssuer) Issue(id Identity) (Token, error) {
	return t.IssueAt(id, t.now().Add(t.TTL))
}

// IssueAt signs a token for id with an absolute expiry.
func (t *TokenIssuer) IssueAt(id Identity, exp time.Time) (Token, error) {
	now := t.now()
	c := claims{
		Name:  id.Name,
		Email: id.Email,
		Role:  RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(id.AdminID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(t.Secret)
	if err != nil {
		return Token{}, err
	}
	return Token{Value: signed, Issued: now, Exp: exp.UTC()}, nil
}

// Verify checks signature, algorithm, expiry and role.  Every failure is
// reported as false without saying which check failed.
func (t *TokenIssuer) Verify(raw string) (Identity, bool) {
	if raw == "" {
		return Identity{}, false
	}
	var c claims
	tok, err := jwt.ParseWithClaims(raw, &c, func(*jwt.Token) (any, error) {
		return t.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil || !tok.Valid || c.Role != RoleAdmin {
		return Identity{}, false
	}
	adminID, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil || adminID == 0 {
		return Identity{}, false
	}
	return Identity{AdminID: adminID, Name: c.Name, Email: c.Email}, true
}

// SessionCookie wraps a token in the cookie browsers send back on every
// admin request.  Max-Age is the lifetime granted at issue; a token without
// an issue time gets Expires only.
func SessionCookie(name string, tok Token, secure bool) *http.Cookie {
	c := &http.Cookie{
		Name:     name,
		Value:    tok.Value,
		Path:     "/",
		Expires:  tok.Exp,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	}
	if !tok.Issued.IsZero() {
		c.MaxAge = max(int(tok.Exp.Sub(tok.Issued)/time.Second), -1)
	}
	return c
}

// ClearedCookie expires the session cookie immediately.
func ClearedCookie(name string, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	}
}
