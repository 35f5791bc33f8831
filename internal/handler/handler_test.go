package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/danielnymberg/bokabuttle/internal/auth"
	"github.com/danielnymberg/bokabuttle/internal/middleware"
	"github.com/danielnymberg/bokabuttle/internal/model"
	"github.com/danielnymberg/bokabuttle/internal/service"
	"github.com/danielnymberg/bokabuttle/internal/testutil"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type env struct {
	e      *echo.Echo
	store  *testutil.MemStore
	svc    *service.EventAdmin
	tokens *auth.TokenIssuer
}

func newEnv(t *testing.T) *env {
	t.Helper()
	st := testutil.NewMemStore()
	svc := service.NewEventAdmin(service.Stores{
		Events: st, Sessions: st.Sessions(), Slots: st, Admins: st.Admins(),
	}, bcrypt.MinCost, nil)
	arb := service.NewArbitrator(st.Sessions(), st, nil, nil)
	tokens := auth.NewTokenIssuer(testSecret, time.Hour)

	e := echo.New()
	e.Use(middleware.SessionAuth(tokens, "token"))

	pub := NewPublicHandler(svc)
	book := NewBookingHandler(arb)
	ah := NewAuthHandler(svc, tokens, "token", false)
	adm := NewAdminHandler(svc)

	e.GET("/event", pub.Board)
	e.GET("/event/summary", pub.Summary)
	e.PUT("/session/:id/book", book.Claim)
	e.POST("/admin/login", ah.Login)
	e.POST("/admin/logout", ah.Logout)
	e.GET("/admin/me", ah.Me)
	e.PUT("/admin/session/:id/book", book.Override)
	e.POST("/admin/event", adm.CreateEvent)
	e.PUT("/admin/event/:id", adm.UpdateEvent)
	e.DELETE("/admin/event/:id", adm.DeleteEvent)
	e.POST("/admin/event/:id/session", adm.AddSession)
	e.POST("/admin/event/:id/generate", adm.GenerateSessions)
	e.GET("/admin/events", adm.ListEvents)
	e.POST("/admin/admins", adm.CreateAdmin)
	e.GET("/admin/admins", adm.ListAdmins)

	return &env{e: e, store: st, svc: svc, tokens: tokens}
}

func (en *env) do(method, target, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	en.e.ServeHTTP(rec, req)
	return rec
}

func (en *env) adminCookie(t *testing.T) *http.Cookie {
	t.Helper()
	id, err := en.svc.CreateAdmin(context.Background(), "Kim", "kim@example.org", "hemligt123")
	require.NoError(t, err)
	tok, err := en.tokens.Issue(auth.Identity{AdminID: id, Name: "Kim", Email: "kim@example.org"})
	require.NoError(t, err)
	return &http.Cookie{Name: "token", Value: tok.Value}
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func TestBoardWithoutOpenEvent(t *testing.T) {
	en := newEnv(t)
	rec := en.do(http.MethodGet, "/event", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"event":null,"sessions":[]}`, rec.Body.String())
}

func TestClaimFlow(t *testing.T) {
	en := newEnv(t)
	ev := en.store.SeedEvent("Vår", "2025-01-01", "2025-01-02", true)
	sess := en.store.SeedSession(ev, 2, 1)
	target := "/session/" + itoa(sess) + "/book"

	rec := en.do(http.MethodPut, target, `{"kind":"primary","index":1,"name":"Anna"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var claim model.SlotClaim
	decode(t, rec, &claim)
	assert.Equal(t, "Anna", claim.Name)

	rec = en.do(http.MethodPut, target, `{"kind":"primary","index":1,"name":"Bo"}`)
	require.Equal(t, http.StatusConflict, rec.Code)
	var body map[string]string
	decode(t, rec, &body)
	assert.Equal(t, "Anna", body["taken_by"])

	// legacy field names
	rec = en.do(http.MethodPut, target, `{"typ":"reserv","slot_nr":1,"namn":"Cleo"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Cleo", en.store.Stored(model.SlotKey{SessionID: sess, Kind: model.SlotReserve, Index: 1}))

	rec = en.do(http.MethodGet, "/event/summary", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var summary struct {
		Volunteers []model.VolunteerSummary `json:"volunteers"`
	}
	decode(t, rec, &summary)
	assert.Len(t, summary.Volunteers, 2)
}

func TestClaimErrors(t *testing.T) {
	en := newEnv(t)
	ev := en.store.SeedEvent("Vår", "2025-01-01", "2025-01-02", false)
	sess := en.store.SeedSession(ev, 2, 1)
	target := "/session/" + itoa(sess) + "/book"

	cases := []struct {
		name   string
		target string
		body   string
		status int
	}{
		{"closed event", target, `{"kind":"primary","index":1,"name":"Anna"}`, http.StatusForbidden},
		{"bad kind", target, `{"kind":"vip","index":1,"name":"Anna"}`, http.StatusBadRequest},
		{"missing index", target, `{"kind":"primary","name":"Anna"}`, http.StatusBadRequest},
		{"bad path id", "/session/abc/book", `{"kind":"primary","index":1,"name":"Anna"}`, http.StatusBadRequest},
		{"unknown session", "/session/999/book", `{"kind":"primary","index":1,"name":"Anna"}`, http.StatusNotFound},
		{"malformed json", target, `{"kind":`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := en.do(http.MethodPut, tc.target, tc.body)
			assert.Equal(t, tc.status, rec.Code, rec.Body.String())
		})
	}
}

func TestAdminCookieBypassesClosedEvent(t *testing.T) {
	en := newEnv(t)
	ck := en.adminCookie(t)
	ev := en.store.SeedEvent("Vår", "2025-01-01", "2025-01-02", false)
	sess := en.store.SeedSession(ev, 2, 1)

	rec := en.do(http.MethodPut, "/session/"+itoa(sess)+"/book", `{"kind":"primary","index":2,"name":"Dag"}`, ck)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = en.do(http.MethodPut, "/admin/session/"+itoa(sess)+"/book", `{"kind":"primary","index":2,"name":""}`, ck)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Empty(t, en.store.Stored(model.SlotKey{SessionID: sess, Kind: model.SlotPrimary, Index: 2}))
}

func TestOverrideWithoutIdentity(t *testing.T) {
	en := newEnv(t)
	rec := en.do(http.MethodPut, "/admin/session/1/book", `{"kind":"primary","index":1,"name":"X"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginMeLogout(t *testing.T) {
	en := newEnv(t)
	_, err := en.svc.CreateAdmin(context.Background(), "Kim", "kim@example.org", "hemligt123")
	require.NoError(t, err)

	rec := en.do(http.MethodPost, "/admin/login", `{"email":"kim@example.org","password":"fel-lösen"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, rec.Result().Cookies())

	rec = en.do(http.MethodPost, "/admin/login", `{"email":"kim@example.org","password":"hemligt123"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "hemligt")
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	ck := cookies[0]
	assert.Equal(t, "token", ck.Name)
	assert.True(t, ck.HttpOnly)
	assert.NotContains(t, rec.Body.String(), ck.Value)

	rec = en.do(http.MethodGet, "/admin/me", "", &http.Cookie{Name: "token", Value: ck.Value})
	require.Equal(t, http.StatusOK, rec.Code)
	var me map[string]any
	decode(t, rec, &me)
	assert.Equal(t, "kim@example.org", me["email"])

	rec = en.do(http.MethodGet, "/admin/me", "", &http.Cookie{Name: "token", Value: "garbage"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = en.do(http.MethodPost, "/admin/logout", "")
	require.Equal(t, http.StatusOK, rec.Code)
	cleared := rec.Result().Cookies()
	require.Len(t, cleared, 1)
	assert.Empty(t, cleared[0].Value)
	assert.Negative(t, cleared[0].MaxAge)
}

func TestMeForDeletedAdmin(t *testing.T) {
	en := newEnv(t)
	tok, err := en.tokens.Issue(auth.Identity{AdminID: 4242, Name: "Ghost"})
	require.NoError(t, err)
	rec := en.do(http.MethodGet, "/admin/me", "", &http.Cookie{Name: "token", Value: tok.Value})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestEventLifecycle(t *testing.T) {
	en := newEnv(t)
	ck := en.adminCookie(t)

	rec := en.do(http.MethodPost, "/admin/event", `{"name":"Höst","start_date":"2025-09-01","end_date":"2025-09-02"}`, ck)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var created struct {
		ID uint64 `json:"id"`
	}
	decode(t, rec, &created)
	base := "/admin/event/" + itoa(created.ID)

	rec = en.do(http.MethodPost, base+"/generate", "", ck)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"created":8}`, rec.Body.String())

	rec = en.do(http.MethodPost, base+"/session", `{"date":"2025-09-02","start_time":"24:00","end_time":"02:00"}`, ck)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = en.do(http.MethodPost, base+"/session", `{"date":"2025-09-02","start_time":"22:00","end_time":"23:30","activity":"Släckning","reserve_capacity":0}`, ck)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = en.do(http.MethodPut, base, `{"is_open":true,"name":"Höstbränning"}`, ck)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = en.do(http.MethodGet, "/event", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var board model.EventBoard
	decode(t, rec, &board)
	require.NotNil(t, board.Event)
	assert.Equal(t, "Höstbränning", board.Event.Name)
	assert.Len(t, board.Sessions, 9)

	rec = en.do(http.MethodPut, base, `{}`, ck)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = en.do(http.MethodGet, "/admin/events", "", ck)
	require.Equal(t, http.StatusOK, rec.Code)
	var events []model.Event
	decode(t, rec, &events)
	assert.Len(t, events, 1)

	rec = en.do(http.MethodDelete, base, "", ck)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = en.do(http.MethodDelete, base, "", ck)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminAccounts(t *testing.T) {
	en := newEnv(t)
	ck := en.adminCookie(t)

	rec := en.do(http.MethodPost, "/admin/admins", `{"name":"Lo","email":"lo@example.org","password":"kort"}`, ck)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var verr map[string]string
	decode(t, rec, &verr)
	assert.Equal(t, "password", verr["field"])

	long := strings.Repeat("p", service.MaxPasswordBytes+1)
	rec = en.do(http.MethodPost, "/admin/admins", `{"name":"Lo","email":"lo@example.org","password":"`+long+`"}`, ck)
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	decode(t, rec, &verr)
	assert.Equal(t, "password", verr["field"])

	rec = en.do(http.MethodPost, "/admin/admins", `{"name":"Lo","email":"lo@example.org","password":"långtlösen"}`, ck)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = en.do(http.MethodPost, "/admin/admins", `{"name":"Lo","email":"lo@example.org","password":"långtlösen"}`, ck)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = en.do(http.MethodGet, "/admin/admins", "", ck)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "$2")
	var admins []model.Admin
	decode(t, rec, &admins)
	assert.Len(t, admins, 2)
}

func TestInternalErrorsAreOpaque(t *testing.T) {
	en := newEnv(t)
	en.store.Fail = assert.AnError
	rec := en.do(http.MethodGet, "/event", "")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal error"}`, rec.Body.String())
}

func itoa(v uint64) string { return strconv.FormatUint(v, 10) }
