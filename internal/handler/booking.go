package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/danielnymberg/bokabuttle/internal/middleware"
	"github.com/danielnymberg/bokabuttle/internal/model"
	"github.com/danielnymberg/bokabuttle/internal/service"
)

// BookingHandler exposes slot claims and admin overrides.
type BookingHandler struct {
	Arb *service.Arbitrator
}

func NewBookingHandler(arb *service.Arbitrator) *BookingHandler {
	return &BookingHandler{Arb: arb}
}

// claimReq accepts the current field names and the ones the first version
// of the sign-up page sent (typ, slot_nr, namn).
type claimReq struct {
	Kind   string  `json:"kind"`
	Index  *int    `json:"index"`
	Name   *string `json:"name"`
	Typ    string  `json:"typ"`
	SlotNr *int    `json:"slot_nr"`
	Namn   *string `json:"namn"`
}

func (r claimReq) key(sessionID uint64) (model.SlotKey, error) {
	raw := r.Kind
	if raw == "" {
		raw = r.Typ
	}
	kind, err := model.ParseSlotKind(raw)
	if err != nil {
		return model.SlotKey{}, &service.ValidationError{Field: "kind", Msg: "kind must be primary or reserve"}
	}
	idx := r.Index
	if idx == nil {
		idx = r.SlotNr
	}
	if idx == nil {
		return model.SlotKey{}, &service.ValidationError{Field: "index", Msg: "index is required"}
	}
	return model.SlotKey{SessionID: sessionID, Kind: kind, Index: *idx}, nil
}

func (r claimReq) name() string {
	if r.Name != nil {
		return *r.Name
	}
	if r.Namn != nil {
		return *r.Namn
	}
	return ""
}

func (h *BookingHandler) parse(c echo.Context) (model.SlotKey, string, error) {
	id, err := pathID(c, "id")
	if err != nil {
		return model.SlotKey{}, "", err
	}
	var req claimReq
	if err := c.Bind(&req); err != nil {
		return model.SlotKey{}, "", badBody()
	}
	key, err := req.key(id)
	if err != nil {
		return model.SlotKey{}, "", err
	}
	return key, req.name(), nil
}

// Claim handles PUT /session/:id/book.  A verified admin cookie turns the
// claim into an override.
func (h *BookingHandler) Claim(c echo.Context) error {
	key, name, err := h.parse(c)
	if err != nil {
		return writeError(c, err)
	}
	actor := service.Actor{}
	if id, ok := middleware.IdentityFrom(c); ok {
		actor = service.AdminActor(id.AdminID)
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	claim, err := h.Arb.Claim(ctx, service.ClaimRequest{Key: key, Name: name}, actor)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, claim)
}

// Override handles PUT /admin/session/:id/book.  An empty name clears the
// slot.
func (h *BookingHandler) Override(c echo.Context) error {
	key, name, err := h.parse(c)
	if err != nil {
		return writeError(c, err)
	}
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		return writeError(c, &service.AuthError{})
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	claim, err := h.Arb.ForceSet(ctx, key, name, service.AdminActor(id.AdminID))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"ok": true, "slot": claim})
}
