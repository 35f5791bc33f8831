package model

import (
	"errors"
	"strings"
)

// SlotKind is the closed set of slot categories a session offers.
type SlotKind string

const (
	SlotPrimary SlotKind = "primary"
	SlotReserve SlotKind = "reserve"
)

// ErrInvalidSlotKind is returned by ParseSlotKind for anything outside
// {primary, reserve}.
var ErrInvalidSlotKind = errors.New("invalid slot kind")

// ParseSlotKind maps user input onto a SlotKind.  The Swedish names used by
// the first version of the sign-up sheet ("plats", "reserv") are accepted as
// aliases.
func ParseSlotKind(s string) (SlotKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "primary", "plats":
		return SlotPrimary, nil
	case "reserve", "reserv":
		return SlotReserve, nil
	}
	return "", ErrInvalidSlotKind
}

// Valid reports whether k is one of the known kinds.
func (k SlotKind) Valid() bool { return k == SlotPrimary || k == SlotReserve }

// SlotKey identifies a single slot: session, kind and 1-based index.
type SlotKey struct {
	SessionID uint64   `json:"session_id"`
	Kind      SlotKind `json:"kind"`
	Index     int      `json:"index"`
}

// SlotClaim is the stored state of a slot.  An empty Name means the slot is
// free; a missing row in `session_slots` is read back as an empty claim.
type SlotClaim struct {
	SlotKey
	Name string `json:"name"`
}

// Taken reports whether somebody holds the slot.
func (c SlotClaim) Taken() bool { return c.Name != "" }
