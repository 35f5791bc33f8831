package model

// Session is one bookable time window ("pass") inside an event.  Each
// session exposes a fixed number of primary and reserve slots; the slot
// rows themselves live in `session_slots` and are only created when
// somebody claims them.
//
// Fields:
//  ID              – primary key identifier.
//  EventID         – owning event.
//  Date            – day of the session (YYYY-MM-DD).
//  StartTime       – start of the window (HH:MM).
//  EndTime         – end of the window (HH:MM); may wrap past midnight.
//  Activity        – optional label, e.g. "loading" or "firing".
//  PrimaryCapacity – number of primary slots.
//  ReserveCapacity – number of reserve slots.
type Session struct {
	ID              uint64  `json:"id"`               // sessions.id
	EventID         uint64  `json:"event_id"`         // sessions.event_id
	Date            string  `json:"date"`             // sessions.session_date
	StartTime       string  `json:"start_time"`       // sessions.start_time
	EndTime         string  `json:"end_time"`         // sessions.end_time
	Activity        *string `json:"activity"`         // sessions.activity (nullable)
	PrimaryCapacity int     `json:"primary_capacity"` // sessions.primary_capacity
	ReserveCapacity int     `json:"reserve_capacity"` // sessions.reserve_capacity
}

// Capacity returns the number of slots the session offers for kind.
// Unknown kinds have no capacity.
func (s Session) Capacity(kind SlotKind) int {
	switch kind {
	case SlotPrimary:
		return s.PrimaryCapacity
	case SlotReserve:
		return s.ReserveCapacity
	}
	return 0
}

// SlotView is one position on the board.  Name is empty when the slot is free.
type SlotView struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
}

// SessionView is a session together with all of its slots, enumerated from
// capacity and merged with the stored claims.
type SessionView struct {
	Session
	Primary []SlotView `json:"primary"`
	Reserve []SlotView `json:"reserve"`
}

// NewSessionView enumerates every slot of s and fills in the names found in
// claims.  Claims for other sessions or outside capacity are ignored.
func NewSessionView(s Session, claims []SlotClaim) SessionView {
	v := SessionView{
		Session: s,
		Primary: make([]SlotView, s.PrimaryCapacity),
		Reserve: make([]SlotView, s.ReserveCapacity),
	}
	for i := range v.Primary {
		v.Primary[i].Index = i + 1
	}
	for i := range v.Reserve {
		v.Reserve[i].Index = i + 1
	}
	for _, c := range claims {
		if c.SessionID != s.ID || c.Index < 1 || c.Index > s.Capacity(c.Kind) {
			continue
		}
		switch c.Kind {
		case SlotPrimary:
			v.Primary[c.Index-1].Name = c.Name
		case SlotReserve:
			v.Reserve[c.Index-1].Name = c.Name
		}
	}
	return v
}
