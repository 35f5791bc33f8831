package model

import "time"

// Event represents a recurring burning event that volunteers sign up for.
// An event owns a list of sessions and is visible to the public board only
// while it is open.  Corresponds to a row in the `events` table.
//
// Fields:
//  ID        – primary key identifier.
//  Name      – display name shown on the board.
//  IsOpen    – whether non-admin claims are accepted.
//  StartDate – first day of the event (YYYY-MM-DD).
//  EndDate   – last day of the event, inclusive (YYYY-MM-DD).
//  CreatedAt – timestamp when the event was created.
type Event struct {
	ID        uint64    `json:"id"`         // events.id
	Name      string    `json:"name"`       // events.name
	IsOpen    bool      `json:"is_open"`    // events.is_open
	StartDate string    `json:"start_date"` // events.start_date
	EndDate   string    `json:"end_date"`   // events.end_date
	CreatedAt time.Time `json:"created_at"` // events.created_at
}

// EventBoard is the public view of the currently open event: the event
// itself and every session with its slots enumerated.  Event is nil when
// no event is open, in which case Sessions is empty.
type EventBoard struct {
	Event    *Event        `json:"event"`
	Sessions []SessionView `json:"sessions"`
}

// VolunteerSummary counts how many slots one volunteer holds in an event.
// Total includes reserve slots.
type VolunteerSummary struct {
	Name    string `json:"name"`
	Total   int    `json:"total"`
	Reserve int    `json:"reserve"`
}
