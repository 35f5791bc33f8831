// Package queue defines the slot events exchanged over the message broker
// together with their publisher and the audit consumer.
package queue

import (
	"fmt"
	"time"
)

// SlotQueueName is the durable queue slot events are published to.
const SlotQueueName = "slot.events"

// Event types.
const (
	TypeSlotClaimed    = "slot.claimed"
	TypeSlotOverridden = "slot.overridden"
)

// SlotEvent is published after a slot write has committed.  It carries
// enough context for the audit log without querying the database.
type SlotEvent struct {
	Type       string    `json:"type"`
	EventID    uint64    `json:"event_id"`
	SessionID  uint64    `json:"session_id"`
	Kind       string    `json:"kind"`
	Index      int       `json:"index"`
	Name       string    `json:"name"`
	Previous   string    `json:"previous,omitempty"`
	AdminID    uint64    `json:"admin_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// AuditLine renders ev as one line of logs/slots.log.
func (ev SlotEvent) AuditLine() string {
	name := ev.Name
	if name == "" {
		name = "<cleared>"
	}
	line := fmt.Sprintf("[%s] %s | event_id=%d | session_id=%d | kind=%s | index=%d | name=%q",
		ev.OccurredAt.UTC().Format(time.RFC3339), ev.Type, ev.EventID, ev.SessionID, ev.Kind, ev.Index, name)
	if ev.Previous != "" {
		line += fmt.Sprintf(" | previous=%q", ev.Previous)
	}
	if ev.AdminID != 0 {
		line += fmt.Sprintf(" | admin_id=%d", ev.AdminID)
	}
	return line + "\n"
}
