package service

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/danielnymberg/bokabuttle/internal/metrics"
	"github.com/danielnymberg/bokabuttle/internal/model"
	"github.com/danielnymberg/bokabuttle/internal/queue"
)

// MaxNameLength is the rune cap applied to claimant names.
const MaxNameLength = 40

var markup = regexp.MustCompile(`<[^>]*>`)

// SanitizeName strips markup-like tags, trims surrounding whitespace and
// truncates to MaxNameLength runes.
func SanitizeName(name string) string {
	name = strings.TrimSpace(markup.ReplaceAllString(name, ""))
	if utf8.RuneCountInString(name) > MaxNameLength {
		name = strings.TrimSpace(string([]rune(name)[:MaxNameLength]))
	}
	return name
}

// ErrMsgSlotChanged is the conflict message when a claim lost the race
// but the slot was free again by the time it was re-read.
const ErrMsgSlotChanged = "slot changed while claiming, try again"

// Actor is whoever issues a slot write.  The zero value is an anonymous
// volunteer.
type Actor struct {
	Admin   bool
	AdminID uint64
}

// AdminActor returns the actor for an authenticated admin.
func AdminActor(id uint64) Actor { return Actor{Admin: true, AdminID: id} }

// ClaimRequest asks for Name to be written into the slot at Key.
type ClaimRequest struct {
	Key  model.SlotKey
	Name string
}

// Arbitrator decides slot claims.  It holds no state between calls; mutual
// exclusion comes entirely from SlotStore.ClaimIfEmpty.
type Arbitrator struct {
	sessions  SessionStore
	slots     SlotStore
	publisher EventPublisher
	metrics   *metrics.Metrics
	now       func() time.Time
}

// NewArbitrator wires an Arbitrator.  publisher and m may be nil.
func NewArbitrator(sessions SessionStore, slots SlotStore, publisher EventPublisher, m *metrics.Metrics) *Arbitrator {
	return &Arbitrator{sessions: sessions, slots: slots, publisher: publisher, metrics: m, now: time.Now}
}

// Claim writes req.Name into an empty slot.  Admin actors are routed to
// ForceSet.  The returned claim is the value read back from storage after
// the write.
func (a *Arbitrator) Claim(ctx context.Context, req ClaimRequest, actor Actor) (model.SlotClaim, error) {
	if actor.Admin {
		return a.ForceSet(ctx, req.Key, req.Name, actor)
	}
	claim, err := a.claim(ctx, req)
	a.metrics.ClaimOutcome(outcomeOf(err))
	return claim, err
}

func (a *Arbitrator) claim(ctx context.Context, req ClaimRequest) (model.SlotClaim, error) {
	key := req.Key
	if err := validateKey(key); err != nil {
		return model.SlotClaim{}, err
	}
	name := SanitizeName(req.Name)
	if name == "" {
		return model.SlotClaim{}, invalid("name", "name is required")
	}

	session, open, err := a.sessions.GetWithEventState(ctx, key.SessionID)
	if err != nil {
		return model.SlotClaim{}, storeErr("load session", err)
	}
	if key.Index > session.Capacity(key.Kind) {
		return model.SlotClaim{}, invalid("index", "slot index exceeds session capacity")
	}
	if !open {
		return model.SlotClaim{}, &ForbiddenError{Msg: "event is closed"}
	}

	current, err := a.slots.Get(ctx, key)
	if err != nil {
		return model.SlotClaim{}, storeErr("read slot", err)
	}
	if current.Taken() {
		return model.SlotClaim{}, &ConflictError{TakenBy: current.Name}
	}

	ok, err := a.slots.ClaimIfEmpty(ctx, key, name)
	if err != nil {
		return model.SlotClaim{}, storeErr("claim slot", err)
	}
	stored, err := a.slots.Get(ctx, key)
	if err != nil {
		return model.SlotClaim{}, storeErr("read slot", err)
	}
	if !ok {
		slog.Info("claim lost race", "session_id", key.SessionID, "kind", key.Kind, "index", key.Index)
		if !stored.Taken() {
			// the winner was cleared by an admin before the re-read
			return model.SlotClaim{}, &ConflictError{Msg: ErrMsgSlotChanged, raced: true}
		}
		return model.SlotClaim{}, &ConflictError{TakenBy: stored.Name, raced: true}
	}

	a.publish(queue.SlotEvent{
		Type:      queue.TypeSlotClaimed,
		EventID:   session.EventID,
		SessionID: key.SessionID,
		Kind:      string(key.Kind),
		Index:     key.Index,
		Name:      stored.Name,
	})
	return stored, nil
}

// ForceSet writes name into the slot unconditionally, ignoring both the
// event's open flag and the current occupant.  A name that is empty after
// sanitising clears the slot.
func (a *Arbitrator) ForceSet(ctx context.Context, key model.SlotKey, name string, admin Actor) (model.SlotClaim, error) {
	if !admin.Admin {
		return model.SlotClaim{}, &AuthError{}
	}
	if err := validateKey(key); err != nil {
		return model.SlotClaim{}, err
	}
	session, _, err := a.sessions.GetWithEventState(ctx, key.SessionID)
	if err != nil {
		return model.SlotClaim{}, storeErr("load session", err)
	}
	if key.Index > session.Capacity(key.Kind) {
		return model.SlotClaim{}, invalid("index", "slot index exceeds session capacity")
	}

	name = SanitizeName(name)
	previous, err := a.slots.Get(ctx, key)
	if err != nil {
		return model.SlotClaim{}, storeErr("read slot", err)
	}
	if err := a.slots.Set(ctx, key, name); err != nil {
		slog.Error("admin override failed", "session_id", key.SessionID, "kind", key.Kind, "index", key.Index, "admin_id", admin.AdminID, "err", err)
		return model.SlotClaim{}, storeErr("set slot", err)
	}
	stored, err := a.slots.Get(ctx, key)
	if err != nil {
		return model.SlotClaim{}, storeErr("read slot", err)
	}
	slog.Info("admin override", "session_id", key.SessionID, "kind", key.Kind, "index", key.Index, "admin_id", admin.AdminID, "cleared", name == "")
	a.metrics.Override(name == "")
	a.publish(queue.SlotEvent{
		Type:      queue.TypeSlotOverridden,
		EventID:   session.EventID,
		SessionID: key.SessionID,
		Kind:      string(key.Kind),
		Index:     key.Index,
		Name:      stored.Name,
		Previous:  previous.Name,
		AdminID:   admin.AdminID,
	})
	return stored, nil
}

func validateKey(key model.SlotKey) error {
	if key.SessionID == 0 {
		return invalid("session_id", "session id is required")
	}
	if !key.Kind.Valid() {
		return invalid("kind", "kind must be primary or reserve")
	}
	if key.Index < 1 {
		return invalid("index", "slot index must be 1 or greater")
	}
	return nil
}

// publish hands ev to the broker without holding up the request.
func (a *Arbitrator) publish(ev queue.SlotEvent) {
	if a.publisher == nil {
		return
	}
	ev.OccurredAt = a.now().UTC()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := a.publisher.PublishSlotEvent(ctx, ev)
		if err != nil {
			slog.Warn("slot event publish failed", "type", ev.Type, "session_id", ev.SessionID, "err", err)
		}
		a.metrics.Published(err == nil)
	}()
}

func outcomeOf(err error) string {
	if err == nil {
		return metrics.OutcomeAccepted
	}
	if c, ok := IsConflict(err); ok {
		if c.raced {
			return metrics.OutcomeRaceLost
		}
		return metrics.OutcomeConflict
	}
	switch {
	case IsValidation(err):
		return metrics.OutcomeInvalid
	case IsForbidden(err):
		return metrics.OutcomeForbidden
	case IsNotFound(err):
		return metrics.OutcomeNotFound
	}
	return metrics.OutcomeError
}
