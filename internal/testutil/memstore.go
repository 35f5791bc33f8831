// Package testutil provides an in-memory store for service and handler
// tests.  It honours the same contracts as the MySQL repositories,
// including the atomic conditional claim.
package testutil

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/danielnymberg/bokabuttle/internal/model"
	"github.com/danielnymberg/bokabuttle/internal/repository"
)

// MemStore implements the event, session, slot and admin stores.  The zero
// value is not usable; call NewMemStore.
type MemStore struct {
	mu       sync.Mutex
	nextID   uint64
	events   map[uint64]model.Event
	sessions map[uint64]model.Session
	slots    map[model.SlotKey]string
	admins   map[uint64]model.Admin
	clock    time.Time

	// AfterGet runs after every slot read, outside the lock.  Tests use it
	// to interleave a competing write between read and conditional write.
	AfterGet func(key model.SlotKey)
	// Fail, when set, is returned by every call.
	Fail error
}

func NewMemStore() *MemStore {
	return &MemStore{
		events:   map[uint64]model.Event{},
		sessions: map[uint64]model.Session{},
		slots:    map[model.SlotKey]string{},
		admins:   map[uint64]model.Admin{},
		clock:    time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (m *MemStore) id() uint64 {
	m.nextID++
	return m.nextID
}

// tick returns a strictly increasing creation time.
func (m *MemStore) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

// Events

func (m *MemStore) Create(ctx context.Context, name, startDate, endDate string) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return 0, m.Fail
	}
	id := m.id()
	m.events[id] = model.Event{ID: id, Name: name, StartDate: startDate, EndDate: endDate, CreatedAt: m.tick()}
	return id, nil
}

func (m *MemStore) GetByID(ctx context.Context, id uint64) (model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return model.Event{}, m.Fail
	}
	e, ok := m.events[id]
	if !ok {
		return model.Event{}, repository.ErrEventNotFound
	}
	return e, nil
}

func (m *MemStore) CurrentOpen(ctx context.Context) (*model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return nil, m.Fail
	}
	var cur *model.Event
	for _, e := range m.events {
		if e.IsOpen && (cur == nil || e.CreatedAt.After(cur.CreatedAt)) {
			e := e
			cur = &e
		}
	}
	return cur, nil
}

func (m *MemStore) List(ctx context.Context) ([]model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return nil, m.Fail
	}
	out := make([]model.Event, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemStore) Update(ctx context.Context, id uint64, u repository.EventUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return m.Fail
	}
	e, ok := m.events[id]
	if !ok {
		return repository.ErrEventNotFound
	}
	if u.Name != nil {
		e.Name = *u.Name
	}
	if u.Open != nil {
		if *u.Open {
			for oid, o := range m.events {
				if oid != id && o.IsOpen {
					o.IsOpen = false
					m.events[oid] = o
				}
			}
		}
		e.IsOpen = *u.Open
	}
	m.events[id] = e
	return nil
}

func (m *MemStore) SetOpen(ctx context.Context, id uint64, open bool) error {
	return m.Update(ctx, id, repository.EventUpdate{Open: &open})
}

func (m *MemStore) Rename(ctx context.Context, id uint64, name string) error {
	return m.Update(ctx, id, repository.EventUpdate{Name: &name})
}

// Delete cascades to sessions and slots.
func (m *MemStore) Delete(ctx context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return m.Fail
	}
	if _, ok := m.events[id]; !ok {
		return repository.ErrEventNotFound
	}
	delete(m.events, id)
	for sid, s := range m.sessions {
		if s.EventID != id {
			continue
		}
		delete(m.sessions, sid)
		for k := range m.slots {
			if k.SessionID == sid {
				delete(m.slots, k)
			}
		}
	}
	return nil
}

func (m *MemStore) Exists(ctx context.Context, id uint64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return false, m.Fail
	}
	_, ok := m.events[id]
	return ok, nil
}

// Sessions

// Sessions exposes the session half of the store under the method names of
// SessionRepo, whose Create collides with the event Create above.
func (m *MemStore) Sessions() *MemSessions { return &MemSessions{m} }

// MemSessions is the session view of a MemStore.
type MemSessions struct{ m *MemStore }

func (s *MemSessions) Create(ctx context.Context, sess *model.Session) error {
	m := s.m
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return m.Fail
	}
	if _, ok := m.events[sess.EventID]; !ok {
		return repository.ErrEventNotFound
	}
	sess.ID = m.id()
	m.sessions[sess.ID] = *sess
	return nil
}

func (s *MemSessions) CreateBatch(ctx context.Context, sessions []model.Session) (int, error) {
	m := s.m
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return 0, m.Fail
	}
	for _, sess := range sessions {
		if _, ok := m.events[sess.EventID]; !ok {
			return 0, repository.ErrEventNotFound
		}
	}
	for _, sess := range sessions {
		sess.ID = m.id()
		m.sessions[sess.ID] = sess
	}
	return len(sessions), nil
}

func (s *MemSessions) GetWithEventState(ctx context.Context, id uint64) (model.Session, bool, error) {
	m := s.m
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return model.Session{}, false, m.Fail
	}
	sess, ok := m.sessions[id]
	if !ok {
		return model.Session{}, false, repository.ErrSessionNotFound
	}
	return sess, m.events[sess.EventID].IsOpen, nil
}

func (s *MemSessions) ListByEvent(ctx context.Context, eventID uint64) ([]model.Session, error) {
	m := s.m
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return nil, m.Fail
	}
	out := []model.Session{}
	for _, sess := range m.sessions {
		if sess.EventID == eventID {
			out = append(out, sess)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		if a.StartTime != b.StartTime {
			return a.StartTime < b.StartTime
		}
		return a.ID < b.ID
	})
	return out, nil
}

// Slots

func (m *MemStore) Get(ctx context.Context, key model.SlotKey) (model.SlotClaim, error) {
	m.mu.Lock()
	if m.Fail != nil {
		m.mu.Unlock()
		return model.SlotClaim{}, m.Fail
	}
	name := m.slots[key]
	hook := m.AfterGet
	m.mu.Unlock()
	if hook != nil {
		hook(key)
	}
	return model.SlotClaim{SlotKey: key, Name: name}, nil
}

// ClaimIfEmpty is the atomic compare-and-set.
func (m *MemStore) ClaimIfEmpty(ctx context.Context, key model.SlotKey, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return false, m.Fail
	}
	if m.slots[key] != "" {
		return false, nil
	}
	m.slots[key] = name
	return true, nil
}

func (m *MemStore) Set(ctx context.Context, key model.SlotKey, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return m.Fail
	}
	m.slots[key] = name
	return nil
}

func (m *MemStore) ListClaimedByEvent(ctx context.Context, eventID uint64) ([]model.SlotClaim, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return nil, m.Fail
	}
	out := []model.SlotClaim{}
	for k, name := range m.slots {
		if name == "" || m.sessions[k.SessionID].EventID != eventID {
			continue
		}
		out = append(out, model.SlotClaim{SlotKey: k, Name: name})
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.SessionID != b.SessionID {
			return a.SessionID < b.SessionID
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		return a.Index < b.Index
	})
	return out, nil
}

// Admins

// Admins exposes the admin half of the store.
func (m *MemStore) Admins() *MemAdmins { return &MemAdmins{m} }

// MemAdmins is the admin view of a MemStore.
type MemAdmins struct{ m *MemStore }

func (s *MemAdmins) Create(ctx context.Context, name, email, passwordHash string) (uint64, error) {
	m := s.m
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return 0, m.Fail
	}
	email = strings.ToLower(strings.TrimSpace(email))
	for _, a := range m.admins {
		if a.Email == email {
			return 0, repository.ErrEmailExists
		}
	}
	id := m.id()
	m.admins[id] = model.Admin{ID: id, Name: strings.TrimSpace(name), Email: email, PasswordHash: passwordHash, CreatedAt: m.tick()}
	return id, nil
}

func (s *MemAdmins) GetByEmail(ctx context.Context, email string) (model.Admin, error) {
	m := s.m
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return model.Admin{}, m.Fail
	}
	email = strings.ToLower(strings.TrimSpace(email))
	for _, a := range m.admins {
		if a.Email == email {
			return a, nil
		}
	}
	return model.Admin{}, repository.ErrAdminNotFound
}

func (s *MemAdmins) GetByID(ctx context.Context, id uint64) (model.Admin, error) {
	m := s.m
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return model.Admin{}, m.Fail
	}
	a, ok := m.admins[id]
	if !ok {
		return model.Admin{}, repository.ErrAdminNotFound
	}
	return a, nil
}

func (s *MemAdmins) List(ctx context.Context) ([]model.Admin, error) {
	m := s.m
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return nil, m.Fail
	}
	out := make([]model.Admin, 0, len(m.admins))
	for _, a := range m.admins {
		a.PasswordHash = ""
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Helpers for arranging test state.

// SeedEvent creates an event with the given open flag and returns its id.
func (m *MemStore) SeedEvent(name, start, end string, open bool) uint64 {
	id, _ := m.Create(context.Background(), name, start, end)
	if open {
		_ = m.SetOpen(context.Background(), id, true)
	}
	return id
}

// SeedSession creates a session on date 2025-01-01 00:00-06:00 with the
// given capacities and returns its id.
func (m *MemStore) SeedSession(eventID uint64, primary, reserve int) uint64 {
	s := model.Session{EventID: eventID, Date: "2025-01-01", StartTime: "00:00", EndTime: "06:00",
		PrimaryCapacity: primary, ReserveCapacity: reserve}
	_ = m.Sessions().Create(context.Background(), &s)
	return s.ID
}

// Stored returns the raw stored name for key.
func (m *MemStore) Stored(key model.SlotKey) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.slots[key]
}
