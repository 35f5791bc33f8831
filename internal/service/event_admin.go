package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/danielnymberg/bokabuttle/internal/auth"
	"github.com/danielnymberg/bokabuttle/internal/metrics"
	"github.com/danielnymberg/bokabuttle/internal/model"
	"github.com/danielnymberg/bokabuttle/internal/repository"
)

// Limits applied to admin input.
const (
	DefaultIntervalHours = 6
	DefaultCapacity      = 2
	MaxCapacity          = 20
	MaxEventDays         = 366
	MinPasswordLength    = 8
	MaxPasswordBytes     = 72 // bcrypt input limit

	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

// EventAdmin implements event lifecycle, session scheduling, the public
// board and admin account management.
type EventAdmin struct {
	events     EventStore
	sessions   SessionStore
	slots      SlotStore
	admins     AdminStore
	bcryptCost int
	metrics    *metrics.Metrics

	// dummyHash is compared against when an email is unknown so that a
	// failed lookup costs as much as a wrong password.
	dummyHash string
}

// Stores bundles the persistence dependencies of the services.
type Stores struct {
	Events   EventStore
	Sessions SessionStore
	Slots    SlotStore
	Admins   AdminStore
}

// NewEventAdmin wires an EventAdmin.  m may be nil.
func NewEventAdmin(st Stores, bcryptCost int, m *metrics.Metrics) *EventAdmin {
	dummy, err := auth.HashPassword("not-a-real-password", bcryptCost)
	if err != nil {
		slog.Error("dummy password hash failed", "bcrypt_cost", bcryptCost, "err", err)
	}
	return &EventAdmin{
		events:     st.Events,
		sessions:   st.Sessions,
		slots:      st.Slots,
		admins:     st.Admins,
		bcryptCost: bcryptCost,
		metrics:    m,
		dummyHash:  dummy,
	}
}

func parseDate(field, v string) (time.Time, error) {
	d, err := time.Parse(dateLayout, strings.TrimSpace(v))
	if err != nil {
		return time.Time{}, invalid(field, "must be a date in YYYY-MM-DD format")
	}
	return d, nil
}

func validTime(v string) bool {
	if len(v) != len(timeLayout) {
		return false
	}
	_, err := time.Parse(timeLayout, v)
	return err == nil
}

func cleanEventName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", invalid("name", "name is required")
	}
	if utf8.RuneCountInString(name) > 200 {
		return "", invalid("name", "name must be at most 200 characters")
	}
	return name, nil
}

// CreateEvent stores a new, closed event and returns its id.
func (s *EventAdmin) CreateEvent(ctx context.Context, name, startDate, endDate string) (uint64, error) {
	name, err := cleanEventName(name)
	if err != nil {
		return 0, err
	}
	start, err := parseDate("start_date", startDate)
	if err != nil {
		return 0, err
	}
	end, err := parseDate("end_date", endDate)
	if err != nil {
		return 0, err
	}
	if end.Before(start) {
		return 0, invalid("end_date", "end date is before start date")
	}
	if days := int(end.Sub(start).Hours()/24) + 1; days > MaxEventDays {
		return 0, invalid("end_date", fmt.Sprintf("event may span at most %d days", MaxEventDays))
	}
	id, err := s.events.Create(ctx, name, start.Format(dateLayout), end.Format(dateLayout))
	if err != nil {
		return 0, storeErr("create event", err)
	}
	slog.Info("event created", "event_id", id)
	return id, nil
}

// GenerateOptions shapes interval generation.  Zero IntervalHours and nil
// capacities fall back to the defaults.
type GenerateOptions struct {
	IntervalHours   int
	PrimaryCapacity *int
	ReserveCapacity *int
}

func capacities(primary, reserve *int) (int, int, error) {
	p, r := DefaultCapacity, DefaultCapacity
	if primary != nil {
		p = *primary
	}
	if reserve != nil {
		r = *reserve
	}
	if p < 0 || p > MaxCapacity {
		return 0, 0, invalid("primary_capacity", fmt.Sprintf("must be between 0 and %d", MaxCapacity))
	}
	if r < 0 || r > MaxCapacity {
		return 0, 0, invalid("reserve_capacity", fmt.Sprintf("must be between 0 and %d", MaxCapacity))
	}
	if p+r == 0 {
		return 0, 0, invalid("primary_capacity", "a session needs at least one slot")
	}
	return p, r, nil
}

// GenerateSessions tiles every day of the event with sessions of
// IntervalHours, starting at 00:00.  The last session of a day may wrap
// past midnight.  All sessions are stored in one transaction; it returns
// how many were created.
func (s *EventAdmin) GenerateSessions(ctx context.Context, eventID uint64, opts GenerateOptions) (int, error) {
	interval := opts.IntervalHours
	if interval == 0 {
		interval = DefaultIntervalHours
	}
	if interval < 1 || interval > 24 {
		return 0, invalid("interval_hours", "must be between 1 and 24")
	}
	primary, reserve, err := capacities(opts.PrimaryCapacity, opts.ReserveCapacity)
	if err != nil {
		return 0, err
	}
	ev, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return 0, storeErr("load event", err)
	}
	start, err := time.Parse(dateLayout, ev.StartDate)
	if err != nil {
		return 0, &InternalError{Op: "parse event start", Err: err}
	}
	end, err := time.Parse(dateLayout, ev.EndDate)
	if err != nil {
		return 0, &InternalError{Op: "parse event end", Err: err}
	}

	sessions := TileSessions(eventID, start, end, interval, primary, reserve)
	n, err := s.sessions.CreateBatch(ctx, sessions)
	if err != nil {
		slog.Error("session generation failed", "event_id", eventID, "err", err)
		return 0, storeErr("create sessions", err)
	}
	s.metrics.SessionsGenerated(n)
	slog.Info("sessions generated", "event_id", eventID, "count", n, "interval_hours", interval)
	return n, nil
}

// TileSessions lays out sessions of interval hours over every day from
// start to end inclusive.
func TileSessions(eventID uint64, start, end time.Time, interval, primary, reserve int) []model.Session {
	var sessions []model.Session
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		date := d.Format(dateLayout)
		for h := 0; h < 24; h += interval {
			sessions = append(sessions, model.Session{
				EventID:         eventID,
				Date:            date,
				StartTime:       fmt.Sprintf("%02d:00", h),
				EndTime:         fmt.Sprintf("%02d:00", (h+interval)%24),
				PrimaryCapacity: primary,
				ReserveCapacity: reserve,
			})
		}
	}
	return sessions
}

// NewSession describes a manually scheduled session.
type NewSession struct {
	Date            string
	StartTime       string
	EndTime         string
	Activity        *string
	PrimaryCapacity *int
	ReserveCapacity *int
}

// AddSession stores one session outside the generated grid and returns its id.
func (s *EventAdmin) AddSession(ctx context.Context, eventID uint64, in NewSession) (uint64, error) {
	date, err := parseDate("date", in.Date)
	if err != nil {
		return 0, err
	}
	if !validTime(in.StartTime) {
		return 0, invalid("start_time", "must be a time in HH:MM format")
	}
	if !validTime(in.EndTime) {
		return 0, invalid("end_time", "must be a time in HH:MM format")
	}
	primary, reserve, err := capacities(in.PrimaryCapacity, in.ReserveCapacity)
	if err != nil {
		return 0, err
	}
	var activity *string
	if in.Activity != nil {
		if a := strings.TrimSpace(*in.Activity); a != "" {
			if utf8.RuneCountInString(a) > 100 {
				return 0, invalid("activity", "activity must be at most 100 characters")
			}
			activity = &a
		}
	}
	ok, err := s.events.Exists(ctx, eventID)
	if err != nil {
		return 0, storeErr("load event", err)
	}
	if !ok {
		return 0, &NotFoundError{Resource: "event"}
	}
	sess := model.Session{
		EventID:         eventID,
		Date:            date.Format(dateLayout),
		StartTime:       in.StartTime,
		EndTime:         in.EndTime,
		Activity:        activity,
		PrimaryCapacity: primary,
		ReserveCapacity: reserve,
	}
	if err := s.sessions.Create(ctx, &sess); err != nil {
		return 0, storeErr("create session", err)
	}
	return sess.ID, nil
}

// SetOpen opens or closes an event.  Opening closes every other event.
func (s *EventAdmin) SetOpen(ctx context.Context, eventID uint64, open bool) error {
	if err := s.events.SetOpen(ctx, eventID, open); err != nil {
		return storeErr("set open", err)
	}
	slog.Info("event open state changed", "event_id", eventID, "open", open)
	return nil
}

// Rename changes an event's display name.
func (s *EventAdmin) Rename(ctx context.Context, eventID uint64, name string) error {
	name, err := cleanEventName(name)
	if err != nil {
		return err
	}
	return storeErr("rename event", s.events.Rename(ctx, eventID, name))
}

// EventPatch carries the optional fields of PUT /admin/event/:id.
type EventPatch struct {
	Name *string
	Open *bool
}

// Update applies a rename and/or open flag change in one transaction.
func (s *EventAdmin) Update(ctx context.Context, eventID uint64, p EventPatch) error {
	if p.Name == nil && p.Open == nil {
		return invalid("body", "nothing to update")
	}
	u := repository.EventUpdate{Open: p.Open}
	if p.Name != nil {
		name, err := cleanEventName(*p.Name)
		if err != nil {
			return err
		}
		u.Name = &name
	}
	if err := s.events.Update(ctx, eventID, u); err != nil {
		return storeErr("update event", err)
	}
	return nil
}

// DeleteEvent removes an event together with its sessions and claims.
func (s *EventAdmin) DeleteEvent(ctx context.Context, eventID uint64) error {
	if err := s.events.Delete(ctx, eventID); err != nil {
		return storeErr("delete event", err)
	}
	slog.Info("event deleted", "event_id", eventID)
	return nil
}

// ListEvents returns all events, newest first.
func (s *EventAdmin) ListEvents(ctx context.Context) ([]model.Event, error) {
	events, err := s.events.List(ctx)
	if err != nil {
		return nil, storeErr("list events", err)
	}
	return events, nil
}

// Board returns the open event with every session and slot.  When no event
// is open the board has a nil Event and no sessions.
func (s *EventAdmin) Board(ctx context.Context) (model.EventBoard, error) {
	board := model.EventBoard{Sessions: []model.SessionView{}}
	ev, err := s.events.CurrentOpen(ctx)
	if err != nil {
		return board, storeErr("load open event", err)
	}
	if ev == nil {
		return board, nil
	}
	sessions, err := s.sessions.ListByEvent(ctx, ev.ID)
	if err != nil {
		return board, storeErr("list sessions", err)
	}
	claims, err := s.slots.ListClaimedByEvent(ctx, ev.ID)
	if err != nil {
		return board, storeErr("list claims", err)
	}
	bySession := make(map[uint64][]model.SlotClaim, len(sessions))
	for _, c := range claims {
		bySession[c.SessionID] = append(bySession[c.SessionID], c)
	}
	board.Event = ev
	board.Sessions = make([]model.SessionView, 0, len(sessions))
	for _, sess := range sessions {
		board.Sessions = append(board.Sessions, model.NewSessionView(sess, bySession[sess.ID]))
	}
	return board, nil
}

// Summary counts the slots each volunteer holds in the open event.  Names
// are grouped case-insensitively; the first spelling seen is reported.
// Rows are ordered by total descending, then name.
func (s *EventAdmin) Summary(ctx context.Context) ([]model.VolunteerSummary, error) {
	out := []model.VolunteerSummary{}
	ev, err := s.events.CurrentOpen(ctx)
	if err != nil {
		return out, storeErr("load open event", err)
	}
	if ev == nil {
		return out, nil
	}
	claims, err := s.slots.ListClaimedByEvent(ctx, ev.ID)
	if err != nil {
		return out, storeErr("list claims", err)
	}
	idx := map[string]int{}
	for _, c := range claims {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			continue
		}
		k := strings.ToLower(name)
		i, ok := idx[k]
		if !ok {
			i = len(out)
			idx[k] = i
			out = append(out, model.VolunteerSummary{Name: name})
		}
		out[i].Total++
		if c.Kind == model.SlotReserve {
			out[i].Reserve++
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, nil
}

// CreateAdmin adds an admin account and returns its id.
func (s *EventAdmin) CreateAdmin(ctx context.Context, name, email, password string) (uint64, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > 100 {
		return 0, invalid("name", "name is required and at most 100 characters")
	}
	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil || addr.Address != strings.TrimSpace(email) || len(addr.Address) > 255 {
		return 0, invalid("email", "a valid email address is required")
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return 0, invalid("password", fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}
	if len(password) > MaxPasswordBytes {
		return 0, invalid("password", fmt.Sprintf("password must be at most %d bytes", MaxPasswordBytes))
	}
	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return 0, &InternalError{Op: "hash password", Err: err}
	}
	id, err := s.admins.Create(ctx, name, addr.Address, hash)
	if err != nil {
		return 0, storeErr("create admin", err)
	}
	slog.Info("admin created", "admin_id", id)
	return id, nil
}

// ListAdmins returns every admin without password hashes.
func (s *EventAdmin) ListAdmins(ctx context.Context) ([]model.Admin, error) {
	admins, err := s.admins.List(ctx)
	if err != nil {
		return nil, storeErr("list admins", err)
	}
	return admins, nil
}

// Authenticate checks an email/password pair.  Unknown emails and wrong
// passwords both yield AuthError.
func (s *EventAdmin) Authenticate(ctx context.Context, email, password string) (model.Admin, error) {
	a, err := s.admins.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrAdminNotFound) {
			auth.VerifyPassword(s.dummyHash, password)
			s.metrics.Login(false)
			return model.Admin{}, &AuthError{}
		}
		return model.Admin{}, storeErr("load admin", err)
	}
	if !auth.VerifyPassword(a.PasswordHash, password) {
		s.metrics.Login(false)
		return model.Admin{}, &AuthError{}
	}
	s.metrics.Login(true)
	return a, nil
}

// Admin loads an admin by id; used to confirm a token still maps to an
// existing account.
func (s *EventAdmin) Admin(ctx context.Context, id uint64) (model.Admin, error) {
	a, err := s.admins.GetByID(ctx, id)
	if err != nil {
		return model.Admin{}, storeErr("load admin", err)
	}
	return a, nil
}
