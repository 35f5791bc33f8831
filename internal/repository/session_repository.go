package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/danielnymberg/bokabuttle/internal/model"
)

// SessionRepo provides data access to the sessions table.
type SessionRepo struct {
	db *sql.DB
}

// NewSessionRepo constructs a SessionRepo given a DB handle.
func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{db: db} }

// batchChunk bounds the rows per INSERT statement so a long event stays
// well below the placeholder limit of a prepared statement.
const batchChunk = 500

const sessionColumns = `id, event_id, session_date, start_time, end_time, activity, primary_capacity, reserve_capacity`

func scanSession(row scanner, extra ...any) (model.Session, error) {
	var (
		s        model.Session
		date     time.Time
		activity sql.NullString
	)
	dest := append([]any{&s.ID, &s.EventID, &date, &s.StartTime, &s.EndTime, &activity, &s.PrimaryCapacity, &s.ReserveCapacity}, extra...)
	if err := row.Scan(dest...); err != nil {
		return model.Session{}, err
	}
	s.Date = date.Format(dateLayout)
	if activity.Valid {
		a := activity.String
		s.Activity = &a
	}
	return s, nil
}

func sessionArgs(s model.Session) []any {
	var activity any
	if s.Activity != nil {
		activity = *s.Activity
	}
	return []any{s.EventID, s.Date, s.StartTime, s.EndTime, activity, s.PrimaryCapacity, s.ReserveCapacity}
}

const insertSessionPrefix = `INSERT INTO sessions (event_id, session_date, start_time, end_time, activity, primary_capacity, reserve_capacity) VALUES `
const sessionPlaceholders = `(?, ?, ?, ?, ?, ?, ?)`

// Create inserts one session and populates its generated ID.
func (r *SessionRepo) Create(ctx context.Context, s *model.Session) error {
	res, err := r.db.ExecContext(ctx, insertSessionPrefix+sessionPlaceholders, sessionArgs(*s)...)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	return nil
}

// CreateBatch inserts all sessions in a single transaction using multi-row
// INSERT statements.  Either every session is stored or none is.  It
// returns the number of sessions created.
func (r *SessionRepo) CreateBatch(ctx context.Context, sessions []model.Session) (int, error) {
	if len(sessions) == 0 {
		return 0, nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	for start := 0; start < len(sessions); start += batchChunk {
		end := min(start+batchChunk, len(sessions))
		if err := r.createBulkTx(ctx, tx, sessions[start:end]); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	committed = true
	return len(sessions), nil
}

func (r *SessionRepo) createBulkTx(ctx context.Context, tx *sql.Tx, sessions []model.Session) error {
	placeholders := make([]string, 0, len(sessions))
	args := make([]any, 0, len(sessions)*7)
	for _, s := range sessions {
		placeholders = append(placeholders, sessionPlaceholders)
		args = append(args, sessionArgs(s)...)
	}
	_, err := tx.ExecContext(ctx, insertSessionPrefix+strings.Join(placeholders, ","), args...)
	return err
}

// GetWithEventState returns the session together with the open flag of its
// event.  Returns ErrSessionNotFound when the session does not exist.
func (r *SessionRepo) GetWithEventState(ctx context.Context, id uint64) (model.Session, bool, error) {
	const q = `SELECT s.id, s.event_id, s.session_date, s.start_time, s.end_time, s.activity,
	                  s.primary_capacity, s.reserve_capacity, e.is_open
	           FROM sessions s
	           JOIN events e ON e.id = s.event_id
	           WHERE s.id = ?`
	var open bool
	s, err := scanSession(r.db.QueryRowContext(ctx, q, id), &open)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Session{}, false, ErrSessionNotFound
	}
	if err != nil {
		return model.Session{}, false, err
	}
	return s, open, nil
}

// ListByEvent returns the sessions of an event ordered chronologically.
func (r *SessionRepo) ListByEvent(ctx context.Context, eventID uint64) ([]model.Session, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE event_id = ? ORDER BY session_date, start_time, id`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	sessions := make([]model.Session, 0)
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}
