package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/danielnymberg/bokabuttle/internal/model"
)

// EventRepo provides data access to the events table.
type EventRepo struct {
	db *sql.DB
}

// NewEventRepo returns a new EventRepo bound to the given database.
func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

// EventUpdate lists the mutable fields of an event.  Nil fields are left
// unchanged.
type EventUpdate struct {
	Name *string
	Open *bool
}

const eventColumns = `id, name, is_open, start_date, end_date, created_at`

func scanEvent(row scanner) (model.Event, error) {
	var (
		e          model.Event
		start, end time.Time
	)
	if err := row.Scan(&e.ID, &e.Name, &e.IsOpen, &start, &end, &e.CreatedAt); err != nil {
		return model.Event{}, err
	}
	e.StartDate = start.Format(dateLayout)
	e.EndDate = end.Format(dateLayout)
	return e, nil
}

// Create inserts a closed event and returns its id.  Dates must already be
// validated YYYY-MM-DD strings.
func (r *EventRepo) Create(ctx context.Context, name, startDate, endDate string) (uint64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO events (name, is_open, start_date, end_date) VALUES (?, 0, ?, ?)`,
		name, startDate, endDate)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByID returns the event with the given id or ErrEventNotFound.
func (r *EventRepo) GetByID(ctx context.Context, id uint64) (model.Event, error) {
	e, err := scanEvent(r.db.QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Event{}, ErrEventNotFound
	}
	return e, err
}

// CurrentOpen returns the most recently created open event, or nil when no
// event is open.
func (r *EventRepo) CurrentOpen(ctx context.Context) (*model.Event, error) {
	e, err := scanEvent(r.db.QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE is_open = 1 ORDER BY created_at DESC LIMIT 1`))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// List returns every event, newest first.
func (r *EventRepo) List(ctx context.Context) ([]model.Event, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+eventColumns+` FROM events ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	events := make([]model.Event, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

// Update applies u to the event inside one transaction.  Opening an event
// closes every other event first so that at most one is open; the unique
// key on events.open_marker rejects a concurrent open of a different event,
// which is reported as ErrConflict.
func (r *EventRepo) Update(ctx context.Context, id uint64, u EventUpdate) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var locked uint64
	if err := tx.QueryRowContext(ctx, `SELECT id FROM events WHERE id = ? FOR UPDATE`, id).Scan(&locked); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrEventNotFound
		}
		return err
	}
	if u.Name != nil {
		if _, err := tx.ExecContext(ctx, `UPDATE events SET name = ? WHERE id = ?`, *u.Name, id); err != nil {
			return err
		}
	}
	if u.Open != nil {
		if *u.Open {
			if _, err := tx.ExecContext(ctx, `UPDATE events SET is_open = 0 WHERE is_open = 1 AND id <> ?`, id); err != nil {
				return err
			}
		}
		if _, err := tx.ExecContext(ctx, `UPDATE events SET is_open = ? WHERE id = ?`, *u.Open, id); err != nil {
			if isDuplicateKey(err) {
				return ErrConflict
			}
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		if isDuplicateKey(err) {
			return ErrConflict
		}
		return err
	}
	committed = true
	return nil
}

// SetOpen opens or closes an event.
func (r *EventRepo) SetOpen(ctx context.Context, id uint64, open bool) error {
	return r.Update(ctx, id, EventUpdate{Open: &open})
}

// Rename changes the display name of an event.
func (r *EventRepo) Rename(ctx context.Context, id uint64, name string) error {
	return r.Update(ctx, id, EventUpdate{Name: &name})
}

// Delete removes an event.  Sessions and slot claims go with it through
// ON DELETE CASCADE.  Returns ErrEventNotFound when nothing was deleted.
func (r *EventRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrEventNotFound
	}
	return nil
}

// Exists reports whether an event with the given id exists.
func (r *EventRepo) Exists(ctx context.Context, id uint64) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM events WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
