package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/danielnymberg/bokabuttle/internal/model"
)

// SlotRepo stores slot claims in session_slots.  A row is only created the
// first time a slot is written; a missing row reads as a free slot.  Every
// write is expressed against the structured key (session, kind, index) and
// never interpolates caller input into SQL.
type SlotRepo struct {
	db *sql.DB
}

// NewSlotRepo returns a new SlotRepo bound to the provided database.
func NewSlotRepo(db *sql.DB) *SlotRepo { return &SlotRepo{db: db} }

// Get returns the current claim for key.  A missing row or a NULL name
// yields a claim with an empty Name.
func (r *SlotRepo) Get(ctx context.Context, key model.SlotKey) (model.SlotClaim, error) {
	claim := model.SlotClaim{SlotKey: key}
	var name sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT name FROM session_slots WHERE session_id = ? AND kind = ? AND slot_index = ?`,
		key.SessionID, string(key.Kind), key.Index).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return claim, nil
	}
	if err != nil {
		return model.SlotClaim{}, err
	}
	claim.Name = name.String
	return claim, nil
}

// ClaimIfEmpty writes name into the slot only if nobody holds it.  The
// check happens inside the storage engine: first a conditional UPDATE that
// matches only a NULL name, then, when no row was touched, an INSERT that
// the primary key rejects if the row exists.  It returns false when the
// slot is held by someone else, including when a concurrent writer won.
func (r *SlotRepo) ClaimIfEmpty(ctx context.Context, key model.SlotKey, name string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE session_slots SET name = ? WHERE session_id = ? AND kind = ? AND slot_index = ? AND name IS NULL`,
		name, key.SessionID, string(key.Kind), key.Index)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 1 {
		return true, nil
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO session_slots (session_id, kind, slot_index, name) VALUES (?, ?, ?, ?)`,
		key.SessionID, string(key.Kind), key.Index, name)
	if err != nil {
		if isDuplicateKey(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Set writes name unconditionally.  An empty name clears the slot; the row
// is kept as an empty placeholder.
func (r *SlotRepo) Set(ctx context.Context, key model.SlotKey, name string) error {
	var v any
	if name != "" {
		v = name
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO session_slots (session_id, kind, slot_index, name) VALUES (?, ?, ?, ?)
		 ON DUPLICATE KEY UPDATE name = ?`,
		key.SessionID, string(key.Kind), key.Index, v, v)
	return err
}

// ListClaimedByEvent returns every non-empty claim across the sessions of
// an event.
func (r *SlotRepo) ListClaimedByEvent(ctx context.Context, eventID uint64) ([]model.SlotClaim, error) {
	const q = `SELECT ss.session_id, ss.kind, ss.slot_index, ss.name
	           FROM session_slots ss
	           JOIN sessions s ON s.id = ss.session_id
	           WHERE s.event_id = ? AND ss.name IS NOT NULL AND ss.name <> ''
	           ORDER BY ss.session_id, ss.kind, ss.slot_index`
	rows, err := r.db.QueryContext(ctx, q, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	claims := make([]model.SlotClaim, 0)
	for rows.Next() {
		var (
			c    model.SlotClaim
			kind string
		)
		if err := rows.Scan(&c.SessionID, &kind, &c.Index, &c.Name); err != nil {
			return nil, err
		}
		c.Kind = model.SlotKind(kind)
		claims = append(claims, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return claims, nil
}
