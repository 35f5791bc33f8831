package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/danielnymberg/bokabuttle/internal/model"
)

// AdminRepo persists administrator accounts.
type AdminRepo struct{ db *sql.DB }

func NewAdminRepo(db *sql.DB) *AdminRepo { return &AdminRepo{db: db} }

func normalizeEmail(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

// Create inserts an admin with an already hashed password and returns its ID.
func (r *AdminRepo) Create(ctx context.Context, name, email, passwordHash string) (uint64, error) {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO admins (name, email, password_hash) VALUES (?,?,?)",
		strings.TrimSpace(name), normalizeEmail(email), passwordHash)
	if err != nil {
		if isDuplicateKey(err) {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches an admin by normalized email.
func (r *AdminRepo) GetByEmail(ctx context.Context, email string) (model.Admin, error) {
	var a model.Admin
	err := r.db.QueryRowContext(ctx,
		"SELECT id,name,email,password_hash,created_at FROM admins WHERE email=? LIMIT 1",
		normalizeEmail(email)).Scan(&a.ID, &a.Name, &a.Email, &a.PasswordHash, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Admin{}, ErrAdminNotFound
	}
	return a, err
}

// GetByID fetches an admin by id.
func (r *AdminRepo) GetByID(ctx context.Context, id uint64) (model.Admin, error) {
	var a model.Admin
	err := r.db.QueryRowContext(ctx,
		"SELECT id,name,email,password_hash,created_at FROM admins WHERE id=? LIMIT 1",
		id).Scan(&a.ID, &a.Name, &a.Email, &a.PasswordHash, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Admin{}, ErrAdminNotFound
	}
	return a, err
}

// List returns all admins ordered by id.  Password hashes are not loaded.
func (r *AdminRepo) List(ctx context.Context) ([]model.Admin, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id,name,email,created_at FROM admins ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	admins := make([]model.Admin, 0)
	for rows.Next() {
		var a model.Admin
		if err := rows.Scan(&a.ID, &a.Name, &a.Email, &a.CreatedAt); err != nil {
			return nil, err
		}
		admins = append(admins, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return admins, nil
}
