package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminRepoCreateNormalizesEmail(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO admins")).
		WithArgs("Kim", "kim@example.org", "hash").
		WillReturnResult(sqlmock.NewResult(3, 1))

	id, err := NewAdminRepo(db).Create(context.Background(), " Kim ", " Kim@Example.org", "hash")
	require.NoError(t, err)
	assert.Equal(t, uint64(3), id)
}

func TestAdminRepoCreateDuplicate(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO admins")).
		WillReturnError(errDuplicate)

	_, err := NewAdminRepo(db).Create(context.Background(), "Kim", "kim@example.org", "hash")
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestAdminRepoGetByEmail(t *testing.T) {
	db, mock := newMock(t)
	now := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta("FROM admins WHERE email=?")).
		WithArgs("kim@example.org").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "password_hash", "created_at"}).
			AddRow(3, "Kim", "kim@example.org", "hash", now))
	mock.ExpectQuery(regexp.QuoteMeta("FROM admins WHERE email=?")).
		WithArgs("nobody@example.org").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "password_hash", "created_at"}))

	repo := NewAdminRepo(db)
	a, err := repo.GetByEmail(context.Background(), "KIM@example.org")
	require.NoError(t, err)
	assert.Equal(t, "hash", a.PasswordHash)

	_, err = repo.GetByEmail(context.Background(), "nobody@example.org")
	assert.ErrorIs(t, err, ErrAdminNotFound)
}

func TestAdminRepoList(t *testing.T) {
	db, mock := newMock(t)
	now := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id,name,email,created_at FROM admins ORDER BY id")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "created_at"}).
			AddRow(1, "A", "a@x.se", now).
			AddRow(2, "B", "b@x.se", now))

	admins, err := NewAdminRepo(db).List(context.Background())
	require.NoError(t, err)
	require.Len(t, admins, 2)
	assert.Empty(t, admins[0].PasswordHash)
}
