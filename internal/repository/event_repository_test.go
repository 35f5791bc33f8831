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

func eventRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "is_open", "start_date", "end_date", "created_at"})
}

func TestEventRepoCreate(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO events (name, is_open, start_date, end_date)")).
		WithArgs("Vinterbränning", "2025-01-10", "2025-01-12").
		WillReturnResult(sqlmock.NewResult(7, 1))

	id, err := NewEventRepo(db).Create(context.Background(), "Vinterbränning", "2025-01-10", "2025-01-12")
	require.NoError(t, err)
	assert.Equal(t, uint64(7), id)
}

func TestEventRepoGetByID(t *testing.T) {
	db, mock := newMock(t)
	created := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("FROM events WHERE id = ?")).
		WithArgs(3).
		WillReturnRows(eventRows().AddRow(3, "Höst", true,
			time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2025, 10, 3, 0, 0, 0, 0, time.UTC), created))
	mock.ExpectQuery(regexp.QuoteMeta("FROM events WHERE id = ?")).
		WithArgs(4).
		WillReturnRows(eventRows())

	repo := NewEventRepo(db)
	e, err := repo.GetByID(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, "Höst", e.Name)
	assert.True(t, e.IsOpen)
	assert.Equal(t, "2025-10-01", e.StartDate)
	assert.Equal(t, "2025-10-03", e.EndDate)
	assert.Equal(t, created, e.CreatedAt)

	_, err = repo.GetByID(context.Background(), 4)
	assert.ErrorIs(t, err, ErrEventNotFound)
}

func TestEventRepoCurrentOpenNone(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE is_open = 1 ORDER BY created_at DESC LIMIT 1")).
		WillReturnRows(eventRows())

	e, err := NewEventRepo(db).CurrentOpen(context.Background())
	require.NoError(t, err)
	assert.Nil(t, e)
}

func TestEventRepoSetOpenClosesOthers(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM events WHERE id = ? FOR UPDATE")).
		WithArgs(2).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE events SET is_open = 0 WHERE is_open = 1 AND id <> ?")).
		WithArgs(2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE events SET is_open = ? WHERE id = ?")).
		WithArgs(true, 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, NewEventRepo(db).SetOpen(context.Background(), 2, true))
}

func TestEventRepoSetOpenConflict(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs(2).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE events SET is_open = 0")).
		WithArgs(2).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE events SET is_open = ? WHERE id = ?")).
		WithArgs(true, 2).
		WillReturnError(errDuplicate)
	mock.ExpectRollback()

	err := NewEventRepo(db).SetOpen(context.Background(), 2, true)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestEventRepoCloseDoesNotTouchOthers(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(5))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE events SET is_open = ? WHERE id = ?")).
		WithArgs(false, 5).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, NewEventRepo(db).SetOpen(context.Background(), 5, false))
}

func TestEventRepoRenameMissing(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs(9).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	err := NewEventRepo(db).Rename(context.Background(), 9, "x")
	assert.ErrorIs(t, err, ErrEventNotFound)
}

func TestEventRepoDelete(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM events WHERE id = ?")).
		WithArgs(1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM events WHERE id = ?")).
		WithArgs(2).
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewEventRepo(db)
	require.NoError(t, repo.Delete(context.Background(), 1))
	assert.ErrorIs(t, repo.Delete(context.Background(), 2), ErrEventNotFound)
}

func TestEventRepoExists(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM events WHERE id = ?")).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM events WHERE id = ?")).
		WithArgs(2).
		WillReturnRows(sqlmock.NewRows([]string{"1"}))

	repo := NewEventRepo(db)
	ok, err := repo.Exists(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = repo.Exists(context.Background(), 2)
	require.NoError(t, err)
	assert.False(t, ok)
}
