package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielnymberg/bokabuttle/internal/model"
)

func TestSessionRepoCreate(t *testing.T) {
	db, mock := newMock(t)
	activity := "firing"
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO sessions")).
		WithArgs(1, "2025-03-01", "18:00", "00:00", "firing", 3, 1).
		WillReturnResult(sqlmock.NewResult(42, 1))

	s := &model.Session{EventID: 1, Date: "2025-03-01", StartTime: "18:00", EndTime: "00:00",
		Activity: &activity, PrimaryCapacity: 3, ReserveCapacity: 1}
	require.NoError(t, NewSessionRepo(db).Create(context.Background(), s))
	assert.Equal(t, uint64(42), s.ID)
}

func TestSessionRepoCreateBatchChunks(t *testing.T) {
	db, mock := newMock(t)
	sessions := make([]model.Session, batchChunk+3)
	for i := range sessions {
		sessions[i] = model.Session{EventID: 1, Date: "2025-03-01", StartTime: "00:00", EndTime: "06:00",
			PrimaryCapacity: 2, ReserveCapacity: 2}
	}
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO sessions")).
		WillReturnResult(sqlmock.NewResult(1, batchChunk))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO sessions")).
		WithArgs(
			1, "2025-03-01", "00:00", "06:00", nil, 2, 2,
			1, "2025-03-01", "00:00", "06:00", nil, 2, 2,
			1, "2025-03-01", "00:00", "06:00", nil, 2, 2,
		).
		WillReturnResult(sqlmock.NewResult(501, 3))
	mock.ExpectCommit()

	n, err := NewSessionRepo(db).CreateBatch(context.Background(), sessions)
	require.NoError(t, err)
	assert.Equal(t, len(sessions), n)
}

func TestSessionRepoCreateBatchRollsBack(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO sessions")).
		WillReturnError(errors.New("boom"))
	mock.ExpectRollback()

	_, err := NewSessionRepo(db).CreateBatch(context.Background(), []model.Session{{EventID: 1, Date: "2025-03-01"}})
	require.Error(t, err)
}

func TestSessionRepoGetWithEventState(t *testing.T) {
	db, mock := newMock(t)
	cols := []string{"id", "event_id", "session_date", "start_time", "end_time", "activity",
		"primary_capacity", "reserve_capacity", "is_open"}
	mock.ExpectQuery(regexp.QuoteMeta("JOIN events e ON e.id = s.event_id")).
		WithArgs(10).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(10, 1, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), "06:00", "12:00", nil, 2, 2, true))
	mock.ExpectQuery(regexp.QuoteMeta("JOIN events e ON e.id = s.event_id")).
		WithArgs(11).
		WillReturnRows(sqlmock.NewRows(cols))

	repo := NewSessionRepo(db)
	s, open, err := repo.GetWithEventState(context.Background(), 10)
	require.NoError(t, err)
	assert.True(t, open)
	assert.Equal(t, "2025-03-01", s.Date)
	assert.Nil(t, s.Activity)
	assert.Equal(t, 2, s.Capacity(model.SlotPrimary))

	_, _, err = repo.GetWithEventState(context.Background(), 11)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionRepoListByEvent(t *testing.T) {
	db, mock := newMock(t)
	cols := []string{"id", "event_id", "session_date", "start_time", "end_time", "activity",
		"primary_capacity", "reserve_capacity"}
	day := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY session_date, start_time, id")).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(1, 1, day, "00:00", "06:00", nil, 2, 2).
			AddRow(2, 1, day, "06:00", "12:00", "loading", 2, 0))

	sessions, err := NewSessionRepo(db).ListByEvent(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	require.NotNil(t, sessions[1].Activity)
	assert.Equal(t, "loading", *sessions[1].Activity)
}
