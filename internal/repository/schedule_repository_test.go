package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdoElHodaky/sasscolmng-sub001/internal/models"
)

func newScheduleRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestScheduleRepositoryCreateVersioned(t *testing.T) {
	db, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(MAX(version), 0) + 1 FROM schedules WHERE school_id = $1 AND term_id = $2")).
		WithArgs("school-1", "term-1").
		WillReturnRows(sqlmock.NewRows([]string{"next"}).AddRow(3))

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO schedules")).
		WithArgs(sqlmock.AnyArg(), "school-1", "term-1", "Fall draft", 3, string(models.ScheduleStatusDraft), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	payload := &models.Schedule{
		SchoolID: "school-1",
		TermID:   "term-1",
		Name:     "Fall draft",
	}
	err := repo.CreateVersioned(context.Background(), payload)
	require.NoError(t, err)
	assert.Equal(t, 3, payload.Version)
	assert.NotEmpty(t, payload.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryUpdateStatus(t *testing.T) {
	db, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	t.Run("with meta", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta("UPDATE schedules SET status = $1, meta = $2, updated_at = $3 WHERE id = $4")).
			WithArgs(string(models.ScheduleStatusDraft), types.JSONText(`{"reason":"solver failed"}`), sqlmock.AnyArg(), "sch-1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.UpdateStatus(context.Background(), "sch-1", models.ScheduleStatusDraft, types.JSONText(`{"reason":"solver failed"}`))
		require.NoError(t, err)
	})

	t.Run("without meta", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta("UPDATE schedules SET status = $1, updated_at = $2 WHERE id = $3")).
			WithArgs(string(models.ScheduleStatusGenerating), sqlmock.AnyArg(), "sch-1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.UpdateStatus(context.Background(), "sch-1", models.ScheduleStatusGenerating, nil)
		require.NoError(t, err)
	})

	t.Run("unknown schedule", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta("UPDATE schedules SET status = $1, updated_at = $2 WHERE id = $3")).
			WithArgs(string(models.ScheduleStatusDraft), sqlmock.AnyArg(), "ghost").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.UpdateStatus(context.Background(), "ghost", models.ScheduleStatusDraft, nil)
		assert.Error(t, err)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryReplaceSessions(t *testing.T) {
	db, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM scheduled_sessions WHERE schedule_id = $1")).
		WithArgs("sch-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO scheduled_sessions")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO scheduled_sessions")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	sessions := []models.ScheduledSession{
		{SubjectID: "math", ClassID: "c1", TeacherID: "t1", RoomID: "r1", TimeSlotID: "mon-1", Date: "2026-09-07", DurationMinutes: 60, Type: models.SessionTypeLecture},
		{SubjectID: "phys", ClassID: "c1", TeacherID: "t2", RoomID: "r2", TimeSlotID: "mon-2", Date: "2026-09-07", DurationMinutes: 60, Type: models.SessionTypeLecture},
	}
	err := repo.ReplaceSessions(context.Background(), "sch-1", sessions)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryReplaceSessionsRollsBack(t *testing.T) {
	db, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM scheduled_sessions WHERE schedule_id = $1")).
		WithArgs("sch-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO scheduled_sessions")).
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err := repo.ReplaceSessions(context.Background(), "sch-1", []models.ScheduledSession{
		{SubjectID: "math", ClassID: "c1", TeacherID: "t1", RoomID: "r1", TimeSlotID: "mon-1", Date: "2026-09-07"},
	})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryListSessions(t *testing.T) {
	db, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	rows := sqlmock.NewRows([]string{"id", "schedule_id", "subject_id", "class_id", "teacher_id", "room_id", "time_slot_id", "date", "duration_minutes", "type", "priority", "created_at"}).
		AddRow("s1", "sch-1", "math", "c1", "t1", "r1", "mon-1", "2026-09-07", 60, string(models.SessionTypeLecture), 0, time.Now())
	mock.ExpectQuery("SELECT id, schedule_id, subject_id").
		WithArgs("sch-1").
		WillReturnRows(rows)

	sessions, err := repo.ListSessions(context.Background(), "sch-1")
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "mon-1", sessions[0].TimeSlotID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
