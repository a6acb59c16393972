package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/abdoElHodaky/sasscolmng-sub001/internal/models"
	appErrors "github.com/abdoElHodaky/sasscolmng-sub001/pkg/errors"
)

// ScheduleRepository persists versioned schedules and their sessions.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository creates a new schedule repository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// CreateVersioned inserts a schedule assigning the next version for the
// school-term tuple.
func (r *ScheduleRepository) CreateVersioned(ctx context.Context, schedule *models.Schedule) error {
	if schedule == nil {
		return fmt.Errorf("schedule payload is nil")
	}
	if schedule.SchoolID == "" || schedule.TermID == "" {
		return fmt.Errorf("school_id and term_id are required")
	}
	if schedule.ID == "" {
		schedule.ID = uuid.NewString()
	}
	if schedule.Status == "" {
		schedule.Status = models.ScheduleStatusDraft
	}
	if len(schedule.Meta) == 0 {
		schedule.Meta = types.JSONText(`{}`)
	}
	now := time.Now().UTC()
	if schedule.CreatedAt.IsZero() {
		schedule.CreatedAt = now
	}
	schedule.UpdatedAt = now

	const nextVersionQuery = `SELECT COALESCE(MAX(version), 0) + 1 FROM schedules WHERE school_id = $1 AND term_id = $2`
	if err := r.db.GetContext(ctx, &schedule.Version, nextVersionQuery, schedule.SchoolID, schedule.TermID); err != nil {
		return fmt.Errorf("compute next schedule version: %w", err)
	}

	const insertQuery = `
INSERT INTO schedules (id, school_id, term_id, name, version, status, meta, created_at, updated_at)
VALUES (:id, :school_id, :term_id, :name, :version, :status, :meta, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, insertQuery, schedule); err != nil {
		return fmt.Errorf("insert schedule: %w", err)
	}
	return nil
}

// FindByID loads one schedule.
func (r *ScheduleRepository) FindByID(ctx context.Context, id string) (*models.Schedule, error) {
	const query = `SELECT id, school_id, term_id, name, version, status, meta, created_at, updated_at
FROM schedules WHERE id = $1`
	var schedule models.Schedule
	if err := r.db.GetContext(ctx, &schedule, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("schedule %s not found", id))
		}
		return nil, fmt.Errorf("find schedule %s: %w", id, err)
	}
	return &schedule, nil
}

// UpdateStatus transitions a schedule's lifecycle state. A nil meta keeps the
// stored metadata untouched.
func (r *ScheduleRepository) UpdateStatus(ctx context.Context, scheduleID string, status models.ScheduleStatus, meta types.JSONText) error {
	now := time.Now().UTC()
	if meta == nil {
		const query = `UPDATE schedules SET status = $1, updated_at = $2 WHERE id = $3`
		result, err := r.db.ExecContext(ctx, query, status, now, scheduleID)
		if err != nil {
			return fmt.Errorf("update schedule status: %w", err)
		}
		return ensureRowAffected(result, scheduleID)
	}

	const query = `UPDATE schedules SET status = $1, meta = $2, updated_at = $3 WHERE id = $4`
	result, err := r.db.ExecContext(ctx, query, status, meta, now, scheduleID)
	if err != nil {
		return fmt.Errorf("update schedule status: %w", err)
	}
	return ensureRowAffected(result, scheduleID)
}

// ReplaceSessions swaps a schedule's session set atomically.
func (r *ScheduleRepository) ReplaceSessions(ctx context.Context, scheduleID string, sessions []models.ScheduledSession) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin session replace: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const deleteQuery = `DELETE FROM scheduled_sessions WHERE schedule_id = $1`
	if _, err = tx.ExecContext(ctx, deleteQuery, scheduleID); err != nil {
		err = fmt.Errorf("clear scheduled sessions: %w", err)
		return err
	}

	now := time.Now().UTC()
	const insertQuery = `
INSERT INTO scheduled_sessions (id, schedule_id, subject_id, class_id, teacher_id, room_id, time_slot_id, date, duration_minutes, type, priority, created_at)
VALUES (:id, :schedule_id, :subject_id, :class_id, :teacher_id, :room_id, :time_slot_id, :date, :duration_minutes, :type, :priority, :created_at)`
	for i := range sessions {
		session := sessions[i]
		if session.ID == "" {
			session.ID = uuid.NewString()
		}
		session.ScheduleID = scheduleID
		if session.CreatedAt.IsZero() {
			session.CreatedAt = now
		}
		if _, err = tx.NamedExecContext(ctx, insertQuery, session); err != nil {
			err = fmt.Errorf("insert scheduled session: %w", err)
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit session replace: %w", err)
	}
	return nil
}

// ListSessions returns the stored sessions for a schedule.
func (r *ScheduleRepository) ListSessions(ctx context.Context, scheduleID string) ([]models.ScheduledSession, error) {
	const query = `SELECT id, schedule_id, subject_id, class_id, teacher_id, room_id, time_slot_id, date, duration_minutes, type, priority, created_at
FROM scheduled_sessions WHERE schedule_id = $1 ORDER BY date, time_slot_id`
	var sessions []models.ScheduledSession
	if err := r.db.SelectContext(ctx, &sessions, query, scheduleID); err != nil {
		return nil, fmt.Errorf("list scheduled sessions: %w", err)
	}
	return sessions, nil
}

func ensureRowAffected(result interface{ RowsAffected() (int64, error) }, scheduleID string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("schedule %s not found", scheduleID)
	}
	return nil
}
