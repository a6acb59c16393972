package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/abdoElHodaky/sasscolmng-sub001/internal/dto"
	"github.com/abdoElHodaky/sasscolmng-sub001/internal/models"
)

// ResourceRepository loads the scheduling resource snapshot for a school.
type ResourceRepository struct {
	db *sqlx.DB
}

// NewResourceRepository creates a new resource repository.
func NewResourceRepository(db *sqlx.DB) *ResourceRepository {
	return &ResourceRepository{db: db}
}

// Snapshot loads every active resource collection for one school in a single
// pass, with teacher availability windows attached to their teachers.
func (r *ResourceRepository) Snapshot(ctx context.Context, schoolID string) (*dto.ResourceSet, error) {
	teachers, err := r.ListTeachers(ctx, schoolID)
	if err != nil {
		return nil, err
	}
	rooms, err := r.ListRooms(ctx, schoolID)
	if err != nil {
		return nil, err
	}
	classes, err := r.ListClasses(ctx, schoolID)
	if err != nil {
		return nil, err
	}
	subjects, err := r.ListSubjects(ctx, schoolID)
	if err != nil {
		return nil, err
	}
	slots, err := r.ListTimeSlots(ctx, schoolID)
	if err != nil {
		return nil, err
	}
	return &dto.ResourceSet{
		Teachers:  teachers,
		Rooms:     rooms,
		Classes:   classes,
		Subjects:  subjects,
		TimeSlots: slots,
	}, nil
}

// ListTeachers returns active teachers with their availability windows.
func (r *ResourceRepository) ListTeachers(ctx context.Context, schoolID string) ([]models.Teacher, error) {
	const query = `SELECT id, email, full_name, active, created_at, updated_at
FROM teachers WHERE school_id = $1 AND active = true ORDER BY full_name`
	var teachers []models.Teacher
	if err := r.db.SelectContext(ctx, &teachers, query, schoolID); err != nil {
		return nil, fmt.Errorf("list teachers: %w", err)
	}
	if len(teachers) == 0 {
		return teachers, nil
	}

	const windowQuery = `SELECT w.id, w.teacher_id, w.day_of_week, w.start_time, w.end_time
FROM teacher_availability_windows w
JOIN teachers t ON t.id = w.teacher_id
WHERE t.school_id = $1 ORDER BY w.teacher_id, w.day_of_week, w.start_time`
	var windows []models.AvailabilityWindow
	if err := r.db.SelectContext(ctx, &windows, windowQuery, schoolID); err != nil {
		return nil, fmt.Errorf("list availability windows: %w", err)
	}

	byTeacher := make(map[string][]models.AvailabilityWindow, len(teachers))
	for _, window := range windows {
		byTeacher[window.TeacherID] = append(byTeacher[window.TeacherID], window)
	}
	for i := range teachers {
		teachers[i].Availability = byTeacher[teachers[i].ID]
	}
	return teachers, nil
}

// ListRooms returns active rooms ordered by capacity.
func (r *ResourceRepository) ListRooms(ctx context.Context, schoolID string) ([]models.Room, error) {
	const query = `SELECT id, name, type, capacity, active
FROM rooms WHERE school_id = $1 AND active = true ORDER BY capacity, name`
	var rooms []models.Room
	if err := r.db.SelectContext(ctx, &rooms, query, schoolID); err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	return rooms, nil
}

// ListClasses returns classes with their current enrollment counts.
func (r *ResourceRepository) ListClasses(ctx context.Context, schoolID string) ([]models.Class, error) {
	const query = `SELECT c.id, c.name, c.grade,
       (SELECT COUNT(*) FROM enrollments e WHERE e.class_id = c.id AND e.active = true) AS current_enrollment
FROM classes c WHERE c.school_id = $1 ORDER BY c.grade, c.name`
	var classes []models.Class
	if err := r.db.SelectContext(ctx, &classes, query, schoolID); err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}
	return classes, nil
}

// ListSubjects returns the school's subject catalog.
func (r *ResourceRepository) ListSubjects(ctx context.Context, schoolID string) ([]models.Subject, error) {
	const query = `SELECT id, code, name FROM subjects WHERE school_id = $1 ORDER BY code`
	var subjects []models.Subject
	if err := r.db.SelectContext(ctx, &subjects, query, schoolID); err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	return subjects, nil
}

// ListTimeSlots returns the timetable grid, inactive slots included so
// validation can flag sessions that still reference them.
func (r *ResourceRepository) ListTimeSlots(ctx context.Context, schoolID string) ([]models.TimeSlot, error) {
	const query = `SELECT id, day_of_week, start_time, end_time, active
FROM time_slots WHERE school_id = $1 ORDER BY day_of_week, start_time`
	var slots []models.TimeSlot
	if err := r.db.SelectContext(ctx, &slots, query, schoolID); err != nil {
		return nil, fmt.Errorf("list time slots: %w", err)
	}
	return slots, nil
}

// ListPreferences returns the school's soft scheduling preferences.
func (r *ResourceRepository) ListPreferences(ctx context.Context, schoolID string) ([]models.SchedulePreference, error) {
	const query = `SELECT id, school_id, type, entity_id, weight, params, created_at
FROM schedule_preferences WHERE school_id = $1 ORDER BY created_at`
	var prefs []models.SchedulePreference
	if err := r.db.SelectContext(ctx, &prefs, query, schoolID); err != nil {
		return nil, fmt.Errorf("list schedule preferences: %w", err)
	}
	return prefs, nil
}

// ListRules returns the school's scheduling rules, active and inactive.
func (r *ResourceRepository) ListRules(ctx context.Context, schoolID string) ([]models.SchedulingRule, error) {
	const query = `SELECT id, school_id, type, entity_id, weight, params, active
FROM scheduling_rules WHERE school_id = $1 ORDER BY type`
	var rules []models.SchedulingRule
	if err := r.db.SelectContext(ctx, &rules, query, schoolID); err != nil {
		return nil, fmt.Errorf("list scheduling rules: %w", err)
	}
	return rules, nil
}
