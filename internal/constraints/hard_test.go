package constraints

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdoElHodaky/sasscolmng-sub001/internal/models"
)

func fixtureInput(sessions []models.ScheduledSession) ContextInput {
	return ContextInput{
		SchoolID:   "school-1",
		ScheduleID: "schedule-1",
		Sessions:   sessions,
		TimeSlots: []models.TimeSlot{
			{ID: "mon-1", DayOfWeek: "MONDAY", StartTime: "08:00", EndTime: "09:00", Active: true},
			{ID: "mon-2", DayOfWeek: "MONDAY", StartTime: "09:00", EndTime: "10:00", Active: true},
			{ID: "mon-3", DayOfWeek: "MONDAY", StartTime: "10:00", EndTime: "11:00", Active: true},
			{ID: "mon-off", DayOfWeek: "MONDAY", StartTime: "11:00", EndTime: "12:00", Active: false},
			{ID: "mon-late", DayOfWeek: "MONDAY", StartTime: "19:00", EndTime: "20:00", Active: true},
		},
		Teachers: []models.Teacher{
			{ID: "t1", FullName: "Alice Carter", Active: true},
			{ID: "t2", FullName: "Bob Nguyen", Active: true, Availability: []models.AvailabilityWindow{
				{ID: "w1", TeacherID: "t2", DayOfWeek: "MONDAY", StartTime: "08:00", EndTime: "10:00"},
			}},
		},
		Rooms: []models.Room{
			{ID: "r1", Name: "Room 101", Type: "CLASSROOM", Capacity: 30, Active: true},
			{ID: "r2", Name: "Lab A", Type: "LAB", Capacity: 20, Active: true},
		},
		Classes: []models.Class{
			{ID: "c1", Name: "10-A", CurrentEnrollment: 25},
			{ID: "c2", Name: "10-B", CurrentEnrollment: 18},
		},
		Subjects: []models.Subject{
			{ID: "math", Code: "MATH", Name: "Mathematics"},
			{ID: "phys", Code: "PHYS", Name: "Physics"},
		},
	}
}

func session(id, teacherID, roomID, classID, subjectID, slotID string) models.ScheduledSession {
	return models.ScheduledSession{
		ID:              id,
		ScheduleID:      "schedule-1",
		SubjectID:       subjectID,
		ClassID:         classID,
		TeacherID:       teacherID,
		RoomID:          roomID,
		TimeSlotID:      slotID,
		Date:            "2026-09-07",
		DurationMinutes: 60,
		Type:            models.SessionTypeLecture,
	}
}

func TestHardEngineCleanSchedule(t *testing.T) {
	ctx := NewContext(fixtureInput([]models.ScheduledSession{
		session("s1", "t1", "r1", "c1", "math", "mon-1"),
		session("s2", "t2", "r2", "c2", "phys", "mon-2"),
	}))
	engine := NewHardEngine(HardEngineConfig{})

	assert.Empty(t, engine.ValidateAll(ctx))
	assert.False(t, engine.HasViolations(ctx))
}

func TestHardEngineDoubleBooking(t *testing.T) {
	t.Run("teacher in two rooms same slot", func(t *testing.T) {
		ctx := NewContext(fixtureInput([]models.ScheduledSession{
			session("s1", "t1", "r1", "c1", "math", "mon-1"),
			session("s2", "t1", "r2", "c2", "phys", "mon-1"),
		}))
		engine := NewHardEngine(HardEngineConfig{})

		violations, err := engine.ValidateConstraint(models.ConstraintTeacherConflict, ctx)
		require.NoError(t, err)
		require.Len(t, violations, 1)
		assert.Equal(t, models.SeverityHigh, violations[0].Severity)
		assert.Equal(t, float64(1000), violations[0].Cost)
		assert.Contains(t, violations[0].AffectedIDs, "t1")
		assert.Contains(t, violations[0].AffectedIDs, "s1")
		assert.Contains(t, violations[0].AffectedIDs, "s2")
	})

	t.Run("room hosting two classes same slot", func(t *testing.T) {
		ctx := NewContext(fixtureInput([]models.ScheduledSession{
			session("s1", "t1", "r1", "c1", "math", "mon-1"),
			session("s2", "t2", "r1", "c2", "phys", "mon-1"),
		}))
		engine := NewHardEngine(HardEngineConfig{})

		violations, err := engine.ValidateConstraint(models.ConstraintRoomConflict, ctx)
		require.NoError(t, err)
		require.Len(t, violations, 1)
		assert.Contains(t, violations[0].AffectedIDs, "r1")
	})

	t.Run("same slot different dates is fine", func(t *testing.T) {
		a := session("s1", "t1", "r1", "c1", "math", "mon-1")
		b := session("s2", "t1", "r1", "c1", "math", "mon-1")
		b.Date = "2026-09-14"
		ctx := NewContext(fixtureInput([]models.ScheduledSession{a, b}))
		engine := NewHardEngine(HardEngineConfig{})

		assert.Empty(t, engine.ValidateAll(ctx))
	})
}

func TestHardEngineTeacherAvailability(t *testing.T) {
	t.Run("explicit window honored", func(t *testing.T) {
		// t2 is only available 08:00-10:00; mon-3 starts at 10:00.
		ctx := NewContext(fixtureInput([]models.ScheduledSession{
			session("s1", "t2", "r1", "c1", "math", "mon-3"),
		}))
		engine := NewHardEngine(HardEngineConfig{})

		violations, err := engine.ValidateConstraint(models.ConstraintTeacherAvailability, ctx)
		require.NoError(t, err)
		require.Len(t, violations, 1)
		assert.Equal(t, float64(800), violations[0].Cost)
		assert.Equal(t, models.SeverityHigh, violations[0].Severity)
	})

	t.Run("default window applies when no records exist", func(t *testing.T) {
		// t1 has no windows; mon-late falls outside the 08:00-18:00 default.
		ctx := NewContext(fixtureInput([]models.ScheduledSession{
			session("s1", "t1", "r1", "c1", "math", "mon-late"),
		}))
		engine := NewHardEngine(HardEngineConfig{})

		violations, err := engine.ValidateConstraint(models.ConstraintTeacherAvailability, ctx)
		require.NoError(t, err)
		assert.Len(t, violations, 1)

		inside := NewContext(fixtureInput([]models.ScheduledSession{
			session("s2", "t1", "r1", "c1", "math", "mon-1"),
		}))
		violations, err = engine.ValidateConstraint(models.ConstraintTeacherAvailability, inside)
		require.NoError(t, err)
		assert.Empty(t, violations)
	})
}

func TestHardEngineRoomCapacity(t *testing.T) {
	// c1 has 25 students, Lab A holds 20.
	ctx := NewContext(fixtureInput([]models.ScheduledSession{
		session("s1", "t1", "r2", "c1", "math", "mon-1"),
	}))
	engine := NewHardEngine(HardEngineConfig{})

	violations, err := engine.ValidateConstraint(models.ConstraintRoomCapacity, ctx)
	require.NoError(t, err)
	require.Len(t, violations, 1)
	assert.Equal(t, models.SeverityHigh, violations[0].Severity)
	assert.Equal(t, float64(600), violations[0].Cost)
	assert.True(t, engine.HasViolations(ctx))

	// A room with enough seats passes.
	fit := NewContext(fixtureInput([]models.ScheduledSession{
		session("s2", "t1", "r2", "c2", "math", "mon-1"),
	}))
	violations, err = engine.ValidateConstraint(models.ConstraintRoomCapacity, fit)
	require.NoError(t, err)
	assert.Empty(t, violations)
}

func TestHardEngineTimeSlotValidity(t *testing.T) {
	ctx := NewContext(fixtureInput([]models.ScheduledSession{
		session("s1", "t1", "r1", "c1", "math", "ghost-slot"),
		session("s2", "t1", "r1", "c1", "math", "mon-off"),
	}))
	engine := NewHardEngine(HardEngineConfig{})

	violations, err := engine.ValidateConstraint(models.ConstraintTimeSlotValidity, ctx)
	require.NoError(t, err)
	require.Len(t, violations, 2)
	assert.Equal(t, models.SeverityHigh, violations[0].Severity)
	assert.Equal(t, float64(1000), violations[0].Cost)
	assert.Equal(t, models.SeverityMedium, violations[1].Severity)
	assert.Equal(t, float64(400), violations[1].Cost)
}

func TestHardEngineValidateAllOrdering(t *testing.T) {
	// Mix severities: inactive slot (MEDIUM 400), capacity (HIGH 600),
	// teacher conflict (HIGH 1000).
	ctx := NewContext(fixtureInput([]models.ScheduledSession{
		session("s1", "t1", "r1", "c1", "math", "mon-1"),
		session("s2", "t1", "r2", "c2", "phys", "mon-1"),
		session("s3", "t2", "r2", "c1", "math", "mon-2"),
		session("s4", "t2", "r1", "c2", "phys", "mon-off"),
	}))
	engine := NewHardEngine(HardEngineConfig{})

	violations := engine.ValidateAll(ctx)
	require.NotEmpty(t, violations)
	for i := 1; i < len(violations); i++ {
		prev, cur := violations[i-1], violations[i]
		if prev.Severity.Rank() == cur.Severity.Rank() {
			assert.GreaterOrEqual(t, prev.Cost, cur.Cost)
		} else {
			assert.Greater(t, prev.Severity.Rank(), cur.Severity.Rank())
		}
	}
}

func TestHardEngineValidateAllIdempotent(t *testing.T) {
	ctx := NewContext(fixtureInput([]models.ScheduledSession{
		session("s1", "t1", "r1", "c1", "math", "mon-1"),
		session("s2", "t1", "r2", "c2", "phys", "mon-1"),
		session("s3", "t2", "r2", "c1", "math", "mon-off"),
	}))
	engine := NewHardEngine(HardEngineConfig{})

	first := engine.ValidateAll(ctx)
	second := engine.ValidateAll(ctx)
	assert.Equal(t, first, second)
}

func TestHardEngineUnknownConstraint(t *testing.T) {
	engine := NewHardEngine(HardEngineConfig{})
	_, err := engine.ValidateConstraint("no-such-rule", NewContext(fixtureInput(nil)))
	assert.Error(t, err)
}

func TestHardEngineConstraintIDs(t *testing.T) {
	engine := NewHardEngine(HardEngineConfig{})
	assert.Equal(t, []string{
		models.ConstraintTeacherConflict,
		models.ConstraintRoomConflict,
		models.ConstraintClassConflict,
		models.ConstraintTeacherAvailability,
		models.ConstraintRoomCapacity,
		models.ConstraintTimeSlotValidity,
	}, engine.ConstraintIDs())
}
