package solver

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdoElHodaky/sasscolmng-sub001/internal/dto"
	"github.com/abdoElHodaky/sasscolmng-sub001/internal/models"
)

func solverResources() dto.ResourceSet {
	return dto.ResourceSet{
		Teachers: []models.Teacher{
			{ID: "t1", FullName: "Alice Carter", Active: true},
			{ID: "t2", FullName: "Bob Nguyen", Active: true, Availability: []models.AvailabilityWindow{
				{ID: "w1", TeacherID: "t2", DayOfWeek: "MONDAY", StartTime: "08:00", EndTime: "12:00"},
			}},
		},
		Rooms: []models.Room{
			{ID: "r1", Name: "Room 101", Type: "CLASSROOM", Capacity: 30, Active: true},
			{ID: "r2", Name: "Lab A", Type: "LAB", Capacity: 24, Active: true},
		},
		Classes: []models.Class{
			{ID: "c1", Name: "10-A", CurrentEnrollment: 25},
			{ID: "c2", Name: "10-B", CurrentEnrollment: 20},
		},
		Subjects: []models.Subject{
			{ID: "math", Code: "MATH", Name: "Mathematics"},
			{ID: "phys", Code: "PHYS", Name: "Physics"},
		},
		TimeSlots: []models.TimeSlot{
			{ID: "mon-1", DayOfWeek: "MONDAY", StartTime: "08:00", EndTime: "09:00", Active: true},
			{ID: "mon-2", DayOfWeek: "MONDAY", StartTime: "09:00", EndTime: "10:00", Active: true},
			{ID: "tue-1", DayOfWeek: "TUESDAY", StartTime: "08:00", EndTime: "09:00", Active: true},
			{ID: "tue-2", DayOfWeek: "TUESDAY", StartTime: "09:00", EndTime: "10:00", Active: true},
		},
	}
}

func solverRequest(demands []dto.ClassDemand) *Request {
	// 2026-09-07 is a Monday.
	start, _ := time.Parse("2006-01-02", "2026-09-07")
	end, _ := time.Parse("2006-01-02", "2026-09-08")
	return &Request{
		ScheduleID: "schedule-1",
		SchoolID:   "school-1",
		StartDate:  start,
		EndDate:    end,
		Resources:  solverResources(),
		Demands:    demands,
	}
}

func assertNoDoubleBookings(t *testing.T, sessions []models.ScheduledSession) {
	t.Helper()
	seen := make(map[string]bool)
	for _, s := range sessions {
		for _, key := range []string{
			"t|" + s.TeacherID + "|" + s.TimeSlotID + "|" + s.Date,
			"r|" + s.RoomID + "|" + s.TimeSlotID + "|" + s.Date,
			"c|" + s.ClassID + "|" + s.TimeSlotID + "|" + s.Date,
		} {
			assert.False(t, seen[key], "double booking: %s", key)
			seen[key] = true
		}
	}
}

func TestHeuristicSolverPlacesDemands(t *testing.T) {
	solver := NewHeuristicSolver(HeuristicConfig{})
	result, err := solver.Solve(context.Background(), solverRequest([]dto.ClassDemand{
		{SubjectID: "math", ClassID: "c1", TeacherID: "t1", WeeklyCount: 3},
		{SubjectID: "phys", ClassID: "c2", TeacherID: "t2", WeeklyCount: 2},
	}))
	require.NoError(t, err)
	assert.Len(t, result.Sessions, 5)
	assert.Empty(t, result.Warnings)
	assertNoDoubleBookings(t, result.Sessions)

	for _, session := range result.Sessions {
		assert.Equal(t, "schedule-1", session.ScheduleID)
		assert.NotEmpty(t, session.ID)
		assert.NotEmpty(t, session.RoomID)
		assert.Equal(t, models.SessionTypeLecture, session.Type)
		assert.Equal(t, 60, session.DurationMinutes)
	}
}

func TestHeuristicSolverHonorsAvailability(t *testing.T) {
	// t2 can only teach Mondays, so both Tuesday slots are off limits and
	// only two placements exist for three requested units.
	solver := NewHeuristicSolver(HeuristicConfig{})
	result, err := solver.Solve(context.Background(), solverRequest([]dto.ClassDemand{
		{SubjectID: "phys", ClassID: "c2", TeacherID: "t2", WeeklyCount: 3},
	}))
	require.NoError(t, err)
	assert.Len(t, result.Sessions, 2)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "unable to place")
	for _, session := range result.Sessions {
		assert.Equal(t, "2026-09-07", session.Date)
	}
}

func TestHeuristicSolverPrefersLabRooms(t *testing.T) {
	solver := NewHeuristicSolver(HeuristicConfig{})
	result, err := solver.Solve(context.Background(), solverRequest([]dto.ClassDemand{
		{SubjectID: "phys", ClassID: "c2", TeacherID: "t1", WeeklyCount: 1, Type: models.SessionTypeLab},
	}))
	require.NoError(t, err)
	require.Len(t, result.Sessions, 1)
	assert.Equal(t, "r2", result.Sessions[0].RoomID)
	assert.Equal(t, models.SessionTypeLab, result.Sessions[0].Type)
}

func TestHeuristicSolverRespectsCapacity(t *testing.T) {
	// c1 has 25 students; only Room 101 (capacity 30) fits.
	solver := NewHeuristicSolver(HeuristicConfig{})
	result, err := solver.Solve(context.Background(), solverRequest([]dto.ClassDemand{
		{SubjectID: "math", ClassID: "c1", TeacherID: "t1", WeeklyCount: 2},
	}))
	require.NoError(t, err)
	require.Len(t, result.Sessions, 2)
	for _, session := range result.Sessions {
		assert.Equal(t, "r1", session.RoomID)
	}
}

func TestHeuristicSolverKeepsExistingSessions(t *testing.T) {
	existing := models.ScheduledSession{
		ID:         "keep-1",
		ScheduleID: "schedule-1",
		SubjectID:  "math",
		ClassID:    "c1",
		TeacherID:  "t1",
		RoomID:     "r1",
		TimeSlotID: "mon-1",
		Date:       "2026-09-07",
	}
	req := solverRequest([]dto.ClassDemand{
		{SubjectID: "phys", ClassID: "c1", TeacherID: "t2", WeeklyCount: 1},
	})
	req.ExistingSessions = []models.ScheduledSession{existing}

	solver := NewHeuristicSolver(HeuristicConfig{})
	result, err := solver.Solve(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, result.Sessions, 2)
	assert.Equal(t, "keep-1", result.Sessions[0].ID)
	// The new session cannot collide with the seeded booking.
	added := result.Sessions[1]
	assert.False(t, added.TimeSlotID == "mon-1" && added.Date == "2026-09-07")
	assertNoDoubleBookings(t, result.Sessions)
}

func TestHeuristicSolverNudgesPrioritiesByPreference(t *testing.T) {
	inAvoided := models.ScheduledSession{
		ID:         "s-avoided",
		ScheduleID: "schedule-1",
		SubjectID:  "math",
		ClassID:    "c1",
		TeacherID:  "t1",
		RoomID:     "r1",
		TimeSlotID: "mon-1",
		Date:       "2026-09-07",
		Priority:   7,
	}
	inPreferred := models.ScheduledSession{
		ID:         "s-preferred",
		ScheduleID: "schedule-1",
		SubjectID:  "phys",
		ClassID:    "c2",
		TeacherID:  "t1",
		RoomID:     "r2",
		TimeSlotID: "mon-2",
		Date:       "2026-09-07",
		Priority:   7,
	}
	req := solverRequest(nil)
	req.ExistingSessions = []models.ScheduledSession{inAvoided, inPreferred}
	req.Preferences = []models.SchedulePreference{
		{ID: "p1", Type: models.PreferenceTeacherTime, EntityID: "t1", Weight: 3,
			Params: models.PreferenceParams{"avoidSlots": []string{"mon-1"}, "preferredSlots": []string{"mon-2"}}},
		{ID: "p2", Type: models.PreferenceRoom, EntityID: "c2", Weight: 1,
			Params: models.PreferenceParams{"avoidRoomTypes": []string{"LAB"}}},
	}

	solver := NewHeuristicSolver(HeuristicConfig{})
	result, err := solver.Solve(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, result.Sessions, 2)

	byID := make(map[string]models.ScheduledSession)
	for _, session := range result.Sessions {
		byID[session.ID] = session
	}
	// Avoided teacher slot scores 2 at weight 3.
	assert.Equal(t, 6, byID["s-avoided"].Priority)
	// Preferred slot is clean; the avoided room type adds 2 at weight 1.
	assert.Equal(t, 2, byID["s-preferred"].Priority)
}

func TestHeuristicSolverKeepsPrioritiesWithoutPreferences(t *testing.T) {
	existing := models.ScheduledSession{
		ID:         "keep-1",
		ScheduleID: "schedule-1",
		SubjectID:  "math",
		ClassID:    "c1",
		TeacherID:  "t1",
		RoomID:     "r1",
		TimeSlotID: "mon-1",
		Date:       "2026-09-07",
		Priority:   7,
	}
	req := solverRequest(nil)
	req.ExistingSessions = []models.ScheduledSession{existing}

	solver := NewHeuristicSolver(HeuristicConfig{})
	result, err := solver.Solve(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, result.Sessions, 1)
	assert.Equal(t, 7, result.Sessions[0].Priority)
}

func TestHeuristicSolverCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	solver := NewHeuristicSolver(HeuristicConfig{})
	result, err := solver.Solve(ctx, solverRequest([]dto.ClassDemand{
		{SubjectID: "math", ClassID: "c1", TeacherID: "t1", WeeklyCount: 2},
	}))
	require.NoError(t, err)
	assert.Empty(t, result.Sessions)
	require.NotEmpty(t, result.Warnings)
	assert.Contains(t, result.Warnings[0], "time budget exhausted")
}
