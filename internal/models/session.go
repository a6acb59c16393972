package models

import "time"

// SessionType enumerates the kinds of scheduled sessions.
type SessionType string

const (
	SessionTypeLecture SessionType = "LECTURE"
	SessionTypeLab     SessionType = "LAB"
	SessionTypeExam    SessionType = "EXAM"
)

// ScheduledSession assigns a subject/class/teacher/room tuple to a time slot
// on a concrete date. The (teacher, slot, date), (room, slot, date) and
// (class, slot, date) triples must each be unique across a schedule.
type ScheduledSession struct {
	ID              string      `db:"id" json:"id"`
	ScheduleID      string      `db:"schedule_id" json:"scheduleId"`
	SubjectID       string      `db:"subject_id" json:"subjectId"`
	ClassID         string      `db:"class_id" json:"classId"`
	TeacherID       string      `db:"teacher_id" json:"teacherId"`
	RoomID          string      `db:"room_id" json:"roomId"`
	TimeSlotID      string      `db:"time_slot_id" json:"timeSlotId"`
	Date            string      `db:"date" json:"date"`
	DurationMinutes int         `db:"duration_minutes" json:"duration"`
	Type            SessionType `db:"type" json:"type"`
	Priority        int         `db:"priority" json:"priority"`
	CreatedAt       time.Time   `db:"created_at" json:"created_at"`
}
