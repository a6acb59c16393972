package models

import "time"

// Teacher represents an instructor record together with its availability.
type Teacher struct {
	ID        string    `db:"id" json:"id"`
	Email     string    `db:"email" json:"email"`
	FullName  string    `db:"full_name" json:"full_name"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`

	// Availability windows are loaded alongside the teacher row. A teacher
	// without windows falls back to the engine's default teaching window.
	Availability []AvailabilityWindow `db:"-" json:"availability,omitempty"`
}

// AvailabilityWindow describes a recurring window a teacher can teach in.
type AvailabilityWindow struct {
	ID        string `db:"id" json:"id"`
	TeacherID string `db:"teacher_id" json:"teacher_id"`
	DayOfWeek string `db:"day_of_week" json:"day_of_week"`
	StartTime string `db:"start_time" json:"start_time"`
	EndTime   string `db:"end_time" json:"end_time"`
}

// Room represents a teaching space.
type Room struct {
	ID       string `db:"id" json:"id"`
	Name     string `db:"name" json:"name"`
	Type     string `db:"type" json:"type"`
	Capacity int    `db:"capacity" json:"capacity"`
	Active   bool   `db:"active" json:"active"`
}

// Class represents an academic class or section.
type Class struct {
	ID                string `db:"id" json:"id"`
	Name              string `db:"name" json:"name"`
	Grade             string `db:"grade" json:"grade"`
	CurrentEnrollment int    `db:"current_enrollment" json:"current_enrollment"`
}

// Subject represents an academic subject.
type Subject struct {
	ID   string `db:"id" json:"id"`
	Code string `db:"code" json:"code"`
	Name string `db:"name" json:"name"`
}

// TimeSlot is a bookable period in the institutional timetable grid.
type TimeSlot struct {
	ID        string `db:"id" json:"id"`
	DayOfWeek string `db:"day_of_week" json:"day_of_week"`
	StartTime string `db:"start_time" json:"start_time"`
	EndTime   string `db:"end_time" json:"end_time"`
	Active    bool   `db:"active" json:"active"`
}
