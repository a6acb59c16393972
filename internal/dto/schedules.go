package dto

// CreateScheduleRequest opens a new draft timetable version.
type CreateScheduleRequest struct {
	SchoolID string `json:"school_id" validate:"required"`
	TermID   string `json:"term_id" validate:"required"`
	Name     string `json:"name" validate:"required,min=2,max=120"`
}
