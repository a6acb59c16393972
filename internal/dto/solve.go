package dto

import "github.com/abdoElHodaky/sasscolmng-sub001/internal/models"

// ResourceSet is the snapshot of scheduling resources for one solve.
type ResourceSet struct {
	Teachers  []models.Teacher  `json:"teachers" validate:"required,min=1"`
	Rooms     []models.Room     `json:"rooms" validate:"required,min=1"`
	Classes   []models.Class    `json:"classes" validate:"required,min=1"`
	Subjects  []models.Subject  `json:"subjects" validate:"required,min=1"`
	TimeSlots []models.TimeSlot `json:"timeSlots" validate:"required,min=1"`
}

// ClassDemand states how many sessions a subject/class/teacher tuple needs
// within the scheduling horizon.
type ClassDemand struct {
	SubjectID    string             `json:"subjectId" validate:"required"`
	ClassID      string             `json:"classId" validate:"required"`
	TeacherID    string             `json:"teacherId" validate:"required"`
	WeeklyCount  int                `json:"weeklyCount" validate:"required,min=1"`
	DurationMins int                `json:"duration,omitempty"`
	Type         models.SessionType `json:"type,omitempty"`
}

// SolverRunConfig bounds a single solving attempt.
type SolverRunConfig struct {
	MaxSolvingTimeSeconds int    `json:"maxSolvingTimeSeconds" validate:"omitempty,min=1,max=3600"`
	OptimizationLevel     string `json:"optimizationLevel" validate:"omitempty,oneof=fast balanced thorough"`
}

// SchedulingRequest drives one solve: resources, rules, preferences and the
// time horizon over which sessions are placed.
type SchedulingRequest struct {
	ScheduleID       string                      `json:"scheduleId" validate:"required"`
	SchoolID         string                      `json:"schoolId" validate:"required"`
	StartDate        string                      `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate          string                      `json:"endDate" validate:"required,datetime=2006-01-02"`
	Resources        ResourceSet                 `json:"resources"`
	Demands          []ClassDemand               `json:"demands" validate:"omitempty,dive"`
	Preferences      []models.SchedulePreference `json:"preferences"`
	Rules            []models.SchedulingRule     `json:"rules"`
	ExistingSessions []models.ScheduledSession   `json:"existingSessions,omitempty"`
	Config           SolverRunConfig             `json:"config"`
}

// SchedulingResult is the sole externally visible artifact of a solve.
// Immutable once returned.
type SchedulingResult struct {
	Success           bool                         `json:"success"`
	Sessions          []models.ScheduledSession    `json:"sessions"`
	Conflicts         []models.ConstraintViolation `json:"conflicts"`
	OptimizationScore int                          `json:"optimizationScore"`
	SolvingTimeMS     int64                        `json:"solvingTimeMs"`
	Message           string                       `json:"message"`
	Warnings          []string                     `json:"warnings,omitempty"`
	Strategy          string                       `json:"strategy,omitempty"`
}

// SolverCapabilities advertises supported constraint types and scaling
// limits for client-side UX. Not consumed by the solving algorithm.
type SolverCapabilities struct {
	HardConstraints     []string `json:"hardConstraints"`
	SoftConstraints     []string `json:"softConstraints"`
	MaxTeachers         int      `json:"maxTeachers"`
	MaxClasses          int      `json:"maxClasses"`
	MaxSessions         int      `json:"maxSessions"`
	ExternalSolver      bool     `json:"externalSolver"`
	HeuristicFallback   bool     `json:"heuristicFallback"`
	AsyncJobs           bool     `json:"asyncJobs"`
	SuggestionReporting bool     `json:"suggestionReporting"`
}
