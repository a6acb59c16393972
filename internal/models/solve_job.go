package models

import (
	"encoding/json"
	"time"
)

// JobKind enumerates the queued scheduling operations.
type JobKind string

const (
	JobKindGenerate JobKind = "generateSchedule"
	JobKindOptimize JobKind = "optimizeSchedule"
	JobKindValidate JobKind = "validateConstraints"
)

// JobState captures the queue lifecycle of a solve job.
type JobState string

const (
	JobStateWaiting   JobState = "waiting"
	JobStateActive    JobState = "active"
	JobStateCompleted JobState = "completed"
	JobStateFailed    JobState = "failed"
	JobStateDelayed   JobState = "delayed"
)

// JobStates lists every state, in reporting order.
var JobStates = []JobState{JobStateWaiting, JobStateActive, JobStateCompleted, JobStateFailed, JobStateDelayed}

// Terminal reports whether the state ends the job lifecycle.
func (s JobState) Terminal() bool {
	return s == JobStateCompleted || s == JobStateFailed
}

// SolveJobResult summarises a successful run.
type SolveJobResult struct {
	SessionCount      int    `json:"sessionCount"`
	OptimizationScore int    `json:"optimizationScore"`
	SolvingTimeMS     int64  `json:"solvingTimeMs"`
	Strategy          string `json:"strategy,omitempty"`
	ConflictCount     int    `json:"conflictCount"`
}

// SolveJob is a queued, retryable unit of asynchronous scheduling work.
type SolveJob struct {
	ID         string          `json:"id"`
	Kind       JobKind         `json:"kind"`
	SchoolID   string          `json:"school_id"`
	ScheduleID string          `json:"schedule_id"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	State      JobState        `json:"state"`
	Progress   int             `json:"progress"`
	Attempts   int             `json:"attempts"`
	Result     *SolveJobResult `json:"result,omitempty"`
	Error      *string         `json:"error,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	StartedAt  *time.Time      `json:"started_at,omitempty"`
	FinishedAt *time.Time      `json:"finished_at,omitempty"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// QueueStats reports job counts per state for the health surface.
type QueueStats struct {
	Waiting   int `json:"waiting"`
	Active    int `json:"active"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Delayed   int `json:"delayed"`
}
