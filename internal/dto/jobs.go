package dto

import (
	"time"

	"github.com/abdoElHodaky/sasscolmng-sub001/internal/models"
)

// EnqueueJobRequest queues an asynchronous scheduling operation.
type EnqueueJobRequest struct {
	Kind    models.JobKind    `json:"kind" validate:"required,oneof=generateSchedule optimizeSchedule validateConstraints"`
	Request SchedulingRequest `json:"request"`
}

// EnqueueJobResponse acknowledges a queued job.
type EnqueueJobResponse struct {
	ID       string          `json:"id"`
	Kind     models.JobKind  `json:"kind"`
	State    models.JobState `json:"state"`
	Progress int             `json:"progress"`
}

// JobStatusResponse is the job status query surface.
type JobStatusResponse struct {
	Found      bool                   `json:"found"`
	ID         string                 `json:"id,omitempty"`
	Kind       models.JobKind         `json:"kind,omitempty"`
	State      models.JobState        `json:"state,omitempty"`
	Progress   int                    `json:"progress"`
	Result     *models.SolveJobResult `json:"result,omitempty"`
	Error      *string                `json:"error,omitempty"`
	CreatedAt  *time.Time             `json:"created_at,omitempty"`
	StartedAt  *time.Time             `json:"started_at,omitempty"`
	FinishedAt *time.Time             `json:"finished_at,omitempty"`
}
