package solver

import (
	"context"
	"time"

	"github.com/abdoElHodaky/sasscolmng-sub001/internal/dto"
	"github.com/abdoElHodaky/sasscolmng-sub001/internal/models"
)

// Strategy produces session placements for a scheduling request. Strategies
// only place sessions; constraint validation and scoring happen outside.
type Strategy interface {
	Name() string
	Solve(ctx context.Context, req *Request) (*Result, error)
}

// Request is the strategy-facing slice of a scheduling request: resources,
// demands, preferences, rules and the horizon, with validation already done
// upstream. Preferences and rules let a strategy optimize toward the same
// soft constraints the result is scored against.
type Request struct {
	ScheduleID        string
	SchoolID          string
	StartDate         time.Time
	EndDate           time.Time
	Resources         dto.ResourceSet
	Demands           []dto.ClassDemand
	Preferences       []models.SchedulePreference
	Rules             []models.SchedulingRule
	ExistingSessions  []models.ScheduledSession
	Timeout           time.Duration
	OptimizationLevel string
}

// Result carries the placed sessions plus non-fatal placement warnings.
type Result struct {
	Sessions []models.ScheduledSession
	Warnings []string
}
