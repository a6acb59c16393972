package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/abdoElHodaky/sasscolmng-sub001/internal/dto"
	"github.com/abdoElHodaky/sasscolmng-sub001/internal/models"
	appErrors "github.com/abdoElHodaky/sasscolmng-sub001/pkg/errors"
)

type scheduleStore interface {
	CreateVersioned(ctx context.Context, schedule *models.Schedule) error
	FindByID(ctx context.Context, id string) (*models.Schedule, error)
	UpdateStatus(ctx context.Context, scheduleID string, status models.ScheduleStatus, meta types.JSONText) error
	ListSessions(ctx context.Context, scheduleID string) ([]models.ScheduledSession, error)
}

type resourceSnapshotter interface {
	Snapshot(ctx context.Context, schoolID string) (*dto.ResourceSet, error)
}

type queryMetricsRecorder interface {
	ObserveDBQuery(label string, duration time.Duration)
}

// ScheduleService manages timetable lifecycle outside of solving: draft
// creation, publication, archival and reads.
type ScheduleService struct {
	schedules scheduleStore
	resources resourceSnapshotter
	metrics   queryMetricsRecorder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewScheduleService constructs the service.
func NewScheduleService(schedules scheduleStore, resources resourceSnapshotter, metrics queryMetricsRecorder, validate *validator.Validate, logger *zap.Logger) *ScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{schedules: schedules, resources: resources, metrics: metrics, validator: validate, logger: logger}
}

func (s *ScheduleService) observeQuery(label string, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveDBQuery(label, time.Since(start))
	}
}

// Create opens a new DRAFT version for the school and term.
func (s *ScheduleService) Create(ctx context.Context, req *dto.CreateScheduleRequest) (*models.Schedule, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule payload")
	}
	schedule := &models.Schedule{
		SchoolID: req.SchoolID,
		TermID:   req.TermID,
		Name:     req.Name,
		Status:   models.ScheduleStatusDraft,
	}
	start := time.Now()
	if err := s.schedules.CreateVersioned(ctx, schedule); err != nil {
		return nil, err
	}
	s.observeQuery("schedule_insert", start)
	s.logger.Sugar().Infow("schedule created", "scheduleId", schedule.ID, "schoolId", schedule.SchoolID, "version", schedule.Version)
	return schedule, nil
}

// Get fetches one schedule by ID.
func (s *ScheduleService) Get(ctx context.Context, id string) (*models.Schedule, error) {
	defer s.observeQuery("schedule_find", time.Now())
	return s.schedules.FindByID(ctx, id)
}

// Sessions lists the scheduled sessions of one schedule in slot order.
func (s *ScheduleService) Sessions(ctx context.Context, scheduleID string) ([]models.ScheduledSession, error) {
	if _, err := s.schedules.FindByID(ctx, scheduleID); err != nil {
		return nil, err
	}
	defer s.observeQuery("schedule_sessions", time.Now())
	return s.schedules.ListSessions(ctx, scheduleID)
}

// Publish promotes a DRAFT schedule. Schedules mid-generation or already
// published cannot be promoted.
func (s *ScheduleService) Publish(ctx context.Context, scheduleID string) (*models.Schedule, error) {
	return s.transition(ctx, scheduleID, models.ScheduleStatusDraft, models.ScheduleStatusPublished)
}

// Archive retires a PUBLISHED schedule.
func (s *ScheduleService) Archive(ctx context.Context, scheduleID string) (*models.Schedule, error) {
	return s.transition(ctx, scheduleID, models.ScheduleStatusPublished, models.ScheduleStatusArchived)
}

func (s *ScheduleService) transition(ctx context.Context, scheduleID string, from, to models.ScheduleStatus) (*models.Schedule, error) {
	schedule, err := s.schedules.FindByID(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	if schedule.Status != from {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, fmt.Sprintf("schedule is %s, expected %s", schedule.Status, from))
	}
	start := time.Now()
	if err := s.schedules.UpdateStatus(ctx, scheduleID, to, nil); err != nil {
		return nil, err
	}
	s.observeQuery("schedule_status_update", start)
	schedule.Status = to
	s.logger.Sugar().Infow("schedule status changed", "scheduleId", scheduleID, "from", from, "to", to)
	return schedule, nil
}

// Resources returns the solving resource snapshot for a school, handy for
// assembling scheduling requests client side.
func (s *ScheduleService) Resources(ctx context.Context, schoolID string) (*dto.ResourceSet, error) {
	if schoolID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "schoolId is required")
	}
	defer s.observeQuery("resource_snapshot", time.Now())
	return s.resources.Snapshot(ctx, schoolID)
}
