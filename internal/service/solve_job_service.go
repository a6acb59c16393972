package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/abdoElHodaky/sasscolmng-sub001/internal/dto"
	"github.com/abdoElHodaky/sasscolmng-sub001/internal/models"
	appErrors "github.com/abdoElHodaky/sasscolmng-sub001/pkg/errors"
	"github.com/abdoElHodaky/sasscolmng-sub001/pkg/jobs"
)

// Progress milestones reported while a job moves through the pipeline.
const (
	progressValidated = 10
	progressSolved    = 70
	progressPersisted = 90
	progressDone      = 100
)

type solveJobStore interface {
	Save(ctx context.Context, job *models.SolveJob) error
	Find(ctx context.Context, id string) (*models.SolveJob, error)
	ListByState(ctx context.Context, state models.JobState) ([]models.SolveJob, error)
	CountByState(ctx context.Context) (models.QueueStats, error)
	PruneBefore(ctx context.Context, cutoff time.Time) (int, error)
}

type scheduleStateStore interface {
	UpdateStatus(ctx context.Context, scheduleID string, status models.ScheduleStatus, meta types.JSONText) error
	ReplaceSessions(ctx context.Context, scheduleID string, sessions []models.ScheduledSession) error
}

type schedulingSolver interface {
	Solve(ctx context.Context, req *dto.SchedulingRequest) (*dto.SchedulingResult, error)
	ValidateOnly(ctx context.Context, req *dto.SchedulingRequest) (*dto.SchedulingResult, error)
}

type jobMetricsRecorder interface {
	ObserveSolve(kind string, strategy string, success bool, duration time.Duration)
	SetQueueDepth(stats models.QueueStats)
}

// SolveJobServiceConfig sizes the worker pool and retry policy.
type SolveJobServiceConfig struct {
	Workers       int
	BufferSize    int
	MaxAttempts   int
	BackoffBase   time.Duration
	PruneAge      time.Duration
	PruneInterval time.Duration
}

// SolveJobService runs scheduling operations asynchronously: it owns the
// worker queue, tracks job records through their lifecycle and persists
// accepted results. A schedule left mid-generation by a permanently failing
// job is reverted to DRAFT with the failure reason in its metadata.
type SolveJobService struct {
	store    solveJobStore
	schedule scheduleStateStore
	solver   schedulingSolver
	metrics  jobMetricsRecorder

	queue       *jobs.Queue
	maxAttempts int
	pruneAge    time.Duration
	pruneEvery  time.Duration

	validator *validator.Validate
	logger    *zap.Logger
}

// NewSolveJobService wires the queue and its handler.
func NewSolveJobService(
	store solveJobStore,
	schedule scheduleStateStore,
	solverSvc schedulingSolver,
	metrics jobMetricsRecorder,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg SolveJobServiceConfig,
) *SolveJobService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.PruneAge <= 0 {
		cfg.PruneAge = 24 * time.Hour
	}
	if cfg.PruneInterval <= 0 {
		cfg.PruneInterval = time.Hour
	}

	s := &SolveJobService{
		store:       store,
		schedule:    schedule,
		solver:      solverSvc,
		metrics:     metrics,
		maxAttempts: cfg.MaxAttempts,
		pruneAge:    cfg.PruneAge,
		pruneEvery:  cfg.PruneInterval,
		validator:   validate,
		logger:      logger,
	}
	s.queue = jobs.NewQueue("solve", s.handle, jobs.QueueConfig{
		Workers:     cfg.Workers,
		BufferSize:  cfg.BufferSize,
		MaxAttempts: cfg.MaxAttempts,
		BackoffBase: cfg.BackoffBase,
		OnExhausted: s.exhausted,
		Logger:      logger,
	})
	return s
}

// Start launches the worker pool, re-enqueues interrupted jobs and begins
// periodic pruning of finished records.
func (s *SolveJobService) Start(ctx context.Context) error {
	s.queue.Start(ctx)
	if err := s.recoverPending(ctx); err != nil {
		return err
	}
	go s.pruneLoop(ctx)
	return nil
}

// Stop drains the worker pool.
func (s *SolveJobService) Stop() {
	s.queue.Stop()
}

// Enqueue validates the request, records the job as waiting and hands it to
// the queue.
func (s *SolveJobService) Enqueue(ctx context.Context, req *dto.EnqueueJobRequest) (*dto.EnqueueJobResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid job request")
	}
	payload, err := json.Marshal(req.Request)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode job payload")
	}

	now := time.Now().UTC()
	record := &models.SolveJob{
		ID:         uuid.NewString(),
		Kind:       req.Kind,
		SchoolID:   req.Request.SchoolID,
		ScheduleID: req.Request.ScheduleID,
		Payload:    payload,
		State:      models.JobStateWaiting,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.store.Save(ctx, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist job record")
	}
	if err := s.queue.Enqueue(jobs.Job{ID: record.ID, Type: string(record.Kind)}); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue job")
	}

	s.logger.Sugar().Infow("job enqueued", "job_id", record.ID, "kind", record.Kind, "schedule_id", record.ScheduleID)
	return &dto.EnqueueJobResponse{ID: record.ID, Kind: record.Kind, State: record.State, Progress: 0}, nil
}

// Status reports a job's lifecycle. An unknown id yields Found=false, not an
// error, so pollers can outlive pruning.
func (s *SolveJobService) Status(ctx context.Context, id string) (*dto.JobStatusResponse, error) {
	record, err := s.store.Find(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load job record")
	}
	if record == nil {
		return &dto.JobStatusResponse{Found: false}, nil
	}
	return &dto.JobStatusResponse{
		Found:      true,
		ID:         record.ID,
		Kind:       record.Kind,
		State:      record.State,
		Progress:   record.Progress,
		Result:     record.Result,
		Error:      record.Error,
		CreatedAt:  &record.CreatedAt,
		StartedAt:  record.StartedAt,
		FinishedAt: record.FinishedAt,
	}, nil
}

// Cancel removes a job that has not started yet. Anything past waiting is
// already running or finished and cannot be cancelled.
func (s *SolveJobService) Cancel(ctx context.Context, id string) error {
	record, err := s.store.Find(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load job record")
	}
	if record == nil {
		return appErrors.Clone(appErrors.ErrNotFound, "job not found")
	}
	if record.State != models.JobStateWaiting {
		return appErrors.Clone(appErrors.ErrJobNotCancellable, fmt.Sprintf("job is %s and can no longer be cancelled", record.State))
	}
	// A worker can claim the job between the state read above and here.
	if !s.queue.Remove(id) {
		return appErrors.Clone(appErrors.ErrJobNotCancellable, "job was picked up by a worker and can no longer be cancelled")
	}

	now := time.Now().UTC()
	reason := "cancelled before start"
	record.State = models.JobStateFailed
	record.Error = &reason
	record.FinishedAt = &now
	record.UpdatedAt = now
	if err := s.store.Save(ctx, record); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update job record")
	}
	s.logger.Sugar().Infow("job cancelled", "job_id", id)
	return nil
}

// Stats reports per-state job counts for the queue health surface.
func (s *SolveJobService) Stats(ctx context.Context) (models.QueueStats, error) {
	stats, err := s.store.CountByState(ctx)
	if err != nil {
		return models.QueueStats{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count jobs")
	}
	if s.metrics != nil {
		s.metrics.SetQueueDepth(stats)
	}
	return stats, nil
}

// handle is the queue worker entrypoint, one call per attempt.
func (s *SolveJobService) handle(ctx context.Context, job jobs.Job) error {
	record, err := s.store.Find(ctx, job.ID)
	if err != nil {
		return err
	}
	if record == nil || record.State.Terminal() {
		return nil
	}

	now := time.Now().UTC()
	record.State = models.JobStateActive
	record.Attempts = job.Attempt + 1
	if record.StartedAt == nil {
		record.StartedAt = &now
	}
	record.UpdatedAt = now
	if err := s.store.Save(ctx, record); err != nil {
		return err
	}

	var req dto.SchedulingRequest
	if err := json.Unmarshal(record.Payload, &req); err != nil {
		// A payload that cannot decode will never succeed; fail hard so
		// retries do not burn attempts on it.
		s.failJob(ctx, record, fmt.Sprintf("malformed job payload: %v", err))
		return nil
	}
	s.updateProgress(ctx, record, progressValidated)

	if record.Kind != models.JobKindValidate && s.schedule != nil {
		if err := s.schedule.UpdateStatus(ctx, record.ScheduleID, models.ScheduleStatusGenerating, nil); err != nil {
			return s.retryable(ctx, record, err)
		}
	}

	started := time.Now()
	var result *dto.SchedulingResult
	switch record.Kind {
	case models.JobKindValidate:
		result, err = s.solver.ValidateOnly(ctx, &req)
	default:
		result, err = s.solver.Solve(ctx, &req)
	}
	if err != nil {
		return s.retryable(ctx, record, err)
	}
	s.updateProgress(ctx, record, progressSolved)

	if record.Kind != models.JobKindValidate && s.schedule != nil {
		if err := s.persistResult(ctx, record, result); err != nil {
			return s.retryable(ctx, record, err)
		}
	}
	s.updateProgress(ctx, record, progressPersisted)

	finished := time.Now().UTC()
	record.State = models.JobStateCompleted
	record.Progress = progressDone
	record.Result = &models.SolveJobResult{
		SessionCount:      len(result.Sessions),
		OptimizationScore: result.OptimizationScore,
		SolvingTimeMS:     result.SolvingTimeMS,
		Strategy:          result.Strategy,
		ConflictCount:     len(result.Conflicts),
	}
	record.Error = nil
	record.FinishedAt = &finished
	record.UpdatedAt = finished
	if err := s.store.Save(ctx, record); err != nil {
		return err
	}

	if s.metrics != nil {
		s.metrics.ObserveSolve(string(record.Kind), result.Strategy, result.Success, time.Since(started))
	}
	s.logger.Sugar().Infow("job completed",
		"job_id", record.ID, "kind", record.Kind, "sessions", len(result.Sessions),
		"score", result.OptimizationScore, "conflicts", len(result.Conflicts))
	return nil
}

// persistResult stores accepted sessions and settles the schedule status.
// A result with remaining hard conflicts leaves the stored sessions alone.
func (s *SolveJobService) persistResult(ctx context.Context, record *models.SolveJob, result *dto.SchedulingResult) error {
	meta := map[string]any{
		"jobId":             record.ID,
		"kind":              record.Kind,
		"success":           result.Success,
		"optimizationScore": result.OptimizationScore,
		"strategy":          result.Strategy,
		"conflictCount":     len(result.Conflicts),
		"solvingTimeMs":     result.SolvingTimeMS,
		"finishedAt":        time.Now().UTC(),
	}
	if !result.Success {
		meta["reason"] = result.Message
	}
	metaBytes, err := json.Marshal(meta)
	if err != nil {
		return err
	}

	if result.Success {
		if err := s.schedule.ReplaceSessions(ctx, record.ScheduleID, result.Sessions); err != nil {
			return err
		}
	}
	return s.schedule.UpdateStatus(ctx, record.ScheduleID, models.ScheduleStatusDraft, types.JSONText(metaBytes))
}

// retryable records the failure and reports it to the queue. Attempts short
// of the limit park the record as delayed until the backoff fires; the final
// attempt's bookkeeping happens in exhausted.
func (s *SolveJobService) retryable(ctx context.Context, record *models.SolveJob, cause error) error {
	if record.Attempts < s.maxAttempts {
		now := time.Now().UTC()
		message := appErrors.FromError(cause).Message
		record.State = models.JobStateDelayed
		record.Error = &message
		record.UpdatedAt = now
		if err := s.store.Save(ctx, record); err != nil {
			s.logger.Sugar().Errorw("failed to park job as delayed", "job_id", record.ID, "error", err)
		}
	}
	return cause
}

// exhausted finalizes a job that consumed every attempt.
func (s *SolveJobService) exhausted(job jobs.Job, cause error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	record, err := s.store.Find(ctx, job.ID)
	if err != nil || record == nil {
		s.logger.Sugar().Errorw("exhausted job record unavailable", "job_id", job.ID, "error", err)
		return
	}
	s.failJob(ctx, record, appErrors.FromError(cause).Message)
}

func (s *SolveJobService) failJob(ctx context.Context, record *models.SolveJob, reason string) {
	now := time.Now().UTC()
	record.State = models.JobStateFailed
	record.Error = &reason
	record.FinishedAt = &now
	record.UpdatedAt = now
	if err := s.store.Save(ctx, record); err != nil {
		s.logger.Sugar().Errorw("failed to mark job failed", "job_id", record.ID, "error", err)
	}

	if record.Kind != models.JobKindValidate && s.schedule != nil {
		meta, _ := json.Marshal(map[string]any{
			"jobId":    record.ID,
			"reason":   reason,
			"failedAt": now,
		})
		if err := s.schedule.UpdateStatus(ctx, record.ScheduleID, models.ScheduleStatusDraft, types.JSONText(meta)); err != nil {
			s.logger.Sugar().Errorw("failed to revert schedule after job failure",
				"job_id", record.ID, "schedule_id", record.ScheduleID, "error", err)
		}
	}
	s.logger.Sugar().Errorw("job failed permanently", "job_id", record.ID, "kind", record.Kind, "reason", reason)
}

func (s *SolveJobService) updateProgress(ctx context.Context, record *models.SolveJob, progress int) {
	record.Progress = progress
	record.UpdatedAt = time.Now().UTC()
	if err := s.store.Save(ctx, record); err != nil {
		s.logger.Sugar().Warnw("failed to record job progress", "job_id", record.ID, "progress", progress, "error", err)
	}
}

// recoverPending re-enqueues jobs interrupted by a restart: waiting and
// delayed jobs never ran to completion, active ones were cut mid-flight.
func (s *SolveJobService) recoverPending(ctx context.Context) error {
	for _, state := range []models.JobState{models.JobStateWaiting, models.JobStateDelayed, models.JobStateActive} {
		records, err := s.store.ListByState(ctx, state)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list pending jobs")
		}
		for i := range records {
			record := records[i]
			record.State = models.JobStateWaiting
			record.UpdatedAt = time.Now().UTC()
			if err := s.store.Save(ctx, &record); err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reset pending job")
			}
			if err := s.queue.Enqueue(jobs.Job{ID: record.ID, Type: string(record.Kind)}); err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to re-enqueue pending job")
			}
			s.logger.Sugar().Infow("recovered pending job", "job_id", record.ID, "previous_state", state)
		}
	}
	return nil
}

func (s *SolveJobService) pruneLoop(ctx context.Context) {
	ticker := time.NewTicker(s.pruneEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pruned, err := s.store.PruneBefore(ctx, time.Now().UTC().Add(-s.pruneAge))
			if err != nil {
				s.logger.Sugar().Warnw("job pruning failed", "error", err)
				continue
			}
			if pruned > 0 {
				s.logger.Sugar().Infow("pruned finished jobs", "count", pruned)
			}
		}
	}
}
