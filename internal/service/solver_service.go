package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/abdoElHodaky/sasscolmng-sub001/internal/constraints"
	"github.com/abdoElHodaky/sasscolmng-sub001/internal/dto"
	"github.com/abdoElHodaky/sasscolmng-sub001/internal/models"
	"github.com/abdoElHodaky/sasscolmng-sub001/internal/solver"
	appErrors "github.com/abdoElHodaky/sasscolmng-sub001/pkg/errors"
)

type (
	solverRequest = solver.Request
	solverResult  = solver.Result
)

// solveStrategy is the solver-side surface the orchestrator drives.
type solveStrategy interface {
	Name() string
	Solve(ctx context.Context, req *solverRequest) (*solverResult, error)
}

// availabilityReporter lets a strategy opt out before being invoked, e.g.
// when its binary is not deployed.
type availabilityReporter interface {
	Available() bool
}

// SolverServiceConfig bounds solving runs.
type SolverServiceConfig struct {
	DefaultTimeout  time.Duration
	FallbackEnabled bool
	MaxTeachers     int
	MaxClasses      int
	MaxSessions     int
}

// SolverService orchestrates one scheduling run end to end: request
// validation, pre-solve hard validation, strategy invocation with fallback,
// post-solve validation and soft scoring. The scheduling result is the only
// artifact it returns; it never persists anything itself.
type SolverService struct {
	primary  solveStrategy
	fallback solveStrategy
	hard     *constraints.HardEngine
	soft     *constraints.SoftEngine

	defaultTimeout  time.Duration
	fallbackEnabled bool
	maxTeachers     int
	maxClasses      int
	maxSessions     int

	validator *validator.Validate
	logger    *zap.Logger
}

// NewSolverService wires the orchestrator. The fallback strategy must always
// be able to run; the primary may be absent.
func NewSolverService(
	primary solveStrategy,
	fallback solveStrategy,
	hard *constraints.HardEngine,
	soft *constraints.SoftEngine,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg SolverServiceConfig,
) *SolverService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = 60 * time.Second
	}
	if cfg.MaxTeachers <= 0 {
		cfg.MaxTeachers = 500
	}
	if cfg.MaxClasses <= 0 {
		cfg.MaxClasses = 300
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = 20000
	}
	return &SolverService{
		primary:         primary,
		fallback:        fallback,
		hard:            hard,
		soft:            soft,
		defaultTimeout:  cfg.DefaultTimeout,
		fallbackEnabled: cfg.FallbackEnabled,
		maxTeachers:     cfg.MaxTeachers,
		maxClasses:      cfg.MaxClasses,
		maxSessions:     cfg.MaxSessions,
		validator:       validate,
		logger:          logger,
	}
}

// ValidateRequest checks structural validity plus cross-references between
// demands and the resource snapshot.
func (s *SolverService) ValidateRequest(req *dto.SchedulingRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid scheduling request")
	}
	start, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		return appErrors.Clone(appErrors.ErrValidation, "startDate must be YYYY-MM-DD")
	}
	end, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		return appErrors.Clone(appErrors.ErrValidation, "endDate must be YYYY-MM-DD")
	}
	if end.Before(start) {
		return appErrors.Clone(appErrors.ErrValidation, "endDate must not precede startDate")
	}

	teacherIDs := make(map[string]bool, len(req.Resources.Teachers))
	for _, teacher := range req.Resources.Teachers {
		teacherIDs[teacher.ID] = true
	}
	classIDs := make(map[string]bool, len(req.Resources.Classes))
	for _, class := range req.Resources.Classes {
		classIDs[class.ID] = true
	}
	subjectIDs := make(map[string]bool, len(req.Resources.Subjects))
	for _, subject := range req.Resources.Subjects {
		subjectIDs[subject.ID] = true
	}
	for _, demand := range req.Demands {
		if !teacherIDs[demand.TeacherID] {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("demand references unknown teacher %s", demand.TeacherID))
		}
		if !classIDs[demand.ClassID] {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("demand references unknown class %s", demand.ClassID))
		}
		if !subjectIDs[demand.SubjectID] {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("demand references unknown subject %s", demand.SubjectID))
		}
	}
	return nil
}

// Solve runs the full pipeline. Requests whose existing sessions already
// break hard constraints are blocked before any strategy is invoked.
func (s *SolverService) Solve(ctx context.Context, req *dto.SchedulingRequest) (*dto.SchedulingResult, error) {
	if err := s.ValidateRequest(req); err != nil {
		return nil, err
	}
	started := time.Now()

	resourceCtx := s.buildContext(req, req.ExistingSessions)
	if len(req.ExistingSessions) > 0 && s.hard.HasViolations(resourceCtx) {
		conflicts := s.hard.ValidateAll(resourceCtx)
		s.logger.Warn("solve blocked by pre-existing hard violations",
			zap.String("scheduleId", req.ScheduleID),
			zap.Int("conflicts", len(conflicts)))
		return &dto.SchedulingResult{
			Success:       false,
			Sessions:      req.ExistingSessions,
			Conflicts:     conflicts,
			SolvingTimeMS: time.Since(started).Milliseconds(),
			Message:       "existing sessions violate hard constraints; resolve them before solving",
		}, nil
	}

	strategyResult, strategyName, warnings, err := s.runStrategy(ctx, req)
	if err != nil {
		return nil, err
	}

	sessionCtx := resourceCtx.WithSessions(strategyResult.Sessions)
	conflicts := s.hard.ValidateAll(sessionCtx)
	score := s.soft.CalculateOptimizationScore(sessionCtx)
	suggestions := s.soft.GetOptimizationSuggestions(sessionCtx)

	result := &dto.SchedulingResult{
		Success:           len(conflicts) == 0,
		Sessions:          strategyResult.Sessions,
		Conflicts:         conflicts,
		OptimizationScore: score,
		SolvingTimeMS:     time.Since(started).Milliseconds(),
		Strategy:          strategyName,
		Warnings:          append(warnings, suggestions...),
	}
	if result.Success {
		result.Message = fmt.Sprintf("scheduled %d sessions with score %d", len(result.Sessions), score)
	} else {
		result.Message = fmt.Sprintf("produced %d sessions but %d hard conflicts remain", len(result.Sessions), len(conflicts))
	}

	s.logger.Info("solve finished",
		zap.String("scheduleId", req.ScheduleID),
		zap.String("strategy", strategyName),
		zap.Bool("success", result.Success),
		zap.Int("sessions", len(result.Sessions)),
		zap.Int("score", score),
		zap.Int64("solvingTimeMs", result.SolvingTimeMS))
	return result, nil
}

// ValidateOnly checks the existing sessions against both engines without
// producing new placements.
func (s *SolverService) ValidateOnly(ctx context.Context, req *dto.SchedulingRequest) (*dto.SchedulingResult, error) {
	if err := s.ValidateRequest(req); err != nil {
		return nil, err
	}
	started := time.Now()

	resourceCtx := s.buildContext(req, req.ExistingSessions)
	conflicts := s.hard.ValidateAll(resourceCtx)
	score := s.soft.CalculateOptimizationScore(resourceCtx)
	suggestions := s.soft.GetOptimizationSuggestions(resourceCtx)

	result := &dto.SchedulingResult{
		Success:           len(conflicts) == 0,
		Sessions:          req.ExistingSessions,
		Conflicts:         conflicts,
		OptimizationScore: score,
		SolvingTimeMS:     time.Since(started).Milliseconds(),
		Warnings:          suggestions,
	}
	if result.Success {
		result.Message = fmt.Sprintf("%d sessions satisfy every hard constraint", len(req.ExistingSessions))
	} else {
		result.Message = fmt.Sprintf("%d hard constraint violations found", len(conflicts))
	}
	return result, nil
}

// Capabilities advertises the configured solving surface.
func (s *SolverService) Capabilities() dto.SolverCapabilities {
	externalReady := false
	if s.primary != nil {
		if reporter, ok := s.primary.(availabilityReporter); ok {
			externalReady = reporter.Available()
		} else {
			externalReady = true
		}
	}
	return dto.SolverCapabilities{
		HardConstraints:     s.hard.ConstraintIDs(),
		SoftConstraints:     s.soft.ConstraintIDs(),
		MaxTeachers:         s.maxTeachers,
		MaxClasses:          s.maxClasses,
		MaxSessions:         s.maxSessions,
		ExternalSolver:      externalReady,
		HeuristicFallback:   s.fallbackEnabled && s.fallback != nil,
		AsyncJobs:           true,
		SuggestionReporting: true,
	}
}

// runStrategy invokes the primary strategy when usable and falls back
// transparently on failure, recording why in the warnings.
func (s *SolverService) runStrategy(ctx context.Context, req *dto.SchedulingRequest) (*solverResult, string, []string, error) {
	solveReq := s.buildStrategyRequest(req)

	primaryUsable := s.primary != nil
	if primaryUsable {
		if reporter, ok := s.primary.(availabilityReporter); ok && !reporter.Available() {
			primaryUsable = false
		}
	}

	if primaryUsable {
		result, err := s.primary.Solve(ctx, solveReq)
		if err == nil {
			return result, s.primary.Name(), result.Warnings, nil
		}
		if !s.fallbackEnabled || s.fallback == nil {
			return nil, "", nil, err
		}
		s.logger.Warn("primary strategy failed, falling back",
			zap.String("scheduleId", req.ScheduleID),
			zap.String("primary", s.primary.Name()),
			zap.String("fallback", s.fallback.Name()),
			zap.Error(err))
		result, fallbackErr := s.fallback.Solve(ctx, solveReq)
		if fallbackErr != nil {
			return nil, "", nil, appErrors.Clone(appErrors.ErrSolverUnavailable, "both solving strategies failed")
		}
		warnings := append([]string{fmt.Sprintf("primary solver failed (%s); result produced by %s strategy", appErrors.FromError(err).Message, s.fallback.Name())}, result.Warnings...)
		return result, s.fallback.Name(), warnings, nil
	}

	if s.fallback == nil {
		return nil, "", nil, appErrors.Clone(appErrors.ErrSolverUnavailable, "no solving strategy configured")
	}
	result, err := s.fallback.Solve(ctx, solveReq)
	if err != nil {
		return nil, "", nil, err
	}
	return result, s.fallback.Name(), result.Warnings, nil
}

func (s *SolverService) buildContext(req *dto.SchedulingRequest, sessions []models.ScheduledSession) *constraints.Context {
	return constraints.NewContext(constraints.ContextInput{
		SchoolID:    req.SchoolID,
		ScheduleID:  req.ScheduleID,
		Sessions:    sessions,
		TimeSlots:   req.Resources.TimeSlots,
		Teachers:    req.Resources.Teachers,
		Rooms:       req.Resources.Rooms,
		Classes:     req.Resources.Classes,
		Subjects:    req.Resources.Subjects,
		Preferences: req.Preferences,
		Rules:       req.Rules,
	})
}

func (s *SolverService) buildStrategyRequest(req *dto.SchedulingRequest) *solverRequest {
	timeout := s.defaultTimeout
	if req.Config.MaxSolvingTimeSeconds > 0 {
		timeout = time.Duration(req.Config.MaxSolvingTimeSeconds) * time.Second
	}
	start, _ := time.Parse("2006-01-02", req.StartDate)
	end, _ := time.Parse("2006-01-02", req.EndDate)
	return &solverRequest{
		ScheduleID:        req.ScheduleID,
		SchoolID:          req.SchoolID,
		StartDate:         start,
		EndDate:           end,
		Resources:         req.Resources,
		Demands:           req.Demands,
		Preferences:       req.Preferences,
		Rules:             req.Rules,
		ExistingSessions:  req.ExistingSessions,
		Timeout:           timeout,
		OptimizationLevel: req.Config.OptimizationLevel,
	}
}
