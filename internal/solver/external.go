package solver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/abdoElHodaky/sasscolmng-sub001/internal/dto"
	"github.com/abdoElHodaky/sasscolmng-sub001/internal/models"
	appErrors "github.com/abdoElHodaky/sasscolmng-sub001/pkg/errors"
)

const defaultExternalTimeout = 60 * time.Second

// externalRequest is the file contract handed to the solver binary.
type externalRequest struct {
	ScheduleID            string                      `json:"scheduleId"`
	SchoolID              string                      `json:"schoolId"`
	StartDate             string                      `json:"startDate"`
	EndDate               string                      `json:"endDate"`
	Resources             dto.ResourceSet             `json:"resources"`
	Demands               []dto.ClassDemand           `json:"demands"`
	Preferences           []models.SchedulePreference `json:"preferences"`
	Rules                 []models.SchedulingRule     `json:"rules"`
	ExistingSessions      []models.ScheduledSession   `json:"existingSessions,omitempty"`
	MaxSolvingTimeSeconds int                         `json:"maxSolvingTimeSeconds"`
	OptimizationLevel     string                      `json:"optimizationLevel"`
}

// externalResponse is the artifact the binary must leave behind.
type externalResponse struct {
	Success  bool                      `json:"success"`
	Sessions []models.ScheduledSession `json:"sessions"`
	Warnings []string                  `json:"warnings,omitempty"`
	Message  string                    `json:"message,omitempty"`
}

// ExternalConfig describes how to reach and bound the solver binary.
type ExternalConfig struct {
	BinaryPath string
	WorkDir    string
	Timeout    time.Duration
	Logger     *zap.Logger
}

// ExternalProcessSolver shells out to a dedicated solver binary using a
// JSON file contract: a request file in, a response file out. Every run is
// bounded by a wall-clock timeout; a run that misbehaves in any way (bad
// exit, missing or malformed response) surfaces as an error so the caller
// can fall back.
type ExternalProcessSolver struct {
	binaryPath string
	workDir    string
	timeout    time.Duration
	logger     *zap.Logger
}

// NewExternalProcessSolver builds the subprocess strategy.
func NewExternalProcessSolver(cfg ExternalConfig) *ExternalProcessSolver {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultExternalTimeout
	}
	if cfg.WorkDir == "" {
		cfg.WorkDir = os.TempDir()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &ExternalProcessSolver{
		binaryPath: cfg.BinaryPath,
		workDir:    cfg.WorkDir,
		timeout:    cfg.Timeout,
		logger:     cfg.Logger,
	}
}

func (s *ExternalProcessSolver) Name() string { return "external" }

// Available reports whether the configured binary exists and is a regular
// file. A missing binary is a normal deployment state, not an error.
func (s *ExternalProcessSolver) Available() bool {
	if s.binaryPath == "" {
		return false
	}
	info, err := os.Stat(s.binaryPath)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}

// Solve runs the binary over a scratch directory and parses its response
// file. The scratch directory is removed afterwards regardless of outcome.
func (s *ExternalProcessSolver) Solve(ctx context.Context, req *Request) (*Result, error) {
	if !s.Available() {
		return nil, appErrors.Clone(appErrors.ErrSolverUnavailable, fmt.Sprintf("solver binary %q not found", s.binaryPath))
	}

	dir, err := os.MkdirTemp(s.workDir, "solve-")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create solver scratch directory")
	}
	defer os.RemoveAll(dir)

	requestPath := filepath.Join(dir, "request.json")
	responsePath := filepath.Join(dir, "response.json")

	payload := externalRequest{
		ScheduleID:            req.ScheduleID,
		SchoolID:              req.SchoolID,
		StartDate:             req.StartDate.Format("2006-01-02"),
		EndDate:               req.EndDate.Format("2006-01-02"),
		Resources:             req.Resources,
		Demands:               req.Demands,
		Preferences:           req.Preferences,
		Rules:                 req.Rules,
		ExistingSessions:      req.ExistingSessions,
		MaxSolvingTimeSeconds: int(s.effectiveTimeout(req).Seconds()),
		OptimizationLevel:     req.OptimizationLevel,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode solver request")
	}
	if err := os.WriteFile(requestPath, data, 0o600); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to write solver request file")
	}

	runCtx, cancel := context.WithTimeout(ctx, s.effectiveTimeout(req))
	defer cancel()

	cmd := exec.CommandContext(runCtx, s.binaryPath, "--input", requestPath, "--output", responsePath)
	cmd.Dir = dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	started := time.Now()
	err = cmd.Run()
	elapsed := time.Since(started)

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		s.logger.Warn("external solver timed out",
			zap.String("scheduleId", req.ScheduleID),
			zap.Duration("elapsed", elapsed))
		return nil, appErrors.Clone(appErrors.ErrSolverUnavailable, fmt.Sprintf("solver exceeded %s time budget", s.effectiveTimeout(req)))
	}
	if err != nil {
		s.logger.Warn("external solver failed",
			zap.String("scheduleId", req.ScheduleID),
			zap.String("stderr", truncate(stderr.String(), 512)),
			zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrSolverUnavailable.Code, appErrors.ErrSolverUnavailable.Status, "solver binary exited abnormally")
	}

	raw, err := os.ReadFile(responsePath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrSolverUnavailable.Code, appErrors.ErrSolverUnavailable.Status, "solver produced no response file")
	}
	var resp externalResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrSolverUnavailable.Code, appErrors.ErrSolverUnavailable.Status, "solver response is not valid JSON")
	}
	if !resp.Success {
		message := resp.Message
		if message == "" {
			message = "solver reported failure without a message"
		}
		return nil, appErrors.Clone(appErrors.ErrSolverUnavailable, message)
	}

	s.logger.Info("external solver finished",
		zap.String("scheduleId", req.ScheduleID),
		zap.Int("sessions", len(resp.Sessions)),
		zap.Duration("elapsed", elapsed))

	return &Result{Sessions: resp.Sessions, Warnings: resp.Warnings}, nil
}

func (s *ExternalProcessSolver) effectiveTimeout(req *Request) time.Duration {
	if req.Timeout > 0 {
		return req.Timeout
	}
	return s.timeout
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
