package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/abdoElHodaky/sasscolmng-sub001/internal/models"
)

const (
	jobKeyPrefix   = "solve:job:"
	jobStatePrefix = "solve:jobs:"
)

// SolveJobRepository keeps job records in Redis: one JSON value per job plus
// a set per lifecycle state so status counts and recovery scans stay cheap.
// Records survive process restarts, which is what makes startup recovery of
// interrupted jobs possible.
type SolveJobRepository struct {
	client *redis.Client
	logger *zap.Logger
}

// NewSolveJobRepository constructs the job record store.
func NewSolveJobRepository(client *redis.Client, logger *zap.Logger) *SolveJobRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SolveJobRepository{client: client, logger: logger}
}

func jobKey(id string) string               { return jobKeyPrefix + id }
func stateKey(state models.JobState) string { return jobStatePrefix + string(state) }

// Save upserts the record and moves it to its current state's set.
func (r *SolveJobRepository) Save(ctx context.Context, job *models.SolveJob) error {
	if job == nil || job.ID == "" {
		return fmt.Errorf("job record requires an id")
	}
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job %s: %w", job.ID, err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, jobKey(job.ID), payload, 0)
	for _, state := range models.JobStates {
		if state == job.State {
			pipe.SAdd(ctx, stateKey(state), job.ID)
		} else {
			pipe.SRem(ctx, stateKey(state), job.ID)
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save job %s: %w", job.ID, err)
	}
	return nil
}

// Find loads one record; a missing id yields (nil, nil).
func (r *SolveJobRepository) Find(ctx context.Context, id string) (*models.SolveJob, error) {
	raw, err := r.client.Get(ctx, jobKey(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("load job %s: %w", id, err)
	}
	var job models.SolveJob
	if err := json.Unmarshal(raw, &job); err != nil {
		return nil, fmt.Errorf("unmarshal job %s: %w", id, err)
	}
	return &job, nil
}

// ListByState returns every record currently in one lifecycle state.
func (r *SolveJobRepository) ListByState(ctx context.Context, state models.JobState) ([]models.SolveJob, error) {
	ids, err := r.client.SMembers(ctx, stateKey(state)).Result()
	if err != nil {
		return nil, fmt.Errorf("list %s jobs: %w", state, err)
	}
	records := make([]models.SolveJob, 0, len(ids))
	for _, id := range ids {
		job, err := r.Find(ctx, id)
		if err != nil {
			return nil, err
		}
		if job == nil {
			// Stale index entry: the record was deleted out from under the
			// set. Clean it up and move on.
			if err := r.client.SRem(ctx, stateKey(state), id).Err(); err != nil {
				r.logger.Sugar().Warnw("failed to drop stale job index entry", "job_id", id, "error", err)
			}
			continue
		}
		records = append(records, *job)
	}
	return records, nil
}

// CountByState reports the queue depth per lifecycle state.
func (r *SolveJobRepository) CountByState(ctx context.Context) (models.QueueStats, error) {
	pipe := r.client.Pipeline()
	counts := make(map[models.JobState]*redis.IntCmd, len(models.JobStates))
	for _, state := range models.JobStates {
		counts[state] = pipe.SCard(ctx, stateKey(state))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return models.QueueStats{}, fmt.Errorf("count jobs: %w", err)
	}
	return models.QueueStats{
		Waiting:   int(counts[models.JobStateWaiting].Val()),
		Active:    int(counts[models.JobStateActive].Val()),
		Completed: int(counts[models.JobStateCompleted].Val()),
		Failed:    int(counts[models.JobStateFailed].Val()),
		Delayed:   int(counts[models.JobStateDelayed].Val()),
	}, nil
}

// PruneBefore deletes finished records older than the cutoff and returns how
// many were removed. Pending records are never pruned.
func (r *SolveJobRepository) PruneBefore(ctx context.Context, cutoff time.Time) (int, error) {
	pruned := 0
	for _, state := range []models.JobState{models.JobStateCompleted, models.JobStateFailed} {
		records, err := r.ListByState(ctx, state)
		if err != nil {
			return pruned, err
		}
		for _, job := range records {
			if job.FinishedAt == nil || job.FinishedAt.After(cutoff) {
				continue
			}
			pipe := r.client.TxPipeline()
			pipe.Del(ctx, jobKey(job.ID))
			pipe.SRem(ctx, stateKey(state), job.ID)
			if _, err := pipe.Exec(ctx); err != nil {
				return pruned, fmt.Errorf("prune job %s: %w", job.ID, err)
			}
			pruned++
		}
	}
	return pruned, nil
}
