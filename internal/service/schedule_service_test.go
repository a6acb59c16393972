package service

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdoElHodaky/sasscolmng-sub001/internal/dto"
	"github.com/abdoElHodaky/sasscolmng-sub001/internal/models"
	appErrors "github.com/abdoElHodaky/sasscolmng-sub001/pkg/errors"
)

type stubScheduleRepo struct {
	schedules map[string]*models.Schedule
	created   *models.Schedule
	sessions  []models.ScheduledSession
	statuses  []models.ScheduleStatus
}

func (s *stubScheduleRepo) CreateVersioned(ctx context.Context, schedule *models.Schedule) error {
	schedule.ID = "sched-new"
	schedule.Version = 2
	s.created = schedule
	return nil
}

func (s *stubScheduleRepo) FindByID(ctx context.Context, id string) (*models.Schedule, error) {
	schedule, ok := s.schedules[id]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
	}
	copied := *schedule
	return &copied, nil
}

func (s *stubScheduleRepo) UpdateStatus(ctx context.Context, scheduleID string, status models.ScheduleStatus, meta types.JSONText) error {
	s.statuses = append(s.statuses, status)
	return nil
}

func (s *stubScheduleRepo) ListSessions(ctx context.Context, scheduleID string) ([]models.ScheduledSession, error) {
	return s.sessions, nil
}

type stubQueryRecorder struct {
	labels []string
}

func (s *stubQueryRecorder) ObserveDBQuery(label string, duration time.Duration) {
	s.labels = append(s.labels, label)
}

type stubSnapshotter struct {
	set      *dto.ResourceSet
	schoolID string
}

func (s *stubSnapshotter) Snapshot(ctx context.Context, schoolID string) (*dto.ResourceSet, error) {
	s.schoolID = schoolID
	return s.set, nil
}

func TestScheduleServiceCreate(t *testing.T) {
	repo := &stubScheduleRepo{schedules: map[string]*models.Schedule{}}
	svc := NewScheduleService(repo, &stubSnapshotter{}, nil, nil, nil)

	schedule, err := svc.Create(context.Background(), &dto.CreateScheduleRequest{
		SchoolID: "school-1",
		TermID:   "term-1",
		Name:     "Fall timetable",
	})
	require.NoError(t, err)
	assert.Equal(t, "sched-new", schedule.ID)
	assert.Equal(t, 2, schedule.Version)
	assert.Equal(t, models.ScheduleStatusDraft, schedule.Status)

	_, err = svc.Create(context.Background(), &dto.CreateScheduleRequest{SchoolID: "school-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestScheduleServiceTransitions(t *testing.T) {
	repo := &stubScheduleRepo{schedules: map[string]*models.Schedule{
		"draft":     {ID: "draft", Status: models.ScheduleStatusDraft},
		"published": {ID: "published", Status: models.ScheduleStatusPublished},
	}}
	svc := NewScheduleService(repo, &stubSnapshotter{}, nil, nil, nil)

	schedule, err := svc.Publish(context.Background(), "draft")
	require.NoError(t, err)
	assert.Equal(t, models.ScheduleStatusPublished, schedule.Status)

	schedule, err = svc.Archive(context.Background(), "published")
	require.NoError(t, err)
	assert.Equal(t, models.ScheduleStatusArchived, schedule.Status)

	_, err = svc.Publish(context.Background(), "published")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)

	_, err = svc.Publish(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestScheduleServiceSessions(t *testing.T) {
	repo := &stubScheduleRepo{
		schedules: map[string]*models.Schedule{"sched-1": {ID: "sched-1", Status: models.ScheduleStatusDraft}},
		sessions:  []models.ScheduledSession{placedSession("s1", "mon-1")},
	}
	svc := NewScheduleService(repo, &stubSnapshotter{}, nil, nil, nil)

	sessions, err := svc.Sessions(context.Background(), "sched-1")
	require.NoError(t, err)
	assert.Len(t, sessions, 1)

	_, err = svc.Sessions(context.Background(), "missing")
	require.Error(t, err)
}

func TestScheduleServiceRecordsQueryTimings(t *testing.T) {
	repo := &stubScheduleRepo{schedules: map[string]*models.Schedule{
		"draft": {ID: "draft", Status: models.ScheduleStatusDraft},
	}}
	snap := &stubSnapshotter{set: &dto.ResourceSet{}}
	recorder := &stubQueryRecorder{}
	svc := NewScheduleService(repo, snap, recorder, nil, nil)

	_, err := svc.Create(context.Background(), &dto.CreateScheduleRequest{
		SchoolID: "school-1", TermID: "term-1", Name: "Fall timetable",
	})
	require.NoError(t, err)
	_, err = svc.Publish(context.Background(), "draft")
	require.NoError(t, err)
	_, err = svc.Resources(context.Background(), "school-1")
	require.NoError(t, err)

	assert.Contains(t, recorder.labels, "schedule_insert")
	assert.Contains(t, recorder.labels, "schedule_status_update")
	assert.Contains(t, recorder.labels, "resource_snapshot")
}

func TestScheduleServiceResources(t *testing.T) {
	snap := &stubSnapshotter{set: &dto.ResourceSet{Teachers: []models.Teacher{{ID: "t1"}}}}
	svc := NewScheduleService(&stubScheduleRepo{}, snap, nil, nil, nil)

	set, err := svc.Resources(context.Background(), "school-1")
	require.NoError(t, err)
	assert.Len(t, set.Teachers, 1)
	assert.Equal(t, "school-1", snap.schoolID)

	_, err = svc.Resources(context.Background(), "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
