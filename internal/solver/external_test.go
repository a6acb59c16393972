package solver

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdoElHodaky/sasscolmng-sub001/internal/dto"
	"github.com/abdoElHodaky/sasscolmng-sub001/internal/models"
)

// writeFakeSolver drops an executable shell script that stands in for the
// solver binary.
func writeFakeSolver(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake solver scripts require a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "fake-solver")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755))
	return path
}

func externalRequestFixture() *Request {
	start, _ := time.Parse("2006-01-02", "2026-09-07")
	end, _ := time.Parse("2006-01-02", "2026-09-11")
	return &Request{
		ScheduleID: "schedule-1",
		SchoolID:   "school-1",
		StartDate:  start,
		EndDate:    end,
		Resources:  solverResources(),
		Demands: []dto.ClassDemand{
			{SubjectID: "math", ClassID: "c1", TeacherID: "t1", WeeklyCount: 2},
		},
	}
}

func TestExternalSolverUnavailable(t *testing.T) {
	solver := NewExternalProcessSolver(ExternalConfig{BinaryPath: "/nonexistent/solver"})
	assert.False(t, solver.Available())

	_, err := solver.Solve(context.Background(), externalRequestFixture())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestExternalSolverSuccess(t *testing.T) {
	// The script echoes one session back, proving the request file reaches
	// it and the response file round-trips.
	binary := writeFakeSolver(t, `
out=""
while [ $# -gt 0 ]; do
  if [ "$1" = "--output" ]; then out="$2"; fi
  shift
done
cat > "$out" <<'EOF'
{"success":true,"sessions":[{"id":"x1","scheduleId":"schedule-1","subjectId":"math","classId":"c1","teacherId":"t1","roomId":"r1","timeSlotId":"mon-1","date":"2026-09-07","duration":60,"type":"LECTURE","priority":0}],"warnings":["one demand relaxed"]}
EOF
`)
	solver := NewExternalProcessSolver(ExternalConfig{BinaryPath: binary, WorkDir: t.TempDir()})
	require.True(t, solver.Available())

	result, err := solver.Solve(context.Background(), externalRequestFixture())
	require.NoError(t, err)
	require.Len(t, result.Sessions, 1)
	assert.Equal(t, "x1", result.Sessions[0].ID)
	assert.Equal(t, "mon-1", result.Sessions[0].TimeSlotID)
	assert.Equal(t, []string{"one demand relaxed"}, result.Warnings)
}

func TestExternalSolverRequestCarriesPreferencesAndRules(t *testing.T) {
	// The script copies the request file aside so the test can inspect the
	// exact payload the binary receives.
	captured := filepath.Join(t.TempDir(), "captured.json")
	binary := writeFakeSolver(t, `
in=""
out=""
while [ $# -gt 0 ]; do
  if [ "$1" = "--input" ]; then in="$2"; fi
  if [ "$1" = "--output" ]; then out="$2"; fi
  shift
done
cp "$in" `+captured+`
echo '{"success":true,"sessions":[]}' > "$out"
`)
	solver := NewExternalProcessSolver(ExternalConfig{BinaryPath: binary, WorkDir: t.TempDir()})

	req := externalRequestFixture()
	req.Preferences = []models.SchedulePreference{
		{ID: "p1", Type: models.PreferenceTeacherTime, EntityID: "t1", Weight: 2,
			Params: models.PreferenceParams{"avoidSlots": []string{"mon-1"}}},
	}
	req.Rules = []models.SchedulingRule{
		{ID: "rule1", Type: models.RuleConsecutivePeriods, Active: true,
			Params: models.PreferenceParams{"maxConsecutiveSubject": 2}},
	}

	_, err := solver.Solve(context.Background(), req)
	require.NoError(t, err)

	raw, err := os.ReadFile(captured)
	require.NoError(t, err)

	var payload map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &payload))
	require.Contains(t, payload, "preferences")
	require.Contains(t, payload, "rules")

	var prefs []models.SchedulePreference
	require.NoError(t, json.Unmarshal(payload["preferences"], &prefs))
	require.Len(t, prefs, 1)
	assert.Equal(t, "t1", prefs[0].EntityID)
	assert.Equal(t, []string{"mon-1"}, prefs[0].Params.StringSlice("avoidSlots"))

	var rules []models.SchedulingRule
	require.NoError(t, json.Unmarshal(payload["rules"], &rules))
	require.Len(t, rules, 1)
	assert.Equal(t, models.RuleConsecutivePeriods, rules[0].Type)
}

func TestExternalSolverNonZeroExit(t *testing.T) {
	binary := writeFakeSolver(t, "echo 'infeasible model' >&2\nexit 3\n")
	solver := NewExternalProcessSolver(ExternalConfig{BinaryPath: binary, WorkDir: t.TempDir()})

	_, err := solver.Solve(context.Background(), externalRequestFixture())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exited abnormally")
}

func TestExternalSolverMissingResponse(t *testing.T) {
	binary := writeFakeSolver(t, "exit 0\n")
	solver := NewExternalProcessSolver(ExternalConfig{BinaryPath: binary, WorkDir: t.TempDir()})

	_, err := solver.Solve(context.Background(), externalRequestFixture())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no response file")
}

func TestExternalSolverMalformedResponse(t *testing.T) {
	binary := writeFakeSolver(t, `
out=""
while [ $# -gt 0 ]; do
  if [ "$1" = "--output" ]; then out="$2"; fi
  shift
done
echo 'not json' > "$out"
`)
	solver := NewExternalProcessSolver(ExternalConfig{BinaryPath: binary, WorkDir: t.TempDir()})

	_, err := solver.Solve(context.Background(), externalRequestFixture())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not valid JSON")
}

func TestExternalSolverReportedFailure(t *testing.T) {
	binary := writeFakeSolver(t, `
out=""
while [ $# -gt 0 ]; do
  if [ "$1" = "--output" ]; then out="$2"; fi
  shift
done
echo '{"success":false,"message":"model proven infeasible"}' > "$out"
`)
	solver := NewExternalProcessSolver(ExternalConfig{BinaryPath: binary, WorkDir: t.TempDir()})

	_, err := solver.Solve(context.Background(), externalRequestFixture())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model proven infeasible")
}

func TestExternalSolverTimeout(t *testing.T) {
	binary := writeFakeSolver(t, "sleep 5\n")
	solver := NewExternalProcessSolver(ExternalConfig{
		BinaryPath: binary,
		WorkDir:    t.TempDir(),
		Timeout:    200 * time.Millisecond,
	})

	started := time.Now()
	_, err := solver.Solve(context.Background(), externalRequestFixture())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "time budget")
	assert.Less(t, time.Since(started), 3*time.Second)
}
