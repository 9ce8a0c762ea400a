package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cadencehq/cadence/errors"
	qtest "github.com/cadencehq/cadence/internal/testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore(qtest.CreateTestDB(t))
	require.NoError(t, s.Migrate())
	return s
}

func TestCreateAndGetJob(t *testing.T) {
	s := newTestStore(t)

	job := &Job{
		Name:     "backup",
		Schedule: "every day 03:30",
		Actions:  []string{"dump", "upload"},
		Enabled:  true,
	}
	require.NoError(t, s.CreateJob(job))
	assert.NotEmpty(t, job.ID)

	got, err := s.GetJob(job.ID)
	require.NoError(t, err)
	assert.Equal(t, "backup", got.Name)
	assert.Equal(t, "every day 03:30", got.Schedule)
	assert.Equal(t, []string{"dump", "upload"}, got.Actions)
	assert.True(t, got.Enabled)

	byName, err := s.GetJobByName("backup")
	require.NoError(t, err)
	assert.Equal(t, got.ID, byName.ID)
}

func TestCreateJob_RejectsBadSchedule(t *testing.T) {
	s := newTestStore(t)

	// A job with an unparsable schedule must be rejected at save time,
	// not admitted and silently never run.
	err := s.CreateJob(&Job{Name: "broken", Schedule: "whenever i feel like it"})
	require.Error(t, err)
	assert.True(t, errors.IsParseError(err))

	_, err = s.GetJobByName("broken")
	require.Error(t, err)
	assert.True(t, errors.IsNotFoundError(err))
}

func TestCreateJob_DefaultAction(t *testing.T) {
	s := newTestStore(t)

	job := &Job{Name: "tick", Schedule: "constant"}
	require.NoError(t, s.CreateJob(job))

	got, err := s.GetJob(job.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"default"}, got.Actions)
}

func TestListJobs(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.CreateJob(&Job{Name: "a", Schedule: "constant", Enabled: true}))
	require.NoError(t, s.CreateJob(&Job{Name: "b", Schedule: "interval:5m", Enabled: false}))

	all, err := s.ListJobs(false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	enabled, err := s.ListJobs(true)
	require.NoError(t, err)
	require.Len(t, enabled, 1)
	assert.Equal(t, "a", enabled[0].Name)
}

func TestSetJobEnabled(t *testing.T) {
	s := newTestStore(t)

	job := &Job{Name: "toggle", Schedule: "constant", Enabled: true}
	require.NoError(t, s.CreateJob(job))

	require.NoError(t, s.SetJobEnabled(job.ID, false))
	got, err := s.GetJob(job.ID)
	require.NoError(t, err)
	assert.False(t, got.Enabled)

	err = s.SetJobEnabled("no-such-id", true)
	require.Error(t, err)
	assert.True(t, errors.IsNotFoundError(err))
}

func TestUpdateJobSchedule(t *testing.T) {
	s := newTestStore(t)

	job := &Job{Name: "edit", Schedule: "every day 03:30", Enabled: true}
	require.NoError(t, s.CreateJob(job))

	require.NoError(t, s.UpdateJobSchedule(job.ID, "every monday at 09:00"))
	got, err := s.GetJob(job.ID)
	require.NoError(t, err)
	assert.Equal(t, "every monday at 09:00", got.Schedule)

	// Schedule edits go through the same validation as creation.
	err = s.UpdateJobSchedule(job.ID, "garbage in")
	require.Error(t, err)
	assert.True(t, errors.IsParseError(err))
}

func TestRunsLifecycle(t *testing.T) {
	s := newTestStore(t)

	job := &Job{Name: "runner", Schedule: "interval:5m", Enabled: true}
	require.NoError(t, s.CreateJob(job))

	base := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	runs := []*Run{
		{ID: "r1", JobID: job.ID, Action: "default", RunTime: base, State: RunStateScheduled},
		{ID: "r2", JobID: job.ID, Action: "default", RunTime: base.Add(time.Hour), State: RunStateScheduled},
	}
	require.NoError(t, s.CreateRuns(runs))

	// Newest first.
	listed, err := s.ListRuns(job.ID, 10)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, "r2", listed[0].ID)
	assert.Equal(t, base.Add(time.Hour), listed[0].RunTime)

	pending, err := s.PendingRuns(job.ID)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	outstanding, err := s.HasOutstandingRun(job.ID)
	require.NoError(t, err)
	assert.True(t, outstanding)

	require.NoError(t, s.SetRunState("r1", RunStateRunning))
	require.NoError(t, s.SetRunState("r2", RunStateSucceeded))

	pending, err = s.PendingRuns(job.ID)
	require.NoError(t, err)
	assert.Empty(t, pending)

	// r1 is running, so a run is still outstanding.
	outstanding, err = s.HasOutstandingRun(job.ID)
	require.NoError(t, err)
	assert.True(t, outstanding)

	require.NoError(t, s.SetRunState("r1", RunStateFailed))
	outstanding, err = s.HasOutstandingRun(job.ID)
	require.NoError(t, err)
	assert.False(t, outstanding)
}

func TestDeleteJobCascadesRuns(t *testing.T) {
	s := newTestStore(t)

	job := &Job{Name: "doomed", Schedule: "constant", Enabled: true}
	require.NoError(t, s.CreateJob(job))
	require.NoError(t, s.CreateRuns([]*Run{{
		ID: "r1", JobID: job.ID, Action: "default",
		RunTime: time.Now().UTC(), State: RunStateScheduled,
	}}))

	require.NoError(t, s.DeleteJob(job.ID))

	runs, err := s.ListRuns(job.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, runs)
}
