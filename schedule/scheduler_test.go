package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRun implements JobRun for tests.
type fakeRun struct {
	runTime time.Time
}

func (r *fakeRun) RunTime() time.Time     { return r.runTime }
func (r *fakeRun) SetRunTime(t time.Time) { r.runTime = t }

// fakeJob implements Job for tests.
type fakeJob struct {
	history      []JobRun // newest first
	nextToFinish bool
	actions      int

	constant bool
	queueing bool
	built    []JobRun
}

func (j *fakeJob) Runs() []JobRun     { return j.history }
func (j *fakeJob) NextToFinish() bool { return j.nextToFinish }

func (j *fakeJob) BuildRuns() []JobRun {
	runs := make([]JobRun, j.actions)
	for i := range runs {
		runs[i] = &fakeRun{}
	}
	j.built = runs
	return runs
}

func (j *fakeJob) SetConstant(v bool) { j.constant = v }
func (j *fakeJob) SetQueueing(v bool) { j.queueing = v }

// freezeClock pins the schedule clock for the duration of a test.
func freezeClock(t *testing.T, instant time.Time) {
	t.Helper()
	prev := timeNow
	timeNow = func() time.Time { return instant }
	t.Cleanup(func() { timeNow = prev })
}

func TestConstantScheduler_NextRuns(t *testing.T) {
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	freezeClock(t, now)

	sched := &ConstantScheduler{}

	// A prior run still outstanding: nothing is scheduled.
	blocked := &fakeJob{nextToFinish: true, actions: 2}
	runs, err := sched.NextRuns(blocked)
	require.NoError(t, err)
	assert.Empty(t, runs)

	// Otherwise one run per action, all stamped with the current instant.
	job := &fakeJob{actions: 3}
	runs, err = sched.NextRuns(job)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	for _, run := range runs {
		assert.Equal(t, now, run.RunTime())
	}
}

func TestConstantScheduler_JobSetup(t *testing.T) {
	job := &fakeJob{queueing: true}
	sched := &ConstantScheduler{}
	sched.JobSetup(job)
	assert.True(t, job.constant)
	assert.False(t, job.queueing)
}

func TestConstantScheduler_RenderAndEqual(t *testing.T) {
	a := &ConstantScheduler{}
	b := &ConstantScheduler{}
	assert.Equal(t, "CONSTANT", a.String())
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(&IntervalScheduler{Interval: time.Minute}))
}

func TestIntervalScheduler_NextRuns(t *testing.T) {
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	freezeClock(t, now)

	sched := &IntervalScheduler{Interval: 300 * time.Second}

	// History is irrelevant: the interval runs from now.
	job := &fakeJob{
		actions: 2,
		history: []JobRun{&fakeRun{runTime: now.Add(-time.Hour)}},
	}
	runs, err := sched.NextRuns(job)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	for _, run := range runs {
		assert.Equal(t, now.Add(300*time.Second), run.RunTime())
	}
}

func TestIntervalScheduler_JobSetup(t *testing.T) {
	job := &fakeJob{queueing: true}
	(&IntervalScheduler{Interval: time.Minute}).JobSetup(job)
	assert.False(t, job.queueing)
	assert.False(t, job.constant)
}

func TestIntervalScheduler_RenderAndEqual(t *testing.T) {
	five := &IntervalScheduler{Interval: 5 * time.Minute}
	assert.Equal(t, "INTERVAL:5m0s", five.String())
	assert.True(t, five.Equal(&IntervalScheduler{Interval: 5 * time.Minute}))
	assert.False(t, five.Equal(&IntervalScheduler{Interval: 6 * time.Minute}))
	assert.False(t, five.Equal(&ConstantScheduler{}))
}

func TestGrocScheduler_NextRuns_NoHistory(t *testing.T) {
	// Today's 09:00 already passed, so the next run lands tomorrow.
	freezeClock(t, time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC))

	sched, err := ParseGroc("every day 09:00")
	require.NoError(t, err)

	job := &fakeJob{actions: 1}
	runs, err := sched.NextRuns(job)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC),
		runs[0].RunTime().UTC())
}

func TestGrocScheduler_NextRuns_BeforeTimeOfDay(t *testing.T) {
	// 09:00 has not happened yet today.
	freezeClock(t, time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC))

	sched, err := ParseGroc("every day 09:00")
	require.NoError(t, err)

	job := &fakeJob{actions: 1}
	runs, err := sched.NextRuns(job)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
		runs[0].RunTime().UTC())
}

func TestGrocScheduler_NextRuns_FromHistory(t *testing.T) {
	// The reference instant is the most recent run's time, not the clock.
	freezeClock(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))

	sched, err := ParseGroc("every day 09:00")
	require.NoError(t, err)

	job := &fakeJob{
		actions: 1,
		history: []JobRun{
			&fakeRun{runTime: time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)},
			&fakeRun{runTime: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)},
		},
	}
	runs, err := sched.NextRuns(job)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, time.Date(2024, 1, 3, 9, 0, 0, 0, time.UTC),
		runs[0].RunTime().UTC())
}

func TestGrocScheduler_JobSetup(t *testing.T) {
	job := &fakeJob{}
	sched, err := ParseGroc("every day 09:00")
	require.NoError(t, err)
	sched.JobSetup(job)
	assert.True(t, job.queueing)
	assert.False(t, job.constant)
}

func TestGrocScheduler_Render(t *testing.T) {
	daily, err := NewDailyScheduler(nil, TimeOfDay{})
	require.NoError(t, err)
	assert.Equal(t, "DAILY", daily.String())

	custom, err := ParseGroc("every monday at 09:00")
	require.NoError(t, err)
	assert.Equal(t, "every monday at 09:00", custom.String())
}

func TestGrocScheduler_Equal(t *testing.T) {
	// Semantically identical expressions with different spellings.
	a, err := ParseGroc("every monday,wednesday at 09:00")
	require.NoError(t, err)
	b, err := ParseGroc("every mo,we 09:00")
	require.NoError(t, err)
	assert.True(t, a.Equal(b))

	c, err := ParseGroc("every monday,wednesday at 10:00")
	require.NoError(t, err)
	assert.False(t, a.Equal(c))

	d, err := ParseGroc("every monday,wednesday at 09:00")
	require.NoError(t, err)
	d.Spec().Timezone = "Australia/Victoria"
	assert.False(t, a.Equal(d))

	assert.False(t, a.Equal(&ConstantScheduler{}))
}

func TestGrocScheduler_StartTimeCompat(t *testing.T) {
	start := TimeOfDay{Hour: 4, Minute: 30}
	sched, err := NewDailyScheduler([]string{"mon", "wed", "fri"}, start)
	require.NoError(t, err)

	// Getter/setter symmetry: the configured start-of-day is the
	// effective time of day.
	assert.Equal(t, start, sched.StartTime())
	assert.Equal(t, []int{1, 3, 5}, sched.Spec().Weekdays)

	sched.SetStartTime(TimeOfDay{Hour: 6})
	assert.Equal(t, TimeOfDay{Hour: 6}, sched.StartTime())

	// The start time participates in matching.
	freezeClock(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) // a Monday
	job := &fakeJob{actions: 1}
	runs, err := sched.NextRuns(job)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, time.Date(2024, 1, 1, 6, 0, 0, 0, time.UTC),
		runs[0].RunTime().UTC())
}

func TestParseGrocWithStartTime(t *testing.T) {
	start := TimeOfDay{Hour: 5, Minute: 15}

	sched, err := ParseGrocWithStartTime("every monday", start)
	require.NoError(t, err)
	assert.Equal(t, start, sched.StartTime())

	// An explicit time segment wins over the fallback everywhere: the
	// getter reports it, matching uses it, and equality against a plain
	// parse of the same expression holds.
	explicit, err := ParseGrocWithStartTime("every monday at 09:00", start)
	require.NoError(t, err)
	assert.Equal(t, TimeOfDay{Hour: 9}, explicit.StartTime())

	plain, err := ParseGroc("every monday at 09:00")
	require.NoError(t, err)
	assert.True(t, explicit.Equal(plain))
	assert.True(t, plain.Equal(explicit))

	freezeClock(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) // a Monday
	job := &fakeJob{actions: 1}
	runs, err := explicit.NextRuns(job)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
		runs[0].RunTime().UTC())
}

func TestGrocScheduler_SetStartTimeAfterUse(t *testing.T) {
	// Changing the start time after the matcher has been built must apply
	// to subsequent matching, not silently keep the old time.
	freezeClock(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) // a Monday
	sched, err := NewDailyScheduler([]string{"mon"}, TimeOfDay{Hour: 4})
	require.NoError(t, err)

	job := &fakeJob{actions: 1}
	runs, err := sched.NextRuns(job)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, time.Date(2024, 1, 1, 4, 0, 0, 0, time.UTC),
		runs[0].RunTime().UTC())

	sched.SetStartTime(TimeOfDay{Hour: 6})
	runs, err = sched.NextRuns(job)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, time.Date(2024, 1, 1, 6, 0, 0, 0, time.UTC),
		runs[0].RunTime().UTC())
}

func TestNewFromExpression(t *testing.T) {
	sched, err := NewFromExpression("constant")
	require.NoError(t, err)
	assert.IsType(t, &ConstantScheduler{}, sched)

	sched, err = NewFromExpression("interval:5m")
	require.NoError(t, err)
	require.IsType(t, &IntervalScheduler{}, sched)
	assert.Equal(t, 5*time.Minute, sched.(*IntervalScheduler).Interval)

	sched, err = NewFromExpression("every day 09:00")
	require.NoError(t, err)
	assert.IsType(t, &GrocScheduler{}, sched)

	_, err = NewFromExpression("interval:-5m")
	require.Error(t, err)
	_, err = NewFromExpression("interval:banana")
	require.Error(t, err)
	_, err = NewFromExpression("gibberish schedule")
	require.Error(t, err)
}
