package schedule

import "time"

// Job is the consumed face of a schedulable job. The execution engine owns
// the implementation; schedulers only read history and set policy flags.
type Job interface {
	// Runs returns the job's run history, most recent first.
	Runs() []JobRun

	// NextToFinish reports whether a previously scheduled run has not yet
	// completed.
	NextToFinish() bool

	// BuildRuns materializes one pending JobRun per configured action.
	BuildRuns() []JobRun

	// SetConstant marks the job as rescheduled immediately upon completion
	// of the prior run, never on a fixed clock.
	SetConstant(bool)

	// SetQueueing marks the job so that a run whose trigger time arrives
	// while a prior run is still executing waits rather than overlaps.
	SetQueueing(bool)
}

// JobRun is a single future or past execution instance. Its run time is set
// exactly once per scheduling decision.
type JobRun interface {
	RunTime() time.Time
	SetRunTime(time.Time)
}
