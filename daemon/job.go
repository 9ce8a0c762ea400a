package daemon

import (
	"time"

	"github.com/google/uuid"

	"github.com/cadencehq/cadence/schedule"
	"github.com/cadencehq/cadence/store"
)

// storeJob adapts a stored job definition and its run history to the
// schedule.Job contract consumed by schedulers. One adapter is built per
// projection pass; it never outlives the tick that created it.
type storeJob struct {
	def         *store.Job
	history     []schedule.JobRun
	outstanding bool
}

func newStoreJob(def *store.Job, history []*store.Run, outstanding bool) *storeJob {
	adapters := make([]schedule.JobRun, len(history))
	for i, run := range history {
		adapters[i] = &runAdapter{run: run}
	}
	return &storeJob{def: def, history: adapters, outstanding: outstanding}
}

// Runs returns the job's run history, most recent first.
func (j *storeJob) Runs() []schedule.JobRun {
	return j.history
}

func (j *storeJob) NextToFinish() bool {
	return j.outstanding
}

// BuildRuns materializes one pending run per configured action. Run times
// are stamped by the scheduler afterwards.
func (j *storeJob) BuildRuns() []schedule.JobRun {
	runs := make([]schedule.JobRun, len(j.def.Actions))
	for i, action := range j.def.Actions {
		runs[i] = &runAdapter{run: &store.Run{
			ID:     uuid.NewString(),
			JobID:  j.def.ID,
			Action: action,
			State:  store.RunStateScheduled,
		}}
	}
	return runs
}

func (j *storeJob) SetConstant(constant bool) {
	j.def.Constant = constant
}

func (j *storeJob) SetQueueing(queueing bool) {
	j.def.Queueing = queueing
}

// runAdapter presents a stored run as a schedule.JobRun.
type runAdapter struct {
	run *store.Run
}

func (r *runAdapter) RunTime() time.Time {
	return r.run.RunTime
}

func (r *runAdapter) SetRunTime(t time.Time) {
	r.run.RunTime = t
}
