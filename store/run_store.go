package store

import (
	"database/sql"
	"time"

	"github.com/cadencehq/cadence/errors"
)

// Run states. A run is decided (scheduled), picked up by an executor
// (running), and finished (succeeded/failed), or discarded before starting
// (cancelled). Cadence itself only ever creates scheduled runs; the
// execution layer owns the rest of the lifecycle.
const (
	RunStateScheduled = "scheduled"
	RunStateRunning   = "running"
	RunStateSucceeded = "succeeded"
	RunStateFailed    = "failed"
	RunStateCancelled = "cancelled"
)

// Run is a decided execution instance of a job action.
type Run struct {
	ID        string
	JobID     string
	Action    string
	RunTime   time.Time
	State     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CreateRuns saves a batch of decided runs atomically. The daemon calls this
// with the output of a single NextRuns invocation, so a job's runs are
// durably recorded before the next scheduling decision reads its history.
func (s *Store) CreateRuns(runs []*Run) error {
	if len(runs) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, run := range runs {
		_, err := tx.Exec(`
			INSERT INTO runs (id, job_id, action, run_time, state, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			run.ID, run.JobID, run.Action,
			run.RunTime.UTC().Format(time.RFC3339),
			run.State, now, now,
		)
		if err != nil {
			return errors.Wrapf(err, "failed to create run %s", run.ID)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit runs")
	}
	return nil
}

// ListRuns returns a job's runs, most recent run time first.
func (s *Store) ListRuns(jobID string, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(`
		SELECT id, job_id, action, run_time, state, created_at, updated_at
		FROM runs
		WHERE job_id = ?
		ORDER BY run_time DESC, created_at DESC
		LIMIT ?`, jobID, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list runs")
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// PendingRuns returns a job's runs still in the scheduled state, most recent
// run time first.
func (s *Store) PendingRuns(jobID string) ([]*Run, error) {
	rows, err := s.db.Query(`
		SELECT id, job_id, action, run_time, state, created_at, updated_at
		FROM runs
		WHERE job_id = ? AND state = ?
		ORDER BY run_time DESC, created_at DESC`, jobID, RunStateScheduled)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list pending runs")
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// HasOutstandingRun reports whether any of the job's runs is scheduled or
// running, i.e. a previously decided run has not yet completed.
func (s *Store) HasOutstandingRun(jobID string) (bool, error) {
	var n int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM runs
		WHERE job_id = ? AND state IN (?, ?)`,
		jobID, RunStateScheduled, RunStateRunning).Scan(&n)
	if err != nil {
		return false, errors.Wrap(err, "failed to count outstanding runs")
	}
	return n > 0, nil
}

// SetRunState advances a run's lifecycle state.
func (s *Store) SetRunState(runID, state string) error {
	res, err := s.db.Exec(`UPDATE runs SET state = ?, updated_at = ? WHERE id = ?`,
		state, time.Now().UTC().Format(time.RFC3339), runID)
	if err != nil {
		return errors.Wrap(err, "failed to update run state")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to check affected rows")
	}
	if n == 0 {
		return errors.NewNotFoundError("run not found")
	}
	return nil
}

func scanRun(rows *sql.Rows) (*Run, error) {
	var run Run
	var runTime, createdAt, updatedAt string

	err := rows.Scan(&run.ID, &run.JobID, &run.Action, &runTime,
		&run.State, &createdAt, &updatedAt)
	if err != nil {
		return nil, errors.Wrap(err, "failed to scan run")
	}

	if run.RunTime, err = time.Parse(time.RFC3339, runTime); err != nil {
		return nil, errors.Wrapf(err, "failed to parse run_time for run %s", run.ID)
	}
	if run.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, errors.Wrapf(err, "failed to parse created_at for run %s", run.ID)
	}
	if run.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return nil, errors.Wrapf(err, "failed to parse updated_at for run %s", run.ID)
	}
	return &run, nil
}
