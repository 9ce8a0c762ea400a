// Package store persists job definitions and decided runs in SQLite.
package store

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/cadencehq/cadence/errors"
	"github.com/cadencehq/cadence/schedule"
)

// Job is a stored job definition. Schedule holds the schedule expression
// ("constant", "interval:<duration>", or a calendar expression); it is
// validated at save time so a job with an unparsable schedule is never
// admitted into the scheduling loop.
type Job struct {
	ID       string
	Name     string
	Schedule string
	Actions  []string
	Enabled  bool
	// Constant and Queueing are the concurrency-policy flags set by the
	// job's scheduler via JobSetup.
	Constant  bool
	Queueing  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store handles persistence of job definitions and runs
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the SQLite database at path and applies
// the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open database %s", path)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, errors.Wrap(err, "failed to enable foreign keys")
	}
	s := NewStore(db)
	if err := s.Migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

// NewStore creates a store over an existing database handle. The caller is
// responsible for running Migrate.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying handle for sharing with other stores.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate applies the schema. Idempotent.
func (s *Store) Migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS jobs (
			id         TEXT PRIMARY KEY,
			name       TEXT NOT NULL UNIQUE,
			schedule   TEXT NOT NULL,
			actions    TEXT NOT NULL,
			enabled    INTEGER NOT NULL DEFAULT 1,
			constant   INTEGER NOT NULL DEFAULT 0,
			queueing   INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS runs (
			id         TEXT PRIMARY KEY,
			job_id     TEXT NOT NULL REFERENCES jobs(id) ON DELETE CASCADE,
			action     TEXT NOT NULL,
			run_time   TEXT NOT NULL,
			state      TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_runs_job_time ON runs(job_id, run_time DESC);
		CREATE INDEX IF NOT EXISTS idx_runs_state ON runs(state);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return errors.Wrap(err, "failed to apply schema")
	}
	return nil
}

// CreateJob validates and saves a job definition. The schedule expression is
// parsed first; a malformed expression is rejected here, at configuration
// time, with an error wrapping errors.ErrParse.
func (s *Store) CreateJob(job *Job) error {
	if job.Name == "" {
		return errors.Newf("job name is required")
	}
	if _, err := schedule.NewFromExpression(job.Schedule); err != nil {
		return errors.Wrapf(err, "rejecting job %q", job.Name)
	}
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if len(job.Actions) == 0 {
		job.Actions = []string{"default"}
	}

	actions, err := json.Marshal(job.Actions)
	if err != nil {
		return errors.Wrap(err, "failed to encode actions")
	}

	now := time.Now().UTC()
	job.CreatedAt = now
	job.UpdatedAt = now

	_, err = s.db.Exec(`
		INSERT INTO jobs (id, name, schedule, actions, enabled, constant, queueing, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.Name, job.Schedule, string(actions),
		job.Enabled, job.Constant, job.Queueing,
		now.Format(time.RFC3339), now.Format(time.RFC3339),
	)
	if err != nil {
		return errors.Wrapf(err, "failed to create job %q", job.Name)
	}
	return nil
}

// GetJob retrieves a job definition by ID.
func (s *Store) GetJob(id string) (*Job, error) {
	return s.scanJob(s.db.QueryRow(jobColumns+` WHERE id = ?`, id))
}

// GetJobByName retrieves a job definition by its unique name.
func (s *Store) GetJobByName(name string) (*Job, error) {
	return s.scanJob(s.db.QueryRow(jobColumns+` WHERE name = ?`, name))
}

const jobColumns = `
	SELECT id, name, schedule, actions, enabled, constant, queueing, created_at, updated_at
	FROM jobs`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (s *Store) scanJob(row rowScanner) (*Job, error) {
	var job Job
	var actions, createdAt, updatedAt string

	err := row.Scan(&job.ID, &job.Name, &job.Schedule, &actions,
		&job.Enabled, &job.Constant, &job.Queueing, &createdAt, &updatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NewNotFoundError("job not found")
		}
		return nil, errors.Wrap(err, "failed to get job")
	}

	if err := json.Unmarshal([]byte(actions), &job.Actions); err != nil {
		return nil, errors.Wrapf(err, "failed to decode actions for job %s", job.ID)
	}
	if job.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, errors.Wrapf(err, "failed to parse created_at for job %s", job.ID)
	}
	if job.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return nil, errors.Wrapf(err, "failed to parse updated_at for job %s", job.ID)
	}
	return &job, nil
}

// ListJobs returns job definitions ordered by name. With enabledOnly, only
// jobs admitted into the scheduling loop are returned.
func (s *Store) ListJobs(enabledOnly bool) ([]*Job, error) {
	query := jobColumns
	if enabledOnly {
		query += ` WHERE enabled = 1`
	}
	query += ` ORDER BY name`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list jobs")
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := s.scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// SetJobEnabled flips a job in or out of the scheduling loop.
func (s *Store) SetJobEnabled(id string, enabled bool) error {
	res, err := s.db.Exec(`UPDATE jobs SET enabled = ?, updated_at = ? WHERE id = ?`,
		enabled, time.Now().UTC().Format(time.RFC3339), id)
	if err != nil {
		return errors.Wrap(err, "failed to update job")
	}
	return s.requireRow(res)
}

// UpdateJobSchedule replaces a job's schedule expression, validating the new
// expression first.
func (s *Store) UpdateJobSchedule(id string, expr string) error {
	if _, err := schedule.NewFromExpression(expr); err != nil {
		return errors.Wrapf(err, "rejecting schedule change for job %s", id)
	}
	res, err := s.db.Exec(`UPDATE jobs SET schedule = ?, updated_at = ? WHERE id = ?`,
		expr, time.Now().UTC().Format(time.RFC3339), id)
	if err != nil {
		return errors.Wrap(err, "failed to update job schedule")
	}
	return s.requireRow(res)
}

// UpdateJobFlags persists the concurrency-policy flags a scheduler assigned
// via JobSetup.
func (s *Store) UpdateJobFlags(id string, constant, queueing bool) error {
	res, err := s.db.Exec(`UPDATE jobs SET constant = ?, queueing = ?, updated_at = ? WHERE id = ?`,
		constant, queueing, time.Now().UTC().Format(time.RFC3339), id)
	if err != nil {
		return errors.Wrap(err, "failed to update job flags")
	}
	return s.requireRow(res)
}

// DeleteJob removes a job definition and, via cascade, its runs.
func (s *Store) DeleteJob(id string) error {
	res, err := s.db.Exec(`DELETE FROM jobs WHERE id = ?`, id)
	if err != nil {
		return errors.Wrap(err, "failed to delete job")
	}
	return s.requireRow(res)
}

func (s *Store) requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to check affected rows")
	}
	if n == 0 {
		return errors.NewNotFoundError("job not found")
	}
	return nil
}
