// Package daemon runs the projector loop: it periodically asks each enabled
// job's scheduler for the next runs and records them. It decides and
// persists run times only; executing runs belongs to the execution layer.
package daemon

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cadencehq/cadence/errors"
	"github.com/cadencehq/cadence/schedule"
	"github.com/cadencehq/cadence/store"
)

// Daemon projects upcoming runs for all enabled jobs on a fixed tick.
// Per-job scheduling decisions are serialized by the single loop, which the
// scheduler contract requires: a job's runs are durably recorded before its
// next decision reads the history.
type Daemon struct {
	store     *store.Store
	interval  time.Duration
	defaultTZ string
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	log       *zap.SugaredLogger

	// schedulers caches one scheduler per job, replaced wholesale when an
	// operator edits the job's schedule expression. Equality comparison
	// detects whether a replacement actually changes behavior.
	schedulers  map[string]schedule.Scheduler
	expressions map[string]string

	mu              sync.Mutex
	lastTickAt      time.Time
	ticksSinceStart int64
}

// Config contains configuration for the projector daemon
type Config struct {
	Interval time.Duration // How often to evaluate jobs (default: 1 second)

	// DefaultTimezone applies to calendar schedules that name no timezone
	// of their own. Empty means UTC.
	DefaultTimezone string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Interval: 1 * time.Second,
	}
}

// New creates a projector daemon over the given store.
func New(st *store.Store, cfg Config, log *zap.SugaredLogger) *Daemon {
	return NewWithContext(context.Background(), st, cfg, log)
}

// NewWithContext creates a daemon with a parent context
func NewWithContext(ctx context.Context, st *store.Store, cfg Config, log *zap.SugaredLogger) *Daemon {
	daemonCtx, cancel := context.WithCancel(ctx)
	return &Daemon{
		store:       st,
		interval:    cfg.Interval,
		defaultTZ:   cfg.DefaultTimezone,
		ctx:         daemonCtx,
		cancel:      cancel,
		log:         log,
		schedulers:  make(map[string]schedule.Scheduler),
		expressions: make(map[string]string),
	}
}

// Start begins the projector loop
func (d *Daemon) Start() {
	d.wg.Add(1)
	go d.run()
	d.log.Infow("Projector started", "interval", d.interval)
}

// Stop gracefully stops the projector
func (d *Daemon) Stop() {
	d.cancel()
	d.wg.Wait()
	d.log.Infow("Projector stopped")
}

// run is the main loop
func (d *Daemon) run() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return
		case tickTime := <-ticker.C:
			d.mu.Lock()
			d.lastTickAt = tickTime
			d.ticksSinceStart++
			d.mu.Unlock()

			if err := d.tick(tickTime); err != nil {
				d.log.Warnw("Projection tick error", "error", err)
			}
		}
	}
}

// tick projects runs for every enabled job.
func (d *Daemon) tick(now time.Time) error {
	jobs, err := d.store.ListJobs(true)
	if err != nil {
		return errors.Wrap(err, "failed to list jobs")
	}

	for _, job := range jobs {
		select {
		case <-d.ctx.Done():
			return d.ctx.Err()
		default:
		}

		if err := d.projectJob(job); err != nil {
			if errors.Is(err, errors.ErrNoMatch) {
				// An unsatisfiable schedule must not fail the whole
				// tick; surface it and move on.
				d.log.Warnw("Schedule can never be satisfied, skipping job",
					"job", job.Name, "schedule", job.Schedule)
				continue
			}
			d.log.Errorw("Failed to project job runs",
				"job", job.Name, "error", err)
			continue
		}
	}
	return nil
}

// projectJob ensures the job has its next runs decided and recorded. A job
// with a pending scheduled run needs no new decision yet.
func (d *Daemon) projectJob(def *store.Job) error {
	sched, err := d.schedulerFor(def)
	if err != nil {
		return err
	}

	pending, err := d.store.PendingRuns(def.ID)
	if err != nil {
		return err
	}
	if len(pending) > 0 {
		return nil
	}

	outstanding, err := d.store.HasOutstandingRun(def.ID)
	if err != nil {
		return err
	}
	history, err := d.store.ListRuns(def.ID, 1)
	if err != nil {
		return err
	}

	adapter := newStoreJob(def, history, outstanding)
	decided, err := sched.NextRuns(adapter)
	if err != nil {
		return err
	}
	if len(decided) == 0 {
		// Constant schedulers defer while a prior run is outstanding.
		return nil
	}

	runs := make([]*store.Run, len(decided))
	for i, run := range decided {
		runs[i] = run.(*runAdapter).run
	}
	if err := d.store.CreateRuns(runs); err != nil {
		return err
	}

	d.log.Infow("Decided next runs",
		"job", def.Name,
		"scheduler", sched.String(),
		"run_time", runs[0].RunTime.Format(time.RFC3339),
		"count", len(runs))
	return nil
}

// schedulerFor returns the job's cached scheduler, building and installing a
// new one when the job is new or its expression changed. An edit that
// resolves to equal configuration keeps the cached instance (and its warmed
// time specification matcher).
func (d *Daemon) schedulerFor(def *store.Job) (schedule.Scheduler, error) {
	cached, ok := d.schedulers[def.ID]
	if ok && d.expressions[def.ID] == def.Schedule {
		return cached, nil
	}

	sched, err := schedule.NewFromExpression(def.Schedule)
	if err != nil {
		return nil, errors.Wrapf(err, "job %q has an invalid schedule", def.Name)
	}
	if groc, isGroc := sched.(*schedule.GrocScheduler); isGroc &&
		d.defaultTZ != "" && groc.Spec().Timezone == "" {
		groc.Spec().Timezone = d.defaultTZ
	}

	if ok && cached.Equal(sched) {
		d.expressions[def.ID] = def.Schedule
		return cached, nil
	}

	adapter := newStoreJob(def, nil, false)
	sched.JobSetup(adapter)
	if err := d.store.UpdateJobFlags(def.ID, def.Constant, def.Queueing); err != nil {
		return nil, err
	}

	d.schedulers[def.ID] = sched
	d.expressions[def.ID] = def.Schedule
	if ok {
		d.log.Infow("Replaced job scheduler",
			"job", def.Name, "scheduler", sched.String())
	}
	return sched, nil
}

// GetStats returns daemon statistics
func (d *Daemon) GetStats() map[string]interface{} {
	d.mu.Lock()
	defer d.mu.Unlock()

	return map[string]interface{}{
		"last_tick_at":      d.lastTickAt,
		"ticks_since_start": d.ticksSinceStart,
		"interval":          d.interval,
	}
}
