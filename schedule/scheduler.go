package schedule

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cadencehq/cadence/errors"
	"github.com/cadencehq/cadence/timespec"
)

// Scheduler decides when a job's next runs happen and which concurrency
// policy the job follows. Implementations are stateless between invocations:
// all state lives in the job's history and the scheduler's own immutable
// configuration, so a scheduler is safe to use across goroutines as long as
// invocations for the same job are serialized by the caller.
type Scheduler interface {
	// NextRuns assigns a run time to every JobRun produced by
	// job.BuildRuns() and returns them. It never mutates the job's
	// history; the caller records the returned runs.
	NextRuns(job Job) ([]JobRun, error)

	// JobSetup sets the job's constant/queueing flags to the values
	// appropriate for this scheduler. Idempotent; called once per
	// job-policy binding.
	JobSetup(job Job)

	// Equal reports structural equality over configuration, not identity.
	// Replacing a job's scheduler uses this to detect whether the
	// replacement actually changes behavior.
	Equal(other Scheduler) bool

	fmt.Stringer
}

// NewFromExpression builds a scheduler from a job definition's schedule
// expression: "constant", "interval:<duration>", or a calendar expression
// in the schedule grammar.
func NewFromExpression(expr string) (Scheduler, error) {
	trimmed := strings.TrimSpace(expr)
	lower := strings.ToLower(trimmed)
	switch {
	case lower == "constant":
		return &ConstantScheduler{}, nil
	case strings.HasPrefix(lower, "interval:"):
		d, err := time.ParseDuration(strings.TrimPrefix(lower, "interval:"))
		if err != nil {
			return nil, errors.NewParseError("malformed interval %q", trimmed)
		}
		if d <= 0 {
			return nil, errors.NewParseError("interval %q must be positive", trimmed)
		}
		return &IntervalScheduler{Interval: d}, nil
	default:
		return ParseGroc(trimmed)
	}
}

// ConstantScheduler reruns a job as fast as possible, serialized: a new run
// is created the moment the prior one finishes, so overlap is impossible by
// construction.
type ConstantScheduler struct{}

// NextRuns returns nothing while a prior run is still outstanding; otherwise
// it stamps every built run with the current instant.
func (c *ConstantScheduler) NextRuns(job Job) ([]JobRun, error) {
	if job.NextToFinish() {
		return nil, nil
	}

	now := timeNow()
	runs := job.BuildRuns()
	for _, run := range runs {
		run.SetRunTime(now)
	}
	return runs, nil
}

func (c *ConstantScheduler) JobSetup(job Job) {
	job.SetConstant(true)
	job.SetQueueing(false)
}

func (c *ConstantScheduler) String() string {
	return "CONSTANT"
}

// Equal: all constant schedulers behave identically.
func (c *ConstantScheduler) Equal(other Scheduler) bool {
	_, ok := other.(*ConstantScheduler)
	return ok
}

// GrocScheduler reruns a job on a calendar-driven cadence described by a
// schedule expression. It also serves as the legacy daily scheduler via
// NewDailyScheduler.
type GrocScheduler struct {
	spec *Spec

	// The matcher is built on first use and cached: its constructor
	// validates the configuration and is the costly part of a reload.
	// SetStartTime invalidates the cache.
	mu         sync.Mutex
	matcher    timespec.Matcher
	matcherErr error
	built      bool
}

// NewGrocScheduler returns a calendar scheduler for an already-parsed spec.
func NewGrocScheduler(spec *Spec) *GrocScheduler {
	return &GrocScheduler{spec: spec}
}

// ParseGroc parses a schedule expression and returns a calendar scheduler.
func ParseGroc(expr string) (*GrocScheduler, error) {
	spec, err := Parse(expr)
	if err != nil {
		return nil, err
	}
	return NewGrocScheduler(spec), nil
}

// ParseGrocWithStartTime parses expr with a legacy start-of-day fallback for
// expressions that carry no time segment. An explicit time segment in the
// expression wins over the fallback.
func ParseGrocWithStartTime(expr string, start TimeOfDay) (*GrocScheduler, error) {
	spec, err := ParseWithDefault(expr, start)
	if err != nil {
		return nil, err
	}
	return NewGrocScheduler(spec), nil
}

// NewDailyScheduler builds a calendar scheduler from the legacy daily
// configuration shape: a weekday token list and a start-of-day time.
// An empty day list means every day.
func NewDailyScheduler(days []string, start TimeOfDay) (*GrocScheduler, error) {
	var spec *Spec
	if len(days) == 0 {
		spec = &Spec{DisplayText: defaultDisplayText}
	} else {
		parsed, err := ParseLegacyDays(days)
		if err != nil {
			return nil, err
		}
		spec = parsed
	}
	spec.TimeOfDay = start
	return NewGrocScheduler(spec), nil
}

// Spec returns the scheduler's resolved schedule specification.
func (g *GrocScheduler) Spec() *Spec {
	return g.spec
}

// StartTime returns the effective time of day, decomposed into
// hour/minute/second. The spec already resolved the precedence: an explicit
// time segment in the expression, else the legacy start-of-day fallback.
func (g *GrocScheduler) StartTime() TimeOfDay {
	return g.spec.TimeOfDay
}

// SetStartTime replaces the effective time of day and invalidates the cached
// matcher so the change applies to subsequent matching.
func (g *GrocScheduler) SetStartTime(start TimeOfDay) {
	g.spec.TimeOfDay = start
	g.mu.Lock()
	g.matcher, g.matcherErr = nil, nil
	g.built = false
	g.mu.Unlock()
}

// timeSpec returns the cached time specification matcher, building it on
// first access. Safe for concurrent use.
func (g *GrocScheduler) timeSpec() (timespec.Matcher, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.built {
		g.matcher, g.matcherErr = timespec.New(timespec.Config{
			Ordinals:  g.spec.Ordinals,
			Weekdays:  g.spec.Weekdays,
			Months:    g.spec.Months,
			Monthdays: g.spec.Monthdays,
			Hour:      g.spec.TimeOfDay.Hour,
			Minute:    g.spec.TimeOfDay.Minute,
			Second:    g.spec.TimeOfDay.Second,
			Timezone:  g.spec.Timezone,
		})
		g.built = true
	}
	return g.matcher, g.matcherErr
}

// NextRuns computes the next instant at or after the reference instant that
// satisfies the schedule and stamps every built run with it. The reference
// is the run time of the most recently scheduled run, or the current instant
// for a job with no history.
func (g *GrocScheduler) NextRuns(job Job) ([]JobRun, error) {
	ref := timeNow()
	if history := job.Runs(); len(history) > 0 {
		// Strictly after the previous decision: the matcher is
		// boundary-inclusive, so re-matching the prior run time exactly
		// would decide the same instant forever.
		ref = history[0].RunTime().Add(time.Second)
	}

	spec, err := g.timeSpec()
	if err != nil {
		return nil, err
	}
	runTime, err := spec.NextMatch(ref)
	if err != nil {
		return nil, err
	}

	runs := job.BuildRuns()
	for _, run := range runs {
		run.SetRunTime(runTime)
	}
	return runs, nil
}

// JobSetup: a run whose scheduled time arrives while a prior run is still
// executing queues behind it rather than overlapping or being dropped.
func (g *GrocScheduler) JobSetup(job Job) {
	job.SetQueueing(true)
}

func (g *GrocScheduler) String() string {
	if g.spec.DisplayText == defaultDisplayText || g.spec.DisplayText == "" {
		return "DAILY"
	}
	return g.spec.DisplayText
}

// Equal compares resolved configuration: ordinals, weekdays, months,
// monthdays, time of day, and timezone. Two schedulers built from different
// but semantically identical expressions compare equal, regardless of how
// their time of day was supplied.
func (g *GrocScheduler) Equal(other Scheduler) bool {
	o, ok := other.(*GrocScheduler)
	if !ok {
		return false
	}
	return g.spec.Equal(o.spec)
}

// IntervalScheduler reruns a job a fixed duration after the current instant,
// independent of calendar alignment or run history.
type IntervalScheduler struct {
	Interval time.Duration
}

// NextRuns stamps every built run with now + interval. History is ignored;
// overlapping runs are permitted.
func (i *IntervalScheduler) NextRuns(job Job) ([]JobRun, error) {
	runTime := timeNow().Add(i.Interval)
	runs := job.BuildRuns()
	for _, run := range runs {
		run.SetRunTime(runTime)
	}
	return runs, nil
}

func (i *IntervalScheduler) JobSetup(job Job) {
	job.SetQueueing(false)
}

func (i *IntervalScheduler) String() string {
	return "INTERVAL:" + i.Interval.String()
}

func (i *IntervalScheduler) Equal(other Scheduler) bool {
	o, ok := other.(*IntervalScheduler)
	return ok && i.Interval == o.Interval
}
