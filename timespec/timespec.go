// Package timespec computes the next calendar instant satisfying a set of
// weekday/monthday/ordinal/month/time-of-day constraints in a timezone.
package timespec

import (
	"time"

	"github.com/cadencehq/cadence/errors"
)

// Matcher produces the earliest instant at or after a reference instant that
// satisfies a time specification. It never returns an instant before the
// reference.
type Matcher interface {
	NextMatch(after time.Time) (time.Time, error)
}

// searchHorizonYears bounds the forward day walk in NextMatch. Any
// satisfiable specification (including leap-day schedules) matches within
// four years; exhausting the horizon means the specification is impossible.
const searchHorizonYears = 4

// Config describes a time specification. Nil/empty sets mean unrestricted.
// Weekday indices run 0=Sunday through 6=Saturday. Ordinals (1..5) select
// the Nth occurrence of a weekday within its month and require Weekdays to
// be set; Ordinals and Monthdays are mutually exclusive.
type Config struct {
	Ordinals  []int
	Weekdays  []int
	Months    []int
	Monthdays []int
	Hour      int
	Minute    int
	Second    int
	Timezone  string // IANA identifier; empty means UTC
}

// Spec is a validated, immutable time specification.
type Spec struct {
	ordinals  map[int]bool
	weekdays  map[int]bool
	months    map[int]bool
	monthdays map[int]bool
	hour      int
	minute    int
	second    int
	loc       *time.Location
}

// New validates cfg and builds a Spec.
func New(cfg Config) (*Spec, error) {
	if len(cfg.Ordinals) > 0 && len(cfg.Monthdays) > 0 {
		return nil, errors.Newf("ordinals and monthdays are mutually exclusive")
	}
	if len(cfg.Ordinals) > 0 && len(cfg.Weekdays) == 0 {
		return nil, errors.Newf("ordinals require a weekday selection to anchor them")
	}
	if cfg.Hour < 0 || cfg.Hour > 23 || cfg.Minute < 0 || cfg.Minute > 59 ||
		cfg.Second < 0 || cfg.Second > 59 {
		return nil, errors.Newf("time of day %02d:%02d:%02d out of range",
			cfg.Hour, cfg.Minute, cfg.Second)
	}

	s := &Spec{
		hour:   cfg.Hour,
		minute: cfg.Minute,
		second: cfg.Second,
		loc:    time.UTC,
	}

	var err error
	if s.ordinals, err = validateSet(cfg.Ordinals, 1, 5, "ordinal"); err != nil {
		return nil, err
	}
	if s.weekdays, err = validateSet(cfg.Weekdays, 0, 6, "weekday"); err != nil {
		return nil, err
	}
	if s.months, err = validateSet(cfg.Months, 1, 12, "month"); err != nil {
		return nil, err
	}
	if s.monthdays, err = validateSet(cfg.Monthdays, 1, 31, "monthday"); err != nil {
		return nil, err
	}

	if cfg.Timezone != "" {
		loc, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			return nil, errors.Wrapf(err, "unknown timezone %q", cfg.Timezone)
		}
		s.loc = loc
	}

	return s, nil
}

func validateSet(values []int, min, max int, kind string) (map[int]bool, error) {
	if len(values) == 0 {
		return nil, nil
	}
	set := make(map[int]bool, len(values))
	for _, v := range values {
		if v < min || v > max {
			return nil, errors.Newf("%s %d out of range [%d,%d]", kind, v, min, max)
		}
		set[v] = true
	}
	return set, nil
}

// NextMatch walks forward day by day in the schedule's timezone from the day
// containing after, returning the first instant whose day satisfies the
// specification and whose time of day is at or after the reference. An exact
// match on the reference instant returns the reference itself.
func (s *Spec) NextMatch(after time.Time) (time.Time, error) {
	local := after.In(s.loc)
	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.loc)
	limit := day.AddDate(searchHorizonYears, 0, 0)

	for ; day.Before(limit); day = day.AddDate(0, 0, 1) {
		if !s.dayMatches(day) {
			continue
		}
		candidate := time.Date(day.Year(), day.Month(), day.Day(),
			s.hour, s.minute, s.second, 0, s.loc)
		if candidate.Before(after) {
			continue
		}
		return candidate, nil
	}

	return time.Time{}, errors.Wrapf(errors.ErrNoMatch,
		"no instant within %d years satisfies the specification", searchHorizonYears)
}

// dayMatches reports whether the calendar day containing t satisfies the
// month and day constraints.
func (s *Spec) dayMatches(t time.Time) bool {
	if s.months != nil && !s.months[int(t.Month())] {
		return false
	}

	if s.weekdays == nil {
		return s.monthdays == nil || s.monthdays[t.Day()]
	}

	if !s.weekdays[int(t.Weekday())] {
		return false
	}
	if s.ordinals != nil {
		// Nth occurrence of this weekday within the month, 1-based.
		ordinal := (t.Day()-1)/7 + 1
		if !s.ordinals[ordinal] {
			return false
		}
	}
	return true
}

// Location returns the resolved timezone of the specification.
func (s *Spec) Location() *time.Location {
	return s.loc
}
