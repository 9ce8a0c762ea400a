package schedule

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/cadencehq/cadence/errors"
)

// defaultDisplayText is the display text of a spec with no restrictions.
// A calendar scheduler carrying it renders as "DAILY".
const defaultDisplayText = "every day of month"

// TimeOfDay is a wall-clock time within a day.
type TimeOfDay struct {
	Hour   int
	Minute int
	Second int
}

// String renders the time as HH:MM or HH:MM:SS, matching the grammar's
// time segment when the seconds are zero.
func (t TimeOfDay) String() string {
	if t.Second == 0 {
		return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
	}
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
}

// ParseTimeOfDay decomposes an HH:MM or HH:MM:SS string. A missing seconds
// component defaults to zero.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return TimeOfDay{}, errors.NewParseError("malformed time of day %q", s)
	}
	vals := [3]int{}
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil {
			return TimeOfDay{}, errors.NewParseError("malformed time of day %q", s)
		}
		vals[i] = n
	}
	tod := TimeOfDay{Hour: vals[0], Minute: vals[1], Second: vals[2]}
	if tod.Hour > 23 || tod.Minute > 59 || tod.Second > 59 ||
		tod.Hour < 0 || tod.Minute < 0 || tod.Second < 0 {
		return TimeOfDay{}, errors.NewParseError("time of day %q out of range", s)
	}
	return tod, nil
}

// Spec is a parsed schedule specification.
//
// The int slices are canonical sets: sorted ascending, no duplicates, nil
// meaning unrestricted. Weekday indices run 0=Sunday through 6=Saturday,
// months 1 through 12, monthdays 1 through 31, ordinals 1 through 5.
//
// Exactly one of Ordinals and Monthdays may be set: ordinals qualify a
// weekday selection ("1st,3rd monday"), monthdays stand alone ("1st,15th of
// month"). A spec with Weekdays unset never has Ordinals set.
type Spec struct {
	Ordinals  []int
	Weekdays  []int
	Months    []int
	Monthdays []int
	TimeOfDay TimeOfDay
	Timezone  string // IANA identifier; empty means UTC
	// DisplayText is the original or canonicalized schedule string,
	// retained for user-facing rendering. Not part of equality.
	DisplayText string
}

// Equal reports whether two specs select the same instants: all of ordinals,
// weekdays, months, monthdays, time of day, and timezone compare equal.
// Display text is presentation only and is ignored.
func (s *Spec) Equal(other *Spec) bool {
	if s == nil || other == nil {
		return s == other
	}
	return slices.Equal(s.Ordinals, other.Ordinals) &&
		slices.Equal(s.Weekdays, other.Weekdays) &&
		slices.Equal(s.Months, other.Months) &&
		slices.Equal(s.Monthdays, other.Monthdays) &&
		s.TimeOfDay.String() == other.TimeOfDay.String() &&
		s.Timezone == other.Timezone
}

// normalizeSet sorts and dedupes a set, mapping empty to nil.
func normalizeSet(values []int) []int {
	if len(values) == 0 {
		return nil
	}
	slices.Sort(values)
	return slices.Compact(values)
}
