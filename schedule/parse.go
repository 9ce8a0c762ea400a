package schedule

import (
	"strings"

	"github.com/cadencehq/cadence/errors"
)

// Parse parses a schedule expression into a Spec. Matching is
// case-insensitive and the whole string must match the grammar; a malformed
// expression returns an error wrapping errors.ErrParse.
//
// An expression with no weekday, ordinal/monthday, or month restriction
// means "every day of every month" at the given time. A missing time
// segment defaults to 00:00:00.
func Parse(expr string) (*Spec, error) {
	return ParseWithDefault(expr, TimeOfDay{})
}

// ParseWithDefault is Parse with a caller-supplied fallback time of day,
// used when the expression carries no time segment. Callers that predate
// time segments in schedule expressions configure their legacy start-of-day
// value this way.
func ParseWithDefault(expr string, fallback TimeOfDay) (*Spec, error) {
	lower := strings.ToLower(strings.TrimSpace(expr))
	m := grocRE.FindStringSubmatch(lower)
	if m == nil {
		return nil, errors.NewParseError("schedule expression %q does not match the schedule grammar", expr)
	}
	if m[groupMonthDays] == "" && m[groupDays] == "" && m[groupMonths] == "" && m[groupTime] == "" {
		// The grammar is all-optional segments, so an empty expression
		// technically matches. Reject it: a schedule must say something.
		return nil, errors.NewParseError("empty schedule expression")
	}

	spec := &Spec{DisplayText: expr}

	if timeStr := m[groupTime]; timeStr == "" {
		spec.TimeOfDay = fallback
	} else {
		tod, err := ParseTimeOfDay(timeStr)
		if err != nil {
			return nil, err
		}
		spec.TimeOfDay = tod
	}

	if days := m[groupDays]; days != "" && days != "day" {
		indices, err := resolveList(days, WeekdayIndex)
		if err != nil {
			return nil, err
		}
		spec.Weekdays = normalizeSet(indices)
	}

	// The ordinal segment doubles as the monthday segment: the numbers
	// qualify weekdays when a weekday list is present ("1st,3rd monday"),
	// otherwise they select days of the month ("1st,15th of month").
	// The literal "every" restricts nothing.
	if monthDays := m[groupMonthDays]; monthDays != "" && monthDays != "every" {
		values := make([]int, 0, 4)
		for _, token := range strings.Split(monthDays, ",") {
			if token == "" {
				continue
			}
			values = append(values, parseNumber(token))
		}
		if spec.Weekdays == nil {
			spec.Monthdays = normalizeSet(values)
		} else {
			spec.Ordinals = normalizeSet(values)
		}
	}

	if months := m[groupMonths]; months != "" && months != "month" {
		indices, err := resolveList(months, MonthIndex)
		if err != nil {
			return nil, err
		}
		spec.Months = normalizeSet(indices)
	}

	return spec, nil
}

// ParseLegacyDays accepts a plain list of weekday tokens, the configuration
// shape the daily scheduler used before full schedule expressions existed.
func ParseLegacyDays(days []string) (*Spec, error) {
	spec := &Spec{DisplayText: defaultDisplayText}

	indices := make([]int, 0, len(days))
	for _, day := range days {
		idx, err := WeekdayIndex(day)
		if err != nil {
			return nil, err
		}
		indices = append(indices, idx)
	}
	spec.Weekdays = normalizeSet(indices)

	if len(spec.Weekdays) != 7 {
		spec.DisplayText = "every " + strings.Join(days, ",") + " of month"
	}
	return spec, nil
}

// resolveList splits a comma-separated token list and resolves each token
// through the given name table lookup.
func resolveList(list string, lookup func(string) (int, error)) ([]int, error) {
	tokens := strings.Split(list, ",")
	indices := make([]int, 0, len(tokens))
	for _, token := range tokens {
		if token == "" {
			continue
		}
		idx, err := lookup(token)
		if err != nil {
			return nil, err
		}
		indices = append(indices, idx)
	}
	return indices, nil
}

// parseNumber strips non-digit characters and parses the rest, so "1st"
// yields 1. Tokens reaching here have already matched \d+(st|nd|rd|th).
func parseNumber(token string) int {
	n := 0
	for _, c := range token {
		if c >= '0' && c <= '9' {
			n = n*10 + int(c-'0')
		}
	}
	return n
}
