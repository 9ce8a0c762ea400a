// Package schedule parses human-readable schedule expressions and decides
// when a job should next run. It is the temporal decision core of a
// job-scheduling service: it assigns run times and concurrency policy, it
// never executes work itself.
package schedule

import (
	"strings"

	"github.com/cadencehq/cadence/errors"
)

// Accepted weekday spellings, each list ordered Sunday through Saturday.
// Single-letter codes follow the classic m t w r f s u convention.
var weekdayAliases = [][7]string{
	{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"},
	{"sun", "mon", "tue", "wed", "thu", "fri", "sat"},
	{"su", "mo", "tu", "we", "th", "fr", "sa"},
	{"u", "m", "t", "w", "r", "f", "s"},
}

// Accepted month spellings, each list ordered January through December.
var monthAliases = [][12]string{
	{"january", "february", "march", "april", "may", "june",
		"july", "august", "september", "october", "november", "december"},
	{"jan", "feb", "mar", "apr", "may", "jun",
		"jul", "aug", "sep", "oct", "nov", "dec"},
}

// weekdayTable maps every accepted spelling of a weekday to its canonical
// index, 0=Sunday through 6=Saturday. Keys are lowercase; lookups go through
// WeekdayIndex which lowercases the token.
var weekdayTable = buildWeekdayTable()

// monthTable maps every accepted spelling of a month to its canonical index,
// 1=January through 12=December.
var monthTable = buildMonthTable()

func buildWeekdayTable() map[string]int {
	table := make(map[string]int)
	for _, aliases := range weekdayAliases {
		for i, name := range aliases {
			table[name] = i
		}
	}
	return table
}

func buildMonthTable() map[string]int {
	table := make(map[string]int)
	for _, aliases := range monthAliases {
		for i, name := range aliases {
			table[name] = i + 1
		}
	}
	return table
}

// WeekdayIndex resolves a weekday token (full name, abbreviation, or one/two
// letter code, any case) to its canonical index, 0=Sunday through 6=Saturday.
func WeekdayIndex(token string) (int, error) {
	if idx, ok := weekdayTable[strings.ToLower(token)]; ok {
		return idx, nil
	}
	return 0, errors.NewParseError("unknown weekday name %q", token)
}

// MonthIndex resolves a month token (full name or abbreviation, any case) to
// its canonical index, 1=January through 12=December.
func MonthIndex(token string) (int, error) {
	if idx, ok := monthTable[strings.ToLower(token)]; ok {
		return idx, nil
	}
	return 0, errors.NewParseError("unknown month name %q", token)
}
