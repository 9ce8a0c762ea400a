package schedule

import (
	"regexp"
	"sort"
	"strings"
)

// The schedule grammar, after the App Engine cron format:
//
//	("every"|ordinal_list) (weekdays) ["of"|"in" (months)] (["at"] HH:MM)
//
// Every segment is optional; the whole string must match from start to end.
// The weekday and month alternations are generated from the name tables so
// new aliases propagate into the grammar automatically.

const dateSuffixes = "st|nd|rd|th"

// grocRE is compiled once from the name table key sets.
var grocRE = compileGrammar()

// Submatch indices into grocRE, resolved once at init.
var (
	groupMonthDays = grocRE.SubexpIndex("monthdays")
	groupDays      = grocRE.SubexpIndex("days")
	groupMonths    = grocRE.SubexpIndex("months")
	groupTime      = grocRE.SubexpIndex("time")
)

func compileGrammar() *regexp.Regexp {
	dayValues := alternation(weekdayTable, "day")
	monthValues := alternation(monthTable, "month")

	monthDaysExpr := `(?P<monthdays>every|(?:\d+(?:` + dateSuffixes + `),?)+)?`
	daysExpr := `(?:(?P<days>(?:(?:` + dayValues + `),?)+))?`
	monthsExpr := `(?:(?:in|of) (?P<months>(?:(?:` + monthValues + `),?)+))?`
	timeExpr := `(?:(?:at )?(?P<time>\d\d:\d\d))?`

	return regexp.MustCompile(
		`^` + monthDaysExpr + ` ?` + daysExpr + ` ?` + monthsExpr + ` ?` + timeExpr + ` ?$`)
}

// alternation renders the keys of a name table, plus any extra literals, as a
// regexp alternation. Longer tokens come first so a full name is preferred
// over its prefix codes when reporting submatches.
func alternation(table map[string]int, extra ...string) string {
	tokens := make([]string, 0, len(table)+len(extra))
	for key := range table {
		tokens = append(tokens, key)
	}
	tokens = append(tokens, extra...)
	sort.Slice(tokens, func(i, j int) bool {
		if len(tokens[i]) != len(tokens[j]) {
			return len(tokens[i]) > len(tokens[j])
		}
		return tokens[i] < tokens[j]
	})
	for i, tok := range tokens {
		tokens[i] = regexp.QuoteMeta(tok)
	}
	return strings.Join(tokens, "|")
}
