package probe

import (
	"slices"
	"strconv"
	"strings"
	"time"

	"ingest/internal/ddl"
)

// layout is one time format the probe recognizes. rank breaks ties when
// several layouts match the same samples: ISO beats day-first beats
// month-first.
type layout struct {
	format string
	stamp  bool
	rank   int
}

var layouts = []layout{
	{time.RFC3339Nano, true, 3},
	{time.RFC3339, true, 2},
	{"2006-01-02 15:04:05", true, 2},
	{"2006-01-02 15:04:05.999999999", true, 1},
	{"2006-01-02 15:04:05 -0700", true, 1},
	{"2006-01-02T15:04:05Z0700", true, 1},
	{"2006/01/02 15:04:05", true, 1},
	{"02/01/2006 15:04:05", true, 1},
	{"01/02/2006 15:04:05", true, 1},
	{"01/02/2006 03:04:05 PM", true, 1},

	{"2006-01-02", false, 3},
	{"2006/01/02", false, 3},
	{"20060102", false, 3},
	{"02.01.2006", false, 2},
	{"02/01/2006", false, 2},
	{"2 Jan 2006", false, 2},
	{"02-Jan-2006", false, 2},
	{"01.02.2006", false, 1},
	{"01/02/2006", false, 1},
}

// knownLayouts are tried by the coerce transform without configuration.
var knownLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02", "02.01.2006"}

// typeChecks run in order; the first one every sample passes wins. 1 and 0
// are ints before they are bools.
var typeChecks = []struct {
	typ ddl.Type
	ok  func(string) bool
}{
	{ddl.Int, isInt},
	{ddl.Bool, isBool},
	{ddl.Float, isFloat},
	{ddl.Date, func(s string) bool { return matchTime(s, false) }},
	{ddl.Timestamp, func(s string) bool { return matchTime(s, true) || matchTime(s, false) }},
}

// inferKind returns the narrowest type all samples fit. A column mixing
// dates and timestamps is a timestamp. No samples means text.
func inferKind(samples []string) ddl.Type {
	if len(samples) == 0 {
		return ddl.Text
	}
	for _, c := range typeChecks {
		if !slices.ContainsFunc(samples, func(s string) bool { return !c.ok(s) }) {
			return c.typ
		}
	}
	return ddl.Text
}

func isInt(s string) bool {
	_, err := strconv.ParseInt(s, 10, 64)
	return err == nil
}

func isFloat(s string) bool {
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

func isBool(s string) bool {
	switch strings.ToLower(s) {
	case "true", "false", "t", "f", "yes", "no", "y", "n":
		return true
	}
	return false
}

func matchTime(s string, stamp bool) bool {
	for _, l := range layouts {
		if l.stamp != stamp {
			continue
		}
		if _, err := time.Parse(l.format, s); err == nil {
			return true
		}
	}
	return false
}

// bestLayout returns the timestamp (or date) format that parses the most
// samples, preferring higher rank and then list order. Empty when nothing
// parses.
func bestLayout(samples []string, stamp bool) string {
	var best layout
	hits := 0
	for _, l := range layouts {
		if l.stamp != stamp {
			continue
		}
		n := 0
		for _, s := range samples {
			if _, err := time.Parse(l.format, s); err == nil {
				n++
			}
		}
		if n > hits || (n == hits && n > 0 && l.rank > best.rank) {
			best, hits = l, n
		}
	}
	return best.format
}
