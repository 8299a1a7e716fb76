package planner

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/teambition/rrule-go"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"

	// older data files may hold dates without zero padding
	lenientDateLayout = "2006-1-2"
)

type Recurrence int

const (
	RecurNone Recurrence = iota
	RecurDaily
	RecurWeekly
)

// German spellings appear in older data files.
var recurrenceNames = map[string]Recurrence{
	"":             RecurNone,
	"none":         RecurNone,
	"keine":        RecurNone,
	"daily":        RecurDaily,
	"täglich":      RecurDaily,
	"taeglich":     RecurDaily,
	"weekly":       RecurWeekly,
	"wöchentlich":  RecurWeekly,
	"woechentlich": RecurWeekly,
}

func ParseRecurrence(s string) (Recurrence, error) {
	r, ok := recurrenceNames[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return RecurNone, invalid("recurrence", fmt.Sprintf("unknown recurrence %q, use none, daily or weekly", s))
	}
	return r, nil
}

func (r Recurrence) String() string {
	switch r {
	case RecurDaily:
		return "daily"
	case RecurWeekly:
		return "weekly"
	default:
		return "none"
	}
}

// Next returns the occurrence after due, or false for non-recurring tasks.
func (r Recurrence) Next(due time.Time) (time.Time, bool) {
	var freq rrule.Frequency
	switch r {
	case RecurDaily:
		freq = rrule.DAILY
	case RecurWeekly:
		freq = rrule.WEEKLY
	default:
		return time.Time{}, false
	}
	rule, err := rrule.NewRRule(rrule.ROption{Freq: freq, Dtstart: due, Count: 2})
	if err != nil {
		return time.Time{}, false
	}
	next := rule.After(due, false)
	if next.IsZero() {
		return time.Time{}, false
	}
	return next, true
}

// ParseDate parses an ISO date (YYYY-MM-DD) at midnight UTC.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, strings.TrimSpace(s))
}

// normalizeDate maps a stored date key to its zero-padded form.
func normalizeDate(key string) (string, bool) {
	d, err := time.Parse(lenientDateLayout, strings.TrimSpace(key))
	if err != nil {
		return "", false
	}
	return FormatDate(d), true
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}
