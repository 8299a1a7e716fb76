// Package ics exports tasks and notes as an iCalendar file so they can be
// viewed in other calendar applications.
package ics

import (
	"fmt"
	"io"
	"sort"
	"time"

	ical "github.com/arran4/golang-ical"

	"dayhelper/internal/planner"
	"dayhelper/internal/storage"
)

const productID = "-//dayhelper//EN"

// Export writes every task and note of snap as all-day events. Recurring
// tasks carry an RRULE. Dates that do not parse are skipped and returned.
func Export(w io.Writer, snap storage.Snapshot, stamp time.Time) ([]string, error) {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)

	var skipped []string
	for _, date := range sortedKeys(snap.Tasks) {
		day, err := planner.ParseDate(date)
		if err != nil {
			skipped = append(skipped, date)
			continue
		}
		for i, rec := range snap.Tasks[date] {
			ev := cal.AddEvent(fmt.Sprintf("task-%s-%d@dayhelper", date, i))
			ev.SetDtStampTime(stamp)
			ev.SetSummary(rec.Task)
			ev.SetAllDayStartAt(day)
			ev.SetAllDayEndAt(day.AddDate(0, 0, 1))
			if rule := rruleFor(rec.Recurrence); rule != "" {
				ev.SetProperty(ical.ComponentPropertyRrule, rule)
			}
		}
	}

	for _, date := range sortedKeys(snap.Notes) {
		day, err := planner.ParseDate(date)
		if err != nil {
			skipped = append(skipped, date)
			continue
		}
		ev := cal.AddEvent(fmt.Sprintf("note-%s@dayhelper", date))
		ev.SetDtStampTime(stamp)
		ev.SetSummary("Note: " + snap.Notes[date])
		ev.SetDescription(snap.Notes[date])
		ev.SetAllDayStartAt(day)
		ev.SetAllDayEndAt(day.AddDate(0, 0, 1))
	}

	if _, err := io.WriteString(w, cal.Serialize()); err != nil {
		return skipped, fmt.Errorf("write calendar: %w", err)
	}
	return skipped, nil
}

func rruleFor(recurrence string) string {
	rec, err := planner.ParseRecurrence(recurrence)
	if err != nil {
		return ""
	}
	switch rec {
	case planner.RecurDaily:
		return "FREQ=DAILY"
	case planner.RecurWeekly:
		return "FREQ=WEEKLY"
	default:
		return ""
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
