package ics

import (
	"bytes"
	"strings"
	"testing"
	"time"

	ical "github.com/arran4/golang-ical"

	"dayhelper/internal/storage"
)

func TestExport(t *testing.T) {
	snap := storage.NewSnapshot()
	snap.Tasks["2024-06-01"] = []storage.TaskRecord{
		{Task: "Buy milk", Recurrence: "daily"},
		{Task: "Call mum", Recurrence: "none"},
	}
	snap.Tasks["2024-06-03"] = []storage.TaskRecord{
		{Task: "Team sync", Recurrence: "wöchentlich"},
	}
	snap.Tasks["someday"] = []storage.TaskRecord{{Task: "Learn piano"}}
	snap.Notes["2024-06-01"] = "Dentist at 3pm"

	var buf bytes.Buffer
	skipped, err := Export(&buf, snap, time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(skipped) != 1 || skipped[0] != "someday" {
		t.Errorf("skipped = %v, want [someday]", skipped)
	}

	cal, err := ical.ParseCalendar(strings.NewReader(buf.String()))
	if err != nil {
		t.Fatalf("exported calendar does not parse: %v", err)
	}
	events := cal.Events()
	if len(events) != 4 {
		t.Fatalf("expected 4 events, got %d:\n%s", len(events), buf.String())
	}

	rules := map[string]string{}
	for _, ev := range events {
		summary := ev.GetProperty(ical.ComponentPropertySummary)
		if summary == nil {
			t.Fatal("event without summary")
		}
		rule := ""
		if p := ev.GetProperty(ical.ComponentPropertyRrule); p != nil {
			rule = p.Value
		}
		rules[summary.Value] = rule
	}

	want := map[string]string{
		"Buy milk":             "FREQ=DAILY",
		"Call mum":             "",
		"Team sync":            "FREQ=WEEKLY",
		"Note: Dentist at 3pm": "",
	}
	for summary, rule := range want {
		got, ok := rules[summary]
		if !ok {
			t.Errorf("missing event %q", summary)
			continue
		}
		if got != rule {
			t.Errorf("%q RRULE = %q, want %q", summary, got, rule)
		}
	}

	out := buf.String()
	if !strings.Contains(out, "VALUE=DATE") || !strings.Contains(out, ":20240601") {
		t.Errorf("expected all-day DTSTART in output:\n%s", out)
	}
}

func TestExportEmpty(t *testing.T) {
	var buf bytes.Buffer
	if _, err := Export(&buf, storage.NewSnapshot(), time.Now()); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "BEGIN:VCALENDAR") {
		t.Errorf("expected calendar envelope, got %q", buf.String())
	}
}
