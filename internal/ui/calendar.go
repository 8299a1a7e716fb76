package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	calendarBox   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	selectedDay   = lipgloss.NewStyle().Reverse(true)
	todayDay      = lipgloss.NewStyle().Underline(true)
	taskDay       = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	calendarTitle = lipgloss.NewStyle().Bold(true)
)

// monthGrid lays out the days of a month in weeks starting on weekStart.
// Zero marks a cell outside the month.
func monthGrid(year int, month time.Month, weekStart time.Weekday) [][]int {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	days := first.AddDate(0, 1, -1).Day()
	offset := (int(first.Weekday()) - int(weekStart) + 7) % 7

	var weeks [][]int
	week := make([]int, 7)
	col := offset
	for day := 1; day <= days; day++ {
		week[col] = day
		col++
		if col == 7 {
			weeks = append(weeks, week)
			week = make([]int, 7)
			col = 0
		}
	}
	if col > 0 {
		weeks = append(weeks, week)
	}
	return weeks
}

func weekdayHeader(weekStart time.Weekday) string {
	names := make([]string, 0, 7)
	for i := 0; i < 7; i++ {
		wd := time.Weekday((int(weekStart) + i) % 7)
		names = append(names, wd.String()[:2])
	}
	return strings.Join(names, " ")
}

// renderMonth draws the month around selected. Days with tasks are
// highlighted, today is underlined and the selected day reversed.
func renderMonth(selected, today time.Time, marked map[string]bool, weekStart time.Weekday) string {
	var b strings.Builder
	b.WriteString(calendarTitle.Render(selected.Format("January 2006")))
	b.WriteString("\n")
	b.WriteString(weekdayHeader(weekStart))
	b.WriteString("\n")

	year, month, _ := selected.Date()
	for _, week := range monthGrid(year, month, weekStart) {
		cells := make([]string, 0, 7)
		for _, day := range week {
			if day == 0 {
				cells = append(cells, "  ")
				continue
			}
			date := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
			key := date.Format("2006-01-02")
			cell := fmt.Sprintf("%2d", day)

			style := lipgloss.NewStyle()
			if marked[key] {
				style = taskDay
			}
			if sameDay(date, today) {
				style = style.Inherit(todayDay)
			}
			if sameDay(date, selected) {
				style = style.Inherit(selectedDay)
			}
			cells = append(cells, style.Render(cell))
		}
		b.WriteString(strings.Join(cells, " "))
		b.WriteString("\n")
	}
	return calendarBox.Render(strings.TrimRight(b.String(), "\n"))
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func parseWeekStart(s string) time.Weekday {
	if s == "sunday" {
		return time.Sunday
	}
	return time.Monday
}
