package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"dayhelper/internal/config"
	"dayhelper/internal/notify"
	"dayhelper/internal/planner"
)

type mode int

const (
	modeBrowse mode = iota
	modeTaskForm
	modeReminderForm
	modeNoteForm
)

type notificationMsg notify.Notification

type formState struct {
	labels []string
	values []string
	index  int
}

var (
	modalBox     = lipgloss.NewStyle().Border(lipgloss.DoubleBorder()).Padding(0, 2)
	modalWarning = modalBox.BorderForeground(lipgloss.Color("11"))
	modalError   = modalBox.BorderForeground(lipgloss.Color("9"))
	headingStyle = lipgloss.NewStyle().Bold(true)
	panelStyle   = lipgloss.NewStyle().PaddingLeft(2)
)

type Model struct {
	ctx       context.Context
	planner   *planner.Planner
	queue     *notify.Queue
	cfg       config.Config
	weekStart time.Weekday
	now       func() time.Time

	selected time.Time
	cursor   int
	mode     mode
	input    textinput.Model
	form     *formState
	modal    *notify.Notification
	pending  []notify.Notification
	status   string
}

func New(ctx context.Context, p *planner.Planner, q *notify.Queue, cfg config.Config) Model {
	ti := textinput.New()
	ti.CharLimit = 256
	ti.Width = 40

	now := time.Now
	return Model{
		ctx:       ctx,
		planner:   p,
		queue:     q,
		cfg:       cfg,
		weekStart: parseWeekStart(cfg.WeekStart),
		now:       now,
		selected:  dateOnly(now()),
		input:     ti,
		mode:      modeBrowse,
		status:    "Press 'a' to add a task, 'r' for a reminder, 'n' for a note.",
	}
}

// Run blocks until the user quits or ctx is cancelled.
func Run(ctx context.Context, p *planner.Planner, q *notify.Queue, cfg config.Config) error {
	program := tea.NewProgram(New(ctx, p, q, cfg), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := program.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func (m Model) Init() tea.Cmd {
	return waitForNotification(m.ctx, m.queue)
}

func waitForNotification(ctx context.Context, q *notify.Queue) tea.Cmd {
	return func() tea.Msg {
		n, err := q.Wait(ctx)
		if err != nil {
			return nil
		}
		return notificationMsg(n)
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case notificationMsg:
		m.show(notify.Notification(msg))
		return m, waitForNotification(m.ctx, m.queue)
	case tea.KeyMsg:
		if m.modal != nil {
			return m.updateModal(msg.String())
		}
		if m.form != nil {
			return m.updateForm(msg.String(), msg)
		}
		return m.updateBrowse(msg.String())
	case tea.WindowSizeMsg:
		m.input.Width = msg.Width - 10
	}
	return m, nil
}

func (m *Model) show(n notify.Notification) {
	if m.modal == nil {
		m.modal = &n
		return
	}
	m.pending = append(m.pending, n)
}

func (m Model) updateModal(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "ctrl+c":
		return m, tea.Quit
	case m.cfg.Keys.Confirm, m.cfg.Keys.Cancel, "enter", "esc", " ":
		if len(m.pending) > 0 {
			next := m.pending[0]
			m.pending = m.pending[1:]
			m.modal = &next
		} else {
			m.modal = nil
		}
	}
	return m, nil
}

func (m Model) updateBrowse(key string) (tea.Model, tea.Cmd) {
	keys := m.cfg.Keys
	switch key {
	case "ctrl+c", keys.Quit:
		return m, tea.Quit
	case keys.Down, "down":
		m.cursor = clampCursor(m.cursor+1, len(m.tasks()))
	case keys.Up, "up":
		if m.cursor > 0 {
			m.cursor = clampCursor(m.cursor-1, len(m.tasks()))
		}
	case keys.PrevDay, "left":
		m.selectDate(m.selected.AddDate(0, 0, -1))
	case keys.NextDay, "right":
		m.selectDate(m.selected.AddDate(0, 0, 1))
	case keys.PrevWeek:
		m.selectDate(m.selected.AddDate(0, 0, -7))
	case keys.NextWeek:
		m.selectDate(m.selected.AddDate(0, 0, 7))
	case keys.PrevMonth:
		m.selectDate(m.selected.AddDate(0, -1, 0))
	case keys.NextMonth:
		m.selectDate(m.selected.AddDate(0, 1, 0))
	case keys.Today:
		m.selectDate(dateOnly(m.now()))
	case keys.AddTask:
		return m.openForm(modeTaskForm, &formState{
			labels: []string{"task", "due date (YYYY-MM-DD)", "recurrence (none/daily/weekly)"},
			values: []string{"", m.selectedKey(), ""},
		})
	case keys.Reminder:
		return m.openForm(modeReminderForm, &formState{
			labels: []string{"reminder", "time (HH:MM)"},
			values: []string{"", ""},
		})
	case keys.Note:
		note, _ := m.planner.Note(m.selectedKey())
		return m.openForm(modeNoteForm, &formState{
			labels: []string{"note for " + m.selectedKey()},
			values: []string{note},
		})
	case keys.Delete:
		description := ""
		if tasks := m.tasks(); len(tasks) > 0 {
			description = tasks[clampCursor(m.cursor, len(tasks))].Description
		}
		err := m.planner.RemoveTask(description, m.selectedKey())
		m.report(err, fmt.Sprintf("Removed %q", description))
		m.cursor = clampCursor(m.cursor, len(m.tasks()))
	}
	return m, nil
}

// selectDate is the date-changed event: the task list and note follow the
// new selection.
func (m *Model) selectDate(d time.Time) {
	m.selected = dateOnly(d)
	m.cursor = 0
	m.status = "Selected " + m.selectedKey()
}

func (m Model) openForm(kind mode, f *formState) (tea.Model, tea.Cmd) {
	m.mode = kind
	m.form = f
	m.input.SetValue(f.currentValue())
	m.input.Placeholder = f.currentLabel()
	m.input.Focus()
	m.status = m.formPrompt()
	return m, textinput.Blink
}

func (m Model) closeForm(status string) Model {
	m.form = nil
	m.mode = modeBrowse
	m.input.SetValue("")
	m.input.Blur()
	m.status = status
	return m
}

func (m Model) updateForm(key string, msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key {
	case m.cfg.Keys.Cancel, "esc":
		return m.closeForm("Cancelled"), nil
	case m.cfg.Keys.NextField, "tab", "down":
		m.moveField(1)
		return m, nil
	case "shift+tab", "up":
		m.moveField(-1)
		return m, nil
	case m.cfg.Keys.Confirm, "enter":
		m.form.setCurrentValue(m.input.Value())
		if m.form.index < len(m.form.values)-1 {
			m.moveField(1)
			return m, nil
		}
		return m.submitForm()
	default:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
}

func (m *Model) moveField(delta int) {
	m.form.setCurrentValue(m.input.Value())
	m.form.index = wrapIndex(m.form.index+delta, len(m.form.values))
	m.input.SetValue(m.form.currentValue())
	m.input.Placeholder = m.form.currentLabel()
	m.status = m.formPrompt()
}

func (m Model) submitForm() (tea.Model, tea.Cmd) {
	v := m.form.values
	var err error
	var done string
	switch m.mode {
	case modeTaskForm:
		var t planner.Task
		t, err = m.planner.AddTask(v[0], v[1], v[2])
		done = fmt.Sprintf("Added %q on %s", t.Description, t.Due)
	case modeReminderForm:
		var r planner.Reminder
		r, err = m.planner.AddReminder(v[0], v[1])
		done = fmt.Sprintf("Reminder set for %s", r.At)
	case modeNoteForm:
		err = m.planner.SetNote(m.selectedKey(), v[0])
		done = "Note saved"
	}

	if planner.IsValidation(err) {
		// Keep the form open so the input can be corrected.
		m.report(err, "")
		return m, nil
	}
	m = m.closeForm(done)
	m.report(err, done)
	return m, nil
}

// report turns an operation result into the status line or a dialog.
func (m *Model) report(err error, ok string) {
	switch {
	case err == nil:
		m.status = ok
	case planner.IsValidation(err):
		var ve *planner.ValidationError
		errors.As(err, &ve)
		m.show(notify.Warning("Input error", ve.Message))
		m.status = "Input error"
	case planner.IsSave(err):
		m.show(notify.Error("Save failed", err.Error()))
		m.status = ok + " (not saved)"
	default:
		m.show(notify.Error("Error", err.Error()))
		m.status = err.Error()
	}
}

func (m Model) tasks() []planner.Task {
	return m.planner.TasksFor(m.selectedKey())
}

func (m Model) selectedKey() string {
	return planner.FormatDate(m.selected)
}

func (m Model) View() string {
	var b strings.Builder

	if m.modal != nil {
		b.WriteString(renderModal(*m.modal, len(m.pending)))
		b.WriteString("\n\n")
	}

	b.WriteString(headingStyle.Render("Dayhelper"))
	b.WriteString("\n\n")

	marked := map[string]bool{}
	for _, d := range m.planner.TaskDates() {
		marked[d] = true
	}
	cal := renderMonth(m.selected, dateOnly(m.now()), marked, m.weekStart)
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cal, panelStyle.Render(m.renderDayPanel())))

	b.WriteString("\n---\n")
	if m.form != nil {
		b.WriteString(m.renderFormBox())
		b.WriteString("\n")
		b.WriteString(m.input.View())
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.status)
	b.WriteString(" • ")
	b.WriteString(m.saveStatus())
	b.WriteString("\n")
	b.WriteString(renderHelp(m.cfg.Keys))
	return b.String()
}

func (m Model) renderDayPanel() string {
	var b strings.Builder
	date := m.selectedKey()

	b.WriteString(headingStyle.Render("Tasks for " + date))
	b.WriteString("\n")
	tasks := m.tasks()
	if len(tasks) == 0 {
		b.WriteString("No tasks for this day.\n")
	}
	for i, t := range tasks {
		cursor := " "
		if i == m.cursor && m.form == nil {
			cursor = ">"
		}
		line := fmt.Sprintf("%s %s", cursor, t.Description)
		if t.Recurrence != planner.RecurNone {
			line += " (" + t.Recurrence.String() + ")"
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if note, ok := m.planner.Note(date); ok {
		b.WriteString(fmt.Sprintf("Note for %s: %s\n", date, note))
	} else {
		b.WriteString("No note for this day.\n")
	}

	reminders := m.planner.Reminders()
	if len(reminders) > 0 {
		b.WriteString("\n")
		b.WriteString(headingStyle.Render("Reminders"))
		b.WriteString("\n")
		for _, r := range reminders {
			b.WriteString(fmt.Sprintf("  %s %s\n", r.At, r.Text))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m Model) renderFormBox() string {
	var b strings.Builder
	for i, name := range m.form.labels {
		prefix := " "
		if i == m.form.index {
			prefix = ">"
		}
		val := m.form.values[i]
		if strings.TrimSpace(val) == "" {
			val = "(empty)"
		}
		b.WriteString(fmt.Sprintf("%s %-32s : %s\n", prefix, name, val))
	}
	return b.String()
}

func (m Model) formPrompt() string {
	if m.form == nil {
		return ""
	}
	return fmt.Sprintf("Editing %s (field %d of %d). Enter to advance, Esc to cancel, tab to move.",
		m.form.currentLabel(), m.form.index+1, len(m.form.values))
}

func (m Model) saveStatus() string {
	last := m.planner.LastSaved()
	if last.IsZero() {
		return "not saved yet"
	}
	return "saved " + humanize.Time(last)
}

func renderModal(n notify.Notification, more int) string {
	style := modalBox
	switch n.Kind {
	case notify.KindWarning:
		style = modalWarning
	case notify.KindError:
		style = modalError
	}
	body := headingStyle.Render(n.Title) + "\n" + n.Body
	footer := "enter to dismiss"
	if more > 0 {
		footer = fmt.Sprintf("enter to dismiss (%d more)", more)
	}
	return style.Render(body + "\n\n" + footer)
}

func renderHelp(k config.Keymap) string {
	return fmt.Sprintf("%s/%s day • %s/%s week • %s/%s month • %s today • %s/%s move • %s add • %s delete • %s reminder • %s note • %s quit",
		k.PrevDay, k.NextDay, k.PrevWeek, k.NextWeek, k.PrevMonth, k.NextMonth, k.Today,
		k.Up, k.Down, k.AddTask, k.Delete, k.Reminder, k.Note, k.Quit)
}

func (f formState) currentLabel() string {
	return f.labels[f.index]
}

func (f formState) currentValue() string {
	return f.values[f.index]
}

func (f *formState) setCurrentValue(v string) {
	f.values[f.index] = v
}

func dateOnly(t time.Time) time.Time {
	y, mo, d := t.Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)
}

func wrapIndex(idx, n int) int {
	if n <= 0 {
		return 0
	}
	idx %= n
	if idx < 0 {
		idx += n
	}
	return idx
}

func clampCursor(cur, n int) int {
	if n <= 0 {
		return 0
	}
	if cur < 0 {
		return 0
	}
	if cur >= n {
		return n - 1
	}
	return cur
}
