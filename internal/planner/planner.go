// Package planner holds the in-memory task, reminder and note registries
// and the application state that ties them to a store.
package planner

import (
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"dayhelper/internal/logging"
	"dayhelper/internal/storage"
)

// Store persists snapshots of tasks and notes.
type Store interface {
	Load() (storage.Snapshot, error)
	Save(storage.Snapshot) error
}

// Planner owns the registries. All user changes go through it so that
// every mutation is followed by a save.
type Planner struct {
	store     Store
	log       *log.Logger
	tasks     *TaskRegistry
	reminders *ReminderRegistry
	notes     *NoteRegistry
	now       func() time.Time

	saveMu    sync.Mutex
	lastSaved time.Time
}

func New(store Store, logger *log.Logger) *Planner {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Planner{
		store:     store,
		log:       logger,
		tasks:     NewTaskRegistry(),
		reminders: NewReminderRegistry(),
		notes:     NewNoteRegistry(),
		now:       time.Now,
	}
}

// Load replaces tasks and notes with the stored ones. When the store
// reports corrupt data the registries are reset to empty and the
// storage.ErrCorrupt error is returned so the caller can warn the user.
func (p *Planner) Load() error {
	snap, err := p.store.Load()
	if err != nil && !errors.Is(err, storage.ErrCorrupt) {
		return err
	}
	var cerr *storage.CorruptError
	if errors.As(err, &cerr) && cerr.BackupErr != nil {
		p.log.Error("corrupt data could not be backed up, saves are disabled", "path", cerr.Path, "err", cerr.BackupErr)
	} else if err != nil {
		p.log.Warn("stored data is corrupt, starting empty", "err", err)
	}
	p.restore(snap)
	p.log.Info("loaded data", "tasks", p.tasks.Len(), "notes", len(snap.Notes))
	return err
}

func (p *Planner) restore(snap storage.Snapshot) {
	byDate := make(map[string][]Task, len(snap.Tasks))
	for _, key := range sortedKeys(snap.Tasks) {
		date, ok := normalizeDate(key)
		if !ok {
			p.log.Warn("skipping tasks under unreadable date", "date", key, "count", len(snap.Tasks[key]))
			continue
		}
		if date != key {
			p.log.Warn("moving tasks to canonical date", "from", key, "to", date)
		}
		for _, rec := range snap.Tasks[key] {
			if rec.Task == "" {
				p.log.Warn("skipping task without description", "date", key)
				continue
			}
			recurrence, err := ParseRecurrence(rec.Recurrence)
			if err != nil {
				p.log.Warn("unknown recurrence, treating as none", "date", key, "err", err)
			}
			byDate[date] = append(byDate[date], Task{
				ID:          uuid.NewString(),
				Description: rec.Task,
				Due:         date,
				Recurrence:  recurrence,
			})
		}
	}

	notes := make(map[string]string, len(snap.Notes))
	for _, key := range sortedKeys(snap.Notes) {
		date, ok := normalizeDate(key)
		if !ok {
			p.log.Warn("skipping note under unreadable date", "date", key)
			continue
		}
		if prev, exists := notes[date]; exists {
			p.log.Warn("merging notes stored under the same date", "from", key, "to", date)
			notes[date] = prev + "\n" + snap.Notes[key]
			continue
		}
		notes[date] = snap.Notes[key]
	}
	p.tasks.replace(byDate)
	p.notes.replace(notes)
}

// Snapshot returns the persistable state.
func (p *Planner) Snapshot() storage.Snapshot {
	snap := storage.NewSnapshot()
	for date, list := range p.tasks.all() {
		records := make([]storage.TaskRecord, 0, len(list))
		for _, t := range list {
			records = append(records, storage.TaskRecord{Task: t.Description, Recurrence: t.Recurrence.String()})
		}
		snap.Tasks[date] = records
	}
	snap.Notes = p.notes.all()
	return snap
}

// Save writes the current state. Failures come back as *SaveError.
func (p *Planner) Save() error {
	p.saveMu.Lock()
	defer p.saveMu.Unlock()

	if err := p.store.Save(p.Snapshot()); err != nil {
		p.log.Error("save failed", "err", err)
		return &SaveError{Err: err}
	}
	p.lastSaved = p.now()
	return nil
}

// LastSaved is the time of the last successful save, zero if none.
func (p *Planner) LastSaved() time.Time {
	p.saveMu.Lock()
	defer p.saveMu.Unlock()
	return p.lastSaved
}

// Close performs the final save.
func (p *Planner) Close() error {
	return p.Save()
}

func (p *Planner) AddTask(description, due, recurrence string) (Task, error) {
	rec, err := ParseRecurrence(recurrence)
	if err != nil {
		return Task{}, err
	}
	t, err := p.tasks.Add(description, due, rec)
	if err != nil {
		return Task{}, err
	}
	p.log.Debug("task added", "date", t.Due, "task", t.Description, "recurrence", t.Recurrence)
	return t, p.Save()
}

// RemoveTask removes the first task named description on date. An unknown
// description is not an error.
func (p *Planner) RemoveTask(description, date string) error {
	removed, err := p.tasks.Remove(description, date)
	if err != nil {
		return err
	}
	if removed {
		p.log.Debug("task removed", "date", date, "task", description)
	}
	return p.Save()
}

func (p *Planner) TasksFor(date string) []Task {
	return p.tasks.ListFor(date)
}

func (p *Planner) TaskDescriptions(date string) []string {
	return p.tasks.Descriptions(date)
}

func (p *Planner) TaskDates() []string {
	return p.tasks.Dates()
}

// HandleRecurrence schedules the next occurrence of t. It reports false
// when t does not recur or the next occurrence already exists.
func (p *Planner) HandleRecurrence(t Task) (Task, bool, error) {
	due, err := ParseDate(t.Due)
	if err != nil {
		return Task{}, false, invalid("due date", "use the format YYYY-MM-DD")
	}
	next, ok := t.Recurrence.Next(due)
	if !ok {
		return Task{}, false, nil
	}
	added, ok := p.tasks.addUnique(Task{
		Description: t.Description,
		Due:         FormatDate(next),
		Recurrence:  t.Recurrence,
	})
	if !ok {
		return added, false, nil
	}
	p.log.Info("scheduled next occurrence", "task", added.Description, "date", added.Due)
	return added, true, p.Save()
}

// AddReminder registers a reminder. Reminders are not persisted.
func (p *Planner) AddReminder(text, at string) (Reminder, error) {
	rem, err := p.reminders.Add(text, at)
	if err != nil {
		return Reminder{}, err
	}
	p.log.Debug("reminder added", "at", rem.At)
	return rem, nil
}

func (p *Planner) FireDueReminders(now string) []Reminder {
	return p.reminders.FireDue(now)
}

func (p *Planner) Reminders() []Reminder {
	return p.reminders.List()
}

func (p *Planner) SetNote(date, text string) error {
	if err := p.notes.Set(date, text); err != nil {
		return err
	}
	return p.Save()
}

func (p *Planner) Note(date string) (string, bool) {
	return p.notes.Get(date)
}
