package planner

import (
	"strings"
	"sync"
)

// NoteRegistry holds at most one note per date.
type NoteRegistry struct {
	mu     sync.Mutex
	byDate map[string]string
}

func NewNoteRegistry() *NoteRegistry {
	return &NoteRegistry{byDate: map[string]string{}}
}

// Set overwrites the note for date.
func (r *NoteRegistry) Set(date, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return invalid("note", "note text is required")
	}
	if strings.TrimSpace(date) == "" {
		return invalid("note", "no date selected")
	}
	r.mu.Lock()
	r.byDate[date] = text
	r.mu.Unlock()
	return nil
}

// Get reports false when date has no note.
func (r *NoteRegistry) Get(date string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	text, ok := r.byDate[date]
	return text, ok
}

func (r *NoteRegistry) all() map[string]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]string, len(r.byDate))
	for d, text := range r.byDate {
		out[d] = text
	}
	return out
}

func (r *NoteRegistry) replace(byDate map[string]string) {
	r.mu.Lock()
	r.byDate = byDate
	r.mu.Unlock()
}
