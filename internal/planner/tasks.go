package planner

import (
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Task is one scheduled entry. Due is the date the task is stored under;
// ID lives only in memory.
type Task struct {
	ID          string
	Description string
	Due         string
	Recurrence  Recurrence
}

// TaskRegistry maps due dates to insertion-ordered task lists.
type TaskRegistry struct {
	mu     sync.Mutex
	byDate map[string][]Task
}

func NewTaskRegistry() *TaskRegistry {
	return &TaskRegistry{byDate: map[string][]Task{}}
}

// Add validates the input and appends a task under its due date.
func (r *TaskRegistry) Add(description, due string, rec Recurrence) (Task, error) {
	description = strings.TrimSpace(description)
	due = strings.TrimSpace(due)
	if description == "" || due == "" {
		return Task{}, invalid("task", "description and due date are required")
	}
	d, err := ParseDate(due)
	if err != nil {
		return Task{}, invalid("due date", "use the format YYYY-MM-DD")
	}

	t := Task{ID: uuid.NewString(), Description: description, Due: FormatDate(d), Recurrence: rec}
	r.mu.Lock()
	r.byDate[t.Due] = append(r.byDate[t.Due], t)
	r.mu.Unlock()
	return t, nil
}

// addUnique appends t unless a task with the same description and
// recurrence already sits on t.Due.
func (r *TaskRegistry) addUnique(t Task) (Task, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.byDate[t.Due] {
		if existing.Description == t.Description && existing.Recurrence == t.Recurrence {
			return existing, false
		}
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	r.byDate[t.Due] = append(r.byDate[t.Due], t)
	return t, true
}

// Remove deletes the first task on date whose description matches. An
// empty description means nothing was selected.
func (r *TaskRegistry) Remove(description, date string) (bool, error) {
	if description == "" {
		return false, invalid("task", "select a task to remove")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.byDate[date]
	for i, t := range list {
		if t.Description != description {
			continue
		}
		list = append(list[:i:i], list[i+1:]...)
		if len(list) == 0 {
			delete(r.byDate, date)
		} else {
			r.byDate[date] = list
		}
		return true, nil
	}
	return false, nil
}

// ListFor returns a copy of the tasks stored under date.
func (r *TaskRegistry) ListFor(date string) []Task {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.byDate[date]
	if len(list) == 0 {
		return nil
	}
	out := make([]Task, len(list))
	copy(out, list)
	return out
}

func (r *TaskRegistry) Descriptions(date string) []string {
	tasks := r.ListFor(date)
	out := make([]string, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.Description)
	}
	return out
}

// Dates returns every date holding at least one task, sorted.
func (r *TaskRegistry) Dates() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.byDate))
	for d, list := range r.byDate {
		if len(list) > 0 {
			out = append(out, d)
		}
	}
	sort.Strings(out)
	return out
}

func (r *TaskRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, list := range r.byDate {
		n += len(list)
	}
	return n
}

func (r *TaskRegistry) all() map[string][]Task {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string][]Task, len(r.byDate))
	for d, list := range r.byDate {
		if len(list) == 0 {
			continue
		}
		cp := make([]Task, len(list))
		copy(cp, list)
		out[d] = cp
	}
	return out
}

func (r *TaskRegistry) replace(byDate map[string][]Task) {
	r.mu.Lock()
	r.byDate = byDate
	r.mu.Unlock()
}
