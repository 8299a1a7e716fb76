package planner

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Reminder fires once when the wall clock shows At ("HH:MM"), on whatever
// day that happens first.
type Reminder struct {
	ID   string
	Text string
	At   string
}

type ReminderRegistry struct {
	mu    sync.Mutex
	items []Reminder
}

func NewReminderRegistry() *ReminderRegistry {
	return &ReminderRegistry{}
}

// Add validates text and time; the time is normalised to two-digit HH:MM.
func (r *ReminderRegistry) Add(text, at string) (Reminder, error) {
	text = strings.TrimSpace(text)
	at = strings.TrimSpace(at)
	if text == "" || at == "" {
		return Reminder{}, invalid("reminder", "text and time are required")
	}
	parsed, err := time.Parse(TimeLayout, at)
	if err != nil {
		return Reminder{}, invalid("reminder time", "use the format HH:MM")
	}

	rem := Reminder{ID: uuid.NewString(), Text: text, At: parsed.Format(TimeLayout)}
	r.mu.Lock()
	r.items = append(r.items, rem)
	r.mu.Unlock()
	return rem, nil
}

// FireDue removes and returns every reminder set for now ("HH:MM").
func (r *ReminderRegistry) FireDue(now string) []Reminder {
	r.mu.Lock()
	defer r.mu.Unlock()

	var fired []Reminder
	kept := r.items[:0]
	for _, rem := range r.items {
		if rem.At == now {
			fired = append(fired, rem)
			continue
		}
		kept = append(kept, rem)
	}
	for i := len(kept); i < len(r.items); i++ {
		r.items[i] = Reminder{}
	}
	r.items = kept
	return fired
}

// List returns pending reminders ordered by time.
func (r *ReminderRegistry) List() []Reminder {
	r.mu.Lock()
	out := make([]Reminder, len(r.items))
	copy(out, r.items)
	r.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].At < out[j].At })
	return out
}

func (r *ReminderRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}
