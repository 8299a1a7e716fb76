// Package poller contains the background checks that announce due tasks
// and fire reminders, and the cron scheduler that drives them.
package poller

import (
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"dayhelper/internal/logging"
	"dayhelper/internal/notify"
	"dayhelper/internal/planner"
)

// Poller is one periodic check. Tick returns how many notifications it
// produced.
type Poller interface {
	Name() string
	Tick(now time.Time) int
}

// DueTasks announces the tasks stored under today and schedules their
// next occurrence. Each task is announced once per day.
type DueTasks struct {
	planner *planner.Planner
	queue   *notify.Queue
	log     *log.Logger

	mu   sync.Mutex
	day  string
	seen map[string]struct{}
}

func NewDueTasks(p *planner.Planner, q *notify.Queue, logger *log.Logger) *DueTasks {
	if logger == nil {
		logger = logging.Discard()
	}
	return &DueTasks{planner: p, queue: q, log: logger, seen: map[string]struct{}{}}
}

func (d *DueTasks) Name() string { return "due-tasks" }

func (d *DueTasks) Tick(now time.Time) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	today := planner.FormatDate(now)
	if today != d.day {
		d.day = today
		d.seen = map[string]struct{}{}
	}

	n := 0
	for _, t := range d.planner.TasksFor(today) {
		if t.Due != today {
			continue
		}
		if _, ok := d.seen[t.ID]; ok {
			continue
		}
		d.seen[t.ID] = struct{}{}

		d.queue.Push(notify.Notification{
			Kind:  notify.KindDueTask,
			Title: "Task due",
			Body:  t.Description,
			At:    now,
		})
		n++

		if _, _, err := d.planner.HandleRecurrence(t); err != nil {
			d.log.Error("recurrence failed", "task", t.Description, "err", err)
			d.queue.Push(notify.Error("Save failed", err.Error()))
		}
	}
	if n > 0 {
		d.log.Info("due tasks announced", "date", today, "count", n)
	}
	return n
}

// Reminders fires every reminder set for the current minute.
type Reminders struct {
	planner *planner.Planner
	queue   *notify.Queue
	log     *log.Logger
}

func NewReminders(p *planner.Planner, q *notify.Queue, logger *log.Logger) *Reminders {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Reminders{planner: p, queue: q, log: logger}
}

func (r *Reminders) Name() string { return "reminders" }

func (r *Reminders) Tick(now time.Time) int {
	clock := now.Format(planner.TimeLayout)
	fired := r.planner.FireDueReminders(clock)
	for _, rem := range fired {
		r.queue.Push(notify.Notification{
			Kind:  notify.KindReminder,
			Title: fmt.Sprintf("Reminder %s", rem.At),
			Body:  rem.Text,
			At:    now,
		})
	}
	if len(fired) > 0 {
		r.log.Info("reminders fired", "time", clock, "count", len(fired))
	}
	return len(fired)
}
