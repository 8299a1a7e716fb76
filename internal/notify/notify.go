// Package notify hands user-facing notifications from background pollers
// to the UI without ever blocking the producer.
package notify

import (
	"context"
	"sync"
	"time"
)

type Kind int

const (
	KindDueTask Kind = iota
	KindReminder
	KindWarning
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindDueTask:
		return "due task"
	case KindReminder:
		return "reminder"
	case KindWarning:
		return "warning"
	case KindError:
		return "error"
	default:
		return "unknown"
	}
}

type Notification struct {
	Kind  Kind
	Title string
	Body  string
	At    time.Time
}

// Queue is an unbounded FIFO of notifications.
type Queue struct {
	mu    sync.Mutex
	items []Notification
	wake  chan struct{}
}

func NewQueue() *Queue {
	return &Queue{wake: make(chan struct{}, 1)}
}

// Push appends n and wakes one waiter. It never blocks.
func (q *Queue) Push(n Notification) {
	if n.At.IsZero() {
		n.At = time.Now()
	}
	q.mu.Lock()
	q.items = append(q.items, n)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Pop removes the oldest notification, if any.
func (q *Queue) Pop() (Notification, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return Notification{}, false
	}
	n := q.items[0]
	q.items[0] = Notification{}
	q.items = q.items[1:]
	return n, true
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Wait blocks until a notification is available or ctx is done.
func (q *Queue) Wait(ctx context.Context) (Notification, error) {
	for {
		if n, ok := q.Pop(); ok {
			return n, nil
		}
		select {
		case <-ctx.Done():
			return Notification{}, ctx.Err()
		case <-q.wake:
		}
	}
}

func Warning(title, body string) Notification {
	return Notification{Kind: KindWarning, Title: title, Body: body}
}

func Error(title, body string) Notification {
	return Notification{Kind: KindError, Title: title, Body: body}
}
