package notifications

import (
	"sync"
	"time"
)

// DefaultDelay is how long a notification stays visible.
const DefaultDelay = 3300 * time.Millisecond

// Notification is a transient message shown after a cart action.
type Notification struct {
	ID        int64     `json:"id"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Scheduler runs fn once after d.
type Scheduler func(d time.Duration, fn func())

// Option customizes a Queue.
type Option func(*Queue)

// WithDelay overrides the visibility window. Non-positive values keep the default.
func WithDelay(d time.Duration) Option {
	return func(q *Queue) {
		if d > 0 {
			q.delay = d
		}
	}
}

// WithClock injects the time source used for timestamps and expiry checks.
func WithClock(now func() time.Time) Option {
	return func(q *Queue) {
		if now != nil {
			q.now = now
		}
	}
}

// WithScheduler injects the timer used to drop expired notifications.
func WithScheduler(s Scheduler) Option {
	return func(q *Queue) {
		if s != nil {
			q.schedule = s
		}
	}
}

// Queue holds the live notifications of one cart session. Safe for concurrent use.
type Queue struct {
	mu       sync.Mutex
	nextID   int64
	items    []Notification
	delay    time.Duration
	now      func() time.Time
	schedule Scheduler
}

func NewQueue(opts ...Option) *Queue {
	q := &Queue{
		delay: DefaultDelay,
		now:   time.Now,
		schedule: func(d time.Duration, fn func()) {
			time.AfterFunc(d, fn)
		},
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Show enqueues a message and schedules the removal of that exact entry.
func (q *Queue) Show(message string) Notification {
	q.mu.Lock()
	q.nextID++
	created := q.now()
	n := Notification{
		ID:        q.nextID,
		Message:   message,
		CreatedAt: created,
		ExpiresAt: created.Add(q.delay),
	}
	q.items = append(q.items, n)
	delay := q.delay
	q.mu.Unlock()

	id := n.ID
	q.schedule(delay, func() { q.remove(id) })
	return n
}

// Active returns the notifications still visible, oldest first.
func (q *Queue) Active() []Notification {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	live := q.items[:0]
	for _, n := range q.items {
		if now.Before(n.ExpiresAt) {
			live = append(live, n)
		}
	}
	q.items = live

	out := make([]Notification, len(live))
	copy(out, live)
	return out
}

func (q *Queue) remove(id int64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, n := range q.items {
		if n.ID == id {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return
		}
	}
}
