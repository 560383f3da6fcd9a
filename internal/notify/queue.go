// Package notify implements the toast queue: short-lived user-facing
// messages that expire on their own timers.
package notify

import (
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Kind string

const (
	KindError   Kind = "error"
	KindSuccess Kind = "success"
	KindWarning Kind = "warning"
	KindInfo    Kind = "info"
)

// DefaultDuration is how long a notification stays visible unless told otherwise
const DefaultDuration = 5 * time.Second

type Notification struct {
	ID        string
	Message   string
	Kind      Kind
	Duration  time.Duration
	CreatedAt time.Time
}

// Timer is the subset of *time.Timer the queue needs
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d; time.AfterFunc in production
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

type entry struct {
	Notification
	timer Timer
}

// Queue is an insertion-ordered list of notifications. Each entry owns its
// own expiry timer, so entries expire independently of each other.
type Queue struct {
	mu          sync.Mutex
	entries     []*entry
	closed      bool
	nextSubID   int
	subscribers map[int]func([]Notification)

	duration  time.Duration
	maxLen    int
	afterFunc AfterFunc
	now       func() time.Time
}

type Option func(*Queue)

func WithDuration(d time.Duration) Option {
	return func(q *Queue) {
		if d > 0 {
			q.duration = d
		}
	}
}

// WithMaxLen caps the queue; when full the oldest entry is dropped. Zero means unbounded.
func WithMaxLen(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.maxLen = n
		}
	}
}

func WithAfterFunc(fn AfterFunc) Option {
	return func(q *Queue) { q.afterFunc = fn }
}

func WithClock(now func() time.Time) Option {
	return func(q *Queue) { q.now = now }
}

func New(opts ...Option) *Queue {
	q := &Queue{
		subscribers: make(map[int]func([]Notification)),
		duration:    DefaultDuration,
		afterFunc:   realAfterFunc,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Enqueue adds a notification with the default duration and returns its id
func (q *Queue) Enqueue(message string, kind Kind) string {
	return q.EnqueueFor(message, kind, 0)
}

// EnqueueFor adds a notification that expires after d (default when d <= 0).
// It returns "" once the queue is closed.
func (q *Queue) EnqueueFor(message string, kind Kind, d time.Duration) string {
	if d <= 0 {
		d = q.duration
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ""
	}

	e := &entry{Notification: Notification{
		ID:        uuid.NewString(),
		Message:   message,
		Kind:      kind,
		Duration:  d,
		CreatedAt: q.now(),
	}}
	id := e.ID
	e.timer = q.afterFunc(d, func() { q.Dismiss(id) })

	q.entries = append(q.entries, e)
	if q.maxLen > 0 && len(q.entries) > q.maxLen {
		dropped := q.entries[0]
		dropped.timer.Stop()
		q.entries = q.entries[1:]
	}
	snapshot, subs := q.snapshotLocked()
	q.mu.Unlock()

	notify(subs, snapshot)
	return id
}

func (q *Queue) Error(message string) string   { return q.Enqueue(message, KindError) }
func (q *Queue) Success(message string) string { return q.Enqueue(message, KindSuccess) }
func (q *Queue) Warning(message string) string { return q.Enqueue(message, KindWarning) }
func (q *Queue) Info(message string) string    { return q.Enqueue(message, KindInfo) }

// Dismiss removes the notification early. It reports whether id was present.
func (q *Queue) Dismiss(id string) bool {
	q.mu.Lock()
	idx := slices.IndexFunc(q.entries, func(e *entry) bool { return e.ID == id })
	if idx < 0 {
		q.mu.Unlock()
		return false
	}
	q.entries[idx].timer.Stop()
	q.entries = slices.Delete(q.entries, idx, idx+1)
	snapshot, subs := q.snapshotLocked()
	q.mu.Unlock()

	notify(subs, snapshot)
	return true
}

// List returns the live notifications in insertion order
func (q *Queue) List() []Notification {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]Notification, len(q.entries))
	for i, e := range q.entries {
		out[i] = e.Notification
	}
	return out
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Subscribe registers fn to be called with the full list after every change.
// The returned func removes the subscription.
func (q *Queue) Subscribe(fn func([]Notification)) func() {
	q.mu.Lock()
	id := q.nextSubID
	q.nextSubID++
	q.subscribers[id] = fn
	q.mu.Unlock()

	return func() {
		q.mu.Lock()
		delete(q.subscribers, id)
		q.mu.Unlock()
	}
}

// Close stops every pending timer and drops all entries
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, e := range q.entries {
		e.timer.Stop()
	}
	q.entries = nil
	q.closed = true
}

func (q *Queue) snapshotLocked() ([]Notification, []func([]Notification)) {
	if len(q.subscribers) == 0 {
		return nil, nil
	}
	snapshot := make([]Notification, len(q.entries))
	for i, e := range q.entries {
		snapshot[i] = e.Notification
	}
	subs := make([]func([]Notification), 0, len(q.subscribers))
	for _, fn := range q.subscribers {
		subs = append(subs, fn)
	}
	return snapshot, subs
}

func notify(subs []func([]Notification), snapshot []Notification) {
	for _, fn := range subs {
		fn(snapshot)
	}
}
