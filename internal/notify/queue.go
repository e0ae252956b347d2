package notify

import (
	"sync"
	"sync/atomic"
	"time"

	"storefront-bff/internal/models"
)

// Notifier is the write side of the queue handed to other components.
type Notifier interface {
	Notify(message string, typ models.NotificationType)
}

var lastID atomic.Uint64

// Queue keeps notifications in insertion order until they are dismissed
// or, when ttl > 0, until their timer fires.
type Queue struct {
	mu     sync.Mutex
	items  []models.Notification
	timers map[uint64]*time.Timer
	ttl    time.Duration
	closed bool
	now    func() time.Time
}

func NewQueue(ttl time.Duration) *Queue {
	return &Queue{
		items:  []models.Notification{},
		timers: make(map[uint64]*time.Timer),
		ttl:    ttl,
		now:    time.Now,
	}
}

func (q *Queue) Add(message string, typ models.NotificationType) models.Notification {
	n := models.Notification{
		ID:        lastID.Add(1),
		Message:   message,
		Type:      typ,
		CreatedAt: q.now(),
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	q.items = append(q.items, n)
	if q.ttl > 0 && !q.closed {
		id := n.ID
		q.timers[id] = time.AfterFunc(q.ttl, func() { q.Remove(id) })
	}
	return n
}

func (q *Queue) Notify(message string, typ models.NotificationType) {
	q.Add(message, typ)
}

// Remove reports whether a notification with id was present.
func (q *Queue) Remove(id uint64) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if t, ok := q.timers[id]; ok {
		t.Stop()
		delete(q.timers, id)
	}

	for i, n := range q.items {
		if n.ID == id {
			q.items = append(q.items[:i:i], q.items[i+1:]...)
			return true
		}
	}
	return false
}

func (q *Queue) List() []models.Notification {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]models.Notification, len(q.items))
	copy(out, q.items)
	return out
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close stops pending dismissal timers. Queued items stay readable.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	for id, t := range q.timers {
		t.Stop()
		delete(q.timers, id)
	}
}
