package browser

import (
	"sync"
	"time"
)

const DefaultNotificationLimit = 32

type Level int

const (
	LevelInfo Level = iota
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	}
	return "info"
}

type Notification struct {
	Level   Level
	Message string
	Time    time.Time
}

// NotificationQueue is a bounded FIFO of user facing messages. When full,
// the oldest message is dropped.
type NotificationQueue struct {
	mu    sync.Mutex
	limit int
	items []Notification
}

func NewNotificationQueue(limit int) *NotificationQueue {
	if limit <= 0 {
		limit = DefaultNotificationLimit
	}
	return &NotificationQueue{limit: limit}
}

func (q *NotificationQueue) Push(level Level, msg string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) >= q.limit {
		q.items = q.items[len(q.items)-q.limit+1:]
	}
	q.items = append(q.items, Notification{
		Level:   level,
		Message: msg,
		Time:    time.Now(),
	})
}

// Drain returns all pending notifications, oldest first, and empties the
// queue.
func (q *NotificationQueue) Drain() []Notification {
	q.mu.Lock()
	defer q.mu.Unlock()

	items := q.items
	q.items = nil
	return items
}

func (q *NotificationQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
