package scheduler

import (
	"sync"
	"time"
)

// maxPendingPerUser bounds each inbox; the oldest entries are dropped.
const maxPendingPerUser = 50

// Notification is a fired reminder waiting to be shown.
type Notification struct {
	ID      string    `json:"id"`
	Message string    `json:"message"`
	Task    string    `json:"task"`
	Label   string    `json:"label"`
	FiredAt time.Time `json:"fired_at"`
}

// Inbox holds undelivered notifications per user.
type Inbox struct {
	mu      sync.Mutex
	pending map[string][]Notification
}

// NewInbox creates an empty inbox.
func NewInbox() *Inbox {
	return &Inbox{pending: make(map[string][]Notification)}
}

// Push queues n for user.
func (b *Inbox) Push(user string, n Notification) {
	b.mu.Lock()
	defer b.mu.Unlock()

	q := append(b.pending[user], n)
	if len(q) > maxPendingPerUser {
		q = q[len(q)-maxPendingPerUser:]
	}
	b.pending[user] = q
}

// Drain returns and clears user's notifications, oldest first.
func (b *Inbox) Drain(user string) []Notification {
	b.mu.Lock()
	defer b.mu.Unlock()

	q := b.pending[user]
	delete(b.pending, user)
	return q
}
