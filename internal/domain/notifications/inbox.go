package notifications

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	ErrNotificationNotFound = errors.New("notification not found")
	ErrQueueFull            = errors.New("notification queue full")
)

// Inbox keeps per-employee notifications for the self-service listing.
type Inbox struct {
	mu    sync.RWMutex
	items []Notification
	now   func() time.Time
}

func NewInbox() *Inbox {
	return &Inbox{now: time.Now}
}

func (b *Inbox) Deliver(ctx context.Context, n Notification) error {
	if n.EmployeeID == "" {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items = append(b.items, n)
	return nil
}

// List returns an employee's notifications newest first.
func (b *Inbox) List(ctx context.Context, employeeID string, limit, offset int) ([]Notification, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []Notification
	skipped := 0
	for i := len(b.items) - 1; i >= 0; i-- {
		n := b.items[i]
		if n.EmployeeID != employeeID {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, n)
	}
	return out, nil
}

func (b *Inbox) Count(ctx context.Context, employeeID string) (int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	total := 0
	for _, n := range b.items {
		if n.EmployeeID == employeeID {
			total++
		}
	}
	return total, nil
}

func (b *Inbox) MarkRead(ctx context.Context, employeeID, notificationID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.items {
		if b.items[i].ID != notificationID || b.items[i].EmployeeID != employeeID {
			continue
		}
		if b.items[i].ReadAt == nil {
			now := b.now().UTC()
			b.items[i].ReadAt = &now
		}
		return nil
	}
	return ErrNotificationNotFound
}
