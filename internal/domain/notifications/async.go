package notifications

import (
	"context"
)

// Enqueuer runs work in the background. Implemented by platform/jobs.Queue.
type Enqueuer interface {
	Enqueue(jobType string, run func(context.Context) error) bool
}

// Async hands deliveries to a background queue so transitions never wait
// on a slow channel.
type Async struct {
	next  Dispatcher
	queue Enqueuer
}

func NewAsync(next Dispatcher, queue Enqueuer) *Async {
	return &Async{next: next, queue: queue}
}

func (a *Async) Deliver(ctx context.Context, n Notification) error {
	if !a.queue.Enqueue("notification."+n.Kind, func(ctx context.Context) error {
		return a.next.Deliver(ctx, n)
	}) {
		return ErrQueueFull
	}
	return nil
}
