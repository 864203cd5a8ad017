package notifications

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// Dispatcher delivers one notification to a channel.
type Dispatcher interface {
	Deliver(ctx context.Context, n Notification) error
}

type LogDispatcher struct {
	logger *zap.Logger
}

func NewLogDispatcher(logger *zap.Logger) *LogDispatcher {
	return &LogDispatcher{logger: logger.Named("notifications")}
}

func (d *LogDispatcher) Deliver(ctx context.Context, n Notification) error {
	d.logger.Info("notification",
		zap.String("id", n.ID),
		zap.String("type", n.Kind),
		zap.String("employeeId", n.EmployeeID),
		zap.String("title", n.Title),
	)
	return nil
}

// Multi fans out to every dispatcher and joins their errors.
type Multi []Dispatcher

func (m Multi) Deliver(ctx context.Context, n Notification) error {
	var errs []error
	for _, d := range m {
		if err := d.Deliver(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
