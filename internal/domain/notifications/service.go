package notifications

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service turns payroll events into notifications. It satisfies
// payroll.Notifier: delivery errors are logged, never returned.
type Service struct {
	dispatcher Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

func New(dispatcher Dispatcher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{dispatcher: dispatcher, logger: logger, now: time.Now}
}

func (s *Service) Dispatch(ctx context.Context, kind string, payload any, employeeID string) {
	n, err := s.build(kind, payload, employeeID)
	if err != nil {
		s.logger.Warn("notification build failed", zap.String("type", kind), zap.Error(err))
		return
	}
	if err := s.dispatcher.Deliver(ctx, n); err != nil {
		s.logger.Warn("notification delivery failed",
			zap.String("id", n.ID),
			zap.String("type", kind),
			zap.String("employeeId", employeeID),
			zap.Error(err),
		)
	}
}

func (s *Service) build(kind string, payload any, employeeID string) (Notification, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Notification{}, err
	}
	fields := map[string]any{}
	// Non-object payloads still render the title.
	_ = json.Unmarshal(raw, &fields)
	title, body := render(kind, fields)
	return Notification{
		ID:         uuid.NewString(),
		Kind:       kind,
		EmployeeID: employeeID,
		Title:      title,
		Body:       body,
		Payload:    raw,
		CreatedAt:  s.now().UTC(),
	}, nil
}
