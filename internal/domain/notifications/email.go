package notifications

import (
	"context"
	"strings"
)

type Mailer interface {
	Send(ctx context.Context, from, to, subject, body string) error
}

// Recipients resolves an employee's mailbox.
type Recipients interface {
	Email(ctx context.Context, employeeID string) (string, error)
}

type EmailDispatcher struct {
	Mailer     Mailer
	Recipients Recipients
	From       string
}

func NewEmailDispatcher(mailer Mailer, recipients Recipients, from string) *EmailDispatcher {
	if from == "" {
		from = "no-reply@example.com"
	}
	return &EmailDispatcher{Mailer: mailer, Recipients: recipients, From: from}
}

// Deliver skips broadcast notifications and employees without an address.
func (d *EmailDispatcher) Deliver(ctx context.Context, n Notification) error {
	if n.EmployeeID == "" {
		return nil
	}
	to, err := d.Recipients.Email(ctx, n.EmployeeID)
	if err != nil {
		return err
	}
	if strings.TrimSpace(to) == "" {
		return nil
	}
	return d.Mailer.Send(ctx, d.From, to, n.Title, n.Body)
}
