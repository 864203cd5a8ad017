package payroll

import (
	"context"
	"time"
)

// Directory resolves employees. Implementations return ErrEmployeeNotFound
// for unknown ids.
type Directory interface {
	Employee(ctx context.Context, employeeID string) (Employee, error)
}

// Attendance supplies per-day attendance facts and the holiday calendar.
type Attendance interface {
	Status(ctx context.Context, employeeID string, day time.Time) (AttendanceStatus, error)
	Holidays(ctx context.Context, from, to time.Time) ([]Holiday, error)
}

// LoanBook lists active loans and records realized withholdings.
// RecordDeductions applies every withholding of one payslip or none of them,
// and recording the same (loanID, payslipID) pair twice has no further effect.
type LoanBook interface {
	ActiveLoans(ctx context.Context, employeeID string) ([]Loan, error)
	RecordDeductions(ctx context.Context, payslipID string, withholdings []LoanWithholding) error
}

// Notifier is fire-and-forget; delivery failures stay inside the notifier.
type Notifier interface {
	Dispatch(ctx context.Context, kind string, payload any, employeeID string)
}

type Auditor interface {
	Record(ctx context.Context, actorID, action, entityType, entityID string, before, after any) error
}

// Sealer protects signature artifacts at rest and fingerprints records.
type Sealer interface {
	Seal(plain []byte) ([]byte, error)
	Digest(data []byte) string
}

// Counter receives one tick per payroll event.
type Counter interface {
	Count(event string)
}

type noopNotifier struct{}

func (noopNotifier) Dispatch(context.Context, string, any, string) {}

type noopAuditor struct{}

func (noopAuditor) Record(context.Context, string, string, string, string, any, any) error {
	return nil
}

type noopCounter struct{}

func (noopCounter) Count(string) {}
