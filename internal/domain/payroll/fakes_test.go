package payroll

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

type fakeDirectory struct {
	employees map[string]Employee
}

func (f *fakeDirectory) Employee(_ context.Context, id string) (Employee, error) {
	e, ok := f.employees[id]
	if !ok {
		return Employee{}, ErrEmployeeNotFound
	}
	return e, nil
}

type fakeAttendance struct {
	holidays []Holiday
	status   map[string]AttendanceStatus
}

func (f *fakeAttendance) Status(_ context.Context, employeeID string, day time.Time) (AttendanceStatus, error) {
	return f.status[employeeID+"|"+day.Format(DateLayout)], nil
}

func (f *fakeAttendance) Holidays(_ context.Context, from, to time.Time) ([]Holiday, error) {
	var out []Holiday
	for _, h := range f.holidays {
		if h.Date.Before(from) || h.Date.After(to) {
			continue
		}
		out = append(out, h)
	}
	return out, nil
}

type fakeLoans struct {
	mu       sync.Mutex
	loans    map[string][]Loan
	recorded map[string]decimal.Decimal
	calls    int
	// failOn makes any batch that touches this loan fail before recording.
	failOn string
}

func (f *fakeLoans) ActiveLoans(_ context.Context, employeeID string) ([]Loan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Loan(nil), f.loans[employeeID]...), nil
}

func (f *fakeLoans) RecordDeductions(_ context.Context, payslipID string, withholdings []LoanWithholding) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	for _, w := range withholdings {
		if w.LoanID == f.failOn {
			return fmt.Errorf("loan %s: ledger unavailable", w.LoanID)
		}
	}
	for _, w := range withholdings {
		key := w.LoanID + "|" + payslipID
		if _, ok := f.recorded[key]; ok {
			continue
		}
		f.recorded[key] = w.Amount
		for employeeID, loans := range f.loans {
			for i := range loans {
				if loans[i].ID == w.LoanID {
					loans[i].Remaining = loans[i].Remaining.Sub(w.Amount)
				}
			}
			f.loans[employeeID] = loans
		}
	}
	return nil
}

type sentEvent struct {
	kind       string
	employeeID string
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []sentEvent
}

func (f *fakeNotifier) Dispatch(_ context.Context, kind string, _ any, employeeID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, sentEvent{kind: kind, employeeID: employeeID})
}

func (f *fakeNotifier) kinds() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.kind)
	}
	return out
}

type fakeAuditor struct {
	mu      sync.Mutex
	actions []string
}

func (f *fakeAuditor) Record(_ context.Context, _, action, _, _ string, _, _ any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actions = append(f.actions, action)
	return nil
}

type fixture struct {
	svc        *Service
	directory  *fakeDirectory
	attendance *fakeAttendance
	loans      *fakeLoans
	notifier   *fakeNotifier
	auditor    *fakeAuditor
	now        time.Time
}

func newFixture(rules Rules, employees ...Employee) *fixture {
	f := &fixture{
		directory:  &fakeDirectory{employees: make(map[string]Employee)},
		attendance: &fakeAttendance{status: make(map[string]AttendanceStatus)},
		loans:      &fakeLoans{loans: make(map[string][]Loan), recorded: make(map[string]decimal.Decimal)},
		notifier:   &fakeNotifier{},
		auditor:    &fakeAuditor{},
		now:        time.Date(2024, 6, 30, 9, 0, 0, 0, time.UTC),
	}
	for _, e := range employees {
		f.directory.employees[e.ID] = e
	}
	var seq int
	var seqMu sync.Mutex
	f.svc = NewService(NewStore(), rules, f.directory, f.attendance, f.loans, Options{
		Notifier: f.notifier,
		Auditor:  f.auditor,
		Clock:    func() time.Time { return f.now },
		IDs: func() string {
			seqMu.Lock()
			defer seqMu.Unlock()
			seq++
			return fmt.Sprintf("id-%d", seq)
		},
	})
	return f
}

func employee(id string, salary string, freq Frequency) Employee {
	return Employee{
		ID:            id,
		Name:          "Employee " + id,
		MonthlySalary: decimal.RequireFromString(salary),
		PayFrequency:  freq,
		Status:        EmployeeStatusActive,
		BankAccount:   "0000-" + id,
	}
}

func day(value string) time.Time {
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		panic(err)
	}
	return t
}

func dec(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}
