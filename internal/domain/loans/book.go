package loans

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"hrpay/internal/domain/payroll"
)

var (
	ErrLoanNotFound    = errors.New("loan not found")
	ErrInvalidLoan     = errors.New("loan requires id, employee, positive installment and non-negative balance")
	ErrOverWithholding = errors.New("deduction exceeds remaining balance")
)

// Entry is one realized withholding against a loan.
type Entry struct {
	LoanID     string          `json:"loanId"`
	PayslipID  string          `json:"payslipId"`
	Amount     decimal.Decimal `json:"amount"`
	RecordedAt time.Time       `json:"recordedAt"`
}

// Book is the loan ledger. Balances only move through RecordDeductions.
type Book struct {
	mu      sync.RWMutex
	loans   map[string]payroll.Loan
	entries []Entry
	applied map[string]struct{}
	now     func() time.Time
}

func NewBook() *Book {
	return &Book{
		loans:   make(map[string]payroll.Loan),
		applied: make(map[string]struct{}),
		now:     time.Now,
	}
}

func (b *Book) Add(loan payroll.Loan) error {
	if loan.ID == "" || loan.EmployeeID == "" || !loan.Installment.IsPositive() || loan.Remaining.IsNegative() {
		return ErrInvalidLoan
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.loans[loan.ID] = loan
	return nil
}

// ActiveLoans returns loans with an outstanding balance, ordered by id.
func (b *Book) ActiveLoans(ctx context.Context, employeeID string) ([]payroll.Loan, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []payroll.Loan
	for _, loan := range b.loans {
		if loan.EmployeeID == employeeID && loan.Remaining.IsPositive() {
			out = append(out, loan)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// RecordDeductions books every withholding of one payslip. All of them are
// checked against the current balances first, so either every loan moves or
// none does. Pairs already recorded for this payslip are skipped.
func (b *Book) RecordDeductions(ctx context.Context, payslipID string, withholdings []payroll.LoanWithholding) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	pending := make(map[string]decimal.Decimal, len(withholdings))
	var order []string
	for _, w := range withholdings {
		loan, ok := b.loans[w.LoanID]
		if !ok {
			return fmt.Errorf("%s: %w", w.LoanID, ErrLoanNotFound)
		}
		if _, done := b.applied[w.LoanID+"|"+payslipID]; done {
			continue
		}
		if _, seen := pending[w.LoanID]; !seen {
			order = append(order, w.LoanID)
		}
		total := pending[w.LoanID].Add(w.Amount)
		if total.GreaterThan(loan.Remaining) {
			return fmt.Errorf("%s: %w", w.LoanID, ErrOverWithholding)
		}
		pending[w.LoanID] = total
	}

	recordedAt := b.now().UTC()
	for _, loanID := range order {
		amount := pending[loanID]
		loan := b.loans[loanID]
		loan.Remaining = loan.Remaining.Sub(amount)
		b.loans[loanID] = loan
		b.applied[loanID+"|"+payslipID] = struct{}{}
		b.entries = append(b.entries, Entry{LoanID: loanID, PayslipID: payslipID, Amount: amount, RecordedAt: recordedAt})
	}
	return nil
}

func (b *Book) Loan(loanID string) (payroll.Loan, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	loan, ok := b.loans[loanID]
	if !ok {
		return payroll.Loan{}, ErrLoanNotFound
	}
	return loan, nil
}

func (b *Book) Entries(loanID string) []Entry {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []Entry
	for _, e := range b.entries {
		if e.LoanID == loanID {
			out = append(out, e)
		}
	}
	return out
}
