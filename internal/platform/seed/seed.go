package seed

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"hrpay/internal/domain/attendance"
	"hrpay/internal/domain/directory"
	"hrpay/internal/domain/loans"
	"hrpay/internal/domain/payroll"
)

type employeeRow struct {
	ID            string `yaml:"id"`
	Name          string `yaml:"name"`
	Email         string `yaml:"email"`
	MonthlySalary string `yaml:"monthlySalary"`
	PayFrequency  string `yaml:"payFrequency"`
	Status        string `yaml:"status"`
	BankAccount   string `yaml:"bankAccount"`
	JoinedOn      string `yaml:"joinedOn"`
	ResignedOn    string `yaml:"resignedOn"`
}

type loanRow struct {
	ID          string `yaml:"id"`
	EmployeeID  string `yaml:"employeeId"`
	Installment string `yaml:"installment"`
	Remaining   string `yaml:"remaining"`
}

type attendanceRow struct {
	EmployeeID string `yaml:"employeeId"`
	Date       string `yaml:"date"`
	Status     string `yaml:"status"`
}

type file struct {
	Version    int             `yaml:"version"`
	Employees  []employeeRow   `yaml:"employees"`
	Loans      []loanRow       `yaml:"loans"`
	Attendance []attendanceRow `yaml:"attendance"`
}

// Targets are the in-memory collaborators a seed file fills.
type Targets struct {
	Directory  *directory.Store
	Attendance *attendance.Store
	Loans      *loans.Book
}

type Summary struct {
	Employees  int
	Loans      int
	Attendance int
}

// LoadFile applies the seed at path. An empty path seeds nothing.
func LoadFile(path string, t Targets) (Summary, error) {
	if path == "" {
		return Summary{}, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Summary{}, err
	}
	sum, err := Apply(raw, t)
	if err != nil {
		return Summary{}, fmt.Errorf("seed %s: %w", path, err)
	}
	return sum, nil
}

func Apply(raw []byte, t Targets) (Summary, error) {
	var f file
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return Summary{}, err
	}
	if f.Version != 1 {
		return Summary{}, errors.New("seed: unsupported version")
	}

	var sum Summary
	for i, row := range f.Employees {
		e, err := row.employee()
		if err != nil {
			return sum, fmt.Errorf("employees[%d]: %w", i, err)
		}
		if err := t.Directory.Put(e); err != nil {
			return sum, fmt.Errorf("employees[%d]: %w", i, err)
		}
		sum.Employees++
	}
	for i, row := range f.Loans {
		installment, err := decimal.NewFromString(row.Installment)
		if err != nil {
			return sum, fmt.Errorf("loans[%d].installment: %w", i, err)
		}
		remaining, err := decimal.NewFromString(row.Remaining)
		if err != nil {
			return sum, fmt.Errorf("loans[%d].remaining: %w", i, err)
		}
		loan := payroll.Loan{ID: row.ID, EmployeeID: row.EmployeeID, Installment: installment, Remaining: remaining}
		if err := t.Loans.Add(loan); err != nil {
			return sum, fmt.Errorf("loans[%d]: %w", i, err)
		}
		sum.Loans++
	}
	for i, row := range f.Attendance {
		day, err := time.Parse(payroll.DateLayout, row.Date)
		if err != nil {
			return sum, fmt.Errorf("attendance[%d].date: %w", i, err)
		}
		if err := t.Attendance.Record(row.EmployeeID, day, payroll.AttendanceStatus(row.Status)); err != nil {
			return sum, fmt.Errorf("attendance[%d]: %w", i, err)
		}
		sum.Attendance++
	}
	return sum, nil
}

func (row employeeRow) employee() (payroll.Employee, error) {
	salary, err := decimal.NewFromString(row.MonthlySalary)
	if err != nil {
		return payroll.Employee{}, fmt.Errorf("monthlySalary: %w", err)
	}
	e := payroll.Employee{
		ID:            row.ID,
		Name:          row.Name,
		Email:         row.Email,
		MonthlySalary: salary,
		PayFrequency:  payroll.Frequency(row.PayFrequency),
		Status:        row.Status,
		BankAccount:   row.BankAccount,
	}
	if e.PayFrequency != "" && !e.PayFrequency.Valid() {
		return payroll.Employee{}, fmt.Errorf("payFrequency %q is not supported", row.PayFrequency)
	}
	if row.JoinedOn != "" {
		if e.JoinedOn, err = time.Parse(payroll.DateLayout, row.JoinedOn); err != nil {
			return payroll.Employee{}, fmt.Errorf("joinedOn: %w", err)
		}
	}
	if row.ResignedOn != "" {
		resigned, err := time.Parse(payroll.DateLayout, row.ResignedOn)
		if err != nil {
			return payroll.Employee{}, fmt.Errorf("resignedOn: %w", err)
		}
		e.ResignedOn = &resigned
	}
	return e, nil
}
