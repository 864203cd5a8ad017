package directory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"hrpay/internal/domain/payroll"
)

var ErrInvalidEmployee = errors.New("employee id and name are required")

// Store is the read side of the employee directory the payroll engine
// consumes. It is filled from seed data at startup.
type Store struct {
	mu        sync.RWMutex
	employees map[string]payroll.Employee
}

func NewStore() *Store {
	return &Store{employees: make(map[string]payroll.Employee)}
}

func (s *Store) Put(e payroll.Employee) error {
	e.ID = strings.TrimSpace(e.ID)
	if e.ID == "" || strings.TrimSpace(e.Name) == "" {
		return ErrInvalidEmployee
	}
	if e.Status == "" {
		e.Status = payroll.EmployeeStatusActive
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.employees[e.ID] = e
	return nil
}

func (s *Store) Employee(ctx context.Context, employeeID string) (payroll.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.employees[employeeID]
	if !ok {
		return payroll.Employee{}, payroll.ErrEmployeeNotFound
	}
	return e, nil
}

// Email resolves the notification address of an employee.
func (s *Store) Email(ctx context.Context, employeeID string) (string, error) {
	e, err := s.Employee(ctx, employeeID)
	if err != nil {
		return "", err
	}
	return e.Email, nil
}

func (s *Store) List(ctx context.Context) []payroll.Employee {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]payroll.Employee, 0, len(s.employees))
	for _, e := range s.employees {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
