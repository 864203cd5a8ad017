package attendance

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"hrpay/internal/domain/payroll"
)

var ErrInvalidStatus = errors.New("attendance status must be present, absent or on_leave")

// Store keeps the per-day attendance facts produced by the check-in flow and
// the holiday calendar they are evaluated against.
type Store struct {
	mu       sync.RWMutex
	records  map[string]payroll.AttendanceStatus
	calendar []payroll.Holiday
	version  string
}

func NewStore() *Store {
	return &Store{records: make(map[string]payroll.AttendanceStatus)}
}

func key(employeeID string, day time.Time) string {
	return employeeID + "|" + day.Format(payroll.DateLayout)
}

func (s *Store) Record(employeeID string, day time.Time, status payroll.AttendanceStatus) error {
	switch status {
	case payroll.AttendancePresent, payroll.AttendanceAbsent, payroll.AttendanceOnLeave:
	default:
		return ErrInvalidStatus
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[key(employeeID, day)] = status
	return nil
}

// Status returns absent for days without a record.
func (s *Store) Status(ctx context.Context, employeeID string, day time.Time) (payroll.AttendanceStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if status, ok := s.records[key(employeeID, day)]; ok {
		return status, nil
	}
	return payroll.AttendanceAbsent, nil
}

// SetCalendar replaces the holiday calendar.
func (s *Store) SetCalendar(version string, holidays []payroll.Holiday) {
	sorted := append([]payroll.Holiday(nil), holidays...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calendar = sorted
	s.version = version
}

func (s *Store) CalendarVersion() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Holidays lists calendar entries in [from, to], ordered by date.
func (s *Store) Holidays(ctx context.Context, from, to time.Time) ([]payroll.Holiday, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []payroll.Holiday
	for _, h := range s.calendar {
		if h.Date.Before(from) || h.Date.After(to) {
			continue
		}
		out = append(out, h)
	}
	return out, nil
}
