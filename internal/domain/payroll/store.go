package payroll

import (
	"sort"
	"time"
)

// Store owns the four payroll collections. It is not safe for concurrent use;
// Service serializes every access.
type Store struct {
	payslips     map[string]Payslip
	payslipOrder []string
	runs         map[string]Run
	adjustments  map[string]Adjustment
	adjustOrder  []string
	finalPays    map[string]FinalPay
	finalOrder   []string
}

func NewStore() *Store {
	return &Store{
		payslips:    make(map[string]Payslip),
		runs:        make(map[string]Run),
		adjustments: make(map[string]Adjustment),
		finalPays:   make(map[string]FinalPay),
	}
}

func (s *Store) payslip(id string) (Payslip, bool) {
	p, ok := s.payslips[id]
	return p, ok
}

func (s *Store) putPayslip(p Payslip) {
	if _, ok := s.payslips[p.ID]; !ok {
		s.payslipOrder = append(s.payslipOrder, p.ID)
	}
	s.payslips[p.ID] = p.clone()
}

type PayslipFilter struct {
	EmployeeID string
	IssueDate  *time.Time
	Status     PayslipStatus
	Kind       PayslipKind
}

func (s *Store) listPayslips(filter PayslipFilter) []Payslip {
	out := make([]Payslip, 0)
	for _, id := range s.payslipOrder {
		p := s.payslips[id]
		if filter.EmployeeID != "" && p.EmployeeID != filter.EmployeeID {
			continue
		}
		if filter.IssueDate != nil && !p.IssueDate.Equal(dateOnly(*filter.IssueDate)) {
			continue
		}
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		if filter.Kind != "" && p.Kind != filter.Kind {
			continue
		}
		out = append(out, p.clone())
	}
	return out
}

func (s *Store) run(id string) (Run, bool) {
	r, ok := s.runs[id]
	return r, ok
}

func (s *Store) putRun(r Run) {
	s.runs[r.ID] = r.clone()
}

func (s *Store) listRuns() []Run {
	out := make([]Run, 0, len(s.runs))
	for _, r := range s.runs {
		out = append(out, r.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

func (s *Store) adjustment(id string) (Adjustment, bool) {
	a, ok := s.adjustments[id]
	return a, ok
}

func (s *Store) putAdjustment(a Adjustment) {
	if _, ok := s.adjustments[a.ID]; !ok {
		s.adjustOrder = append(s.adjustOrder, a.ID)
	}
	s.adjustments[a.ID] = a
}

type AdjustmentFilter struct {
	EmployeeID string
	Status     AdjustmentStatus
}

func (s *Store) listAdjustments(filter AdjustmentFilter) []Adjustment {
	out := make([]Adjustment, 0)
	for _, id := range s.adjustOrder {
		a := s.adjustments[id]
		if filter.EmployeeID != "" && a.EmployeeID != filter.EmployeeID {
			continue
		}
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		out = append(out, a)
	}
	return out
}

func (s *Store) finalPay(id string) (FinalPay, bool) {
	f, ok := s.finalPays[id]
	return f, ok
}

func (s *Store) finalPayFor(employeeID string, resignedAt time.Time) (FinalPay, bool) {
	for _, f := range s.finalPays {
		if f.EmployeeID == employeeID && f.ResignedAt.Equal(resignedAt) {
			return f, true
		}
	}
	return FinalPay{}, false
}

func (s *Store) putFinalPay(f FinalPay) {
	if _, ok := s.finalPays[f.ID]; !ok {
		s.finalOrder = append(s.finalOrder, f.ID)
	}
	s.finalPays[f.ID] = f
}

func (s *Store) listFinalPays(employeeID string) []FinalPay {
	out := make([]FinalPay, 0)
	for _, id := range s.finalOrder {
		f := s.finalPays[id]
		if employeeID != "" && f.EmployeeID != employeeID {
			continue
		}
		out = append(out, f)
	}
	return out
}
