package payroll

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CreateDraft opens the run for date. With no payslip ids, every regular
// payslip issued on date is included.
func (s *Service) CreateDraft(ctx context.Context, date time.Time, payslipIDs []string, actorID string) (Run, error) {
	const op = "create draft run"
	s.mu.Lock()
	run, err := s.createDraftLocked(date, payslipIDs, actorID)
	s.mu.Unlock()
	if err != nil {
		s.refused(op, err)
		return Run{}, err
	}
	s.afterRun(ctx, op, "payroll.run.create", actorID, nil, run)
	return run, nil
}

func (s *Service) createDraftLocked(date time.Time, payslipIDs []string, actorID string) (Run, error) {
	const op = "create draft run"
	if date.IsZero() {
		return Run{}, refuse(op, ErrInvalidPeriod, "run date is required")
	}
	day := dateOnly(date)
	id := runID(day)
	if existing, ok := s.store.run(id); ok {
		return Run{}, violate(op, ErrRunExists, "run %s has status %s", id, existing.Status)
	}

	var ids []string
	if len(payslipIDs) == 0 {
		for _, p := range s.store.listPayslips(PayslipFilter{IssueDate: &day, Kind: PayslipRegular}) {
			ids = append(ids, p.ID)
		}
	} else {
		seen := make(map[string]bool, len(payslipIDs))
		for _, raw := range payslipIDs {
			pid := strings.TrimSpace(raw)
			if pid == "" || seen[pid] {
				continue
			}
			seen[pid] = true
			p, ok := s.store.payslip(pid)
			if !ok {
				return Run{}, refuse(op, ErrPayslipNotFound, "payslip %s", pid)
			}
			if p.Kind != PayslipRegular || !p.IssueDate.Equal(day) {
				return Run{}, refuse(op, ErrRunPayslipMismatch, "payslip %s issued %s", pid, p.IssueDate.Format(DateLayout))
			}
			ids = append(ids, pid)
		}
	}

	run := Run{
		ID:         id,
		Date:       day,
		PayslipIDs: ids,
		Status:     RunDraft,
		CreatedBy:  actorID,
		CreatedAt:  s.now().UTC(),
	}
	s.refreshTotals(&run)
	s.store.putRun(run)
	return run.clone(), nil
}

// Validate checks every contained payslip and moves the run to validated.
func (s *Service) Validate(ctx context.Context, date time.Time, actorID string) (Run, error) {
	const op = "validate run"
	return s.transitionRun(ctx, op, "payroll.run.validate", date, actorID, func(run *Run) error {
		if run.Status != RunDraft {
			return violate(op, ErrRunState, "requires status draft, got %s", run.Status)
		}
		if err := s.checkConsistency(op, *run); err != nil {
			return err
		}
		run.Status = RunValidated
		run.ValidatedAt = s.stamp()
		return nil
	})
}

func (s *Service) checkConsistency(op string, run Run) error {
	if len(run.PayslipIDs) == 0 {
		return refuse(op, ErrRunEmpty, "run %s", run.ID)
	}
	var problems []string
	for _, id := range run.PayslipIDs {
		p, ok := s.store.payslip(id)
		switch {
		case !ok:
			problems = append(problems, id+": missing")
		case !p.Net.IsPositive():
			problems = append(problems, id+": net "+p.Net.StringFixed(2))
		case !p.Status.AtLeast(PayslipIssued):
			problems = append(problems, id+": status "+string(p.Status))
		}
	}
	if len(problems) > 0 {
		return refuse(op, ErrRunInconsistent, "%s", strings.Join(problems, "; "))
	}
	return nil
}

// Lock freezes the run and captures its PolicySnapshot. Only the first
// Lock on a date succeeds.
func (s *Service) Lock(ctx context.Context, date time.Time, actorID string) (Run, error) {
	const op = "lock run"
	run, err := s.transitionRun(ctx, op, "payroll.run.lock", date, actorID, func(run *Run) error {
		if run.Locked {
			return violate(op, ErrRunAlreadyLocked, "locked by %s at %s", run.LockedBy, run.LockedAt.Format(time.RFC3339))
		}
		if run.Status != RunDraft && run.Status != RunValidated {
			return violate(op, ErrRunState, "requires status draft or validated, got %s", run.Status)
		}
		if len(run.PayslipIDs) == 0 {
			return refuse(op, ErrRunEmpty, "run %s", run.ID)
		}
		lockedAt := s.now().UTC()
		snapshot := s.rules.snapshot()
		snapshot.LockedBy = actorID
		snapshot.LockedAt = lockedAt
		canonical, err := json.Marshal(snapshot)
		if err != nil {
			return wrapCollaborator(op, "encode policy snapshot", err)
		}
		snapshot.Digest = s.sealer.Digest(canonical)

		run.Status = RunLocked
		run.Locked = true
		run.LockedAt = &lockedAt
		run.LockedBy = actorID
		run.Snapshot = &snapshot
		return nil
	})
	if err == nil {
		s.notifier.Dispatch(ctx, EventRunLocked, map[string]any{
			"runId":  run.ID,
			"count":  run.Count,
			"digest": run.Snapshot.Digest,
		}, "")
	}
	return run, err
}

// PublishRun flips only the run's own status. Payslips are published one by
// one through Publish.
func (s *Service) PublishRun(ctx context.Context, date time.Time, actorID string) (Run, error) {
	const op = "publish run"
	return s.transitionRun(ctx, op, "payroll.run.publish", date, actorID, func(run *Run) error {
		if run.Status != RunLocked {
			return violate(op, ErrRunState, "requires status locked, got %s", run.Status)
		}
		run.Status = RunPublished
		run.PublishedAt = s.stamp()
		return nil
	})
}

func (s *Service) MarkRunPaid(ctx context.Context, date time.Time, actorID string) (Run, error) {
	const op = "mark run paid"
	return s.transitionRun(ctx, op, "payroll.run.pay", date, actorID, func(run *Run) error {
		if run.Status != RunPublished {
			return violate(op, ErrRunState, "requires status published, got %s", run.Status)
		}
		run.Status = RunPaid
		run.PaidAt = s.stamp()
		return nil
	})
}

func (s *Service) transitionRun(ctx context.Context, op, action string, date time.Time, actorID string, mutate func(*Run) error) (Run, error) {
	id := runID(date)
	s.mu.Lock()
	current, ok := s.store.run(id)
	if !ok {
		s.mu.Unlock()
		err := missing(op, ErrRunNotFound, id)
		s.refused(op, err)
		return Run{}, err
	}
	before := current.clone()
	next := current.clone()
	if err := mutate(&next); err != nil {
		s.mu.Unlock()
		s.refused(op, err)
		return Run{}, err
	}
	s.store.putRun(next)
	s.mu.Unlock()

	s.afterRun(ctx, op, action, actorID, &before, next)
	return next, nil
}

func (s *Service) afterRun(ctx context.Context, op, action, actorID string, before *Run, after Run) {
	s.counter.Count(action)
	fields := []zap.Field{
		zap.String("op", op),
		zap.String("runDate", after.ID),
		zap.String("status", string(after.Status)),
		zap.Int("count", after.Count),
	}
	if before != nil {
		fields = append(fields, zap.String("from", string(before.Status)))
		s.record(ctx, actorID, action, EntityRun, after.ID, *before, after)
	} else {
		s.record(ctx, actorID, action, EntityRun, after.ID, nil, after)
	}
	s.logger.Info("payroll run transition", fields...)
}

func (s *Service) refreshTotals(run *Run) {
	gross, net := decimal.Zero, decimal.Zero
	for _, id := range run.PayslipIDs {
		p, ok := s.store.payslip(id)
		if !ok {
			continue
		}
		gross = gross.Add(p.Gross)
		net = net.Add(p.Net)
	}
	run.TotalGross = gross
	run.TotalNet = net
	run.Count = len(run.PayslipIDs)
}

// ExportBankFile projects the run into one disbursement row per employee.
// It never mutates state and works at every run status.
func (s *Service) ExportBankFile(ctx context.Context, date time.Time) ([]DisbursementRow, error) {
	const op = "export bank file"
	id := runID(date)

	s.mu.Lock()
	run, ok := s.store.run(id)
	var payslips []Payslip
	if ok {
		for _, pid := range run.PayslipIDs {
			if p, found := s.store.payslip(pid); found {
				payslips = append(payslips, p.clone())
			}
		}
	}
	s.mu.Unlock()
	if !ok {
		return nil, missing(op, ErrRunNotFound, id)
	}

	byEmployee := make(map[string]*DisbursementRow)
	for _, p := range payslips {
		row, exists := byEmployee[p.EmployeeID]
		if !exists {
			row = &DisbursementRow{EmployeeID: p.EmployeeID, EmployeeName: p.EmployeeName, NetAmount: decimal.Zero}
			if employee, err := s.directory.Employee(ctx, p.EmployeeID); err == nil {
				row.EmployeeName = employee.Name
				row.BankAccount = employee.BankAccount
			} else {
				s.logger.Warn("bank file roster lookup failed", zap.String("employeeId", p.EmployeeID), zap.Error(err))
			}
			byEmployee[p.EmployeeID] = row
		}
		row.NetAmount = row.NetAmount.Add(p.Net)
	}

	rows := make([]DisbursementRow, 0, len(byEmployee))
	for _, row := range byEmployee {
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].EmployeeName == rows[j].EmployeeName {
			return rows[i].EmployeeID < rows[j].EmployeeID
		}
		return rows[i].EmployeeName < rows[j].EmployeeName
	})
	return rows, nil
}

func (s *Service) GetRun(ctx context.Context, date time.Time) (Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.store.run(runID(date))
	if !ok {
		return Run{}, missing("get run", ErrRunNotFound, runID(date))
	}
	return run.clone(), nil
}

func (s *Service) ListRuns(ctx context.Context) []Run {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.listRuns()
}
