package payroll

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type IssueRequest struct {
	EmployeeID      string
	PeriodStart     time.Time
	PeriodEnd       time.Time
	Frequency       Frequency
	Allowances      decimal.Decimal
	OtherDeductions decimal.Decimal
	Notes           string
	IssueDate       time.Time
	ActorID         string
}

type BatchEntry struct {
	EmployeeID      string
	Allowances      decimal.Decimal
	OtherDeductions decimal.Decimal
	Notes           string
}

type BatchRequest struct {
	Entries     []BatchEntry
	PeriodStart time.Time
	PeriodEnd   time.Time
	Frequency   Frequency
	IssueDate   time.Time
	ActorID     string
}

type BatchSkip struct {
	EmployeeID string `json:"employeeId"`
	Reason     string `json:"reason"`
	Kind       Kind   `json:"kind"`
	Err        error  `json:"-"`
}

type BatchResult struct {
	Issued  []Payslip   `json:"issued"`
	Skipped []BatchSkip `json:"skipped"`
}

type PaymentRequest struct {
	Method    string
	Reference string
}

// Issue computes and stores one payslip.
func (s *Service) Issue(ctx context.Context, req IssueRequest) (Payslip, error) {
	s.mu.Lock()
	p, err := s.issueLocked(ctx, req)
	s.mu.Unlock()
	if err != nil {
		s.refused("issue payslip", err)
		return Payslip{}, err
	}
	s.afterIssue(ctx, req.ActorID, p)
	return p, nil
}

// IssueBatch issues to every entry independently. A refused entry is reported
// in Skipped and never affects the others.
func (s *Service) IssueBatch(ctx context.Context, req BatchRequest) BatchResult {
	result := BatchResult{Issued: make([]Payslip, 0, len(req.Entries)), Skipped: make([]BatchSkip, 0)}
	for _, entry := range req.Entries {
		single := IssueRequest{
			EmployeeID:      entry.EmployeeID,
			PeriodStart:     req.PeriodStart,
			PeriodEnd:       req.PeriodEnd,
			Frequency:       req.Frequency,
			Allowances:      entry.Allowances,
			OtherDeductions: entry.OtherDeductions,
			Notes:           entry.Notes,
			IssueDate:       req.IssueDate,
			ActorID:         req.ActorID,
		}
		p, err := s.Issue(ctx, single)
		if err != nil {
			s.counter.Count("payslip_skipped")
			result.Skipped = append(result.Skipped, BatchSkip{
				EmployeeID: entry.EmployeeID,
				Reason:     skipReason(err),
				Kind:       KindOf(err),
				Err:        err,
			})
			continue
		}
		result.Issued = append(result.Issued, p)
	}
	s.logger.Info("batch issuance finished",
		zap.Int("issued", len(result.Issued)),
		zap.Int("skipped", len(result.Skipped)),
	)
	return result
}

func skipReason(err error) string {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Err.Error()
	}
	return err.Error()
}

func (s *Service) issueLocked(ctx context.Context, req IssueRequest) (Payslip, error) {
	const op = "issue payslip"

	req.EmployeeID = strings.TrimSpace(req.EmployeeID)
	if req.EmployeeID == "" {
		return Payslip{}, refuse(op, ErrEmployeeRequired, "")
	}
	if req.PeriodStart.IsZero() || req.PeriodEnd.IsZero() || req.PeriodEnd.Before(req.PeriodStart) {
		return Payslip{}, refuse(op, ErrInvalidPeriod, "period %s to %s", req.PeriodStart.Format(DateLayout), req.PeriodEnd.Format(DateLayout))
	}
	if req.Allowances.IsNegative() {
		return Payslip{}, refuse(op, ErrNegativeAmount, "allowances %s", req.Allowances)
	}
	if req.OtherDeductions.IsNegative() {
		return Payslip{}, refuse(op, ErrNegativeAmount, "other deductions %s", req.OtherDeductions)
	}
	if req.Frequency != "" && !req.Frequency.Valid() {
		return Payslip{}, refuse(op, ErrInvalidFrequency, "frequency %q", req.Frequency)
	}

	issueDate := s.today()
	if !req.IssueDate.IsZero() {
		issueDate = dateOnly(req.IssueDate)
	}
	run, hasRun := s.store.run(runID(issueDate))
	if hasRun && run.Locked {
		return Payslip{}, immutable(op, ErrDateLocked, "run %s locked at %s; route corrections through an adjustment", run.ID, run.LockedAt.Format(time.RFC3339))
	}

	employee, err := s.directory.Employee(ctx, req.EmployeeID)
	if errors.Is(err, ErrEmployeeNotFound) {
		return Payslip{}, refuse(op, ErrEmployeeNotFound, "employee %s", req.EmployeeID)
	}
	if err != nil {
		return Payslip{}, wrapCollaborator(op, "lookup employee", err)
	}
	if employee.Status != "" && employee.Status != EmployeeStatusActive {
		return Payslip{}, refuse(op, ErrEmployeeInactive, "employee %s has status %s", employee.ID, employee.Status)
	}

	freq := req.Frequency
	if freq == "" {
		freq = employee.PayFrequency
	}
	if freq == "" {
		freq = s.rules.DefaultFrequency
	}
	gross, err := GrossPay(employee.MonthlySalary, freq)
	if err != nil {
		return Payslip{}, refuse(op, err, "frequency %q", freq)
	}

	var cutoff Cutoff
	if freq == FrequencySemiMonthly {
		cutoff = CutoffFor(req.PeriodStart)
	}
	multiplier := GovMultiplier(freq, cutoff, s.rules.SemiMonthlyPolicy)
	gov := s.rules.Deductions.Compute(employee.MonthlySalary, multiplier)

	holidayAdj, holidayLines, err := s.holidayAdjustment(ctx, employee, req.PeriodStart, req.PeriodEnd)
	if err != nil {
		return Payslip{}, wrapCollaborator(op, "resolve holidays", err)
	}

	loans, err := s.loans.ActiveLoans(ctx, employee.ID)
	if err != nil {
		return Payslip{}, wrapCollaborator(op, "list loans", err)
	}
	withholdings, loanTotal := AllocateLoans(loans)

	allowances := req.Allowances.Round(2)
	other := req.OtherDeductions.Round(2)
	net := NetPay(gross, allowances, holidayAdj, gov, other, loanTotal)
	if !net.IsPositive() {
		return Payslip{}, refuse(op, ErrNetNotPositive, "employee %s net %s", employee.ID, net.StringFixed(2))
	}

	id := s.newID()
	if len(withholdings) > 0 {
		if err := s.loans.RecordDeductions(ctx, id, withholdings); err != nil {
			return Payslip{}, wrapCollaborator(op, "record loan deductions", err)
		}
	}

	p := Payslip{
		ID:                id,
		Kind:              PayslipRegular,
		EmployeeID:        employee.ID,
		EmployeeName:      employee.Name,
		PeriodStart:       dateOnly(req.PeriodStart),
		PeriodEnd:         dateOnly(req.PeriodEnd),
		IssueDate:         issueDate,
		Frequency:         freq,
		Cutoff:            cutoff,
		GovMultiplier:     multiplier,
		Gross:             gross,
		Allowances:        allowances,
		GovDeductions:     gov,
		OtherDeductions:   other,
		LoanDeduction:     loanTotal,
		LoanWithholdings:  withholdings,
		HolidayAdjustment: holidayAdj,
		HolidayLines:      holidayLines,
		Net:               net,
		Status:            PayslipIssued,
		IssuedAt:          s.now().UTC(),
		IssuedBy:          req.ActorID,
		Notes:             strings.TrimSpace(req.Notes),
	}
	s.store.putPayslip(p)

	if hasRun {
		run.PayslipIDs = append(run.PayslipIDs, p.ID)
		// A validated run never checked this payslip, so it goes back to draft.
		if run.Status == RunValidated {
			run.Status = RunDraft
			run.ValidatedAt = nil
			s.logger.Info("run reopened to draft", zap.String("runDate", run.ID), zap.String("payslipId", p.ID))
		}
		s.refreshTotals(&run)
		s.store.putRun(run)
	}
	return p.clone(), nil
}

func (s *Service) holidayAdjustment(ctx context.Context, employee Employee, start, end time.Time) (decimal.Decimal, []HolidayLine, error) {
	holidays, err := s.attendance.Holidays(ctx, start, end)
	if err != nil {
		return decimal.Zero, nil, err
	}
	if len(holidays) == 0 {
		return decimal.Zero, nil, nil
	}
	attendance := make(map[string]AttendanceStatus, len(holidays))
	for _, h := range holidays {
		status, err := s.attendance.Status(ctx, employee.ID, h.Date)
		if err != nil {
			return decimal.Zero, nil, err
		}
		attendance[dateOnly(h.Date).Format(DateLayout)] = status
	}
	total, lines := s.rules.ResolveHolidays(employee.MonthlySalary, start, end, holidays, attendance)
	return total, lines, nil
}

func (s *Service) afterIssue(ctx context.Context, actorID string, p Payslip) {
	s.counter.Count("payslip_issued")
	s.logger.Info("payslip issued",
		zap.String("payslipId", p.ID),
		zap.String("employeeId", p.EmployeeID),
		zap.String("issueDate", p.IssueDate.Format(DateLayout)),
		zap.String("net", p.Net.StringFixed(2)),
	)
	s.record(ctx, actorID, "payroll.payslip.issue", EntityPayslip, p.ID, nil, p)
}

func (s *Service) Confirm(ctx context.Context, payslipID, actorID string) (Payslip, error) {
	return s.transitionPayslip(ctx, "confirm payslip", "payroll.payslip.confirm", payslipID, actorID, func(p *Payslip) error {
		if err := requirePayslip("confirm payslip", p, PayslipIssued); err != nil {
			return err
		}
		if run, ok := s.containingRun(*p); ok && run.Locked {
			return immutable("confirm payslip", ErrPayslipRunLocked, "run %s is locked", run.ID)
		}
		p.Status = PayslipConfirmed
		p.ConfirmedAt = s.stamp()
		return nil
	}, "")
}

func (s *Service) Publish(ctx context.Context, payslipID, actorID string) (Payslip, error) {
	return s.transitionPayslip(ctx, "publish payslip", "payroll.payslip.publish", payslipID, actorID, func(p *Payslip) error {
		if err := requirePayslip("publish payslip", p, PayslipConfirmed); err != nil {
			return err
		}
		p.Status = PayslipPublished
		p.PublishedAt = s.stamp()
		return nil
	}, EventPayslipPublished)
}

func (s *Service) RecordPayment(ctx context.Context, payslipID string, payment PaymentRequest, actorID string) (Payslip, error) {
	return s.transitionPayslip(ctx, "record payment", "payroll.payslip.pay", payslipID, actorID, func(p *Payslip) error {
		if err := requirePayslip("record payment", p, PayslipPublished); err != nil {
			return err
		}
		method := strings.TrimSpace(payment.Method)
		if method == "" {
			return refuse("record payment", ErrPaymentMethodRequired, "")
		}
		p.Status = PayslipPaid
		p.PaidAt = s.stamp()
		p.PaymentMethod = method
		p.PaymentReference = strings.TrimSpace(payment.Reference)
		return nil
	}, EventPayslipPaid)
}

// Sign attaches a signature artifact. The lifecycle status is unchanged.
func (s *Service) Sign(ctx context.Context, payslipID string, artifact []byte, actorID string) (Payslip, error) {
	return s.transitionPayslip(ctx, "sign payslip", "payroll.payslip.sign", payslipID, actorID, func(p *Payslip) error {
		if !p.Status.AtLeast(PayslipPublished) {
			return violate("sign payslip", ErrPayslipState, "requires status published or later, got %s", p.Status)
		}
		if p.Signature != nil {
			return violate("sign payslip", ErrAlreadySigned, "signed at %s", p.Signature.SignedAt.Format(time.RFC3339))
		}
		if len(artifact) == 0 {
			return refuse("sign payslip", ErrSignatureRequired, "")
		}
		sealed, err := s.sealer.Seal(artifact)
		if err != nil {
			return wrapCollaborator("sign payslip", "seal signature", err)
		}
		p.Signature = &Signature{
			Digest:   s.sealer.Digest(artifact),
			SignedAt: s.now().UTC(),
			SignedBy: actorID,
			Sealed:   sealed,
		}
		return nil
	}, EventPayslipSigned)
}

func (s *Service) Acknowledge(ctx context.Context, payslipID, employeeID string) (Payslip, error) {
	return s.transitionPayslip(ctx, "acknowledge payslip", "payroll.payslip.acknowledge", payslipID, employeeID, func(p *Payslip) error {
		if p.EmployeeID != employeeID {
			return refuse("acknowledge payslip", ErrNotPayslipOwner, "employee %s", employeeID)
		}
		if err := requirePayslip("acknowledge payslip", p, PayslipPaid); err != nil {
			return err
		}
		if p.Signature == nil {
			return violate("acknowledge payslip", ErrNotSigned, "")
		}
		p.Status = PayslipAcknowledged
		p.AcknowledgedAt = s.stamp()
		return nil
	}, EventPayslipAcknowledged)
}

func requirePayslip(op string, p *Payslip, want PayslipStatus) error {
	if p.Status != want {
		return violate(op, ErrPayslipState, "requires status %s, got %s", want, p.Status)
	}
	return nil
}

// transitionPayslip applies mutate to a copy of the payslip and stores it
// only when mutate succeeds.
func (s *Service) transitionPayslip(ctx context.Context, op, action, payslipID, actorID string, mutate func(*Payslip) error, event string) (Payslip, error) {
	s.mu.Lock()
	current, ok := s.store.payslip(payslipID)
	if !ok {
		s.mu.Unlock()
		err := missing(op, ErrPayslipNotFound, payslipID)
		s.refused(op, err)
		return Payslip{}, err
	}
	before := current.clone()
	next := current.clone()
	if err := mutate(&next); err != nil {
		s.mu.Unlock()
		s.refused(op, err)
		return Payslip{}, err
	}
	s.store.putPayslip(next)
	s.mu.Unlock()

	s.counter.Count(action)
	s.logger.Info("payslip transition",
		zap.String("op", op),
		zap.String("payslipId", next.ID),
		zap.String("from", string(before.Status)),
		zap.String("to", string(next.Status)),
	)
	s.record(ctx, actorID, action, EntityPayslip, next.ID, before, next)
	if event != "" {
		s.notifier.Dispatch(ctx, event, payslipEvent(next), next.EmployeeID)
	}
	return next, nil
}

func payslipEvent(p Payslip) map[string]any {
	return map[string]any{
		"payslipId":   p.ID,
		"employeeId":  p.EmployeeID,
		"status":      p.Status,
		"periodStart": p.PeriodStart.Format(DateLayout),
		"periodEnd":   p.PeriodEnd.Format(DateLayout),
		"net":         p.Net.StringFixed(2),
	}
}

func (s *Service) containingRun(p Payslip) (Run, bool) {
	if p.Kind != PayslipRegular {
		return Run{}, false
	}
	run, ok := s.store.run(runID(p.IssueDate))
	if !ok {
		return Run{}, false
	}
	for _, id := range run.PayslipIDs {
		if id == p.ID {
			return run, true
		}
	}
	return Run{}, false
}

func (s *Service) GetPayslip(ctx context.Context, payslipID string) (Payslip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.store.payslip(payslipID)
	if !ok {
		return Payslip{}, missing("get payslip", ErrPayslipNotFound, payslipID)
	}
	return p.clone(), nil
}

func (s *Service) ListPayslips(ctx context.Context, filter PayslipFilter) []Payslip {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.listPayslips(filter)
}
