package payroll

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type ProposeRequest struct {
	EmployeeID string
	Type       AdjustmentType
	Amount     decimal.Decimal
	Reason     string
	ActorID    string
}

func (s *Service) ProposeAdjustment(ctx context.Context, req ProposeRequest) (Adjustment, error) {
	const op = "propose adjustment"
	adj, err := s.proposeAdjustment(ctx, req)
	if err != nil {
		s.refused(op, err)
		return Adjustment{}, err
	}
	s.afterAdjustment(ctx, op, "payroll.adjustment.propose", req.ActorID, nil, adj)
	return adj, nil
}

func (s *Service) proposeAdjustment(ctx context.Context, req ProposeRequest) (Adjustment, error) {
	const op = "propose adjustment"
	employeeID := strings.TrimSpace(req.EmployeeID)
	if employeeID == "" {
		return Adjustment{}, refuse(op, ErrEmployeeRequired, "")
	}
	if !req.Type.Valid() {
		return Adjustment{}, refuse(op, ErrAdjustmentType, "type %q", req.Type)
	}
	if req.Amount.IsZero() {
		return Adjustment{}, refuse(op, ErrAdjustmentAmount, "")
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return Adjustment{}, refuse(op, ErrReasonRequired, "")
	}
	if _, err := s.directory.Employee(ctx, employeeID); err != nil {
		if errors.Is(err, ErrEmployeeNotFound) {
			return Adjustment{}, refuse(op, ErrEmployeeNotFound, "employee %s", employeeID)
		}
		return Adjustment{}, wrapCollaborator(op, "lookup employee", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	adj := Adjustment{
		ID:         s.newID(),
		EmployeeID: employeeID,
		Type:       req.Type,
		Amount:     req.Amount.Round(2),
		Reason:     reason,
		Status:     AdjustmentPending,
		ProposedBy: req.ActorID,
		ProposedAt: s.now().UTC(),
	}
	s.store.putAdjustment(adj)
	return adj, nil
}

func (s *Service) ApproveAdjustment(ctx context.Context, adjustmentID, actorID string) (Adjustment, error) {
	return s.decideAdjustment(ctx, "approve adjustment", "payroll.adjustment.approve", adjustmentID, actorID, AdjustmentApproved)
}

func (s *Service) RejectAdjustment(ctx context.Context, adjustmentID, actorID string) (Adjustment, error) {
	return s.decideAdjustment(ctx, "reject adjustment", "payroll.adjustment.reject", adjustmentID, actorID, AdjustmentRejected)
}

func (s *Service) decideAdjustment(ctx context.Context, op, action, adjustmentID, actorID string, to AdjustmentStatus) (Adjustment, error) {
	s.mu.Lock()
	current, ok := s.store.adjustment(adjustmentID)
	if !ok {
		s.mu.Unlock()
		err := missing(op, ErrAdjustmentNotFound, adjustmentID)
		s.refused(op, err)
		return Adjustment{}, err
	}
	if current.Status != AdjustmentPending {
		s.mu.Unlock()
		err := violate(op, ErrAdjustmentState, "requires status pending, got %s", current.Status)
		s.refused(op, err)
		return Adjustment{}, err
	}
	next := current
	next.Status = to
	next.DecidedBy = actorID
	next.DecidedAt = s.stamp()
	s.store.putAdjustment(next)
	s.mu.Unlock()

	s.afterAdjustment(ctx, op, action, actorID, &current, next)
	return next, nil
}

// ApplyAdjustment realizes an approved adjustment as a correction payslip
// labelled targetRunLabel. Locked runs and their payslips are never touched.
func (s *Service) ApplyAdjustment(ctx context.Context, adjustmentID, targetRunLabel, actorID string) (Adjustment, Payslip, error) {
	const op = "apply adjustment"
	s.mu.Lock()
	before, adj, correction, err := s.applyLocked(ctx, adjustmentID, targetRunLabel, actorID)
	s.mu.Unlock()
	if err != nil {
		s.refused(op, err)
		return Adjustment{}, Payslip{}, err
	}

	s.afterAdjustment(ctx, op, "payroll.adjustment.apply", actorID, &before, adj)
	s.afterIssue(ctx, actorID, correction)
	return adj, correction, nil
}

func (s *Service) applyLocked(ctx context.Context, adjustmentID, targetRunLabel, actorID string) (Adjustment, Adjustment, Payslip, error) {
	const op = "apply adjustment"
	current, ok := s.store.adjustment(adjustmentID)
	if !ok {
		return Adjustment{}, Adjustment{}, Payslip{}, missing(op, ErrAdjustmentNotFound, adjustmentID)
	}
	if current.Status != AdjustmentApproved {
		return Adjustment{}, Adjustment{}, Payslip{}, violate(op, ErrAdjustmentState, "requires status approved, got %s", current.Status)
	}

	today := s.today()
	label := strings.TrimSpace(targetRunLabel)
	if label == "" {
		label = AdjustmentLabelPrefix + today.Format(DateLayout)
	}
	if run, exists := s.store.run(label); exists && run.Locked {
		return Adjustment{}, Adjustment{}, Payslip{}, immutable(op, ErrTargetRunLocked, "run %s is locked; use a label such as %s%s", label, AdjustmentLabelPrefix, today.Format(DateLayout))
	}

	employee, err := s.directory.Employee(ctx, current.EmployeeID)
	if err != nil {
		return Adjustment{}, Adjustment{}, Payslip{}, wrapCollaborator(op, "lookup employee", err)
	}

	correction := Payslip{
		ID:                s.newID(),
		Kind:              PayslipCorrection,
		EmployeeID:        employee.ID,
		EmployeeName:      employee.Name,
		PeriodStart:       today,
		PeriodEnd:         today,
		IssueDate:         today,
		Frequency:         employee.PayFrequency,
		GovMultiplier:     decimal.Zero,
		Gross:             decimal.Zero,
		Allowances:        decimal.Zero,
		OtherDeductions:   decimal.Zero,
		LoanDeduction:     decimal.Zero,
		HolidayAdjustment: decimal.Zero,
		Net:               current.Amount,
		Status:            PayslipIssued,
		IssuedAt:          s.now().UTC(),
		IssuedBy:          actorID,
		Notes:             string(current.Type) + ": " + current.Reason,
		AdjustmentRef:     current.ID,
		RunLabel:          label,
	}
	if current.Amount.IsPositive() {
		correction.Allowances = current.Amount
	} else {
		correction.OtherDeductions = current.Amount.Neg()
	}
	if correction.Frequency == "" {
		correction.Frequency = s.rules.DefaultFrequency
	}
	s.store.putPayslip(correction)

	next := current
	next.Status = AdjustmentApplied
	next.AppliedAt = s.stamp()
	next.RunLabel = label
	next.CorrectionPayslipID = correction.ID
	s.store.putAdjustment(next)
	return current, next, correction.clone(), nil
}

func (s *Service) afterAdjustment(ctx context.Context, op, action, actorID string, before *Adjustment, after Adjustment) {
	s.counter.Count(action)
	s.logger.Info("payroll adjustment transition",
		zap.String("op", op),
		zap.String("adjustmentId", after.ID),
		zap.String("employeeId", after.EmployeeID),
		zap.String("status", string(after.Status)),
	)
	if before != nil {
		s.record(ctx, actorID, action, EntityAdjustment, after.ID, *before, after)
		return
	}
	s.record(ctx, actorID, action, EntityAdjustment, after.ID, nil, after)
}

func (s *Service) GetAdjustment(ctx context.Context, adjustmentID string) (Adjustment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	adj, ok := s.store.adjustment(adjustmentID)
	if !ok {
		return Adjustment{}, missing("get adjustment", ErrAdjustmentNotFound, adjustmentID)
	}
	return adj, nil
}

func (s *Service) ListAdjustments(ctx context.Context, filter AdjustmentFilter) []Adjustment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.listAdjustments(filter)
}
