package payroll

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type FinalPayRequest struct {
	EmployeeID      string
	ResignedAt      time.Time
	LeaveDays       decimal.Decimal
	OvertimeHours   decimal.Decimal
	OtherDeductions decimal.Decimal
	// LoanBalance overrides the outstanding balance read from the loan book.
	LoanBalance *decimal.Decimal
	ActorID     string
}

// ComputeFinalPay records the settlement for one resignation. Computations
// are keyed by (employee, resignation timestamp); a repeated key is refused.
func (s *Service) ComputeFinalPay(ctx context.Context, req FinalPayRequest) (FinalPay, error) {
	const op = "compute final pay"
	fp, err := s.computeFinalPay(ctx, req)
	if err != nil {
		s.refused(op, err)
		return FinalPay{}, err
	}
	s.afterFinalPay(ctx, op, "payroll.final_pay.compute", req.ActorID, nil, fp)
	return fp, nil
}

func (s *Service) computeFinalPay(ctx context.Context, req FinalPayRequest) (FinalPay, error) {
	const op = "compute final pay"
	employeeID := strings.TrimSpace(req.EmployeeID)
	if employeeID == "" {
		return FinalPay{}, refuse(op, ErrEmployeeRequired, "")
	}
	if req.ResignedAt.IsZero() {
		return FinalPay{}, refuse(op, ErrResignationRequired, "")
	}
	for name, v := range map[string]decimal.Decimal{
		"leave days":       req.LeaveDays,
		"overtime hours":   req.OvertimeHours,
		"other deductions": req.OtherDeductions,
	} {
		if v.IsNegative() {
			return FinalPay{}, refuse(op, ErrNegativeAmount, "%s %s", name, v)
		}
	}

	employee, err := s.directory.Employee(ctx, employeeID)
	if errors.Is(err, ErrEmployeeNotFound) {
		return FinalPay{}, refuse(op, ErrEmployeeNotFound, "employee %s", employeeID)
	}
	if err != nil {
		return FinalPay{}, wrapCollaborator(op, "lookup employee", err)
	}

	var loanBalance decimal.Decimal
	if req.LoanBalance != nil {
		if req.LoanBalance.IsNegative() {
			return FinalPay{}, refuse(op, ErrNegativeAmount, "loan balance %s", *req.LoanBalance)
		}
		loanBalance = *req.LoanBalance
	} else {
		loans, err := s.loans.ActiveLoans(ctx, employeeID)
		if err != nil {
			return FinalPay{}, wrapCollaborator(op, "list loans", err)
		}
		for _, loan := range loans {
			loanBalance = loanBalance.Add(loan.Remaining)
		}
	}

	freq := employee.PayFrequency
	if freq == "" {
		freq = s.rules.DefaultFrequency
	}
	resignedAt := req.ResignedAt.UTC()

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.store.finalPayFor(employeeID, resignedAt); ok {
		return FinalPay{}, violate(op, ErrFinalPayExists, "final pay %s has status %s", existing.ID, existing.Status)
	}
	fp := s.rules.ComputeFinalPay(FinalPayInput{
		MonthlySalary:   employee.MonthlySalary,
		Frequency:       freq,
		ResignedAt:      resignedAt,
		LeaveDays:       req.LeaveDays,
		OvertimeHours:   req.OvertimeHours,
		LoanBalance:     loanBalance,
		OtherDeductions: req.OtherDeductions,
	})
	fp.ID = s.newID()
	fp.EmployeeID = employeeID
	fp.ResignedAt = resignedAt
	fp.Status = FinalPayDraft
	fp.CreatedBy = req.ActorID
	fp.CreatedAt = s.now().UTC()
	s.store.putFinalPay(fp)
	return fp, nil
}

func (s *Service) LockFinalPay(ctx context.Context, finalPayID, actorID string) (FinalPay, error) {
	return s.transitionFinalPay(ctx, "lock final pay", "payroll.final_pay.lock", finalPayID, actorID, FinalPayDraft, func(fp *FinalPay) {
		fp.Status = FinalPayLocked
		fp.LockedBy = actorID
		fp.LockedAt = s.stamp()
	})
}

func (s *Service) PublishFinalPay(ctx context.Context, finalPayID, actorID string) (FinalPay, error) {
	fp, err := s.transitionFinalPay(ctx, "publish final pay", "payroll.final_pay.publish", finalPayID, actorID, FinalPayLocked, func(fp *FinalPay) {
		fp.Status = FinalPayPublished
		fp.PublishedAt = s.stamp()
	})
	if err == nil {
		s.notifier.Dispatch(ctx, EventFinalPayPublished, map[string]any{
			"finalPayId": fp.ID,
			"employeeId": fp.EmployeeID,
			"net":        fp.Net.StringFixed(2),
		}, fp.EmployeeID)
	}
	return fp, err
}

func (s *Service) MarkFinalPayPaid(ctx context.Context, finalPayID, actorID string) (FinalPay, error) {
	return s.transitionFinalPay(ctx, "mark final pay paid", "payroll.final_pay.pay", finalPayID, actorID, FinalPayPublished, func(fp *FinalPay) {
		fp.Status = FinalPayPaid
		fp.PaidAt = s.stamp()
	})
}

func (s *Service) transitionFinalPay(ctx context.Context, op, action, finalPayID, actorID string, from FinalPayStatus, apply func(*FinalPay)) (FinalPay, error) {
	s.mu.Lock()
	current, ok := s.store.finalPay(finalPayID)
	if !ok {
		s.mu.Unlock()
		err := missing(op, ErrFinalPayNotFound, finalPayID)
		s.refused(op, err)
		return FinalPay{}, err
	}
	if current.Status != from {
		s.mu.Unlock()
		err := violate(op, ErrFinalPayState, "requires status %s, got %s", from, current.Status)
		s.refused(op, err)
		return FinalPay{}, err
	}
	next := current
	apply(&next)
	s.store.putFinalPay(next)
	s.mu.Unlock()

	s.afterFinalPay(ctx, op, action, actorID, &current, next)
	return next, nil
}

func (s *Service) afterFinalPay(ctx context.Context, op, action, actorID string, before *FinalPay, after FinalPay) {
	s.counter.Count(action)
	s.logger.Info("final pay transition",
		zap.String("op", op),
		zap.String("finalPayId", after.ID),
		zap.String("employeeId", after.EmployeeID),
		zap.String("status", string(after.Status)),
		zap.String("net", after.Net.StringFixed(2)),
	)
	if before != nil {
		s.record(ctx, actorID, action, EntityFinalPay, after.ID, *before, after)
		return
	}
	s.record(ctx, actorID, action, EntityFinalPay, after.ID, nil, after)
}

func (s *Service) GetFinalPay(ctx context.Context, finalPayID string) (FinalPay, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fp, ok := s.store.finalPay(finalPayID)
	if !ok {
		return FinalPay{}, missing("get final pay", ErrFinalPayNotFound, finalPayID)
	}
	return fp, nil
}

func (s *Service) ListFinalPays(ctx context.Context, employeeID string) []FinalPay {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.listFinalPays(employeeID)
}
