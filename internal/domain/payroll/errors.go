package payroll

import (
	"errors"
	"fmt"
)

// Kind classifies a refused operation.
type Kind string

const (
	KindValidation   Kind = "validation_refusal"
	KindState        Kind = "state_violation"
	KindImmutability Kind = "immutability_violation"
	KindNotFound     Kind = "not_found"
)

var (
	ErrEmployeeRequired      = errors.New("employee id is required")
	ErrEmployeeNotFound      = errors.New("employee not found")
	ErrEmployeeInactive      = errors.New("employee is not active")
	ErrInvalidPeriod         = errors.New("period end must not be before period start")
	ErrInvalidFrequency      = errors.New("unknown pay frequency")
	ErrInvalidPolicy         = errors.New("unknown semi-monthly deduction policy")
	ErrNegativeAmount        = errors.New("amount must not be negative")
	ErrNetNotPositive        = errors.New("net ≤ 0")
	ErrDateLocked            = errors.New("issuance date belongs to a locked payroll run")
	ErrPayslipNotFound       = errors.New("payslip not found")
	ErrPayslipState          = errors.New("payslip is not in the required status")
	ErrPayslipRunLocked      = errors.New("payslip belongs to a locked payroll run")
	ErrPaymentMethodRequired = errors.New("payment method is required")
	ErrSignatureRequired     = errors.New("signature artifact is required")
	ErrAlreadySigned         = errors.New("payslip is already signed")
	ErrNotSigned             = errors.New("payslip must be signed before acknowledgement")
	ErrNotPayslipOwner       = errors.New("payslip belongs to another employee")
	ErrRunNotFound           = errors.New("payroll run not found")
	ErrRunExists             = errors.New("payroll run already exists for this date")
	ErrRunState              = errors.New("payroll run is not in the required status")
	ErrRunAlreadyLocked      = errors.New("payroll run is already locked")
	ErrRunEmpty              = errors.New("payroll run has no payslips")
	ErrRunInconsistent       = errors.New("payroll run failed consistency checks")
	ErrRunPayslipMismatch    = errors.New("payslip was not issued on the run date")
	ErrAdjustmentNotFound    = errors.New("adjustment not found")
	ErrAdjustmentState       = errors.New("adjustment is not in the required status")
	ErrAdjustmentType        = errors.New("unknown adjustment type")
	ErrAdjustmentAmount      = errors.New("adjustment amount must not be zero")
	ErrReasonRequired        = errors.New("reason is required")
	ErrTargetRunLocked       = errors.New("adjustments cannot be applied to a locked payroll run")
	ErrFinalPayNotFound      = errors.New("final pay computation not found")
	ErrFinalPayExists        = errors.New("final pay already computed for this resignation")
	ErrFinalPayState         = errors.New("final pay is not in the required status")
	ErrResignationRequired   = errors.New("resignation timestamp is required")
)

// Error is a refused operation. It wraps one of the sentinel errors above and
// names the precondition that failed in Reason.
type Error struct {
	Kind   Kind
	Op     string
	Reason string
	Err    error
}

func (e *Error) Error() string {
	msg := e.Op + ": " + e.Err.Error()
	if e.Reason != "" {
		msg += " (" + e.Reason + ")"
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the taxonomy of err, or "" for errors raised outside the
// payroll rules (collaborator failures and the like).
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

func refuse(op string, err error, format string, args ...any) error {
	return newError(KindValidation, op, err, format, args...)
}

func violate(op string, err error, format string, args ...any) error {
	return newError(KindState, op, err, format, args...)
}

func immutable(op string, err error, format string, args ...any) error {
	return newError(KindImmutability, op, err, format, args...)
}

func missing(op string, err error, id string) error {
	return newError(KindNotFound, op, err, "id %s", id)
}

func newError(kind Kind, op string, err error, format string, args ...any) error {
	reason := format
	if len(args) > 0 {
		reason = fmt.Sprintf(format, args...)
	}
	return &Error{Kind: kind, Op: op, Reason: reason, Err: err}
}
