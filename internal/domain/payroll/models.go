package payroll

import (
	"time"

	"github.com/shopspring/decimal"
)

type Employee struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Email         string          `json:"email"`
	MonthlySalary decimal.Decimal `json:"monthlySalary"`
	PayFrequency  Frequency       `json:"payFrequency,omitempty"`
	Status        string          `json:"status"`
	BankAccount   string          `json:"bankAccount,omitempty"`
	JoinedOn      time.Time       `json:"joinedOn"`
	ResignedOn    *time.Time      `json:"resignedOn,omitempty"`
}

const EmployeeStatusActive = "active"

type Holiday struct {
	Date     time.Time       `json:"date"`
	Category HolidayCategory `json:"category"`
	Name     string          `json:"name"`
}

type Loan struct {
	ID          string          `json:"id"`
	EmployeeID  string          `json:"employeeId"`
	Installment decimal.Decimal `json:"installment"`
	Remaining   decimal.Decimal `json:"remaining"`
}

type LoanWithholding struct {
	LoanID string          `json:"loanId"`
	Amount decimal.Decimal `json:"amount"`
}

// GovDeductions holds the four statutory withholdings.
type GovDeductions struct {
	SSS        decimal.Decimal `json:"sss"`
	PhilHealth decimal.Decimal `json:"philhealth"`
	PagIBIG    decimal.Decimal `json:"pagibig"`
	Tax        decimal.Decimal `json:"tax"`
}

func (g GovDeductions) Total() decimal.Decimal {
	return g.SSS.Add(g.PhilHealth).Add(g.PagIBIG).Add(g.Tax)
}

type HolidayLine struct {
	Date       time.Time        `json:"date"`
	Name       string           `json:"name"`
	Category   HolidayCategory  `json:"category"`
	Attendance AttendanceStatus `json:"attendance"`
	Amount     decimal.Decimal  `json:"amount"`
}

type Signature struct {
	Digest   string    `json:"digest"`
	SignedAt time.Time `json:"signedAt"`
	SignedBy string    `json:"signedBy"`
	Sealed   []byte    `json:"-"`
}

type Payslip struct {
	ID                string            `json:"id"`
	Kind              PayslipKind       `json:"kind"`
	EmployeeID        string            `json:"employeeId"`
	EmployeeName      string            `json:"employeeName"`
	PeriodStart       time.Time         `json:"periodStart"`
	PeriodEnd         time.Time         `json:"periodEnd"`
	IssueDate         time.Time         `json:"issueDate"`
	Frequency         Frequency         `json:"frequency"`
	Cutoff            Cutoff            `json:"cutoff,omitempty"`
	GovMultiplier     decimal.Decimal   `json:"govMultiplier"`
	Gross             decimal.Decimal   `json:"gross"`
	Allowances        decimal.Decimal   `json:"allowances"`
	GovDeductions     GovDeductions     `json:"governmentDeductions"`
	OtherDeductions   decimal.Decimal   `json:"otherDeductions"`
	LoanDeduction     decimal.Decimal   `json:"loanDeduction"`
	LoanWithholdings  []LoanWithholding `json:"loanWithholdings,omitempty"`
	HolidayAdjustment decimal.Decimal   `json:"holidayAdjustment"`
	HolidayLines      []HolidayLine     `json:"holidayLines,omitempty"`
	Net               decimal.Decimal   `json:"net"`
	Status            PayslipStatus     `json:"status"`
	IssuedAt          time.Time         `json:"issuedAt"`
	IssuedBy          string            `json:"issuedBy"`
	ConfirmedAt       *time.Time        `json:"confirmedAt,omitempty"`
	PublishedAt       *time.Time        `json:"publishedAt,omitempty"`
	PaidAt            *time.Time        `json:"paidAt,omitempty"`
	AcknowledgedAt    *time.Time        `json:"acknowledgedAt,omitempty"`
	PaymentMethod     string            `json:"paymentMethod,omitempty"`
	PaymentReference  string            `json:"paymentReference,omitempty"`
	Signature         *Signature        `json:"signature,omitempty"`
	Notes             string            `json:"notes,omitempty"`
	AdjustmentRef     string            `json:"adjustmentRef,omitempty"`
	RunLabel          string            `json:"runLabel,omitempty"`
}

func (p Payslip) clone() Payslip {
	out := p
	out.LoanWithholdings = append([]LoanWithholding(nil), p.LoanWithholdings...)
	out.HolidayLines = append([]HolidayLine(nil), p.HolidayLines...)
	if p.Signature != nil {
		sig := *p.Signature
		sig.Sealed = append([]byte(nil), p.Signature.Sealed...)
		out.Signature = &sig
	}
	return out
}

// PolicySnapshot records the rule versions a run was locked under.
type PolicySnapshot struct {
	DeductionTableVersion  string            `json:"deductionTableVersion"`
	HolidayCalendarVersion string            `json:"holidayCalendarVersion"`
	FormulaVersion         string            `json:"formulaVersion"`
	RuleSetVersion         string            `json:"ruleSetVersion"`
	SemiMonthlyPolicy      SemiMonthlyPolicy `json:"semiMonthlyPolicy"`
	LockedBy               string            `json:"lockedBy"`
	LockedAt               time.Time         `json:"lockedAt"`
	Digest                 string            `json:"digest"`
}

type Run struct {
	ID          string          `json:"id"`
	Date        time.Time       `json:"date"`
	PayslipIDs  []string        `json:"payslipIds"`
	TotalGross  decimal.Decimal `json:"totalGross"`
	TotalNet    decimal.Decimal `json:"totalNet"`
	Count       int             `json:"count"`
	Status      RunStatus       `json:"status"`
	Locked      bool            `json:"locked"`
	LockedAt    *time.Time      `json:"lockedAt,omitempty"`
	LockedBy    string          `json:"lockedBy,omitempty"`
	Snapshot    *PolicySnapshot `json:"policySnapshot,omitempty"`
	CreatedBy   string          `json:"createdBy"`
	CreatedAt   time.Time       `json:"createdAt"`
	ValidatedAt *time.Time      `json:"validatedAt,omitempty"`
	PublishedAt *time.Time      `json:"publishedAt,omitempty"`
	PaidAt      *time.Time      `json:"paidAt,omitempty"`
}

func (r Run) clone() Run {
	out := r
	out.PayslipIDs = append([]string(nil), r.PayslipIDs...)
	if r.Snapshot != nil {
		snap := *r.Snapshot
		out.Snapshot = &snap
	}
	return out
}

type DisbursementRow struct {
	EmployeeID   string          `json:"employeeId"`
	EmployeeName string          `json:"employeeName"`
	BankAccount  string          `json:"bankAccount,omitempty"`
	NetAmount    decimal.Decimal `json:"netAmount"`
}

type Adjustment struct {
	ID                  string           `json:"id"`
	EmployeeID          string           `json:"employeeId"`
	Type                AdjustmentType   `json:"type"`
	Amount              decimal.Decimal  `json:"amount"`
	Reason              string           `json:"reason"`
	Status              AdjustmentStatus `json:"status"`
	ProposedBy          string           `json:"proposedBy"`
	ProposedAt          time.Time        `json:"proposedAt"`
	DecidedBy           string           `json:"decidedBy,omitempty"`
	DecidedAt           *time.Time       `json:"decidedAt,omitempty"`
	AppliedAt           *time.Time       `json:"appliedAt,omitempty"`
	RunLabel            string           `json:"runLabel,omitempty"`
	CorrectionPayslipID string           `json:"correctionPayslipId,omitempty"`
}

type FinalPay struct {
	ID              string          `json:"id"`
	EmployeeID      string          `json:"employeeId"`
	ResignedAt      time.Time       `json:"resignedAt"`
	MonthlySalary   decimal.Decimal `json:"monthlySalary"`
	PeriodStart     time.Time       `json:"periodStart"`
	PeriodEnd       time.Time       `json:"periodEnd"`
	LeaveDays       decimal.Decimal `json:"leaveDays"`
	OvertimeHours   decimal.Decimal `json:"overtimeHours"`
	ProratedSalary  decimal.Decimal `json:"proratedSalary"`
	LeavePayout     decimal.Decimal `json:"leavePayout"`
	OvertimePayout  decimal.Decimal `json:"overtimePayout"`
	LoanBalance     decimal.Decimal `json:"loanBalance"`
	OtherDeductions decimal.Decimal `json:"otherDeductions"`
	Net             decimal.Decimal `json:"net"`
	Status          FinalPayStatus  `json:"status"`
	CreatedBy       string          `json:"createdBy"`
	CreatedAt       time.Time       `json:"createdAt"`
	LockedBy        string          `json:"lockedBy,omitempty"`
	LockedAt        *time.Time      `json:"lockedAt,omitempty"`
	PublishedAt     *time.Time      `json:"publishedAt,omitempty"`
	PaidAt          *time.Time      `json:"paidAt,omitempty"`
}
