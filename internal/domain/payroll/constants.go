package payroll

type Frequency string

const (
	FrequencyMonthly     Frequency = "monthly"
	FrequencySemiMonthly Frequency = "semi_monthly"
	FrequencyBiWeekly    Frequency = "bi_weekly"
	FrequencyWeekly      Frequency = "weekly"
)

func (f Frequency) Valid() bool {
	switch f {
	case FrequencyMonthly, FrequencySemiMonthly, FrequencyBiWeekly, FrequencyWeekly:
		return true
	}
	return false
}

type Cutoff string

const (
	CutoffFirst  Cutoff = "first"
	CutoffSecond Cutoff = "second"
)

// SemiMonthlyPolicy selects which half of a semi-monthly month carries the
// government deductions.
type SemiMonthlyPolicy string

const (
	SemiMonthlyFirst  SemiMonthlyPolicy = "first"
	SemiMonthlySecond SemiMonthlyPolicy = "second"
	SemiMonthlyBoth   SemiMonthlyPolicy = "both"
)

func (p SemiMonthlyPolicy) Valid() bool {
	switch p {
	case SemiMonthlyFirst, SemiMonthlySecond, SemiMonthlyBoth:
		return true
	}
	return false
}

type HolidayCategory string

const (
	HolidayRegular HolidayCategory = "regular"
	HolidaySpecial HolidayCategory = "special"
)

type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "present"
	AttendanceAbsent  AttendanceStatus = "absent"
	AttendanceOnLeave AttendanceStatus = "on_leave"
)

type PayslipStatus string

const (
	PayslipIssued       PayslipStatus = "issued"
	PayslipConfirmed    PayslipStatus = "confirmed"
	PayslipPublished    PayslipStatus = "published"
	PayslipPaid         PayslipStatus = "paid"
	PayslipAcknowledged PayslipStatus = "acknowledged"
)

var payslipOrder = map[PayslipStatus]int{
	PayslipIssued:       1,
	PayslipConfirmed:    2,
	PayslipPublished:    3,
	PayslipPaid:         4,
	PayslipAcknowledged: 5,
}

// AtLeast reports whether s is at or past other in the payslip lifecycle.
func (s PayslipStatus) AtLeast(other PayslipStatus) bool {
	return payslipOrder[s] >= payslipOrder[other] && payslipOrder[s] > 0
}

type PayslipKind string

const (
	PayslipRegular    PayslipKind = "regular"
	PayslipCorrection PayslipKind = "correction"
)

type RunStatus string

const (
	RunDraft     RunStatus = "draft"
	RunValidated RunStatus = "validated"
	RunLocked    RunStatus = "locked"
	RunPublished RunStatus = "published"
	RunPaid      RunStatus = "paid"
)

type AdjustmentStatus string

const (
	AdjustmentPending  AdjustmentStatus = "pending"
	AdjustmentApproved AdjustmentStatus = "approved"
	AdjustmentRejected AdjustmentStatus = "rejected"
	AdjustmentApplied  AdjustmentStatus = "applied"
)

type AdjustmentType string

const (
	AdjustmentSalaryCorrection AdjustmentType = "salary_correction"
	AdjustmentAllowance        AdjustmentType = "allowance"
	AdjustmentDeduction        AdjustmentType = "deduction"
	AdjustmentHolidayPay       AdjustmentType = "holiday_pay"
	AdjustmentLoanRefund       AdjustmentType = "loan_refund"
	AdjustmentOther            AdjustmentType = "other"
)

var AdjustmentTypes = []AdjustmentType{
	AdjustmentSalaryCorrection,
	AdjustmentAllowance,
	AdjustmentDeduction,
	AdjustmentHolidayPay,
	AdjustmentLoanRefund,
	AdjustmentOther,
}

func (t AdjustmentType) Valid() bool {
	for _, candidate := range AdjustmentTypes {
		if t == candidate {
			return true
		}
	}
	return false
}

type FinalPayStatus string

const (
	FinalPayDraft     FinalPayStatus = "draft"
	FinalPayLocked    FinalPayStatus = "locked"
	FinalPayPublished FinalPayStatus = "published"
	FinalPayPaid      FinalPayStatus = "paid"
)

const (
	EntityPayslip    = "payslip"
	EntityRun        = "payroll_run"
	EntityAdjustment = "payroll_adjustment"
	EntityFinalPay   = "final_pay"

	AdjustmentLabelPrefix = "ADJ-"
	DateLayout            = "2006-01-02"
)
