package notifications

import "hrpay/internal/domain/payroll"

const DefaultTopic = "hr.payroll.events.v1"

type template struct {
	title string
	body  string
}

// templates keyed by payroll event kind. Body placeholders are payload keys.
var templates = map[string]template{
	payroll.EventPayslipPublished:    {title: "Payslip published", body: "Your payslip for {periodStart} to {periodEnd} is available. Net pay: {net}."},
	payroll.EventPayslipPaid:         {title: "Salary paid", body: "Net pay of {net} for {periodStart} to {periodEnd} has been paid."},
	payroll.EventPayslipSigned:       {title: "Payslip signed", body: "Payslip {payslipId} was signed."},
	payroll.EventPayslipAcknowledged: {title: "Payslip acknowledged", body: "Payslip {payslipId} was acknowledged."},
	payroll.EventRunLocked:           {title: "Payroll run locked", body: "Run {runId} was locked with {count} payslips."},
	payroll.EventFinalPayPublished:   {title: "Final pay published", body: "Your final pay of {net} is available."},
}
