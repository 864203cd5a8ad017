package payroll

import (
	"time"

	"github.com/shopspring/decimal"
)

var (
	two    = decimal.NewFromInt(2)
	twelve = decimal.NewFromInt(12)
	half   = decimal.RequireFromString("0.5")
)

// GrossPay returns the per-period gross for a monthly salary.
func GrossPay(monthlySalary decimal.Decimal, freq Frequency) (decimal.Decimal, error) {
	switch freq {
	case FrequencyMonthly:
		return monthlySalary.Round(2), nil
	case FrequencySemiMonthly:
		return monthlySalary.Div(two).Round(2), nil
	case FrequencyBiWeekly:
		return monthlySalary.Mul(twelve).Div(decimal.NewFromInt(26)).Round(0), nil
	case FrequencyWeekly:
		return monthlySalary.Mul(twelve).Div(decimal.NewFromInt(52)).Round(0), nil
	}
	return decimal.Zero, ErrInvalidFrequency
}

// CutoffFor reports which semi-monthly half a period starting on start is.
func CutoffFor(start time.Time) Cutoff {
	if start.Day() <= 15 {
		return CutoffFirst
	}
	return CutoffSecond
}

// GovMultiplier scales the government deductions for one period.
func GovMultiplier(freq Frequency, cutoff Cutoff, policy SemiMonthlyPolicy) decimal.Decimal {
	if freq != FrequencySemiMonthly {
		return decimal.NewFromInt(1)
	}
	switch policy {
	case SemiMonthlyFirst:
		if cutoff == CutoffFirst {
			return decimal.NewFromInt(1)
		}
		return decimal.Zero
	case SemiMonthlySecond:
		if cutoff == CutoffSecond {
			return decimal.NewFromInt(1)
		}
		return decimal.Zero
	}
	return half
}

// Compute returns the four deductions for a monthly salary, each scaled by
// multiplier after the base amount is rounded to whole units.
func (t DeductionTable) Compute(monthlySalary, multiplier decimal.Decimal) GovDeductions {
	base := t.Base(monthlySalary)
	return GovDeductions{
		SSS:        base.SSS.Mul(multiplier).Round(0),
		PhilHealth: base.PhilHealth.Mul(multiplier).Round(0),
		PagIBIG:    base.PagIBIG.Mul(multiplier).Round(0),
		Tax:        base.Tax.Mul(multiplier).Round(0),
	}
}

// Base returns the unscaled monthly deductions.
func (t DeductionTable) Base(monthlySalary decimal.Decimal) GovDeductions {
	if !monthlySalary.IsPositive() {
		return GovDeductions{}
	}
	sss := t.SSS.apply(monthlySalary).Round(0)
	philhealth := t.PhilHealth.apply(monthlySalary).Round(0)
	pagibig := t.PagIBIG.apply(monthlySalary).Round(0)
	taxable := monthlySalary.Sub(sss).Sub(philhealth).Sub(pagibig)
	return GovDeductions{
		SSS:        sss,
		PhilHealth: philhealth,
		PagIBIG:    pagibig,
		Tax:        t.tax(taxable).Round(0),
	}
}

func (c ContributionRule) apply(salary decimal.Decimal) decimal.Decimal {
	base := salary
	if !c.MinBase.IsZero() && base.LessThan(c.MinBase) {
		base = c.MinBase
	}
	if !c.MaxBase.IsZero() && base.GreaterThan(c.MaxBase) {
		base = c.MaxBase
	}
	return base.Mul(c.Rate)
}

func (p PagIBIGRule) apply(salary decimal.Decimal) decimal.Decimal {
	base := salary
	if !p.MaxBase.IsZero() && base.GreaterThan(p.MaxBase) {
		base = p.MaxBase
	}
	if salary.LessThanOrEqual(p.LowThreshold) {
		return base.Mul(p.LowRate)
	}
	return base.Mul(p.Rate)
}

func (t DeductionTable) tax(taxable decimal.Decimal) decimal.Decimal {
	if !taxable.IsPositive() {
		return decimal.Zero
	}
	var bracket *TaxBracket
	for i := range t.TaxBrackets {
		if taxable.GreaterThan(t.TaxBrackets[i].Over) {
			bracket = &t.TaxBrackets[i]
		}
	}
	if bracket == nil {
		return decimal.Zero
	}
	return bracket.Base.Add(taxable.Sub(bracket.Over).Mul(bracket.Rate))
}

// DailyRate divides a monthly salary by the fixed working-day divisor.
func (r Rules) DailyRate(monthlySalary decimal.Decimal) decimal.Decimal {
	divisor := r.DailyRateDivisor
	if !divisor.IsPositive() {
		divisor = decimal.NewFromInt(22)
	}
	return monthlySalary.Div(divisor)
}

// ResolveHolidays sums the signed holiday adjustment for every holiday in
// [start, end]. attendance is keyed by YYYY-MM-DD; a missing day counts as
// not worked.
func (r Rules) ResolveHolidays(monthlySalary decimal.Decimal, start, end time.Time, holidays []Holiday, attendance map[string]AttendanceStatus) (decimal.Decimal, []HolidayLine) {
	daily := r.DailyRate(monthlySalary)
	premium := r.SpecialHolidayPremium.Sub(decimal.NewFromInt(1))
	from, to := dateOnly(start), dateOnly(end)

	total := decimal.Zero
	var lines []HolidayLine
	for _, h := range holidays {
		day := dateOnly(h.Date)
		if day.Before(from) || day.After(to) {
			continue
		}
		status := attendance[day.Format(DateLayout)]
		if status == "" {
			status = AttendanceAbsent
		}
		worked := status == AttendancePresent

		amount := decimal.Zero
		switch h.Category {
		case HolidayRegular:
			if worked {
				amount = daily
			}
		case HolidaySpecial:
			if worked {
				amount = daily.Mul(premium)
			} else {
				amount = daily.Neg()
			}
		}
		amount = amount.Round(2)
		total = total.Add(amount)
		lines = append(lines, HolidayLine{
			Date:       day,
			Name:       h.Name,
			Category:   h.Category,
			Attendance: status,
			Amount:     amount,
		})
	}
	return total, lines
}

// AllocateLoans withholds min(installment, remaining) from every active loan.
func AllocateLoans(loans []Loan) ([]LoanWithholding, decimal.Decimal) {
	total := decimal.Zero
	var out []LoanWithholding
	for _, loan := range loans {
		if !loan.Remaining.IsPositive() || !loan.Installment.IsPositive() {
			continue
		}
		amount := decimal.Min(loan.Installment, loan.Remaining)
		total = total.Add(amount)
		out = append(out, LoanWithholding{LoanID: loan.ID, Amount: amount})
	}
	return out, total
}

// NetPay is gross + allowances + holiday adjustment minus every deduction.
func NetPay(gross, allowances, holidayAdjustment decimal.Decimal, gov GovDeductions, otherDeductions, loanDeduction decimal.Decimal) decimal.Decimal {
	return gross.
		Add(allowances).
		Add(holidayAdjustment).
		Sub(gov.Total()).
		Sub(otherDeductions).
		Sub(loanDeduction)
}

type FinalPayInput struct {
	MonthlySalary   decimal.Decimal
	Frequency       Frequency
	ResignedAt      time.Time
	LeaveDays       decimal.Decimal
	OvertimeHours   decimal.Decimal
	LoanBalance     decimal.Decimal
	OtherDeductions decimal.Decimal
}

// ComputeFinalPay settles a resignation. Salary is pro-rated over the pay
// period containing the resignation date, inclusive of that date.
func (r Rules) ComputeFinalPay(in FinalPayInput) FinalPay {
	periodStart, periodEnd := settlementPeriod(in.ResignedAt, in.Frequency)
	periodDays := daysBetween(periodStart, periodEnd) + 1
	elapsed := daysBetween(periodStart, dateOnly(in.ResignedAt)) + 1

	base := in.MonthlySalary
	if in.Frequency == FrequencySemiMonthly {
		base = base.Div(two)
	}
	prorated := base.Mul(decimal.NewFromInt(int64(elapsed))).Div(decimal.NewFromInt(int64(periodDays))).Round(2)

	daily := r.DailyRate(in.MonthlySalary)
	hoursPerDay := r.HoursPerDay
	if !hoursPerDay.IsPositive() {
		hoursPerDay = decimal.NewFromInt(8)
	}
	leave := in.LeaveDays.Mul(daily).Round(2)
	overtime := in.OvertimeHours.Mul(daily.Div(hoursPerDay)).Mul(r.OvertimeMultiplier).Round(2)
	loan := in.LoanBalance.Round(2)
	other := in.OtherDeductions.Round(2)

	return FinalPay{
		MonthlySalary:   in.MonthlySalary,
		PeriodStart:     periodStart,
		PeriodEnd:       periodEnd,
		LeaveDays:       in.LeaveDays,
		OvertimeHours:   in.OvertimeHours,
		ProratedSalary:  prorated,
		LeavePayout:     leave,
		OvertimePayout:  overtime,
		LoanBalance:     loan,
		OtherDeductions: other,
		Net:             prorated.Add(leave).Add(overtime).Sub(loan).Sub(other),
	}
}

func settlementPeriod(resignedAt time.Time, freq Frequency) (time.Time, time.Time) {
	day := dateOnly(resignedAt)
	monthStart := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, -1)
	if freq != FrequencySemiMonthly {
		return monthStart, monthEnd
	}
	if day.Day() <= 15 {
		return monthStart, monthStart.AddDate(0, 0, 14)
	}
	return monthStart.AddDate(0, 0, 15), monthEnd
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func daysBetween(from, to time.Time) int {
	return int(dateOnly(to).Sub(dateOnly(from)).Hours() / 24)
}
