package payroll

import "github.com/shopspring/decimal"

// Rules is the versioned rule set every computation reads from. A run's
// PolicySnapshot is derived from the Rules in effect when it is locked.
type Rules struct {
	RuleSetVersion         string
	FormulaVersion         string
	HolidayCalendarVersion string
	Deductions             DeductionTable
	SemiMonthlyPolicy      SemiMonthlyPolicy
	DefaultFrequency       Frequency
	DailyRateDivisor       decimal.Decimal
	SpecialHolidayPremium  decimal.Decimal
	OvertimeMultiplier     decimal.Decimal
	HoursPerDay            decimal.Decimal
}

type ContributionRule struct {
	Rate    decimal.Decimal
	MinBase decimal.Decimal
	MaxBase decimal.Decimal
}

type PagIBIGRule struct {
	LowRate      decimal.Decimal
	LowThreshold decimal.Decimal
	Rate         decimal.Decimal
	MaxBase      decimal.Decimal
}

// TaxBracket applies Base + (taxable - Over) * Rate to income above Over.
type TaxBracket struct {
	Over decimal.Decimal
	Base decimal.Decimal
	Rate decimal.Decimal
}

type DeductionTable struct {
	Version     string
	SSS         ContributionRule
	PhilHealth  ContributionRule
	PagIBIG     PagIBIGRule
	TaxBrackets []TaxBracket
}

func DefaultRules() Rules {
	return Rules{
		RuleSetVersion:         "2024.1",
		FormulaVersion:         "net-v1",
		HolidayCalendarVersion: "ph-2024",
		Deductions:             DefaultDeductionTable(),
		SemiMonthlyPolicy:      SemiMonthlyBoth,
		DefaultFrequency:       FrequencyMonthly,
		DailyRateDivisor:       decimal.NewFromInt(22),
		SpecialHolidayPremium:  decimal.RequireFromString("1.3"),
		OvertimeMultiplier:     decimal.RequireFromString("1.25"),
		HoursPerDay:            decimal.NewFromInt(8),
	}
}

func DefaultDeductionTable() DeductionTable {
	d := decimal.RequireFromString
	return DeductionTable{
		Version: "ph-2024.1",
		SSS: ContributionRule{
			Rate:    d("0.045"),
			MinBase: d("5000"),
			MaxBase: d("35000"),
		},
		PhilHealth: ContributionRule{
			Rate:    d("0.025"),
			MinBase: d("10000"),
			MaxBase: d("100000"),
		},
		PagIBIG: PagIBIGRule{
			LowRate:      d("0.01"),
			LowThreshold: d("1500"),
			Rate:         d("0.02"),
			MaxBase:      d("10000"),
		},
		TaxBrackets: []TaxBracket{
			{Over: d("0"), Base: d("0"), Rate: d("0")},
			{Over: d("20833"), Base: d("0"), Rate: d("0.15")},
			{Over: d("33333"), Base: d("1875"), Rate: d("0.20")},
			{Over: d("66667"), Base: d("8541.80"), Rate: d("0.25")},
			{Over: d("166667"), Base: d("33541.80"), Rate: d("0.30")},
			{Over: d("666667"), Base: d("183541.80"), Rate: d("0.35")},
		},
	}
}

// snapshot captures the rule versions of r; the caller stamps actor and time.
func (r Rules) snapshot() PolicySnapshot {
	return PolicySnapshot{
		DeductionTableVersion:  r.Deductions.Version,
		HolidayCalendarVersion: r.HolidayCalendarVersion,
		FormulaVersion:         r.FormulaVersion,
		RuleSetVersion:         r.RuleSetVersion,
		SemiMonthlyPolicy:      r.SemiMonthlyPolicy,
	}
}
