package rules

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"hrpay/internal/domain/payroll"
)

//go:embed default.yaml
var defaultFile []byte

// Set is a loaded rule set plus the holiday calendar it was versioned with.
type Set struct {
	Rules    payroll.Rules
	Holidays []payroll.Holiday
}

type file struct {
	Version               int             `yaml:"version"`
	RuleSetVersion        string          `yaml:"ruleSetVersion"`
	FormulaVersion        string          `yaml:"formulaVersion"`
	SemiMonthlyPolicy     string          `yaml:"semiMonthlyPolicy"`
	DefaultFrequency      string          `yaml:"defaultFrequency"`
	DailyRateDivisor      string          `yaml:"dailyRateDivisor"`
	SpecialHolidayPremium string          `yaml:"specialHolidayPremium"`
	OvertimeMultiplier    string          `yaml:"overtimeMultiplier"`
	HoursPerDay           string          `yaml:"hoursPerDay"`
	Deductions            *deductionsFile `yaml:"deductions"`
	HolidayCalendar       *calendarFile   `yaml:"holidayCalendar"`
}

type contributionFile struct {
	Rate    string `yaml:"rate"`
	MinBase string `yaml:"minBase"`
	MaxBase string `yaml:"maxBase"`
}

type pagIbigFile struct {
	LowRate      string `yaml:"lowRate"`
	LowThreshold string `yaml:"lowThreshold"`
	Rate         string `yaml:"rate"`
	MaxBase      string `yaml:"maxBase"`
}

type bracketFile struct {
	Over string `yaml:"over"`
	Base string `yaml:"base"`
	Rate string `yaml:"rate"`
}

type deductionsFile struct {
	Version     string           `yaml:"version"`
	SSS         contributionFile `yaml:"sss"`
	PhilHealth  contributionFile `yaml:"philHealth"`
	PagIBIG     pagIbigFile      `yaml:"pagIbig"`
	TaxBrackets []bracketFile    `yaml:"taxBrackets"`
}

type holidayFile struct {
	Date     string `yaml:"date"`
	Category string `yaml:"category"`
	Name     string `yaml:"name"`
}

type calendarFile struct {
	Version  string        `yaml:"version"`
	Holidays []holidayFile `yaml:"holidays"`
}

// Default returns the bundled rule set.
func Default() (Set, error) {
	return Parse(defaultFile)
}

// Load reads a rule file. An empty path yields the bundled rule set.
func Load(path string) (Set, error) {
	if path == "" {
		return Default()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Set{}, err
	}
	set, err := Parse(raw)
	if err != nil {
		return Set{}, fmt.Errorf("rules %s: %w", path, err)
	}
	return set, nil
}

// Parse decodes a rule file. Fields left out keep the built-in defaults;
// a deductions or holidayCalendar block replaces the default block whole.
func Parse(raw []byte) (Set, error) {
	var f file
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return Set{}, err
	}
	if f.Version != 1 {
		return Set{}, errors.New("rules: unsupported version")
	}

	p := parser{}
	r := payroll.DefaultRules()
	set := Set{Rules: r}
	if f.RuleSetVersion != "" {
		set.Rules.RuleSetVersion = f.RuleSetVersion
	}
	if f.FormulaVersion != "" {
		set.Rules.FormulaVersion = f.FormulaVersion
	}
	if f.SemiMonthlyPolicy != "" {
		set.Rules.SemiMonthlyPolicy = payroll.SemiMonthlyPolicy(f.SemiMonthlyPolicy)
	}
	if f.DefaultFrequency != "" {
		set.Rules.DefaultFrequency = payroll.Frequency(f.DefaultFrequency)
	}
	p.optional(&set.Rules.DailyRateDivisor, "dailyRateDivisor", f.DailyRateDivisor)
	p.optional(&set.Rules.SpecialHolidayPremium, "specialHolidayPremium", f.SpecialHolidayPremium)
	p.optional(&set.Rules.OvertimeMultiplier, "overtimeMultiplier", f.OvertimeMultiplier)
	p.optional(&set.Rules.HoursPerDay, "hoursPerDay", f.HoursPerDay)

	if f.Deductions != nil {
		set.Rules.Deductions = p.deductions(*f.Deductions)
	}
	if f.HolidayCalendar != nil {
		set.Rules.HolidayCalendarVersion = f.HolidayCalendar.Version
		set.Holidays = p.holidays(f.HolidayCalendar.Holidays)
	}
	if p.err != nil {
		return Set{}, p.err
	}
	if err := validate(set); err != nil {
		return Set{}, err
	}
	return set, nil
}

// parser keeps the first conversion error.
type parser struct {
	err error
}

func (p *parser) amount(field, value string) decimal.Decimal {
	if p.err != nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		p.err = fmt.Errorf("rules: %s: %w", field, err)
	}
	return d
}

func (p *parser) optional(dst *decimal.Decimal, field, value string) {
	if value == "" {
		return
	}
	*dst = p.amount(field, value)
}

func (p *parser) contribution(field string, c contributionFile) payroll.ContributionRule {
	return payroll.ContributionRule{
		Rate:    p.amount(field+".rate", c.Rate),
		MinBase: p.amount(field+".minBase", c.MinBase),
		MaxBase: p.amount(field+".maxBase", c.MaxBase),
	}
}

func (p *parser) deductions(d deductionsFile) payroll.DeductionTable {
	table := payroll.DeductionTable{
		Version:    d.Version,
		SSS:        p.contribution("sss", d.SSS),
		PhilHealth: p.contribution("philHealth", d.PhilHealth),
		PagIBIG: payroll.PagIBIGRule{
			LowRate:      p.amount("pagIbig.lowRate", d.PagIBIG.LowRate),
			LowThreshold: p.amount("pagIbig.lowThreshold", d.PagIBIG.LowThreshold),
			Rate:         p.amount("pagIbig.rate", d.PagIBIG.Rate),
			MaxBase:      p.amount("pagIbig.maxBase", d.PagIBIG.MaxBase),
		},
	}
	for i, b := range d.TaxBrackets {
		field := fmt.Sprintf("taxBrackets[%d]", i)
		table.TaxBrackets = append(table.TaxBrackets, payroll.TaxBracket{
			Over: p.amount(field+".over", b.Over),
			Base: p.amount(field+".base", b.Base),
			Rate: p.amount(field+".rate", b.Rate),
		})
	}
	return table
}

func (p *parser) holidays(in []holidayFile) []payroll.Holiday {
	out := make([]payroll.Holiday, 0, len(in))
	for i, h := range in {
		day, err := time.Parse(payroll.DateLayout, h.Date)
		if err != nil {
			if p.err == nil {
				p.err = fmt.Errorf("rules: holidays[%d].date: %w", i, err)
			}
			continue
		}
		out = append(out, payroll.Holiday{Date: day, Category: payroll.HolidayCategory(h.Category), Name: h.Name})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

func validate(set Set) error {
	r := set.Rules
	if !r.SemiMonthlyPolicy.Valid() {
		return fmt.Errorf("rules: semiMonthlyPolicy %q is not one of first, second, both", r.SemiMonthlyPolicy)
	}
	if !r.DefaultFrequency.Valid() {
		return fmt.Errorf("rules: defaultFrequency %q is not supported", r.DefaultFrequency)
	}
	if !r.DailyRateDivisor.IsPositive() || !r.HoursPerDay.IsPositive() {
		return errors.New("rules: dailyRateDivisor and hoursPerDay must be positive")
	}
	if r.Deductions.Version == "" {
		return errors.New("rules: deductions.version is required")
	}
	if len(r.Deductions.TaxBrackets) == 0 {
		return errors.New("rules: at least one tax bracket is required")
	}
	for i, b := range r.Deductions.TaxBrackets {
		if b.Rate.IsNegative() || b.Rate.GreaterThan(decimal.NewFromInt(1)) {
			return fmt.Errorf("rules: taxBrackets[%d].rate must be within [0, 1]", i)
		}
		if i > 0 && !b.Over.GreaterThan(r.Deductions.TaxBrackets[i-1].Over) {
			return fmt.Errorf("rules: taxBrackets must ascend by over, bracket %d does not", i)
		}
	}
	for _, c := range []payroll.ContributionRule{r.Deductions.SSS, r.Deductions.PhilHealth} {
		if c.MaxBase.LessThan(c.MinBase) {
			return errors.New("rules: contribution maxBase below minBase")
		}
	}
	for i, h := range set.Holidays {
		if h.Category != payroll.HolidayRegular && h.Category != payroll.HolidaySpecial {
			return fmt.Errorf("rules: holidays[%d].category %q must be regular or special", i, h.Category)
		}
	}
	return nil
}
