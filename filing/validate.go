/*
validate.go - Business-rule validation over an assembled filing

PURPOSE:
  Stateless rule engine run over a fully-assembled FilingRecord. Returns an
  ordered list of violations; an empty list means the record is valid.
  Validation never mutates the record - the caller decides whether to block
  submission.

RULE SET:
  Identity rules (EIN, period window), the structural invariants of the
  data model (wage cap, Medicare wages, the tax identity, deposit and
  Schedule B reconciliation), and a recomputation check that recomputes
  FICA from reported wages and flags drift beyond a small absolute
  tolerance. The tolerance catches corruption, not cent rounding.

EXTENSION:
  Form families append their own rules (see form941/, form940/) via
  ExtraRules. Base rules always run first, in declaration order.

SEE ALSO:
  - record.go: The aggregate being validated
  - calc.go: The amounts the recomputation check reproduces
*/
package filing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// RULE VIOLATION - One actionable validation finding
// =============================================================================

// RuleViolation describes a single failed check with enough context to act
// on without re-running the pipeline.
type RuleViolation struct {
	Rule     string `json:"rule"`
	Field    string `json:"field"`
	Message  string `json:"message"`
	Expected string `json:"expected,omitempty"`
	Actual   string `json:"actual,omitempty"`
}

func (v RuleViolation) String() string {
	return fmt.Sprintf("%s: %s (%s)", v.Rule, v.Message, v.Field)
}

// Rule is a single named check. Rules return zero or more violations.
type Rule struct {
	Name  string
	Check func(record *FilingRecord, employer EmployerAccount) []RuleViolation
}

// =============================================================================
// FORM VALIDATOR
// =============================================================================

// FormValidator runs the business-rule set over a filing.
type FormValidator struct {
	Config TaxConfig

	// ExtraRules run after the base set. Form families register theirs here.
	ExtraRules []Rule
}

// NewFormValidator returns a validator for the given rate table.
func NewFormValidator(cfg TaxConfig) *FormValidator {
	return &FormValidator{Config: cfg}
}

// Validate runs all rules in order and returns every violation found.
func (fv *FormValidator) Validate(record *FilingRecord, employer EmployerAccount) []RuleViolation {
	var out []RuleViolation
	for _, rule := range fv.baseRules() {
		out = append(out, rule.Check(record, employer)...)
	}
	for _, rule := range fv.ExtraRules {
		out = append(out, rule.Check(record, employer)...)
	}
	return out
}

func (fv *FormValidator) baseRules() []Rule {
	return []Rule{
		{Name: "ein_format", Check: fv.checkEIN},
		{Name: "period_window", Check: fv.checkPeriod},
		{Name: "wage_cap", Check: fv.checkWageCap},
		{Name: "medicare_wages", Check: fv.checkMedicareWages},
		{Name: "tax_identity", Check: fv.checkTaxIdentity},
		{Name: "zero_employees", Check: fv.checkZeroEmployees},
		{Name: "deposit_reconciliation", Check: fv.checkDeposits},
		{Name: "schedule_b", Check: fv.checkScheduleB},
		{Name: "tax_recomputation", Check: fv.checkRecomputation},
	}
}

// =============================================================================
// BASE RULES
// =============================================================================

func (fv *FormValidator) checkEIN(_ *FilingRecord, employer EmployerAccount) []RuleViolation {
	if ValidEIN(employer.EIN) {
		return nil
	}
	return []RuleViolation{{
		Rule:    "ein_format",
		Field:   "employer.ein",
		Message: "EIN must be exactly 9 digits",
		Actual:  employer.EIN,
	}}
}

func (fv *FormValidator) checkPeriod(record *FilingRecord, _ EmployerAccount) []RuleViolation {
	var out []RuleViolation
	p := record.Period
	if p.Quarter != QuarterAnnual && (p.Quarter < 1 || p.Quarter > 4) {
		out = append(out, RuleViolation{
			Rule:    "period_window",
			Field:   "period.quarter",
			Message: "quarter must be 1-4 or annual",
			Actual:  fmt.Sprintf("%d", p.Quarter),
		})
	}
	if p.Year < fv.Config.MinYear || p.Year > fv.Config.MaxYear {
		out = append(out, RuleViolation{
			Rule:     "period_window",
			Field:    "period.year",
			Message:  "year outside supported window",
			Expected: fmt.Sprintf("%d-%d", fv.Config.MinYear, fv.Config.MaxYear),
			Actual:   fmt.Sprintf("%d", p.Year),
		})
	}
	return out
}

func (fv *FormValidator) checkWageCap(record *FilingRecord, _ EmployerAccount) []RuleViolation {
	var out []RuleViolation
	t := record.Totals
	if t.SocialSecurityWages.GreaterThan(t.TotalWages) {
		out = append(out, RuleViolation{
			Rule:     "wage_cap",
			Field:    "totals.social_security_wages",
			Message:  "social security wages exceed total wages",
			Expected: "<= " + t.TotalWages.StringFixed(2),
			Actual:   t.SocialSecurityWages.StringFixed(2),
		})
	}
	if t.SocialSecurityWages.GreaterThan(fv.Config.SocialSecurityWageBase) {
		out = append(out, RuleViolation{
			Rule:     "wage_cap",
			Field:    "totals.social_security_wages",
			Message:  "social security wages exceed the annual wage base",
			Expected: "<= " + fv.Config.SocialSecurityWageBase.StringFixed(2),
			Actual:   t.SocialSecurityWages.StringFixed(2),
		})
	}
	return out
}

func (fv *FormValidator) checkMedicareWages(record *FilingRecord, _ EmployerAccount) []RuleViolation {
	t := record.Totals
	if t.MedicareWages.Equal(t.TotalWages) {
		return nil
	}
	return []RuleViolation{{
		Rule:     "medicare_wages",
		Field:    "totals.medicare_wages",
		Message:  "medicare wages must equal total wages (no cap)",
		Expected: t.TotalWages.StringFixed(2),
		Actual:   t.MedicareWages.StringFixed(2),
	}}
}

func (fv *FormValidator) checkTaxIdentity(record *FilingRecord, _ EmployerAccount) []RuleViolation {
	expected := record.Totals.TotalTax()
	if record.TotalTaxBefore.Equal(expected) {
		return nil
	}
	return []RuleViolation{{
		Rule:     "tax_identity",
		Field:    "total_tax_before_adjustments",
		Message:  "total tax does not equal the sum of its components",
		Expected: expected.StringFixed(2),
		Actual:   record.TotalTaxBefore.StringFixed(2),
	}}
}

func (fv *FormValidator) checkZeroEmployees(record *FilingRecord, _ EmployerAccount) []RuleViolation {
	t := record.Totals
	if t.EmployeeCount != 0 || t.TotalWages.IsZero() {
		return nil
	}
	return []RuleViolation{{
		Rule:    "zero_employees",
		Field:   "totals.total_wages",
		Message: "wages reported with zero employees",
		Actual:  t.TotalWages.StringFixed(2),
	}}
}

func (fv *FormValidator) checkDeposits(record *FilingRecord, _ EmployerAccount) []RuleViolation {
	sum := decimal.Zero
	for _, d := range record.Deposits {
		sum = sum.Add(d.Amount)
	}
	if sum.Equal(record.TotalTaxAfter) {
		return nil
	}
	return []RuleViolation{{
		Rule:     "deposit_reconciliation",
		Field:    "deposits",
		Message:  "deposit liabilities do not sum to total tax after adjustments",
		Expected: record.TotalTaxAfter.StringFixed(2),
		Actual:   sum.StringFixed(2),
	}}
}

func (fv *FormValidator) checkScheduleB(record *FilingRecord, _ EmployerAccount) []RuleViolation {
	if record.Schedule != DepositSemiweekly {
		if record.ScheduleB != nil {
			return []RuleViolation{{
				Rule:    "schedule_b",
				Field:   "schedule_b",
				Message: "schedule B present on a monthly depositor",
			}}
		}
		return nil
	}

	if record.ScheduleB == nil {
		return []RuleViolation{{
			Rule:    "schedule_b",
			Field:   "schedule_b",
			Message: "semiweekly depositor requires schedule B",
		}}
	}

	var out []RuleViolation
	monthSum := decimal.Zero
	for _, m := range record.ScheduleB.Months {
		daySum := decimal.Zero
		for _, d := range m.Days {
			daySum = daySum.Add(d.Amount)
		}
		if !daySum.Equal(m.Total) {
			out = append(out, RuleViolation{
				Rule:     "schedule_b",
				Field:    fmt.Sprintf("schedule_b.month_%d", m.MonthIndex),
				Message:  "daily liabilities do not sum to the month total",
				Expected: m.Total.StringFixed(2),
				Actual:   daySum.StringFixed(2),
			})
		}
		monthSum = monthSum.Add(m.Total)
	}
	if !monthSum.Equal(record.ScheduleB.QuarterTotal) {
		out = append(out, RuleViolation{
			Rule:     "schedule_b",
			Field:    "schedule_b.quarter_total",
			Message:  "month totals do not sum to the quarter total",
			Expected: record.ScheduleB.QuarterTotal.StringFixed(2),
			Actual:   monthSum.StringFixed(2),
		})
	}
	if !record.ScheduleB.QuarterTotal.Equal(record.TotalTaxAfter) {
		out = append(out, RuleViolation{
			Rule:     "schedule_b",
			Field:    "schedule_b.quarter_total",
			Message:  "quarter total does not equal total tax after adjustments",
			Expected: record.TotalTaxAfter.StringFixed(2),
			Actual:   record.ScheduleB.QuarterTotal.StringFixed(2),
		})
	}
	return out
}

// checkRecomputation recomputes FICA from reported wages and flags drift
// beyond the configured absolute tolerance.
func (fv *FormValidator) checkRecomputation(record *FilingRecord, _ EmployerAccount) []RuleViolation {
	two := decimal.NewFromInt(2)
	t := record.Totals

	var out []RuleViolation
	expectSS := t.SocialSecurityWages.Mul(fv.Config.SocialSecurityRate).Mul(two).Round(2)
	if t.SocialSecurityTax.Sub(expectSS).Abs().GreaterThan(fv.Config.ReconcileTolerance) {
		out = append(out, RuleViolation{
			Rule:     "tax_recomputation",
			Field:    "totals.social_security_tax",
			Message:  "reported social security tax drifts from recomputed value",
			Expected: expectSS.StringFixed(2),
			Actual:   t.SocialSecurityTax.StringFixed(2),
		})
	}

	expectMedicare := t.MedicareWages.Mul(fv.Config.MedicareRate).Mul(two).Round(2)
	if t.MedicareTax.Sub(expectMedicare).Abs().GreaterThan(fv.Config.ReconcileTolerance) {
		out = append(out, RuleViolation{
			Rule:     "tax_recomputation",
			Field:    "totals.medicare_tax",
			Message:  "reported medicare tax drifts from recomputed value",
			Expected: expectMedicare.StringFixed(2),
			Actual:   t.MedicareTax.StringFixed(2),
		})
	}
	return out
}
