/*
Package form940 implements the annual unemployment tax return family.

PURPOSE:
  The annual family shares the core engine with the quarterly family - same
  aggregation, same FICA primitives, same deposit reconciliation - but adds
  the unemployment body: per-employee wages capped at the unemployment wage
  base, taxed at the rate net of the standard credit. Annual filings have no
  Schedule B.

SEE ALSO:
  - form941/: The quarterly sibling
  - filing/calc.go: Unemployment primitives this package drives
*/
package form940

import (
	"fmt"

	"github.com/warp/filing-engine/filing"
)

// =============================================================================
// ANNUAL ASSEMBLER
// =============================================================================

// Assembler builds the annual form body. Implements filing.FormAssembler.
type Assembler struct {
	Engine *filing.TaxCalculationEngine
}

var _ filing.FormAssembler = (*Assembler)(nil)

// New returns an annual assembler bound to a rate table.
func New(cfg filing.TaxConfig) *Assembler {
	return &Assembler{Engine: filing.NewTaxCalculationEngine(cfg)}
}

func (a *Assembler) FormType() filing.FormType { return filing.FormAnnualUnemployment }

// Assemble fills the FICA recap and the unemployment body.
func (a *Assembler) Assemble(record *filing.FilingRecord, summary filing.WageSummary, _ filing.EmployerAccount) {
	record.Totals = a.Engine.Calculate(summary, record.Period)
	record.UnemploymentTaxableWages = a.Engine.UnemploymentTaxableWages(summary)
	record.UnemploymentTax = a.Engine.UnemploymentTax(record.UnemploymentTaxableWages)
}

// Rules returns the annual-specific checks.
func (a *Assembler) Rules() []filing.Rule {
	return []filing.Rule{
		{Name: "annual_period", Check: checkAnnualPeriod},
		{Name: "unemployment_wages", Check: a.checkUnemploymentWages},
		{Name: "unemployment_recomputation", Check: a.checkUnemploymentTax},
	}
}

func checkAnnualPeriod(record *filing.FilingRecord, _ filing.EmployerAccount) []filing.RuleViolation {
	if record.Period.IsAnnual() {
		return nil
	}
	return []filing.RuleViolation{{
		Rule:    "annual_period",
		Field:   "period.quarter",
		Message: "annual form covers a full calendar year",
		Actual:  fmt.Sprintf("%d", record.Period.Quarter),
	}}
}

func (a *Assembler) checkUnemploymentWages(record *filing.FilingRecord, _ filing.EmployerAccount) []filing.RuleViolation {
	if record.UnemploymentTaxableWages.LessThanOrEqual(record.Totals.TotalWages) {
		return nil
	}
	return []filing.RuleViolation{{
		Rule:     "unemployment_wages",
		Field:    "unemployment_taxable_wages",
		Message:  "taxable unemployment wages exceed total wages",
		Expected: "<= " + record.Totals.TotalWages.StringFixed(2),
		Actual:   record.UnemploymentTaxableWages.StringFixed(2),
	}}
}

func (a *Assembler) checkUnemploymentTax(record *filing.FilingRecord, _ filing.EmployerAccount) []filing.RuleViolation {
	expect := a.Engine.UnemploymentTax(record.UnemploymentTaxableWages)
	if record.UnemploymentTax.Sub(expect).Abs().LessThanOrEqual(a.Engine.Config.ReconcileTolerance) {
		return nil
	}
	return []filing.RuleViolation{{
		Rule:     "unemployment_recomputation",
		Field:    "unemployment_tax",
		Message:  "reported unemployment tax drifts from recomputed value",
		Expected: expect.StringFixed(2),
		Actual:   record.UnemploymentTax.StringFixed(2),
	}}
}
