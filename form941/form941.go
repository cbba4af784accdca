// Package form941 implements the quarterly employment tax return family.
// It layers quarterly assembly and validation on the shared filing core.
package form941

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/filing-engine/filing"
)

// =============================================================================
// QUARTERLY ASSEMBLER
// =============================================================================

// Assembler builds the quarterly form body from the shared core outputs.
// Implements filing.FormAssembler.
type Assembler struct {
	Engine *filing.TaxCalculationEngine
}

var _ filing.FormAssembler = (*Assembler)(nil)

// New returns a quarterly assembler bound to a rate table.
func New(cfg filing.TaxConfig) *Assembler {
	return &Assembler{Engine: filing.NewTaxCalculationEngine(cfg)}
}

func (a *Assembler) FormType() filing.FormType { return filing.FormQuarterly }

// Assemble fills the FICA line set. The quarterly family carries no
// unemployment body.
func (a *Assembler) Assemble(record *filing.FilingRecord, summary filing.WageSummary, _ filing.EmployerAccount) {
	record.Totals = a.Engine.Calculate(summary, record.Period)
	record.UnemploymentTaxableWages = decimal.Zero
	record.UnemploymentTax = decimal.Zero
}

// Rules returns the quarterly-specific checks, run after the base set.
func (a *Assembler) Rules() []filing.Rule {
	return []filing.Rule{
		{Name: "quarterly_period", Check: checkQuarterlyPeriod},
		{Name: "fractions_of_cents", Check: checkFractionsOfCents},
	}
}

func checkQuarterlyPeriod(record *filing.FilingRecord, _ filing.EmployerAccount) []filing.RuleViolation {
	if record.Period.Quarter >= 1 && record.Period.Quarter <= 4 {
		return nil
	}
	return []filing.RuleViolation{{
		Rule:    "quarterly_period",
		Field:   "period.quarter",
		Message: "quarterly form requires quarter 1-4",
		Actual:  fmt.Sprintf("%d", record.Period.Quarter),
	}}
}

// checkFractionsOfCents bounds the rounding adjustment line. Anything beyond
// a dollar is a data problem, not rounding.
func checkFractionsOfCents(record *filing.FilingRecord, _ filing.EmployerAccount) []filing.RuleViolation {
	limit := decimal.NewFromInt(1)
	if record.Adjustments.FractionsOfCents.Abs().LessThanOrEqual(limit) {
		return nil
	}
	return []filing.RuleViolation{{
		Rule:     "fractions_of_cents",
		Field:    "adjustments.fractions_of_cents",
		Message:  "fractions-of-cents adjustment exceeds rounding scale",
		Expected: "abs <= 1.00",
		Actual:   record.Adjustments.FractionsOfCents.StringFixed(2),
	}}
}
