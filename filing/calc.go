/*
calc.go - Statutory tax calculation

PURPOSE:
  Pure function from aggregated wages to the liability breakdown. Applies
  the Social Security wage cap, the uncapped Medicare rate, and the
  per-employee additional Medicare threshold.

RATE CONVENTIONS:
  Config rates are per-side. Reported Social Security and Medicare tax are
  the COMBINED employer+employee amounts (wages x 2 x rate), matching the
  return's tax columns. Additional Medicare is employee-only - no employer
  match - so it is never doubled.

THRESHOLD PRORATION:
  The additional Medicare threshold is annual. Quarterly forms apply
  threshold/4 against each employee's quarter wages; annual forms apply the
  full threshold.

ROUNDING:
  Each component is rounded to cents when produced. The total is the exact
  sum of the rounded components, so the tax identity holds with no drift.

SEE ALSO:
  - config.go: Rates and thresholds
  - validate.go: Recomputes these amounts as a corruption check
*/
package filing

import "github.com/shopspring/decimal"

// =============================================================================
// WAGE TOTALS - The liability breakdown on the return
// =============================================================================

// WageTotals is the computed wage/tax line set for one filing.
// Produced once per calculation request, never incrementally mutated.
type WageTotals struct {
	EmployeeCount            int             `json:"employee_count"`
	TotalWages               decimal.Decimal `json:"total_wages"`
	FederalIncomeTaxWithheld decimal.Decimal `json:"federal_income_tax_withheld"`
	SocialSecurityWages      decimal.Decimal `json:"social_security_wages"`
	SocialSecurityTax        decimal.Decimal `json:"social_security_tax"`
	MedicareWages            decimal.Decimal `json:"medicare_wages"`
	MedicareTax              decimal.Decimal `json:"medicare_tax"`
	AdditionalMedicareTax    decimal.Decimal `json:"additional_medicare_tax"`
}

// TotalTax returns FIT + combined Social Security + combined Medicare +
// additional Medicare. This is the tax-before-adjustments identity.
func (w WageTotals) TotalTax() decimal.Decimal {
	return w.FederalIncomeTaxWithheld.
		Add(w.SocialSecurityTax).
		Add(w.MedicareTax).
		Add(w.AdditionalMedicareTax)
}

// =============================================================================
// TAX CALCULATION ENGINE
// =============================================================================

// TaxCalculationEngine applies statutory rates to aggregated wages.
// Stateless; safe for concurrent use across tenants and periods.
type TaxCalculationEngine struct {
	Config TaxConfig
}

// NewTaxCalculationEngine binds an engine to a year's rate table.
func NewTaxCalculationEngine(cfg TaxConfig) *TaxCalculationEngine {
	return &TaxCalculationEngine{Config: cfg}
}

// Calculate produces the liability breakdown for a period's wage summary.
func (e *TaxCalculationEngine) Calculate(summary WageSummary, period TaxPeriod) WageTotals {
	cfg := e.Config
	two := decimal.NewFromInt(2)

	// Social Security: capped at the annual wage base, both sides.
	ssWages := decimal.Min(summary.TotalWages, cfg.SocialSecurityWageBase)
	ssTax := ssWages.Mul(cfg.SocialSecurityRate).Mul(two).Round(2)

	// Medicare: no cap, both sides.
	medicareWages := summary.TotalWages
	medicareTax := medicareWages.Mul(cfg.MedicareRate).Mul(two).Round(2)

	return WageTotals{
		EmployeeCount:            summary.EmployeeCount,
		TotalWages:               summary.TotalWages.Round(2),
		FederalIncomeTaxWithheld: summary.FederalIncomeTaxWithheld.Round(2),
		SocialSecurityWages:      ssWages.Round(2),
		SocialSecurityTax:        ssTax,
		MedicareWages:            medicareWages.Round(2),
		MedicareTax:              medicareTax,
		AdditionalMedicareTax:    e.additionalMedicare(summary, period),
	}
}

// additionalMedicare sums, per employee, the rate applied to wages above the
// (prorated) threshold. Employee-side only.
func (e *TaxCalculationEngine) additionalMedicare(summary WageSummary, period TaxPeriod) decimal.Decimal {
	threshold := e.Config.AdditionalMedicareThreshold
	if !period.IsAnnual() {
		threshold = threshold.Div(decimal.NewFromInt(4))
	}

	total := decimal.Zero
	for _, emp := range summary.Employees {
		excess := emp.Wages.Sub(threshold)
		if excess.IsPositive() {
			total = total.Add(excess.Mul(e.Config.AdditionalMedicareRate).Round(2))
		}
	}
	return total
}

// =============================================================================
// UNEMPLOYMENT (ANNUAL FORM) PRIMITIVES
// =============================================================================

// UnemploymentTaxableWages caps each employee's wages at the per-employee
// annual unemployment wage base and sums the result.
func (e *TaxCalculationEngine) UnemploymentTaxableWages(summary WageSummary) decimal.Decimal {
	total := decimal.Zero
	for _, emp := range summary.Employees {
		total = total.Add(decimal.Min(emp.Wages, e.Config.UnemploymentWageBase))
	}
	return total.Round(2)
}

// UnemploymentTax applies the net unemployment rate to taxable wages.
func (e *TaxCalculationEngine) UnemploymentTax(taxableWages decimal.Decimal) decimal.Decimal {
	return taxableWages.Mul(e.Config.UnemploymentRate).Round(2)
}
