/*
config.go - Statutory rates and thresholds as injected configuration

PURPOSE:
  Every rate, cap, and threshold the engine applies lives here, not in code.
  Statutory values change yearly; a new rate table is loaded (see factory/)
  without touching the calculation logic.

PRECISION:
  All values are decimal.Decimal. Rates are per-side fractions (0.062, not
  6.2). The engine doubles FICA components itself.

SEE ALSO:
  - calc.go: The only consumer of the FICA fields
  - deposit.go: Uses DepositThreshold
  - factory/ratetable.go: Parses versioned per-year JSON into this struct
*/
package filing

import "github.com/shopspring/decimal"

// =============================================================================
// TAX CONFIG - One per tax year
// =============================================================================

// TaxConfig carries the statutory parameters for a single tax year.
type TaxConfig struct {
	Year int

	// Social Security (per-side rate, annual wage base cap).
	SocialSecurityRate     decimal.Decimal
	SocialSecurityWageBase decimal.Decimal

	// Medicare (per-side rate, no cap).
	MedicareRate decimal.Decimal

	// Additional Medicare (employee-only, above threshold; the threshold is
	// the business filing status threshold, single-filer by default).
	AdditionalMedicareRate      decimal.Decimal
	AdditionalMedicareThreshold decimal.Decimal

	// Annual unemployment form family (FUTA-style): per-employee annual wage
	// base and the rate net of the standard credit.
	UnemploymentWageBase decimal.Decimal
	UnemploymentRate     decimal.Decimal

	// Prior-year liability above this selects the semiweekly deposit cadence.
	DepositThreshold decimal.Decimal

	// Absolute tolerance for the validator's tax recomputation check.
	// Catches drift/corruption, not cent rounding.
	ReconcileTolerance decimal.Decimal

	// Supported filing window.
	MinYear int
	MaxYear int
}

// DefaultTaxConfig returns the statutory values in force for recent years.
// Production deployments load these from a versioned rate table instead.
func DefaultTaxConfig(year int) TaxConfig {
	return TaxConfig{
		Year:                        year,
		SocialSecurityRate:          decimal.NewFromFloat(0.062),
		SocialSecurityWageBase:      decimal.NewFromInt(168600),
		MedicareRate:                decimal.NewFromFloat(0.0145),
		AdditionalMedicareRate:      decimal.NewFromFloat(0.009),
		AdditionalMedicareThreshold: decimal.NewFromInt(200000),
		UnemploymentWageBase:        decimal.NewFromInt(7000),
		UnemploymentRate:            decimal.NewFromFloat(0.006),
		DepositThreshold:            decimal.NewFromInt(50000),
		ReconcileTolerance:          decimal.NewFromInt(1),
		MinYear:                     year - 1,
		MaxYear:                     year + 1,
	}
}

// Periods returns a period calculator bound to the supported-year window.
func (c TaxConfig) Periods() PeriodCalculator {
	return NewPeriodCalculator(c.MinYear, c.MaxYear)
}
