/*
Package factory provides JSON to Go rate-table conversion.

PURPOSE:
  Converts versioned per-year JSON rate tables into filing.TaxConfig.
  Statutory rates and thresholds change yearly; operations load a new table
  without code changes, and old tables stay available for amended filings
  against prior years.

JSON SCHEMA:
  {
    "year": 2025,
    "social_security_rate": "0.062",
    "social_security_wage_base": "168600",
    "medicare_rate": "0.0145",
    "additional_medicare_rate": "0.009",
    "additional_medicare_threshold": "200000",
    "unemployment_wage_base": "7000",
    "unemployment_rate": "0.006",
    "deposit_threshold": "50000",
    "reconcile_tolerance": "1.00",
    "min_year": 2024,
    "max_year": 2026
  }

  Rates are strings to keep decimal precision through JSON.

USAGE:
  cfg, err := factory.ParseRateTable(jsonBytes)
  engine := filing.NewTaxCalculationEngine(cfg)

SEE ALSO:
  - filing/config.go: The target struct and compiled-in defaults
*/
package factory

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/filing-engine/filing"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// RateTableJSON is the JSON representation of a year's rate table.
type RateTableJSON struct {
	Year                        int    `json:"year"`
	SocialSecurityRate          string `json:"social_security_rate"`
	SocialSecurityWageBase      string `json:"social_security_wage_base"`
	MedicareRate                string `json:"medicare_rate"`
	AdditionalMedicareRate      string `json:"additional_medicare_rate"`
	AdditionalMedicareThreshold string `json:"additional_medicare_threshold"`
	UnemploymentWageBase        string `json:"unemployment_wage_base"`
	UnemploymentRate            string `json:"unemployment_rate"`
	DepositThreshold            string `json:"deposit_threshold"`
	ReconcileTolerance          string `json:"reconcile_tolerance,omitempty"`
	MinYear                     int    `json:"min_year,omitempty"`
	MaxYear                     int    `json:"max_year,omitempty"`
}

// =============================================================================
// PARSING
// =============================================================================

// ParseRateTable converts a JSON rate table into a TaxConfig.
// Missing optional fields fall back to the compiled-in defaults for the
// table's year.
func ParseRateTable(data []byte) (filing.TaxConfig, error) {
	var rt RateTableJSON
	if err := json.Unmarshal(data, &rt); err != nil {
		return filing.TaxConfig{}, fmt.Errorf("rate table: invalid JSON: %w", err)
	}
	if rt.Year == 0 {
		return filing.TaxConfig{}, fmt.Errorf("rate table: year is required")
	}

	cfg := filing.DefaultTaxConfig(rt.Year)
	if rt.MinYear != 0 {
		cfg.MinYear = rt.MinYear
	}
	if rt.MaxYear != 0 {
		cfg.MaxYear = rt.MaxYear
	}

	fields := []struct {
		name  string
		raw   string
		field *decimal.Decimal
	}{
		{"social_security_rate", rt.SocialSecurityRate, &cfg.SocialSecurityRate},
		{"social_security_wage_base", rt.SocialSecurityWageBase, &cfg.SocialSecurityWageBase},
		{"medicare_rate", rt.MedicareRate, &cfg.MedicareRate},
		{"additional_medicare_rate", rt.AdditionalMedicareRate, &cfg.AdditionalMedicareRate},
		{"additional_medicare_threshold", rt.AdditionalMedicareThreshold, &cfg.AdditionalMedicareThreshold},
		{"unemployment_wage_base", rt.UnemploymentWageBase, &cfg.UnemploymentWageBase},
		{"unemployment_rate", rt.UnemploymentRate, &cfg.UnemploymentRate},
		{"deposit_threshold", rt.DepositThreshold, &cfg.DepositThreshold},
		{"reconcile_tolerance", rt.ReconcileTolerance, &cfg.ReconcileTolerance},
	}
	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		d, err := decimal.NewFromString(f.raw)
		if err != nil {
			return filing.TaxConfig{}, fmt.Errorf("rate table: %s: %w", f.name, err)
		}
		if d.IsNegative() {
			return filing.TaxConfig{}, fmt.Errorf("rate table: %s must not be negative", f.name)
		}
		*f.field = d
	}

	return cfg, nil
}
