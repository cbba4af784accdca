package factory_test

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/warp/filing-engine/factory"
	"github.com/warp/filing-engine/filing"
)

func amt(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestParseRateTable_FullTable(t *testing.T) {
	// GIVEN: A complete 2025 table with a raised wage base
	// THEN: Every field overrides the compiled-in defaults

	cfg, err := factory.ParseRateTable([]byte(`{
		"year": 2025,
		"social_security_rate": "0.062",
		"social_security_wage_base": "176100",
		"medicare_rate": "0.0145",
		"additional_medicare_rate": "0.009",
		"additional_medicare_threshold": "200000",
		"unemployment_wage_base": "7000",
		"unemployment_rate": "0.006",
		"deposit_threshold": "50000",
		"reconcile_tolerance": "0.50",
		"min_year": 2023,
		"max_year": 2026
	}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if cfg.Year != 2025 {
		t.Errorf("year: got %d", cfg.Year)
	}
	if !cfg.SocialSecurityWageBase.Equal(amt("176100")) {
		t.Errorf("wage base: got %s", cfg.SocialSecurityWageBase)
	}
	if !cfg.ReconcileTolerance.Equal(amt("0.50")) {
		t.Errorf("tolerance: got %s", cfg.ReconcileTolerance)
	}
	if cfg.MinYear != 2023 || cfg.MaxYear != 2026 {
		t.Errorf("year window: got %d..%d", cfg.MinYear, cfg.MaxYear)
	}
}

func TestParseRateTable_MissingFieldsUseDefaults(t *testing.T) {
	cfg, err := factory.ParseRateTable([]byte(`{"year": 2024, "deposit_threshold": "100000"}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	defaults := filing.DefaultTaxConfig(2024)
	if !cfg.DepositThreshold.Equal(amt("100000")) {
		t.Errorf("override: got %s", cfg.DepositThreshold)
	}
	if !cfg.SocialSecurityRate.Equal(defaults.SocialSecurityRate) {
		t.Errorf("rate fell away from defaults: %s", cfg.SocialSecurityRate)
	}
	if !cfg.UnemploymentWageBase.Equal(defaults.UnemploymentWageBase) {
		t.Errorf("wage base fell away from defaults: %s", cfg.UnemploymentWageBase)
	}
	if cfg.MinYear != defaults.MinYear || cfg.MaxYear != defaults.MaxYear {
		t.Errorf("year window: got %d..%d", cfg.MinYear, cfg.MaxYear)
	}
}

func TestParseRateTable_YearRequired(t *testing.T) {
	_, err := factory.ParseRateTable([]byte(`{"social_security_rate": "0.062"}`))
	if err == nil || !strings.Contains(err.Error(), "year is required") {
		t.Fatalf("expected missing-year error, got %v", err)
	}
}

func TestParseRateTable_NegativeRateRejected(t *testing.T) {
	_, err := factory.ParseRateTable([]byte(`{"year": 2024, "medicare_rate": "-0.0145"}`))
	if err == nil || !strings.Contains(err.Error(), "medicare_rate") {
		t.Fatalf("expected negative-rate error, got %v", err)
	}
}

func TestParseRateTable_InvalidDecimalRejected(t *testing.T) {
	_, err := factory.ParseRateTable([]byte(`{"year": 2024, "deposit_threshold": "fifty thousand"}`))
	if err == nil || !strings.Contains(err.Error(), "deposit_threshold") {
		t.Fatalf("expected decimal error, got %v", err)
	}
}

func TestParseRateTable_MalformedJSON(t *testing.T) {
	_, err := factory.ParseRateTable([]byte(`{"year":`))
	if err == nil || !strings.Contains(err.Error(), "invalid JSON") {
		t.Fatalf("expected JSON error, got %v", err)
	}
}
