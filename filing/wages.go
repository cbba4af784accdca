/*
wages.go - Payroll transaction aggregation

PURPOSE:
  Reduces a tenant's payroll transactions for a period into wage and
  withholding totals, grouped the two ways downstream components need:
  per employee (additional Medicare thresholds) and per pay date (deposit
  liabilities). Read-only over the payroll source; no side effects.

DETERMINISM:
  The same transactions always reduce to the same summary. Groupings are
  sorted (employees by id, runs by pay date) so repeated calculation of the
  same period is byte-identical - required for idempotent recalculation.

ZERO WAGES vs NO DATA:
  Zero transactions is a valid result (a quarter with no payroll). Callers
  that must distinguish "nothing happened" from "feed is missing" pass
  RequireData and get ErrNoPayrollData back.

SEE ALSO:
  - calc.go: Consumes WageSummary
  - deposit.go: Consumes the per-run grouping
*/
package filing

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// COLLABORATOR INTERFACE - External payroll data source
// =============================================================================

// TenantID identifies a tenant. All reads are scoped by it.
type TenantID string

// PayrollTransaction is one employee payment in one payroll run.
type PayrollTransaction struct {
	EmployeeID        string
	PayDate           time.Time
	GrossPay          decimal.Decimal
	FederalTax        decimal.Decimal
	SocialSecurityTax decimal.Decimal
	MedicareTax       decimal.Decimal
}

// PayrollSource is the read-only feed of payroll history.
// Implementations: store/sqlite (production), filing/store (tests).
type PayrollSource interface {
	// GetTransactions returns all transactions with a pay date in
	// [periodStart, periodEnd] for the tenant. Order is unspecified;
	// the aggregator sorts.
	GetTransactions(ctx context.Context, tenant TenantID, periodStart, periodEnd time.Time) ([]PayrollTransaction, error)
}

// =============================================================================
// WAGE SUMMARY - Raw reduction output
// =============================================================================

// EmployeeWages is one employee's period totals.
type EmployeeWages struct {
	EmployeeID string
	Wages      decimal.Decimal
	FederalTax decimal.Decimal
}

// PayRun is the per-pay-date grouping used for deposit liabilities.
type PayRun struct {
	PayDate    time.Time
	Gross      decimal.Decimal
	FederalTax decimal.Decimal
}

// WageSummary is the deterministic reduction of a period's payroll feed.
type WageSummary struct {
	EmployeeCount            int
	TotalWages               decimal.Decimal
	FederalIncomeTaxWithheld decimal.Decimal

	// Withheld FICA as reported by payroll. The engine recomputes statutory
	// amounts; these are kept for drift detection.
	WithheldSocialSecurity decimal.Decimal
	WithheldMedicare       decimal.Decimal

	// Sorted by EmployeeID.
	Employees []EmployeeWages

	// Sorted by PayDate.
	Runs []PayRun
}

// =============================================================================
// WAGE AGGREGATOR
// =============================================================================

// AggregateOptions controls aggregation behavior.
type AggregateOptions struct {
	// RequireData makes an empty feed an ErrNoPayrollData failure instead
	// of a valid zero-wage summary.
	RequireData bool
}

// WageAggregator reduces payroll transactions to a WageSummary.
type WageAggregator struct {
	Source PayrollSource
}

// NewWageAggregator wraps a payroll source.
func NewWageAggregator(source PayrollSource) *WageAggregator {
	return &WageAggregator{Source: source}
}

// Aggregate reduces all transactions for tenant+period.
func (wa *WageAggregator) Aggregate(ctx context.Context, tenant TenantID, period TaxPeriod, opts AggregateOptions) (WageSummary, error) {
	txs, err := wa.Source.GetTransactions(ctx, tenant, period.Start, period.End)
	if err != nil {
		return WageSummary{}, fmt.Errorf("payroll source: %w", err)
	}
	if len(txs) == 0 && opts.RequireData {
		return WageSummary{}, fmt.Errorf("tenant %s period %s: %w", tenant, period, ErrNoPayrollData)
	}

	summary := WageSummary{
		TotalWages:               decimal.Zero,
		FederalIncomeTaxWithheld: decimal.Zero,
		WithheldSocialSecurity:   decimal.Zero,
		WithheldMedicare:         decimal.Zero,
	}

	byEmployee := make(map[string]*EmployeeWages)
	byPayDate := make(map[time.Time]*PayRun)

	for _, tx := range txs {
		// Defensive: the source contract already filters by pay date, but a
		// transaction outside the period would silently corrupt totals.
		if !period.Contains(tx.PayDate) {
			continue
		}

		summary.TotalWages = summary.TotalWages.Add(tx.GrossPay)
		summary.FederalIncomeTaxWithheld = summary.FederalIncomeTaxWithheld.Add(tx.FederalTax)
		summary.WithheldSocialSecurity = summary.WithheldSocialSecurity.Add(tx.SocialSecurityTax)
		summary.WithheldMedicare = summary.WithheldMedicare.Add(tx.MedicareTax)

		ew := byEmployee[tx.EmployeeID]
		if ew == nil {
			ew = &EmployeeWages{EmployeeID: tx.EmployeeID, Wages: decimal.Zero, FederalTax: decimal.Zero}
			byEmployee[tx.EmployeeID] = ew
		}
		ew.Wages = ew.Wages.Add(tx.GrossPay)
		ew.FederalTax = ew.FederalTax.Add(tx.FederalTax)

		day := dateOnly(tx.PayDate)
		run := byPayDate[day]
		if run == nil {
			run = &PayRun{PayDate: day, Gross: decimal.Zero, FederalTax: decimal.Zero}
			byPayDate[day] = run
		}
		run.Gross = run.Gross.Add(tx.GrossPay)
		run.FederalTax = run.FederalTax.Add(tx.FederalTax)
	}

	summary.EmployeeCount = len(byEmployee)
	for _, ew := range byEmployee {
		summary.Employees = append(summary.Employees, *ew)
	}
	sort.Slice(summary.Employees, func(i, j int) bool {
		return summary.Employees[i].EmployeeID < summary.Employees[j].EmployeeID
	})

	for _, run := range byPayDate {
		summary.Runs = append(summary.Runs, *run)
	}
	sort.Slice(summary.Runs, func(i, j int) bool {
		return summary.Runs[i].PayDate.Before(summary.Runs[j].PayDate)
	})

	return summary, nil
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
