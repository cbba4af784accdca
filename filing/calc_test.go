package filing_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/filing-engine/filing"
	"github.com/warp/filing-engine/filing/store"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func cfg2024() filing.TaxConfig {
	return filing.DefaultTaxConfig(2024)
}

func q1_2024(t *testing.T) filing.TaxPeriod {
	t.Helper()
	p, err := cfg2024().Periods().Quarterly(2024, 1)
	if err != nil {
		t.Fatalf("period: %v", err)
	}
	return p
}

func amt(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func day(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func tx(employee, payDate, gross, fit string) filing.PayrollTransaction {
	return filing.PayrollTransaction{
		EmployeeID: employee,
		PayDate:    day(payDate),
		GrossPay:   amt(gross),
		FederalTax: amt(fit),
	}
}

// biweeklyQ1 is one employee paid $3,000 every two weeks, six pay dates
// falling inside Q1.
func biweeklyQ1() []filing.PayrollTransaction {
	dates := []string{
		"2024-01-12", "2024-01-26", "2024-02-09",
		"2024-02-23", "2024-03-08", "2024-03-22",
	}
	var txs []filing.PayrollTransaction
	for _, d := range dates {
		txs = append(txs, tx("emp-1", d, "3000.00", "300.00"))
	}
	return txs
}

func aggregate(t *testing.T, period filing.TaxPeriod, txs []filing.PayrollTransaction) filing.WageSummary {
	t.Helper()
	mem := store.NewMemory()
	mem.AddTransactions("acme", txs...)

	summary, err := filing.NewWageAggregator(mem).Aggregate(
		context.Background(), "acme", period, filing.AggregateOptions{})
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	return summary
}

func expectAmount(t *testing.T, name string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(amt(want)) {
		t.Errorf("%s: got %s, want %s", name, got.StringFixed(2), want)
	}
}

// =============================================================================
// THE BIWEEKLY SCENARIO
// =============================================================================

func TestCalculate_BiweeklyQuarter(t *testing.T) {
	// GIVEN: One employee, $3,000 gross biweekly, $300 FIT withheld,
	//        six pay dates in Q1 2024
	// WHEN: Calculating the quarterly liability
	// THEN: $18,000 wages produce 2232.00 combined Social Security and
	//       522.00 combined Medicare, no additional Medicare

	period := q1_2024(t)
	summary := aggregate(t, period, biweeklyQ1())
	totals := filing.NewTaxCalculationEngine(cfg2024()).Calculate(summary, period)

	if totals.EmployeeCount != 1 {
		t.Errorf("employee count: got %d, want 1", totals.EmployeeCount)
	}
	expectAmount(t, "total wages", totals.TotalWages, "18000.00")
	expectAmount(t, "FIT withheld", totals.FederalIncomeTaxWithheld, "1800.00")
	expectAmount(t, "social security wages", totals.SocialSecurityWages, "18000.00")
	expectAmount(t, "social security tax", totals.SocialSecurityTax, "2232.00")
	expectAmount(t, "medicare wages", totals.MedicareWages, "18000.00")
	expectAmount(t, "medicare tax", totals.MedicareTax, "522.00")
	expectAmount(t, "additional medicare", totals.AdditionalMedicareTax, "0.00")
	expectAmount(t, "total tax", totals.TotalTax(), "4554.00")
}

// =============================================================================
// WAGE CAP
// =============================================================================

func TestCalculate_SocialSecurityWageCap(t *testing.T) {
	// GIVEN: Total wages above the $168,600 annual wage base
	// WHEN: Calculating
	// THEN: Social Security wages cap at the base; Medicare wages do not

	period := q1_2024(t)
	summary := aggregate(t, period, []filing.PayrollTransaction{
		tx("emp-1", "2024-02-15", "170000.00", "40000.00"),
	})
	totals := filing.NewTaxCalculationEngine(cfg2024()).Calculate(summary, period)

	expectAmount(t, "social security wages", totals.SocialSecurityWages, "168600.00")
	expectAmount(t, "social security tax", totals.SocialSecurityTax, "20906.40")
	expectAmount(t, "medicare wages", totals.MedicareWages, "170000.00")
	expectAmount(t, "medicare tax", totals.MedicareTax, "4930.00")
}

func TestCalculate_WagesAtExactCap(t *testing.T) {
	period := q1_2024(t)
	summary := aggregate(t, period, []filing.PayrollTransaction{
		tx("emp-1", "2024-02-15", "168600.00", "0.00"),
	})
	totals := filing.NewTaxCalculationEngine(cfg2024()).Calculate(summary, period)

	expectAmount(t, "social security wages", totals.SocialSecurityWages, "168600.00")
}

// =============================================================================
// ADDITIONAL MEDICARE - Per employee, prorated threshold
// =============================================================================

func TestCalculate_AdditionalMedicare_QuarterlyProration(t *testing.T) {
	// GIVEN: Quarterly threshold is 200,000/4 = 50,000 per employee.
	//        emp-hi has 60,000 quarter wages, emp-lo has 40,000.
	// THEN: Only emp-hi's excess is taxed: 10,000 x 0.009 = 90.00

	period := q1_2024(t)
	summary := aggregate(t, period, []filing.PayrollTransaction{
		tx("emp-hi", "2024-02-15", "60000.00", "0.00"),
		tx("emp-lo", "2024-02-15", "40000.00", "0.00"),
	})
	totals := filing.NewTaxCalculationEngine(cfg2024()).Calculate(summary, period)

	expectAmount(t, "additional medicare", totals.AdditionalMedicareTax, "90.00")
}

func TestCalculate_AdditionalMedicare_AnnualFullThreshold(t *testing.T) {
	// GIVEN: An annual period; the full 200,000 threshold applies
	// THEN: 60,000 annual wages produce no additional Medicare,
	//       250,000 produce 50,000 x 0.009 = 450.00

	annual, err := cfg2024().Periods().Annual(2024)
	if err != nil {
		t.Fatalf("period: %v", err)
	}
	summary := aggregate(t, annual, []filing.PayrollTransaction{
		tx("emp-hi", "2024-06-15", "250000.00", "0.00"),
		tx("emp-lo", "2024-06-15", "60000.00", "0.00"),
	})
	totals := filing.NewTaxCalculationEngine(cfg2024()).Calculate(summary, annual)

	expectAmount(t, "additional medicare", totals.AdditionalMedicareTax, "450.00")
}

// =============================================================================
// UNEMPLOYMENT PRIMITIVES
// =============================================================================

func TestUnemployment_PerEmployeeWageBase(t *testing.T) {
	// GIVEN: Two employees, one above and one below the $7,000 base
	// THEN: Taxable wages cap per employee, tax applies the net rate

	annual, _ := cfg2024().Periods().Annual(2024)
	summary := aggregate(t, annual, []filing.PayrollTransaction{
		tx("emp-1", "2024-03-15", "30000.00", "0.00"),
		tx("emp-2", "2024-03-15", "5000.00", "0.00"),
	})

	engine := filing.NewTaxCalculationEngine(cfg2024())
	taxable := engine.UnemploymentTaxableWages(summary)
	expectAmount(t, "unemployment taxable wages", taxable, "12000.00")
	expectAmount(t, "unemployment tax", engine.UnemploymentTax(taxable), "72.00")
}

// =============================================================================
// AGGREGATION
// =============================================================================

func TestAggregate_DeterministicOrdering(t *testing.T) {
	// GIVEN: Transactions inserted out of order
	// THEN: Employees sort by id and runs by pay date, every time

	period := q1_2024(t)
	txs := []filing.PayrollTransaction{
		tx("emp-b", "2024-03-01", "1000.00", "100.00"),
		tx("emp-a", "2024-01-15", "1000.00", "100.00"),
		tx("emp-a", "2024-03-01", "1000.00", "100.00"),
	}

	first := aggregate(t, period, txs)
	second := aggregate(t, period, txs)

	if len(first.Employees) != 2 || first.Employees[0].EmployeeID != "emp-a" {
		t.Fatalf("expected employees sorted by id, got %+v", first.Employees)
	}
	if len(first.Runs) != 2 || !first.Runs[0].PayDate.Before(first.Runs[1].PayDate) {
		t.Fatalf("expected runs sorted by pay date, got %+v", first.Runs)
	}
	for i := range first.Employees {
		if first.Employees[i].EmployeeID != second.Employees[i].EmployeeID {
			t.Error("aggregation is not deterministic across runs")
		}
	}
}

func TestAggregate_EmptyFeed(t *testing.T) {
	// GIVEN: No transactions for the period
	// THEN: Default aggregation yields a zero summary;
	//       RequireData turns it into ErrNoPayrollData

	period := q1_2024(t)
	mem := store.NewMemory()
	aggregator := filing.NewWageAggregator(mem)

	summary, err := aggregator.Aggregate(context.Background(), "acme", period, filing.AggregateOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.EmployeeCount != 0 || !summary.TotalWages.IsZero() {
		t.Errorf("expected zero summary, got %+v", summary)
	}

	_, err = aggregator.Aggregate(context.Background(), "acme", period, filing.AggregateOptions{RequireData: true})
	if err == nil {
		t.Fatal("expected ErrNoPayrollData")
	}
}

func TestAggregate_TransactionOutsidePeriodIgnored(t *testing.T) {
	period := q1_2024(t)
	summary := aggregate(t, period, []filing.PayrollTransaction{
		tx("emp-1", "2024-02-15", "1000.00", "100.00"),
		tx("emp-1", "2024-04-01", "9999.00", "999.00"), // Q2, excluded
	})
	expectAmount(t, "total wages", summary.TotalWages, "1000.00")
}
