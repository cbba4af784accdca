package filing_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/warp/filing-engine/filing"
)

// =============================================================================
// SCHEDULE SELECTION - Strict $50,000 boundary
// =============================================================================

func TestSelectDepositSchedule_Boundary(t *testing.T) {
	// GIVEN: The $50,000 lookback threshold
	// THEN: Exactly 50,000.00 stays monthly; 50,000.01 flips to semiweekly

	cfg := cfg2024()

	cases := []struct {
		liability string
		want      filing.DepositSchedule
	}{
		{"0.00", filing.DepositMonthly},
		{"49999.99", filing.DepositMonthly},
		{"50000.00", filing.DepositMonthly},
		{"50000.01", filing.DepositSemiweekly},
		{"1000000.00", filing.DepositSemiweekly},
	}
	for _, c := range cases {
		got := filing.SelectDepositSchedule(amt(c.liability), cfg)
		if got != c.want {
			t.Errorf("liability %s: got %s, want %s", c.liability, got, c.want)
		}
	}
}

// =============================================================================
// SEMIWEEKLY DUE-DATE RULE - All seven weekdays
// =============================================================================

func TestSemiweeklyDueDate_AllWeekdays(t *testing.T) {
	// GIVEN: Pay dates covering every weekday (2024-01-01 is a Monday)
	// THEN: Wed/Thu/Fri map to the following Wednesday, the rest to the
	//       following Friday, and the due date is always strictly later

	cases := []struct {
		payDate string
		due     string
	}{
		{"2024-01-01", "2024-01-05"}, // Mon -> Fri
		{"2024-01-02", "2024-01-05"}, // Tue -> Fri
		{"2024-01-03", "2024-01-10"}, // Wed -> next Wed
		{"2024-01-04", "2024-01-10"}, // Thu -> next Wed
		{"2024-01-05", "2024-01-10"}, // Fri -> next Wed
		{"2024-01-06", "2024-01-12"}, // Sat -> Fri
		{"2024-01-07", "2024-01-12"}, // Sun -> Fri
	}
	for _, c := range cases {
		pay := day(c.payDate)
		due := filing.SemiweeklyDueDate(pay)
		if got := due.Format("2006-01-02"); got != c.due {
			t.Errorf("%s (%s): got %s, want %s", c.payDate, pay.Weekday(), got, c.due)
		}
		if !due.After(pay) {
			t.Errorf("%s: due date %s is not strictly after the pay date", c.payDate, due)
		}
	}
}

// =============================================================================
// MONTHLY DEPOSITS
// =============================================================================

func TestBuild_Monthly_OneEntryPerMonth(t *testing.T) {
	// GIVEN: The biweekly Q1 scenario on a monthly depositor
	// WHEN: Building deposits for the 4554.00 total
	// THEN: Three entries, each due the 15th of the following month,
	//       summing exactly to the total; no Schedule B

	period := q1_2024(t)
	summary := aggregate(t, period, biweeklyQ1())
	totals := filing.NewTaxCalculationEngine(cfg2024()).Calculate(summary, period)

	calc := filing.NewDepositScheduleCalculator(cfg2024())
	deposits, scheduleB := calc.Build(filing.DepositMonthly, summary, period, totals.TotalTax())

	if scheduleB != nil {
		t.Error("monthly cadence must not produce a Schedule B")
	}
	if len(deposits) != 3 {
		t.Fatalf("expected 3 monthly deposits, got %d", len(deposits))
	}

	wantDue := []string{"2024-02-15", "2024-03-15", "2024-04-15"}
	sum := decimal.Zero
	for i, d := range deposits {
		if got := d.DueDate.Format("2006-01-02"); got != wantDue[i] {
			t.Errorf("deposit %d due: got %s, want %s", i, got, wantDue[i])
		}
		// Two pay runs of 759.00 each per month.
		expectAmount(t, "deposit "+d.Covers, d.Amount, "1518.00")
		sum = sum.Add(d.Amount)
	}
	expectAmount(t, "deposit sum", sum, "4554.00")
}

func TestBuild_Monthly_EmptyMonthsStillEmitted(t *testing.T) {
	// GIVEN: Payroll only in February
	// THEN: January and March entries appear with zero amounts

	period := q1_2024(t)
	summary := aggregate(t, period, []filing.PayrollTransaction{
		tx("emp-1", "2024-02-15", "3000.00", "300.00"),
	})
	totals := filing.NewTaxCalculationEngine(cfg2024()).Calculate(summary, period)

	calc := filing.NewDepositScheduleCalculator(cfg2024())
	deposits, _ := calc.Build(filing.DepositMonthly, summary, period, totals.TotalTax())

	if len(deposits) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(deposits))
	}
	if !deposits[0].Amount.IsZero() || !deposits[2].Amount.IsZero() {
		t.Errorf("expected zero amounts for empty months, got %s / %s",
			deposits[0].Amount, deposits[2].Amount)
	}
	expectAmount(t, "february", deposits[1].Amount, "759.00")
}

// =============================================================================
// SEMIWEEKLY DEPOSITS AND SCHEDULE B
// =============================================================================

func TestBuild_Semiweekly_PerRunEntriesReconcile(t *testing.T) {
	// GIVEN: The biweekly Q1 scenario on a semiweekly depositor
	// THEN: One entry per pay date, Schedule B present, and deposits,
	//       daily entries, month totals and quarter total all reconcile

	period := q1_2024(t)
	summary := aggregate(t, period, biweeklyQ1())
	totalTax := filing.NewTaxCalculationEngine(cfg2024()).Calculate(summary, period).TotalTax()

	calc := filing.NewDepositScheduleCalculator(cfg2024())
	deposits, scheduleB := calc.Build(filing.DepositSemiweekly, summary, period, totalTax)

	if len(deposits) != 6 {
		t.Fatalf("expected 6 per-run deposits, got %d", len(deposits))
	}
	sum := decimal.Zero
	for _, d := range deposits {
		sum = sum.Add(d.Amount)
		payDate := day(d.Covers)
		if want := filing.SemiweeklyDueDate(payDate); !d.DueDate.Equal(want) {
			t.Errorf("pay date %s: due %s, want %s", d.Covers,
				d.DueDate.Format("2006-01-02"), want.Format("2006-01-02"))
		}
	}
	if !sum.Equal(totalTax) {
		t.Errorf("deposit sum %s != total tax %s", sum, totalTax)
	}

	if scheduleB == nil {
		t.Fatal("semiweekly cadence requires a Schedule B")
	}
	if len(scheduleB.Months) != 3 {
		t.Fatalf("expected 3 months in Schedule B, got %d", len(scheduleB.Months))
	}
	monthSum := decimal.Zero
	for _, m := range scheduleB.Months {
		daySum := decimal.Zero
		for _, dd := range m.Days {
			daySum = daySum.Add(dd.Amount)
		}
		if !daySum.Equal(m.Total) {
			t.Errorf("month %d: day sum %s != month total %s", m.MonthIndex, daySum, m.Total)
		}
		monthSum = monthSum.Add(m.Total)
	}
	if !monthSum.Equal(scheduleB.QuarterTotal) {
		t.Errorf("month sum %s != quarter total %s", monthSum, scheduleB.QuarterTotal)
	}
	if !scheduleB.QuarterTotal.Equal(totalTax) {
		t.Errorf("quarter total %s != total tax %s", scheduleB.QuarterTotal, totalTax)
	}
}

func TestBuild_Semiweekly_ResidualFoldedIntoLastEntry(t *testing.T) {
	// GIVEN: Wages past the Social Security cap plus additional Medicare,
	//        so per-run naive liabilities cannot sum to the period total
	// THEN: The residual lands in the final entry and the sum is exact

	period := q1_2024(t)
	summary := aggregate(t, period, []filing.PayrollTransaction{
		tx("emp-1", "2024-01-15", "100000.00", "20000.00"),
		tx("emp-1", "2024-02-15", "70000.00", "20000.00"),
	})
	totalTax := filing.NewTaxCalculationEngine(cfg2024()).Calculate(summary, period).TotalTax()

	calc := filing.NewDepositScheduleCalculator(cfg2024())
	deposits, _ := calc.Build(filing.DepositSemiweekly, summary, period, totalTax)

	if len(deposits) != 2 {
		t.Fatalf("expected 2 deposits, got %d", len(deposits))
	}
	naiveSecond := amt("20000.00").Add(amt("70000.00").Mul(amt("0.153"))).Round(2)
	if deposits[1].Amount.Equal(naiveSecond) {
		t.Error("expected the residual folded into the last entry")
	}
	sum := deposits[0].Amount.Add(deposits[1].Amount)
	if !sum.Equal(totalTax) {
		t.Errorf("deposit sum %s != total tax %s", sum, totalTax)
	}
}

func TestBuild_NoRuns_NoDepositsSemiweekly(t *testing.T) {
	// GIVEN: An empty feed on a semiweekly depositor
	// THEN: No deposits, and an empty (but present) Schedule B

	period := q1_2024(t)
	summary := aggregate(t, period, nil)

	calc := filing.NewDepositScheduleCalculator(cfg2024())
	deposits, scheduleB := calc.Build(filing.DepositSemiweekly, summary, period, decimal.Zero)

	if len(deposits) != 0 {
		t.Errorf("expected no deposits, got %d", len(deposits))
	}
	if scheduleB == nil {
		t.Fatal("expected an empty Schedule B, got nil")
	}
	if !scheduleB.QuarterTotal.IsZero() {
		t.Errorf("expected zero quarter total, got %s", scheduleB.QuarterTotal)
	}
}
