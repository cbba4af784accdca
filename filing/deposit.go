/*
deposit.go - Deposit schedule selection and liability breakdown

PURPOSE:
  Selects the deposit cadence from prior-year liability and splits the
  period's total tax into dated deposit liabilities:

    Monthly:    one entry per calendar month, due the 15th of the next month
    Semiweekly: one entry per payroll pay date, due date by weekday rule,
                plus a Schedule B daily-liability supplement

SELECTION:
  priorYearLiability > threshold ($50,000) selects Semiweekly. The boundary
  is strict: exactly $50,000.00 stays Monthly. One-shot per filing, never
  re-evaluated mid-period.

SEMIWEEKLY DUE-DATE RULE:
  Pay date Wed/Thu/Fri -> the following Wednesday.
  Pay date Sat/Sun/Mon/Tue -> the following Friday.
  Always rolls forward: a pay date already on the target weekday is due the
  NEXT week, never same-day.

RECONCILIATION:
  Per-run liabilities are computed from each run's own withholding and
  statutory rates. The wage cap and additional Medicare only exist at the
  period level, so any residual between the run sum and the period total is
  folded into the final entry. Sum of deposits == total tax, exactly.

SEE ALSO:
  - calc.go: Produces the period total being split
  - validate.go: Enforces the reconciliation invariants
*/
package filing

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// DEPOSIT SCHEDULE
// =============================================================================

// DepositSchedule is the remittance cadence.
type DepositSchedule string

const (
	DepositMonthly    DepositSchedule = "monthly"
	DepositSemiweekly DepositSchedule = "semiweekly"
)

// DepositLiability is one dated remittance obligation.
// Covers is the pay date (semiweekly) or the calendar month (monthly).
type DepositLiability struct {
	DueDate time.Time       `json:"due_date"`
	Amount  decimal.Decimal `json:"amount"`
	Covers  string          `json:"covers"`
}

// SelectDepositSchedule is the one-shot cadence decision.
func SelectDepositSchedule(priorYearLiability decimal.Decimal, cfg TaxConfig) DepositSchedule {
	if priorYearLiability.GreaterThan(cfg.DepositThreshold) {
		return DepositSemiweekly
	}
	return DepositMonthly
}

// =============================================================================
// SCHEDULE B - Daily liability supplement (semiweekly only)
// =============================================================================

// ScheduleBDay is one pay date's liability.
type ScheduleBDay struct {
	Date   time.Time       `json:"date"`
	Amount decimal.Decimal `json:"amount"`
}

// ScheduleBMonth groups daily liabilities by month position in the quarter.
type ScheduleBMonth struct {
	MonthIndex int             `json:"month_index"` // 1, 2, 3 within the quarter
	Days       []ScheduleBDay  `json:"days"`
	Total      decimal.Decimal `json:"total"`
}

// ScheduleB is the daily-liability supplement. Month totals sum to the
// quarter total, which equals the filing's total liability.
type ScheduleB struct {
	Months       []ScheduleBMonth `json:"months"`
	QuarterTotal decimal.Decimal  `json:"quarter_total"`
}

// =============================================================================
// DEPOSIT SCHEDULE CALCULATOR
// =============================================================================

// DepositScheduleCalculator splits total tax into deposit liabilities.
type DepositScheduleCalculator struct {
	Config TaxConfig
}

// NewDepositScheduleCalculator binds a calculator to a rate table.
func NewDepositScheduleCalculator(cfg TaxConfig) *DepositScheduleCalculator {
	return &DepositScheduleCalculator{Config: cfg}
}

// Build returns the deposit liabilities for the period and, for semiweekly
// cadence, the Schedule B supplement (nil otherwise).
func (dc *DepositScheduleCalculator) Build(
	schedule DepositSchedule,
	summary WageSummary,
	period TaxPeriod,
	totalTax decimal.Decimal,
) ([]DepositLiability, *ScheduleB) {
	liabilities := dc.runLiabilities(summary, totalTax)

	if schedule == DepositSemiweekly {
		deposits := make([]DepositLiability, 0, len(liabilities))
		for _, rl := range liabilities {
			deposits = append(deposits, DepositLiability{
				DueDate: SemiweeklyDueDate(rl.payDate),
				Amount:  rl.amount,
				Covers:  rl.payDate.Format("2006-01-02"),
			})
		}
		return deposits, dc.buildScheduleB(liabilities, period)
	}

	return dc.monthlyDeposits(liabilities, period), nil
}

// runLiability pairs a pay date with its share of the period liability.
type runLiability struct {
	payDate time.Time
	amount  decimal.Decimal
}

// runLiabilities computes each run's liability independently, then folds the
// period-level residual (wage cap, additional Medicare) into the last run so
// the sum reconciles exactly with totalTax.
func (dc *DepositScheduleCalculator) runLiabilities(summary WageSummary, totalTax decimal.Decimal) []runLiability {
	if len(summary.Runs) == 0 {
		return nil
	}

	two := decimal.NewFromInt(2)
	ficaRate := dc.Config.SocialSecurityRate.Mul(two).Add(dc.Config.MedicareRate.Mul(two))

	out := make([]runLiability, 0, len(summary.Runs))
	sum := decimal.Zero
	for _, run := range summary.Runs {
		amount := run.FederalTax.Add(run.Gross.Mul(ficaRate)).Round(2)
		sum = sum.Add(amount)
		out = append(out, runLiability{payDate: run.PayDate, amount: amount})
	}

	residual := totalTax.Sub(sum)
	if !residual.IsZero() {
		last := &out[len(out)-1]
		last.amount = last.amount.Add(residual)
	}
	return out
}

// monthlyDeposits emits one entry per calendar month in the period, due the
// 15th of the following month. December wraps into January of the next year.
func (dc *DepositScheduleCalculator) monthlyDeposits(liabilities []runLiability, period TaxPeriod) []DepositLiability {
	byMonth := make(map[string]decimal.Decimal)
	for _, rl := range liabilities {
		key := rl.payDate.Format("2006-01")
		byMonth[key] = byMonth[key].Add(rl.amount)
	}

	var deposits []DepositLiability
	for cursor := period.Start; !cursor.After(period.End); cursor = cursor.AddDate(0, 1, 0) {
		key := cursor.Format("2006-01")
		amount, ok := byMonth[key]
		if !ok {
			amount = decimal.Zero
		}
		deposits = append(deposits, DepositLiability{
			DueDate: date(cursor.Year(), cursor.Month(), 1).AddDate(0, 1, 14),
			Amount:  amount,
			Covers:  key,
		})
	}
	return deposits
}

func (dc *DepositScheduleCalculator) buildScheduleB(liabilities []runLiability, period TaxPeriod) *ScheduleB {
	sb := &ScheduleB{QuarterTotal: decimal.Zero}

	byIndex := make(map[int]*ScheduleBMonth)
	for _, rl := range liabilities {
		idx := period.MonthIndex(rl.payDate)
		month := byIndex[idx]
		if month == nil {
			month = &ScheduleBMonth{MonthIndex: idx, Total: decimal.Zero}
			byIndex[idx] = month
		}
		month.Days = append(month.Days, ScheduleBDay{Date: rl.payDate, Amount: rl.amount})
		month.Total = month.Total.Add(rl.amount)
		sb.QuarterTotal = sb.QuarterTotal.Add(rl.amount)
	}

	// Liabilities arrive sorted by pay date, so month indexes are contiguous
	// and ascending; emit in order.
	for idx := 1; idx <= 12; idx++ {
		if month, ok := byIndex[idx]; ok {
			sb.Months = append(sb.Months, *month)
		}
	}
	return sb
}

// SemiweeklyDueDate maps a pay date to its deposit due date.
// Wed/Thu/Fri pay dates are due the following Wednesday; all others the
// following Friday. Always strictly after the pay date.
func SemiweeklyDueDate(payDate time.Time) time.Time {
	target := time.Friday
	switch payDate.Weekday() {
	case time.Wednesday, time.Thursday, time.Friday:
		target = time.Wednesday
	}

	ahead := int(target) - int(payDate.Weekday())
	if ahead <= 0 {
		ahead += 7
	}
	return payDate.AddDate(0, 0, ahead)
}
