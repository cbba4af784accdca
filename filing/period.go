/*
period.go - Tax period arithmetic and statutory deadlines

PURPOSE:
  Maps (year, quarter) or (year) to concrete period boundaries and the
  statutory filing deadline. Pure date arithmetic - no I/O, no state.

DEADLINES:
  Quarterly: Q1 -> Apr 30, Q2 -> Jul 31, Q3 -> Oct 31, Q4 -> Jan 31 (next year)
  Annual:    Jan 31 of the following year

SUPPORTED YEARS:
  The calculator rejects years outside its configured window. The window is
  deliberately narrow (current year +/- 1 by default) because rate tables are
  versioned per year and filing outside the window is a data-entry error far
  more often than a real request.

SEE ALSO:
  - calc.go: Consumes TaxPeriod for threshold proration
  - deposit.go: Uses period boundaries for month grouping
*/
package filing

import "time"

// =============================================================================
// TAX PERIOD - Immutable once computed
// =============================================================================

// QuarterAnnual marks a TaxPeriod that covers a whole year (annual forms).
const QuarterAnnual = 0

// TaxPeriod is the time boundary a filing covers.
// Quarter is 1-4 for quarterly forms, QuarterAnnual for annual forms.
type TaxPeriod struct {
	Year    int
	Quarter int

	Start          time.Time
	End            time.Time
	FilingDeadline time.Time
}

// IsAnnual reports whether the period covers a full calendar year.
func (p TaxPeriod) IsAnnual() bool { return p.Quarter == QuarterAnnual }

// Contains returns true if t falls within [Start, End].
func (p TaxPeriod) Contains(t time.Time) bool {
	return !t.Before(p.Start) && !t.After(p.End)
}

// MonthIndex returns the 1-based month position of t within the period
// (1-3 for quarters, 1-12 for annual periods). Returns 0 if t is outside.
func (p TaxPeriod) MonthIndex(t time.Time) int {
	if !p.Contains(t) {
		return 0
	}
	return int(t.Month()) - int(p.Start.Month()) + 1
}

func (p TaxPeriod) String() string {
	if p.IsAnnual() {
		return p.Start.Format("2006") + " (annual)"
	}
	return p.Start.Format("2006") + " Q" + string(rune('0'+p.Quarter))
}

// =============================================================================
// PERIOD CALCULATOR
// =============================================================================

// PeriodCalculator derives period boundaries and deadlines.
// Zero value is unusable; construct via NewPeriodCalculator.
type PeriodCalculator struct {
	MinYear int
	MaxYear int
}

// NewPeriodCalculator returns a calculator accepting years in [minYear, maxYear].
func NewPeriodCalculator(minYear, maxYear int) PeriodCalculator {
	return PeriodCalculator{MinYear: minYear, MaxYear: maxYear}
}

// Quarterly returns the period for a quarterly form.
func (pc PeriodCalculator) Quarterly(year, quarter int) (TaxPeriod, error) {
	if err := pc.checkYear(year); err != nil {
		return TaxPeriod{}, err
	}
	if quarter < 1 || quarter > 4 {
		return TaxPeriod{}, &InvalidPeriodError{Year: year, Quarter: quarter, Reason: "quarter must be 1-4"}
	}

	startMonth := time.Month((quarter-1)*3 + 1)
	start := date(year, startMonth, 1)
	end := date(year, startMonth+3, 1).AddDate(0, 0, -1)

	return TaxPeriod{
		Year:           year,
		Quarter:        quarter,
		Start:          start,
		End:            end,
		FilingDeadline: quarterlyDeadline(year, quarter),
	}, nil
}

// Annual returns the period for an annual form (full calendar year).
func (pc PeriodCalculator) Annual(year int) (TaxPeriod, error) {
	if err := pc.checkYear(year); err != nil {
		return TaxPeriod{}, err
	}
	return TaxPeriod{
		Year:           year,
		Quarter:        QuarterAnnual,
		Start:          date(year, time.January, 1),
		End:            date(year, time.December, 31),
		FilingDeadline: date(year+1, time.January, 31),
	}, nil
}

// PeriodFor dispatches on quarter: QuarterAnnual selects the annual period.
func (pc PeriodCalculator) PeriodFor(year, quarter int) (TaxPeriod, error) {
	if quarter == QuarterAnnual {
		return pc.Annual(year)
	}
	return pc.Quarterly(year, quarter)
}

func (pc PeriodCalculator) checkYear(year int) error {
	if year < pc.MinYear || year > pc.MaxYear {
		return &InvalidPeriodError{Year: year, Reason: "year outside supported window"}
	}
	return nil
}

func quarterlyDeadline(year, quarter int) time.Time {
	switch quarter {
	case 1:
		return date(year, time.April, 30)
	case 2:
		return date(year, time.July, 31)
	case 3:
		return date(year, time.October, 31)
	default: // Q4 files in January of the following year
		return date(year+1, time.January, 31)
	}
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
