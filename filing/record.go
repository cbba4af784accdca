/*
record.go - The filing aggregate root

PURPOSE:
  FilingRecord combines the period, the computed wage totals, the deposit
  schedule, adjustments, lifecycle status, and submission metadata. One
  record exists per (tenant, form type, period); an amendment is a NEW
  record linked to the accepted original via OriginalRecordID.

MUTABILITY:
  Recalculation overwrites the computed fields while the record is in
  draft/calculated/rejected. Once status reaches submitted, only submission
  metadata may change. Accepted is terminal and immutable.

SEE ALSO:
  - state.go: The lifecycle transitions
  - validate.go: Rule checks over an assembled record
  - service.go: Orchestration
*/
package filing

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// FORM TYPES - The two form families
// =============================================================================

// FormType selects the form family a filing belongs to.
type FormType string

const (
	// FormQuarterly is the quarterly employment tax return (941-style).
	FormQuarterly FormType = "941"

	// FormAnnualUnemployment is the annual unemployment return (940-style).
	FormAnnualUnemployment FormType = "940"
)

// Valid reports whether the form type is known.
func (f FormType) Valid() bool {
	return f == FormQuarterly || f == FormAnnualUnemployment
}

// IsAnnual reports whether the form family files once per year.
func (f FormType) IsAnnual() bool { return f == FormAnnualUnemployment }

// =============================================================================
// IDENTIFIERS
// =============================================================================

type FilingID string
type SubmissionID string

// =============================================================================
// ADJUSTMENTS - Current-period corrections carried on the return
// =============================================================================

// Adjustments are the signed current-period corrections applied between
// tax-before-adjustments and tax-after-adjustments.
type Adjustments struct {
	FractionsOfCents decimal.Decimal `json:"fractions_of_cents"`
	SickPay          decimal.Decimal `json:"sick_pay"`
	TipsAndInsurance decimal.Decimal `json:"tips_and_insurance"`
}

// Total returns the signed adjustment sum.
func (a Adjustments) Total() decimal.Decimal {
	return a.FractionsOfCents.Add(a.SickPay).Add(a.TipsAndInsurance)
}

// =============================================================================
// FILING RECORD - Aggregate root
// =============================================================================

// FilingRecord is the canonical tax-return record for one tenant+form+period.
type FilingRecord struct {
	ID       FilingID
	TenantID TenantID
	FormType FormType
	Period   TaxPeriod

	Totals      WageTotals
	Adjustments Adjustments

	// TotalTaxBefore == Totals.TotalTax(); TotalTaxAfter folds adjustments in.
	TotalTaxBefore decimal.Decimal
	TotalTaxAfter  decimal.Decimal

	Schedule  DepositSchedule
	Deposits  []DepositLiability
	ScheduleB *ScheduleB

	// Annual (unemployment) body; zero for quarterly filings.
	UnemploymentTaxableWages decimal.Decimal
	UnemploymentTax          decimal.Decimal

	Status           FilingStatus
	ValidationErrors []RuleViolation

	// Submission metadata - the only fields mutable after submit.
	SubmissionID         SubmissionID
	TrackingNumber       string
	AcknowledgmentNumber string
	AcknowledgedAt       *time.Time
	RemoteErrors         []RemoteError

	// Amendment linkage. Empty for originals.
	OriginalRecordID FilingID
	AmendmentReason  string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsAmendment reports whether this record amends an accepted original.
func (r *FilingRecord) IsAmendment() bool { return r.OriginalRecordID != "" }

// Frozen reports whether computed fields may no longer change.
func (r *FilingRecord) Frozen() bool {
	return r.Status == StatusSubmitted || r.Status == StatusAccepted
}

// Recalculable reports whether a recalculation may overwrite this record.
func (r *FilingRecord) Recalculable() bool {
	switch r.Status {
	case StatusDraft, StatusCalculated, StatusRejected:
		return true
	}
	return false
}

// =============================================================================
// SUBMISSION ATTEMPT - Audit trail of gateway interactions
// =============================================================================

// SubmissionAttempt records one submission to the external authority,
// with the full payload and signature for audit.
type SubmissionAttempt struct {
	ID              string
	FilingID        FilingID
	Timestamp       time.Time
	WirePayload     []byte
	Signature       string
	ResultingStatus FilingStatus
	SubmissionID    SubmissionID
	TrackingNumber  string
	Error           string
}
