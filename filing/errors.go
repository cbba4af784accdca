/*
errors.go - Centralized error taxonomy for the filing engine

PURPOSE:
  All error types in one place. The taxonomy mirrors how callers must react:

    InputError           reject before computation, no retry
    ValidationError      soft - record persists with the violation list attached
    GatewayTransient     retryable with backoff, state unchanged
    GatewayRejection     terminal for the attempt, record moves to rejected
    ConcurrencyConflict  surfaced immediately, never queued

USAGE:
  Callers branch with errors.Is against the sentinels, or errors.As against
  the structured types when they need field-level context:

    var ip *filing.InvalidPeriodError
    if errors.As(err, &ip) { ... }

SEE ALSO:
  - validate.go: RuleViolation (soft validation findings, not errors)
  - service.go: Where most of these surface
*/
package filing

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidPeriod is returned for an out-of-range quarter or year.
	ErrInvalidPeriod = errors.New("invalid tax period")

	// ErrMalformedEIN is returned when an employer identification number
	// is not exactly nine digits.
	ErrMalformedEIN = errors.New("malformed EIN")

	// ErrNoPayrollData is returned when the caller required a distinction
	// between "zero wages" and "no data available" and no data exists.
	ErrNoPayrollData = errors.New("no payroll data for period")

	// ErrFilingNotFound is returned when a filing id resolves to nothing.
	ErrFilingNotFound = errors.New("filing not found")

	// ErrEmployerNotFound is returned when a tenant has no employer account.
	ErrEmployerNotFound = errors.New("employer account not found")

	// ErrIllegalTransition is returned for any state change the filing
	// lifecycle does not allow. State is left unchanged.
	ErrIllegalTransition = errors.New("illegal filing state transition")

	// ErrRecordFrozen is returned when a field mutation is attempted on a
	// filing in submitted or accepted state.
	ErrRecordFrozen = errors.New("filing record is frozen")

	// ErrValidationFailed is returned when submission is blocked by
	// outstanding rule violations.
	ErrValidationFailed = errors.New("filing has validation errors")

	// ErrSubmissionInProgress is returned when a second submission is
	// requested while one is already in flight.
	ErrSubmissionInProgress = errors.New("submission already in progress")

	// ErrCalculationInProgress is returned when the per-period lock is held
	// by a concurrent calculation.
	ErrCalculationInProgress = errors.New("calculation already in progress")

	// ErrAmendmentPrecondition is returned when amending a filing that is
	// not in accepted state, or that already has an outstanding amendment.
	ErrAmendmentPrecondition = errors.New("amendment precondition failed")

	// ErrGatewayTransient marks transport-class gateway failures. Safe to
	// retry with backoff; local state is unchanged.
	ErrGatewayTransient = errors.New("gateway transient failure")

	// ErrGatewayRejected marks a structural rejection by the remote system.
	// Terminal for the attempt; requires recalculation.
	ErrGatewayRejected = errors.New("gateway rejected submission")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InvalidPeriodError reports why a requested period was rejected.
type InvalidPeriodError struct {
	Year    int
	Quarter int
	Reason  string
}

func (e *InvalidPeriodError) Error() string {
	return fmt.Sprintf("invalid period year=%d quarter=%d: %s", e.Year, e.Quarter, e.Reason)
}

func (e *InvalidPeriodError) Unwrap() error { return ErrInvalidPeriod }

// MalformedEINError carries the offending value (masked in logs by callers).
type MalformedEINError struct {
	EIN string
}

func (e *MalformedEINError) Error() string {
	return fmt.Sprintf("EIN must be exactly 9 digits, got %q", e.EIN)
}

func (e *MalformedEINError) Unwrap() error { return ErrMalformedEIN }

// IllegalTransitionError reports a rejected lifecycle transition.
type IllegalTransitionError struct {
	From FilingStatus
	To   FilingStatus
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("illegal transition %s -> %s", e.From, e.To)
}

func (e *IllegalTransitionError) Unwrap() error { return ErrIllegalTransition }

// ValidationFailedError blocks submission and carries the full violation list
// so the caller can act without re-running the pipeline.
type ValidationFailedError struct {
	FilingID   FilingID
	Violations []RuleViolation
}

func (e *ValidationFailedError) Error() string {
	return fmt.Sprintf("filing %s has %d validation errors", e.FilingID, len(e.Violations))
}

func (e *ValidationFailedError) Unwrap() error { return ErrValidationFailed }

// GatewayError wraps a gateway failure with the remote context needed to
// diagnose it. Transient controls which sentinel it unwraps to.
type GatewayError struct {
	Operation  string // "submit", "status", "amend"
	RemoteCode string
	Remote     []RemoteError
	Transient  bool
	Err        error
}

// RemoteError is a single error item returned by the e-filing authority.
type RemoteError struct {
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func (e *GatewayError) Error() string {
	kind := "rejected"
	if e.Transient {
		kind = "transient"
	}
	if e.Err != nil {
		return fmt.Sprintf("gateway %s %s: %v", e.Operation, kind, e.Err)
	}
	return fmt.Sprintf("gateway %s %s: code=%s (%d remote errors)", e.Operation, kind, e.RemoteCode, len(e.Remote))
}

func (e *GatewayError) Unwrap() error {
	if e.Transient {
		return ErrGatewayTransient
	}
	return ErrGatewayRejected
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the operation might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrGatewayTransient) ||
		errors.Is(err, ErrCalculationInProgress) ||
		errors.Is(err, ErrSubmissionInProgress)
}

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidPeriod) ||
		errors.Is(err, ErrMalformedEIN) ||
		errors.Is(err, ErrIllegalTransition) ||
		errors.Is(err, ErrAmendmentPrecondition) ||
		errors.Is(err, ErrValidationFailed)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrFilingNotFound) ||
		errors.Is(err, ErrEmployerNotFound) ||
		errors.Is(err, ErrNoPayrollData)
}
