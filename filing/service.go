/*
service.go - Filing orchestration

PURPOSE:
  FilingService runs the four externally-visible operations end to end:

    CalculateFiling    aggregate -> calculate -> assemble -> validate -> persist
    SubmitFiling       serialize -> sign -> submit -> record attempt -> transition
    CheckFilingStatus  poll remote -> map result -> transition
    AmendFiling        precondition checks -> new linked record -> recalculate

CONCURRENCY:
  At most one active calculation per (tenant, form, period), enforced with a
  per-key advisory lock. Lock contention is surfaced immediately as
  ErrCalculationInProgress, never queued. A filing has at most one in-flight
  submission; a second request gets ErrSubmissionInProgress.

STATE:
  All status changes go through FilingStateMachine. A submission timeout
  leaves the record in calculated - the record is never optimistically
  marked submitted before the gateway accepts the request.

SEE ALSO:
  - state.go: The transitions this service drives
  - store.go: The collaborator interfaces
*/
package filing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// KEYED LOCKS - Per (tenant, form, period) advisory locking
// =============================================================================

type keyedLocks struct {
	mu   sync.Mutex
	held map[string]bool
}

func newKeyedLocks() *keyedLocks {
	return &keyedLocks{held: make(map[string]bool)}
}

// tryAcquire takes the key if free. Never blocks.
func (k *keyedLocks) tryAcquire(key string) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.held[key] {
		return false
	}
	k.held[key] = true
	return true
}

func (k *keyedLocks) release(key string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.held, key)
}

// =============================================================================
// FILING SERVICE
// =============================================================================

// FilingService orchestrates calculation, validation, submission and
// amendment of filings. Safe for concurrent use.
type FilingService struct {
	Config     TaxConfig
	Payroll    PayrollSource
	Employers  EmployerStore
	Filings    FilingStore
	Gateway    SubmissionGateway
	Assemblers map[FormType]FormAssembler

	sm        FilingStateMachine
	calcLocks *keyedLocks
	submits   *keyedLocks
}

// NewFilingService wires a service from its collaborators.
func NewFilingService(
	cfg TaxConfig,
	payroll PayrollSource,
	employers EmployerStore,
	filings FilingStore,
	gateway SubmissionGateway,
	assemblers ...FormAssembler,
) *FilingService {
	byForm := make(map[FormType]FormAssembler, len(assemblers))
	for _, a := range assemblers {
		byForm[a.FormType()] = a
	}
	return &FilingService{
		Config:     cfg,
		Payroll:    payroll,
		Employers:  employers,
		Filings:    filings,
		Gateway:    gateway,
		Assemblers: byForm,
		calcLocks:  newKeyedLocks(),
		submits:    newKeyedLocks(),
	}
}

// CalculateOptions tunes a calculation request.
type CalculateOptions struct {
	// RequireData fails with ErrNoPayrollData instead of producing a
	// zero-wage filing when the feed is empty.
	RequireData bool

	// AcceptWithErrors moves the record to calculated even when rule
	// violations remain (they stay attached to the record).
	AcceptWithErrors bool

	// Adjustments applied between tax-before and tax-after.
	Adjustments Adjustments
}

// =============================================================================
// CALCULATE
// =============================================================================

// CalculateFiling runs the full pipeline for (tenant, form, year, quarter)
// and persists the result. Re-running overwrites the computed fields while
// the record is recalculable; frozen records fail with ErrRecordFrozen.
func (s *FilingService) CalculateFiling(
	ctx context.Context,
	tenant TenantID,
	form FormType,
	year, quarter int,
	opts CalculateOptions,
) (*FilingRecord, error) {
	assembler, ok := s.Assemblers[form]
	if !ok {
		return nil, fmt.Errorf("unknown form type %q: %w", form, ErrInvalidPeriod)
	}
	if form.IsAnnual() && quarter != QuarterAnnual {
		return nil, &InvalidPeriodError{Year: year, Quarter: quarter, Reason: "annual form takes no quarter"}
	}
	if !form.IsAnnual() && quarter == QuarterAnnual {
		return nil, &InvalidPeriodError{Year: year, Quarter: quarter, Reason: "quarterly form requires a quarter"}
	}

	period, err := s.Config.Periods().PeriodFor(year, quarter)
	if err != nil {
		return nil, err
	}

	key := calcKey(tenant, form, period)
	if !s.calcLocks.tryAcquire(key) {
		return nil, fmt.Errorf("%s: %w", key, ErrCalculationInProgress)
	}
	defer s.calcLocks.release(key)

	employer, err := s.Employers.GetEmployerAccount(ctx, tenant)
	if err != nil {
		return nil, err
	}

	record, err := s.Filings.Find(ctx, tenant, form, year, quarter)
	switch {
	case errors.Is(err, ErrFilingNotFound):
		record = s.newRecord(tenant, form, period)
	case err != nil:
		return nil, err
	case !record.Recalculable():
		return nil, fmt.Errorf("filing %s in status %s: %w", record.ID, record.Status, ErrRecordFrozen)
	}

	if err := s.calculateInto(ctx, record, assembler, employer, opts); err != nil {
		return nil, err
	}
	if err := s.Filings.Save(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

// calculateInto overwrites the computed fields of record from current data.
func (s *FilingService) calculateInto(
	ctx context.Context,
	record *FilingRecord,
	assembler FormAssembler,
	employer EmployerAccount,
	opts CalculateOptions,
) error {
	aggregator := NewWageAggregator(s.Payroll)
	summary, err := aggregator.Aggregate(ctx, record.TenantID, record.Period, AggregateOptions{RequireData: opts.RequireData})
	if err != nil {
		return err
	}

	record.Adjustments = opts.Adjustments
	assembler.Assemble(record, summary, employer)
	record.TotalTaxBefore = record.Totals.TotalTax()
	record.TotalTaxAfter = record.TotalTaxBefore.Add(opts.Adjustments.Total())

	// Deposits are rebuilt here rather than in the assembler so the
	// post-adjustment total is what reconciles.
	depositCalc := NewDepositScheduleCalculator(s.Config)
	record.Schedule = SelectDepositSchedule(employer.PriorYearLiability, s.Config)
	if record.FormType.IsAnnual() {
		// Annual unemployment filings always remit monthly and carry no
		// Schedule B; the lookback rule only governs quarterly withholding.
		record.Schedule = DepositMonthly
	}
	record.Deposits, record.ScheduleB = depositCalc.Build(record.Schedule, summary, record.Period, record.TotalTaxAfter)

	validator := NewFormValidator(s.Config)
	validator.ExtraRules = assembler.Rules()
	record.ValidationErrors = validator.Validate(record, employer)

	target := StatusCalculated
	if len(record.ValidationErrors) > 0 && !opts.AcceptWithErrors {
		target = StatusDraft
	}
	if record.Status != target {
		if err := s.sm.Transition(record, target); err != nil {
			return err
		}
	} else {
		record.UpdatedAt = time.Now().UTC()
	}
	return nil
}

func (s *FilingService) newRecord(tenant TenantID, form FormType, period TaxPeriod) *FilingRecord {
	now := time.Now().UTC()
	return &FilingRecord{
		ID:        FilingID(uuid.NewString()),
		TenantID:  tenant,
		FormType:  form,
		Period:    period,
		Status:    StatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func calcKey(tenant TenantID, form FormType, period TaxPeriod) string {
	return fmt.Sprintf("%s/%s/%d/%d", tenant, form, period.Year, period.Quarter)
}

// =============================================================================
// SUBMIT
// =============================================================================

// SubmitFiling serializes, signs and submits a calculated filing. The record
// moves to submitted only after the gateway accepts the request; transient
// failures leave it in calculated.
func (s *FilingService) SubmitFiling(ctx context.Context, id FilingID) (SubmissionReceipt, error) {
	record, err := s.Filings.Get(ctx, id)
	if err != nil {
		return SubmissionReceipt{}, err
	}
	if record.Status != StatusCalculated {
		return SubmissionReceipt{}, &IllegalTransitionError{From: record.Status, To: StatusSubmitted}
	}
	if len(record.ValidationErrors) > 0 {
		return SubmissionReceipt{}, &ValidationFailedError{FilingID: id, Violations: record.ValidationErrors}
	}

	if !s.submits.tryAcquire(string(id)) {
		return SubmissionReceipt{}, fmt.Errorf("filing %s: %w", id, ErrSubmissionInProgress)
	}
	defer s.submits.release(string(id))

	employer, err := s.Employers.GetEmployerAccount(ctx, record.TenantID)
	if err != nil {
		return SubmissionReceipt{}, err
	}
	if !employer.EINVerified {
		return SubmissionReceipt{}, &ValidationFailedError{FilingID: id, Violations: []RuleViolation{{
			Rule:    "ein_unverified",
			Field:   "employer.ein",
			Message: "employer EIN is not verified for e-filing",
		}}}
	}

	receipt, submitErr := s.submit(ctx, record, employer)
	s.recordAttempt(ctx, record, receipt, submitErr)

	if submitErr != nil {
		if errors.Is(submitErr, ErrGatewayRejected) {
			// The remote system saw and structurally refused the payload:
			// the filing reached it and came back rejected.
			var gw *GatewayError
			if errors.As(submitErr, &gw) {
				record.RemoteErrors = gw.Remote
			}
			_ = s.sm.Transition(record, StatusSubmitted)
			_ = s.sm.Transition(record, StatusRejected)
			if err := s.Filings.Save(ctx, record); err != nil {
				return SubmissionReceipt{}, err
			}
		}
		// Transient failures change nothing; the caller retries.
		return SubmissionReceipt{}, submitErr
	}

	record.SubmissionID = receipt.SubmissionID
	record.TrackingNumber = receipt.TrackingNumber
	if err := s.sm.Transition(record, StatusSubmitted); err != nil {
		return SubmissionReceipt{}, err
	}
	if err := s.Filings.Save(ctx, record); err != nil {
		return SubmissionReceipt{}, err
	}
	return receipt, nil
}

func (s *FilingService) submit(ctx context.Context, record *FilingRecord, employer EmployerAccount) (SubmissionReceipt, error) {
	if !record.IsAmendment() {
		return s.Gateway.Submit(ctx, record, employer)
	}
	original, err := s.Filings.Get(ctx, record.OriginalRecordID)
	if err != nil {
		return SubmissionReceipt{}, err
	}
	return s.Gateway.SubmitAmendment(ctx, record, original, employer, record.AmendmentReason)
}

// recordAttempt appends to the audit trail. Audit failures are logged into
// the attempt's own error field path; they never mask the submit outcome.
func (s *FilingService) recordAttempt(ctx context.Context, record *FilingRecord, receipt SubmissionReceipt, submitErr error) {
	attempt := SubmissionAttempt{
		ID:              uuid.NewString(),
		FilingID:        record.ID,
		Timestamp:       time.Now().UTC(),
		WirePayload:     receipt.Payload,
		Signature:       receipt.Signature,
		SubmissionID:    receipt.SubmissionID,
		TrackingNumber:  receipt.TrackingNumber,
		ResultingStatus: StatusSubmitted,
	}
	if submitErr != nil {
		attempt.Error = submitErr.Error()
		attempt.ResultingStatus = record.Status
		if errors.Is(submitErr, ErrGatewayRejected) {
			attempt.ResultingStatus = StatusRejected
		}
	}
	_ = s.Filings.AddAttempt(ctx, attempt)
}

// =============================================================================
// STATUS
// =============================================================================

// CheckFilingStatus polls the gateway for a submitted filing and applies the
// result. Terminal filings return their stored state without polling.
func (s *FilingService) CheckFilingStatus(ctx context.Context, id FilingID) (StatusResult, error) {
	record, err := s.Filings.Get(ctx, id)
	if err != nil {
		return StatusResult{}, err
	}

	switch record.Status {
	case StatusAccepted:
		var at time.Time
		if record.AcknowledgedAt != nil {
			at = *record.AcknowledgedAt
		}
		return StatusResult{
			Status:               SubmissionAccepted,
			AcknowledgmentNumber: record.AcknowledgmentNumber,
			AcknowledgedAt:       at,
		}, nil
	case StatusRejected:
		return StatusResult{Status: SubmissionRejected, Errors: record.RemoteErrors}, nil
	case StatusSubmitted:
		// fall through to poll
	default:
		return StatusResult{}, fmt.Errorf("filing %s in status %s has no submission: %w", id, record.Status, ErrIllegalTransition)
	}

	result, err := s.Gateway.CheckStatus(ctx, record.SubmissionID)
	if err != nil {
		return StatusResult{}, err
	}

	switch result.Status {
	case SubmissionAccepted:
		record.AcknowledgmentNumber = result.AcknowledgmentNumber
		at := result.AcknowledgedAt
		if at.IsZero() {
			at = time.Now().UTC()
		}
		record.AcknowledgedAt = &at
		if err := s.sm.Transition(record, StatusAccepted); err != nil {
			return StatusResult{}, err
		}
		if err := s.Filings.Save(ctx, record); err != nil {
			return StatusResult{}, err
		}
	case SubmissionRejected:
		record.RemoteErrors = result.Errors
		if err := s.sm.Transition(record, StatusRejected); err != nil {
			return StatusResult{}, err
		}
		if err := s.Filings.Save(ctx, record); err != nil {
			return StatusResult{}, err
		}
	}
	return result, nil
}

// =============================================================================
// AMEND
// =============================================================================

// AmendOptions carries the amendment reason and recalculation inputs.
type AmendOptions struct {
	Reason      string
	Adjustments Adjustments
}

// AmendFiling creates a new record amending an accepted original and runs a
// fresh calculation over current payroll data. At most one outstanding
// (non-rejected) amendment may exist per original.
func (s *FilingService) AmendFiling(ctx context.Context, id FilingID, opts AmendOptions) (*FilingRecord, error) {
	original, err := s.Filings.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if original.Status != StatusAccepted {
		return nil, fmt.Errorf("original filing %s is %s, not accepted: %w", id, original.Status, ErrAmendmentPrecondition)
	}
	if opts.Reason == "" {
		return nil, fmt.Errorf("amendment requires a reason: %w", ErrAmendmentPrecondition)
	}

	// Serialize against concurrent amendments of the same original.
	key := "amend/" + string(id)
	if !s.submits.tryAcquire(key) {
		return nil, fmt.Errorf("filing %s: %w", id, ErrAmendmentPrecondition)
	}
	defer s.submits.release(key)

	existing, err := s.Filings.Amendments(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, a := range existing {
		if a.Status != StatusRejected {
			return nil, fmt.Errorf("filing %s already has outstanding amendment %s: %w", id, a.ID, ErrAmendmentPrecondition)
		}
	}

	assembler, ok := s.Assemblers[original.FormType]
	if !ok {
		return nil, fmt.Errorf("unknown form type %q: %w", original.FormType, ErrInvalidPeriod)
	}
	employer, err := s.Employers.GetEmployerAccount(ctx, original.TenantID)
	if err != nil {
		return nil, err
	}

	amendment := s.newRecord(original.TenantID, original.FormType, original.Period)
	amendment.OriginalRecordID = original.ID
	amendment.AmendmentReason = opts.Reason

	calcOpts := CalculateOptions{Adjustments: opts.Adjustments}
	if err := s.calculateInto(ctx, amendment, assembler, employer, calcOpts); err != nil {
		return nil, err
	}
	if err := s.Filings.Save(ctx, amendment); err != nil {
		return nil, err
	}
	return amendment, nil
}
