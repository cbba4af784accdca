/*
store.go - Persistence and gateway collaborator interfaces

PURPOSE:
  Defines the seams between the engine and its collaborators: filing
  persistence, the submission gateway, and the form-family assemblers.
  The engine never touches a database or the network directly.

IMPLEMENTATIONS:
  FilingStore:       store/sqlite (production), filing/store (memory, tests)
  SubmissionGateway: efile (HTTP + HMAC), test doubles in _test files

SEE ALSO:
  - service.go: The only consumer of these interfaces
  - efile/gateway.go: Production gateway
*/
package filing

import (
	"context"
	"time"
)

// =============================================================================
// FILING STORE
// =============================================================================

// FilingStore persists filing records, their submission attempts, and
// amendment linkage. Save is an upsert keyed by record ID.
type FilingStore interface {
	// Get returns the record by id, or ErrFilingNotFound.
	Get(ctx context.Context, id FilingID) (*FilingRecord, error)

	// Find returns the record for (tenant, form, year, quarter) excluding
	// amendments, or ErrFilingNotFound.
	Find(ctx context.Context, tenant TenantID, form FormType, year, quarter int) (*FilingRecord, error)

	// Save upserts the record.
	Save(ctx context.Context, record *FilingRecord) error

	// ListByTenant returns all of a tenant's records for a year,
	// ordered by form type then quarter.
	ListByTenant(ctx context.Context, tenant TenantID, year int) ([]*FilingRecord, error)

	// AddAttempt appends a submission attempt to the audit trail.
	AddAttempt(ctx context.Context, attempt SubmissionAttempt) error

	// Attempts returns all attempts for a filing, oldest first.
	Attempts(ctx context.Context, id FilingID) ([]SubmissionAttempt, error)

	// Amendments returns all records amending the given original.
	Amendments(ctx context.Context, originalID FilingID) ([]*FilingRecord, error)
}

// =============================================================================
// SUBMISSION GATEWAY
// =============================================================================

// SubmissionStatus is the local status vocabulary for remote results.
type SubmissionStatus string

const (
	SubmissionPending  SubmissionStatus = "PENDING"
	SubmissionAccepted SubmissionStatus = "ACCEPTED"
	SubmissionRejected SubmissionStatus = "REJECTED"
)

// SubmissionReceipt is the successful outcome of a submit call, including
// the exact bytes sent for the audit trail.
type SubmissionReceipt struct {
	SubmissionID   SubmissionID
	TrackingNumber string
	Payload        []byte
	Signature      string
}

// StatusResult is one status poll outcome.
type StatusResult struct {
	Status               SubmissionStatus
	AcknowledgmentNumber string
	AcknowledgedAt       time.Time
	Errors               []RemoteError
}

// SubmissionGateway drives the external e-filing protocol: serialize, sign,
// submit, poll. Implementations must not mutate the record.
type SubmissionGateway interface {
	// Submit serializes, signs and sends the filing. Transient failures
	// unwrap to ErrGatewayTransient; structural rejections to
	// ErrGatewayRejected.
	Submit(ctx context.Context, record *FilingRecord, employer EmployerAccount) (SubmissionReceipt, error)

	// SubmitAmendment sends an amendment referencing the original's
	// accepted submission.
	SubmitAmendment(ctx context.Context, record, original *FilingRecord, employer EmployerAccount, reason string) (SubmissionReceipt, error)

	// CheckStatus polls the remote system. Read-only, safe to retry.
	CheckStatus(ctx context.Context, id SubmissionID) (StatusResult, error)
}

// =============================================================================
// FORM ASSEMBLER - Form-family plug point
// =============================================================================

// FormAssembler builds the form-specific parts of a filing from the shared
// core outputs. One implementation per form family (form941, form940).
type FormAssembler interface {
	FormType() FormType

	// Assemble fills the computed fields of the record: totals, deposit
	// schedule, form-specific body. The record's identity and status
	// fields are managed by the service.
	Assemble(record *FilingRecord, summary WageSummary, employer EmployerAccount)

	// Rules returns the form-specific validation rules, run after the
	// base rule set.
	Rules() []Rule
}
