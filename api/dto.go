/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

TYPES:
  Filing:
    FilingDTO, CalculateFilingRequest, AmendFilingRequest
    DepositDTO, ScheduleBDTO, ViolationDTO, AttemptDTO

  Status:
    StatusDTO

  Payroll:
    AddTransactionsRequest, TransactionDTO

  Employer:
    EmployerDTO, PutEmployerRequest

AMOUNT FORMATTING:
  All money fields are JSON strings with two decimal places ("2232.00").
  Clients must not receive floats for tax amounts.

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - filing/record.go: The domain aggregate these views flatten
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/filing-engine/filing"
)

// =============================================================================
// FILING TYPES
// =============================================================================

// FilingDTO is the API view of a filing record.
type FilingDTO struct {
	ID       string `json:"id"`
	TenantID string `json:"tenant_id"`
	FormType string `json:"form_type"`
	Year     int    `json:"year"`
	Quarter  int    `json:"quarter"`

	PeriodStart    string `json:"period_start"`
	PeriodEnd      string `json:"period_end"`
	FilingDeadline string `json:"filing_deadline"`

	EmployeeCount            int    `json:"employee_count"`
	TotalWages               string `json:"total_wages"`
	FederalIncomeTaxWithheld string `json:"federal_income_tax_withheld"`
	SocialSecurityWages      string `json:"social_security_wages"`
	SocialSecurityTax        string `json:"social_security_tax"`
	MedicareWages            string `json:"medicare_wages"`
	MedicareTax              string `json:"medicare_tax"`
	AdditionalMedicareTax    string `json:"additional_medicare_tax"`

	TotalTaxBefore string `json:"total_tax_before_adjustments"`
	TotalTaxAfter  string `json:"total_tax_after_adjustments"`

	DepositSchedule string        `json:"deposit_schedule"`
	Deposits        []DepositDTO  `json:"deposits"`
	ScheduleB       *ScheduleBDTO `json:"schedule_b,omitempty"`

	UnemploymentTaxableWages string `json:"unemployment_taxable_wages,omitempty"`
	UnemploymentTax          string `json:"unemployment_tax,omitempty"`

	Status           string         `json:"status"`
	ValidationErrors []ViolationDTO `json:"validation_errors,omitempty"`

	SubmissionID         string `json:"submission_id,omitempty"`
	TrackingNumber       string `json:"tracking_number,omitempty"`
	AcknowledgmentNumber string `json:"acknowledgment_number,omitempty"`
	AcknowledgedAt       string `json:"acknowledged_at,omitempty"`

	OriginalRecordID string `json:"original_record_id,omitempty"`
	AmendmentReason  string `json:"amendment_reason,omitempty"`

	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// DepositDTO is one deposit liability entry.
type DepositDTO struct {
	DueDate string `json:"due_date"`
	Amount  string `json:"amount"`
	Covers  string `json:"covers"`
}

// ScheduleBDTO is the daily liability breakdown for semiweekly depositors.
type ScheduleBDTO struct {
	Months       []ScheduleBMonthDTO `json:"months"`
	QuarterTotal string              `json:"quarter_total"`
}

type ScheduleBMonthDTO struct {
	MonthIndex int               `json:"month_index"`
	Days       []ScheduleBDayDTO `json:"days"`
	Total      string            `json:"total"`
}

type ScheduleBDayDTO struct {
	Date      string `json:"date"`
	Liability string `json:"liability"`
}

// ViolationDTO is one validation rule violation.
type ViolationDTO struct {
	Rule     string `json:"rule"`
	Field    string `json:"field,omitempty"`
	Message  string `json:"message"`
	Expected string `json:"expected,omitempty"`
	Actual   string `json:"actual,omitempty"`
}

// AttemptDTO is one submission attempt from the audit trail. The wire
// payload is returned verbatim for audit inspection.
type AttemptDTO struct {
	ID              string `json:"id"`
	FilingID        string `json:"filing_id"`
	Timestamp       string `json:"timestamp"`
	WirePayload     string `json:"wire_payload,omitempty"`
	Signature       string `json:"signature,omitempty"`
	ResultingStatus string `json:"resulting_status"`
	SubmissionID    string `json:"submission_id,omitempty"`
	TrackingNumber  string `json:"tracking_number,omitempty"`
	Error           string `json:"error,omitempty"`
}

// StatusDTO is one status poll result.
type StatusDTO struct {
	Status               string           `json:"status"`
	AcknowledgmentNumber string           `json:"acknowledgment_number,omitempty"`
	AcknowledgedAt       string           `json:"acknowledged_at,omitempty"`
	Errors               []RemoteErrorDTO `json:"errors,omitempty"`
}

type RemoteErrorDTO struct {
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// =============================================================================
// REQUEST TYPES
// =============================================================================

// CalculateFilingRequest triggers a (re)calculation for a period.
type CalculateFilingRequest struct {
	TenantID string `json:"tenant_id"`
	FormType string `json:"form_type"`
	Year     int    `json:"year"`
	Quarter  int    `json:"quarter"`

	RequireData      bool `json:"require_data,omitempty"`
	AcceptWithErrors bool `json:"accept_with_errors,omitempty"`

	Adjustments *AdjustmentsDTO `json:"adjustments,omitempty"`
}

// AdjustmentsDTO carries the signed current-period adjustments.
type AdjustmentsDTO struct {
	FractionsOfCents string `json:"fractions_of_cents,omitempty"`
	SickPay          string `json:"sick_pay,omitempty"`
	TipsAndInsurance string `json:"tips_and_insurance,omitempty"`
}

// AmendFilingRequest creates an amendment for an accepted filing.
type AmendFilingRequest struct {
	Reason      string          `json:"reason"`
	Adjustments *AdjustmentsDTO `json:"adjustments,omitempty"`
}

// AddTransactionsRequest appends payroll transactions to a tenant's feed.
type AddTransactionsRequest struct {
	Transactions []TransactionDTO `json:"transactions"`
}

// TransactionDTO is one payroll transaction.
type TransactionDTO struct {
	EmployeeID        string `json:"employee_id"`
	PayDate           string `json:"pay_date"`
	GrossPay          string `json:"gross_pay"`
	FederalTax        string `json:"federal_tax"`
	SocialSecurityTax string `json:"social_security_tax,omitempty"`
	MedicareTax       string `json:"medicare_tax,omitempty"`
}

// EmployerDTO is the API view of an employer account.
type EmployerDTO struct {
	TenantID           string `json:"tenant_id"`
	EIN                string `json:"ein"`
	LegalName          string `json:"legal_name"`
	Address            string `json:"address,omitempty"`
	City               string `json:"city,omitempty"`
	State              string `json:"state,omitempty"`
	Zip                string `json:"zip,omitempty"`
	PriorYearLiability string `json:"prior_year_liability"`
	EINVerified        bool   `json:"ein_verified"`
}

// PutEmployerRequest upserts a tenant's employer account.
type PutEmployerRequest struct {
	EIN                string `json:"ein"`
	LegalName          string `json:"legal_name"`
	Address            string `json:"address,omitempty"`
	City               string `json:"city,omitempty"`
	State              string `json:"state,omitempty"`
	Zip                string `json:"zip,omitempty"`
	PriorYearLiability string `json:"prior_year_liability,omitempty"`
	EINVerified        bool   `json:"ein_verified"`
}

// ErrorResponse is the uniform error body. Validation failures carry the
// full violation list so clients can act without refetching the filing;
// Retryable marks failures that may succeed on a later attempt.
type ErrorResponse struct {
	Error      string         `json:"error"`
	Details    string         `json:"details,omitempty"`
	Violations []ViolationDTO `json:"violations,omitempty"`
	Retryable  bool           `json:"retryable,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toFilingDTO(r *filing.FilingRecord) FilingDTO {
	dto := FilingDTO{
		ID:             string(r.ID),
		TenantID:       string(r.TenantID),
		FormType:       string(r.FormType),
		Year:           r.Period.Year,
		Quarter:        r.Period.Quarter,
		PeriodStart:    r.Period.Start.Format("2006-01-02"),
		PeriodEnd:      r.Period.End.Format("2006-01-02"),
		FilingDeadline: r.Period.FilingDeadline.Format("2006-01-02"),

		EmployeeCount:            r.Totals.EmployeeCount,
		TotalWages:               money(r.Totals.TotalWages),
		FederalIncomeTaxWithheld: money(r.Totals.FederalIncomeTaxWithheld),
		SocialSecurityWages:      money(r.Totals.SocialSecurityWages),
		SocialSecurityTax:        money(r.Totals.SocialSecurityTax),
		MedicareWages:            money(r.Totals.MedicareWages),
		MedicareTax:              money(r.Totals.MedicareTax),
		AdditionalMedicareTax:    money(r.Totals.AdditionalMedicareTax),

		TotalTaxBefore: money(r.TotalTaxBefore),
		TotalTaxAfter:  money(r.TotalTaxAfter),

		DepositSchedule: string(r.Schedule),
		Deposits:        toDepositDTOs(r.Deposits),

		Status: string(r.Status),

		SubmissionID:         string(r.SubmissionID),
		TrackingNumber:       r.TrackingNumber,
		AcknowledgmentNumber: r.AcknowledgmentNumber,

		OriginalRecordID: string(r.OriginalRecordID),
		AmendmentReason:  r.AmendmentReason,

		CreatedAt: r.CreatedAt.Format(time.RFC3339),
		UpdatedAt: r.UpdatedAt.Format(time.RFC3339),
	}

	if r.FormType.IsAnnual() {
		dto.UnemploymentTaxableWages = money(r.UnemploymentTaxableWages)
		dto.UnemploymentTax = money(r.UnemploymentTax)
	}
	if r.ScheduleB != nil {
		dto.ScheduleB = toScheduleBDTO(r.ScheduleB)
	}
	if r.AcknowledgedAt != nil {
		dto.AcknowledgedAt = r.AcknowledgedAt.Format(time.RFC3339)
	}
	for _, v := range r.ValidationErrors {
		dto.ValidationErrors = append(dto.ValidationErrors, toViolationDTO(v))
	}
	return dto
}

func toDepositDTOs(deposits []filing.DepositLiability) []DepositDTO {
	out := make([]DepositDTO, len(deposits))
	for i, d := range deposits {
		out[i] = DepositDTO{
			DueDate: d.DueDate.Format("2006-01-02"),
			Amount:  money(d.Amount),
			Covers:  d.Covers,
		}
	}
	return out
}

func toScheduleBDTO(sb *filing.ScheduleB) *ScheduleBDTO {
	dto := &ScheduleBDTO{QuarterTotal: money(sb.QuarterTotal)}
	for _, m := range sb.Months {
		mdto := ScheduleBMonthDTO{MonthIndex: m.MonthIndex, Total: money(m.Total)}
		for _, d := range m.Days {
			mdto.Days = append(mdto.Days, ScheduleBDayDTO{
				Date:      d.Date.Format("2006-01-02"),
				Liability: money(d.Amount),
			})
		}
		dto.Months = append(dto.Months, mdto)
	}
	return dto
}

func toViolationDTO(v filing.RuleViolation) ViolationDTO {
	return ViolationDTO{
		Rule:     v.Rule,
		Field:    v.Field,
		Message:  v.Message,
		Expected: v.Expected,
		Actual:   v.Actual,
	}
}

func toAttemptDTO(a filing.SubmissionAttempt) AttemptDTO {
	return AttemptDTO{
		ID:              a.ID,
		FilingID:        string(a.FilingID),
		Timestamp:       a.Timestamp.Format(time.RFC3339),
		WirePayload:     string(a.WirePayload),
		Signature:       a.Signature,
		ResultingStatus: string(a.ResultingStatus),
		SubmissionID:    string(a.SubmissionID),
		TrackingNumber:  a.TrackingNumber,
		Error:           a.Error,
	}
}

func toEmployerDTO(e filing.EmployerAccount) EmployerDTO {
	return EmployerDTO{
		TenantID:           string(e.TenantID),
		EIN:                e.EIN,
		LegalName:          e.LegalName,
		Address:            e.Address,
		City:               e.City,
		State:              e.State,
		Zip:                e.Zip,
		PriorYearLiability: money(e.PriorYearLiability),
		EINVerified:        e.EINVerified,
	}
}

// money formats an amount with exactly two decimal places.
func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}
