/*
handlers.go - HTTP API handlers for the filing engine

PURPOSE:
  Exposes the filing engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Filings:
    POST   /api/filings/calculate        Calculate (or recalculate) a filing
    GET    /api/filings                  List a tenant's filings for a year
    GET    /api/filings/{id}             Get one filing
    POST   /api/filings/{id}/submit      Submit a calculated filing
    GET    /api/filings/{id}/status      Poll the acknowledgment status
    POST   /api/filings/{id}/amend       Amend an accepted filing
    GET    /api/filings/{id}/attempts    Submission audit trail
    GET    /api/filings/{id}/amendments  Amendments of an original

  Payroll:
    POST   /api/payroll/{tenant}/transactions  Append payroll transactions
    GET    /api/payroll/{tenant}/transactions  Read the feed for a window

  Employers:
    GET    /api/employers/{tenant}       Get employer account
    PUT    /api/employers/{tenant}       Upsert employer account

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Service: The filing engine (calculation, submission, amendment)
  - Store: Direct access for payroll/employer CRUD and filing reads

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input
  3. Call domain logic (service or store)
  4. Serialize response
  5. Handle errors

ERROR HANDLING:
  Domain errors map to HTTP status via the sentinel taxonomy:
  - 400: Malformed input, invalid period or EIN
  - 404: Filing or employer not found
  - 409: Concurrent calculation/submission, illegal transition, frozen record
  - 422: Validation failures, missing payroll data, amendment preconditions
  - 502: Gateway failures (transient or rejected at transport level)
  - 500: Everything else

SECURITY NOTE:
  Currently NO authentication or authorization. Tenancy is taken from the
  URL/body, which is only acceptable behind a trusted gateway.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - filing/errors.go: The sentinel taxonomy this maps from
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/warp/filing-engine/filing"
	"github.com/warp/filing-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service *filing.FilingService
	Store   *sqlite.Store
}

// NewHandler creates a new handler.
func NewHandler(service *filing.FilingService, store *sqlite.Store) *Handler {
	return &Handler{Service: service, Store: store}
}

// =============================================================================
// FILING HANDLERS
// =============================================================================

// CalculateFiling calculates (or recalculates) a filing for a period.
// POST /api/filings/calculate
func (h *Handler) CalculateFiling(w http.ResponseWriter, r *http.Request) {
	var req CalculateFilingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.TenantID == "" {
		writeError(w, http.StatusBadRequest, "tenant_id is required", nil)
		return
	}

	form := filing.FormType(req.FormType)
	if !form.Valid() {
		writeError(w, http.StatusBadRequest, "Unknown form_type (use \"941\" or \"940\")", nil)
		return
	}

	opts := filing.CalculateOptions{
		RequireData:      req.RequireData,
		AcceptWithErrors: req.AcceptWithErrors,
	}
	if req.Adjustments != nil {
		adjustments, err := parseAdjustments(req.Adjustments)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid adjustment amount", err)
			return
		}
		opts.Adjustments = adjustments
	}

	record, err := h.Service.CalculateFiling(r.Context(),
		filing.TenantID(req.TenantID), form, req.Year, req.Quarter, opts)
	if err != nil {
		writeDomainError(w, "Failed to calculate filing", err)
		return
	}

	writeJSON(w, http.StatusOK, toFilingDTO(record))
}

// GetFiling returns a single filing.
// GET /api/filings/{id}
func (h *Handler) GetFiling(w http.ResponseWriter, r *http.Request) {
	id := filing.FilingID(chi.URLParam(r, "id"))

	record, err := h.Store.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to get filing", err)
		return
	}
	writeJSON(w, http.StatusOK, toFilingDTO(record))
}

// ListFilings returns a tenant's filings for a year.
// GET /api/filings?tenant={tenant}&year={year}
func (h *Handler) ListFilings(w http.ResponseWriter, r *http.Request) {
	tenant := r.URL.Query().Get("tenant")
	if tenant == "" {
		writeError(w, http.StatusBadRequest, "tenant query parameter is required", nil)
		return
	}
	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "year query parameter is required", err)
		return
	}

	records, err := h.Store.ListByTenant(r.Context(), filing.TenantID(tenant), year)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list filings", err)
		return
	}

	dtos := make([]FilingDTO, len(records))
	for i, record := range records {
		dtos[i] = toFilingDTO(record)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// SubmitFiling submits a calculated filing to the external authority.
// POST /api/filings/{id}/submit
func (h *Handler) SubmitFiling(w http.ResponseWriter, r *http.Request) {
	id := filing.FilingID(chi.URLParam(r, "id"))

	receipt, err := h.Service.SubmitFiling(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to submit filing", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"submission_id":   string(receipt.SubmissionID),
		"tracking_number": receipt.TrackingNumber,
	})
}

// CheckFilingStatus polls the acknowledgment status of a submitted filing.
// GET /api/filings/{id}/status
func (h *Handler) CheckFilingStatus(w http.ResponseWriter, r *http.Request) {
	id := filing.FilingID(chi.URLParam(r, "id"))

	result, err := h.Service.CheckFilingStatus(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to check filing status", err)
		return
	}

	dto := StatusDTO{
		Status:               string(result.Status),
		AcknowledgmentNumber: result.AcknowledgmentNumber,
	}
	if !result.AcknowledgedAt.IsZero() {
		dto.AcknowledgedAt = result.AcknowledgedAt.Format(time.RFC3339)
	}
	for _, e := range result.Errors {
		dto.Errors = append(dto.Errors, RemoteErrorDTO{
			Code:    e.Code,
			Field:   e.Field,
			Message: e.Message,
		})
	}
	writeJSON(w, http.StatusOK, dto)
}

// AmendFiling creates an amendment of an accepted filing.
// POST /api/filings/{id}/amend
func (h *Handler) AmendFiling(w http.ResponseWriter, r *http.Request) {
	id := filing.FilingID(chi.URLParam(r, "id"))

	var req AmendFilingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	opts := filing.AmendOptions{Reason: req.Reason}
	if req.Adjustments != nil {
		adjustments, err := parseAdjustments(req.Adjustments)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid adjustment amount", err)
			return
		}
		opts.Adjustments = adjustments
	}

	record, err := h.Service.AmendFiling(r.Context(), id, opts)
	if err != nil {
		writeDomainError(w, "Failed to amend filing", err)
		return
	}
	writeJSON(w, http.StatusCreated, toFilingDTO(record))
}

// ListAttempts returns the submission audit trail for a filing.
// GET /api/filings/{id}/attempts
func (h *Handler) ListAttempts(w http.ResponseWriter, r *http.Request) {
	id := filing.FilingID(chi.URLParam(r, "id"))

	attempts, err := h.Store.Attempts(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list attempts", err)
		return
	}

	dtos := make([]AttemptDTO, len(attempts))
	for i, a := range attempts {
		dtos[i] = toAttemptDTO(a)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ListAmendments returns all amendments of an original filing.
// GET /api/filings/{id}/amendments
func (h *Handler) ListAmendments(w http.ResponseWriter, r *http.Request) {
	id := filing.FilingID(chi.URLParam(r, "id"))

	records, err := h.Store.Amendments(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list amendments", err)
		return
	}

	dtos := make([]FilingDTO, len(records))
	for i, record := range records {
		dtos[i] = toFilingDTO(record)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// PAYROLL HANDLERS
// =============================================================================

// AddTransactions appends payroll transactions to a tenant's feed.
// POST /api/payroll/{tenant}/transactions
func (h *Handler) AddTransactions(w http.ResponseWriter, r *http.Request) {
	tenant := filing.TenantID(chi.URLParam(r, "tenant"))

	var req AddTransactionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if len(req.Transactions) == 0 {
		writeError(w, http.StatusBadRequest, "transactions must not be empty", nil)
		return
	}

	for _, dto := range req.Transactions {
		tx, err := parseTransaction(dto)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid transaction", err)
			return
		}
		if err := h.Store.AddTransaction(r.Context(), tenant, tx); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to save transaction", err)
			return
		}
	}

	writeJSON(w, http.StatusCreated, map[string]int{"added": len(req.Transactions)})
}

// GetTransactions reads a tenant's payroll feed for a date window.
// GET /api/payroll/{tenant}/transactions?from=YYYY-MM-DD&to=YYYY-MM-DD
func (h *Handler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	tenant := filing.TenantID(chi.URLParam(r, "tenant"))

	from, err := time.Parse("2006-01-02", r.URL.Query().Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid from date (use YYYY-MM-DD)", err)
		return
	}
	to, err := time.Parse("2006-01-02", r.URL.Query().Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid to date (use YYYY-MM-DD)", err)
		return
	}

	txs, err := h.Store.GetTransactions(r.Context(), tenant, from, to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list transactions", err)
		return
	}

	dtos := make([]TransactionDTO, len(txs))
	for i, tx := range txs {
		dtos[i] = TransactionDTO{
			EmployeeID:        tx.EmployeeID,
			PayDate:           tx.PayDate.Format("2006-01-02"),
			GrossPay:          money(tx.GrossPay),
			FederalTax:        money(tx.FederalTax),
			SocialSecurityTax: money(tx.SocialSecurityTax),
			MedicareTax:       money(tx.MedicareTax),
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// EMPLOYER HANDLERS
// =============================================================================

// GetEmployer returns a tenant's employer account.
// GET /api/employers/{tenant}
func (h *Handler) GetEmployer(w http.ResponseWriter, r *http.Request) {
	tenant := filing.TenantID(chi.URLParam(r, "tenant"))

	account, err := h.Store.GetEmployerAccount(r.Context(), tenant)
	if err != nil {
		writeDomainError(w, "Failed to get employer", err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployerDTO(account))
}

// PutEmployer upserts a tenant's employer account.
// PUT /api/employers/{tenant}
func (h *Handler) PutEmployer(w http.ResponseWriter, r *http.Request) {
	tenant := filing.TenantID(chi.URLParam(r, "tenant"))

	var req PutEmployerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if !filing.ValidEIN(req.EIN) {
		writeError(w, http.StatusBadRequest, "EIN must be exactly 9 digits", nil)
		return
	}
	if req.LegalName == "" {
		writeError(w, http.StatusBadRequest, "legal_name is required", nil)
		return
	}

	liability := decimal.Zero
	if req.PriorYearLiability != "" {
		var err error
		if liability, err = decimal.NewFromString(req.PriorYearLiability); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid prior_year_liability", err)
			return
		}
	}

	account := filing.EmployerAccount{
		TenantID:           tenant,
		EIN:                req.EIN,
		LegalName:          req.LegalName,
		Address:            req.Address,
		City:               req.City,
		State:              req.State,
		Zip:                req.Zip,
		PriorYearLiability: liability,
		EINVerified:        req.EINVerified,
	}
	if err := h.Store.SaveEmployer(r.Context(), account); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save employer", err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployerDTO(account))
}

// =============================================================================
// PARSING HELPERS
// =============================================================================

func parseAdjustments(dto *AdjustmentsDTO) (filing.Adjustments, error) {
	var adjustments filing.Adjustments
	fields := []struct {
		raw  string
		dest *decimal.Decimal
	}{
		{dto.FractionsOfCents, &adjustments.FractionsOfCents},
		{dto.SickPay, &adjustments.SickPay},
		{dto.TipsAndInsurance, &adjustments.TipsAndInsurance},
	}
	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		value, err := decimal.NewFromString(f.raw)
		if err != nil {
			return filing.Adjustments{}, err
		}
		*f.dest = value
	}
	return adjustments, nil
}

func parseTransaction(dto TransactionDTO) (filing.PayrollTransaction, error) {
	var tx filing.PayrollTransaction
	var err error

	if dto.EmployeeID == "" {
		return tx, errors.New("employee_id is required")
	}
	tx.EmployeeID = dto.EmployeeID

	if tx.PayDate, err = time.Parse("2006-01-02", dto.PayDate); err != nil {
		return tx, err
	}
	if tx.GrossPay, err = decimal.NewFromString(dto.GrossPay); err != nil {
		return tx, err
	}
	if tx.FederalTax, err = decimal.NewFromString(dto.FederalTax); err != nil {
		return tx, err
	}
	if dto.SocialSecurityTax != "" {
		if tx.SocialSecurityTax, err = decimal.NewFromString(dto.SocialSecurityTax); err != nil {
			return tx, err
		}
	}
	if dto.MedicareTax != "" {
		if tx.MedicareTax, err = decimal.NewFromString(dto.MedicareTax); err != nil {
			return tx, err
		}
	}
	return tx, nil
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps the sentinel taxonomy onto HTTP status codes.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	status := http.StatusInternalServerError
	switch {
	// ErrNoPayrollData is checked before the not-found group: an empty feed
	// is an unprocessable request, not a missing resource.
	case errors.Is(err, filing.ErrNoPayrollData),
		errors.Is(err, filing.ErrValidationFailed),
		errors.Is(err, filing.ErrAmendmentPrecondition):
		status = http.StatusUnprocessableEntity
	case filing.IsNotFound(err):
		status = http.StatusNotFound
	case errors.Is(err, filing.ErrInvalidPeriod),
		errors.Is(err, filing.ErrMalformedEIN):
		status = http.StatusBadRequest
	case errors.Is(err, filing.ErrIllegalTransition),
		errors.Is(err, filing.ErrRecordFrozen),
		errors.Is(err, filing.ErrCalculationInProgress),
		errors.Is(err, filing.ErrSubmissionInProgress):
		status = http.StatusConflict
	case errors.Is(err, filing.ErrGatewayTransient),
		errors.Is(err, filing.ErrGatewayRejected):
		status = http.StatusBadGateway
	}

	resp := ErrorResponse{Error: message, Retryable: filing.IsRetryable(err)}
	if err != nil {
		resp.Details = err.Error()
	}
	var vf *filing.ValidationFailedError
	if errors.As(err, &vf) {
		for _, v := range vf.Violations {
			resp.Violations = append(resp.Violations, toViolationDTO(v))
		}
	}
	writeJSON(w, status, resp)
}
