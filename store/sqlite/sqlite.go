/*
Package sqlite provides the SQLite-backed implementation of the filing
engine's storage interfaces.

PURPOSE:
  Implements filing.FilingStore, filing.PayrollSource and
  filing.EmployerStore using SQLite. In production the same patterns apply
  to PostgreSQL - only minor SQL dialect differences.

KEY TABLES:
  filings:              One row per FilingRecord (originals and amendments)
  submission_attempts:  Append-only audit trail of gateway interactions
  payroll_transactions: The payroll feed the aggregator reads
  employers:            Filer identity and lookback configuration

AMOUNT STORAGE:
  Decimal amounts are stored as TEXT in their canonical string form, never
  as floating point. Structured children (wage totals, deposits, schedule
  B, validation errors) are stored as JSON columns: they are read and
  written as a unit with their record and never queried field-wise.

WAL MODE:
  The database is opened with WAL for read concurrency and crash recovery.

USAGE:
  store, err := sqlite.New("./data/filings.db")
  if err != nil { ... }
  defer store.Close()

SEE ALSO:
  - filing/store.go: Interface definitions
  - filing/store/memory.go: In-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/filing-engine/filing"
)

// Store implements the storage interfaces using SQLite.
type Store struct {
	db *sql.DB
}

var (
	_ filing.FilingStore   = (*Store)(nil)
	_ filing.PayrollSource = (*Store)(nil)
	_ filing.EmployerStore = (*Store)(nil)
)

// New creates a SQLite store at the given path. Use ":memory:" for tests.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	-- Filing records (originals and amendments)
	CREATE TABLE IF NOT EXISTS filings (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		form_type TEXT NOT NULL,
		year INTEGER NOT NULL,
		quarter INTEGER NOT NULL,
		period_start TEXT NOT NULL,
		period_end TEXT NOT NULL,
		filing_deadline TEXT NOT NULL,
		totals_json TEXT NOT NULL,
		adjustments_json TEXT NOT NULL,
		total_tax_before TEXT NOT NULL,
		total_tax_after TEXT NOT NULL,
		deposit_schedule TEXT NOT NULL,
		deposits_json TEXT NOT NULL,
		schedule_b_json TEXT,
		unemployment_taxable_wages TEXT NOT NULL DEFAULT '0',
		unemployment_tax TEXT NOT NULL DEFAULT '0',
		status TEXT NOT NULL,
		validation_errors_json TEXT,
		submission_id TEXT,
		tracking_number TEXT,
		acknowledgment_number TEXT,
		acknowledged_at TEXT,
		remote_errors_json TEXT,
		original_record_id TEXT NOT NULL DEFAULT '',
		amendment_reason TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- One original per (tenant, form, period); amendments are excluded
	CREATE UNIQUE INDEX IF NOT EXISTS idx_filings_original
		ON filings(tenant_id, form_type, year, quarter)
		WHERE original_record_id = '';
	CREATE INDEX IF NOT EXISTS idx_filings_tenant_year
		ON filings(tenant_id, year);
	CREATE INDEX IF NOT EXISTS idx_filings_amendments
		ON filings(original_record_id) WHERE original_record_id != '';

	-- Submission attempts (append-only audit trail)
	CREATE TABLE IF NOT EXISTS submission_attempts (
		id TEXT PRIMARY KEY,
		filing_id TEXT NOT NULL,
		attempted_at TEXT NOT NULL,
		wire_payload BLOB,
		signature TEXT,
		resulting_status TEXT NOT NULL,
		submission_id TEXT,
		tracking_number TEXT,
		error TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_attempts_filing
		ON submission_attempts(filing_id, attempted_at);

	-- Payroll feed
	CREATE TABLE IF NOT EXISTS payroll_transactions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		tenant_id TEXT NOT NULL,
		employee_id TEXT NOT NULL,
		pay_date TEXT NOT NULL,
		gross_pay TEXT NOT NULL,
		federal_tax TEXT NOT NULL,
		social_security_tax TEXT NOT NULL,
		medicare_tax TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_payroll_tenant_date
		ON payroll_transactions(tenant_id, pay_date);

	-- Employer accounts
	CREATE TABLE IF NOT EXISTS employers (
		tenant_id TEXT PRIMARY KEY,
		ein TEXT NOT NULL,
		legal_name TEXT NOT NULL,
		address TEXT,
		city TEXT,
		state TEXT,
		zip TEXT,
		prior_year_liability TEXT NOT NULL DEFAULT '0',
		ein_verified BOOLEAN NOT NULL DEFAULT FALSE
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// FILING STORE (filing.FilingStore interface)
// =============================================================================

const filingColumns = `
	id, tenant_id, form_type, year, quarter, period_start, period_end,
	filing_deadline, totals_json, adjustments_json, total_tax_before,
	total_tax_after, deposit_schedule, deposits_json, schedule_b_json,
	unemployment_taxable_wages, unemployment_tax, status,
	validation_errors_json, submission_id, tracking_number,
	acknowledgment_number, acknowledged_at, remote_errors_json,
	original_record_id, amendment_reason, created_at, updated_at`

// Get returns the record by id.
func (s *Store) Get(ctx context.Context, id filing.FilingID) (*filing.FilingRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+filingColumns+` FROM filings WHERE id = ?`, string(id))
	record, err := scanFiling(row)
	if err == sql.ErrNoRows {
		return nil, filing.ErrFilingNotFound
	}
	return record, err
}

// Find returns the original record for (tenant, form, year, quarter).
func (s *Store) Find(ctx context.Context, tenant filing.TenantID, form filing.FormType, year, quarter int) (*filing.FilingRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+filingColumns+` FROM filings
		 WHERE tenant_id = ? AND form_type = ? AND year = ? AND quarter = ?
		   AND original_record_id = ''`,
		string(tenant), string(form), year, quarter)
	record, err := scanFiling(row)
	if err == sql.ErrNoRows {
		return nil, filing.ErrFilingNotFound
	}
	return record, err
}

// Save upserts the record.
func (s *Store) Save(ctx context.Context, record *filing.FilingRecord) error {
	totalsJSON, err := json.Marshal(record.Totals)
	if err != nil {
		return err
	}
	adjustmentsJSON, err := json.Marshal(record.Adjustments)
	if err != nil {
		return err
	}
	depositsJSON, err := json.Marshal(record.Deposits)
	if err != nil {
		return err
	}
	var scheduleBJSON []byte
	if record.ScheduleB != nil {
		if scheduleBJSON, err = json.Marshal(record.ScheduleB); err != nil {
			return err
		}
	}
	violationsJSON, err := json.Marshal(record.ValidationErrors)
	if err != nil {
		return err
	}
	remoteJSON, err := json.Marshal(record.RemoteErrors)
	if err != nil {
		return err
	}

	var acknowledgedAt any
	if record.AcknowledgedAt != nil {
		acknowledgedAt = record.AcknowledgedAt.UTC().Format(time.RFC3339)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO filings (`+filingColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			totals_json = excluded.totals_json,
			adjustments_json = excluded.adjustments_json,
			total_tax_before = excluded.total_tax_before,
			total_tax_after = excluded.total_tax_after,
			deposit_schedule = excluded.deposit_schedule,
			deposits_json = excluded.deposits_json,
			schedule_b_json = excluded.schedule_b_json,
			unemployment_taxable_wages = excluded.unemployment_taxable_wages,
			unemployment_tax = excluded.unemployment_tax,
			status = excluded.status,
			validation_errors_json = excluded.validation_errors_json,
			submission_id = excluded.submission_id,
			tracking_number = excluded.tracking_number,
			acknowledgment_number = excluded.acknowledgment_number,
			acknowledged_at = excluded.acknowledged_at,
			remote_errors_json = excluded.remote_errors_json,
			updated_at = excluded.updated_at`,
		string(record.ID),
		string(record.TenantID),
		string(record.FormType),
		record.Period.Year,
		record.Period.Quarter,
		record.Period.Start.Format(time.RFC3339),
		record.Period.End.Format(time.RFC3339),
		record.Period.FilingDeadline.Format(time.RFC3339),
		string(totalsJSON),
		string(adjustmentsJSON),
		record.TotalTaxBefore.String(),
		record.TotalTaxAfter.String(),
		string(record.Schedule),
		string(depositsJSON),
		nullString(string(scheduleBJSON)),
		record.UnemploymentTaxableWages.String(),
		record.UnemploymentTax.String(),
		string(record.Status),
		string(violationsJSON),
		string(record.SubmissionID),
		record.TrackingNumber,
		record.AcknowledgmentNumber,
		acknowledgedAt,
		string(remoteJSON),
		string(record.OriginalRecordID),
		record.AmendmentReason,
		record.CreatedAt.UTC().Format(time.RFC3339),
		record.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save filing: %w", err)
	}
	return nil
}

// ListByTenant returns a tenant's records for a year.
func (s *Store) ListByTenant(ctx context.Context, tenant filing.TenantID, year int) ([]*filing.FilingRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+filingColumns+` FROM filings
		 WHERE tenant_id = ? AND year = ?
		 ORDER BY form_type, quarter`, string(tenant), year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*filing.FilingRecord
	for rows.Next() {
		record, err := scanFiling(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	return out, rows.Err()
}

// Amendments returns all records amending the given original.
func (s *Store) Amendments(ctx context.Context, originalID filing.FilingID) ([]*filing.FilingRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+filingColumns+` FROM filings
		 WHERE original_record_id = ? ORDER BY created_at`, string(originalID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*filing.FilingRecord
	for rows.Next() {
		record, err := scanFiling(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	return out, rows.Err()
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanFiling(row scanner) (*filing.FilingRecord, error) {
	var (
		record                                       filing.FilingRecord
		id, tenant, form, schedule, status           string
		periodStart, periodEnd, deadline             string
		totalsJSON, adjustmentsJSON, depositsJSON    string
		taxBefore, taxAfter, futaWages, futaTax      string
		scheduleBJSON, violationsJSON, remoteJSON    sql.NullString
		submissionID, tracking, ackNumber, ackAt     sql.NullString
		originalID, amendReason, createdAt, updatedAt sql.NullString
	)

	err := row.Scan(
		&id, &tenant, &form, &record.Period.Year, &record.Period.Quarter,
		&periodStart, &periodEnd, &deadline,
		&totalsJSON, &adjustmentsJSON, &taxBefore, &taxAfter,
		&schedule, &depositsJSON, &scheduleBJSON,
		&futaWages, &futaTax, &status,
		&violationsJSON, &submissionID, &tracking,
		&ackNumber, &ackAt, &remoteJSON,
		&originalID, &amendReason, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	record.ID = filing.FilingID(id)
	record.TenantID = filing.TenantID(tenant)
	record.FormType = filing.FormType(form)
	record.Schedule = filing.DepositSchedule(schedule)
	record.Status = filing.FilingStatus(status)
	record.SubmissionID = filing.SubmissionID(submissionID.String)
	record.TrackingNumber = tracking.String
	record.AcknowledgmentNumber = ackNumber.String
	record.OriginalRecordID = filing.FilingID(originalID.String)
	record.AmendmentReason = amendReason.String

	if record.Period.Start, err = time.Parse(time.RFC3339, periodStart); err != nil {
		return nil, err
	}
	if record.Period.End, err = time.Parse(time.RFC3339, periodEnd); err != nil {
		return nil, err
	}
	if record.Period.FilingDeadline, err = time.Parse(time.RFC3339, deadline); err != nil {
		return nil, err
	}
	if record.TotalTaxBefore, err = decimal.NewFromString(taxBefore); err != nil {
		return nil, err
	}
	if record.TotalTaxAfter, err = decimal.NewFromString(taxAfter); err != nil {
		return nil, err
	}
	if record.UnemploymentTaxableWages, err = decimal.NewFromString(futaWages); err != nil {
		return nil, err
	}
	if record.UnemploymentTax, err = decimal.NewFromString(futaTax); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(totalsJSON), &record.Totals); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(adjustmentsJSON), &record.Adjustments); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(depositsJSON), &record.Deposits); err != nil {
		return nil, err
	}
	if scheduleBJSON.Valid && scheduleBJSON.String != "" {
		record.ScheduleB = &filing.ScheduleB{}
		if err := json.Unmarshal([]byte(scheduleBJSON.String), record.ScheduleB); err != nil {
			return nil, err
		}
	}
	if violationsJSON.Valid && violationsJSON.String != "" {
		if err := json.Unmarshal([]byte(violationsJSON.String), &record.ValidationErrors); err != nil {
			return nil, err
		}
	}
	if remoteJSON.Valid && remoteJSON.String != "" {
		if err := json.Unmarshal([]byte(remoteJSON.String), &record.RemoteErrors); err != nil {
			return nil, err
		}
	}
	if ackAt.Valid && ackAt.String != "" {
		at, err := time.Parse(time.RFC3339, ackAt.String)
		if err != nil {
			return nil, err
		}
		record.AcknowledgedAt = &at
	}
	if createdAt.Valid {
		record.CreatedAt, _ = time.Parse(time.RFC3339, createdAt.String)
	}
	if updatedAt.Valid {
		record.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt.String)
	}
	return &record, nil
}

// =============================================================================
// SUBMISSION ATTEMPTS
// =============================================================================

// AddAttempt appends a submission attempt to the audit trail.
func (s *Store) AddAttempt(ctx context.Context, attempt filing.SubmissionAttempt) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO submission_attempts
		(id, filing_id, attempted_at, wire_payload, signature, resulting_status,
		 submission_id, tracking_number, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		attempt.ID,
		string(attempt.FilingID),
		attempt.Timestamp.UTC().Format(time.RFC3339),
		attempt.WirePayload,
		attempt.Signature,
		string(attempt.ResultingStatus),
		string(attempt.SubmissionID),
		attempt.TrackingNumber,
		attempt.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to record submission attempt: %w", err)
	}
	return nil
}

// Attempts returns all attempts for a filing, oldest first.
func (s *Store) Attempts(ctx context.Context, id filing.FilingID) ([]filing.SubmissionAttempt, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, filing_id, attempted_at, wire_payload, signature,
		       resulting_status, submission_id, tracking_number, error
		FROM submission_attempts
		WHERE filing_id = ? ORDER BY attempted_at`, string(id))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []filing.SubmissionAttempt
	for rows.Next() {
		var (
			attempt                    filing.SubmissionAttempt
			filingID, attemptedAt      string
			status, submissionID       string
			signature, tracking, errS  sql.NullString
		)
		if err := rows.Scan(&attempt.ID, &filingID, &attemptedAt, &attempt.WirePayload,
			&signature, &status, &submissionID, &tracking, &errS); err != nil {
			return nil, err
		}
		attempt.FilingID = filing.FilingID(filingID)
		attempt.Signature = signature.String
		attempt.ResultingStatus = filing.FilingStatus(status)
		attempt.SubmissionID = filing.SubmissionID(submissionID)
		attempt.TrackingNumber = tracking.String
		attempt.Error = errS.String
		if attempt.Timestamp, err = time.Parse(time.RFC3339, attemptedAt); err != nil {
			return nil, err
		}
		out = append(out, attempt)
	}
	return out, rows.Err()
}

// =============================================================================
// PAYROLL SOURCE (filing.PayrollSource interface)
// =============================================================================

// AddTransaction appends one payroll transaction to the feed.
func (s *Store) AddTransaction(ctx context.Context, tenant filing.TenantID, tx filing.PayrollTransaction) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO payroll_transactions
		(tenant_id, employee_id, pay_date, gross_pay, federal_tax, social_security_tax, medicare_tax)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		string(tenant),
		tx.EmployeeID,
		tx.PayDate.UTC().Format("2006-01-02"),
		tx.GrossPay.String(),
		tx.FederalTax.String(),
		tx.SocialSecurityTax.String(),
		tx.MedicareTax.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to add payroll transaction: %w", err)
	}
	return nil
}

// GetTransactions returns the tenant's transactions in [periodStart, periodEnd].
func (s *Store) GetTransactions(ctx context.Context, tenant filing.TenantID, periodStart, periodEnd time.Time) ([]filing.PayrollTransaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT employee_id, pay_date, gross_pay, federal_tax, social_security_tax, medicare_tax
		FROM payroll_transactions
		WHERE tenant_id = ? AND pay_date >= ? AND pay_date <= ?
		ORDER BY pay_date, employee_id`,
		string(tenant),
		periodStart.Format("2006-01-02"),
		periodEnd.Format("2006-01-02"),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []filing.PayrollTransaction
	for rows.Next() {
		var (
			tx                               filing.PayrollTransaction
			payDate, gross, fit, ss, medicare string
		)
		if err := rows.Scan(&tx.EmployeeID, &payDate, &gross, &fit, &ss, &medicare); err != nil {
			return nil, err
		}
		if tx.PayDate, err = time.Parse("2006-01-02", payDate); err != nil {
			return nil, err
		}
		if tx.GrossPay, err = decimal.NewFromString(gross); err != nil {
			return nil, err
		}
		if tx.FederalTax, err = decimal.NewFromString(fit); err != nil {
			return nil, err
		}
		if tx.SocialSecurityTax, err = decimal.NewFromString(ss); err != nil {
			return nil, err
		}
		if tx.MedicareTax, err = decimal.NewFromString(medicare); err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

// =============================================================================
// EMPLOYER STORE (filing.EmployerStore interface)
// =============================================================================

// SaveEmployer upserts a tenant's employer account.
func (s *Store) SaveEmployer(ctx context.Context, account filing.EmployerAccount) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO employers
		(tenant_id, ein, legal_name, address, city, state, zip, prior_year_liability, ein_verified)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(tenant_id) DO UPDATE SET
			ein = excluded.ein,
			legal_name = excluded.legal_name,
			address = excluded.address,
			city = excluded.city,
			state = excluded.state,
			zip = excluded.zip,
			prior_year_liability = excluded.prior_year_liability,
			ein_verified = excluded.ein_verified`,
		string(account.TenantID),
		account.EIN,
		account.LegalName,
		account.Address,
		account.City,
		account.State,
		account.Zip,
		account.PriorYearLiability.String(),
		account.EINVerified,
	)
	if err != nil {
		return fmt.Errorf("failed to save employer: %w", err)
	}
	return nil
}

// GetEmployerAccount returns the tenant's employer account.
func (s *Store) GetEmployerAccount(ctx context.Context, tenant filing.TenantID) (filing.EmployerAccount, error) {
	var (
		account   filing.EmployerAccount
		liability string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT tenant_id, ein, legal_name, address, city, state, zip, prior_year_liability, ein_verified
		FROM employers WHERE tenant_id = ?`, string(tenant)).
		Scan(&account.TenantID, &account.EIN, &account.LegalName, &account.Address,
			&account.City, &account.State, &account.Zip, &liability, &account.EINVerified)
	if err == sql.ErrNoRows {
		return filing.EmployerAccount{}, filing.ErrEmployerNotFound
	}
	if err != nil {
		return filing.EmployerAccount{}, err
	}
	if account.PriorYearLiability, err = decimal.NewFromString(liability); err != nil {
		return filing.EmployerAccount{}, err
	}
	return account, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
