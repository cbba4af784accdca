package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/filing-engine/filing"
	"github.com/warp/filing-engine/store/sqlite"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func amt(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func day(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

// sampleFiling builds a fully-populated Q1 record. RFC3339 storage keeps
// second precision, so all timestamps are truncated up front.
func sampleFiling(id filing.FilingID) *filing.FilingRecord {
	now := time.Now().UTC().Truncate(time.Second)
	ackAt := now.Add(-time.Hour)
	return &filing.FilingRecord{
		ID:       id,
		TenantID: "acme",
		FormType: filing.FormQuarterly,
		Period: filing.TaxPeriod{
			Year:           2024,
			Quarter:        1,
			Start:          day("2024-01-01"),
			End:            day("2024-03-31"),
			FilingDeadline: day("2024-04-30"),
		},
		Totals: filing.WageTotals{
			EmployeeCount:            2,
			TotalWages:               amt("18000"),
			FederalIncomeTaxWithheld: amt("1800"),
			SocialSecurityWages:      amt("18000"),
			SocialSecurityTax:        amt("2232"),
			MedicareWages:            amt("18000"),
			MedicareTax:              amt("522"),
		},
		Adjustments:    filing.Adjustments{FractionsOfCents: amt("0.03")},
		TotalTaxBefore: amt("4554"),
		TotalTaxAfter:  amt("4554.03"),
		Schedule:       filing.DepositSemiweekly,
		Deposits: []filing.DepositLiability{
			{DueDate: day("2024-01-17"), Amount: amt("759"), Covers: "2024-01-12"},
		},
		ScheduleB: &filing.ScheduleB{
			Months: []filing.ScheduleBMonth{
				{MonthIndex: 1, Days: []filing.ScheduleBDay{{Date: day("2024-01-12"), Amount: amt("759")}}, Total: amt("759")},
			},
			QuarterTotal: amt("759"),
		},
		Status: filing.StatusAccepted,
		ValidationErrors: []filing.RuleViolation{
			{Rule: "deposit_reconciliation", Field: "deposits", Message: "off by one cent"},
		},
		SubmissionID:         "sub-1",
		TrackingNumber:       "trk-1",
		AcknowledgmentNumber: "ack-1",
		AcknowledgedAt:       &ackAt,
		RemoteErrors:         []filing.RemoteError{{Code: "W-1", Message: "late filing warning"}},
		CreatedAt:            now,
		UpdatedAt:            now,
	}
}

// =============================================================================
// FILINGS
// =============================================================================

func TestStore_SaveAndGetRoundTrip(t *testing.T) {
	// GIVEN: A fully-populated record (Schedule B, violations, ack metadata)
	// WHEN: Saving and reading it back
	// THEN: Every field survives the round trip

	store := newStore(t)
	ctx := context.Background()
	record := sampleFiling("fil-1")

	if err := store.Save(ctx, record); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := store.Get(ctx, "fil-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	if got.TenantID != "acme" || got.FormType != filing.FormQuarterly || got.Status != filing.StatusAccepted {
		t.Errorf("identity fields: %+v", got)
	}
	if got.Period.Year != 2024 || got.Period.Quarter != 1 || !got.Period.End.Equal(day("2024-03-31")) {
		t.Errorf("period: %+v", got.Period)
	}
	if got.Totals.EmployeeCount != 2 || !got.Totals.SocialSecurityTax.Equal(amt("2232")) {
		t.Errorf("totals: %+v", got.Totals)
	}
	if !got.Adjustments.FractionsOfCents.Equal(amt("0.03")) {
		t.Errorf("adjustments: %+v", got.Adjustments)
	}
	if !got.TotalTaxAfter.Equal(amt("4554.03")) {
		t.Errorf("total tax after: %s", got.TotalTaxAfter)
	}
	if len(got.Deposits) != 1 || !got.Deposits[0].DueDate.Equal(day("2024-01-17")) || got.Deposits[0].Covers != "2024-01-12" {
		t.Errorf("deposits: %+v", got.Deposits)
	}
	if got.ScheduleB == nil || !got.ScheduleB.QuarterTotal.Equal(amt("759")) || len(got.ScheduleB.Months) != 1 {
		t.Errorf("schedule B: %+v", got.ScheduleB)
	}
	if len(got.ValidationErrors) != 1 || got.ValidationErrors[0].Rule != "deposit_reconciliation" {
		t.Errorf("violations: %+v", got.ValidationErrors)
	}
	if got.SubmissionID != "sub-1" || got.AcknowledgmentNumber != "ack-1" {
		t.Errorf("submission metadata: %+v", got)
	}
	if got.AcknowledgedAt == nil || !got.AcknowledgedAt.Equal(*record.AcknowledgedAt) {
		t.Errorf("acknowledged at: %v", got.AcknowledgedAt)
	}
	if len(got.RemoteErrors) != 1 || got.RemoteErrors[0].Code != "W-1" {
		t.Errorf("remote errors: %+v", got.RemoteErrors)
	}
}

func TestStore_GetUnknownID(t *testing.T) {
	store := newStore(t)

	_, err := store.Get(context.Background(), "missing")
	if !errors.Is(err, filing.ErrFilingNotFound) {
		t.Fatalf("expected ErrFilingNotFound, got %v", err)
	}
}

func TestStore_SaveIsUpsert(t *testing.T) {
	// GIVEN: A saved record
	// WHEN: Saving again with changed computed fields
	// THEN: The same row is updated, not duplicated

	store := newStore(t)
	ctx := context.Background()
	record := sampleFiling("fil-1")
	record.Status = filing.StatusCalculated

	if err := store.Save(ctx, record); err != nil {
		t.Fatalf("save: %v", err)
	}
	record.Status = filing.StatusSubmitted
	record.TotalTaxAfter = amt("5000")
	if err := store.Save(ctx, record); err != nil {
		t.Fatalf("second save: %v", err)
	}

	got, err := store.Get(ctx, "fil-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != filing.StatusSubmitted || !got.TotalTaxAfter.Equal(amt("5000")) {
		t.Errorf("update not applied: %+v", got)
	}

	all, err := store.ListByTenant(ctx, "acme", 2024)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("expected 1 record, got %d", len(all))
	}
}

func TestStore_FindExcludesAmendments(t *testing.T) {
	// GIVEN: An original and its amendment in the same period
	// THEN: Find returns the original; Amendments returns the amendment

	store := newStore(t)
	ctx := context.Background()

	original := sampleFiling("fil-1")
	if err := store.Save(ctx, original); err != nil {
		t.Fatalf("save original: %v", err)
	}
	amendment := sampleFiling("fil-2")
	amendment.OriginalRecordID = "fil-1"
	amendment.AmendmentReason = "corrected wages"
	amendment.Status = filing.StatusCalculated
	if err := store.Save(ctx, amendment); err != nil {
		t.Fatalf("save amendment: %v", err)
	}

	found, err := store.Find(ctx, "acme", filing.FormQuarterly, 2024, 1)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if found.ID != "fil-1" {
		t.Errorf("find returned %s, want the original", found.ID)
	}

	amendments, err := store.Amendments(ctx, "fil-1")
	if err != nil {
		t.Fatalf("amendments: %v", err)
	}
	if len(amendments) != 1 || amendments[0].ID != "fil-2" {
		t.Errorf("amendments: %+v", amendments)
	}
	if amendments[0].AmendmentReason != "corrected wages" {
		t.Errorf("reason: got %s", amendments[0].AmendmentReason)
	}
}

func TestStore_ListByTenantOrdering(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	q3 := sampleFiling("fil-q3")
	q3.Period.Quarter = 3
	annual := sampleFiling("fil-940")
	annual.FormType = filing.FormAnnualUnemployment
	annual.Period.Quarter = 0
	q1 := sampleFiling("fil-q1")

	for _, r := range []*filing.FilingRecord{q3, annual, q1} {
		if err := store.Save(ctx, r); err != nil {
			t.Fatalf("save %s: %v", r.ID, err)
		}
	}

	all, err := store.ListByTenant(ctx, "acme", 2024)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var ids []filing.FilingID
	for _, r := range all {
		ids = append(ids, r.ID)
	}
	// form type ascending ("940" < "941"), then quarter
	want := []filing.FilingID{"fil-940", "fil-q1", "fil-q3"}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("order: got %v, want %v", ids, want)
		}
	}
}

// =============================================================================
// SUBMISSION ATTEMPTS
// =============================================================================

func TestStore_AttemptsOldestFirst(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	base := time.Date(2024, 4, 10, 9, 0, 0, 0, time.UTC)

	second := filing.SubmissionAttempt{
		ID: "att-2", FilingID: "fil-1", Timestamp: base.Add(time.Minute),
		WirePayload: []byte("<Return/>"), Signature: "sig-2",
		ResultingStatus: filing.StatusSubmitted, SubmissionID: "sub-1",
	}
	first := filing.SubmissionAttempt{
		ID: "att-1", FilingID: "fil-1", Timestamp: base,
		ResultingStatus: filing.StatusCalculated, Error: "gateway submit transient: timeout",
	}
	for _, a := range []filing.SubmissionAttempt{second, first} {
		if err := store.AddAttempt(ctx, a); err != nil {
			t.Fatalf("add attempt: %v", err)
		}
	}

	attempts, err := store.Attempts(ctx, "fil-1")
	if err != nil {
		t.Fatalf("attempts: %v", err)
	}
	if len(attempts) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(attempts))
	}
	if attempts[0].ID != "att-1" || attempts[1].ID != "att-2" {
		t.Errorf("order: got %s, %s", attempts[0].ID, attempts[1].ID)
	}
	if attempts[0].Error == "" {
		t.Error("failed attempt must keep its error")
	}
	if string(attempts[1].WirePayload) != "<Return/>" || attempts[1].Signature != "sig-2" {
		t.Errorf("payload/signature: %+v", attempts[1])
	}
}

// =============================================================================
// PAYROLL FEED
// =============================================================================

func TestStore_TransactionWindowQuery(t *testing.T) {
	// GIVEN: Transactions on, inside and outside the period boundaries
	// THEN: The window query is inclusive on both ends

	store := newStore(t)
	ctx := context.Background()

	dates := []string{"2023-12-31", "2024-01-01", "2024-02-15", "2024-03-31", "2024-04-01"}
	for i, d := range dates {
		tx := filing.PayrollTransaction{
			EmployeeID: "emp-1",
			PayDate:    day(d),
			GrossPay:   amt("1000").Mul(decimal.NewFromInt(int64(i + 1))),
			FederalTax: amt("100"),
		}
		if err := store.AddTransaction(ctx, "acme", tx); err != nil {
			t.Fatalf("add transaction: %v", err)
		}
	}
	// Another tenant's data must not leak in.
	if err := store.AddTransaction(ctx, "other", filing.PayrollTransaction{
		EmployeeID: "emp-9", PayDate: day("2024-02-01"), GrossPay: amt("9999"),
	}); err != nil {
		t.Fatalf("add transaction: %v", err)
	}

	txs, err := store.GetTransactions(ctx, "acme", day("2024-01-01"), day("2024-03-31"))
	if err != nil {
		t.Fatalf("get transactions: %v", err)
	}
	if len(txs) != 3 {
		t.Fatalf("expected 3 transactions, got %d", len(txs))
	}
	if !txs[0].PayDate.Equal(day("2024-01-01")) || !txs[2].PayDate.Equal(day("2024-03-31")) {
		t.Errorf("boundaries: %v .. %v", txs[0].PayDate, txs[2].PayDate)
	}
	if !txs[1].GrossPay.Equal(amt("3000")) {
		t.Errorf("amount round trip: got %s", txs[1].GrossPay)
	}
}

// =============================================================================
// EMPLOYERS
// =============================================================================

func TestStore_EmployerUpsert(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	_, err := store.GetEmployerAccount(ctx, "acme")
	if !errors.Is(err, filing.ErrEmployerNotFound) {
		t.Fatalf("expected ErrEmployerNotFound, got %v", err)
	}

	account := filing.EmployerAccount{
		TenantID:           "acme",
		EIN:                "123456789",
		LegalName:          "Acme Staffing LLC",
		Address:            "100 Main St",
		City:               "Springfield",
		State:              "IL",
		Zip:                "62701",
		PriorYearLiability: amt("48000"),
		EINVerified:        false,
	}
	if err := store.SaveEmployer(ctx, account); err != nil {
		t.Fatalf("save employer: %v", err)
	}

	// EIN verification and lookback liability change over time.
	account.EINVerified = true
	account.PriorYearLiability = amt("52000.50")
	if err := store.SaveEmployer(ctx, account); err != nil {
		t.Fatalf("update employer: %v", err)
	}

	got, err := store.GetEmployerAccount(ctx, "acme")
	if err != nil {
		t.Fatalf("get employer: %v", err)
	}
	if got.LegalName != "Acme Staffing LLC" || got.City != "Springfield" {
		t.Errorf("identity fields: %+v", got)
	}
	if !got.EINVerified || !got.PriorYearLiability.Equal(amt("52000.50")) {
		t.Errorf("updated fields: %+v", got)
	}
}
