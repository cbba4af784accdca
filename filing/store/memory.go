// Package store provides in-memory implementations of the filing engine's
// collaborator interfaces, used by tests and the dev server.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/warp/filing-engine/filing"
)

// =============================================================================
// MEMORY FILING STORE
// =============================================================================

// Memory holds filings, attempts, payroll transactions and employer accounts
// in process memory. Safe for concurrent use.
type Memory struct {
	mu        sync.RWMutex
	filings   map[filing.FilingID]*filing.FilingRecord
	attempts  map[filing.FilingID][]filing.SubmissionAttempt
	payroll   map[filing.TenantID][]filing.PayrollTransaction
	employers map[filing.TenantID]filing.EmployerAccount
}

var (
	_ filing.FilingStore   = (*Memory)(nil)
	_ filing.PayrollSource = (*Memory)(nil)
	_ filing.EmployerStore = (*Memory)(nil)
)

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{
		filings:   make(map[filing.FilingID]*filing.FilingRecord),
		attempts:  make(map[filing.FilingID][]filing.SubmissionAttempt),
		payroll:   make(map[filing.TenantID][]filing.PayrollTransaction),
		employers: make(map[filing.TenantID]filing.EmployerAccount),
	}
}

// =============================================================================
// FILING STORE
// =============================================================================

func (m *Memory) Get(_ context.Context, id filing.FilingID) (*filing.FilingRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	record, ok := m.filings[id]
	if !ok {
		return nil, filing.ErrFilingNotFound
	}
	return cloneRecord(record), nil
}

func (m *Memory) Find(_ context.Context, tenant filing.TenantID, form filing.FormType, year, quarter int) (*filing.FilingRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, record := range m.filings {
		if record.TenantID == tenant && record.FormType == form &&
			record.Period.Year == year && record.Period.Quarter == quarter &&
			!record.IsAmendment() {
			return cloneRecord(record), nil
		}
	}
	return nil, filing.ErrFilingNotFound
}

func (m *Memory) Save(_ context.Context, record *filing.FilingRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.filings[record.ID] = cloneRecord(record)
	return nil
}

func (m *Memory) ListByTenant(_ context.Context, tenant filing.TenantID, year int) ([]*filing.FilingRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*filing.FilingRecord
	for _, record := range m.filings {
		if record.TenantID == tenant && record.Period.Year == year {
			out = append(out, cloneRecord(record))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FormType != out[j].FormType {
			return out[i].FormType < out[j].FormType
		}
		return out[i].Period.Quarter < out[j].Period.Quarter
	})
	return out, nil
}

func (m *Memory) AddAttempt(_ context.Context, attempt filing.SubmissionAttempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts[attempt.FilingID] = append(m.attempts[attempt.FilingID], attempt)
	return nil
}

func (m *Memory) Attempts(_ context.Context, id filing.FilingID) ([]filing.SubmissionAttempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]filing.SubmissionAttempt, len(m.attempts[id]))
	copy(out, m.attempts[id])
	return out, nil
}

func (m *Memory) Amendments(_ context.Context, originalID filing.FilingID) ([]*filing.FilingRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*filing.FilingRecord
	for _, record := range m.filings {
		if record.OriginalRecordID == originalID {
			out = append(out, cloneRecord(record))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// =============================================================================
// PAYROLL SOURCE
// =============================================================================

// AddTransactions seeds payroll history for a tenant.
func (m *Memory) AddTransactions(tenant filing.TenantID, txs ...filing.PayrollTransaction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payroll[tenant] = append(m.payroll[tenant], txs...)
}

func (m *Memory) GetTransactions(_ context.Context, tenant filing.TenantID, periodStart, periodEnd time.Time) ([]filing.PayrollTransaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []filing.PayrollTransaction
	for _, tx := range m.payroll[tenant] {
		if !tx.PayDate.Before(periodStart) && !tx.PayDate.After(periodEnd) {
			out = append(out, tx)
		}
	}
	return out, nil
}

// =============================================================================
// EMPLOYER STORE
// =============================================================================

// PutEmployer seeds or replaces a tenant's employer account.
func (m *Memory) PutEmployer(account filing.EmployerAccount) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.employers[account.TenantID] = account
}

func (m *Memory) GetEmployerAccount(_ context.Context, tenant filing.TenantID) (filing.EmployerAccount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	account, ok := m.employers[tenant]
	if !ok {
		return filing.EmployerAccount{}, filing.ErrEmployerNotFound
	}
	return account, nil
}

// =============================================================================
// CLONING - Callers never share record memory with the store
// =============================================================================

func cloneRecord(r *filing.FilingRecord) *filing.FilingRecord {
	out := *r
	out.Deposits = append([]filing.DepositLiability(nil), r.Deposits...)
	out.ValidationErrors = append([]filing.RuleViolation(nil), r.ValidationErrors...)
	out.RemoteErrors = append([]filing.RemoteError(nil), r.RemoteErrors...)
	if r.ScheduleB != nil {
		sb := *r.ScheduleB
		sb.Months = make([]filing.ScheduleBMonth, len(r.ScheduleB.Months))
		for i, m := range r.ScheduleB.Months {
			mc := m
			mc.Days = append([]filing.ScheduleBDay(nil), m.Days...)
			sb.Months[i] = mc
		}
		out.ScheduleB = &sb
	}
	if r.AcknowledgedAt != nil {
		at := *r.AcknowledgedAt
		out.AcknowledgedAt = &at
	}
	return &out
}
