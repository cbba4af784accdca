package filing

import (
	"context"

	"github.com/shopspring/decimal"
)

// =============================================================================
// EMPLOYER ACCOUNT - Filer identity and lookback configuration
// =============================================================================

// EmployerAccount is the tenant's filer configuration: identity on the
// return header plus the prior-year liability driving schedule selection.
type EmployerAccount struct {
	TenantID  TenantID
	EIN       string
	LegalName string
	Address   string
	City      string
	State     string
	Zip       string

	PriorYearLiability decimal.Decimal
	EINVerified        bool
}

// EmployerStore is the employer configuration collaborator.
// Implementations: store/sqlite (production), filing/store (tests).
type EmployerStore interface {
	GetEmployerAccount(ctx context.Context, tenant TenantID) (EmployerAccount, error)
}

// ValidEIN reports whether ein is exactly nine ASCII digits.
func ValidEIN(ein string) bool {
	if len(ein) != 9 {
		return false
	}
	for _, c := range ein {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
