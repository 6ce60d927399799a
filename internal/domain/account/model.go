package account

import (
	"github.com/flexprice/ispbilling/internal/types"
)

// Account is the subscriber account that invoices, payments and credit notes belong to.
// Accounts are owned by the subscriber module; billing only reads them.
type Account struct {
	ID            string              `db:"id" json:"id"`
	Name          string              `db:"name" json:"name"`
	Email         string              `db:"email" json:"email,omitempty"`
	AccountStatus types.AccountStatus `db:"account_status" json:"account_status"`
	Currency      string              `db:"currency" json:"currency"`
	types.BaseModel
}

// IsActive reports whether the subscriber can be billed
func (a *Account) IsActive() bool {
	return a.Status.IsActive() && a.AccountStatus == types.AccountStatusActive
}
